package utils

import (
	"errors"
	"fmt"
	"liftworks/config"
	"liftworks/logger"
	"net/smtp"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrEmailDisabled is returned when neither SendGrid nor SMTP credentials are configured.
var ErrEmailDisabled = errors.New("email delivery is not configured")

// SendEmail delivers an HTML email through SendGrid when an API key is set,
// otherwise through SMTP.
func SendEmail(to []string, subject string, htmlBody string) error {
	cfg := config.AppConfig
	if cfg == nil {
		return ErrEmailDisabled
	}
	switch {
	case cfg.SendgridAPIKey != "":
		return sendWithSendgrid(cfg, to, subject, htmlBody)
	case cfg.Password != "" && cfg.SMTPHost != "":
		return sendWithSMTP(cfg, to, subject, htmlBody)
	default:
		return ErrEmailDisabled
	}
}

func sendWithSendgrid(cfg *config.Config, to []string, subject, htmlBody string) error {
	client := sendgrid.NewSendClient(cfg.SendgridAPIKey)
	from := mail.NewEmail(cfg.EmailSenderName, cfg.EmailSender)

	for _, addr := range to {
		msg := mail.NewSingleEmail(from, subject, mail.NewEmail("", addr), "", htmlBody)
		resp, err := client.Send(msg)
		if err != nil {
			return fmt.Errorf("sendgrid send to %s: %w", addr, err)
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("sendgrid send to %s: status %d", addr, resp.StatusCode)
		}
	}
	return nil
}

func sendWithSMTP(cfg *config.Config, to []string, subject, htmlBody string) error {
	from := cfg.EmailSender

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: %s <%s>\r\n", cfg.EmailSenderName, from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, cfg.Password, cfg.SMTPHost)
	return smtp.SendMail(cfg.SMTPHost+":"+cfg.SMTPPort, auth, from, to, []byte(msg))
}

// sendAsync delivers in the background and logs the outcome.
func sendAsync(to []string, subject, html string) {
	go func() {
		err := SendEmail(to, subject, html)
		switch {
		case errors.Is(err, ErrEmailDisabled):
			logger.Log.Debugw("email skipped, delivery disabled", "to", to, "subject", subject)
		case err != nil:
			logger.Log.Errorw("email delivery failed", "to", to, "subject", subject, "error", err)
		default:
			logger.Log.Infow("email sent", "to", to, "subject", subject)
		}
	}()
}

func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F4F4F4; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1F2A36; padding: 30px; text-align: center; }
			.header h1 { color: #F2B705; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1F2A36; line-height: 1.6; }
			.footer { background-color: #F4F4F4; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #F2B705; color: #1F2A36; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
			.info-box { background: #FFF8E1; padding: 15px; border-radius: 4px; border-left: 4px solid #F2B705; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>LIFTWORKS</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; %d LiftWorks Equipment &amp; Training. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent, time.Now().Year())
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// --- Triggers ---

// SendWelcomeEmail greets a new account.
func SendWelcomeEmail(email, name string) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your LiftWorks account is ready. Browse parts and chargers, request rental quotes or start your forklift operator training.</p>
	`, name)
	sendAsync([]string{email}, "Welcome to LiftWorks", getEmailTemplate("Welcome aboard!", body))
}

// SendOTPEmail sends a verification code.
func SendOTPEmail(otp, email string) {
	body := fmt.Sprintf(`
		<p>Your one time verification code is:</p>
		<h1 style="text-align: center; letter-spacing: 6px;">%s</h1>
		<p>The code expires in 10 minutes. Do not share it with anyone.</p>
	`, otp)
	sendAsync([]string{email}, "Your LiftWorks verification code", getEmailTemplate("Verify your email", body))
}

// SendInvitationEmail sends a seat invitation with its redeem link.
func SendInvitationEmail(email, orgName, courseTitle, link string, expiresAt time.Time) {
	body := fmt.Sprintf(`
		<p><strong>%s</strong> has reserved a training seat for you in <strong>%s</strong>.</p>
		<div class="info-box">This invitation expires on %s.</div>
		<a href="%s" class="btn">Accept invitation</a>
	`, orgName, courseTitle, expiresAt.Format("January 2, 2006"), link)
	sendAsync([]string{email}, "You're invited: "+courseTitle, getEmailTemplate("Training invitation", body))
}

// SendCertificateEmail notifies a holder that a certificate was issued.
func SendCertificateEmail(email, name, courseTitle, number, verifyURL string, expiresAt time.Time) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations on passing the final exam for <strong>%s</strong>.</p>
		<div class="info-box">
			Certificate number: <strong>%s</strong><br>
			Valid until: %s
		</div>
		<p>Your employer must still complete a practical evaluation before you operate equipment.</p>
		<a href="%s" class="btn">Verify certificate</a>
	`, name, courseTitle, number, expiresAt.Format("January 2, 2006"), verifyURL)
	sendAsync([]string{email}, "Your certificate: "+courseTitle, getEmailTemplate("Certificate issued", body))
}

// SendCertificateReminderEmail warns a holder that renewal is due.
func SendCertificateReminderEmail(email, name, courseTitle, number string, expiresAt time.Time) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your certificate <strong>%s</strong> for %s expires on <strong>%s</strong>.</p>
		<p>OSHA requires operator re-evaluation at least every three years. Enroll in a refresher to stay authorized.</p>
	`, name, number, courseTitle, expiresAt.Format("January 2, 2006"))
	sendAsync([]string{email}, "Certificate renewal due", getEmailTemplate("Renewal reminder", body))
}

// SendOrderConfirmationEmail confirms a paid order.
func SendOrderConfirmationEmail(email, name, number string, totalCents int64) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>We received payment for order <strong>%s</strong>.</p>
		<div class="info-box">Order total: <strong>%s</strong></div>
		<p>You will receive tracking details when the parts ship. Training purchases are available immediately.</p>
	`, name, number, formatCents(totalCents))
	sendAsync([]string{email}, "Order confirmed: "+number, getEmailTemplate("Thank you for your order", body))
}

// SendQuoteNotificationEmail alerts the sales inbox to a new quote request.
func SendQuoteNotificationEmail(salesEmail string, quoteID uint, kind, contact, company, message string, estimateCents int64) {
	body := fmt.Sprintf(`
		<p>A new <strong>%s</strong> quote request (#%d) was submitted.</p>
		<div class="info-box">
			Contact: %s<br>
			Company: %s<br>
			Estimate: %s
		</div>
		<p><em>%s</em></p>
	`, kind, quoteID, contact, company, formatCents(estimateCents), message)
	sendAsync([]string{salesEmail}, fmt.Sprintf("New %s quote request #%d", strings.ToLower(kind), quoteID),
		getEmailTemplate("New quote request", body))
}

// SendQuoteReceivedEmail acknowledges a quote request to the customer.
func SendQuoteReceivedEmail(email, name string, quoteID uint) {
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Thanks for your request. Our team will contact you within one business day about quote #%d.</p>
	`, name, quoteID)
	sendAsync([]string{email}, "We received your quote request", getEmailTemplate("Quote request received", body))
}

// SendPasswordResetEmail sends a reset code.
func SendPasswordResetEmail(email, otp string) {
	body := fmt.Sprintf(`
		<p>Use this code to reset your password:</p>
		<h1 style="text-align: center; letter-spacing: 6px;">%s</h1>
		<p>If you did not request a reset, you can ignore this email.</p>
	`, otp)
	sendAsync([]string{email}, "Reset your LiftWorks password", getEmailTemplate("Password reset", body))
}
