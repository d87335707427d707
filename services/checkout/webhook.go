package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"liftworks/logger"
	"liftworks/metrics"
	"liftworks/models"
	"liftworks/models/catalog"
	"liftworks/models/training"
	"liftworks/services/seats"
	"liftworks/utils"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// DefaultTolerance bounds the age of a signed webhook.
const DefaultTolerance = 5 * time.Minute

// Payment event types.
const (
	EventCompleted = "checkout.session.completed"
	EventExpired   = "checkout.session.expired"
)

// Webhook outcomes.
const (
	OutcomeFulfilled = "fulfilled"
	OutcomeDuplicate = "duplicate"
	OutcomeCancelled = "cancelled"
	OutcomeIgnored   = "ignored"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrBadSignature     = errors.New("webhook signature mismatch")
	ErrStaleSignature   = errors.New("webhook signature timestamp outside tolerance")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

// Sign builds a signature header for body at t.
func Sign(body []byte, secret string, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return "t=" + ts + ",v1=" + digest(ts, body, secret)
}

func digest(ts string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a "t=<unix>,v1=<hex>" header. Any v1 entry may match.
func VerifySignature(header string, body []byte, secret string, now time.Time, tolerance time.Duration) error {
	if header == "" || secret == "" {
		return ErrMissingSignature
	}

	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return ErrMissingSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	age := now.Sub(time.Unix(unix, 0))
	if age < -tolerance || age > tolerance {
		return ErrStaleSignature
	}

	expected := []byte(digest(ts, body, secret))
	for _, sig := range sigs {
		if hmac.Equal(expected, []byte(strings.ToLower(sig))) {
			return nil
		}
	}
	return ErrBadSignature
}

// HandleWebhook verifies and applies a signed payment event.
func (s *Service) HandleWebhook(header string, body []byte) (string, error) {
	if err := VerifySignature(header, body, s.webhookSecret, s.now(), s.tolerance); err != nil {
		return "", err
	}
	return s.HandleEvent(body)
}

// HandleEvent applies an already verified event.
func (s *Service) HandleEvent(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", ErrMalformedEvent
	}
	event := gjson.ParseBytes(body)
	kind := event.Get("type").String()
	number := event.Get("data.object.metadata.order_number").String()
	if number == "" {
		number = event.Get("data.object.client_reference_id").String()
	}

	switch kind {
	case EventCompleted:
		if number == "" {
			return "", ErrMalformedEvent
		}
		return s.Fulfil(number, event.Get("data.object.id").String())
	case EventExpired:
		if number == "" {
			return "", ErrMalformedEvent
		}
		return s.cancelPending(number)
	default:
		logger.Log.Debugw("webhook ignored", "type", kind)
		return OutcomeIgnored, nil
	}
}

// Fulfil marks a pending order paid and delivers what it bought. A second call for
// the same order is a no-op.
func (s *Service) Fulfil(number, sessionID string) (string, error) {
	order, err := s.Find(number)
	if err != nil {
		return "", err
	}
	if order.Status != catalog.OrderPending {
		logger.Log.Infow("webhook replay", "number", number, "status", order.Status)
		return OutcomeDuplicate, nil
	}

	now := s.now()
	duplicate := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":       catalog.OrderPaid,
			"paid_at":      now,
			"fulfilled_at": now,
		}
		if sessionID != "" {
			updates["payment_session_id"] = sessionID
		}
		res := tx.Model(&catalog.Order{}).
			Where("id = ? AND status = ?", order.ID, catalog.OrderPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			duplicate = true
			return nil
		}

		for _, item := range order.Items {
			if err := s.deliver(tx, order, item, now); err != nil {
				return fmt.Errorf("deliver %s: %w", item.SKU, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fulfil order %s: %w", number, err)
	}
	if duplicate {
		return OutcomeDuplicate, nil
	}

	metrics.RecordOrder(catalog.OrderPaid)
	logger.Log.Infow("order fulfilled", "number", number, "items", len(order.Items))

	var buyer models.User
	if err := s.db.First(&buyer, order.UserID).Error; err == nil {
		utils.SendOrderConfirmationEmail(buyer.Email, buyer.Name, order.Number, order.TotalCents)
	}
	return OutcomeFulfilled, nil
}

func (s *Service) deliver(tx *gorm.DB, order *catalog.Order, item catalog.OrderItem, now time.Time) error {
	switch item.Kind {
	case catalog.ItemPart:
		if item.PartID == nil {
			return nil
		}
		return tx.Model(&catalog.Part{}).Where("id = ?", *item.PartID).
			Update("stock_qty", gorm.Expr("CASE WHEN stock_qty >= ? THEN stock_qty - ? ELSE 0 END", item.Quantity, item.Quantity)).
			Error
	case catalog.ItemSeats:
		if item.OrgID == nil || item.CourseID == nil {
			return nil
		}
		_, err := seats.AllocateSeats(tx, *item.OrgID, *item.CourseID, item.Quantity)
		return err
	case catalog.ItemCourse:
		if item.CourseID == nil {
			return nil
		}
		return enrollBuyer(tx, order.UserID, *item.CourseID)
	}
	return nil
}

func enrollBuyer(tx *gorm.DB, userID, courseID uint) error {
	var existing int64
	if err := tx.Model(&training.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var modules int64
	if err := tx.Model(&training.Module{}).
		Where("course_id = ? AND is_deleted = ?", courseID, false).Count(&modules).Error; err != nil {
		return err
	}
	return tx.Create(&training.Enrollment{
		UserID:       userID,
		CourseID:     courseID,
		Source:       training.SourcePurchase,
		Status:       training.EnrollmentEnrolled,
		TotalModules: int(modules),
	}).Error
}

func (s *Service) cancelPending(number string) (string, error) {
	now := s.now()
	res := s.db.Model(&catalog.Order{}).
		Where("number = ? AND status = ?", number, catalog.OrderPending).
		Updates(map[string]interface{}{"status": catalog.OrderCancelled, "cancelled_at": now})
	if res.Error != nil {
		return "", fmt.Errorf("cancel order %s: %w", number, res.Error)
	}
	if res.RowsAffected == 0 {
		return OutcomeIgnored, nil
	}
	metrics.RecordOrder(catalog.OrderCancelled)
	return OutcomeCancelled, nil
}
