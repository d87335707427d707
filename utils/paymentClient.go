package utils

import (
	"errors"
	"fmt"
	"liftworks/config"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// ErrPaymentsDisabled is returned when no PAYMENT_SECRET_KEY is configured.
var ErrPaymentsDisabled = errors.New("payment processor is not configured")

// CheckoutLine is one line sent to the hosted checkout page.
type CheckoutLine struct {
	Name           string
	UnitPriceCents int64
	Quantity       int
}

// CheckoutRequest describes a hosted checkout session.
type CheckoutRequest struct {
	OrderNumber   string
	CustomerEmail string
	Lines         []CheckoutLine
	TaxCents      int64
	ShippingCents int64
}

// CheckoutSession is the processor's reply.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentClient talks to a Stripe-compatible checkout API.
type PaymentClient struct {
	http    *resty.Client
	baseURL string
}

// NewPaymentClient returns nil when payments are not configured.
func NewPaymentClient(cfg *config.Config) *PaymentClient {
	if cfg.PaymentSecretKey == "" {
		return nil
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.PaymentApiURL, "/")).
		SetBasicAuth(cfg.PaymentSecretKey, "").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &PaymentClient{http: client, baseURL: cfg.PublicBaseURL}
}

// CreateCheckoutSession opens a hosted checkout for an order. The order number
// travels in metadata so the webhook can find the order again.
func (p *PaymentClient) CreateCheckoutSession(req CheckoutRequest) (*CheckoutSession, error) {
	if p == nil {
		return nil, ErrPaymentsDisabled
	}

	form := map[string]string{
		"mode":                      "payment",
		"client_reference_id":       req.OrderNumber,
		"metadata[order_number]":    req.OrderNumber,
		"success_url":               p.baseURL + "/orders/" + req.OrderNumber + "?paid=1",
		"cancel_url":                p.baseURL + "/checkout?cancelled=" + req.OrderNumber,
		"payment_intent_data[metadata][order_number]": req.OrderNumber,
	}
	if req.CustomerEmail != "" {
		form["customer_email"] = req.CustomerEmail
	}

	lines := append([]CheckoutLine{}, req.Lines...)
	if req.TaxCents > 0 {
		lines = append(lines, CheckoutLine{Name: "Sales tax", UnitPriceCents: req.TaxCents, Quantity: 1})
	}
	if req.ShippingCents > 0 {
		lines = append(lines, CheckoutLine{Name: "Shipping", UnitPriceCents: req.ShippingCents, Quantity: 1})
	}
	for i, l := range lines {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form[prefix+"[quantity]"] = strconv.Itoa(l.Quantity)
		form[prefix+"[price_data][currency]"] = "usd"
		form[prefix+"[price_data][unit_amount]"] = strconv.FormatInt(l.UnitPriceCents, 10)
		form[prefix+"[price_data][product_data][name]"] = l.Name
	}

	resp, err := p.http.R().
		SetHeader("Idempotency-Key", "checkout-"+req.OrderNumber).
		SetFormData(form).
		Post("/checkout/sessions")
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if resp.IsError() {
		msg := gjson.GetBytes(resp.Body(), "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("create checkout session: %s", msg)
	}

	body := resp.Body()
	session := &CheckoutSession{
		ID:  gjson.GetBytes(body, "id").String(),
		URL: gjson.GetBytes(body, "url").String(),
	}
	if session.ID == "" || session.URL == "" {
		return nil, errors.New("create checkout session: response missing id or url")
	}
	return session, nil
}
