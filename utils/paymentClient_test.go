package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"liftworks/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentClientDisabledWithoutKey(t *testing.T) {
	client := NewPaymentClient(config.Defaults())
	assert.Nil(t, client)

	_, err := client.CreateCheckoutSession(CheckoutRequest{OrderNumber: "LWO-1"})
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestCreateCheckoutSession(t *testing.T) {
	var form map[string][]string
	var user, idem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		user, _, _ = r.BasicAuth()
		idem = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://pay.example/cs_test_1"}`))
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.PaymentApiURL = srv.URL + "/"
	cfg.PaymentSecretKey = "sk_test"

	session, err := NewPaymentClient(cfg).CreateCheckoutSession(CheckoutRequest{
		OrderNumber:   "LWO-260504-ABCD1234",
		CustomerEmail: "buyer@example.com",
		Lines:         []CheckoutLine{{Name: "36V charger", UnitPriceCents: 10000, Quantity: 2}},
		TaxCents:      1650,
		ShippingCents: 1495,
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://pay.example/cs_test_1", session.URL)
	assert.Equal(t, "sk_test", user)
	assert.Equal(t, "checkout-LWO-260504-ABCD1234", idem)
	assert.Equal(t, "LWO-260504-ABCD1234", form["metadata[order_number]"][0])
	assert.Equal(t, "10000", form["line_items[0][price_data][unit_amount]"][0])
	assert.Equal(t, "2", form["line_items[0][quantity]"][0])
	assert.Equal(t, "Sales tax", form["line_items[1][price_data][product_data][name]"][0])
	assert.Equal(t, "1495", form["line_items[2][price_data][unit_amount]"][0])
}

func TestCreateCheckoutSessionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid currency"}}`))
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.PaymentApiURL = srv.URL
	cfg.PaymentSecretKey = "sk_test"

	_, err := NewPaymentClient(cfg).CreateCheckoutSession(CheckoutRequest{OrderNumber: "LWO-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid currency")
}
