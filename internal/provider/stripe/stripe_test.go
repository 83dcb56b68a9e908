package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipforge/payment-ledger/internal/config"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProvider(t *testing.T) *Provider {
	t.Helper()
	return New(config.StripeConfig{
		Enabled:       true,
		APIKey:        "sk_test_123",
		WebhookSecret: "whsec_test",
	}, config.CheckoutConfig{}, discardLogger())
}

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestSessionToOrder(t *testing.T) {
	p := testProvider(t)

	session := &stripego.CheckoutSession{
		ID:            "cs_test_1",
		AmountTotal:   4999,
		Currency:      stripego.CurrencyUSD,
		PaymentStatus: stripego.CheckoutSessionPaymentStatusPaid,
		Created:       1700000000,
		CustomerDetails: &stripego.CheckoutSessionCustomerDetails{
			Email: "buyer@example.com",
			Name:  "Buyer One",
			Phone: "+15550001111",
		},
		LineItems: &stripego.LineItemList{
			Data: []*stripego.LineItem{{
				Description: "Pro Plan",
				Price:       &stripego.Price{ID: "price_123"},
			}},
		},
	}

	order := p.sessionToOrder(session)

	assert.Equal(t, "cs_test_1", order.OrderID)
	assert.Equal(t, "buyer@example.com", order.UserEmail)
	assert.Equal(t, "Buyer One", order.UserName)
	assert.InDelta(t, 49.99, order.Amount, 0.0001)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "Pro Plan", order.ProductName)
	assert.Equal(t, "price_123", order.ProductID)
	assert.Equal(t, provider.ProcessorStripe, order.Processor)
	require.NotNil(t, order.EnhancedUser)
	require.NotNil(t, order.EnhancedUser.Phone)
	assert.Equal(t, "+15550001111", *order.EnhancedUser.Phone)
}

func TestSessionToOrder_Unpaid(t *testing.T) {
	p := testProvider(t)

	order := p.sessionToOrder(&stripego.CheckoutSession{
		ID:            "cs_test_2",
		AmountTotal:   1000,
		PaymentStatus: stripego.CheckoutSessionPaymentStatusUnpaid,
	})

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Nil(t, order.EnhancedUser)
}

func TestParseWebhookEvent(t *testing.T) {
	p := testProvider(t)

	body := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_3",
			"amount_total": 2500,
			"payment_status": "paid",
			"customer_details": {"email": "buyer@example.com", "name": "Buyer"}
		}}
	}`)
	headers := http.Header{}
	headers.Set("Stripe-Signature", signPayload(body, "whsec_test", time.Now()))

	order, err := p.ParseWebhookEvent(context.Background(), provider.WebhookEvent{
		Headers: headers,
		Body:    body,
	})
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "cs_test_3", order.OrderID)
	assert.Equal(t, "buyer@example.com", order.UserEmail)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
}

func TestParseWebhookEvent_InvalidSignature(t *testing.T) {
	p := testProvider(t)

	body := []byte(`{"type": "checkout.session.completed"}`)
	headers := http.Header{}
	headers.Set("Stripe-Signature", signPayload(body, "wrong_secret", time.Now()))

	order, err := p.ParseWebhookEvent(context.Background(), provider.WebhookEvent{
		Headers: headers,
		Body:    body,
	})
	require.ErrorIs(t, err, provider.ErrInvalidSignature)
	assert.Nil(t, order)
}

func TestParseWebhookEvent_IgnoredEventType(t *testing.T) {
	p := testProvider(t)

	body := []byte(`{"id": "evt_2", "type": "invoice.created", "data": {"object": {}}}`)
	headers := http.Header{}
	headers.Set("Stripe-Signature", signPayload(body, "whsec_test", time.Now()))

	order, err := p.ParseWebhookEvent(context.Background(), provider.WebhookEvent{
		Headers: headers,
		Body:    body,
	})
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestParseWebhookEvent_NotConfigured(t *testing.T) {
	p := New(config.StripeConfig{Enabled: true}, config.CheckoutConfig{}, discardLogger())

	order, err := p.ParseWebhookEvent(context.Background(), provider.WebhookEvent{
		Headers: http.Header{},
		Body:    []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestNeutralResultsWhenDisabled(t *testing.T) {
	p := New(config.StripeConfig{Enabled: false, APIKey: "sk_test"}, config.CheckoutConfig{}, discardLogger())

	paid, err := p.GetPaymentStatus(context.Background(), "x@example.com")
	require.NoError(t, err)
	assert.False(t, paid)

	orders, err := p.GetAllOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = p.CreateCheckoutURL(context.Background(), models.CheckoutOptions{ProductID: "price_1"})
	require.ErrorIs(t, err, provider.ErrNotConfigured)
}
