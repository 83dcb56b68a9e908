package lemonsqueezy

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipforge/payment-ledger/internal/config"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p := New(config.LemonSqueezyConfig{
		Enabled:       true,
		APIKey:        "ls_test_key",
		StoreID:       "123",
		WebhookSecret: "ls_whsec",
	}, config.CheckoutConfig{SuccessURL: "http://localhost/success"}, discardLogger())
	if baseURL != "" {
		p.baseURL = baseURL
	}
	return p
}

const ordersPage = `{
	"data": [
		{
			"type": "orders",
			"id": "1",
			"attributes": {
				"identifier": "ord-abc",
				"order_number": 42,
				"user_name": "Buyer One",
				"user_email": "buyer@example.com",
				"status": "paid",
				"total": 2999,
				"currency": "USD",
				"created_at": "2024-01-15T10:30:00Z",
				"first_order_item": {
					"product_id": 77,
					"variant_id": 88,
					"product_name": "Starter Kit"
				}
			}
		},
		{
			"type": "orders",
			"id": "2",
			"attributes": {
				"identifier": "ord-def",
				"user_email": "other@example.com",
				"status": "refunded",
				"total": 1000
			}
		}
	],
	"meta": {"page": {"currentPage": 1, "lastPage": 1}}
}`

func TestGetAllOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "Bearer ls_test_key", r.Header.Get("Authorization"))
		assert.Equal(t, "123", r.URL.Query().Get("filter[store_id]"))
		w.Write([]byte(ordersPage))
	}))
	defer server.Close()

	p := testProvider(t, server.URL)

	orders, err := p.GetAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "ord-abc", orders[0].OrderID)
	assert.Equal(t, "buyer@example.com", orders[0].UserEmail)
	assert.InDelta(t, 29.99, orders[0].Amount, 0.0001)
	assert.Equal(t, models.OrderStatusPaid, orders[0].Status)
	assert.Equal(t, "Starter Kit", orders[0].ProductName)
	assert.Equal(t, "77", orders[0].ProductID)
	assert.Equal(t, provider.ProcessorLemonSqueezy, orders[0].Processor)

	assert.Equal(t, models.OrderStatusRefunded, orders[1].Status)
}

func TestGetPaymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "buyer@example.com", r.URL.Query().Get("filter[user_email]"))
		w.Write([]byte(ordersPage))
	}))
	defer server.Close()

	p := testProvider(t, server.URL)

	paid, err := p.GetPaymentStatus(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.True(t, paid)
}

func TestCreateCheckoutURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkouts", r.URL.Path)
		w.Write([]byte(`{"data": {"type": "checkouts", "id": "chk-1", "attributes": {"url": "https://store.lemonsqueezy.com/checkout/custom/abc"}}}`))
	}))
	defer server.Close()

	p := testProvider(t, server.URL)

	url, err := p.CreateCheckoutURL(context.Background(), models.CheckoutOptions{
		ProductID: "88",
		Email:     "buyer@example.com",
		UserUID:   "uid-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://store.lemonsqueezy.com/checkout/custom/abc", url)
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseWebhookEvent(t *testing.T) {
	p := testProvider(t, "")

	body := []byte(`{
		"meta": {"event_name": "order_created"},
		"data": {
			"type": "orders",
			"id": "10",
			"attributes": {
				"identifier": "ord-xyz",
				"user_email": "hook@example.com",
				"status": "paid",
				"total": 500
			}
		}
	}`)
	headers := http.Header{}
	headers.Set("X-Signature", signBody(body, "ls_whsec"))

	order, err := p.ParseWebhookEvent(context.Background(), provider.WebhookEvent{
		Headers: headers,
		Body:    body,
	})
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "ord-xyz", order.OrderID)
	assert.Equal(t, "hook@example.com", order.UserEmail)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
}

func TestParseWebhookEvent_InvalidSignature(t *testing.T) {
	p := testProvider(t, "")

	body := []byte(`{"meta": {"event_name": "order_created"}}`)
	headers := http.Header{}
	headers.Set("X-Signature", signBody(body, "other_secret"))

	order, err := p.ParseWebhookEvent(context.Background(), provider.WebhookEvent{
		Headers: headers,
		Body:    body,
	})
	require.ErrorIs(t, err, provider.ErrInvalidSignature)
	assert.Nil(t, order)
}

func TestParseWebhookEvent_UnpaidOrderIgnored(t *testing.T) {
	p := testProvider(t, "")

	body := []byte(`{
		"meta": {"event_name": "order_created"},
		"data": {"type": "orders", "id": "11", "attributes": {"status": "pending", "total": 100}}
	}`)
	headers := http.Header{}
	headers.Set("X-Signature", signBody(body, "ls_whsec"))

	order, err := p.ParseWebhookEvent(context.Background(), provider.WebhookEvent{
		Headers: headers,
		Body:    body,
	})
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestNeutralResultsWhenNotConfigured(t *testing.T) {
	p := New(config.LemonSqueezyConfig{Enabled: true}, config.CheckoutConfig{}, discardLogger())

	paid, err := p.GetPaymentStatus(context.Background(), "x@example.com")
	require.NoError(t, err)
	assert.False(t, paid)

	_, err = p.CreateCheckoutURL(context.Background(), models.CheckoutOptions{ProductID: "88"})
	require.ErrorIs(t, err, provider.ErrNotConfigured)
}
