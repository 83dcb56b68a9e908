package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipforge/payment-ledger/internal/models"
)

type fakeProvider struct {
	id         string
	configured bool
	enabled    bool
}

func (f *fakeProvider) ID() string         { return f.id }
func (f *fakeProvider) Name() string       { return f.id }
func (f *fakeProvider) IsConfigured() bool { return f.configured }
func (f *fakeProvider) IsEnabled() bool    { return f.enabled }

func (f *fakeProvider) GetPaymentStatus(context.Context, string) (bool, error) { return false, nil }
func (f *fakeProvider) HasUserPurchasedProduct(context.Context, string, string) (bool, error) {
	return false, nil
}
func (f *fakeProvider) HasUserActiveSubscription(context.Context, string) (bool, error) {
	return false, nil
}
func (f *fakeProvider) GetUserPurchasedProducts(context.Context, string) ([]models.ProductData, error) {
	return nil, nil
}
func (f *fakeProvider) GetAllOrders(context.Context) ([]models.OrderData, error) { return nil, nil }
func (f *fakeProvider) GetOrdersByEmail(context.Context, string) ([]models.OrderData, error) {
	return nil, nil
}
func (f *fakeProvider) CreateCheckoutURL(context.Context, models.CheckoutOptions) (string, error) {
	return "", nil
}
func (f *fakeProvider) ParseWebhookEvent(context.Context, WebhookEvent) (*models.OrderData, error) {
	return nil, nil
}

func TestRegistryGet(t *testing.T) {
	stripe := &fakeProvider{id: ProcessorStripe, configured: true, enabled: true}
	registry := NewRegistry(stripe)

	got, ok := registry.Get(ProcessorStripe)
	require.True(t, ok)
	assert.Equal(t, stripe, got)

	_, ok = registry.Get("unknown")
	assert.False(t, ok)
}

func TestRegistryEnabled(t *testing.T) {
	cases := []struct {
		name      string
		providers []PaymentProvider
		wantIDs   []string
	}{
		{
			name: "all ready",
			providers: []PaymentProvider{
				&fakeProvider{id: ProcessorStripe, configured: true, enabled: true},
				&fakeProvider{id: ProcessorPolar, configured: true, enabled: true},
			},
			wantIDs: []string{ProcessorStripe, ProcessorPolar},
		},
		{
			name: "unconfigured excluded",
			providers: []PaymentProvider{
				&fakeProvider{id: ProcessorStripe, configured: false, enabled: true},
				&fakeProvider{id: ProcessorLemonSqueezy, configured: true, enabled: true},
			},
			wantIDs: []string{ProcessorLemonSqueezy},
		},
		{
			name: "disabled excluded",
			providers: []PaymentProvider{
				&fakeProvider{id: ProcessorStripe, configured: true, enabled: false},
			},
			wantIDs: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			registry := NewRegistry(tc.providers...)

			var ids []string
			for _, p := range registry.Enabled() {
				ids = append(ids, p.ID())
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestRegistryPreservesOrder(t *testing.T) {
	registry := NewRegistry(
		&fakeProvider{id: ProcessorPolar, configured: true, enabled: true},
		&fakeProvider{id: ProcessorStripe, configured: true, enabled: true},
		&fakeProvider{id: ProcessorLemonSqueezy, configured: true, enabled: true},
	)

	var ids []string
	for _, p := range registry.Enabled() {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{ProcessorPolar, ProcessorStripe, ProcessorLemonSqueezy}, ids)
}
