package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMetadata_Merge(t *testing.T) {
	now := time.Now()
	phone := "+1234567890"

	base := UserMetadata{
		PaymentSources: []string{"stripe"},
		LastPayment: &LastPaymentInfo{
			Processor: "stripe",
			OrderID:   "old",
		},
	}

	base.Merge(UserMetadata{
		PaymentSources: []string{"stripe", "polar"},
		LastPayment: &LastPaymentInfo{
			Processor: "polar",
			OrderID:   "new",
		},
		LastImportedAt: &now,
		Phone:          &phone,
	})

	assert.Equal(t, []string{"stripe", "polar"}, base.PaymentSources)
	require.NotNil(t, base.LastPayment)
	assert.Equal(t, "new", base.LastPayment.OrderID)
	require.NotNil(t, base.LastImportedAt)
	assert.Equal(t, now, *base.LastImportedAt)
	require.NotNil(t, base.Phone)
	assert.Equal(t, phone, *base.Phone)
}

func TestUserMetadata_MergeKeepsExistingWhenIncomingEmpty(t *testing.T) {
	importedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	phone := "+1987654321"

	base := UserMetadata{
		PaymentSources: []string{"lemonsqueezy"},
		LastPayment:    &LastPaymentInfo{OrderID: "ls-1"},
		LastImportedAt: &importedAt,
		Phone:          &phone,
		Address:        map[string]any{"country": "DE"},
	}

	base.Merge(UserMetadata{})

	assert.Equal(t, []string{"lemonsqueezy"}, base.PaymentSources)
	require.NotNil(t, base.LastPayment)
	assert.Equal(t, "ls-1", base.LastPayment.OrderID)
	assert.Equal(t, importedAt, *base.LastImportedAt)
	assert.Equal(t, phone, *base.Phone)
	assert.Equal(t, "DE", base.Address["country"])
}

func TestUserMetadata_AddPaymentSource(t *testing.T) {
	var md UserMetadata

	md.AddPaymentSource("stripe")
	md.AddPaymentSource("polar")
	md.AddPaymentSource("stripe")

	assert.Equal(t, []string{"stripe", "polar"}, md.PaymentSources)
}
