// Package provider defines the uniform contract every payment vendor adapter
// implements, the sentinel errors callers branch on, and the registry that
// holds the configured adapters.
//
// Adapters identify vendor customers by e-mail; mapping an application user
// id to an e-mail is the caller's job. Calls on an unconfigured or disabled
// adapter return neutral results (false, empty slices, nil orders) instead
// of failing, so one missing vendor never breaks aggregate status checks.
// The exception is CreateCheckoutURL, which returns ErrNotConfigured.
package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/shipforge/payment-ledger/internal/models"
)

// Known processor ids.
const (
	ProcessorStripe       = "stripe"
	ProcessorLemonSqueezy = "lemonsqueezy"
	ProcessorPolar        = "polar"
)

var (
	// ErrNotConfigured signals a configuration-dependent operation on an
	// adapter whose credentials are missing.
	ErrNotConfigured = errors.New("payment provider is not configured")
	// ErrInvalidSignature signals a webhook whose signature did not verify.
	// The event must be dropped and never processed.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrUnknownProvider signals a request for a provider id the registry
	// does not know.
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// WebhookEvent is a raw vendor webhook delivery: the HTTP headers carrying
// the signature and the unparsed body it signs.
type WebhookEvent struct {
	Headers http.Header
	Body    []byte
}

// PaymentProvider is the uniform façade over one payment vendor.
type PaymentProvider interface {
	// ID returns the processor id stored in the ledger (e.g. "stripe").
	ID() string
	// Name returns the human-readable vendor name.
	Name() string
	// IsConfigured reports whether the vendor credentials are present.
	IsConfigured() bool
	// IsEnabled reports whether the feature flag enables this vendor.
	IsEnabled() bool

	// GetPaymentStatus reports whether any completed order exists at the
	// vendor for the e-mail.
	GetPaymentStatus(ctx context.Context, email string) (bool, error)
	// HasUserPurchasedProduct reports whether a paid order for the product
	// exists at the vendor for the e-mail.
	HasUserPurchasedProduct(ctx context.Context, email, productID string) (bool, error)
	// HasUserActiveSubscription reports whether the vendor has an active
	// subscription for the e-mail.
	HasUserActiveSubscription(ctx context.Context, email string) (bool, error)
	// GetUserPurchasedProducts lists the products the e-mail has purchased.
	GetUserPurchasedProducts(ctx context.Context, email string) ([]models.ProductData, error)

	// GetAllOrders lists every order at the vendor, normalized.
	GetAllOrders(ctx context.Context) ([]models.OrderData, error)
	// GetOrdersByEmail lists the vendor orders for one e-mail.
	GetOrdersByEmail(ctx context.Context, email string) ([]models.OrderData, error)

	// CreateCheckoutURL creates a hosted checkout page and returns its URL.
	CreateCheckoutURL(ctx context.Context, opts models.CheckoutOptions) (string, error)

	// ParseWebhookEvent verifies the event signature and, for completed paid
	// orders, returns the normalized order for reconciliation. It returns
	// (nil, nil) for events the ledger does not care about and
	// ErrInvalidSignature when verification fails.
	ParseWebhookEvent(ctx context.Context, event WebhookEvent) (*models.OrderData, error)
}
