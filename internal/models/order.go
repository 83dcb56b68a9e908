package models

import "time"

// Vendor order statuses after normalization. Every adapter maps its native
// status vocabulary onto these three.
const (
	OrderStatusPaid     = "paid"
	OrderStatusPending  = "pending"
	OrderStatusRefunded = "refunded"
)

// OrderData is a vendor order normalized to a processor-independent shape.
// Amount is in major currency units as vendors report it; the importer
// converts to minor units when writing the ledger.
type OrderData struct {
	ID           string         // Adapter-internal id, usually equals OrderID
	OrderID      string         // Vendor-native order identifier
	UserEmail    string         // Empty when the vendor has no e-mail on file
	UserName     string
	Amount       float64        // Major currency units
	Status       string         // paid | pending | refunded
	ProductName  string
	ProductID    string
	PurchaseDate time.Time
	Processor    string
	Attributes   map[string]any // Processor-specific attribute bag
	EnhancedUser *EnhancedUserData
}

// EnhancedUserData is extra profile information some vendors attach to an
// order (LemonSqueezy and Polar expose address and phone, Stripe exposes
// customer details). Merged into the user's metadata without clobbering
// fields that are already set.
type EnhancedUserData struct {
	Image   *string        `json:"image,omitempty"`
	Address map[string]any `json:"address,omitempty"`
	Phone   *string        `json:"phone,omitempty"`
	Custom  map[string]any `json:"custom,omitempty"`
}

// ProductData describes one product a user has purchased at a vendor.
type ProductData struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Price          *float64       `json:"price,omitempty"`
	Description    string         `json:"description,omitempty"`
	IsSubscription bool           `json:"is_subscription"`
	Provider       string         `json:"provider"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// CheckoutOptions are the caller-supplied parameters for checkout URL
// creation. SuccessURL and CancelURL fall back to configured defaults.
type CheckoutOptions struct {
	ProductID  string
	Email      string
	UserUID    string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// ImportStats is the aggregate report of one provider's import run.
type ImportStats struct {
	Total        int `json:"total"`
	Imported     int `json:"imported"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
	UsersCreated int `json:"users_created"`
}
