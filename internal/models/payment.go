package models

import "time"

// Payment statuses. Completed is terminal: reconciliation may correct the
// amount or metadata of a completed payment but never reverts its status.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment is one ledger entry for a processed vendor order. At most one
// payment exists per (processor, order id) pair; the importer enforces this
// with a find-or-update check before insert.
type Payment struct {
	ID               int
	OrderID          string           // Vendor-native order identifier
	ProcessorOrderID string           // Raw vendor id; may equal OrderID
	UserUID          *string          // Owning user, nil until resolved
	Amount           int64            // Minor currency units
	Status           string           // pending | completed | failed
	Processor        string           // stripe | lemonsqueezy | polar
	ProductName      string
	Metadata         *PaymentMetadata
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PaymentMetadata carries the normalized order attributes stored alongside a
// ledger entry, so access checks do not need to call the vendor again.
type PaymentMetadata struct {
	ProductName string         `json:"product_name,omitempty"`
	ProductID   string         `json:"product_id,omitempty"`
	OrderData   map[string]any `json:"order_data,omitempty"`
}

// DeadLetterOrder is a vendor order the importer could not attribute to a
// user. Stored for manual reconciliation instead of being dropped.
type DeadLetterOrder struct {
	ID        int
	Processor string
	OrderID   string
	Reason    string
	Payload   map[string]any
	CreatedAt time.Time
}
