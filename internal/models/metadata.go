package models

import "time"

// LastPaymentInfo records the most recent payment seen for a user during
// reconciliation.
type LastPaymentInfo struct {
	Processor    string    `json:"processor"`
	OrderID      string    `json:"order_id"`
	ProductName  string    `json:"product_name"`
	Amount       float64   `json:"amount"`
	PurchaseDate time.Time `json:"purchase_date"`
}

// UserMetadata is the typed metadata blob stored on a user. Merge rules are
// last-writer-wins per scalar field and union for PaymentSources.
type UserMetadata struct {
	PaymentSources []string         `json:"payment_sources,omitempty"`
	LastPayment    *LastPaymentInfo `json:"last_payment,omitempty"`
	LastImportedAt *time.Time       `json:"last_imported_at,omitempty"`
	Address        map[string]any   `json:"address,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	Custom         map[string]any   `json:"custom,omitempty"`
}

// Merge folds incoming metadata into m. Scalar fields are overwritten when
// the incoming value is set; PaymentSources is a de-duplicated union.
func (m *UserMetadata) Merge(in UserMetadata) {
	if in.LastPayment != nil {
		m.LastPayment = in.LastPayment
	}
	if in.LastImportedAt != nil {
		m.LastImportedAt = in.LastImportedAt
	}
	if in.Address != nil {
		m.Address = in.Address
	}
	if in.Phone != nil {
		m.Phone = in.Phone
	}
	if in.Custom != nil {
		m.Custom = in.Custom
	}
	for _, src := range in.PaymentSources {
		m.AddPaymentSource(src)
	}
}

// AddPaymentSource appends a processor id to PaymentSources if absent.
func (m *UserMetadata) AddPaymentSource(processor string) {
	for _, s := range m.PaymentSources {
		if s == processor {
			return
		}
	}
	m.PaymentSources = append(m.PaymentSources, processor)
}
