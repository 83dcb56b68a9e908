// Package metrics defines the Prometheus collectors for imports and webhook
// traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportedPayments counts ledger entries created by reconciliation,
	// labeled by processor.
	ImportedPayments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_ledger_imported_payments_total",
		Help: "Number of payments imported into the ledger.",
	}, []string{"processor"})

	// ImportErrors counts per-order failures during batch import.
	ImportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_ledger_import_errors_total",
		Help: "Number of per-order errors during import.",
	}, []string{"processor"})

	// WebhookEvents counts incoming webhook deliveries by processor and
	// outcome (processed, ignored, invalid_signature, error).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_ledger_webhook_events_total",
		Help: "Number of webhook events received.",
	}, []string{"processor", "outcome"})
)
