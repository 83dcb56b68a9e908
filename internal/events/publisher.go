// Package events publishes import lifecycle messages to RabbitMQ. The
// publisher is optional: a nil publisher silently drops events, so the
// importer works without a broker.
package events

import (
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/shipforge/payment-ledger/internal/lib/rabbitmq"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/models"
)

// Routing keys on the payments exchange.
const (
	RoutingKeyPaymentImported = "payment.imported"
	RoutingKeyOrderDeadLetter = "order.deadletter"
	RoutingKeyImportCompleted = "import.completed"
)

// Queues lists the queue bindings the publisher declares on startup.
var Queues = []rabbitmq.QueueConfig{
	{QueueName: "payment_imported", RoutingKey: RoutingKeyPaymentImported},
	{QueueName: "order_deadletter", RoutingKey: RoutingKeyOrderDeadLetter},
	{QueueName: "import_completed", RoutingKey: RoutingKeyImportCompleted},
}

// Publisher sends payment events to the payments exchange. Publish failures
// are logged, never propagated; event delivery is best-effort.
type Publisher struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New wraps an open channel. Both arguments may come from rabbitmq.Connect
// and rabbitmq.SetupChannel.
func New(ch *amqp.Channel, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, log: log}
}

// PaymentImportedEvent announces one new or updated ledger entry.
type PaymentImportedEvent struct {
	PaymentID int       `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Processor string    `json:"processor"`
	UserUID   string    `json:"user_uid,omitempty"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// DeadLetterEvent announces an order that could not be attributed.
type DeadLetterEvent struct {
	Processor string    `json:"processor"`
	OrderID   string    `json:"order_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportCompletedEvent announces the end of one provider import run.
type ImportCompletedEvent struct {
	Processor string             `json:"processor"`
	Stats     models.ImportStats `json:"stats"`
	Timestamp time.Time          `json:"timestamp"`
}

// PaymentImported publishes a payment.imported event.
func (p *Publisher) PaymentImported(event PaymentImportedEvent) {
	p.publish(RoutingKeyPaymentImported, event)
}

// OrderDeadLettered publishes an order.deadletter event.
func (p *Publisher) OrderDeadLettered(event DeadLetterEvent) {
	p.publish(RoutingKeyOrderDeadLetter, event)
}

// ImportCompleted publishes an import.completed event.
func (p *Publisher) ImportCompleted(event ImportCompletedEvent) {
	p.publish(RoutingKeyImportCompleted, event)
}

func (p *Publisher) publish(routingKey string, message any) {
	if p == nil || p.ch == nil {
		return
	}
	if err := rabbitmq.PublishMessage(p.ch, routingKey, message); err != nil {
		p.log.Error("failed to publish event",
			slog.String("routing_key", routingKey), sl.Err(err))
	}
}
