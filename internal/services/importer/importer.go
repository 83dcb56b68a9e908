// Package importer reconciles vendor orders into the payment ledger. Batch
// imports pull all orders from a provider; webhook deliveries feed single
// orders through the same reconciliation path, so both converge on the same
// ledger writes.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shipforge/payment-ledger/internal/events"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/metrics"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

// UserRepo is the user storage the importer needs.
type UserRepo interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error)
	RegisterUser(ctx context.Context, user models.User) (string, error)
	UpdateUserImportData(ctx context.Context, userUID string, name, image *string, metadata *models.UserMetadata) error
}

// PaymentRepo is the ledger storage the importer needs.
type PaymentRepo interface {
	FindPaymentByOrderID(ctx context.Context, processor, orderID string) (*models.Payment, bool, error)
	CreatePayment(ctx context.Context, p models.Payment) (int, error)
	UpdatePayment(ctx context.Context, id int, amount int64, status string, userUID *string, metadata *models.PaymentMetadata) error
}

// DeadLetterRepo stores orders that could not be attributed to a user. The
// boolean reports whether the order was newly stored; a re-imported order
// that is already dead-lettered returns false.
type DeadLetterRepo interface {
	SaveUnprocessedOrder(ctx context.Context, order models.OrderData, reason string) (int, bool, error)
}

// Invalidator drops cached payment-status answers after ledger writes.
type Invalidator interface {
	Invalidate(key string) error
}

// Outcome classifies what reconciliation did with one order.
type Outcome int

const (
	// OutcomeImported means a new ledger entry was created.
	OutcomeImported Outcome = iota
	// OutcomeSkipped means the order was already in the ledger or is not
	// paid yet.
	OutcomeSkipped
	// OutcomeDeadLettered means the order carried no e-mail and was stored
	// for manual reconciliation.
	OutcomeDeadLettered
)

// Result reports the effect of reconciling one order.
type Result struct {
	Outcome     Outcome
	UserCreated bool
	PaymentID   int
}

// Importer drives reconciliation for all registered providers.
type Importer struct {
	log         *slog.Logger
	registry    *provider.Registry
	users       UserRepo
	payments    PaymentRepo
	deadLetters DeadLetterRepo
	publisher   *events.Publisher
	cache       Invalidator
}

// New builds the importer. publisher and cache may be nil.
func New(log *slog.Logger, registry *provider.Registry, users UserRepo,
	payments PaymentRepo, deadLetters DeadLetterRepo,
	publisher *events.Publisher, cache Invalidator) *Importer {
	return &Importer{
		log:         log,
		registry:    registry,
		users:       users,
		payments:    payments,
		deadLetters: deadLetters,
		publisher:   publisher,
		cache:       cache,
	}
}

// ImportProvider pulls every order from one provider and reconciles each into
// the ledger. Per-order failures are counted and logged, never abort the run.
func (i *Importer) ImportProvider(ctx context.Context, providerID string) (models.ImportStats, error) {
	const op = "importer.ImportProvider"

	var stats models.ImportStats

	p, ok := i.registry.Get(providerID)
	if !ok {
		return stats, fmt.Errorf("%s: %s: %w", op, providerID, provider.ErrUnknownProvider)
	}
	if !p.IsConfigured() || !p.IsEnabled() {
		return stats, fmt.Errorf("%s: %s: %w", op, providerID, provider.ErrNotConfigured)
	}

	log := i.log.With(slog.String("op", op), slog.String("processor", providerID))
	log.Info("starting import")

	orders, err := p.GetAllOrders(ctx)
	if err != nil {
		return stats, fmt.Errorf("%s: failed to fetch orders: %w", op, err)
	}

	for _, order := range orders {
		stats.Total++

		result, err := i.ReconcileOrder(ctx, order)
		if err != nil {
			stats.Errors++
			metrics.ImportErrors.WithLabelValues(providerID).Inc()
			log.Error("failed to reconcile order",
				slog.String("order_id", order.OrderID), sl.Err(err))
			continue
		}
		if result.UserCreated {
			stats.UsersCreated++
		}
		switch result.Outcome {
		case OutcomeImported:
			stats.Imported++
		case OutcomeSkipped:
			stats.Skipped++
		case OutcomeDeadLettered:
			stats.Errors++
		}
	}

	log.Info("import finished",
		slog.Int("total", stats.Total),
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
		slog.Int("users_created", stats.UsersCreated))

	i.publisher.ImportCompleted(events.ImportCompletedEvent{
		Processor: providerID,
		Stats:     stats,
		Timestamp: time.Now(),
	})
	return stats, nil
}

// ImportAll runs ImportProvider for every enabled provider. A provider whose
// order fetch fails is reported with its partial stats; the others still run.
func (i *Importer) ImportAll(ctx context.Context) map[string]models.ImportStats {
	const op = "importer.ImportAll"

	results := make(map[string]models.ImportStats)
	for _, p := range i.registry.Enabled() {
		stats, err := i.ImportProvider(ctx, p.ID())
		if err != nil {
			i.log.Error("provider import failed",
				slog.String("op", op), slog.String("processor", p.ID()), sl.Err(err))
		}
		results[p.ID()] = stats
	}
	return results
}

// ReconcileOrder folds one normalized vendor order into the ledger:
// unpaid orders are skipped, orders without an e-mail are dead-lettered,
// otherwise the user is found or created, profile metadata is merged and a
// ledger entry is created or corrected. A completed entry never leaves the
// completed status.
func (i *Importer) ReconcileOrder(ctx context.Context, order models.OrderData) (Result, error) {
	const op = "importer.ReconcileOrder"

	if order.Status != models.OrderStatusPaid {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	if order.UserEmail == "" {
		reason := "order has no customer e-mail"
		_, created, err := i.deadLetters.SaveUnprocessedOrder(ctx, order, reason)
		if err != nil {
			return Result{}, fmt.Errorf("%s: failed to dead-letter order: %w", op, err)
		}
		if created {
			i.publisher.OrderDeadLettered(events.DeadLetterEvent{
				Processor: order.Processor,
				OrderID:   order.OrderID,
				Reason:    reason,
				Timestamp: time.Now(),
			})
			i.log.Warn("order without e-mail dead-lettered",
				slog.String("processor", order.Processor),
				slog.String("order_id", order.OrderID))
		}
		return Result{Outcome: OutcomeDeadLettered}, nil
	}

	userUID, userCreated, err := i.resolveUser(ctx, order)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	amount := int64(math.Round(order.Amount * 100))
	metadata := &models.PaymentMetadata{
		ProductName: order.ProductName,
		ProductID:   order.ProductID,
		OrderData:   order.Attributes,
	}

	existing, found, err := i.payments.FindPaymentByOrderID(ctx, order.Processor, order.OrderID)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		needsUpdate := existing.Amount != amount ||
			existing.Status != models.PaymentStatusCompleted ||
			existing.UserUID == nil
		if needsUpdate {
			if err := i.payments.UpdatePayment(ctx, existing.ID, amount,
				models.PaymentStatusCompleted, &userUID, metadata); err != nil {
				return Result{}, fmt.Errorf("%s: %w", op, err)
			}
			i.invalidateStatus(userUID)
		}
		return Result{Outcome: OutcomeSkipped, UserCreated: userCreated, PaymentID: existing.ID}, nil
	}

	paymentID, err := i.payments.CreatePayment(ctx, models.Payment{
		OrderID:          order.OrderID,
		ProcessorOrderID: order.ID,
		UserUID:          &userUID,
		Amount:           amount,
		Status:           models.PaymentStatusCompleted,
		Processor:        order.Processor,
		ProductName:      order.ProductName,
		Metadata:         metadata,
		CreatedAt:        order.PurchaseDate,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	metrics.ImportedPayments.WithLabelValues(order.Processor).Inc()
	i.publisher.PaymentImported(events.PaymentImportedEvent{
		PaymentID: paymentID,
		OrderID:   order.OrderID,
		Processor: order.Processor,
		UserUID:   userUID,
		Amount:    amount,
		Timestamp: time.Now(),
	})
	i.invalidateStatus(userUID)

	return Result{Outcome: OutcomeImported, UserCreated: userCreated, PaymentID: paymentID}, nil
}

// resolveUser finds the user behind the order's e-mail, creating one when
// missing, and merges the order's profile data into the user. Name and image
// already set on the user are never overwritten.
func (i *Importer) resolveUser(ctx context.Context, order models.OrderData) (string, bool, error) {
	user, found, err := i.users.FindUserByEmail(ctx, order.UserEmail)
	if err != nil {
		return "", false, err
	}

	created := false
	if !found {
		newUser := models.User{
			Email:    order.UserEmail,
			Username: order.UserEmail,
			Role:     "user",
		}
		if order.UserName != "" {
			name := order.UserName
			newUser.Name = &name
		}
		uid, err := i.users.RegisterUser(ctx, newUser)
		if err != nil {
			return "", false, fmt.Errorf("failed to create user for order: %w", err)
		}
		user = &newUser
		user.UID = uid
		created = true
		i.log.Info("created user from imported order",
			slog.String("processor", order.Processor),
			slog.String("order_id", order.OrderID))
	}

	merged := models.UserMetadata{}
	if user.Metadata != nil {
		merged = *user.Metadata
	}
	merged.AddPaymentSource(order.Processor)

	now := time.Now()
	merged.LastImportedAt = &now
	if merged.LastPayment == nil || order.PurchaseDate.After(merged.LastPayment.PurchaseDate) {
		merged.LastPayment = &models.LastPaymentInfo{
			Processor:    order.Processor,
			OrderID:      order.OrderID,
			ProductName:  order.ProductName,
			Amount:       order.Amount,
			PurchaseDate: order.PurchaseDate,
		}
	}

	var name, image *string
	if enhanced := order.EnhancedUser; enhanced != nil {
		merged.Merge(models.UserMetadata{
			Address: enhanced.Address,
			Phone:   enhanced.Phone,
			Custom:  enhanced.Custom,
		})
		if user.Image == nil {
			image = enhanced.Image
		}
	}
	if user.Name == nil && order.UserName != "" {
		n := order.UserName
		name = &n
	}

	if err := i.users.UpdateUserImportData(ctx, user.UID, name, image, &merged); err != nil {
		return "", false, fmt.Errorf("failed to update user import data: %w", err)
	}
	return user.UID, created, nil
}

func (i *Importer) invalidateStatus(userUID string) {
	if i.cache == nil {
		return
	}
	if err := i.cache.Invalidate("payment_status:" + userUID); err != nil {
		i.log.Warn("failed to invalidate payment status cache",
			slog.String("user_uid", userUID), sl.Err(err))
	}
}
