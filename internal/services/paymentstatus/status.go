// Package paymentstatus answers access questions: has this user paid, for
// which product, do they hold an active subscription. The local ledger is
// authoritative; vendors are consulted as a fallthrough so a payment that
// has not been imported yet still unlocks access.
package paymentstatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

// ErrUserNotFound signals an unknown user UID.
var ErrUserNotFound = errors.New("user not found")

const statusCacheTTL = 5 * time.Minute

// Repo is the storage the status service reads.
type Repo interface {
	GetUser(ctx context.Context, userUID string) (*models.User, bool, error)
	HasCompletedPayment(ctx context.Context, userUID string) (bool, error)
	HasCompletedPaymentForProduct(ctx context.Context, userUID, productID string) (bool, error)
	ListPaymentsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Payment, error)
}

// StatusCache is the cache-aside store for paid/unpaid answers.
type StatusCache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Service aggregates the ledger and the vendor adapters.
type Service struct {
	log      *slog.Logger
	repo     Repo
	registry *provider.Registry
	cache    StatusCache
}

// New builds the status service. cache may be nil.
func New(log *slog.Logger, repo Repo, registry *provider.Registry, cache StatusCache) *Service {
	return &Service{log: log, repo: repo, registry: registry, cache: cache}
}

func statusCacheKey(userUID string) string { return "payment_status:" + userUID }

// GetPaymentStatus reports whether the user has any completed payment,
// checking the ledger first and falling through to every enabled vendor.
// One vendor failing is logged and treated as "no payment there".
func (s *Service) GetPaymentStatus(ctx context.Context, userUID string) (bool, error) {
	const op = "paymentstatus.GetPaymentStatus"

	if s.cache != nil {
		var cached bool
		if found, err := s.cache.Get(statusCacheKey(userUID), &cached); err != nil {
			s.log.Warn("payment status cache read failed", sl.Err(err))
		} else if found {
			return cached, nil
		}
	}

	user, err := s.getUser(ctx, op, userUID)
	if err != nil {
		return false, err
	}

	paid, err := s.repo.HasCompletedPayment(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !paid {
		paid = s.anyProvider(ctx, func(p provider.PaymentProvider) (bool, error) {
			return p.GetPaymentStatus(ctx, user.Email)
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(statusCacheKey(userUID), paid, statusCacheTTL); err != nil {
			s.log.Warn("payment status cache write failed", sl.Err(err))
		}
	}
	return paid, nil
}

// HasUserPurchasedProduct reports whether the user has paid for the product,
// ledger first, vendors as fallthrough.
func (s *Service) HasUserPurchasedProduct(ctx context.Context, userUID, productID string) (bool, error) {
	const op = "paymentstatus.HasUserPurchasedProduct"

	user, err := s.getUser(ctx, op, userUID)
	if err != nil {
		return false, err
	}

	purchased, err := s.repo.HasCompletedPaymentForProduct(ctx, userUID, productID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if purchased {
		return true, nil
	}
	return s.anyProvider(ctx, func(p provider.PaymentProvider) (bool, error) {
		return p.HasUserPurchasedProduct(ctx, user.Email, productID)
	}), nil
}

// HasUserActiveSubscription reports whether any vendor holds an active
// subscription for the user. Subscriptions live at the vendors only, the
// ledger records one-time charges.
func (s *Service) HasUserActiveSubscription(ctx context.Context, userUID string) (bool, error) {
	const op = "paymentstatus.HasUserActiveSubscription"

	user, err := s.getUser(ctx, op, userUID)
	if err != nil {
		return false, err
	}
	return s.anyProvider(ctx, func(p provider.PaymentProvider) (bool, error) {
		return p.HasUserActiveSubscription(ctx, user.Email)
	}), nil
}

// GetUserPurchasedProducts aggregates the products the user purchased across
// every enabled vendor.
func (s *Service) GetUserPurchasedProducts(ctx context.Context, userUID string) ([]models.ProductData, error) {
	const op = "paymentstatus.GetUserPurchasedProducts"

	user, err := s.getUser(ctx, op, userUID)
	if err != nil {
		return nil, err
	}

	var products []models.ProductData
	for _, p := range s.registry.Enabled() {
		items, err := p.GetUserPurchasedProducts(ctx, user.Email)
		if err != nil {
			s.log.Warn("provider product lookup failed",
				slog.String("processor", p.ID()), sl.Err(err))
			continue
		}
		products = append(products, items...)
	}
	return products, nil
}

// ListPayments returns the user's ledger entries, newest first.
func (s *Service) ListPayments(ctx context.Context, userUID string, limit, offset int) ([]*models.Payment, error) {
	const op = "paymentstatus.ListPayments"

	if _, err := s.getUser(ctx, op, userUID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByUser(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

func (s *Service) getUser(ctx context.Context, op, userUID string) (*models.User, error) {
	user, found, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return user, nil
}

// anyProvider runs check against every enabled vendor and reports whether
// any answered true. Vendor errors degrade to false for that vendor.
func (s *Service) anyProvider(ctx context.Context, check func(provider.PaymentProvider) (bool, error)) bool {
	for _, p := range s.registry.Enabled() {
		ok, err := check(p)
		if err != nil {
			s.log.Warn("provider status check failed",
				slog.String("processor", p.ID()), sl.Err(err))
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
