// Package checkout creates hosted vendor checkout pages for logged-in users.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

// ErrUserNotFound signals an unknown user UID.
var ErrUserNotFound = errors.New("user not found")

// Repo is the user storage the checkout service needs.
type Repo interface {
	GetUser(ctx context.Context, userUID string) (*models.User, bool, error)
}

// Service resolves the user and delegates to the chosen vendor adapter.
type Service struct {
	log      *slog.Logger
	repo     Repo
	registry *provider.Registry
}

// New builds the checkout service.
func New(log *slog.Logger, repo Repo, registry *provider.Registry) *Service {
	return &Service{log: log, repo: repo, registry: registry}
}

// CreateCheckoutURL creates a hosted checkout page at the given vendor for
// the user. The user's e-mail is attached so the resulting order can be
// attributed on import.
func (s *Service) CreateCheckoutURL(ctx context.Context, providerID, userUID string, opts models.CheckoutOptions) (string, error) {
	const op = "checkout.CreateCheckoutURL"

	p, ok := s.registry.Get(providerID)
	if !ok {
		return "", fmt.Errorf("%s: %s: %w", op, providerID, provider.ErrUnknownProvider)
	}
	if !p.IsConfigured() || !p.IsEnabled() {
		return "", fmt.Errorf("%s: %s: %w", op, providerID, provider.ErrNotConfigured)
	}

	user, found, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	opts.Email = user.Email
	opts.UserUID = user.UID

	url, err := p.CreateCheckoutURL(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("checkout created",
		slog.String("processor", providerID),
		slog.String("product_id", opts.ProductID))
	return url, nil
}
