// Package webhook implements the HTTP handler receiving vendor webhook
// deliveries. The provider adapter verifies the signature and normalizes the
// event; paid orders then run through the same reconciliation as batch
// imports.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shipforge/payment-ledger/internal/http/response"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/metrics"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
	"github.com/shipforge/payment-ledger/internal/services/importer"
)

// Vendors retry aggressively; cap the body to keep them honest.
const maxBodySize = 1 << 20

// Reconciler folds a normalized order into the ledger.
type Reconciler interface {
	ReconcileOrder(ctx context.Context, order models.OrderData) (importer.Result, error)
}

// Handler handles vendor webhook deliveries.
type Handler struct {
	log        *slog.Logger
	registry   *provider.Registry
	reconciler Reconciler
}

// New creates a Handler.
func New(log *slog.Logger, registry *provider.Registry, reconciler Reconciler) *Handler {
	return &Handler{log: log, registry: registry, reconciler: reconciler}
}

// ServeHTTP godoc
// @Summary Receive a vendor webhook
// @Description Verifies the delivery signature and reconciles paid orders into the ledger. Events the ledger does not care about are acknowledged and dropped.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Param provider path string true "Provider id (stripe, lemonsqueezy, polar)"
// @Success 200 {object} response.Response "Event processed or ignored"
// @Failure 401 {object} response.ErrorResponse "Invalid signature"
// @Failure 404 {object} response.ErrorResponse "Unknown provider"
// @Failure 500 {object} response.ErrorResponse "Reconciliation failed"
// @Router /webhooks/{provider} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"
	providerID := chi.URLParam(r, "provider")
	log := h.log.With(
		slog.String("op", op),
		slog.String("processor", providerID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := h.registry.Get(providerID)
	if !ok {
		log.Warn("webhook for unknown provider")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown payment provider"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("could not read request body"))
		return
	}

	order, err := p.ParseWebhookEvent(r.Context(), provider.WebhookEvent{
		Headers: r.Header,
		Body:    body,
	})
	if err != nil {
		if errors.Is(err, provider.ErrInvalidSignature) {
			metrics.WebhookEvents.WithLabelValues(providerID, "invalid_signature").Inc()
			log.Warn("webhook signature verification failed")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid signature"))
			return
		}
		metrics.WebhookEvents.WithLabelValues(providerID, "error").Inc()
		log.Error("failed to parse webhook event", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("could not parse event"))
		return
	}

	if order == nil {
		metrics.WebhookEvents.WithLabelValues(providerID, "ignored").Inc()
		render.JSON(w, r, response.OKWithData(map[string]any{
			"handled": false,
		}))
		return
	}

	result, err := h.reconciler.ReconcileOrder(r.Context(), *order)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(providerID, "error").Inc()
		log.Error("failed to reconcile webhook order",
			slog.String("order_id", order.OrderID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process event"))
		return
	}

	metrics.WebhookEvents.WithLabelValues(providerID, "processed").Inc()
	log.Info("webhook order reconciled",
		slog.String("order_id", order.OrderID),
		slog.Bool("imported", result.Outcome == importer.OutcomeImported))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"handled":  true,
		"imported": result.Outcome == importer.OutcomeImported,
	}))
}
