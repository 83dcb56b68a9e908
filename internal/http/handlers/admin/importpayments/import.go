// Package importpayments implements the admin HTTP handler triggering batch
// imports from the payment vendors.
package importpayments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shipforge/payment-ledger/internal/http/response"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

// Service describes the import business logic.
type Service interface {
	ImportProvider(ctx context.Context, providerID string) (models.ImportStats, error)
	ImportAll(ctx context.Context) map[string]models.ImportStats
}

// Handler handles admin import requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Import payments from a vendor
// @Description Pulls all orders from the given vendor and reconciles them into the ledger. Use "all" to run every enabled vendor.
// @Tags Admin
// @Produce  json
// @Param provider path string true "Provider id or all"
// @Success 200 {object} response.Response "Import statistics"
// @Failure 401 {object} response.ErrorResponse "Not authorized"
// @Failure 403 {object} response.ErrorResponse "Not an admin"
// @Failure 404 {object} response.ErrorResponse "Unknown provider"
// @Failure 429 {object} response.ErrorResponse "Too many import runs"
// @Failure 503 {object} response.ErrorResponse "Provider not configured"
// @Security BearerAuth
// @Router /admin/import/{provider} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.importpayments"
	providerID := chi.URLParam(r, "provider")
	log := h.log.With(
		slog.String("op", op),
		slog.String("processor", providerID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if providerID == "all" {
		results := h.service.ImportAll(r.Context())
		log.Info("import all finished", slog.Int("providers", len(results)))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"results": results,
		}))
		return
	}

	stats, err := h.service.ImportProvider(r.Context(), providerID)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrUnknownProvider):
			log.Warn("unknown provider")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown payment provider"))
		case errors.Is(err, provider.ErrNotConfigured):
			log.Warn("provider not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment provider is not available"))
		default:
			log.Error("import failed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("import failed"))
		}
		return
	}

	log.Info("import finished",
		slog.Int("total", stats.Total),
		slog.Int("imported", stats.Imported))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"stats": stats,
	}))
}
