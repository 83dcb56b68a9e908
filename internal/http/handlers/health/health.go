// Package health implements the readiness endpoint.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/shipforge/payment-ledger/internal/http/response"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
)

// Checker reports whether the storage is reachable and migrated.
type Checker interface {
	CheckDatabaseReady(ctx context.Context) error
}

// Handler handles health requests.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New creates a Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{log: log, checker: checker}
}

// ServeHTTP godoc
// @Summary Readiness probe
// @Description Reports whether the service and its database are ready.
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Ready"
// @Failure 503 {object} response.ErrorResponse "Database not ready"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.CheckDatabaseReady(r.Context()); err != nil {
		h.log.Error("database not ready", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("database not ready"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ready",
	}))
}
