// Package paymentlist implements the admin HTTP handler listing every ledger
// entry.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shipforge/payment-ledger/internal/http/handlers/payments/list"
	"github.com/shipforge/payment-ledger/internal/http/response"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/models"
)

// Service describes the full ledger listing logic.
type Service interface {
	ListAllPayments(ctx context.Context, limit, offset int) ([]*models.Payment, error)
}

// Handler handles admin ledger listing requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List all ledger entries
// @Description Returns every payment in the ledger, newest first.
// @Tags Admin
// @Produce  json
// @Param limit query int false "Page size, max 100" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} response.Response "Payments"
// @Failure 401 {object} response.ErrorResponse "Not authorized"
// @Failure 403 {object} response.ErrorResponse "Not an admin"
// @Failure 500 {object} response.ErrorResponse "Lookup failed"
// @Security BearerAuth
// @Router /admin/payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.paymentlist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset := list.ParsePagination(r)
	payments, err := h.service.ListAllPayments(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list payments"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"payments": payments,
		"count":    len(payments),
	}))
}
