// Package status implements the HTTP handler answering whether the current
// user has any completed payment.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shipforge/payment-ledger/internal/http/middlewarectx"
	"github.com/shipforge/payment-ledger/internal/http/response"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
)

// Service describes the payment status business logic.
type Service interface {
	GetPaymentStatus(ctx context.Context, userUID string) (bool, error)
}

// Handler handles payment status requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Payment status of the current user
// @Description Reports whether the user has any completed payment, checking the ledger and the payment vendors.
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response "Payment status"
// @Failure 401 {object} response.ErrorResponse "Not authorized"
// @Failure 500 {object} response.ErrorResponse "Lookup failed"
// @Security BearerAuth
// @Router /payments/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	paid, err := h.service.GetPaymentStatus(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get payment status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get payment status"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"has_paid": paid,
	}))
}
