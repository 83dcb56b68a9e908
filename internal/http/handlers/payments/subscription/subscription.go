// Package subscription implements the HTTP handler answering whether the
// current user holds an active subscription at any vendor.
package subscription

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

// Service describes the subscription check business logic.
type Service interface {
	HasUserActiveSubscription(ctx context.Context, userUID string) (bool, error)
}

// Handler handles subscription status requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Subscription status of the current user
// @Description Reports whether any vendor holds an active subscription for the user.
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response "Subscription status"
// @Failure 401 {object} response.ErrorResponse "Not authorized"
// @Failure 500 {object} response.ErrorResponse "Lookup failed"
// @Security BearerAuth
// @Router /payments/subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.subscription"
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

	active, err := h.service.HasUserActiveSubscription(r.Context(), userUID)
	if err != nil {
		log.Error("failed to check subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check subscription"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"active": active,
	}))
}
