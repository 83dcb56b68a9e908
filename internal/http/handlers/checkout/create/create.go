// Package create implements the HTTP handler creating hosted vendor checkout
// pages for the current user.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/shipforge/payment-ledger/internal/http/middlewarectx"
	"github.com/shipforge/payment-ledger/internal/http/response"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
)

// Request is the checkout creation payload.
type Request struct {
	Provider   string            `json:"provider" validate:"required"`
	ProductID  string            `json:"product_id" validate:"required"`
	SuccessURL string            `json:"success_url,omitempty"`
	CancelURL  string            `json:"cancel_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Service describes the checkout business logic.
type Service interface {
	CreateCheckoutURL(ctx context.Context, providerID, userUID string, opts models.CheckoutOptions) (string, error)
}

// Handler handles checkout creation requests.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Create a checkout page
// @Description Creates a hosted checkout page at the chosen vendor and returns its URL.
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Param request body Request true "Checkout parameters"
// @Success 200 {object} response.Response "Checkout URL"
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Not authorized"
// @Failure 404 {object} response.ErrorResponse "Unknown provider"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Failure 503 {object} response.ErrorResponse "Provider not configured"
// @Security BearerAuth
// @Router /checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	url, err := h.service.CreateCheckoutURL(r.Context(), req.Provider, userUID, models.CheckoutOptions{
		ProductID:  req.ProductID,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		Metadata:   req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrUnknownProvider):
			log.Warn("unknown provider", slog.String("provider", req.Provider))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("unknown payment provider"))
		case errors.Is(err, provider.ErrNotConfigured):
			log.Warn("provider not configured", slog.String("provider", req.Provider))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment provider is not available"))
		default:
			log.Error("failed to create checkout", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create checkout"))
		}
		return
	}

	log.Info("checkout created", slog.String("provider", req.Provider))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"checkout_url": url,
	}))
}
