// Package products implements the HTTP handler listing the products the
// current user purchased, and answering per-product purchase checks.
package products

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/shipforge/payment-ledger/internal/http/middlewarectx"
	"github.com/shipforge/payment-ledger/internal/http/response"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/models"
)

// Service describes the product lookup business logic.
type Service interface {
	GetUserPurchasedProducts(ctx context.Context, userUID string) ([]models.ProductData, error)
	HasUserPurchasedProduct(ctx context.Context, userUID, productID string) (bool, error)
}

// Handler handles purchased products requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Purchased products of the current user
// @Description Lists purchased products across all vendors. With the product_id query parameter, answers whether that one product was purchased.
// @Tags Payments
// @Produce  json
// @Param product_id query string false "Check one product instead of listing"
// @Success 200 {object} response.Response "Products or purchase check"
// @Failure 401 {object} response.ErrorResponse "Not authorized"
// @Failure 500 {object} response.ErrorResponse "Lookup failed"
// @Security BearerAuth
// @Router /payments/products [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.products"
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

	if productID := r.URL.Query().Get("product_id"); productID != "" {
		purchased, err := h.service.HasUserPurchasedProduct(r.Context(), userUID, productID)
		if err != nil {
			log.Error("failed to check product purchase", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not check product purchase"))
			return
		}
		render.JSON(w, r, response.OKWithData(map[string]any{
			"product_id": productID,
			"purchased":  purchased,
		}))
		return
	}

	products, err := h.service.GetUserPurchasedProducts(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list purchased products", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list purchased products"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"products": products,
	}))
}
