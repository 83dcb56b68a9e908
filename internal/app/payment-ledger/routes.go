package paymentledger

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/shipforge/payment-ledger/internal/http/handlers/admin/importpayments"
	adminpaymentlist "github.com/shipforge/payment-ledger/internal/http/handlers/admin/paymentlist"
	"github.com/shipforge/payment-ledger/internal/http/handlers/admin/unprocessed"
	"github.com/shipforge/payment-ledger/internal/http/handlers/auth/login"
	"github.com/shipforge/payment-ledger/internal/http/handlers/auth/register"
	checkoutcreate "github.com/shipforge/payment-ledger/internal/http/handlers/checkout/create"
	"github.com/shipforge/payment-ledger/internal/http/handlers/health"
	paymentlist "github.com/shipforge/payment-ledger/internal/http/handlers/payments/list"
	"github.com/shipforge/payment-ledger/internal/http/handlers/payments/products"
	paymentstatushandler "github.com/shipforge/payment-ledger/internal/http/handlers/payments/status"
	"github.com/shipforge/payment-ledger/internal/http/handlers/payments/subscription"
	"github.com/shipforge/payment-ledger/internal/http/handlers/webhook"
	"github.com/shipforge/payment-ledger/internal/http/middlewarectx"
	"github.com/shipforge/payment-ledger/internal/provider"
	authservice "github.com/shipforge/payment-ledger/internal/services/auth"
	checkoutservice "github.com/shipforge/payment-ledger/internal/services/checkout"
	"github.com/shipforge/payment-ledger/internal/services/importer"
	"github.com/shipforge/payment-ledger/internal/services/paymentstatus"
	"github.com/shipforge/payment-ledger/internal/storage/repository"
)

// Services bundles everything the routes need.
type Services struct {
	Storage  *repository.Storage
	Registry *provider.Registry
	Auth     *authservice.Service
	Status   *paymentstatus.Service
	Checkout *checkoutservice.Service
	Importer *importer.Importer
}

// RegisterRoutes registers every route of the application.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Open endpoints
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/health", health.New(logger, s.Storage).ServeHTTP)

		// Authenticated user endpoints
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Get("/payments/status", paymentstatushandler.New(logger, s.Status).ServeHTTP)
			r.Get("/payments/products", products.New(logger, s.Status).ServeHTTP)
			r.Get("/payments/subscription", subscription.New(logger, s.Status).ServeHTTP)
			r.Get("/payments/list", paymentlist.New(logger, s.Status).ServeHTTP)
			r.Post("/checkout", checkoutcreate.New(logger, s.Checkout).ServeHTTP)
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RequireRole("admin", logger))
			r.Get("/admin/payments", adminpaymentlist.New(logger, s.Storage).ServeHTTP)
			r.Get("/admin/unprocessed", unprocessed.New(logger, s.Storage).ServeHTTP)
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.ImportRateLimitMiddleware(logger))
				r.Post("/admin/import/{provider}", importpayments.New(logger, s.Importer).ServeHTTP)
			})
		})

		// Webhook endpoints, authenticated by signature instead of JWT
		r.Post("/webhooks/{provider}", webhook.New(logger, s.Registry, s.Importer).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
