// Package paymentledger wires the service together: storage, migrations,
// cache, broker, provider registry, business services and the HTTP server.
package paymentledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/shipforge/payment-ledger/internal/cache"
	"github.com/shipforge/payment-ledger/internal/config"
	"github.com/shipforge/payment-ledger/internal/events"
	"github.com/shipforge/payment-ledger/internal/lib/jwt"
	"github.com/shipforge/payment-ledger/internal/lib/rabbitmq"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/migrations"
	"github.com/shipforge/payment-ledger/internal/provider"
	"github.com/shipforge/payment-ledger/internal/provider/lemonsqueezy"
	"github.com/shipforge/payment-ledger/internal/provider/polar"
	"github.com/shipforge/payment-ledger/internal/provider/stripe"
	authservice "github.com/shipforge/payment-ledger/internal/services/auth"
	checkoutservice "github.com/shipforge/payment-ledger/internal/services/checkout"
	"github.com/shipforge/payment-ledger/internal/services/importer"
	"github.com/shipforge/payment-ledger/internal/services/paymentstatus"
	"github.com/shipforge/payment-ledger/internal/storage/repository"
)

// App is the composed service with its HTTP server and connections.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New builds the full application from configuration. RabbitMQ is optional:
// with an empty URL import events are dropped.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var amqpConn *amqp.Connection
	var publisher *events.Publisher
	if cfg.RabbitConnection.URL != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitConnection.URL,
			cfg.RabbitConnection.Retries, cfg.RabbitConnection.RetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn, events.Queues)
		if err != nil {
			return nil, err
		}
		publisher = events.New(ch, logger)
	} else {
		logger.Warn("rabbitmq url not set, import events disabled")
	}

	registry := BuildRegistry(cfg, logger)
	for _, p := range registry.Enabled() {
		logger.Info("payment provider enabled", slog.String("processor", p.ID()))
	}

	maker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	authService := authservice.New(logger, db, maker)
	statusService := paymentstatus.New(logger, db, registry, cacheRedis)
	checkoutService := checkoutservice.New(logger, db, registry)
	importerService := importer.New(logger, registry, db, db, db, publisher, cacheRedis)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Storage:  db,
		Registry: registry,
		Auth:     authService,
		Status:   statusService,
		Checkout: checkoutService,
		Importer: importerService,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// BuildRegistry constructs the provider registry from configuration.
func BuildRegistry(cfg *config.Config, logger *slog.Logger) *provider.Registry {
	return provider.NewRegistry(
		stripe.New(cfg.Providers.Stripe, cfg.Checkout, logger),
		lemonsqueezy.New(cfg.Providers.LemonSqueezy, cfg.Checkout, logger),
		polar.New(cfg.Providers.Polar, cfg.Checkout, logger),
	)
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", sl.Err(closeErr))
		}
		if a.amqpConn != nil {
			if closeErr := a.amqpConn.Close(); closeErr != nil {
				a.logger.Error("failed to close rabbitmq connection", sl.Err(closeErr))
			}
		}
		return err
	}
}
