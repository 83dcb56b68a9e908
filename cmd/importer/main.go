// Command importer runs one batch import from the payment vendors and
// exits. Intended for cron and for initial backfills.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shipforge/payment-ledger/internal/config"
	"github.com/shipforge/payment-ledger/internal/events"
	"github.com/shipforge/payment-ledger/internal/lib/rabbitmq"
	"github.com/shipforge/payment-ledger/internal/lib/sl"
	"github.com/shipforge/payment-ledger/internal/migrations"
	"github.com/shipforge/payment-ledger/internal/models"

	paymentledger "github.com/shipforge/payment-ledger/internal/app/payment-ledger"
	"github.com/shipforge/payment-ledger/internal/services/importer"
	"github.com/shipforge/payment-ledger/internal/storage/repository"
)

func main() {
	providerID := flag.String("provider", "all", "provider id to import, or all")
	flag.Parse()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.DB.Close()
	}()
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", sl.Err(err))
		os.Exit(1)
	}

	var publisher *events.Publisher
	if cfg.RabbitConnection.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitConnection.URL,
			cfg.RabbitConnection.Retries, cfg.RabbitConnection.RetryDelay)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer func() {
			_ = conn.Close()
		}()
		ch, err := rabbitmq.SetupChannel(conn, events.Queues)
		if err != nil {
			logger.Error("failed to setup rabbitmq channel", sl.Err(err))
			os.Exit(1)
		}
		publisher = events.New(ch, logger)
	}

	registry := paymentledger.BuildRegistry(cfg, logger)
	imp := importer.New(logger, registry, db, db, db, publisher, nil)

	var results map[string]models.ImportStats
	if *providerID == "all" {
		results = imp.ImportAll(ctx)
	} else {
		stats, err := imp.ImportProvider(ctx, *providerID)
		if err != nil {
			logger.Error("import failed", sl.Err(err))
			os.Exit(1)
		}
		results = map[string]models.ImportStats{*providerID: stats}
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		logger.Error("failed to encode results", sl.Err(err))
		os.Exit(1)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}
