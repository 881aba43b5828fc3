// Command relay delivers outbox events that the server could not hand to
// the notifier and purges expired inquiry leases. It is meant for an
// external cron job when the in-process relay is not enough.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/inquiry-backend/internal/adapter/postgres/lease"
	"github.com/heartmarshall/inquiry-backend/internal/app"
	"github.com/heartmarshall/inquiry-backend/internal/config"
	"github.com/heartmarshall/inquiry-backend/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("relay: requires the postgres driver, got %q", cfg.Database.Driver)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	infra, err := app.Open(ctx, logger, cfg)
	if err != nil {
		logger.Error("open", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infra.Close()

	relay := notify.NewRelay(logger, infra.Events, infra.Notifier, cfg.Notify.RelayMinAge, cfg.Notify.RelayBatch)
	total := 0
	for {
		n, err := relay.RunOnce(ctx)
		if err != nil {
			logger.Error("relay batch failed", slog.String("error", err.Error()), slog.Int("delivered", total))
			infra.Close()
			os.Exit(1)
		}
		total += n
		if n < cfg.Notify.RelayBatch {
			break
		}
	}

	purged, err := lease.New(infra.Pool).PurgeExpired(ctx)
	if err != nil {
		logger.Error("purge leases failed", slog.String("error", err.Error()))
		infra.Close()
		os.Exit(1)
	}

	logger.Info("relay completed",
		slog.Int("delivered", total),
		slog.Int64("leases_purged", purged),
	)
}
