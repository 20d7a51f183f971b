package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/config"
	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/idempotency"
	"github.com/joao-fontenele/zakup/internal/messaging"
	"github.com/joao-fontenele/zakup/internal/orders"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/web"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load[config.Orders]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	logger := cfg.Log.NewLogger()
	domain.UseNumericMoney()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "orders", cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		return err
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	db, err := telemetry.OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return err
	}
	defer func() { _ = db.Close() }()

	var opts []orders.Option
	if len(cfg.Kafka) > 0 {
		placed := messaging.NewProducer(cfg.Kafka, domain.TopicOrderPlaced)
		defer func() { _ = placed.Close() }()
		changed := messaging.NewProducer(cfg.Kafka, domain.TopicOrderStatusChanged)
		defer func() { _ = changed.Close() }()
		opts = append(opts, orders.WithPublishers(placed, changed))
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are not published")
	}

	service, err := orders.NewService(orders.NewOrderRepository(db), cfg.ShipFee, logger, opts...)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		return err
	}

	var dedup orders.Deduplicator
	if cfg.RedisURL != "" {
		client, err := idempotency.NewClient(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to configure redis", "error", err)
			return err
		}
		defer func() { _ = client.Close() }()
		dedup = idempotency.NewRedisStore(client, 30*time.Second, cfg.IdempotencyTTL)
	}

	mux := http.NewServeMux()
	orders.NewHandler(service, dedup, logger).Register(mux, auth.NewVerifier(cfg.JWTSecret))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", web.Health(logger, db))

	return web.Run(logger, web.NewServer(":"+cfg.Port, "orders", logger, mux))
}
