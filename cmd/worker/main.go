package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/zakup/internal/config"
	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/messaging"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/worker"
)

func main() {
	cfg, err := config.Load[config.Worker]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "worker", cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	placed := messaging.NewConsumer(cfg.Kafka, domain.TopicOrderPlaced, cfg.GroupID, logger)
	defer func() { _ = placed.Close() }()
	statusChanged := messaging.NewConsumer(cfg.Kafka, domain.TopicOrderStatusChanged, cfg.GroupID, logger)
	defer func() { _ = statusChanged.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	handler := worker.NewNotificationHandler(cfg.EmailURL, cfg.MailDomain, httpClient, logger)

	logger.Info("starting notification worker", "brokers", cfg.Kafka)

	if err := worker.Run(ctx, handler, placed, statusChanged); err != nil {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
	logger.Info("consumers stopped")
}
