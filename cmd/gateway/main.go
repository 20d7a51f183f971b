package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/zakup/internal/config"
	"github.com/joao-fontenele/zakup/internal/gateway"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/web"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load[config.Gateway]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "gateway", cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	handler := gateway.NewHandler(
		gateway.NewServiceProxy(cfg.OrdersURL, httpClient),
		gateway.NewServiceProxy(cfg.CatalogURL, httpClient),
		gateway.NewServiceProxy(cfg.ClubsURL, httpClient),
		logger,
	)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	if err := web.Run(logger, web.NewServer(":"+cfg.Port, "gateway", logger, mux)); err != nil {
		os.Exit(1)
	}
}
