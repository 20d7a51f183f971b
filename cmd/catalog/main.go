package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joao-fontenele/zakup/internal/auth"
	"github.com/joao-fontenele/zakup/internal/catalog"
	"github.com/joao-fontenele/zakup/internal/config"
	"github.com/joao-fontenele/zakup/internal/domain"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/web"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load[config.Catalog]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()
	domain.UseNumericMoney()

	metricsHandler, shutdownTelemetry, err := telemetry.Setup(ctx, "catalog", cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	db, err := telemetry.OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	service := catalog.NewService(catalog.NewProductRepository(db), logger)

	mux := http.NewServeMux()
	catalog.NewHandler(service, logger).Register(mux, auth.NewVerifier(cfg.JWTSecret))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", web.Health(logger, db))

	if err := web.Run(logger, web.NewServer(":"+cfg.Port, "catalog", logger, mux)); err != nil {
		os.Exit(1)
	}
}
