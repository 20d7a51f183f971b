package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joao-fontenele/zakup/internal/config"
	"github.com/joao-fontenele/zakup/internal/email"
	"github.com/joao-fontenele/zakup/internal/telemetry"
	"github.com/joao-fontenele/zakup/internal/web"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load[config.Email]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "email", cfg.Telemetry.ServiceVersion, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	handler := email.NewHandler(cfg.From, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", telemetry.WithHTTPRoute(handler.HandleSend))

	if err := web.Run(logger, web.NewServer(":"+cfg.Port, "email", logger, mux)); err != nil {
		os.Exit(1)
	}
}
