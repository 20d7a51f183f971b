// Package config loads each service's settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// NewLogger builds the process logger: JSON on stdout unless Format is "text".
func (l Log) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

type Telemetry struct {
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"0.1.0"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
}

type Orders struct {
	Log       Log
	Telemetry Telemetry
	Port      string          `env:"PORT" envDefault:"8081"`
	Postgres  string          `env:"POSTGRES_URL,required,notEmpty"`
	JWTSecret string          `env:"JWT_SECRET,required,notEmpty"`
	Kafka     []string        `env:"KAFKA_BROKERS" envSeparator:","`
	RedisURL  string          `env:"REDIS_URL"`
	ShipFee   decimal.Decimal `env:"SHIPPING_FEE" envDefault:"5"`

	// IdempotencyTTL is how long a completed Idempotency-Key keeps replaying its order.
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

type Catalog struct {
	Log       Log
	Telemetry Telemetry
	Port      string `env:"PORT" envDefault:"8082"`
	Postgres  string `env:"POSTGRES_URL,required,notEmpty"`
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

type Clubs struct {
	Log       Log
	Telemetry Telemetry
	Port      string `env:"PORT" envDefault:"8083"`
	Postgres  string `env:"POSTGRES_URL,required,notEmpty"`
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

type Gateway struct {
	Log        Log
	Telemetry  Telemetry
	Port       string `env:"PORT" envDefault:"8080"`
	OrdersURL  string `env:"ORDERS_SERVICE_URL,required,notEmpty"`
	CatalogURL string `env:"CATALOG_SERVICE_URL,required,notEmpty"`
	ClubsURL   string `env:"CLUBS_SERVICE_URL,required,notEmpty"`
}

type Worker struct {
	Log       Log
	Telemetry Telemetry
	Kafka     []string `env:"KAFKA_BROKERS,required" envSeparator:","`
	EmailURL  string   `env:"EMAIL_SERVICE_URL,required,notEmpty"`
	GroupID   string   `env:"KAFKA_GROUP_ID" envDefault:"notification-worker"`

	// MailDomain turns account ids into addresses until a user directory exists.
	MailDomain string `env:"MAIL_DOMAIN" envDefault:"zakup.fr"`
}

type Email struct {
	Log       Log
	Telemetry Telemetry
	Port      string `env:"PORT" envDefault:"8084"`
	From      string `env:"EMAIL_FROM" envDefault:"no-reply@zakup.fr"`
}

type Migrate struct {
	Log        Log
	Postgres   string `env:"POSTGRES_URL,required,notEmpty"`
	Migrations string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
}

// Load reads a .env file when present, then parses the environment into T.
func Load[T any]() (*T, error) {
	_ = godotenv.Load()

	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
