package telemetry

import (
	"context"
	"errors"
	"net/http"
)

// Setup wires tracing and metrics for an HTTP service. The returned shutdown
// flushes both providers.
func Setup(ctx context.Context, serviceName, serviceVersion, otlpEndpoint string) (http.Handler, func(context.Context) error, error) {
	shutdownTracer, err := InitTracerProvider(ctx, serviceName, serviceVersion, otlpEndpoint)
	if err != nil {
		return nil, nil, err
	}

	metricsHandler, shutdownMeter, err := InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(shutdownTracer(ctx), shutdownMeter(ctx))
	}
	return metricsHandler, shutdown, nil
}
