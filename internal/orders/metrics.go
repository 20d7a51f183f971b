package orders

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/zakup/internal/domain"
)

const instrumentationName = "github.com/joao-fontenele/zakup/internal/orders"

type metrics struct {
	placed        metric.Int64Counter
	rejected      metric.Int64Counter
	value         metric.Float64Histogram
	statusChanges metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(instrumentationName)

	placed, err1 := meter.Int64Counter("zakup.orders.placed",
		metric.WithDescription("Orders accepted"))
	rejected, err2 := meter.Int64Counter("zakup.orders.rejected",
		metric.WithDescription("Order placements refused, by reason"))
	value, err3 := meter.Float64Histogram("zakup.orders.value",
		metric.WithDescription("Total of accepted orders"),
		metric.WithUnit("EUR"))
	statusChanges, err4 := meter.Int64Counter("zakup.orders.status_changes",
		metric.WithDescription("Order status transitions, by target status"))

	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	return &metrics{
		placed:        placed,
		rejected:      rejected,
		value:         value,
		statusChanges: statusChanges,
	}, nil
}

func (m *metrics) recordPlaced(ctx context.Context, order *domain.Order) {
	m.placed.Add(ctx, 1)
	m.value.Record(ctx, order.Total.InexactFloat64())
}

func (m *metrics) recordRejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *metrics) recordStatusChange(ctx context.Context, status domain.OrderStatus) {
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
}
