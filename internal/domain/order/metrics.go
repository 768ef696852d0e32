package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records order placement outcomes.
type Metrics struct {
	placed   metric.Int64Counter
	rejected metric.Int64Counter
	value    metric.Float64Histogram
}

// NewMetrics registers order instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	placed, err := meter.Int64Counter("shop.orders.placed",
		metric.WithDescription("Orders successfully placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	rejected, err := meter.Int64Counter("shop.orders.rejected",
		metric.WithDescription("Order placements rejected, by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders rejected counter")
	}
	value, err := meter.Float64Histogram("shop.orders.value",
		metric.WithDescription("Total price of placed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order value histogram")
	}
	return &Metrics{placed: placed, rejected: rejected, value: value}, nil
}

func (m *Metrics) recordPlaced(ctx context.Context, o *Order) {
	if m == nil {
		return
	}
	m.placed.Add(ctx, 1)
	m.value.Record(ctx, o.Totals.TotalPrice.InexactFloat64())
}

func (m *Metrics) recordRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
