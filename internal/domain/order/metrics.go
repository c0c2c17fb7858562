package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/xenking/order-pipeline/internal/domain/order"

const (
	outcomeSuccess    = "success"
	outcomeRejected   = "rejected"
	outcomeOutOfStock = "out_of_stock"
	outcomeError      = "error"
)

type pipelineMetrics struct {
	submissions    metric.Int64Counter
	notifyFailures metric.Int64Counter
	grandTotal     metric.Float64Histogram
}

func newPipelineMetrics(mp metric.MeterProvider) (*pipelineMetrics, error) {
	meter := mp.Meter(instrumentationName)

	submissions, err := meter.Int64Counter("orders.submissions",
		metric.WithDescription("Order submissions by outcome"),
	)
	if err != nil {
		return nil, err
	}
	notifyFailures, err := meter.Int64Counter("orders.notify.failures",
		metric.WithDescription("Confirmations that could not be delivered"),
	)
	if err != nil {
		return nil, err
	}
	grandTotal, err := meter.Float64Histogram("orders.grand_total",
		metric.WithDescription("Grand total of placed orders"),
	)
	if err != nil {
		return nil, err
	}

	return &pipelineMetrics{
		submissions:    submissions,
		notifyFailures: notifyFailures,
		grandTotal:     grandTotal,
	}, nil
}

func (m *pipelineMetrics) submitted(ctx context.Context, outcome string) {
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *pipelineMetrics) notifyFailed(ctx context.Context) {
	m.notifyFailures.Add(ctx, 1)
}

func (m *pipelineMetrics) placed(ctx context.Context, o *PricedOrder) {
	m.grandTotal.Record(ctx, o.GrandTotal.InexactFloat64(),
		metric.WithAttributes(attribute.Bool("vip", o.Tier.IsVIP())),
	)
}

func outcomeLabel(o Outcome, err error) string {
	if err != nil {
		return outcomeError
	}
	switch o.(type) {
	case *Success:
		return outcomeSuccess
	case *Rejected:
		return outcomeRejected
	case *OutOfStock:
		return outcomeOutOfStock
	default:
		return outcomeError
	}
}
