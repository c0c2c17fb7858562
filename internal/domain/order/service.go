package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// PersistError is returned by Submit when the order record could not be
// saved. The order's inventory has already been committed at that point and
// is not given back.
type PersistError struct {
	OrderID string
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save order %s: %v", e.OrderID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNotPersisted) match any PersistError.
func (e *PersistError) Is(target error) bool { return target == ErrNotPersisted }

type options struct {
	newID          func() string
	callTimeout    time.Duration
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a Pipeline.
type Option func(*options)

// WithIDGenerator overrides the order id source. Ids must never repeat.
func WithIDGenerator(f func() string) Option {
	return func(o *options) { o.newID = f }
}

// WithCallTimeout bounds every collaborator call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

// WithMeterProvider sets the meter provider for pipeline metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for submission spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// Pipeline turns raw orders into committed, priced orders. It keeps no state
// between calls and is safe for concurrent use.
type Pipeline struct {
	inventory InventoryGateway
	orders    Repository
	notifier  Notifier

	newID       func() string
	callTimeout time.Duration
	tracer      trace.Tracer
	metrics     *pipelineMetrics
}

// NewPipeline creates a Pipeline over the given collaborators.
func NewPipeline(
	inventory InventoryGateway,
	orders Repository,
	notifier Notifier,
	opts ...Option,
) (*Pipeline, error) {
	o := options{
		newID:          func() string { return uuid.New().String() },
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	m, err := newPipelineMetrics(o.meterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "create metrics")
	}

	return &Pipeline{
		inventory:   inventory,
		orders:      orders,
		notifier:    notifier,
		newID:       o.newID,
		callTimeout: o.callTimeout,
		tracer:      o.tracerProvider.Tracer(instrumentationName),
		metrics:     m,
	}, nil
}

// Submit validates, prices, reserves stock for, persists and announces a
// single order.
//
// Exactly one of the following is produced: *Success, *Rejected, *OutOfStock,
// or a non-nil error. Errors from the inventory gateway or the repository are
// fatal to the submission; a failed notification is only logged.
//
// Stock is not released on failure. A Commit error leaves the commits of
// earlier lines applied, and a Save error leaves every commit applied.
func (p *Pipeline) Submit(ctx context.Context, raw *RawOrder) (Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "order.Submit")
	defer span.End()

	outcome, err := p.submit(ctx, raw)
	label := outcomeLabel(outcome, err)
	span.SetAttributes(attribute.String("order.outcome", label))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.metrics.submitted(ctx, label)

	return outcome, err
}

func (p *Pipeline) submit(ctx context.Context, raw *RawOrder) (Outcome, error) {
	lg := zctx.From(ctx)

	validated, err := Validate(raw)
	if err != nil {
		var rej *RejectionError
		if !errors.As(err, &rej) {
			return nil, errors.Wrap(err, "validate")
		}
		lg.Debug("Order rejected", zap.String("reason", string(rej.Reason)), zap.Int("index", rej.Index))
		return &Rejected{Reason: rej}, nil
	}

	priced := Price(validated)

	// Every item is checked before anything is committed. Lines naming the
	// same item are checked against their running total.
	requested := make(map[string]int, len(priced.Items))
	for _, it := range priced.Items {
		requested[it.Name] += it.Quantity
		need := requested[it.Name]

		var ok bool
		err := p.call(ctx, func(ctx context.Context) (err error) {
			ok, err = p.inventory.CheckAvailable(ctx, it.Name, need)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "check stock for %q", it.Name)
		}
		if !ok {
			lg.Info("Order out of stock", zap.String("item", it.Name), zap.Int("quantity", need))
			return &OutOfStock{ItemName: it.Name}, nil
		}
	}

	for _, it := range priced.Items {
		err := p.call(ctx, func(ctx context.Context) error {
			return p.inventory.Commit(ctx, it.Name, it.Quantity)
		})
		if err != nil {
			return nil, errors.Wrapf(err, "commit stock for %q", it.Name)
		}
	}

	id := p.newID()
	lg = lg.With(zap.String("order_id", id))

	err = p.call(ctx, func(ctx context.Context) error {
		return p.orders.Save(ctx, id, priced.CustomerName, priced.GrandTotal)
	})
	if err != nil {
		lg.Error("Order not persisted after inventory commit",
			zap.String("customer", priced.CustomerName),
			zap.Error(err),
		)
		return nil, &PersistError{OrderID: id, Err: err}
	}

	err = p.call(ctx, func(ctx context.Context) error {
		return p.notifier.Notify(ctx, priced.Email, id, priced)
	})
	if err != nil {
		p.metrics.notifyFailed(ctx)
		lg.Warn("Notification failed", zap.Error(err))
	}

	p.metrics.placed(ctx, priced)
	lg.Info("Order placed",
		zap.String("customer", priced.CustomerName),
		zap.String("grand_total", priced.GrandTotal.StringFixed(2)),
	)

	return &Success{OrderID: id, Order: priced}, nil
}

func (p *Pipeline) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}
	return fn(ctx)
}
