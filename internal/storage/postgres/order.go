package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/report"
)

const (
	saveOrderSQL = `INSERT INTO orders (id, customer_name, grand_total) VALUES ($1, $2, $3)`

	listOrdersSQL = `SELECT id, customer_name, grand_total, status, created_at
		FROM orders
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at, id`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ report.Source    = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository and report.Source backed by
// PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save records a placed order. The grand total is stored unrounded.
func (r *OrderRepository) Save(ctx context.Context, orderID, customerName string, grandTotal decimal.Decimal) error {
	if _, err := r.pool.Exec(ctx, saveOrderSQL, orderID, customerName, grandTotal); err != nil {
		return errors.Wrapf(err, "insert order %q", orderID)
	}
	return nil
}

// ListOrders returns orders created in [from, to), oldest first. A zero bound
// is open.
func (r *OrderRepository) ListOrders(ctx context.Context, from, to time.Time) ([]report.Row, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, nullTime(from), nullTime(to))
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanReportRow)
}

func scanReportRow(row pgx.CollectableRow) (report.Row, error) {
	var r report.Row
	err := row.Scan(&r.ID, &r.Name, &r.Amount, &r.Status, &r.Date)
	return r, err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
