package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

const (
	checkStockSQL = `SELECT stock >= $2 FROM inventory WHERE item = $1`

	// The stock guard in the WHERE clause makes each commit atomic per row.
	commitStockSQL = `UPDATE inventory SET stock = stock - $2, updated_at = now()
		WHERE item = $1 AND stock >= $2`

	setStockSQL = `INSERT INTO inventory (item, stock) VALUES ($1, $2)
		ON CONFLICT (item) DO UPDATE SET stock = EXCLUDED.stock, updated_at = now()`

	getStockSQL = `SELECT stock FROM inventory WHERE item = $1`

	listStockSQL = `SELECT item, stock FROM inventory`
)

var _ order.InventoryGateway = (*InventoryRepository)(nil)

// InventoryRepository implements order.InventoryGateway backed by PostgreSQL.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// CheckAvailable reports whether item has at least quantity units. Unknown
// items are unavailable.
func (r *InventoryRepository) CheckAvailable(ctx context.Context, item string, quantity int) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, checkStockSQL, item, quantity).Scan(&ok)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrapf(err, "check stock for %q", item)
	}
	return ok, nil
}

// Commit decrements the stock of item. It returns order.ErrStockConflict when
// the row no longer holds enough stock.
func (r *InventoryRepository) Commit(ctx context.Context, item string, quantity int) error {
	tag, err := r.pool.Exec(ctx, commitStockSQL, item, quantity)
	if err != nil {
		return errors.Wrapf(err, "commit stock for %q", item)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStockConflict
	}
	return nil
}

// SetStock creates or overwrites the stock level of item.
func (r *InventoryRepository) SetStock(ctx context.Context, item string, stock int) error {
	if _, err := r.pool.Exec(ctx, setStockSQL, item, stock); err != nil {
		return errors.Wrapf(err, "set stock for %q", item)
	}
	return nil
}

// Stock returns the stock level of item, or zero when it is unknown.
func (r *InventoryRepository) Stock(ctx context.Context, item string) (int, error) {
	var stock int
	err := r.pool.QueryRow(ctx, getStockSQL, item).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "get stock for %q", item)
	}
	return stock, nil
}

// Snapshot returns the stock level of every known item.
func (r *InventoryRepository) Snapshot(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, listStockSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list stock")
	}
	defer rows.Close()

	stock := make(map[string]int)
	for rows.Next() {
		var (
			item string
			n    int
		)
		if err := rows.Scan(&item, &n); err != nil {
			return nil, errors.Wrap(err, "scan stock")
		}
		stock[item] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list stock")
	}
	return stock, nil
}
