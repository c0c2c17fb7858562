// Package redis implements order.InventoryGateway on top of Redis counters.
package redis

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// commitScript decrements KEYS[1] by ARGV[1] only when enough stock remains.
// It returns the remaining stock, or -1 when the key is missing or short.
var commitScript = redis.NewScript(`
local stock = tonumber(redis.call("GET", KEYS[1]))
local qty = tonumber(ARGV[1])
if stock == nil or stock < qty then
	return -1
end
return redis.call("DECRBY", KEYS[1], qty)
`)

var _ order.InventoryGateway = (*Inventory)(nil)

// Inventory keeps one integer key per item.
type Inventory struct {
	client redis.UniversalClient
	prefix string
}

// NewInventory returns an Inventory that stores stock under "inventory:<item>".
func NewInventory(client redis.UniversalClient) *Inventory {
	return &Inventory{client: client, prefix: "inventory:"}
}

func (i *Inventory) key(item string) string {
	return i.prefix + item
}

// CheckAvailable reports whether item has at least quantity units.
func (i *Inventory) CheckAvailable(ctx context.Context, item string, quantity int) (bool, error) {
	stock, err := i.Stock(ctx, item)
	if err != nil {
		return false, err
	}
	return stock >= quantity, nil
}

// Commit atomically decrements the stock of item, returning
// order.ErrStockConflict when it would go below zero.
func (i *Inventory) Commit(ctx context.Context, item string, quantity int) error {
	left, err := commitScript.Run(ctx, i.client, []string{i.key(item)}, quantity).Int64()
	if err != nil {
		return errors.Wrapf(err, "commit stock for %q", item)
	}
	if left < 0 {
		return order.ErrStockConflict
	}
	return nil
}

// SetStock overwrites the stock level of item.
func (i *Inventory) SetStock(ctx context.Context, item string, stock int) error {
	if err := i.client.Set(ctx, i.key(item), stock, 0).Err(); err != nil {
		return errors.Wrapf(err, "set stock for %q", item)
	}
	return nil
}

// Stock returns the stock level of item, or zero when it is unknown.
func (i *Inventory) Stock(ctx context.Context, item string) (int, error) {
	v, err := i.client.Get(ctx, i.key(item)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "get stock for %q", item)
	}
	stock, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parse stock for %q", item)
	}
	return stock, nil
}
