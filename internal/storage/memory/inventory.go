// Package memory provides an in-process inventory gateway, used for local
// runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

var _ order.InventoryGateway = (*Inventory)(nil)

// Inventory keeps stock levels in a map guarded by a single mutex, so a
// Commit can never take an item below zero.
type Inventory struct {
	mu    sync.Mutex
	stock map[string]int
}

// NewInventory returns an Inventory seeded with a copy of stock.
func NewInventory(stock map[string]int) *Inventory {
	s := make(map[string]int, len(stock))
	for k, v := range stock {
		s[k] = v
	}
	return &Inventory{stock: s}
}

// CheckAvailable reports whether at least quantity units of item are in
// stock. Unknown items have no stock.
func (i *Inventory) CheckAvailable(_ context.Context, item string, quantity int) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stock[item] >= quantity, nil
}

// Commit decrements the stock of item, or returns order.ErrStockConflict
// when another order took it first.
func (i *Inventory) Commit(_ context.Context, item string, quantity int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.stock[item] < quantity {
		return order.ErrStockConflict
	}
	i.stock[item] -= quantity
	return nil
}

// Stock returns the current stock level of item.
func (i *Inventory) Stock(item string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stock[item]
}
