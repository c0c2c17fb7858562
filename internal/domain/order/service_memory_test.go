package order_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/storage/memory"
)

type discardRepo struct{ saved int }

func (r *discardRepo) Save(context.Context, string, string, decimal.Decimal) error {
	r.saved++
	return nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string, string, *order.PricedOrder) error { return nil }

func line(name, price string, qty int) order.RawItem {
	p := decimal.RequireFromString(price)
	return order.RawItem{Name: name, UnitPrice: &p, Quantity: &qty}
}

func TestSubmit_DuplicateItemsOutOfStock(t *testing.T) {
	inv := memory.NewInventory(map[string]int{"Widget": 6, "Gadget": 10})
	repo := &discardRepo{}
	p, err := order.NewPipeline(inv, repo, discardNotifier{})
	require.NoError(t, err)

	out, err := p.Submit(context.Background(), &order.RawOrder{
		CustomerName: "Jane Doe",
		Email:        "jane@example.com",
		Region:       "CA",
		Items: []order.RawItem{
			line("Gadget", "20.00", 1),
			line("Widget", "10.00", 5),
			line("Widget", "10.00", 5),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, &order.OutOfStock{ItemName: "Widget"}, out)

	assert.Equal(t, 6, inv.Stock("Widget"))
	assert.Equal(t, 10, inv.Stock("Gadget"))
	assert.Zero(t, repo.saved)
}

func TestSubmit_DuplicateItemsWithinStock(t *testing.T) {
	inv := memory.NewInventory(map[string]int{"Widget": 10})
	p, err := order.NewPipeline(inv, &discardRepo{}, discardNotifier{})
	require.NoError(t, err)

	out, err := p.Submit(context.Background(), &order.RawOrder{
		CustomerName: "Jane Doe",
		Email:        "jane@example.com",
		Items: []order.RawItem{
			line("Widget", "10.00", 4),
			line("Widget", "10.00", 6),
		},
	})
	require.NoError(t, err)
	require.IsType(t, &order.Success{}, out)
	assert.Zero(t, inv.Stock("Widget"))
}
