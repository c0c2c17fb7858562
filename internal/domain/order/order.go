package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Tier is the customer loyalty tier attached to an order.
type Tier string

const (
	// TierStandard is the default tier with no bonus discount.
	TierStandard Tier = "standard"
	// TierVIP customers receive an additional discount on every order.
	TierVIP Tier = "vip"
)

// IsVIP reports whether t names the VIP tier, ignoring case.
func (t Tier) IsVIP() bool {
	return strings.EqualFold(string(t), string(TierVIP))
}

// RawOrder is an order as submitted by a caller, before any validation.
type RawOrder struct {
	CustomerName string
	Email        string
	Region       string
	Tier         Tier
	Items        []RawItem
}

// RawItem is a submitted line item. A nil UnitPrice or Quantity means the
// field was absent from the submission.
type RawItem struct {
	Name      string
	UnitPrice *decimal.Decimal
	Quantity  *int
}

// LineItem is a validated line item with a positive price and quantity.
type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Amount returns UnitPrice × Quantity.
func (i LineItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ValidatedOrder is a RawOrder that passed every structural check.
type ValidatedOrder struct {
	CustomerName string
	Email        string
	Region       string
	Tier         Tier
	Items        []LineItem
}

// PricedOrder is a ValidatedOrder with its full price breakdown. Amounts keep
// full decimal precision; rounding is left to presentation.
type PricedOrder struct {
	ValidatedOrder

	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	GrandTotal decimal.Decimal
}

// AfterDiscount returns Subtotal - Discount.
func (p *PricedOrder) AfterDiscount() decimal.Decimal {
	return p.Subtotal.Sub(p.Discount)
}

// Total returns the amount before shipping.
func (p *PricedOrder) Total() decimal.Decimal {
	return p.AfterDiscount().Add(p.Tax)
}

// Outcome is the result of a single submission: *Success, *Rejected or
// *OutOfStock.
type Outcome interface {
	outcome()
}

// Success is returned when the order was committed and persisted.
type Success struct {
	OrderID string
	Order   *PricedOrder
}

// Rejected is returned when validation failed. No collaborator was called.
type Rejected struct {
	Reason *RejectionError
}

// OutOfStock is returned when an item failed the availability check. Nothing
// was committed.
type OutOfStock struct {
	ItemName string
}

func (*Success) outcome()    {}
func (*Rejected) outcome()   {}
func (*OutOfStock) outcome() {}

var (
	// ErrNotPersisted marks a submission whose order record could not be
	// saved. Inventory for such an order has already been committed.
	ErrNotPersisted = errors.New("order not persisted")
	// ErrStockConflict is returned by an InventoryGateway whose Commit found
	// less stock than requested.
	ErrStockConflict = errors.New("stock conflict")
)

// InventoryGateway checks and reserves stock.
//
// The pipeline does not hold a lock between CheckAvailable and Commit.
// Implementations must make Commit atomic per item and refuse to take stock
// below zero, returning ErrStockConflict, so concurrent orders cannot oversell.
type InventoryGateway interface {
	CheckAvailable(ctx context.Context, item string, quantity int) (bool, error)
	Commit(ctx context.Context, item string, quantity int) error
}

// Repository persists committed orders.
type Repository interface {
	Save(ctx context.Context, orderID, customerName string, grandTotal decimal.Decimal) error
}

// Notifier delivers a best-effort confirmation to the customer.
type Notifier interface {
	Notify(ctx context.Context, email, orderID string, order *PricedOrder) error
}
