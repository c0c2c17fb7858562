package order

import (
	"github.com/shopspring/decimal"
)

var (
	zero = decimal.Zero

	vipBonusRate = decimal.RequireFromString("0.05")
	defaultTax   = decimal.RequireFromString("0.05")
)

// discountTier applies Rate when the subtotal is strictly above Above.
type discountTier struct {
	Above decimal.Decimal
	Rate  decimal.Decimal
}

// discountTiers is ordered from the highest bracket down; the first match wins.
var discountTiers = []discountTier{
	{Above: decimal.NewFromInt(500), Rate: decimal.RequireFromString("0.15")},
	{Above: decimal.NewFromInt(200), Rate: decimal.RequireFromString("0.10")},
	{Above: decimal.NewFromInt(100), Rate: decimal.RequireFromString("0.05")},
}

var taxRates = map[string]decimal.Decimal{
	"CA": decimal.RequireFromString("0.0725"),
	"NY": decimal.RequireFromString("0.08"),
	"TX": decimal.RequireFromString("0.0625"),
	"FL": decimal.RequireFromString("0.06"),
	"WA": decimal.RequireFromString("0.065"),
}

// shippingTier charges Fee when the pre-shipping total is strictly below Below.
type shippingTier struct {
	Below decimal.Decimal
	Fee   decimal.Decimal
}

var shippingTiers = []shippingTier{
	{Below: decimal.NewFromInt(50), Fee: decimal.RequireFromString("9.99")},
	{Below: decimal.NewFromInt(100), Fee: decimal.RequireFromString("5.99")},
}

// DiscountRate returns the tier discount rate for a subtotal. Brackets are
// exclusive: exactly 500 falls in the 10% bracket.
func DiscountRate(subtotal decimal.Decimal) decimal.Decimal {
	for _, t := range discountTiers {
		if subtotal.GreaterThan(t.Above) {
			return t.Rate
		}
	}
	return zero
}

// TaxRate returns the flat tax rate for a region code. Unknown and empty
// codes get the 5% default.
func TaxRate(region string) decimal.Decimal {
	if r, ok := taxRates[region]; ok {
		return r
	}
	return defaultTax
}

// ShippingFor returns the shipping fee for a pre-shipping total.
func ShippingFor(total decimal.Decimal) decimal.Decimal {
	for _, t := range shippingTiers {
		if total.LessThan(t.Below) {
			return t.Fee
		}
	}
	return zero
}

// Price computes the full breakdown of v. It is deterministic and does no
// I/O.
func Price(v *ValidatedOrder) *PricedOrder {
	subtotal := zero
	for _, it := range v.Items {
		subtotal = subtotal.Add(it.Amount())
	}

	// The VIP bonus is a separate 5% of subtotal added to the tier discount,
	// not a compounded rate.
	discount := subtotal.Mul(DiscountRate(subtotal))
	if v.Tier.IsVIP() {
		discount = discount.Add(subtotal.Mul(vipBonusRate))
	}

	afterDiscount := subtotal.Sub(discount)
	tax := afterDiscount.Mul(TaxRate(v.Region))
	total := afterDiscount.Add(tax)
	shipping := ShippingFor(total)

	items := make([]LineItem, len(v.Items))
	copy(items, v.Items)
	validated := *v
	validated.Items = items

	return &PricedOrder{
		ValidatedOrder: validated,
		Subtotal:       subtotal,
		Discount:       discount,
		Tax:            tax,
		Shipping:       shipping,
		GrandTotal:     total.Add(shipping),
	}
}
