package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validated(region string, tier Tier, items ...LineItem) *ValidatedOrder {
	return &ValidatedOrder{
		CustomerName: "Jane Doe",
		Email:        "jane@example.com",
		Region:       region,
		Tier:         tier,
		Items:        items,
	}
}

func line(name, price string, qty int) LineItem {
	return LineItem{Name: name, UnitPrice: d(price), Quantity: qty}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: expected %s, got %s", field, want, got)
}

func TestPrice_Examples(t *testing.T) {
	tests := []struct {
		name         string
		order        *ValidatedOrder
		wantSubtotal string
		wantDiscount string
		wantTax      string
		wantShipping string
		wantGrand    string
	}{
		{
			name: "standard CA under 100",
			order: validated("CA", TierStandard,
				line("Widget", "10.00", 5),
				line("Gadget", "20.00", 2),
			),
			wantSubtotal: "90",
			wantDiscount: "0",
			wantTax:      "6.525",
			wantShipping: "5.99",
			wantGrand:    "102.515",
		},
		{
			name: "VIP NY gets bonus without tier discount",
			order: validated("NY", TierVIP,
				line("Widget", "10.00", 5),
				line("Gadget", "20.00", 2),
			),
			wantSubtotal: "90",
			wantDiscount: "4.5",
			wantTax:      "6.84",
			wantShipping: "5.99",
			wantGrand:    "98.33",
		},
		{
			name:         "VIP bonus is additive over 500",
			order:        validated("TX", "Vip", line("Desk", "600", 1)),
			wantSubtotal: "600",
			wantDiscount: "120",
			wantTax:      "30",
			wantShipping: "0",
			wantGrand:    "510",
		},
		{
			name:         "small order pays top shipping",
			order:        validated("ZZ", TierStandard, line("Pen", "1.50", 2)),
			wantSubtotal: "3",
			wantDiscount: "0",
			wantTax:      "0.15",
			wantShipping: "9.99",
			wantGrand:    "13.14",
		},
		{
			name:         "FL mid tier",
			order:        validated("FL", TierStandard, line("Chair", "150", 2)),
			wantSubtotal: "300",
			wantDiscount: "30",
			wantTax:      "16.2",
			wantShipping: "0",
			wantGrand:    "286.2",
		},
		{
			name:         "WA low tier",
			order:        validated("WA", TierStandard, line("Lamp", "50", 3)),
			wantSubtotal: "150",
			wantDiscount: "7.5",
			wantTax:      "9.2625",
			wantShipping: "0",
			wantGrand:    "151.7625",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Price(tt.order)

			assertDecimal(t, tt.wantSubtotal, p.Subtotal, "subtotal")
			assertDecimal(t, tt.wantDiscount, p.Discount, "discount")
			assertDecimal(t, tt.wantTax, p.Tax, "tax")
			assertDecimal(t, tt.wantShipping, p.Shipping, "shipping")
			assertDecimal(t, tt.wantGrand, p.GrandTotal, "grand total")
			assertDecimal(t, tt.wantGrand, p.Total().Add(p.Shipping), "total + shipping")
		})
	}
}

func TestDiscountRate_Boundaries(t *testing.T) {
	tests := []struct {
		subtotal string
		want     string
	}{
		{"500.01", "0.15"},
		{"500", "0.10"},
		{"200.01", "0.10"},
		{"200", "0.05"},
		{"100.01", "0.05"},
		{"100", "0"},
		{"0.01", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			assertDecimal(t, tt.want, DiscountRate(d(tt.subtotal)), "rate")
		})
	}
}

func TestTaxRate(t *testing.T) {
	tests := map[string]string{
		"CA": "0.0725",
		"NY": "0.08",
		"TX": "0.0625",
		"FL": "0.06",
		"WA": "0.065",
		"OR": "0.05",
		"ca": "0.05",
		"":   "0.05",
	}

	for region, want := range tests {
		t.Run("region "+region, func(t *testing.T) {
			assertDecimal(t, want, TaxRate(region), "tax rate")
		})
	}
}

func TestShippingFor_Boundaries(t *testing.T) {
	tests := []struct {
		total string
		want  string
	}{
		{"0", "9.99"},
		{"49.99", "9.99"},
		{"50", "5.99"},
		{"99.999", "5.99"},
		{"100", "0"},
		{"1000", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			assertDecimal(t, tt.want, ShippingFor(d(tt.total)), "shipping")
		})
	}
}

func TestPrice_Deterministic(t *testing.T) {
	v := validated("NY", TierVIP,
		line("Widget", "19.99", 7),
		line("Gadget", "3.333", 3),
	)

	first := Price(v)
	second := Price(v)

	require.Equal(t, first.Subtotal.String(), second.Subtotal.String())
	assert.Equal(t, first.Discount.String(), second.Discount.String())
	assert.Equal(t, first.Tax.String(), second.Tax.String())
	assert.Equal(t, first.Shipping.String(), second.Shipping.String())
	assert.Equal(t, first.GrandTotal.String(), second.GrandTotal.String())
	assert.Equal(t, first.Items, second.Items)
}

func TestPrice_KeepsFullPrecision(t *testing.T) {
	p := Price(validated("CA", TierStandard, line("Widget", "10.00", 5), line("Gadget", "20.00", 2)))

	// 102.515 must not be rounded to 102.52 (or 102.51) during computation.
	assert.Equal(t, "102.515", p.GrandTotal.String())
	assert.Equal(t, "102.52", p.GrandTotal.StringFixed(2))
}

func TestPrice_DoesNotAliasInput(t *testing.T) {
	v := validated("CA", TierStandard, line("Widget", "10", 1))
	p := Price(v)

	v.Items[0].Quantity = 99
	assert.Equal(t, 1, p.Items[0].Quantity)
}
