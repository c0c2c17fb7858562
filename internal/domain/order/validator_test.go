package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func item(name, price string, qty int) RawItem {
	p := d(price)
	return RawItem{Name: name, UnitPrice: &p, Quantity: &qty}
}

func validOrder() *RawOrder {
	return &RawOrder{
		CustomerName: "Jane Doe",
		Email:        "jane@example.com",
		Region:       "CA",
		Tier:         TierStandard,
		Items: []RawItem{
			item("Widget", "10.00", 5),
			item("Gadget", "20.00", 2),
		},
	}
}

func TestValidate(t *testing.T) {
	qty := 1
	price := d("1")

	tests := []struct {
		name      string
		order     func() *RawOrder
		wantErr   Reason
		wantIndex int
	}{
		{
			name:      "nil order",
			order:     func() *RawOrder { return nil },
			wantErr:   ReasonMissingOrder,
			wantIndex: -1,
		},
		{
			name: "missing customer name",
			order: func() *RawOrder {
				o := validOrder()
				o.CustomerName = ""
				return o
			},
			wantErr:   ReasonMissingCustomerName,
			wantIndex: -1,
		},
		{
			name: "missing name reported before missing email",
			order: func() *RawOrder {
				o := validOrder()
				o.CustomerName = ""
				o.Email = ""
				return o
			},
			wantErr:   ReasonMissingCustomerName,
			wantIndex: -1,
		},
		{
			name: "missing email",
			order: func() *RawOrder {
				o := validOrder()
				o.Email = ""
				return o
			},
			wantErr:   ReasonMissingEmail,
			wantIndex: -1,
		},
		{
			name: "email without at sign",
			order: func() *RawOrder {
				o := validOrder()
				o.Email = "jane.example.com"
				return o
			},
			wantErr:   ReasonInvalidEmail,
			wantIndex: -1,
		},
		{
			name: "email without dot",
			order: func() *RawOrder {
				o := validOrder()
				o.Email = "jane@localhost"
				return o
			},
			wantErr:   ReasonInvalidEmail,
			wantIndex: -1,
		},
		{
			name: "no items",
			order: func() *RawOrder {
				o := validOrder()
				o.Items = nil
				return o
			},
			wantErr:   ReasonNoItems,
			wantIndex: -1,
		},
		{
			name: "item without name",
			order: func() *RawOrder {
				o := validOrder()
				o.Items[1].Name = ""
				return o
			},
			wantErr:   ReasonInvalidItem,
			wantIndex: 1,
		},
		{
			name: "item without price",
			order: func() *RawOrder {
				o := validOrder()
				o.Items = append(o.Items, RawItem{Name: "Thing", Quantity: &qty})
				return o
			},
			wantErr:   ReasonInvalidItem,
			wantIndex: 2,
		},
		{
			name: "item without quantity",
			order: func() *RawOrder {
				o := validOrder()
				o.Items[0] = RawItem{Name: "Thing", UnitPrice: &price}
				return o
			},
			wantErr:   ReasonInvalidItem,
			wantIndex: 0,
		},
		{
			name: "zero price",
			order: func() *RawOrder {
				o := validOrder()
				o.Items[1] = item("Gadget", "0", 1)
				return o
			},
			wantErr:   ReasonBadPrice,
			wantIndex: 1,
		},
		{
			name: "negative price",
			order: func() *RawOrder {
				o := validOrder()
				o.Items[0] = item("Widget", "-5", 1)
				return o
			},
			wantErr:   ReasonBadPrice,
			wantIndex: 0,
		},
		{
			name: "bad price reported before bad quantity",
			order: func() *RawOrder {
				o := validOrder()
				o.Items[0] = item("Widget", "0", 0)
				return o
			},
			wantErr:   ReasonBadPrice,
			wantIndex: 0,
		},
		{
			name: "zero quantity",
			order: func() *RawOrder {
				o := validOrder()
				o.Items[1] = item("Gadget", "3", 0)
				return o
			},
			wantErr:   ReasonBadQuantity,
			wantIndex: 1,
		},
		{
			name: "first bad item wins",
			order: func() *RawOrder {
				o := validOrder()
				o.Items[0] = item("Widget", "1", -1)
				o.Items[1] = item("Gadget", "-1", 1)
				return o
			},
			wantErr:   ReasonBadQuantity,
			wantIndex: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Validate(tt.order())
			require.Nil(t, v)

			var rej *RejectionError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.wantErr, rej.Reason)
			assert.Equal(t, tt.wantIndex, rej.Index)
		})
	}
}

func TestValidate_EmptyItemsIgnoresOtherFields(t *testing.T) {
	_, err := Validate(&RawOrder{
		CustomerName: "Bob",
		Email:        "bob@example.org",
		Region:       "",
		Tier:         "whatever",
	})

	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonNoItems, rej.Reason)
}

func TestValidate_Valid(t *testing.T) {
	raw := validOrder()
	raw.Tier = "VIP"

	v, err := Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", v.CustomerName)
	assert.Equal(t, "jane@example.com", v.Email)
	assert.Equal(t, "CA", v.Region)
	assert.True(t, v.Tier.IsVIP())
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Widget", v.Items[0].Name)
	assert.True(t, d("10.00").Equal(v.Items[0].UnitPrice))
	assert.Equal(t, 5, v.Items[0].Quantity)
}

func TestRejectionError_Message(t *testing.T) {
	assert.Equal(t, "items required", (&RejectionError{Reason: ReasonNoItems, Index: -1}).Error())
	assert.Equal(t, "item 2 price must be greater than 0", (&RejectionError{Reason: ReasonBadPrice, Index: 2}).Error())
	assert.True(t, (&RejectionError{Reason: ReasonBadQuantity}).IsItemLevel())
	assert.False(t, (&RejectionError{Reason: ReasonInvalidEmail}).IsItemLevel())
}

func TestIsPlausibleEmail(t *testing.T) {
	assert.True(t, IsPlausibleEmail("a@b.c"))
	// The rule is deliberately weak: any "@" and "." anywhere will do.
	assert.True(t, IsPlausibleEmail(".@"))
	assert.False(t, IsPlausibleEmail(""))
	assert.False(t, IsPlausibleEmail("a@b"))
	assert.False(t, IsPlausibleEmail("a.b"))
}
