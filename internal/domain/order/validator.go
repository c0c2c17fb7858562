package order

import (
	"fmt"
	"strings"
)

// Reason identifies why an order was rejected.
type Reason string

const (
	ReasonMissingOrder        Reason = "missing_order"
	ReasonMissingCustomerName Reason = "missing_customer_name"
	ReasonMissingEmail        Reason = "missing_email"
	ReasonInvalidEmail        Reason = "invalid_email"
	ReasonNoItems             Reason = "no_items"
	ReasonInvalidItem         Reason = "invalid_item"
	ReasonBadPrice            Reason = "bad_price"
	ReasonBadQuantity         Reason = "bad_quantity"
)

// RejectionError describes the first validation check an order failed.
// Index is the offending line item for item-level reasons and -1 otherwise.
type RejectionError struct {
	Reason Reason
	Index  int
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonMissingOrder:
		return "order is required"
	case ReasonMissingCustomerName:
		return "customer name is required"
	case ReasonMissingEmail:
		return "email is required"
	case ReasonInvalidEmail:
		return "email is invalid"
	case ReasonNoItems:
		return "items required"
	case ReasonInvalidItem:
		return fmt.Sprintf("item %d must have name, price and quantity", e.Index)
	case ReasonBadPrice:
		return fmt.Sprintf("item %d price must be greater than 0", e.Index)
	case ReasonBadQuantity:
		return fmt.Sprintf("item %d quantity must be greater than 0", e.Index)
	default:
		return string(e.Reason)
	}
}

// IsItemLevel reports whether Index refers to a line item.
func (e *RejectionError) IsItemLevel() bool {
	switch e.Reason {
	case ReasonInvalidItem, ReasonBadPrice, ReasonBadQuantity:
		return true
	default:
		return false
	}
}

func reject(r Reason) *RejectionError {
	return &RejectionError{Reason: r, Index: -1}
}

func rejectItem(r Reason, idx int) *RejectionError {
	return &RejectionError{Reason: r, Index: idx}
}

// IsPlausibleEmail is the only email rule: non-empty and containing both "@"
// and ".".
func IsPlausibleEmail(email string) bool {
	return email != "" && strings.Contains(email, "@") && strings.Contains(email, ".")
}

// Validate runs the structural checks in a fixed order and stops at the first
// failure. The returned error is always a *RejectionError.
func Validate(o *RawOrder) (*ValidatedOrder, error) {
	if o == nil {
		return nil, reject(ReasonMissingOrder)
	}
	if o.CustomerName == "" {
		return nil, reject(ReasonMissingCustomerName)
	}
	if o.Email == "" {
		return nil, reject(ReasonMissingEmail)
	}
	if !IsPlausibleEmail(o.Email) {
		return nil, reject(ReasonInvalidEmail)
	}
	if len(o.Items) == 0 {
		return nil, reject(ReasonNoItems)
	}

	items := make([]LineItem, len(o.Items))
	for i, it := range o.Items {
		if it.Name == "" || it.UnitPrice == nil || it.Quantity == nil {
			return nil, rejectItem(ReasonInvalidItem, i)
		}
		if !it.UnitPrice.IsPositive() {
			return nil, rejectItem(ReasonBadPrice, i)
		}
		if *it.Quantity <= 0 {
			return nil, rejectItem(ReasonBadQuantity, i)
		}
		items[i] = LineItem{
			Name:      it.Name,
			UnitPrice: *it.UnitPrice,
			Quantity:  *it.Quantity,
		}
	}

	return &ValidatedOrder{
		CustomerName: o.CustomerName,
		Email:        o.Email,
		Region:       o.Region,
		Tier:         o.Tier,
		Items:        items,
	}, nil
}
