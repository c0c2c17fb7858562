// Package notify delivers order confirmations over SMTP, Kafka or the log.
package notify

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// Message is a rendered order confirmation.
type Message struct {
	Subject string
	Body    string
}

// Confirmation renders the confirmation sent to customerName for a placed
// order. Amounts are rounded to cents here and nowhere earlier.
func Confirmation(customerName, orderID string, o *order.PricedOrder) Message {
	var b strings.Builder
	b.WriteString("Dear ")
	b.WriteString(customerName)
	b.WriteString(",\n\nYour order total is ")
	b.WriteString(money(o.GrandTotal))
	b.WriteString("\nSubtotal: ")
	b.WriteString(money(o.Subtotal))
	b.WriteString("\nDiscount: -")
	b.WriteString(money(o.Discount))
	b.WriteString("\nTax: ")
	b.WriteString(money(o.Tax))
	b.WriteString("\nShipping: ")
	b.WriteString(money(o.Shipping))
	b.WriteString("\n\nThank you!")

	return Message{
		Subject: "Order Confirmation - " + orderID,
		Body:    b.String(),
	}
}

func money(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}
