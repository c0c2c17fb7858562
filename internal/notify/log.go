package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

var _ order.Notifier = LogNotifier{}

// LogNotifier writes confirmations to the context logger instead of sending
// them anywhere. It never fails.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, email, orderID string, o *order.PricedOrder) error {
	msg := Confirmation(o.CustomerName, orderID, o)
	zctx.From(ctx).Info("Order confirmation",
		zap.String("to", email),
		zap.String("subject", msg.Subject),
		zap.String("grand_total", o.GrandTotal.StringFixed(2)),
	)
	return nil
}
