package notify

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// KafkaConfig configures the confirmation topic.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ order.Notifier = (*KafkaNotifier)(nil)

// KafkaNotifier publishes a confirmation event per placed order, keyed by
// order id. A mailer downstream consumes the topic.
type KafkaNotifier struct {
	w   messageWriter
	now func() time.Time
}

// NewKafkaNotifier returns a KafkaNotifier writing to cfg.Topic.
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	var brokers []string
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return newKafkaNotifier(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}), nil
}

func newKafkaNotifier(w messageWriter) *KafkaNotifier {
	return &KafkaNotifier{w: w, now: time.Now}
}

func (n *KafkaNotifier) Notify(ctx context.Context, email, orderID string, o *order.PricedOrder) error {
	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: encodeConfirmation(email, orderID, o),
		Time:  n.now().UTC(),
	}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish confirmation for %s", orderID)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (n *KafkaNotifier) Close() error {
	return n.w.Close()
}

func encodeConfirmation(email, orderID string, o *order.PricedOrder) []byte {
	msg := Confirmation(o.CustomerName, orderID, o)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(orderID)
	e.FieldStart("email")
	e.Str(email)
	e.FieldStart("customerName")
	e.Str(o.CustomerName)
	e.FieldStart("subject")
	e.Str(msg.Subject)
	e.FieldStart("body")
	e.Str(msg.Body)
	e.FieldStart("subtotal")
	e.Str(o.Subtotal.String())
	e.FieldStart("discount")
	e.Str(o.Discount.String())
	e.FieldStart("tax")
	e.Str(o.Tax.String())
	e.FieldStart("shipping")
	e.Str(o.Shipping.String())
	e.FieldStart("grandTotal")
	e.Str(o.GrandTotal.String())
	e.ObjEnd()
	return e.Bytes()
}
