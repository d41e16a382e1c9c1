// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/greenbasket/internal/domain/order"
)

// DefaultTopic receives order events when no topic is configured.
const DefaultTopic = "basket.orders"

var _ order.Publisher = (*Publisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes order events as JSON messages keyed by order id, so all
// events of one order land on the same partition.
type Publisher struct {
	w messageWriter
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewPublisher creates a Publisher for topic on brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}, nil
}

// Publish implements order.Publisher.
func (p *Publisher) Publish(ctx context.Context, e order.Event) error {
	msg := kafka.Message{
		Key:   []byte(e.OrderID),
		Value: EncodeEvent(e),
		Time:  e.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s", e.Type)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// EncodeEvent renders e as a JSON object.
func EncodeEvent(e order.Event) []byte {
	var enc jx.Encoder
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("type", func(enc *jx.Encoder) { enc.Str(string(e.Type)) })
		enc.Field("orderId", func(enc *jx.Encoder) { enc.Str(e.OrderID) })
		enc.Field("userId", func(enc *jx.Encoder) { enc.Str(e.UserID) })
		if len(e.Items) > 0 {
			enc.Field("items", func(enc *jx.Encoder) {
				enc.Arr(func(enc *jx.Encoder) {
					for _, it := range e.Items {
						enc.Obj(func(enc *jx.Encoder) {
							enc.Field("productId", func(enc *jx.Encoder) { enc.Str(it.ProductID) })
							enc.Field("quantity", func(enc *jx.Encoder) { enc.Int(it.Quantity) })
						})
					}
				})
			})
		}
		if e.Rating > 0 {
			enc.Field("rating", func(enc *jx.Encoder) { enc.Int(e.Rating) })
		}
		enc.Field("at", func(enc *jx.Encoder) { enc.Str(e.At.UTC().Format(time.RFC3339Nano)) })
	})
	return enc.Bytes()
}
