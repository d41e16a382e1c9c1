package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/greenbasket/internal/domain/order"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublish(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{w: w}
	at := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), order.Event{
		Type:    order.EventPlaced,
		OrderID: "o1",
		UserID:  "u1",
		Items:   []order.Item{{ProductID: "p1", Quantity: 2}},
		At:      at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "o1", string(msg.Key))
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "order.placed", body["type"])
	assert.Equal(t, "u1", body["userId"])
	assert.Equal(t, "2025-05-04T10:00:00Z", body["at"])
	assert.NotContains(t, body, "rating")
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"productId": "p1", "quantity": float64(2)}, items[0])
}

func TestPublish_Rated(t *testing.T) {
	var body map[string]any
	require.NoError(t, json.Unmarshal(EncodeEvent(order.Event{
		Type: order.EventRated, OrderID: "o1", Rating: 5,
	}), &body))
	assert.Equal(t, float64(5), body["rating"])
	assert.NotContains(t, body, "items")
}

func TestPublish_Error(t *testing.T) {
	p := &Publisher{w: &recordingWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), order.Event{Type: order.EventPlaced, OrderID: "o1"})
	require.Error(t, err)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, ParseBrokers(""))

	_, err := NewPublisher(nil, "")
	require.Error(t, err)
}
