package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"brokerage/services/account/internal/engine"
)

type fakeProducer struct {
	topic string
	key   string
	value any
	err   error
	calls int
}

func (f *fakeProducer) PublishJSON(_ context.Context, topic, key string, value any) (int32, int64, error) {
	f.calls++
	f.topic = topic
	f.key = key
	f.value = value
	return 0, 42, f.err
}

func (f *fakeProducer) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishUsesOrderIDAsKey(t *testing.T) {
	producer := &fakeProducer{}
	pub := New(producer, "account.order.processed", discardLogger())

	pub.Publish(context.Background(), engine.Matched("ord-1"))

	if producer.topic != "account.order.processed" {
		t.Fatalf("topic = %s", producer.topic)
	}
	if producer.key != "ord-1" {
		t.Fatalf("key = %s, want ord-1", producer.key)
	}
}

func TestPublishedOutcomeWireShape(t *testing.T) {
	producer := &fakeProducer{}
	pub := New(producer, "account.order.processed", discardLogger())

	pub.Publish(context.Background(), engine.Cancelled("ord-2"))

	raw, err := json.Marshal(producer.value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["orderId"] != "ord-2" || decoded["status"] != "CANCELLED" {
		t.Fatalf("wire payload = %s", raw)
	}
	if len(decoded) != 2 {
		t.Fatalf("unexpected extra fields in payload %s", raw)
	}
}

func TestPublishDropsOutcomeOnBrokerError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	pub := New(producer, "account.order.processed", discardLogger())

	pub.Publish(context.Background(), engine.Matched("ord-3"))

	if producer.calls != 1 {
		t.Fatalf("publish attempts = %d, want exactly one", producer.calls)
	}
}
