package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"

	"brokerage/services/account/internal/engine"
	"brokerage/services/account/internal/event"
	"brokerage/services/account/internal/service"
)

type fakeSettler struct {
	outcome engine.Outcome
	err     error
	calls   int
}

func (f *fakeSettler) Process(context.Context, event.ReceivedOrder) (engine.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

type fakePublisher struct {
	published []engine.Outcome
}

func (f *fakePublisher) Publish(_ context.Context, outcome engine.Outcome) {
	f.published = append(f.published, outcome)
}

func newTestConsumer(settler *fakeSettler, pub *fakePublisher) *OrderConsumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrderConsumer(event.NewParser(), settler, pub, service.NewMetrics(), logger)
}

func orderMessage(payload string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic:     "orderdb.public.orders",
		Partition: 0,
		Offset:    7,
		Value:     []byte(payload),
	}
}

const buyEventPayload = `{
	"op": "c",
	"after": {
		"id": "ord-1",
		"customer_id": "cust-1",
		"asset_name": "BTC",
		"order_side": "BUY",
		"price": "100.5",
		"size": "2",
		"status": "PENDING",
		"create_date": 1700000000000
	}
}`

func TestHandleMessagePublishesOutcome(t *testing.T) {
	settler := &fakeSettler{outcome: engine.Matched("ord-1")}
	pub := &fakePublisher{}
	c := newTestConsumer(settler, pub)

	if err := c.HandleMessage(context.Background(), orderMessage(buyEventPayload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settler.calls != 1 {
		t.Fatalf("settler calls = %d, want 1", settler.calls)
	}
	if len(pub.published) != 1 || pub.published[0].Status != engine.StatusMatched {
		t.Fatalf("published = %+v", pub.published)
	}
}

func TestHandleMessageDropsUnparseableEvent(t *testing.T) {
	settler := &fakeSettler{}
	pub := &fakePublisher{}
	c := newTestConsumer(settler, pub)

	if err := c.HandleMessage(context.Background(), orderMessage(`{"op":"d"}`)); err != nil {
		t.Fatalf("parse failure must not propagate, got %v", err)
	}
	if settler.calls != 0 {
		t.Fatalf("settler must not run for unparseable events")
	}
	if len(pub.published) != 0 {
		t.Fatalf("nothing may be published for unparseable events")
	}
}

func TestHandleMessageDropsEventOnSettlementFailure(t *testing.T) {
	settler := &fakeSettler{err: errors.New("database down")}
	pub := &fakePublisher{}
	c := newTestConsumer(settler, pub)

	if err := c.HandleMessage(context.Background(), orderMessage(buyEventPayload)); err != nil {
		t.Fatalf("settlement failure must not propagate, got %v", err)
	}
	if len(pub.published) != 0 {
		t.Fatalf("no outcome may be published when settlement fails")
	}
}

func TestHandleMessagePublishesCancellation(t *testing.T) {
	settler := &fakeSettler{outcome: engine.Cancelled("ord-1")}
	pub := &fakePublisher{}
	c := newTestConsumer(settler, pub)

	if err := c.HandleMessage(context.Background(), orderMessage(buyEventPayload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0].Status != engine.StatusCancelled {
		t.Fatalf("published = %+v", pub.published)
	}
}
