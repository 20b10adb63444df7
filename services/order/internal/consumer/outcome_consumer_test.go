package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"brokerage/services/order/internal/service"
	"brokerage/services/order/internal/storage"
)

type fakeOutcomeStore struct {
	applied map[uuid.UUID]string
	err     error
}

func newFakeOutcomeStore() *fakeOutcomeStore {
	return &fakeOutcomeStore{applied: make(map[uuid.UUID]string)}
}

func (f *fakeOutcomeStore) ApplyOutcome(_ context.Context, id uuid.UUID, status string) (*storage.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.applied[id] = status
	return &storage.Order{ID: id, Status: status}, nil
}

func newTestConsumer(store OutcomeStore) *OutcomeConsumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOutcomeConsumer(store, service.NewMetrics(), logger)
}

func outcomeMessage(payload string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic:     "account.order.processed",
		Partition: 0,
		Offset:    3,
		Value:     []byte(payload),
	}
}

func TestHandleMessageAppliesOutcome(t *testing.T) {
	store := newFakeOutcomeStore()
	c := newTestConsumer(store)
	orderID := uuid.New()

	payload := fmt.Sprintf(`{"orderId":%q,"status":"MATCHED"}`, orderID)
	if err := c.HandleMessage(context.Background(), outcomeMessage(payload)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.applied[orderID] != storage.OrderStatusMatched {
		t.Fatalf("applied = %v", store.applied)
	}
}

func TestHandleMessageOverwritesOnRedelivery(t *testing.T) {
	store := newFakeOutcomeStore()
	c := newTestConsumer(store)
	orderID := uuid.New()

	for _, status := range []string{"MATCHED", "CANCELLED"} {
		payload := fmt.Sprintf(`{"orderId":%q,"status":%q}`, orderID, status)
		if err := c.HandleMessage(context.Background(), outcomeMessage(payload)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// The last verdict wins, even over a terminal status.
	if store.applied[orderID] != storage.OrderStatusCancelled {
		t.Fatalf("applied = %v, want last verdict CANCELLED", store.applied)
	}
}

func TestHandleMessageDropsBadEvents(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{`,
		"missing id":     `{"status":"MATCHED"}`,
		"unknown status": fmt.Sprintf(`{"orderId":%q,"status":"REJECTED"}`, uuid.New()),
		"malformed id":   `{"orderId":"not-a-uuid","status":"MATCHED"}`,
	}

	for name, payload := range cases {
		store := newFakeOutcomeStore()
		c := newTestConsumer(store)

		if err := c.HandleMessage(context.Background(), outcomeMessage(payload)); err != nil {
			t.Fatalf("%s: bad event must not propagate, got %v", name, err)
		}
		if len(store.applied) != 0 {
			t.Fatalf("%s: nothing may be applied", name)
		}
	}
}

func TestHandleMessageDropsUnknownOrder(t *testing.T) {
	store := newFakeOutcomeStore()
	store.err = storage.ErrNotFound
	c := newTestConsumer(store)

	payload := fmt.Sprintf(`{"orderId":%q,"status":"MATCHED"}`, uuid.New())
	if err := c.HandleMessage(context.Background(), outcomeMessage(payload)); err != nil {
		t.Fatalf("unknown order must not propagate, got %v", err)
	}
}

func TestHandleMessageDropsOnStoreFailure(t *testing.T) {
	store := newFakeOutcomeStore()
	store.err = errors.New("database down")
	c := newTestConsumer(store)

	payload := fmt.Sprintf(`{"orderId":%q,"status":"CANCELLED"}`, uuid.New())
	if err := c.HandleMessage(context.Background(), outcomeMessage(payload)); err != nil {
		t.Fatalf("store failure must not propagate, got %v", err)
	}
}
