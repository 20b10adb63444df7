package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerage/services/order/internal/storage"
)

type fakeOrderStore struct {
	created   *storage.Order
	cancelErr error
	orders    map[uuid.UUID]*storage.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uuid.UUID]*storage.Order)}
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, order *storage.Order) error {
	order.ID = uuid.New()
	order.Status = storage.OrderStatusPending
	f.created = order
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderStore) GetOrderByID(_ context.Context, id uuid.UUID) (*storage.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) ListOrders(_ context.Context, _ storage.OrderFilter) ([]storage.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) CancelOrder(_ context.Context, id uuid.UUID, customerID string) (*storage.Order, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	order, ok := f.orders[id]
	if !ok || order.CustomerID != customerID {
		return nil, storage.ErrNotFound
	}
	order.Status = storage.OrderStatusCancelled
	return order, nil
}

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
	return 0, 1, f.err
}

func (f *fakeProducer) Close() error { return nil }

func newService(store OrderStore, producer *fakeProducer) *OrderService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrderService(store, producer, "orderdb.public.orders", NewMetrics(), logger)
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerID: "cust-1",
		AssetName:  "btc",
		Side:       "buy",
		Size:       decimal.RequireFromString("2"),
		Price:      decimal.RequireFromString("100.5"),
	}
}

func TestCreateOrderNormalizesAndPublishes(t *testing.T) {
	store := newFakeOrderStore()
	producer := &fakeProducer{}
	svc := newService(store, producer)

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.AssetName != "BTC" || order.OrderSide != storage.OrderSideBuy {
		t.Fatalf("order = %+v, want normalized BTC/BUY", order)
	}
	if order.Status != storage.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", order.Status)
	}

	if producer.calls != 1 {
		t.Fatalf("publish calls = %d, want 1", producer.calls)
	}
	if producer.key != order.ID.String() {
		t.Fatalf("publish key = %s, want order id", producer.key)
	}

	raw, err := json.Marshal(producer.value)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	var event struct {
		Op    string `json:"op"`
		After struct {
			ID         string `json:"id"`
			CustomerID string `json:"customer_id"`
			OrderSide  string `json:"order_side"`
			Status     string `json:"status"`
			CreateDate int64  `json:"create_date"`
		} `json:"after"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Op != "c" || event.After.ID != order.ID.String() || event.After.Status != "PENDING" {
		t.Fatalf("event = %s", raw)
	}
	if event.After.CreateDate == 0 {
		t.Fatal("event must carry the create date in epoch millis")
	}
}

func TestCreateOrderSurvivesBrokerFailure(t *testing.T) {
	store := newFakeOrderStore()
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	svc := newService(store, producer)

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("broker failure must not fail the create, got %v", err)
	}
	if order == nil || order.Status != storage.OrderStatusPending {
		t.Fatalf("order = %+v", order)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	cases := map[string]func(*CreateOrderInput){
		"missing asset":  func(in *CreateOrderInput) { in.AssetName = " " },
		"unknown side":   func(in *CreateOrderInput) { in.Side = "HOLD" },
		"zero size":      func(in *CreateOrderInput) { in.Size = decimal.Zero },
		"negative size":  func(in *CreateOrderInput) { in.Size = decimal.RequireFromString("-1") },
		"zero price":     func(in *CreateOrderInput) { in.Price = decimal.Zero },
		"negative price": func(in *CreateOrderInput) { in.Price = decimal.RequireFromString("-0.5") },
	}

	for name, mutate := range cases {
		store := newFakeOrderStore()
		producer := &fakeProducer{}
		svc := newService(store, producer)

		input := validInput()
		mutate(&input)

		if _, err := svc.Create(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
		if store.created != nil {
			t.Fatalf("%s: invalid order must not be persisted", name)
		}
		if producer.calls != 0 {
			t.Fatalf("%s: invalid order must not be published", name)
		}
	}
}

func TestGetScopesToCustomer(t *testing.T) {
	store := newFakeOrderStore()
	svc := newService(store, &fakeProducer{})

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(context.Background(), order.ID, "cust-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign customer, got %v", err)
	}

	got, err := svc.Get(context.Background(), order.ID, "cust-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != order.ID {
		t.Fatalf("got order %s, want %s", got.ID, order.ID)
	}
}

func TestCancelPropagatesInvalidStatus(t *testing.T) {
	store := newFakeOrderStore()
	store.cancelErr = storage.ErrInvalidStatus
	svc := newService(store, &fakeProducer{})

	_, err := svc.Cancel(context.Background(), uuid.New(), "cust-1")
	if !errors.Is(err, storage.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
