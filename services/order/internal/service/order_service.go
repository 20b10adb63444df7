package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerage/libs/kafka"
	"brokerage/services/order/internal/storage"
)

var ErrInvalidInput = errors.New("invalid input")

type OrderStore interface {
	CreateOrder(ctx context.Context, order *storage.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*storage.Order, error)
	ListOrders(ctx context.Context, filter storage.OrderFilter) ([]storage.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, customerID string) (*storage.Order, error)
}

// orderChangeEvent mirrors the change-data-capture envelope the account
// service consumes. The order service emits it itself right after the insert
// commits, standing in for a capture connector on the orders table.
type orderChangeEvent struct {
	Op    string             `json:"op"`
	After orderChangePayload `json:"after"`
}

type orderChangePayload struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	AssetName  string          `json:"asset_name"`
	OrderSide  string          `json:"order_side"`
	Price      decimal.Decimal `json:"price"`
	Size       decimal.Decimal `json:"size"`
	Status     string          `json:"status"`
	CreateDate int64           `json:"create_date"`
}

type OrderService struct {
	store    OrderStore
	producer kafka.Publisher
	topic    string
	metrics  *Metrics
	logger   *slog.Logger
}

func NewOrderService(store OrderStore, producer kafka.Publisher, topic string, metrics *Metrics, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:    store,
		producer: producer,
		topic:    topic,
		metrics:  metrics,
		logger:   logger,
	}
}

type CreateOrderInput struct {
	CustomerID string
	AssetName  string
	Side       string
	Size       decimal.Decimal
	Price      decimal.Decimal
}

func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*storage.Order, error) {
	assetName := strings.ToUpper(strings.TrimSpace(input.AssetName))
	if assetName == "" {
		return nil, fmt.Errorf("%w: asset_name is required", ErrInvalidInput)
	}
	side := strings.ToUpper(strings.TrimSpace(input.Side))
	if side != storage.OrderSideBuy && side != storage.OrderSideSell {
		return nil, fmt.Errorf("%w: order_side must be BUY or SELL", ErrInvalidInput)
	}
	if !input.Size.IsPositive() {
		return nil, fmt.Errorf("%w: size must be positive", ErrInvalidInput)
	}
	if !input.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	order := &storage.Order{
		CustomerID: input.CustomerID,
		AssetName:  assetName,
		OrderSide:  side,
		Size:       input.Size,
		Price:      input.Price,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	s.logger.Info("order created",
		"order_id", order.ID, "customer_id", order.CustomerID,
		"asset_name", order.AssetName, "side", order.OrderSide)

	s.publishChange(ctx, order)
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID, customerID string) (*storage.Order, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, storage.ErrNotFound
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter storage.OrderFilter) ([]storage.Order, error) {
	return s.store.ListOrders(ctx, filter)
}

func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, customerID string) (*storage.Order, error) {
	order, err := s.store.CancelOrder(ctx, id, customerID)
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCancelled.Inc()
	s.logger.Info("order cancelled by customer", "order_id", order.ID, "customer_id", order.CustomerID)
	return order, nil
}

// publishChange is best-effort: the order is already committed and the API
// response must not depend on the broker. Only inserts are announced so the
// settlement side never sees an order twice.
func (s *OrderService) publishChange(ctx context.Context, order *storage.Order) {
	event := orderChangeEvent{
		Op: "c",
		After: orderChangePayload{
			ID:         order.ID.String(),
			CustomerID: order.CustomerID,
			AssetName:  order.AssetName,
			OrderSide:  order.OrderSide,
			Price:      order.Price,
			Size:       order.Size,
			Status:     order.Status,
			CreateDate: order.CreateDate.UnixMilli(),
		},
	}
	if _, _, err := s.producer.PublishJSON(ctx, s.topic, order.ID.String(), event); err != nil {
		s.logger.Error("failed to publish order change event",
			"order_id", order.ID, "error", err)
	}
}
