package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"brokerage/services/order/internal/service"
	"brokerage/services/order/internal/storage"
)

// OrderProcessedEvent is the settlement verdict published by the account
// service.
type OrderProcessedEvent struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (e OrderProcessedEvent) Validate() error {
	if e.OrderID == "" {
		return errors.New("orderId is required")
	}
	if e.Status != storage.OrderStatusMatched && e.Status != storage.OrderStatusCancelled {
		return fmt.Errorf("unknown outcome status %q", e.Status)
	}
	return nil
}

type OutcomeStore interface {
	ApplyOutcome(ctx context.Context, id uuid.UUID, status string) (*storage.Order, error)
}

// OutcomeConsumer applies settlement verdicts to stored orders. The status
// write is unconditional, so redelivered or out-of-order verdicts simply
// overwrite. Undecodable events and unknown orders are logged and dropped.
type OutcomeConsumer struct {
	store   OutcomeStore
	metrics *service.Metrics
	logger  *slog.Logger
}

func NewOutcomeConsumer(store OutcomeStore, metrics *service.Metrics, logger *slog.Logger) *OutcomeConsumer {
	return &OutcomeConsumer{store: store, metrics: metrics, logger: logger}
}

func (c *OutcomeConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event OrderProcessedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn("dropping undecodable outcome event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		c.metrics.ConsumeFailures.Inc()
		return nil
	}
	if err := event.Validate(); err != nil {
		c.logger.Warn("dropping invalid outcome event",
			"topic", msg.Topic, "offset", msg.Offset, "error", err)
		c.metrics.ConsumeFailures.Inc()
		return nil
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		c.logger.Warn("dropping outcome event with malformed order id",
			"order_id", event.OrderID, "error", err)
		c.metrics.ConsumeFailures.Inc()
		return nil
	}

	order, err := c.store.ApplyOutcome(ctx, orderID, event.Status)
	if errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn("dropping outcome event for unknown order", "order_id", event.OrderID)
		c.metrics.ConsumeFailures.Inc()
		return nil
	}
	if err != nil {
		c.logger.Error("dropping outcome event, status update failed",
			"order_id", event.OrderID, "error", err)
		c.metrics.ConsumeFailures.Inc()
		return nil
	}

	c.metrics.OutcomesApplied.WithLabelValues(order.Status).Inc()
	c.logger.Info("outcome applied", "order_id", order.ID, "status", order.Status)
	return nil
}
