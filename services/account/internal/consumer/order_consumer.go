package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"brokerage/services/account/internal/engine"
	"brokerage/services/account/internal/event"
	"brokerage/services/account/internal/service"
)

// Settler decides the outcome of a received order.
type Settler interface {
	Process(ctx context.Context, received event.ReceivedOrder) (engine.Outcome, error)
}

// OutcomePublisher emits a settlement outcome downstream.
type OutcomePublisher interface {
	Publish(ctx context.Context, outcome engine.Outcome)
}

// OrderConsumer handles order change events from the order database topic.
// Every failure mode is logged and the message dropped; nothing is retried
// and nothing blocks the partition.
type OrderConsumer struct {
	parser    *event.Parser
	settler   Settler
	publisher OutcomePublisher
	metrics   *service.Metrics
	logger    *slog.Logger
}

func NewOrderConsumer(parser *event.Parser, settler Settler, publisher OutcomePublisher, metrics *service.Metrics, logger *slog.Logger) *OrderConsumer {
	return &OrderConsumer{
		parser:    parser,
		settler:   settler,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

func (c *OrderConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	received, err := c.parser.Parse(msg.Value)
	if err != nil {
		var parseErr *event.ParseError
		if errors.As(err, &parseErr) {
			c.logger.Warn("dropping unparseable order event",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
				"reason", parseErr.Reason)
		} else {
			c.logger.Warn("dropping order event",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset,
				"error", err)
		}
		c.metrics.ConsumeFailures.Inc()
		return nil
	}

	order := received.Order()
	start := time.Now()
	outcome, err := c.settler.Process(ctx, received)
	if err != nil {
		c.logger.Error("dropping order event, settlement failed",
			"order_id", order.ID, "customer_id", order.CustomerID, "error", err)
		c.metrics.ConsumeFailures.Inc()
		return nil
	}
	c.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	c.metrics.OrdersSettled.WithLabelValues(outcome.Status).Inc()

	c.logger.Info("order settled",
		"order_id", outcome.OrderID, "customer_id", order.CustomerID, "status", outcome.Status)

	c.publisher.Publish(ctx, outcome)
	return nil
}
