package publisher

import (
	"context"
	"log/slog"

	"brokerage/libs/kafka"
	"brokerage/services/account/internal/engine"
)

// OutcomePublisher emits settlement outcomes to the order-processed topic.
// Publishing is fire-and-forget: a broker failure is logged and the outcome
// is dropped, it never blocks or fails the settlement that produced it.
type OutcomePublisher struct {
	producer kafka.Publisher
	topic    string
	logger   *slog.Logger
}

func New(producer kafka.Publisher, topic string, logger *slog.Logger) *OutcomePublisher {
	return &OutcomePublisher{producer: producer, topic: topic, logger: logger}
}

func (p *OutcomePublisher) Publish(ctx context.Context, outcome engine.Outcome) {
	partition, offset, err := p.producer.PublishJSON(ctx, p.topic, outcome.OrderID, outcome)
	if err != nil {
		p.logger.Error("failed to publish order outcome, dropping it",
			"order_id", outcome.OrderID, "status", outcome.Status, "error", err)
		return
	}
	p.logger.Debug("published order outcome",
		"order_id", outcome.OrderID, "status", outcome.Status,
		"partition", partition, "offset", offset)
}
