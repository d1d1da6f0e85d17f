package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// TriggerProcessor evaluates a trigger context and executes what it selects.
type TriggerProcessor interface {
	ProcessTrigger(ctx context.Context, tc domain.TriggerContext) (domain.EvaluationResult, []*domain.ExecuteResult)
}

// BalanceConsumer turns wallet balance events into trigger evaluations.
type BalanceConsumer struct {
	subscriber domain.SubscriberPort
	processor  TriggerProcessor
	topic      string
	groupID    string
	logger     *slog.Logger
}

func NewBalanceConsumer(subscriber domain.SubscriberPort, processor TriggerProcessor, topic, groupID string, logger *slog.Logger) *BalanceConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceConsumer{
		subscriber: subscriber,
		processor:  processor,
		topic:      topic,
		groupID:    groupID,
		logger:     logger.With("component", "balance_consumer", "topic", topic),
	}
}

// Run blocks until the subscription channel closes.
func (c *BalanceConsumer) Run(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, c.topic, c.groupID)
	if err != nil {
		return err
	}
	c.logger.Info("consuming balance events")
	for msg := range msgs {
		if err := c.Handle(ctx, msg); err != nil {
			c.logger.Warn("dropping balance event", "key", string(msg.Key), "error", err)
		}
	}
	c.logger.Info("balance event stream closed")
	return nil
}

// Handle decodes one message and processes its trigger context. Malformed
// events are rejected without touching the rule store.
func (c *BalanceConsumer) Handle(ctx context.Context, msg domain.Message) error {
	var event domain.BalanceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.Validationf("malformed balance event: %v", err)
	}
	if event.TenantID == "" {
		return domain.Validationf("balance event has no tenant_id")
	}

	evaluation, results := c.processor.ProcessTrigger(ctx, event.TriggerContext())
	if !evaluation.ShouldTrigger {
		c.logger.Debug("no rule triggered",
			"tenant_id", event.TenantID,
			"wallet_id", event.WalletID,
			"reason", evaluation.Reason)
		return nil
	}
	for _, result := range results {
		c.logger.Info("triggered settlement processed",
			"tenant_id", event.TenantID,
			"wallet_id", event.WalletID,
			"execution_id", result.ExecutionID,
			"status", result.Status,
			"error_code", result.ErrorCode)
	}
	return nil
}
