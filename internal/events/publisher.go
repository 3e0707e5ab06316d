// Package events publishes transaction lifecycle events to Redis pub/sub.
// Delivery to end clients is handled elsewhere; this side only produces.
package events

import (
	"context"
	"encoding/json"
	"time"

	"payments-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ChannelTransactionSettled  = "payments:transaction:settled"
	ChannelTransactionHeld     = "payments:transaction:held"
	ChannelTransactionFailed   = "payments:transaction:failed"
	ChannelTransactionRefunded = "payments:transaction:refunded"
)

// TransactionEvent is the payload fanned out on state changes.
type TransactionEvent struct {
	EventType   string                  `json:"event_type"`
	Reference   string                  `json:"reference"`
	Type        domain.TransactionType  `json:"type"`
	State       domain.TransactionState `json:"state"`
	AmountCents int64                   `json:"amount_cents"`
	UserID      string                  `json:"user_id"`
	Reason      string                  `json:"reason,omitempty"`
	OccurredAt  time.Time               `json:"occurred_at"`
	Timestamp   int64                   `json:"timestamp"`
}

type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewPublisher returns a publisher over the given Redis client. A nil
// client yields a disabled publisher whose methods are no-ops, so the
// service runs without Redis configured.
func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

// StateChanged publishes a lifecycle event for the transaction. Publishing
// is best-effort: failures are logged, never propagated into the
// reconciliation path.
func (p *Publisher) StateChanged(ctx context.Context, tx *domain.Transaction, reason string) {
	if p == nil || p.rdb == nil {
		return
	}

	var channel string
	switch tx.State {
	case domain.StateSettled:
		channel = ChannelTransactionSettled
	case domain.StateHeld:
		channel = ChannelTransactionHeld
	case domain.StateFailed:
		channel = ChannelTransactionFailed
	case domain.StateRefunded:
		channel = ChannelTransactionRefunded
	default:
		return
	}

	now := time.Now()
	event := TransactionEvent{
		EventType:   "transaction." + string(tx.State),
		Reference:   tx.Reference,
		Type:        tx.Type,
		State:       tx.State,
		AmountCents: tx.AmountCents,
		UserID:      tx.PayerID,
		Reason:      reason,
		OccurredAt:  now,
		Timestamp:   now.Unix(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal transaction event", zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.logger.Warn("failed to publish transaction event",
			zap.String("channel", channel),
			zap.String("reference", tx.Reference),
			zap.Error(err))
	}
}
