// Package pubsub distributes reconciliation state changes over Redis so
// interested consumers (email pipeline, back office) can react without
// being part of the reconciliation transaction.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
)

const transitionChannel = "ledgersync:transition"

// TransitionEvent is the wire shape of one published state change.
type TransitionEvent struct {
	Entity         string `json:"entity"`
	EntityID       uint   `json:"entity_id"`
	CorrelationKey string `json:"correlation_key"`
	FromStatus     string `json:"from_status"`
	ToStatus       string `json:"to_status"`
	OccurredAt     int64  `json:"occurred_at"`
}

// TransitionEventHandler is a callback for consumed transition events.
type TransitionEventHandler func(ctx context.Context, event TransitionEvent)

// RedisTransitionBus publishes transition notifications over Redis Pub/Sub.
// It satisfies the reconciler's notifier contract: delivery is best effort
// and a failed publish never affects the reconciliation outcome.
type RedisTransitionBus struct {
	client *redis.Client
	logger logger.Interface
}

func NewRedisTransitionBus(client *redis.Client, logger logger.Interface) *RedisTransitionBus {
	return &RedisTransitionBus{
		client: client,
		logger: logger,
	}
}

func (b *RedisTransitionBus) NotifyTransition(ctx context.Context, n reconcileUsecases.TransitionNotification) error {
	event := TransitionEvent{
		Entity:         n.Entity,
		EntityID:       n.EntityID,
		CorrelationKey: n.CorrelationKey,
		FromStatus:     n.FromStatus,
		ToStatus:       n.ToStatus,
		OccurredAt:     n.OccurredAt.Unix(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transition event: %w", err)
	}

	if err := b.client.Publish(ctx, transitionChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish transition event: %w", err)
	}

	b.logger.Debugw("transition event published",
		"entity", n.Entity,
		"entity_id", n.EntityID,
		"to_status", n.ToStatus,
	)
	return nil
}

// Subscribe consumes transition events until the context is cancelled.
func (b *RedisTransitionBus) Subscribe(ctx context.Context, handler TransitionEventHandler) error {
	pubsub := b.client.Subscribe(ctx, transitionChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to transition channel: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event TransitionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("dropping malformed transition event", "error", err)
				continue
			}

			handler(ctx, event)
		}
	}
}
