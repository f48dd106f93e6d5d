package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"squadhub/pkg/redis"
)

// RedisBroker fans events out over Redis pub/sub so every API instance
// sees writes made by the others.
type RedisBroker struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBroker(client *redis.Client, log *zap.Logger) *RedisBroker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBroker{client: client, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := b.client.Publish(ctx, b.client.KeyBuilder.KeyFeedTopic(e.Topic), payload); err != nil {
		return fmt.Errorf("publish %s: %w", e.Topic, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = b.client.KeyBuilder.KeyFeedTopic(t)
	}

	ps, err := b.client.Subscribe(ctx, channels...)
	if err != nil {
		return nil, err
	}

	sub := newSubscription(func() {
		if err := ps.Close(); err != nil {
			b.log.Debug("feed unsubscribe", zap.Error(err))
		}
	})

	go func() {
		// Channel is closed by ps.Close
		for msg := range ps.Channel() {
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.log.Warn("dropping malformed feed event",
					zap.String("channel", msg.Channel),
					zap.Error(err))
				continue
			}
			sub.deliver(e)
		}
		b.log.Debug("feed subscription ended", zap.String("topics", strings.Join(topics, ",")))
	}()

	return sub, nil
}
