package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "gridarena:events"

// EventBus carries domain events between instances over Redis pub/sub.
type EventBus struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewEventBus(client *redis.Client, channel string, log *zap.Logger) *EventBus {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBus{client: client, channel: channel, log: log}
}

func (b *EventBus) Publish(ctx context.Context, ev domain.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed so that no event
// published after it returns is missed.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan domain.Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	out := make(chan domain.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("drop malformed event", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}
