package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroker bridges events across processes via Redis pub/sub. The broker
// operates on a client owned by the caller, typically shared with the cache;
// closing that client terminates every subscription.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker wraps client. The caller keeps ownership of the client and
// tears the broker down by closing it.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding message for channel %s: %w", channel, err)
	}

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publishing to channel %s: %w", channel, err)
	}

	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed so startup failures surface
	// before the listener goroutine is started.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to channel %s: %w", channel, err)
	}

	sub := &redisSubscription{
		ps:  ps,
		out: make(chan []byte, 64),
	}
	go sub.pump(ps.Channel())

	return sub, nil
}

// Close is a no-op: the client is caller-owned and may still back other
// components.
func (b *RedisBroker) Close() error {
	return nil
}

type redisSubscription struct {
	ps  *redis.PubSub
	out chan []byte
}

func (s *redisSubscription) pump(in <-chan *redis.Message) {
	defer close(s.out)
	for msg := range in {
		s.out <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) C() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}
