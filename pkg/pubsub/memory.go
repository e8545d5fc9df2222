package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// MemoryBroker is an in-process Broker used for tests and single-process
// deployments. Subscribers receive messages via buffered channels; if a
// subscriber's buffer is full the message is dropped for that subscriber
// only, so a slow consumer never backpressures publishers.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[string]map[*memorySubscription]struct{}),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, channel string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding message for channel %s: %w", channel, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("broker closed")
	}

	for sub := range b.subs[channel] {
		select {
		case sub.out <- data:
		default:
			// Drop for slow subscriber.
		}
	}

	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("broker closed")
	}

	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		out:     make(chan []byte, 64),
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}

	return sub, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	for channel, subs := range b.subs {
		for sub := range subs {
			close(sub.out)
		}
		delete(b.subs, channel)
	}

	return nil
}

func (b *MemoryBroker) unsubscribe(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if subs, ok := b.subs[sub.channel]; ok {
		if _, present := subs[sub]; present {
			delete(subs, sub)
			close(sub.out)
		}
	}
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	out     chan []byte
}

func (s *memorySubscription) C() <-chan []byte {
	return s.out
}

func (s *memorySubscription) Close() error {
	s.broker.unsubscribe(s)
	return nil
}
