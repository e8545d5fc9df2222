package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/pubsub"
)

// Listener supervises one long-lived consumer goroutine per broadcast
// channel. Messages from the broker are decoded defensively and routed to
// the hub: payloads on the notifications channel carrying a nested
// data.user_id are delivered to that user only, everything else is broadcast
// to all connections.
type Listener struct {
	hub    *Hub
	broker pubsub.Broker
	logger *log.Logger

	wg   sync.WaitGroup
	subs []pubsub.Subscription
}

func NewListener(hub *Hub, broker pubsub.Broker) *Listener {
	return &Listener{
		hub:    hub,
		broker: broker,
		logger: log.ForService("realtime"),
	}
}

// Start subscribes to every broadcast channel and spawns one consumer
// goroutine per subscription. A subscribe failure aborts startup: without
// the listeners the realtime subsystem would silently be absent.
func (l *Listener) Start(ctx context.Context) error {
	for _, channel := range pubsub.Channels {
		sub, err := l.broker.Subscribe(ctx, channel)
		if err != nil {
			l.closeSubs()
			return fmt.Errorf("subscribing to %s: %w", channel, err)
		}
		l.subs = append(l.subs, sub)

		l.wg.Add(1)
		go l.consume(ctx, channel, sub)
	}

	l.logger.Infof("listening on %d broadcast channels", len(l.subs))
	return nil
}

// Stop closes all subscriptions and waits for every consumer goroutine to
// finish. No listener survives past shutdown.
func (l *Listener) Stop() {
	l.closeSubs()
	l.wg.Wait()
}

func (l *Listener) closeSubs() {
	for _, sub := range l.subs {
		_ = sub.Close()
	}
	l.subs = nil
}

func (l *Listener) consume(ctx context.Context, channel string, sub pubsub.Subscription) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.C():
			if !ok {
				// The subscription died. Fatal to this task, not the
				// process; the supervisor may restart us.
				if ctx.Err() == nil {
					l.logger.Errorf("subscription to %s terminated", channel)
				}
				return
			}
			l.route(channel, DecodePayload(raw))
		}
	}
}

func (l *Listener) route(channel string, payload map[string]any) {
	if channel == pubsub.ChannelNotifications {
		if userID, ok := notificationRecipient(payload); ok {
			l.logger.Debugf("targeted %s event for user %d", channel, userID)
			l.hub.SendToUser(userID, payload)
			return
		}
	}

	l.logger.Debugf("broadcasting %s event", channel)
	l.hub.Broadcast(payload)
}

// notificationRecipient extracts data.user_id from a decoded notifications
// payload. JSON numbers arrive as float64.
func notificationRecipient(payload map[string]any) (int64, bool) {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return 0, false
	}

	switch id := data["user_id"].(type) {
	case float64:
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	default:
		return 0, false
	}
}
