package pubsub

// Package pubsub abstracts the broker used to bridge realtime events across
// API processes. Each event family has its own named channel; subscribers
// receive raw JSON payloads in per-channel publish order. Delivery is
// at-most-once best effort; there is no replay.

import "context"

// Channel names, one per event family. Every broker implementation must
// support at least these as independently subscribable channels.
const (
	ChannelComments      = "comments_channel"
	ChannelThreads       = "threads_channel"
	ChannelLikes         = "likes_channel"
	ChannelNotifications = "notifications_channel"
	ChannelUsers         = "users_channel"
	ChannelModeration    = "moderation_channel"
)

// Channels lists every broadcast channel a serving process subscribes to at
// boot.
var Channels = []string{
	ChannelComments,
	ChannelThreads,
	ChannelLikes,
	ChannelNotifications,
	ChannelUsers,
	ChannelModeration,
}

// Broker publishes JSON-encoded messages to named channels and hands out
// subscriptions that stream raw payloads.
type Broker interface {
	// Publish JSON-encodes message and sends it to every subscriber of
	// channel. Publish never blocks on slow subscribers.
	Publish(ctx context.Context, channel string, message any) error

	// Subscribe returns a subscription for channel. The returned
	// subscription stays valid until closed or the broker shuts down.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Close releases broker resources and terminates all subscriptions.
	Close() error
}

// Subscription streams raw message payloads for a single channel. The
// channel returned by C is closed when the subscription ends.
type Subscription interface {
	C() <-chan []byte
	Close() error
}
