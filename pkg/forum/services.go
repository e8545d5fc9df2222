package forum

import (
	"time"

	"github.com/agoradev/agora/pkg/cache"
	"github.com/agoradev/agora/pkg/pubsub"
	"github.com/agoradev/agora/pkg/realtime"
	"github.com/agoradev/agora/pkg/storage"
)

// Services bundles every forum service wired against one storage, cache,
// hub and broker.
type Services struct {
	Auth          *Auth
	Threads       *Threads
	Comments      *Comments
	Likes         *Likes
	Mentions      *Mentions
	Notifications *Notifications
	Moderation    *Moderation
	Users         *Users
	Search        *Search
	Emitter       *Emitter

	// Per-client abuse quotas for the login and comment endpoints.
	LoginLimiter   *Limiter
	CommentLimiter *Limiter
}

func NewServices(store *storage.Storage, c cache.Cache, hub *realtime.Hub, broker pubsub.Broker, sessionTTL time.Duration) *Services {
	emitter := NewEmitter(hub, broker)
	notifications := NewNotifications(store, c, hub, emitter)
	mentions := NewMentions(store)
	moderation := NewModeration(store, emitter)
	threads := NewThreads(store, c, emitter, mentions, notifications, moderation)

	return &Services{
		Auth:          NewAuth(store, emitter, sessionTTL),
		Threads:       threads,
		Comments:      NewComments(store, emitter, threads, mentions, notifications, moderation),
		Likes:         NewLikes(store, emitter, threads, notifications),
		Mentions:      mentions,
		Notifications: notifications,
		Moderation:    moderation,
		Users:         NewUsers(store, emitter, notifications),
		Search:        NewSearch(store),
		Emitter:       emitter,

		LoginLimiter:   NewLimiter(c, LoginRatePrefix, LoginRateLimit, RateLimitWindow),
		CommentLimiter: NewLimiter(c, CommentRatePrefix, CommentRateLimit, RateLimitWindow),
	}
}
