package forum

import (
	"context"
	"strconv"
	"time"

	"github.com/agoradev/agora/pkg/cache"
	"github.com/agoradev/agora/pkg/log"
)

// Abuse quotas for the write endpoints that attract automation: login
// attempts and comment posting, counted per client within a fixed window.
const (
	LoginRateLimit    = 5
	CommentRateLimit  = 20
	RateLimitWindow   = 60 * time.Second
	LoginRatePrefix   = "login"
	CommentRatePrefix = "comment"
)

// Limiter enforces a fixed-window request quota. Hits are counted in the
// cache under "<prefix>:<identifier>", so with a Redis-backed cache the
// quota is shared across API processes. The limiter fails open: a cache
// error never blocks a request.
type Limiter struct {
	cache  cache.Cache
	prefix string
	limit  int
	window time.Duration
	logger *log.Logger
}

func NewLimiter(c cache.Cache, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		cache:  c,
		prefix: prefix,
		limit:  limit,
		window: window,
		logger: log.ForService("ratelimit"),
	}
}

// Allow reports whether identifier may proceed, recording the hit when it
// may. Requests over the quota are not recorded, so a blocked client's
// window is not extended by retrying.
func (l *Limiter) Allow(ctx context.Context, identifier string) bool {
	key := l.prefix + ":" + identifier

	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warnf("rate limit check for %s failed, allowing: %v", key, err)
		return true
	}
	if ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= l.limit {
			return false
		}
	}

	if _, err := l.cache.Incr(ctx, key, l.window); err != nil {
		l.logger.Warnf("rate limit count for %s failed: %v", key, err)
	}
	return true
}
