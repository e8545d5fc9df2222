package forum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agoradev/agora/pkg/cache"
)

func TestLimiterBlocksOverQuota(t *testing.T) {
	l := NewLimiter(cache.NewMemoryCache(), LoginRatePrefix, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "10.0.0.1") {
		t.Fatal("request over the quota should be blocked")
	}
	if !l.Allow(ctx, "10.0.0.2") {
		t.Fatal("other clients must not share the quota")
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	l := NewLimiter(cache.NewMemoryCache(), CommentRatePrefix, 1, 20*time.Millisecond)
	ctx := context.Background()

	if !l.Allow(ctx, "10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if l.Allow(ctx, "10.0.0.1") {
		t.Fatal("second request in the window should be blocked")
	}

	time.Sleep(40 * time.Millisecond)
	if !l.Allow(ctx, "10.0.0.1") {
		t.Fatal("request after the window should pass")
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func (failingCache) SetTTL(context.Context, string, string, time.Duration) error {
	return errors.New("backend down")
}

func (failingCache) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("backend down")
}

func (failingCache) Delete(context.Context, ...string) error {
	return errors.New("backend down")
}

func (failingCache) DeletePrefix(context.Context, string) error {
	return errors.New("backend down")
}

func TestLimiterFailsOpen(t *testing.T) {
	l := NewLimiter(failingCache{}, LoginRatePrefix, 1, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "10.0.0.1") {
			t.Fatal("backend failures must never block requests")
		}
	}
}
