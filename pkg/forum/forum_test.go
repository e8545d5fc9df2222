package forum

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agoradev/agora/pkg/cache"
	"github.com/agoradev/agora/pkg/pubsub"
	"github.com/agoradev/agora/pkg/realtime"
	"github.com/agoradev/agora/pkg/storage"
)

type testEnv struct {
	store  *storage.Storage
	cache  *cache.MemoryCache
	broker *pubsub.MemoryBroker
	hub    *realtime.Hub
	svc    *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "agora.db"))
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	broker := pubsub.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	memCache := cache.NewMemoryCache()
	hub := realtime.NewHub()
	svc := NewServices(store, memCache, hub, broker, time.Hour)

	if err := svc.Auth.Bootstrap(context.Background(), "", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	return &testEnv{store: store, cache: memCache, broker: broker, hub: hub, svc: svc}
}

// recordingSender is an in-memory realtime.Sender used to mark a user
// online on the hub and capture anything pushed to them.
type recordingSender struct {
	mu       sync.Mutex
	messages []any
}

func (s *recordingSender) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, v)
	return nil
}

func (s *recordingSender) Close() error { return nil }

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

var testUserSeq int

// user creates an active account with the given name and roles, bypassing
// registration so tests do not pay the password hashing cost.
func (e *testEnv) user(t *testing.T, name string, roles ...string) *storage.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{storage.RoleMember}
	}
	testUserSeq++
	u, err := e.store.CreateUser(
		fmt.Sprintf("%s%d@example.com", name, testUserSeq), "hash", name, roles...)
	if err != nil {
		t.Fatalf("creating user %s: %v", name, err)
	}
	return u
}

func (e *testEnv) thread(t *testing.T, author *storage.User, title string) *storage.ThreadView {
	t.Helper()
	view, err := e.svc.Threads.Create(context.Background(), author, title, "about "+title, nil)
	if err != nil {
		t.Fatalf("creating thread: %v", err)
	}
	return view
}
