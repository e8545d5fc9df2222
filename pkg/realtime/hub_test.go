package realtime

import (
	"errors"
	"sync"
	"testing"
)

// fakeSender records delivered messages and can be told to fail.
type fakeSender struct {
	mu       sync.Mutex
	messages []any
	fail     bool
	closed   bool
}

func (f *fakeSender) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("write failed")
	}
	f.messages = append(f.messages, v)
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func TestHubConnectDisconnect(t *testing.T) {
	hub := NewHub()
	a := &fakeSender{}
	b := &fakeSender{}

	hub.Connect(a, 1)
	hub.Connect(b, 1)

	if !hub.IsUserOnline(1) {
		t.Fatal("user 1 should be online")
	}
	if got := hub.ConnectionCount(); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}
	if got := hub.OnlineUserCount(); got != 1 {
		t.Fatalf("expected 1 online user, got %d", got)
	}

	hub.Disconnect(a)
	if !hub.IsUserOnline(1) {
		t.Fatal("user 1 should still be online with one connection left")
	}

	hub.Disconnect(b)
	if hub.IsUserOnline(1) {
		t.Fatal("user 1 should be offline")
	}
	if got := hub.ConnectionCount(); got != 0 {
		t.Fatalf("expected 0 connections, got %d", got)
	}

	// Disconnecting again must be a no-op.
	hub.Disconnect(b)
	if got := hub.OnlineUserCount(); got != 0 {
		t.Fatalf("expected 0 online users, got %d", got)
	}
}

func TestHubSendToUserReachesAllDevices(t *testing.T) {
	hub := NewHub()
	tab1 := &fakeSender{}
	tab2 := &fakeSender{}
	other := &fakeSender{}

	hub.Connect(tab1, 7)
	hub.Connect(tab2, 7)
	hub.Connect(other, 8)

	hub.SendToUser(7, "hello")

	if tab1.count() != 1 || tab2.count() != 1 {
		t.Fatalf("both connections of user 7 should receive the message, got %d/%d",
			tab1.count(), tab2.count())
	}
	if other.count() != 0 {
		t.Fatal("user 8 must not receive a message targeted at user 7")
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	a := &fakeSender{}
	b := &fakeSender{}

	hub.Connect(a, 1)
	hub.Connect(b, 2)

	hub.Broadcast("event")

	if a.count() != 1 || b.count() != 1 {
		t.Fatalf("all connections should receive a broadcast, got %d/%d", a.count(), b.count())
	}
}

func TestHubPrunesDeadConnections(t *testing.T) {
	hub := NewHub()
	dead := &fakeSender{fail: true}
	live := &fakeSender{}

	hub.Connect(dead, 1)
	hub.Connect(live, 2)

	hub.Broadcast("event")

	if hub.IsUserOnline(1) {
		t.Fatal("dead connection should have been pruned on broadcast")
	}
	if !dead.closed {
		t.Fatal("pruned connection should be closed")
	}
	if !hub.IsUserOnline(2) {
		t.Fatal("healthy connection must survive")
	}

	hub.Connect(&fakeSender{fail: true}, 3)
	hub.SendToUser(3, "direct")
	if hub.IsUserOnline(3) {
		t.Fatal("dead connection should have been pruned on targeted send")
	}
}
