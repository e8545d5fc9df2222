package forum

import (
	"context"
	"testing"
	"time"

	"github.com/agoradev/agora/pkg/pubsub"
)

func notificationInput(userID int64, actorID *int64) CreateInput {
	return CreateInput{
		UserID:     userID,
		ActorID:    actorID,
		Type:       "LIKE",
		Title:      "New like on your thread",
		Message:    "Someone liked your thread.",
		EntityType: "thread",
		EntityID:   1,
	}
}

func TestNotificationDedupWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	actor := env.user(t, "actor")

	first, err := env.svc.Notifications.Create(ctx, notificationInput(recipient.ID, &actor.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := env.svc.Notifications.Create(ctx, notificationInput(recipient.ID, &actor.ID))
	if err != nil {
		t.Fatalf("create duplicate: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("duplicate create should return the existing row, got %d and %d", first.ID, second.ID)
	}

	count, err := env.store.CountUserNotifications(recipient.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored notification, got %d", count)
	}
}

func TestNotificationDedupDistinguishesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	actor := env.user(t, "actor")
	other := env.user(t, "other")

	base := notificationInput(recipient.ID, &actor.ID)
	if _, err := env.svc.Notifications.Create(ctx, base); err != nil {
		t.Fatalf("create: %v", err)
	}

	differentActor := base
	differentActor.ActorID = &other.ID
	differentType := base
	differentType.Type = "REPLY"
	differentEntity := base
	differentEntity.EntityID = 2
	nilActor := base
	nilActor.ActorID = nil

	for _, in := range []CreateInput{differentActor, differentType, differentEntity, nilActor} {
		if _, err := env.svc.Notifications.Create(ctx, in); err != nil {
			t.Fatalf("create variant: %v", err)
		}
	}

	count, err := env.store.CountUserNotifications(recipient.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Fatalf("each distinct tuple should produce its own row, got %d", count)
	}
}

func TestNotificationDedupIgnoresReadRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	actor := env.user(t, "actor")

	first, err := env.svc.Notifications.Create(ctx, notificationInput(recipient.ID, &actor.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.Notifications.MarkRead(ctx, recipient.ID, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	second, err := env.svc.Notifications.Create(ctx, notificationInput(recipient.ID, &actor.ID))
	if err != nil {
		t.Fatalf("create after read: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("a read notification must not suppress a new one")
	}
}

func TestUnreadCountInvalidatedByMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	actor := env.user(t, "actor")

	in := notificationInput(recipient.ID, &actor.ID)
	if _, err := env.svc.Notifications.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}
	in.Type = "REPLY"
	if _, err := env.svc.Notifications.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	count, err := env.svc.Notifications.UnreadCount(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	updated, err := env.svc.Notifications.MarkAllRead(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 rows updated, got %d", updated)
	}

	// The cached count must not survive the bulk update.
	count, err = env.svc.Notifications.UnreadCount(ctx, recipient.ID)
	if err != nil {
		t.Fatalf("unread count after mark all: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread after mark all read, got %d", count)
	}
}

func TestNotificationListCacheInvalidatedByCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	actor := env.user(t, "actor")

	in := notificationInput(recipient.ID, &actor.ID)
	if _, err := env.svc.Notifications.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := env.svc.Notifications.List(ctx, recipient.ID, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected total 1, got %d", result.Total)
	}

	in.Type = "MENTION"
	if _, err := env.svc.Notifications.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err = env.svc.Notifications.List(ctx, recipient.ID, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 2 || len(result.Items) != 2 {
		t.Fatalf("stale page served after create: total=%d items=%d", result.Total, len(result.Items))
	}
}

func TestNotificationListOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	actor := env.user(t, "actor")

	in := notificationInput(recipient.ID, &actor.ID)
	types := []string{"LIKE", "REPLY", "MENTION"}
	for _, typ := range types {
		in.Type = typ
		if _, err := env.svc.Notifications.Create(ctx, in); err != nil {
			t.Fatalf("create %s: %v", typ, err)
		}
	}

	result, err := env.svc.Notifications.List(ctx, recipient.ID, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}
	// Newest first; same created_at second ties break on higher id.
	for i := 1; i < len(result.Items); i++ {
		prev, cur := result.Items[i-1], result.Items[i]
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Fatal("items not ordered newest first")
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID > prev.ID {
			t.Fatal("id tiebreak not descending")
		}
	}
}

func TestMarkReadEnforcesOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	intruder := env.user(t, "intruder")
	actor := env.user(t, "actor")

	n, err := env.svc.Notifications.Create(ctx, notificationInput(recipient.ID, &actor.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.svc.Notifications.MarkRead(ctx, intruder.ID, n.ID); err == nil {
		t.Fatal("marking another user's notification should fail")
	}

	updated, err := env.svc.Notifications.MarkRead(ctx, recipient.ID, n.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !updated.IsRead {
		t.Fatal("notification should be read")
	}
}

func TestCreatePublishesOnlyForOnlineRecipient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	recipient := env.user(t, "recipient")
	actor := env.user(t, "actor")

	sub, err := env.broker.Subscribe(ctx, pubsub.ChannelNotifications)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Offline: stored but not pushed.
	if _, err := env.svc.Notifications.Create(ctx, notificationInput(recipient.ID, &actor.ID)); err != nil {
		t.Fatalf("create offline: %v", err)
	}
	select {
	case raw := <-sub.C():
		t.Fatalf("no publish expected for offline recipient, got %s", raw)
	case <-time.After(50 * time.Millisecond):
	}

	count, err := env.store.CountUnreadNotifications(recipient.ID)
	if err != nil || count != 1 {
		t.Fatalf("offline notification should still be stored, count=%d err=%v", count, err)
	}

	// Online: the targeted event goes through the broker.
	conn := &recordingSender{}
	env.hub.Connect(conn, recipient.ID)

	in := notificationInput(recipient.ID, &actor.ID)
	in.Type = "REPLY"
	if _, err := env.svc.Notifications.Create(ctx, in); err != nil {
		t.Fatalf("create online: %v", err)
	}

	select {
	case raw := <-sub.C():
		if len(raw) == 0 {
			t.Fatal("empty payload published")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a publish for online recipient")
	}
}
