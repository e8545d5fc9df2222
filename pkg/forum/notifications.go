package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/agoradev/agora/pkg/cache"
	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/realtime"
	"github.com/agoradev/agora/pkg/storage"
)

const (
	// dedupWindow collapses repeated identical notification requests (same
	// recipient, type, entity and actor) into one stored row.
	dedupWindow = 30 * time.Second

	// notificationCacheTTL bounds staleness of the unread-count and list
	// caches.
	notificationCacheTTL = 300 * time.Second

	countCachePrefix = "notifications:unread_count:"
	listCachePrefix  = "notifications:list:"
)

// Notifications creates, lists and mutates notification records, keeping the
// per-user read-through caches coherent and pushing realtime events to
// online recipients.
type Notifications struct {
	store   *storage.Storage
	cache   cache.Cache
	hub     *realtime.Hub
	emitter *Emitter
	logger  *log.Logger
}

func NewNotifications(store *storage.Storage, c cache.Cache, hub *realtime.Hub, emitter *Emitter) *Notifications {
	return &Notifications{
		store:   store,
		cache:   c,
		hub:     hub,
		emitter: emitter,
		logger:  log.ForService("notifications"),
	}
}

func countCacheKey(userID int64) string {
	return countCachePrefix + strconv.FormatInt(userID, 10)
}

func listCacheKey(userID int64, page, size int) string {
	return fmt.Sprintf("%s%d:%d:%d", listCachePrefix, userID, page, size)
}

func listCacheUserPrefix(userID int64) string {
	return fmt.Sprintf("%s%d:", listCachePrefix, userID)
}

// invalidateCache drops the user's unread count and every cached list page.
// Cache errors are advisory only.
func (n *Notifications) invalidateCache(ctx context.Context, userID int64) {
	if err := n.cache.Delete(ctx, countCacheKey(userID)); err != nil {
		n.logger.Warnf("invalidating unread count for user %d: %v", userID, err)
	}
	if err := n.cache.DeletePrefix(ctx, listCacheUserPrefix(userID)); err != nil {
		n.logger.Warnf("invalidating list pages for user %d: %v", userID, err)
	}
}

// CreateInput describes a notification to create. EntityType+EntityID form a
// polymorphic reference to the thread, comment or user the notification is
// about.
type CreateInput struct {
	UserID     int64
	ActorID    *int64
	Type       string
	Title      string
	Message    string
	EntityType string
	EntityID   int64
}

// Create persists a notification unless an identical unread one was created
// within the dedup window, in which case that row is returned unchanged. The
// recipient's caches are invalidated synchronously; delivery to online
// recipients happens via the targeted notifications channel and is best
// effort.
//
// The window check and the insert are not atomic: two near-simultaneous
// calls for the same logical event can both pass the check and insert twice.
// Accepted tradeoff, matching the upstream behavior.
func (n *Notifications) Create(ctx context.Context, in CreateInput) (*storage.Notification, error) {
	existing, err := n.store.FindRecentDuplicate(
		in.UserID, in.ActorID, in.Type, in.EntityType, in.EntityID, dedupWindow)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate notification: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := n.store.CreateNotification(&storage.Notification{
		UserID:     in.UserID,
		ActorID:    in.ActorID,
		Type:       in.Type,
		Title:      in.Title,
		Message:    in.Message,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	n.invalidateCache(ctx, in.UserID)

	// Offline recipients pick the notification up on their next read; only
	// online ones get a realtime push.
	if n.hub.IsUserOnline(in.UserID) {
		n.emitter.DispatchNotification(ctx, created)
	}

	return created, nil
}

// ListResult is the paginated notification inbox payload.
type ListResult struct {
	Items []*storage.Notification `json:"items"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Size  int                     `json:"size"`
}

// List returns one page of the user's notifications, newest first, through a
// per-(user,page,size) cache. The total is always computed from storage so
// it never diverges from concurrent writes longer than the page content
// itself.
func (n *Notifications) List(ctx context.Context, userID int64, page, size int) (*ListResult, error) {
	key := listCacheKey(userID, page, size)
	if cached, ok, err := n.cache.Get(ctx, key); err == nil && ok {
		var result ListResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return &result, nil
		}
		n.logger.Warnf("dropping undecodable cache entry %s", key)
	} else if err != nil {
		n.logger.Warnf("cache read for %s: %v", key, err)
	}

	items, err := n.store.ListUserNotifications(userID, page, size)
	if err != nil {
		return nil, fmt.Errorf("loading notifications: %w", err)
	}
	total, err := n.store.CountUserNotifications(userID)
	if err != nil {
		return nil, fmt.Errorf("counting notifications: %w", err)
	}

	if items == nil {
		items = []*storage.Notification{}
	}
	result := &ListResult{Items: items, Total: total, Page: page, Size: size}

	if encoded, err := json.Marshal(result); err == nil {
		if err := n.cache.SetTTL(ctx, key, string(encoded), notificationCacheTTL); err != nil {
			n.logger.Warnf("cache write for %s: %v", key, err)
		}
	}

	return result, nil
}

// UnreadCount returns the user's unread notification count through a
// read-through cache.
func (n *Notifications) UnreadCount(ctx context.Context, userID int64) (int, error) {
	key := countCacheKey(userID)
	if cached, ok, err := n.cache.Get(ctx, key); err == nil && ok {
		if count, err := strconv.Atoi(cached); err == nil {
			return count, nil
		}
	} else if err != nil {
		n.logger.Warnf("cache read for %s: %v", key, err)
	}

	count, err := n.store.CountUnreadNotifications(userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}

	if err := n.cache.SetTTL(ctx, key, strconv.Itoa(count), notificationCacheTTL); err != nil {
		n.logger.Warnf("cache write for %s: %v", key, err)
	}

	return count, nil
}

// MarkRead flips a single notification owned by userID. A missing or
// foreign notification yields ErrNotFound.
func (n *Notifications) MarkRead(ctx context.Context, userID, notificationID int64) (*storage.Notification, error) {
	existing, err := n.store.GetUserNotificationByID(userID, notificationID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading notification: %w", err)
	}

	updated, err := n.store.MarkNotificationRead(existing.ID)
	if err != nil {
		return nil, fmt.Errorf("marking notification read: %w", err)
	}

	n.invalidateCache(ctx, userID)
	return updated, nil
}

// MarkAllRead bulk-flips every unread notification for the user and returns
// how many rows changed. Caches are invalidated before returning so a
// subsequent UnreadCount observes zero.
func (n *Notifications) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	updated, err := n.store.MarkAllNotificationsRead(userID)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}

	n.invalidateCache(ctx, userID)
	return updated, nil
}
