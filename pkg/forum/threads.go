package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/agoradev/agora/pkg/cache"
	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

const (
	threadListCacheKey = "threads:list"
	threadListCacheTTL = 300 * time.Second
)

// The canonical thread snapshot is one JSON document for the whole active
// list, so it compresses well and every reader shares a single cache entry.
var (
	snapshotEncoder, _ = zstd.NewWriter(nil)
	snapshotDecoder, _ = zstd.NewReader(nil)
)

func isModeratorOrAdmin(user *storage.User) bool {
	if user == nil {
		return false
	}
	return user.HasRole(storage.RoleAdmin) || user.HasRole(storage.RoleModerator)
}

func isAdmin(user *storage.User) bool {
	return user != nil && user.HasRole(storage.RoleAdmin)
}

// normalizeTags lowercases, trims, dedups and sorts tag names.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pageCount(total, size int) int {
	if size <= 0 {
		return 1
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Threads serves the thread catalog. Listing goes through a single shared
// snapshot of every active thread, cached compressed under one key; any
// write that could change the snapshot drops it.
type Threads struct {
	store         *storage.Storage
	cache         cache.Cache
	emitter       *Emitter
	mentions      *Mentions
	notifications *Notifications
	moderation    *Moderation
	logger        *log.Logger
}

func NewThreads(store *storage.Storage, c cache.Cache, emitter *Emitter, mentions *Mentions, notifications *Notifications, moderation *Moderation) *Threads {
	return &Threads{
		store:         store,
		cache:         c,
		emitter:       emitter,
		mentions:      mentions,
		notifications: notifications,
		moderation:    moderation,
		logger:        log.ForService("threads"),
	}
}

// InvalidateList drops the shared thread snapshot. Comment and like writes
// call this too since the snapshot embeds their counts.
func (t *Threads) InvalidateList(ctx context.Context) {
	if err := t.cache.Delete(ctx, threadListCacheKey); err != nil {
		t.logger.Warnf("invalidating thread list: %v", err)
	}
}

func (t *Threads) cachedSnapshot(ctx context.Context) []*storage.ThreadView {
	raw, ok, err := t.cache.Get(ctx, threadListCacheKey)
	if err != nil {
		t.logger.Warnf("thread list cache read: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	decoded, err := snapshotDecoder.DecodeAll([]byte(raw), nil)
	if err != nil {
		t.logger.Warnf("dropping corrupt thread list snapshot: %v", err)
		t.InvalidateList(ctx)
		return nil
	}
	var views []*storage.ThreadView
	if err := json.Unmarshal(decoded, &views); err != nil {
		t.logger.Warnf("dropping undecodable thread list snapshot: %v", err)
		t.InvalidateList(ctx)
		return nil
	}
	return views
}

func (t *Threads) storeSnapshot(ctx context.Context, views []*storage.ThreadView) {
	encoded, err := json.Marshal(views)
	if err != nil {
		return
	}
	compressed := snapshotEncoder.EncodeAll(encoded, nil)
	if err := t.cache.SetTTL(ctx, threadListCacheKey, string(compressed), threadListCacheTTL); err != nil {
		t.logger.Warnf("thread list cache write: %v", err)
	}
}

// snapshot returns the canonical active-thread list, newest first, with
// viewer-specific fields zeroed.
func (t *Threads) snapshot(ctx context.Context) ([]*storage.ThreadView, error) {
	if views := t.cachedSnapshot(ctx); views != nil {
		return views, nil
	}

	views, err := t.store.ListActiveThreadViews()
	if err != nil {
		return nil, fmt.Errorf("loading threads: %w", err)
	}
	if views == nil {
		views = []*storage.ThreadView{}
	}
	t.storeSnapshot(ctx, views)
	return views, nil
}

// ThreadPage is one page of the thread catalog.
type ThreadPage struct {
	Items []*storage.ThreadView `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
	Pages int                   `json:"pages"`
}

// List pages through the snapshot. When viewerID is set, the viewer's liked
// threads are overlaid onto the shared data before slicing; the snapshot in
// the cache never carries per-viewer state.
func (t *Threads) List(ctx context.Context, viewerID *int64, page, size int) (*ThreadPage, error) {
	views, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		liked, err := t.store.GetLikedThreadIDs(*viewerID)
		if err != nil {
			return nil, fmt.Errorf("loading viewer likes: %w", err)
		}
		overlaid := make([]*storage.ThreadView, len(views))
		for i, v := range views {
			view := *v
			_, view.UserHasLiked = liked[view.ID]
			overlaid[i] = &view
		}
		views = overlaid
	}

	total := len(views)
	start := (page - 1) * size
	if start < 0 {
		start = 0
	}
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &ThreadPage{
		Items: views[start:end],
		Total: total,
		Page:  page,
		Size:  size,
		Pages: pageCount(total, size),
	}, nil
}

// Get returns one thread view with the viewer's like state resolved.
// Soft-deleted threads read as missing.
func (t *Threads) Get(ctx context.Context, threadID int64, viewerID *int64) (*storage.ThreadView, error) {
	view, err := t.store.GetThreadView(threadID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("thread %d: %w", threadID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading thread: %w", err)
	}
	if view.IsDeleted {
		return nil, fmt.Errorf("thread %d: %w", threadID, ErrNotFound)
	}

	if viewerID != nil {
		like, err := t.store.GetUserLike(*viewerID, &threadID, nil)
		if err != nil && err != storage.ErrNotFound {
			return nil, fmt.Errorf("loading viewer like: %w", err)
		}
		view.UserHasLiked = like != nil
	}
	return view, nil
}

// Create persists a new thread with its tags, queues it for moderation when
// the author is a plain member, fans out mention notifications and
// broadcasts the creation.
func (t *Threads) Create(ctx context.Context, actor *storage.User, title, description string, tags []string) (*storage.ThreadView, error) {
	thread, err := t.store.CreateThread(title, description, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("creating thread: %w", err)
	}

	if names := normalizeTags(tags); len(names) > 0 {
		if err := t.store.SetThreadTags(thread.ID, names); err != nil {
			return nil, fmt.Errorf("setting thread tags: %w", err)
		}
	}

	if !isModeratorOrAdmin(actor) {
		if _, err := t.moderation.CreateReview(ctx, ReviewInput{
			ContentType: "THREAD",
			ThreadID:    &thread.ID,
		}); err != nil {
			t.logger.Warnf("queueing thread %d for moderation: %v", thread.ID, err)
		}
	}

	mentioned, err := t.mentions.Process(ctx, title+" "+description, &thread.ID, nil)
	if err != nil {
		t.logger.Warnf("processing mentions for thread %d: %v", thread.ID, err)
	}
	label := actorLabel(actor, actor.ID)
	for _, user := range mentioned {
		if user.ID == actor.ID {
			continue
		}
		if _, err := t.notifications.Create(ctx, CreateInput{
			UserID:     user.ID,
			ActorID:    &actor.ID,
			Type:       "THREAD_MENTION",
			Title:      "You were mentioned in a thread",
			Message:    label + " mentioned you in a thread.",
			EntityType: "thread",
			EntityID:   thread.ID,
		}); err != nil {
			t.logger.Warnf("notifying mentioned user %d: %v", user.ID, err)
		}
	}

	t.InvalidateList(ctx)
	t.emitter.ThreadChanged(ctx, thread, "created")

	return t.Get(ctx, thread.ID, &actor.ID)
}

// ThreadUpdate carries the editable thread fields. Nil means unchanged.
type ThreadUpdate struct {
	Title       *string
	Description *string
	Tags        []string
}

// Update edits a thread. Only the author, a moderator or an admin may edit.
func (t *Threads) Update(ctx context.Context, actor *storage.User, threadID int64, in ThreadUpdate) (*storage.ThreadView, error) {
	thread, err := t.store.GetThreadByID(threadID)
	if err != nil || thread.IsDeleted {
		if err == nil || err == storage.ErrNotFound {
			return nil, fmt.Errorf("thread %d: %w", threadID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading thread: %w", err)
	}

	if thread.AuthorID != actor.ID && !isModeratorOrAdmin(actor) {
		return nil, fmt.Errorf("editing thread %d: %w", threadID, ErrForbidden)
	}

	if in.Title != nil {
		thread.Title = *in.Title
	}
	if in.Description != nil {
		thread.Description = *in.Description
	}
	if err := t.store.UpdateThread(thread); err != nil {
		return nil, fmt.Errorf("updating thread: %w", err)
	}

	if in.Tags != nil {
		if err := t.store.SetThreadTags(threadID, normalizeTags(in.Tags)); err != nil {
			return nil, fmt.Errorf("setting thread tags: %w", err)
		}
	}

	t.InvalidateList(ctx)
	t.emitter.ThreadChanged(ctx, thread, "updated")

	return t.Get(ctx, threadID, &actor.ID)
}

// Delete soft-deletes a thread. Only the author, a moderator or an admin may
// delete.
func (t *Threads) Delete(ctx context.Context, actor *storage.User, threadID int64) error {
	thread, err := t.store.GetThreadByID(threadID)
	if err != nil || thread.IsDeleted {
		if err == nil || err == storage.ErrNotFound {
			return fmt.Errorf("thread %d: %w", threadID, ErrNotFound)
		}
		return fmt.Errorf("loading thread: %w", err)
	}

	if thread.AuthorID != actor.ID && !isModeratorOrAdmin(actor) {
		return fmt.Errorf("deleting thread %d: %w", threadID, ErrForbidden)
	}

	if err := t.store.SoftDeleteThread(threadID); err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}

	t.InvalidateList(ctx)
	t.emitter.ThreadChanged(ctx, thread, "deleted")
	return nil
}
