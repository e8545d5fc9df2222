package forum

import (
	"context"
	"fmt"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

// Likes toggles likes on threads and comments, notifies the content author
// and broadcasts the fresh like count.
type Likes struct {
	store         *storage.Storage
	emitter       *Emitter
	threads       *Threads
	notifications *Notifications
	logger        *log.Logger
}

func NewLikes(store *storage.Storage, emitter *Emitter, threads *Threads, notifications *Notifications) *Likes {
	return &Likes{
		store:         store,
		emitter:       emitter,
		threads:       threads,
		notifications: notifications,
		logger:        log.ForService("likes"),
	}
}

// Add likes exactly one target. Liking the same target twice is a conflict;
// liking your own content records the like but sends no notification.
func (l *Likes) Add(ctx context.Context, actor *storage.User, threadID, commentID *int64) (*storage.Like, error) {
	if threadID == nil && commentID == nil {
		return nil, fmt.Errorf("like needs a thread or comment target: %w", ErrInvalid)
	}

	if existing, err := l.store.GetUserLike(actor.ID, threadID, commentID); err == nil && existing != nil {
		return nil, fmt.Errorf("already liked: %w", ErrConflict)
	} else if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("checking existing like: %w", err)
	}

	like, err := l.store.CreateLike(actor.ID, threadID, commentID)
	if err != nil {
		return nil, fmt.Errorf("creating like: %w", err)
	}

	l.notifyAuthor(ctx, actor, threadID, commentID)
	l.broadcastCount(ctx, threadID, commentID, "created")
	return like, nil
}

// Remove deletes the caller's like on the target.
func (l *Likes) Remove(ctx context.Context, actor *storage.User, threadID, commentID *int64) error {
	like, err := l.store.GetUserLike(actor.ID, threadID, commentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return fmt.Errorf("like: %w", ErrNotFound)
		}
		return fmt.Errorf("loading like: %w", err)
	}

	if err := l.store.DeleteLike(like.ID); err != nil {
		return fmt.Errorf("deleting like: %w", err)
	}

	l.broadcastCount(ctx, like.ThreadID, like.CommentID, "removed")
	return nil
}

func (l *Likes) notifyAuthor(ctx context.Context, actor *storage.User, threadID, commentID *int64) {
	var (
		recipientID int64
		entityType  string
		entityID    int64
		title       string
		message     string
	)
	label := actorLabel(actor, actor.ID)

	switch {
	case threadID != nil:
		thread, err := l.store.GetThreadByID(*threadID)
		if err != nil {
			return
		}
		recipientID = thread.AuthorID
		entityType = "thread"
		entityID = thread.ID
		title = "New like on your thread"
		message = label + " liked your thread."
	case commentID != nil:
		comment, err := l.store.GetCommentByID(*commentID)
		if err != nil {
			return
		}
		recipientID = comment.AuthorID
		entityType = "comment"
		entityID = comment.ID
		title = "New like on your comment"
		message = label + " liked your comment."
	default:
		return
	}

	if recipientID == actor.ID {
		return
	}
	if _, err := l.notifications.Create(ctx, CreateInput{
		UserID:     recipientID,
		ActorID:    &actor.ID,
		Type:       "LIKE",
		Title:      title,
		Message:    message,
		EntityType: entityType,
		EntityID:   entityID,
	}); err != nil {
		l.logger.Warnf("notifying %s author %d: %v", entityType, recipientID, err)
	}
}

// broadcastCount recomputes the target's like count and emits it. Thread
// likes also drop the thread snapshot, which embeds the count.
func (l *Likes) broadcastCount(ctx context.Context, threadID, commentID *int64, action string) {
	var (
		count int
		err   error
	)
	switch {
	case threadID != nil:
		count, err = l.store.CountThreadLikes(*threadID)
		l.threads.InvalidateList(ctx)
	case commentID != nil:
		count, err = l.store.CountCommentLikes(*commentID)
	}
	if err != nil {
		l.logger.Warnf("counting likes: %v", err)
		return
	}

	l.emitter.LikeChanged(ctx, threadID, commentID, count, action)
}
