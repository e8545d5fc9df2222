package forum

import (
	"context"
	"fmt"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

// Comments manages comments and replies, including the notification fan-out
// that follows a new comment: mentioned users first, then the thread author,
// then the parent comment's author, each notified at most once.
type Comments struct {
	store         *storage.Storage
	emitter       *Emitter
	threads       *Threads
	mentions      *Mentions
	notifications *Notifications
	moderation    *Moderation
	logger        *log.Logger
}

func NewComments(store *storage.Storage, emitter *Emitter, threads *Threads, mentions *Mentions, notifications *Notifications, moderation *Moderation) *Comments {
	return &Comments{
		store:         store,
		emitter:       emitter,
		threads:       threads,
		mentions:      mentions,
		notifications: notifications,
		moderation:    moderation,
		logger:        log.ForService("comments"),
	}
}

// Create persists a comment or reply. The target thread must exist and be
// live; a reply's parent must be a live comment on the same thread.
func (c *Comments) Create(ctx context.Context, actor *storage.User, threadID int64, content string, parentCommentID *int64) (*storage.CommentView, error) {
	thread, err := c.store.GetThreadByID(threadID)
	if err != nil || thread.IsDeleted {
		if err == nil || err == storage.ErrNotFound {
			return nil, fmt.Errorf("thread %d: %w", threadID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading thread: %w", err)
	}

	var parent *storage.Comment
	if parentCommentID != nil {
		parent, err = c.store.GetCommentByID(*parentCommentID)
		if err != nil || parent.IsDeleted {
			if err == nil || err == storage.ErrNotFound {
				return nil, fmt.Errorf("parent comment %d: %w", *parentCommentID, ErrInvalid)
			}
			return nil, fmt.Errorf("loading parent comment: %w", err)
		}
		if parent.ThreadID != threadID {
			return nil, fmt.Errorf("parent comment belongs to another thread: %w", ErrInvalid)
		}
	}

	comment, err := c.store.CreateComment(content, threadID, actor.ID, parentCommentID)
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	if !isModeratorOrAdmin(actor) {
		if _, err := c.moderation.CreateReview(ctx, ReviewInput{
			ContentType: "COMMENT",
			ThreadID:    &comment.ThreadID,
			CommentID:   &comment.ID,
		}); err != nil {
			c.logger.Warnf("queueing comment %d for moderation: %v", comment.ID, err)
		}
	}

	c.fanOutNotifications(ctx, actor, thread, comment, parent)

	c.threads.InvalidateList(ctx)
	c.emitter.NewComment(ctx, comment)

	return c.Get(ctx, comment.ID, &actor.ID)
}

// fanOutNotifications notifies everyone a new comment concerns. The notified
// set keeps a user who is both mentioned and the thread author from getting
// two notifications for one comment.
func (c *Comments) fanOutNotifications(ctx context.Context, actor *storage.User, thread *storage.Thread, comment *storage.Comment, parent *storage.Comment) {
	notified := make(map[int64]struct{})
	label := actorLabel(actor, actor.ID)

	mentioned, err := c.mentions.Process(ctx, comment.Content, &comment.ThreadID, &comment.ID)
	if err != nil {
		c.logger.Warnf("processing mentions for comment %d: %v", comment.ID, err)
	}
	for _, user := range mentioned {
		if user.ID == actor.ID {
			continue
		}
		if _, err := c.notifications.Create(ctx, CreateInput{
			UserID:     user.ID,
			ActorID:    &actor.ID,
			Type:       "MENTION",
			Title:      "Mentioned in a comment",
			Message:    label + " mentioned you in a comment.",
			EntityType: "comment",
			EntityID:   comment.ID,
		}); err != nil {
			c.logger.Warnf("notifying mentioned user %d: %v", user.ID, err)
		}
		notified[user.ID] = struct{}{}
	}

	if _, seen := notified[thread.AuthorID]; thread.AuthorID != actor.ID && !seen {
		if _, err := c.notifications.Create(ctx, CreateInput{
			UserID:     thread.AuthorID,
			ActorID:    &actor.ID,
			Type:       "THREAD_COMMENT",
			Title:      "New comment on your thread",
			Message:    "Someone commented on your thread.",
			EntityType: "thread",
			EntityID:   comment.ThreadID,
		}); err != nil {
			c.logger.Warnf("notifying thread author %d: %v", thread.AuthorID, err)
		}
		notified[thread.AuthorID] = struct{}{}
	}

	if parent == nil {
		return
	}
	if _, seen := notified[parent.AuthorID]; parent.AuthorID != actor.ID && !seen {
		if _, err := c.notifications.Create(ctx, CreateInput{
			UserID:     parent.AuthorID,
			ActorID:    &actor.ID,
			Type:       "REPLY",
			Title:      "New reply to your comment",
			Message:    "Someone replied to your comment.",
			EntityType: "comment",
			EntityID:   comment.ID,
		}); err != nil {
			c.logger.Warnf("notifying parent author %d: %v", parent.AuthorID, err)
		}
	}
}

// CommentPage is one page of a thread's comments, oldest first.
type CommentPage struct {
	Items []*storage.CommentView `json:"items"`
	Total int                    `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
}

// ListForThread pages through a thread's live comments and overlays the
// viewer's like state.
func (c *Comments) ListForThread(ctx context.Context, threadID int64, viewerID *int64, page, size int) (*CommentPage, error) {
	items, total, err := c.store.ListThreadComments(threadID, page, size)
	if err != nil {
		return nil, fmt.Errorf("loading comments: %w", err)
	}
	if items == nil {
		items = []*storage.CommentView{}
	}

	if viewerID != nil && len(items) > 0 {
		liked, err := c.store.GetLikedCommentIDs(*viewerID, threadID)
		if err != nil {
			return nil, fmt.Errorf("loading viewer likes: %w", err)
		}
		for _, item := range items {
			_, item.UserHasLiked = liked[item.ID]
		}
	}

	return &CommentPage{Items: items, Total: total, Page: page, Size: size}, nil
}

// Get returns one comment view with the viewer's like state resolved.
func (c *Comments) Get(ctx context.Context, commentID int64, viewerID *int64) (*storage.CommentView, error) {
	view, err := c.store.GetCommentView(commentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading comment: %w", err)
	}

	if viewerID != nil {
		like, err := c.store.GetUserLike(*viewerID, nil, &commentID)
		if err != nil && err != storage.ErrNotFound {
			return nil, fmt.Errorf("loading viewer like: %w", err)
		}
		view.UserHasLiked = like != nil
	}
	return view, nil
}

// Update edits a live comment. Only the author, a moderator or an admin may
// edit.
func (c *Comments) Update(ctx context.Context, actor *storage.User, commentID int64, content string) (*storage.CommentView, error) {
	comment, err := c.store.GetCommentByID(commentID)
	if err != nil || comment.IsDeleted {
		if err == nil || err == storage.ErrNotFound {
			return nil, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading comment: %w", err)
	}

	if comment.AuthorID != actor.ID && !isModeratorOrAdmin(actor) {
		return nil, fmt.Errorf("editing comment %d: %w", commentID, ErrForbidden)
	}

	comment.Content = content
	if err := c.store.UpdateComment(comment); err != nil {
		return nil, fmt.Errorf("updating comment: %w", err)
	}

	return c.Get(ctx, commentID, &actor.ID)
}

// Delete soft-deletes a comment and drops the thread snapshot, since the
// snapshot's comment counts exclude deleted comments.
func (c *Comments) Delete(ctx context.Context, actor *storage.User, commentID int64) error {
	comment, err := c.store.GetCommentByID(commentID)
	if err != nil || comment.IsDeleted {
		if err == nil || err == storage.ErrNotFound {
			return fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
		}
		return fmt.Errorf("loading comment: %w", err)
	}

	if comment.AuthorID != actor.ID && !isModeratorOrAdmin(actor) {
		return fmt.Errorf("deleting comment %d: %w", commentID, ErrForbidden)
	}

	if err := c.store.SoftDeleteComment(commentID); err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	c.threads.InvalidateList(ctx)
	return nil
}
