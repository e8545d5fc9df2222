package forum

import (
	"context"
	"strconv"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/pubsub"
	"github.com/agoradev/agora/pkg/realtime"
	"github.com/agoradev/agora/pkg/storage"
)

// Emitter fans domain events out to connected clients. Every event goes two
// ways: through the in-process hub, so clients connected to this process see
// it immediately, and through the broker, so listeners in other processes
// pick it up. Both paths are best effort; the triggering write has already
// committed, so failures are logged and swallowed.
type Emitter struct {
	hub    *realtime.Hub
	broker pubsub.Broker
	logger *log.Logger
}

func NewEmitter(hub *realtime.Hub, broker pubsub.Broker) *Emitter {
	return &Emitter{
		hub:    hub,
		broker: broker,
		logger: log.ForService("events"),
	}
}

func (e *Emitter) emit(ctx context.Context, channel string, envelope realtime.Envelope) {
	e.hub.Broadcast(envelope)
	if err := e.broker.Publish(ctx, channel, envelope); err != nil {
		e.logger.Warnf("publish to %s failed: %v", channel, err)
	}
}

// NewComment announces a created comment on the comments channel.
func (e *Emitter) NewComment(ctx context.Context, comment *storage.Comment) {
	e.emit(ctx, pubsub.ChannelComments, realtime.NewEnvelope(realtime.EventNewComment, map[string]any{
		"comment_id": comment.ID,
		"thread_id":  comment.ThreadID,
		"content":    comment.Content,
	}))
}

// ThreadChanged announces a created/updated/deleted thread on the threads
// channel.
func (e *Emitter) ThreadChanged(ctx context.Context, thread *storage.Thread, action string) {
	e.emit(ctx, pubsub.ChannelThreads, realtime.NewEnvelope(realtime.EventNewThread, map[string]any{
		"action": action,
		"thread": map[string]any{
			"id":    thread.ID,
			"title": thread.Title,
		},
	}))
}

// LikeChanged announces a like/unlike with the fresh count for the target.
func (e *Emitter) LikeChanged(ctx context.Context, threadID, commentID *int64, likeCount int, action string) {
	data := map[string]any{
		"thread_id":  nil,
		"comment_id": nil,
		"like_count": likeCount,
		"action":     action,
	}
	if threadID != nil {
		data["thread_id"] = *threadID
	}
	if commentID != nil {
		data["comment_id"] = *commentID
	}
	e.emit(ctx, pubsub.ChannelLikes, realtime.NewEnvelope(realtime.EventNewLike, data))
}

// UserChanged announces a created or updated account on the users channel.
func (e *Emitter) UserChanged(ctx context.Context, user *storage.User, action string) {
	roles := make([]map[string]any, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, map[string]any{
			"id":        role.ID,
			"role_name": role.Name,
		})
	}
	e.emit(ctx, pubsub.ChannelUsers, realtime.NewEnvelope(realtime.EventNewUser, map[string]any{
		"action": action,
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"avatar_url": user.AvatarURL,
			"bio":        user.Bio,
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt.String(),
			"roles":      roles,
		},
	}))
}

// ReviewChanged announces a created or updated moderation review.
func (e *Emitter) ReviewChanged(ctx context.Context, review *storage.ModerationReview, action string) {
	data := map[string]any{
		"action": action,
		"review": map[string]any{
			"id":           review.ID,
			"content_type": review.ContentType,
			"thread_id":    optionalID(review.ThreadID),
			"comment_id":   optionalID(review.CommentID),
			"reason":       review.Reason,
			"reviewer_id":  optionalID(review.ReviewerID),
			"status":       review.Status,
			"action_taken": review.ActionTaken,
			"created_at":   review.CreatedAt.String(),
			"updated_at":   review.UpdatedAt.String(),
		},
	}
	e.emit(ctx, pubsub.ChannelModeration, realtime.NewEnvelope(realtime.EventModerationReview, data))
}

// NotificationEnvelope builds the targeted notification payload. data.user_id
// lets channel listeners route the message to the recipient only.
func NotificationEnvelope(n *storage.Notification) realtime.Envelope {
	return realtime.NewEnvelope(realtime.EventNewNotification, map[string]any{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"actor_id":        optionalID(n.ActorID),
		"type":            n.Type,
		"title":           n.Title,
		"message":         n.Message,
		"entity_type":     n.EntityType,
		"entity_id":       n.EntityID,
		"is_read":         n.IsRead,
		"created_at":      n.CreatedAt.String(),
	})
}

// DispatchNotification delivers a notification event to its recipient.
// Preferred path is the broker, which reaches the recipient's sockets on
// every process; when publishing fails it falls back to a direct in-process
// send so same-process sockets still receive it. Total failure of both paths
// is swallowed.
func (e *Emitter) DispatchNotification(ctx context.Context, n *storage.Notification) {
	envelope := NotificationEnvelope(n)

	if err := e.broker.Publish(ctx, pubsub.ChannelNotifications, envelope); err != nil {
		e.logger.Warnf("notification publish failed, falling back to in-process delivery: %v", err)
		e.hub.SendToUser(n.UserID, envelope)
	}
}

func optionalID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// actorLabel renders a display name for notification messages.
func actorLabel(actor *storage.User, actorID int64) string {
	if actor == nil {
		return "User " + strconv.FormatInt(actorID, 10)
	}
	if actor.Name != "" {
		return actor.Name
	}
	if actor.Email != "" {
		return actor.Email
	}
	return "Someone"
}
