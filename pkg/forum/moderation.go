package forum

import (
	"context"
	"fmt"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

// Moderation queues content for human review and tracks review outcomes.
// Content posted by members lands here automatically; moderators and admins
// bypass the queue.
type Moderation struct {
	store   *storage.Storage
	emitter *Emitter
	logger  *log.Logger
}

func NewModeration(store *storage.Storage, emitter *Emitter) *Moderation {
	return &Moderation{
		store:   store,
		emitter: emitter,
		logger:  log.ForService("moderation"),
	}
}

// ReviewInput describes content entering the moderation queue. Reason is
// empty for automatic submissions and carries the reporter's text for
// user reports.
type ReviewInput struct {
	ContentType string
	ThreadID    *int64
	CommentID   *int64
	Reason      string
}

// CreateReview enqueues a pending review and broadcasts it to moderation
// dashboards.
func (m *Moderation) CreateReview(ctx context.Context, in ReviewInput) (*storage.ModerationReview, error) {
	review, err := m.store.CreateModerationReview(&storage.ModerationReview{
		ContentType: in.ContentType,
		ThreadID:    in.ThreadID,
		CommentID:   in.CommentID,
		Reason:      in.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("creating moderation review: %w", err)
	}

	m.emitter.ReviewChanged(ctx, review, "created")
	return review, nil
}

func (m *Moderation) ListPending(ctx context.Context) ([]*storage.ModerationReview, error) {
	return m.store.ListPendingReviews()
}

func (m *Moderation) ListCompleted(ctx context.Context) ([]*storage.ModerationReview, error) {
	return m.store.ListCompletedReviews()
}

// UpdateReview records a reviewer's decision and broadcasts the outcome.
func (m *Moderation) UpdateReview(ctx context.Context, reviewID int64, status, actionTaken string, reviewerID int64) (*storage.ModerationReview, error) {
	if status != storage.ReviewStatusApproved && status != storage.ReviewStatusRejected {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalid)
	}

	if _, err := m.store.GetModerationReviewByID(reviewID); err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("review %d: %w", reviewID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading review: %w", err)
	}

	updated, err := m.store.UpdateModerationReview(reviewID, status, actionTaken, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("updating review: %w", err)
	}

	m.emitter.ReviewChanged(ctx, updated, "updated")
	return updated, nil
}
