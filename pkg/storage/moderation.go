package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Storage) CreateModerationReview(r *ModerationReview) (*ModerationReview, error) {
	now := time.Now().UTC()
	status := r.Status
	if status == "" {
		status = ReviewStatusPending
	}
	res, err := s.db.Exec(`
		INSERT INTO moderation_reviews (content_type, thread_id, comment_id, reason, reviewer_id, status, action_taken, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ContentType, r.ThreadID, r.CommentID, r.Reason, r.ReviewerID, status, r.ActionTaken, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting moderation review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading review id: %w", err)
	}
	return s.GetModerationReviewByID(id)
}

const reviewColumns = `id, content_type, thread_id, comment_id, reason, reviewer_id, status, action_taken, created_at, updated_at`

func scanReview(scan func(dest ...any) error) (*ModerationReview, error) {
	var r ModerationReview
	var threadID, commentID, reviewerID sql.NullInt64
	var reason, actionTaken sql.NullString
	err := scan(&r.ID, &r.ContentType, &threadID, &commentID, &reason,
		&reviewerID, &r.Status, &actionTaken, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning moderation review: %w", err)
	}
	if threadID.Valid {
		r.ThreadID = &threadID.Int64
	}
	if commentID.Valid {
		r.CommentID = &commentID.Int64
	}
	if reviewerID.Valid {
		r.ReviewerID = &reviewerID.Int64
	}
	r.Reason = reason.String
	r.ActionTaken = actionTaken.String
	return &r, nil
}

func (s *Storage) GetModerationReviewByID(id int64) (*ModerationReview, error) {
	row := s.db.QueryRow(`SELECT `+reviewColumns+` FROM moderation_reviews WHERE id = ?`, id)
	return scanReview(row.Scan)
}

func (s *Storage) listReviews(where string, args ...any) ([]*ModerationReview, error) {
	rows, err := s.db.Query(`
		SELECT `+reviewColumns+` FROM moderation_reviews `+where+`
		ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing moderation reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*ModerationReview
	for rows.Next() {
		r, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *Storage) ListPendingReviews() ([]*ModerationReview, error) {
	return s.listReviews(`WHERE status = ?`, ReviewStatusPending)
}

func (s *Storage) ListCompletedReviews() ([]*ModerationReview, error) {
	return s.listReviews(`WHERE status != ?`, ReviewStatusPending)
}

func (s *Storage) CountPendingReviews() (int, error) {
	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM moderation_reviews WHERE status = ?`, ReviewStatusPending,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pending reviews: %w", err)
	}
	return n, nil
}

// UpdateModerationReview sets the outcome fields of an existing review.
func (s *Storage) UpdateModerationReview(id int64, status, actionTaken string, reviewerID int64) (*ModerationReview, error) {
	res, err := s.db.Exec(`
		UPDATE moderation_reviews SET status = ?, action_taken = ?, reviewer_id = ?, updated_at = ?
		WHERE id = ?`,
		status, actionTaken, reviewerID, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating moderation review %d: %w", id, err)
	}
	if err := requireRowAffected(res); err != nil {
		return nil, err
	}
	return s.GetModerationReviewByID(id)
}
