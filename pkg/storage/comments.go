package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Storage) CreateComment(content string, threadID, authorID int64, parentCommentID *int64) (*Comment, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO comments (content, thread_id, author_id, parent_comment_id, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		content, threadID, authorID, parentCommentID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading comment id: %w", err)
	}
	return s.GetCommentByID(id)
}

func (s *Storage) GetCommentByID(id int64) (*Comment, error) {
	var c Comment
	var parent sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, content, thread_id, author_id, parent_comment_id, is_deleted, created_at, updated_at
		FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.Content, &c.ThreadID, &c.AuthorID, &parent, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning comment: %w", err)
	}
	if parent.Valid {
		c.ParentCommentID = &parent.Int64
	}
	return &c, nil
}

func (s *Storage) UpdateComment(c *Comment) error {
	res, err := s.db.Exec(`
		UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		c.Content, time.Now().UTC(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating comment %d: %w", c.ID, err)
	}
	return requireRowAffected(res)
}

func (s *Storage) SoftDeleteComment(id int64) error {
	res, err := s.db.Exec(`
		UPDATE comments SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting comment %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// ListThreadComments pages the non-deleted comments of a thread in creation
// order with author summary and like count attached.
func (s *Storage) ListThreadComments(threadID int64, page, size int) ([]*CommentView, int, error) {
	var total int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM comments WHERE thread_id = ? AND is_deleted = 0`, threadID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting comments: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id FROM comments
		WHERE thread_id = ? AND is_deleted = 0
		ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		threadID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("listing comments: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*CommentView, 0, len(ids))
	for _, id := range ids {
		view, err := s.GetCommentView(id)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, view)
	}
	return views, total, nil
}

// GetCommentView loads a comment with derived fields.
func (s *Storage) GetCommentView(id int64) (*CommentView, error) {
	c, err := s.GetCommentByID(id)
	if err != nil {
		return nil, err
	}

	author, err := s.authorSummary(c.AuthorID)
	if err != nil {
		return nil, err
	}

	var likeCount int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM likes WHERE comment_id = ?`, c.ID,
	).Scan(&likeCount); err != nil {
		return nil, fmt.Errorf("counting likes for comment %d: %w", c.ID, err)
	}

	return &CommentView{
		ID:              c.ID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Content:         c.Content,
		ThreadID:        c.ThreadID,
		AuthorID:        c.AuthorID,
		Author:          author,
		ParentCommentID: c.ParentCommentID,
		LikeCount:       likeCount,
		IsDeleted:       c.IsDeleted,
	}, nil
}

// SearchComments finds non-deleted comments matching the already-normalized
// query substring.
func (s *Storage) SearchComments(query string, page, size int) ([]*CommentView, int, error) {
	pattern := "%" + query + "%"

	var total int
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM comments
		WHERE is_deleted = 0 AND LOWER(content) LIKE ?`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting comment matches: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id FROM comments
		WHERE is_deleted = 0 AND LOWER(content) LIKE ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		pattern, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("searching comments: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*CommentView, 0, len(ids))
	for _, id := range ids {
		view, err := s.GetCommentView(id)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, view)
	}
	return views, total, nil
}

// CountActiveComments returns the number of non-deleted comments.
func (s *Storage) CountActiveComments() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE is_deleted = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting comments: %w", err)
	}
	return n, nil
}
