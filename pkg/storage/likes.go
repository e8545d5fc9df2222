package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateLike inserts a like for exactly one target (thread or comment). The
// unique constraints guarantee at most one like per (user, target) pair;
// violating them surfaces as an error the caller maps to "already liked".
func (s *Storage) CreateLike(userID int64, threadID, commentID *int64) (*Like, error) {
	res, err := s.db.Exec(`
		INSERT INTO likes (user_id, thread_id, comment_id, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, threadID, commentID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting like: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading like id: %w", err)
	}

	like := &Like{ID: id, UserID: userID, ThreadID: threadID, CommentID: commentID}
	return like, nil
}

// GetUserLike finds the caller's like on the given target.
func (s *Storage) GetUserLike(userID int64, threadID, commentID *int64) (*Like, error) {
	query := `SELECT id, user_id, thread_id, comment_id, created_at FROM likes WHERE user_id = ?`
	args := []any{userID}
	switch {
	case threadID != nil:
		query += ` AND thread_id = ?`
		args = append(args, *threadID)
	case commentID != nil:
		query += ` AND comment_id = ?`
		args = append(args, *commentID)
	default:
		return nil, ErrNotFound
	}

	var like Like
	var tid, cid sql.NullInt64
	err := s.db.QueryRow(query, args...).Scan(&like.ID, &like.UserID, &tid, &cid, &like.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning like: %w", err)
	}
	if tid.Valid {
		like.ThreadID = &tid.Int64
	}
	if cid.Valid {
		like.CommentID = &cid.Int64
	}
	return &like, nil
}

func (s *Storage) DeleteLike(id int64) error {
	res, err := s.db.Exec(`DELETE FROM likes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting like %d: %w", id, err)
	}
	return requireRowAffected(res)
}

func (s *Storage) CountThreadLikes(threadID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM likes WHERE thread_id = ?`, threadID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting thread likes: %w", err)
	}
	return n, nil
}

func (s *Storage) CountCommentLikes(commentID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM likes WHERE comment_id = ?`, commentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting comment likes: %w", err)
	}
	return n, nil
}

// GetLikedThreadIDs returns the set of thread ids the user has liked. Used
// to overlay user_has_liked onto the shared thread-list snapshot.
func (s *Storage) GetLikedThreadIDs(userID int64) (map[int64]struct{}, error) {
	rows, err := s.db.Query(
		`SELECT thread_id FROM likes WHERE user_id = ? AND thread_id IS NOT NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading liked thread ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	liked := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning liked thread id: %w", err)
		}
		liked[id] = struct{}{}
	}
	return liked, rows.Err()
}

// GetLikedCommentIDs returns the set of comment ids within a thread the user
// has liked.
func (s *Storage) GetLikedCommentIDs(userID, threadID int64) (map[int64]struct{}, error) {
	rows, err := s.db.Query(`
		SELECT l.comment_id FROM likes l
		JOIN comments c ON c.id = l.comment_id
		WHERE l.user_id = ? AND c.thread_id = ?`,
		userID, threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading liked comment ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	liked := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning liked comment id: %w", err)
		}
		liked[id] = struct{}{}
	}
	return liked, rows.Err()
}
