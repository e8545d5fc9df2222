package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// BulkCreateMentions stores one mention row per user for the given content.
func (s *Storage) BulkCreateMentions(userIDs []int64, threadID, commentID *int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, userID := range userIDs {
		if _, err := tx.Exec(`
			INSERT INTO mentions (mentioned_user_id, thread_id, comment_id, created_at)
			VALUES (?, ?, ?, ?)`,
			userID, threadID, commentID, now,
		); err != nil {
			return fmt.Errorf("inserting mention for user %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mentions: %w", err)
	}
	committed = true
	return nil
}

// ListUserMentions pages a user's mentions, newest first.
func (s *Storage) ListUserMentions(userID int64, page, size int) ([]*Mention, int, error) {
	var total int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM mentions WHERE mentioned_user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting mentions: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, mentioned_user_id, thread_id, comment_id, created_at
		FROM mentions WHERE mentioned_user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("listing mentions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mentions []*Mention
	for rows.Next() {
		var m Mention
		var tid, cid sql.NullInt64
		if err := rows.Scan(&m.ID, &m.MentionedUserID, &tid, &cid, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning mention: %w", err)
		}
		if tid.Valid {
			m.ThreadID = &tid.Int64
		}
		if cid.Valid {
			m.CommentID = &cid.Int64
		}
		mentions = append(mentions, &m)
	}
	return mentions, total, rows.Err()
}
