package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession persists an issued access token.
func (s *Storage) CreateSession(token string, userID int64, expiresAt time.Time) error {
	if _, err := s.db.Exec(`
		INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt.UTC(), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// ResolveSession returns the user id behind an unexpired token.
func (s *Storage) ResolveSession(token string) (int64, error) {
	var userID int64
	err := s.db.QueryRow(`
		SELECT user_id FROM sessions WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC(),
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolving session: %w", err)
	}
	return userID, nil
}

// DeleteSession revokes a token. Unknown tokens are a no-op.
func (s *Storage) DeleteSession(token string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes stale rows; called periodically from serve.
func (s *Storage) PurgeExpiredSessions() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}
