package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Storage) CreateNotification(n *Notification) (*Notification, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO notifications (user_id, actor_id, type, title, message, entity_type, entity_id, is_read, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		n.UserID, n.ActorID, n.Type, n.Title, n.Message, n.EntityType, n.EntityID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading notification id: %w", err)
	}
	return s.getNotificationByID(id)
}

const notificationColumns = `id, user_id, actor_id, type, title, message, entity_type, entity_id, is_read, created_at, updated_at`

func scanNotification(scan func(dest ...any) error) (*Notification, error) {
	var n Notification
	var actorID sql.NullInt64
	err := scan(&n.ID, &n.UserID, &actorID, &n.Type, &n.Title, &n.Message,
		&n.EntityType, &n.EntityID, &n.IsRead, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}
	if actorID.Valid {
		n.ActorID = &actorID.Int64
	}
	return &n, nil
}

func (s *Storage) getNotificationByID(id int64) (*Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	return scanNotification(row.Scan)
}

// GetUserNotificationByID returns the notification only when it belongs to
// userID; ownership misses surface as ErrNotFound.
func (s *Storage) GetUserNotificationByID(userID, notificationID int64) (*Notification, error) {
	row := s.db.QueryRow(
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ? AND user_id = ?`,
		notificationID, userID)
	return scanNotification(row.Scan)
}

// ListUserNotifications pages a user's notifications, strictly descending by
// creation time (id breaks ties for rows created within the same tick).
func (s *Storage) ListUserNotifications(userID int64, page, size int) ([]*Notification, error) {
	rows, err := s.db.Query(`
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Storage) CountUserNotifications(userID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ?`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting notifications: %w", err)
	}
	return n, nil
}

func (s *Storage) CountUnreadNotifications(userID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

// FindRecentDuplicate looks up the most recent unread notification matching
// the full dedup key (user, type, entity, actor-or-absence) created within
// the trailing window. Used as the idempotency guard before inserting.
func (s *Storage) FindRecentDuplicate(userID int64, actorID *int64, typ, entityType string, entityID int64, window time.Duration) (*Notification, error) {
	since := time.Now().UTC().Add(-window)

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = ? AND type = ? AND entity_type = ? AND entity_id = ?
		AND is_read = 0 AND created_at >= ?`
	args := []any{userID, typ, entityType, entityID, since}

	if actorID != nil {
		query += ` AND actor_id = ?`
		args = append(args, *actorID)
	} else {
		query += ` AND actor_id IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	row := s.db.QueryRow(query, args...)
	n, err := scanNotification(row.Scan)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return n, err
}

// MarkNotificationRead flips is_read and returns the updated row.
func (s *Storage) MarkNotificationRead(id int64) (*Notification, error) {
	res, err := s.db.Exec(
		`UPDATE notifications SET is_read = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("marking notification %d read: %w", id, err)
	}
	if err := requireRowAffected(res); err != nil {
		return nil, err
	}
	return s.getNotificationByID(id)
}

// MarkAllNotificationsRead bulk-flips every unread row for the user and
// returns the number of rows affected.
func (s *Storage) MarkAllNotificationsRead(userID int64) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE notifications SET is_read = 1, updated_at = ? WHERE user_id = ? AND is_read = 0`,
		time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}
