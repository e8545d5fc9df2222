package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Storage) CreateThread(title, description string, authorID int64) (*Thread, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO threads (title, description, author_id, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		title, description, authorID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting thread: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading thread id: %w", err)
	}
	return s.GetThreadByID(id)
}

func (s *Storage) GetThreadByID(id int64) (*Thread, error) {
	var t Thread
	err := s.db.QueryRow(`
		SELECT id, title, description, author_id, is_deleted, created_at, updated_at
		FROM threads WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.AuthorID, &t.IsDeleted, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning thread: %w", err)
	}
	return &t, nil
}

func (s *Storage) UpdateThread(t *Thread) error {
	res, err := s.db.Exec(`
		UPDATE threads SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, time.Now().UTC(), t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating thread %d: %w", t.ID, err)
	}
	return requireRowAffected(res)
}

func (s *Storage) SoftDeleteThread(id int64) error {
	res, err := s.db.Exec(`
		UPDATE threads SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting thread %d: %w", id, err)
	}
	return requireRowAffected(res)
}

// SetThreadTags replaces a thread's tag set, creating missing tag rows.
func (s *Storage) SetThreadTags(threadID int64, names []string) error {
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

	if _, err := tx.Exec(`DELETE FROM thread_tags WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("clearing thread tags: %w", err)
	}

	for _, name := range names {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("inserting tag %s: %w", name, err)
		}
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO thread_tags (thread_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`, threadID, name); err != nil {
			return fmt.Errorf("linking tag %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tags: %w", err)
	}
	committed = true
	return nil
}

func (s *Storage) threadTags(threadID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT t.name FROM tags t
		JOIN thread_tags tt ON tt.tag_id = t.id
		WHERE tt.thread_id = ?
		ORDER BY t.name`, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading tags for thread %d: %w", threadID, err)
	}
	defer func() { _ = rows.Close() }()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func (s *Storage) authorSummary(userID int64) (*AuthorSummary, error) {
	var a AuthorSummary
	var name, avatarURL sql.NullString
	err := s.db.QueryRow(`
		SELECT id, name, email, avatar_url FROM users WHERE id = ?`, userID,
	).Scan(&a.ID, &name, &a.Email, &avatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading author %d: %w", userID, err)
	}
	a.Name = name.String
	a.AvatarURL = avatarURL.String
	return &a, nil
}

// GetThreadView loads a single thread with all derived fields.
func (s *Storage) GetThreadView(id int64) (*ThreadView, error) {
	t, err := s.GetThreadByID(id)
	if err != nil {
		return nil, err
	}
	return s.buildThreadView(t)
}

// ListActiveThreadViews returns every non-deleted thread with derived fields
// computed, newest first. This is the source of the canonical thread-list
// snapshot; viewer-specific like state is not populated here.
func (s *Storage) ListActiveThreadViews() ([]*ThreadView, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, author_id, is_deleted, created_at, updated_at
		FROM threads WHERE is_deleted = 0
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var threads []*Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.AuthorID,
			&t.IsDeleted, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		threads = append(threads, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	views := make([]*ThreadView, 0, len(threads))
	for _, t := range threads {
		view, err := s.buildThreadView(t)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Storage) buildThreadView(t *Thread) (*ThreadView, error) {
	tags, err := s.threadTags(t.ID)
	if err != nil {
		return nil, err
	}
	author, err := s.authorSummary(t.AuthorID)
	if err != nil {
		return nil, err
	}

	var commentCount, likeCount int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM comments WHERE thread_id = ? AND is_deleted = 0`, t.ID,
	).Scan(&commentCount); err != nil {
		return nil, fmt.Errorf("counting comments for thread %d: %w", t.ID, err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM likes WHERE thread_id = ?`, t.ID,
	).Scan(&likeCount); err != nil {
		return nil, fmt.Errorf("counting likes for thread %d: %w", t.ID, err)
	}

	return &ThreadView{
		ID:           t.ID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Title:        t.Title,
		Description:  t.Description,
		Tags:         tags,
		AuthorID:     t.AuthorID,
		Author:       author,
		CommentCount: commentCount,
		LikeCount:    likeCount,
		IsDeleted:    t.IsDeleted,
	}, nil
}

// SearchThreads finds non-deleted threads whose title or description match
// the already-normalized query substring.
func (s *Storage) SearchThreads(query string, page, size int) ([]*ThreadView, int, error) {
	pattern := "%" + query + "%"

	var total int
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM threads
		WHERE is_deleted = 0 AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)`,
		pattern, pattern,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting thread matches: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id FROM threads
		WHERE is_deleted = 0 AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		pattern, pattern, size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("searching threads: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*ThreadView, 0, len(ids))
	for _, id := range ids {
		view, err := s.GetThreadView(id)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, view)
	}
	return views, total, nil
}

// CountActiveThreads returns the number of non-deleted threads.
func (s *Storage) CountActiveThreads() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM threads WHERE is_deleted = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting threads: %w", err)
	}
	return n, nil
}
