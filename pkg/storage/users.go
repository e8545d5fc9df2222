package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups whose subject does not exist.
var ErrNotFound = errors.New("not found")

// EnsureRoles inserts any missing role rows. Idempotent; called at boot.
func (s *Storage) EnsureRoles(names ...string) error {
	for _, name := range names {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO roles (role_name) VALUES (?)`, name,
		); err != nil {
			return fmt.Errorf("ensuring role %s: %w", name, err)
		}
	}
	return nil
}

// CreateUser inserts a user and assigns the given roles.
func (s *Storage) CreateUser(email, passwordHash, name string, roles ...string) (*User, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO users (email, password_hash, name, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		email, passwordHash, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading user id: %w", err)
	}

	for _, role := range roles {
		if err := s.assignRole(id, role); err != nil {
			return nil, err
		}
	}

	return s.GetUserByID(id)
}

func (s *Storage) assignRole(userID int64, role string) error {
	if _, err := s.db.Exec(`
		INSERT OR IGNORE INTO user_roles (user_id, role_id)
		SELECT ?, id FROM roles WHERE role_name = ?`,
		userID, role,
	); err != nil {
		return fmt.Errorf("assigning role %s to user %d: %w", role, userID, err)
	}
	return nil
}

// SetUserRoles replaces a user's role set.
func (s *Storage) SetUserRoles(userID int64, roles ...string) error {
	if _, err := s.db.Exec(`DELETE FROM user_roles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing roles for user %d: %w", userID, err)
	}
	for _, role := range roles {
		if err := s.assignRole(userID, role); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `id, email, password_hash, name, avatar_url, bio, is_active, created_at, updated_at`

func (s *Storage) scanUser(row *sql.Row) (*User, error) {
	var u User
	var name, avatarURL, bio sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &name, &avatarURL, &bio,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Name = name.String
	u.AvatarURL = avatarURL.String
	u.Bio = bio.String

	u.Roles, err = s.userRoles(u.ID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Storage) userRoles(userID int64) ([]Role, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.role_name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
		ORDER BY r.role_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading roles for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (s *Storage) GetUserByID(id int64) (*User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return s.scanUser(row)
}

// GetActiveUserByID returns the user only when the account is active.
func (s *Storage) GetActiveUserByID(id int64) (*User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ? AND is_active = 1`, id)
	return s.scanUser(row)
}

func (s *Storage) GetUserByEmail(email string) (*User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return s.scanUser(row)
}

// GetUsersByNames resolves @mention usernames to users. Matching is exact on
// the name column.
func (s *Storage) GetUsersByNames(names []string) ([]*User, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(names))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := s.db.Query(
		`SELECT id FROM users WHERE name IN (`+placeholders+`) AND is_active = 1`, args...)
	if err != nil {
		return nil, fmt.Errorf("resolving usernames: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}

	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		u, err := s.GetUserByID(id)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// UpdateUser persists profile fields (name, avatar_url, bio, is_active).
func (s *Storage) UpdateUser(u *User) error {
	res, err := s.db.Exec(`
		UPDATE users SET name = ?, avatar_url = ?, bio = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.AvatarURL, u.Bio, u.IsActive, time.Now().UTC(), u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	return requireRowAffected(res)
}

// UpdatePassword replaces a user's password hash.
func (s *Storage) UpdatePassword(userID int64, passwordHash string) error {
	res, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", userID, err)
	}
	return requireRowAffected(res)
}

// ListUsers pages through accounts, optionally filtering by a name/email
// substring.
func (s *Storage) ListUsers(page, size int, q string) ([]*User, int, error) {
	where := ""
	var args []any
	if q != "" {
		where = `WHERE (name LIKE ? OR email LIKE ?)`
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	args = append(args, size, (page-1)*size)
	rows, err := s.db.Query(
		`SELECT id FROM users `+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, 0, err
	}

	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		u, err := s.GetUserByID(id)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, nil
}

// UserSuggestion is the compact row served to mention autocomplete.
type UserSuggestion struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// SuggestUsers returns active, named accounts for mention autocomplete,
// excluding the requesting user. A non-empty q restricts to names starting
// with it; results come back in name order.
func (s *Storage) SuggestUsers(excludeUserID int64, q string, limit int) ([]*UserSuggestion, error) {
	where := `WHERE is_active = 1 AND name IS NOT NULL AND TRIM(name) != '' AND id != ?`
	args := []any{excludeUserID}
	if q != "" {
		where += ` AND name LIKE ?`
		args = append(args, q+"%")
	}
	args = append(args, limit)

	rows, err := s.db.Query(
		`SELECT id, name, avatar_url FROM users `+where+` ORDER BY name ASC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("suggesting users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	suggestions := []*UserSuggestion{}
	for rows.Next() {
		var u UserSuggestion
		var avatarURL sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &avatarURL); err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		u.AvatarURL = avatarURL.String
		suggestions = append(suggestions, &u)
	}
	return suggestions, rows.Err()
}

// UserActivity pairs a user with content statistics for the admin role views.
type UserActivity struct {
	User         *User `json:"user"`
	ThreadCount  int   `json:"thread_count"`
	CommentCount int   `json:"comment_count"`
}

// ListUsersByRole pages users holding role, with per-user thread and comment
// counts.
func (s *Storage) ListUsersByRole(role string, page, size int, q string) ([]*UserActivity, int, error) {
	where := `WHERE r.role_name = ?`
	args := []any{role}
	if q != "" {
		where += ` AND (u.name LIKE ? OR u.email LIKE ?)`
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRow(`
		SELECT COUNT(DISTINCT u.id) FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users by role: %w", err)
	}

	args = append(args, size, (page-1)*size)
	rows, err := s.db.Query(`
		SELECT DISTINCT u.id FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id `+where+`
		ORDER BY u.id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users by role: %w", err)
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*UserActivity, 0, len(ids))
	for _, id := range ids {
		u, err := s.GetUserByID(id)
		if err != nil {
			return nil, 0, err
		}
		var threads, comments int
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM threads WHERE author_id = ? AND is_deleted = 0`, id,
		).Scan(&threads); err != nil {
			return nil, 0, fmt.Errorf("counting threads for user %d: %w", id, err)
		}
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM comments WHERE author_id = ? AND is_deleted = 0`, id,
		).Scan(&comments); err != nil {
			return nil, 0, fmt.Errorf("counting comments for user %d: %w", id, err)
		}
		items = append(items, &UserActivity{User: u, ThreadCount: threads, CommentCount: comments})
	}
	return items, total, nil
}

// CountUsers returns the total number of accounts.
func (s *Storage) CountUsers() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func collectIDs(rows *sql.Rows) ([]int64, error) {
	defer func() { _ = rows.Close() }()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
