package storage

import "time"

// Role names used for access control.
const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
	RoleMember    = "MEMBER"
)

// Role is a row from the roles table. The id travels with the name so
// clients and realtime payloads see the same identifiers the database holds.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"role_name"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url"`
	Bio          string    `json:"bio"`
	IsActive     bool      `json:"is_active"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// AuthorSummary is the slimmed author view embedded in thread and comment
// payloads.
type AuthorSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type Thread struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorID    int64     `json:"author_id"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ThreadView is a thread with every derived field computed: tags, author
// summary and counts. UserHasLiked is viewer-specific and left false in the
// canonical (shared) representation.
type ThreadView struct {
	ID           int64          `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Tags         []string       `json:"tags"`
	AuthorID     int64          `json:"author_id"`
	Author       *AuthorSummary `json:"author"`
	CommentCount int            `json:"comment_count"`
	LikeCount    int            `json:"like_count"`
	UserHasLiked bool           `json:"user_has_liked"`
	IsDeleted    bool           `json:"is_deleted"`
}

type Comment struct {
	ID              int64     `json:"id"`
	Content         string    `json:"content"`
	ThreadID        int64     `json:"thread_id"`
	AuthorID        int64     `json:"author_id"`
	ParentCommentID *int64    `json:"parent_comment_id"`
	IsDeleted       bool      `json:"is_deleted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CommentView is a comment with author summary and like count attached.
type CommentView struct {
	ID              int64          `json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Content         string         `json:"content"`
	ThreadID        int64          `json:"thread_id"`
	AuthorID        int64          `json:"author_id"`
	Author          *AuthorSummary `json:"author"`
	ParentCommentID *int64         `json:"parent_comment_id"`
	LikeCount       int            `json:"like_count"`
	UserHasLiked    bool           `json:"user_has_liked"`
	IsDeleted       bool           `json:"is_deleted"`
}

type Like struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ThreadID  *int64    `json:"thread_id"`
	CommentID *int64    `json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Mention struct {
	ID              int64     `json:"id"`
	MentionedUserID int64     `json:"mentioned_user_id"`
	ThreadID        *int64    `json:"thread_id"`
	CommentID       *int64    `json:"comment_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type Notification struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ActorID    *int64    `json:"actor_id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Moderation review states.
const (
	ReviewStatusPending  = "PENDING"
	ReviewStatusApproved = "APPROVED"
	ReviewStatusRejected = "REJECTED"
)

type ModerationReview struct {
	ID          int64     `json:"id"`
	ContentType string    `json:"content_type"` // THREAD / COMMENT
	ThreadID    *int64    `json:"thread_id"`
	CommentID   *int64    `json:"comment_id"`
	Reason      string    `json:"reason"`
	ReviewerID  *int64    `json:"reviewer_id"`
	Status      string    `json:"status"`
	ActionTaken string    `json:"action_taken"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
