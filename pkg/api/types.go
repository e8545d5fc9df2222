package api

import (
	"time"

	"github.com/agoradev/agora/pkg/storage"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string        `json:"token"`
	TokenType string        `json:"token_type"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *storage.User `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type CreateThreadRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type UpdateThreadRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

type CreateCommentRequest struct {
	Content         string `json:"content"`
	ThreadID        int64  `json:"thread_id"`
	ParentCommentID *int64 `json:"parent_comment_id"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// LikeRequest targets exactly one of thread_id or comment_id.
type LikeRequest struct {
	ThreadID  *int64 `json:"thread_id"`
	CommentID *int64 `json:"comment_id"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

type ReportRequest struct {
	ContentType string `json:"content_type"`
	ThreadID    *int64 `json:"thread_id"`
	CommentID   *int64 `json:"comment_id"`
	Reason      string `json:"reason"`
}

type ReviewUpdateRequest struct {
	Status      string `json:"status"`
	ActionTaken string `json:"action_taken"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

type AdminUpdateUserRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
	IsActive  *bool   `json:"is_active"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
