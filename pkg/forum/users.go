package forum

import (
	"context"
	"fmt"
	"strings"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

// Users serves profiles and the admin account views, including role changes
// with their promotion notifications.
type Users struct {
	store         *storage.Storage
	emitter       *Emitter
	notifications *Notifications
	logger        *log.Logger
}

func NewUsers(store *storage.Storage, emitter *Emitter, notifications *Notifications) *Users {
	return &Users{
		store:         store,
		emitter:       emitter,
		notifications: notifications,
		logger:        log.ForService("users"),
	}
}

func (u *Users) Get(ctx context.Context, userID int64) (*storage.User, error) {
	user, err := u.store.GetUserByID(userID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

const (
	suggestDefaultLimit = 8
	suggestMaxLimit     = 20
)

// Suggest serves mention autocomplete: active, named accounts other than the
// caller, optionally restricted to a name prefix. Any authenticated user may
// call it.
func (u *Users) Suggest(ctx context.Context, actor *storage.User, q string, limit int) ([]*storage.UserSuggestion, error) {
	if limit <= 0 {
		limit = suggestDefaultLimit
	}
	if limit > suggestMaxLimit {
		limit = suggestMaxLimit
	}

	suggestions, err := u.store.SuggestUsers(actor.ID, strings.TrimSpace(q), limit)
	if err != nil {
		return nil, fmt.Errorf("suggesting users: %w", err)
	}
	return suggestions, nil
}

const (
	activityDefaultLimit = 10
	activityMaxLimit     = 50
)

func clampActivityLimit(limit int) int {
	if limit <= 0 {
		return activityDefaultLimit
	}
	if limit > activityMaxLimit {
		return activityMaxLimit
	}
	return limit
}

// Activity assembles the admin snapshot of one user's footprint: stats, top
// tags and recent contributions.
func (u *Users) Activity(ctx context.Context, actor *storage.User, userID int64, limitThreads, limitComments, limitLikes int) (*storage.ActivitySnapshot, error) {
	if !isAdmin(actor) {
		return nil, fmt.Errorf("viewing user activity: %w", ErrForbidden)
	}

	snapshot, err := u.store.UserActivitySnapshot(userID,
		clampActivityLimit(limitThreads), clampActivityLimit(limitComments), clampActivityLimit(limitLikes))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading user activity: %w", err)
	}
	return snapshot, nil
}

// ProfileUpdate carries the self-editable profile fields. Nil means
// unchanged.
type ProfileUpdate struct {
	Name      *string
	AvatarURL *string
	Bio       *string
}

// UpdateProfile edits the caller's own profile.
func (u *Users) UpdateProfile(ctx context.Context, user *storage.User, in ProfileUpdate) (*storage.User, error) {
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if err := u.store.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return u.Get(ctx, user.ID)
}

// UserPage is one page of the admin account listing.
type UserPage struct {
	Items []*storage.User `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
	Pages int             `json:"pages"`
}

// List pages through accounts. Admin only; q filters on name or email
// substring.
func (u *Users) List(ctx context.Context, actor *storage.User, page, size int, q string) (*UserPage, error) {
	if !isAdmin(actor) {
		return nil, fmt.Errorf("listing users: %w", ErrForbidden)
	}

	items, total, err := u.store.ListUsers(page, size, q)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	if items == nil {
		items = []*storage.User{}
	}
	return &UserPage{Items: items, Total: total, Page: page, Size: size, Pages: pageCount(total, size)}, nil
}

// ActivityPage is one page of the admin per-role view with content counts.
type ActivityPage struct {
	Items []*storage.UserActivity `json:"items"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Size  int                     `json:"size"`
	Pages int                     `json:"pages"`
}

// ListByRole pages users holding role, with thread and comment counts. Only
// the MEMBER and MODERATOR views exist; admins are not enumerable this way.
func (u *Users) ListByRole(ctx context.Context, actor *storage.User, role string, page, size int, q string) (*ActivityPage, error) {
	if !isAdmin(actor) {
		return nil, fmt.Errorf("listing users: %w", ErrForbidden)
	}
	if role != storage.RoleMember && role != storage.RoleModerator {
		return nil, fmt.Errorf("unsupported role %q: %w", role, ErrInvalid)
	}

	items, total, err := u.store.ListUsersByRole(role, page, size, q)
	if err != nil {
		return nil, fmt.Errorf("listing users by role: %w", err)
	}
	if items == nil {
		items = []*storage.UserActivity{}
	}
	return &ActivityPage{Items: items, Total: total, Page: page, Size: size, Pages: pageCount(total, size)}, nil
}

// AdminUpdate edits another user's account, including activation state.
// Admin only.
func (u *Users) AdminUpdate(ctx context.Context, actor *storage.User, userID int64, in ProfileUpdate, isActive *bool) (*storage.User, error) {
	if !isAdmin(actor) {
		return nil, fmt.Errorf("updating user: %w", ErrForbidden)
	}

	user, err := u.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if isActive != nil {
		user.IsActive = *isActive
	}
	if err := u.store.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	updated, err := u.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.emitter.UserChanged(ctx, updated, "updated")
	return updated, nil
}

// SetRole replaces the target's role set with a single role. Admin only. A
// promotion to ADMIN or MODERATOR the user did not already hold produces a
// notification telling them to re-login for the new dashboard.
func (u *Users) SetRole(ctx context.Context, actor *storage.User, userID int64, role string) (*storage.User, error) {
	if !isAdmin(actor) {
		return nil, fmt.Errorf("setting role: %w", ErrForbidden)
	}
	if role != storage.RoleAdmin && role != storage.RoleModerator && role != storage.RoleMember {
		return nil, fmt.Errorf("unknown role %q: %w", role, ErrInvalid)
	}

	user, err := u.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	hadRole := user.HasRole(role)

	if err := u.store.SetUserRoles(userID, role); err != nil {
		return nil, fmt.Errorf("setting role: %w", err)
	}

	updated, err := u.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.emitter.UserChanged(ctx, updated, "updated")

	if !hadRole {
		var title, message string
		switch role {
		case storage.RoleAdmin:
			title = "You have been promoted to Admin"
			message = "Re-login to access the admin dashboard."
		case storage.RoleModerator:
			title = "You have been promoted to Moderator"
			message = "Please login as moderator to access moderator dashboard."
		}
		if title != "" {
			if _, err := u.notifications.Create(ctx, CreateInput{
				UserID:     userID,
				ActorID:    &actor.ID,
				Type:       "ROLE_PROMOTION",
				Title:      title,
				Message:    message,
				EntityType: "user",
				EntityID:   userID,
			}); err != nil {
				u.logger.Warnf("notifying promoted user %d: %v", userID, err)
			}
		}
	}

	return updated, nil
}
