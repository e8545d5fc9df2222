package forum

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

const minPasswordLength = 6

// Auth handles registration, credential login and bearer-token sessions.
// Tokens are opaque UUIDs stored server side, so revocation is a row delete.
type Auth struct {
	store      *storage.Storage
	emitter    *Emitter
	sessionTTL time.Duration
	logger     *log.Logger
}

func NewAuth(store *storage.Storage, emitter *Emitter, sessionTTL time.Duration) *Auth {
	return &Auth{
		store:      store,
		emitter:    emitter,
		sessionTTL: sessionTTL,
		logger:     log.ForService("auth"),
	}
}

// Bootstrap makes the role table and the configured admin account exist.
// Idempotent; runs at every boot. An existing admin account keeps its
// password.
func (a *Auth) Bootstrap(ctx context.Context, adminEmail, adminPassword string) error {
	if err := a.store.EnsureRoles(storage.RoleAdmin, storage.RoleModerator, storage.RoleMember); err != nil {
		return err
	}
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	admin, err := a.store.GetUserByEmail(adminEmail)
	if err == storage.ErrNotFound {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		if _, err := a.store.CreateUser(adminEmail, string(hash), "Admin", storage.RoleAdmin); err != nil {
			return fmt.Errorf("creating admin account: %w", err)
		}
		a.logger.Infof("bootstrapped admin account %s", adminEmail)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading admin account: %w", err)
	}

	if !isAdmin(admin) {
		if err := a.store.SetUserRoles(admin.ID, storage.RoleAdmin); err != nil {
			return fmt.Errorf("restoring admin role: %w", err)
		}
	}
	if !admin.IsActive {
		admin.IsActive = true
		if err := a.store.UpdateUser(admin); err != nil {
			return fmt.Errorf("reactivating admin account: %w", err)
		}
	}
	return nil
}

// Register creates a member account. Registering an email twice is a
// conflict.
func (a *Auth) Register(ctx context.Context, email, password, name string) (*storage.User, error) {
	if _, err := a.store.GetUserByEmail(email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	} else if err != storage.ErrNotFound {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := a.store.CreateUser(email, string(hash), name, storage.RoleMember)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	a.emitter.UserChanged(ctx, user, "created")
	return user, nil
}

// Session is an authenticated login result.
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      *storage.User `json:"user"`
}

// Login verifies credentials and mints a session token. Wrong email and
// wrong password are indistinguishable to the caller; a deactivated account
// is reported as such.
func (a *Auth) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := a.store.GetUserByEmail(email)
	if err == storage.ErrNotFound {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", ErrForbidden)
	}

	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(a.sessionTTL)
	if err := a.store.CreateSession(token, user.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a bearer token to its active user.
func (a *Auth) Authenticate(ctx context.Context, token string) (*storage.User, error) {
	userID, err := a.store.ResolveSession(token)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("invalid session: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	user, err := a.store.GetActiveUserByID(userID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, fmt.Errorf("account unavailable: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

// Logout revokes the session token. Revoking an unknown token is a no-op.
func (a *Auth) Logout(ctx context.Context, token string) error {
	if err := a.store.DeleteSession(token); err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ChangePassword rotates the caller's password after verifying the old one.
func (a *Auth) ChangePassword(ctx context.Context, user *storage.User, oldPassword, newPassword string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("old password is incorrect: %w", ErrUnauthorized)
	}
	if oldPassword == newPassword {
		return fmt.Errorf("new password must differ from the old one: %w", ErrInvalid)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := a.store.UpdatePassword(user.ID, string(hash)); err != nil {
		return fmt.Errorf("storing password: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes dead session rows. Called periodically by the
// server.
func (a *Auth) PurgeExpiredSessions(ctx context.Context) {
	n, err := a.store.PurgeExpiredSessions()
	if err != nil {
		a.logger.Warnf("purging sessions: %v", err)
		return
	}
	if n > 0 {
		a.logger.Debugf("purged %d expired sessions", n)
	}
}
