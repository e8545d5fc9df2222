package forum

import (
	"context"
	"errors"
	"testing"

	"github.com/agoradev/agora/pkg/storage"
)

func TestRegisterLoginAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Auth.Register(ctx, "ada@example.com", "hunter22", "Ada")
	if err != nil {
		t.Fatalf("registering: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0].Name != storage.RoleMember {
		t.Fatalf("new accounts must be members, got %v", user.Roles)
	}

	session, err := env.svc.Auth.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("logging in: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a session token")
	}

	resolved, err := env.svc.Auth.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticating: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("token resolved to user %d, want %d", resolved.ID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Auth.Register(ctx, "dup@example.com", "secret1", "First"); err != nil {
		t.Fatalf("registering: %v", err)
	}
	if _, err := env.svc.Auth.Register(ctx, "dup@example.com", "secret2", "Second"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Auth.Register(context.Background(), "short@example.com", "abc", "Shorty")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for short password, got %v", err)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Auth.Register(ctx, "ada@example.com", "hunter22", "Ada"); err != nil {
		t.Fatalf("registering: %v", err)
	}

	if _, err := env.svc.Auth.Login(ctx, "ada@example.com", "wrong-pass"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.svc.Auth.Login(ctx, "ghost@example.com", "hunter22"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown email: expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.user(t, "boss", storage.RoleAdmin)
	user, err := env.svc.Auth.Register(ctx, "ada@example.com", "hunter22", "Ada")
	if err != nil {
		t.Fatalf("registering: %v", err)
	}

	inactive := false
	if _, err := env.svc.Users.AdminUpdate(ctx, admin, user.ID, ProfileUpdate{}, &inactive); err != nil {
		t.Fatalf("deactivating account: %v", err)
	}

	if _, err := env.svc.Auth.Login(ctx, "ada@example.com", "hunter22"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for deactivated account, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Auth.Register(ctx, "ada@example.com", "hunter22", "Ada"); err != nil {
		t.Fatalf("registering: %v", err)
	}
	session, err := env.svc.Auth.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("logging in: %v", err)
	}

	if err := env.svc.Auth.Logout(ctx, session.Token); err != nil {
		t.Fatalf("logging out: %v", err)
	}
	if _, err := env.svc.Auth.Authenticate(ctx, session.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}

	// Revoking again is a no-op.
	if err := env.svc.Auth.Logout(ctx, session.Token); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Auth.Register(ctx, "ada@example.com", "hunter22", "Ada")
	if err != nil {
		t.Fatalf("registering: %v", err)
	}

	if err := env.svc.Auth.ChangePassword(ctx, user, "wrong", "fresh-pass"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong old password: expected ErrUnauthorized, got %v", err)
	}
	if err := env.svc.Auth.ChangePassword(ctx, user, "hunter22", "hunter22"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("same password: expected ErrInvalid, got %v", err)
	}
	if err := env.svc.Auth.ChangePassword(ctx, user, "hunter22", "fresh-pass"); err != nil {
		t.Fatalf("changing password: %v", err)
	}

	if _, err := env.svc.Auth.Login(ctx, "ada@example.com", "hunter22"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old password should stop working, got %v", err)
	}
	if _, err := env.svc.Auth.Login(ctx, "ada@example.com", "fresh-pass"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
}

func TestBootstrapCreatesAndRepairsAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.svc.Auth.Bootstrap(ctx, "root@example.com", "changeme"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	session, err := env.svc.Auth.Login(ctx, "root@example.com", "changeme")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	admin := session.User
	if !admin.HasRole(storage.RoleAdmin) {
		t.Fatalf("bootstrapped account lacks admin role: %v", admin.Roles)
	}

	// Demote, then bootstrap again: the role comes back and the password
	// is left alone.
	if err := env.store.SetUserRoles(admin.ID, storage.RoleMember); err != nil {
		t.Fatalf("demoting admin: %v", err)
	}
	if err := env.svc.Auth.Bootstrap(ctx, "root@example.com", "different"); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	session, err = env.svc.Auth.Login(ctx, "root@example.com", "changeme")
	if err != nil {
		t.Fatalf("admin login after re-bootstrap: %v", err)
	}
	if !isAdmin(session.User) {
		t.Fatalf("admin role not restored: %v", session.User.Roles)
	}
}
