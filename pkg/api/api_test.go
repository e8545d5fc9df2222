package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/agoradev/agora/pkg/cache"
	"github.com/agoradev/agora/pkg/forum"
	"github.com/agoradev/agora/pkg/pubsub"
	"github.com/agoradev/agora/pkg/realtime"
	"github.com/agoradev/agora/pkg/storage"
)

type apiEnv struct {
	ts  *httptest.Server
	svc *forum.Services
	hub *realtime.Hub
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "agora.db"))
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	broker := pubsub.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	hub := realtime.NewHub()
	svc := forum.NewServices(store, cache.NewMemoryCache(), hub, broker, time.Hour)
	if err := svc.Auth.Bootstrap(context.Background(), "admin@example.com", "adminpass"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	listener := realtime.NewListener(hub, broker)
	if err := listener.Start(ctx); err != nil {
		t.Fatalf("starting listener: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		listener.Stop()
	})

	srv := NewServer(svc, hub)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return &apiEnv{ts: ts, svc: svc, hub: hub}
}

// do issues a JSON request against the test server. An empty token skips the
// Authorization header.
func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// login registers a member (unless the credentials belong to the bootstrap
// admin) and returns a session token.
func (e *apiEnv) login(t *testing.T, email, password, name string) string {
	t.Helper()

	if name != "" {
		resp := e.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
			Email: email, Password: password, Name: name,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("register returned %d", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email: email, Password: password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
	var session LoginResponse
	decodeResponse(t, resp, &session)
	if session.Token == "" {
		t.Fatal("login returned empty token")
	}
	return session.Token
}

func TestHealthEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health returned %d", resp.StatusCode)
	}
	var health HealthResponse
	decodeResponse(t, resp, &health)
	if health.Status != "ok" {
		t.Fatalf("unexpected health status %q", health.Status)
	}
}

func TestAuthRequiredForWrites(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/threads", "", CreateThreadRequest{Title: "nope"})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/threads", "not-a-token", CreateThreadRequest{Title: "nope"})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bogus token, got %d", resp.StatusCode)
	}
}

func TestThreadLifecycleOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t, "ada@example.com", "hunter22", "Ada")

	resp := env.do(t, http.MethodPost, "/api/v1/threads", token, CreateThreadRequest{
		Title:       "First post",
		Description: "hello world",
		Tags:        []string{"Intro"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create thread returned %d", resp.StatusCode)
	}
	var created storage.ThreadView
	decodeResponse(t, resp, &created)
	if created.ID == 0 || created.Title != "First post" {
		t.Fatalf("unexpected created thread: %+v", created)
	}
	if len(created.Tags) != 1 || created.Tags[0] != "intro" {
		t.Fatalf("expected normalized tags, got %v", created.Tags)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/threads", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list threads returned %d", resp.StatusCode)
	}
	var page forum.ThreadPage
	decodeResponse(t, resp, &page)
	if page.Total != 1 {
		t.Fatalf("expected 1 thread, got %d", page.Total)
	}

	resp = env.do(t, http.MethodDelete, "/api/v1/threads/1", token, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete thread returned %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/threads/1", "", nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestCommentAndNotificationFlow(t *testing.T) {
	env := newAPIEnv(t)
	authorToken := env.login(t, "author@example.com", "hunter22", "Author")
	fanToken := env.login(t, "fan@example.com", "hunter22", "Fan")

	resp := env.do(t, http.MethodPost, "/api/v1/threads", authorToken, CreateThreadRequest{
		Title: "Discussion", Description: "talk here",
	})
	var thread storage.ThreadView
	decodeResponse(t, resp, &thread)

	resp = env.do(t, http.MethodPost, "/api/v1/comments", fanToken, CreateCommentRequest{
		Content:  "great thread",
		ThreadID: thread.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create comment returned %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", authorToken, nil)
	var count UnreadCountResponse
	decodeResponse(t, resp, &count)
	if count.Count != 1 {
		t.Fatalf("expected 1 unread notification for author, got %d", count.Count)
	}

	resp = env.do(t, http.MethodPatch, "/api/v1/notifications/read-all", authorToken, nil)
	var marked MarkAllReadResponse
	decodeResponse(t, resp, &marked)
	if marked.Updated != 1 {
		t.Fatalf("expected 1 row marked read, got %d", marked.Updated)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", authorToken, nil)
	decodeResponse(t, resp, &count)
	if count.Count != 0 {
		t.Fatalf("expected 0 unread after read-all, got %d", count.Count)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newAPIEnv(t)
	memberToken := env.login(t, "pleb@example.com", "hunter22", "Pleb")
	adminToken := env.login(t, "admin@example.com", "adminpass", "")

	resp := env.do(t, http.MethodGet, "/api/v1/users", memberToken, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/users", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}
	var page forum.UserPage
	decodeResponse(t, resp, &page)
	if page.Total != 2 {
		t.Fatalf("expected 2 accounts, got %d", page.Total)
	}
}

func TestModerationRoutesRequireModerator(t *testing.T) {
	env := newAPIEnv(t)
	memberToken := env.login(t, "pleb@example.com", "hunter22", "Pleb")

	resp := env.do(t, http.MethodGet, "/api/v1/moderation/pending", memberToken, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", resp.StatusCode)
	}

	// Reporting content is open to any authenticated user.
	threadToken := env.login(t, "author@example.com", "hunter22", "Author")
	resp = env.do(t, http.MethodPost, "/api/v1/threads", threadToken, CreateThreadRequest{Title: "spam?"})
	var thread storage.ThreadView
	decodeResponse(t, resp, &thread)

	resp = env.do(t, http.MethodPost, "/api/v1/moderation/report", memberToken, ReportRequest{
		ContentType: "THREAD",
		ThreadID:    &thread.ID,
		Reason:      "looks like spam",
	})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("report returned %d", resp.StatusCode)
	}
}

func TestSearchEndpointIsPublic(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t, "author@example.com", "hunter22", "Author")

	resp := env.do(t, http.MethodPost, "/api/v1/threads", token, CreateThreadRequest{
		Title: "Searchable title", Description: "body",
	})
	_ = resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/search/threads?q=searchable", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search returned %d", resp.StatusCode)
	}
	var results forum.ThreadResults
	decodeResponse(t, resp, &results)
	if results.Total != 1 {
		t.Fatalf("expected 1 search hit, got %d", results.Total)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newAPIEnv(t)
	env.login(t, "ada@example.com", "hunter22", "Ada")

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email: "ada@example.com", Password: "wrong",
	})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body ErrorResponse
	decodeResponse(t, resp, &body)
	if body.Error != "Unauthorized" {
		t.Fatalf("unexpected error payload: %+v", body)
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newAPIEnv(t)

	for i := 0; i < forum.LoginRateLimit; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
			Email: "nobody@example.com", Password: "wrong",
		})
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}

	// Once the window quota is spent even valid credentials are rejected.
	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email: "admin@example.com", Password: "adminpass",
	})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over quota, got %d", resp.StatusCode)
	}
	var body ErrorResponse
	decodeResponse(t, resp, &body)
	if body.Message != "Rate limit exceeded" {
		t.Fatalf("unexpected error payload: %+v", body)
	}
}

func TestCommentRateLimited(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t, "chatty@example.com", "hunter22", "Chatty")

	resp := env.do(t, http.MethodPost, "/api/v1/threads", token, CreateThreadRequest{
		Title: "Busy thread", Description: "lots of talk",
	})
	var thread storage.ThreadView
	decodeResponse(t, resp, &thread)

	for i := 0; i < forum.CommentRateLimit; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/comments", token, CreateCommentRequest{
			Content: "another one", ThreadID: thread.ID,
		})
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("comment %d: expected 201, got %d", i+1, resp.StatusCode)
		}
	}

	resp = env.do(t, http.MethodPost, "/api/v1/comments", token, CreateCommentRequest{
		Content: "one too many", ThreadID: thread.ID,
	})
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over quota, got %d", resp.StatusCode)
	}
}

func TestUserSuggestRoute(t *testing.T) {
	env := newAPIEnv(t)
	token := env.login(t, "mona@example.com", "hunter22", "Mona")
	env.login(t, "alice@example.com", "hunter22", "Alice")

	resp := env.do(t, http.MethodGet, "/api/v1/users/suggest?q=Al", "", nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/users/suggest?q=Al", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggest returned %d", resp.StatusCode)
	}
	var suggestions []*storage.UserSuggestion
	decodeResponse(t, resp, &suggestions)
	if len(suggestions) != 1 || suggestions[0].Name != "Alice" {
		t.Fatalf("unexpected suggestions %+v", suggestions)
	}
}

func TestUserActivityRouteIsAdminOnly(t *testing.T) {
	env := newAPIEnv(t)
	memberToken := env.login(t, "mona@example.com", "hunter22", "Mona")
	adminToken := env.login(t, "admin@example.com", "adminpass", "")

	resp := env.do(t, http.MethodGet, "/api/v1/auth/me", memberToken, nil)
	var member storage.User
	decodeResponse(t, resp, &member)

	resp = env.do(t, http.MethodPost, "/api/v1/threads", memberToken, CreateThreadRequest{
		Title: "Hello", Description: "first thread", Tags: []string{"intro"},
	})
	_ = resp.Body.Close()

	path := fmt.Sprintf("/api/v1/users/%d/activity", member.ID)
	resp = env.do(t, http.MethodGet, path, memberToken, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, path, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activity returned %d", resp.StatusCode)
	}
	var snapshot storage.ActivitySnapshot
	decodeResponse(t, resp, &snapshot)
	if snapshot.Stats.Threads != 1 {
		t.Fatalf("expected 1 thread in stats, got %d", snapshot.Stats.Threads)
	}
	if len(snapshot.TopTags) != 1 || snapshot.TopTags[0].Name != "intro" {
		t.Fatalf("unexpected top tags %+v", snapshot.TopTags)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/users/9999/activity", adminToken, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing user, got %d", resp.StatusCode)
	}
}
