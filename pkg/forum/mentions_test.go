package forum

import (
	"context"
	"reflect"
	"testing"
)

func TestExtractMentionNames(t *testing.T) {
	cases := []struct {
		content string
		want    []string
	}{
		{"", nil},
		{"no mentions here", nil},
		{"@alice", []string{"alice"}},
		{"hey @alice, meet @bob", []string{"alice", "bob"}},
		{"@alice @alice @alice", []string{"alice"}},
		{"(@alice) and [@bob]!", []string{"alice", "bob"}},
		{"mail me at alice@example.com", nil},
		{"@alice@bob", []string{"alice"}},
		{"order preserved: @zoe then @abe", []string{"zoe", "abe"}},
	}
	for _, c := range cases {
		if got := ExtractMentionNames(c.content); !reflect.DeepEqual(got, c.want) {
			t.Errorf("ExtractMentionNames(%q) = %v, want %v", c.content, got, c.want)
		}
	}
}

func TestMentionProcessResolvesOnlyKnownNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice")
	author := env.user(t, "author")
	view := env.thread(t, author, "topic")

	users, err := env.svc.Mentions.Process(ctx, "cc @alice and @nobody", &view.ID, nil)
	if err != nil {
		t.Fatalf("processing mentions: %v", err)
	}
	if len(users) != 1 || users[0].ID != alice.ID {
		t.Fatalf("expected only alice resolved, got %+v", users)
	}
}

func TestMentionFeed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.user(t, "alice")
	author := env.user(t, "author")
	view := env.thread(t, author, "topic")

	if _, err := env.svc.Comments.Create(ctx, author, view.ID, "what say you @alice", nil); err != nil {
		t.Fatalf("creating comment: %v", err)
	}

	page, err := env.svc.Mentions.ListForUser(ctx, alice.ID, 1, 10)
	if err != nil {
		t.Fatalf("listing mentions: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 mention, got %d", page.Total)
	}
	m := page.Items[0]
	if m.ThreadID == nil || *m.ThreadID != view.ID {
		t.Fatalf("mention thread mismatch: %+v", m)
	}
	if m.CommentID == nil {
		t.Fatal("expected comment-scoped mention")
	}
}
