package forum

import (
	"context"
	"fmt"
	"regexp"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

// mentionPattern matches @name tokens. The leading group rejects matches
// preceded by a word character, so the local part of an email address never
// reads as a mention.
var mentionPattern = regexp.MustCompile(`(^|[^0-9A-Za-z_])@(\w+)`)

// ExtractMentionNames returns the distinct @-mentioned names in content, in
// order of first appearance.
func ExtractMentionNames(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[2]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Mentions records who was @-mentioned where and serves a user's mention
// feed.
type Mentions struct {
	store  *storage.Storage
	logger *log.Logger
}

func NewMentions(store *storage.Storage) *Mentions {
	return &Mentions{store: store, logger: log.ForService("mentions")}
}

// Process extracts mentions from content, persists a mention row per matched
// active user and returns those users. Names that resolve to no user are
// ignored.
func (m *Mentions) Process(ctx context.Context, content string, threadID, commentID *int64) ([]*storage.User, error) {
	names := ExtractMentionNames(content)
	if len(names) == 0 {
		return nil, nil
	}

	users, err := m.store.GetUsersByNames(names)
	if err != nil {
		return nil, fmt.Errorf("resolving mentioned users: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	if err := m.store.BulkCreateMentions(ids, threadID, commentID); err != nil {
		return nil, fmt.Errorf("storing mentions: %w", err)
	}

	return users, nil
}

// MentionPage is one page of a user's mention feed, newest first.
type MentionPage struct {
	Items []*storage.Mention `json:"items"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
}

func (m *Mentions) ListForUser(ctx context.Context, userID int64, page, size int) (*MentionPage, error) {
	items, total, err := m.store.ListUserMentions(userID, page, size)
	if err != nil {
		return nil, fmt.Errorf("loading mentions: %w", err)
	}
	if items == nil {
		items = []*storage.Mention{}
	}
	return &MentionPage{Items: items, Total: total, Page: page, Size: size}, nil
}
