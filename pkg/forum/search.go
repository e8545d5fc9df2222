package forum

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/agoradev/agora/pkg/log"
	"github.com/agoradev/agora/pkg/storage"
)

// Search sort orders.
const (
	SortRecent  = "recent"
	SortPopular = "popular"
)

var queryFolder = cases.Fold()

// Search runs keyword searches over threads and comments.
type Search struct {
	store  *storage.Storage
	logger *log.Logger
}

func NewSearch(store *storage.Storage) *Search {
	return &Search{store: store, logger: log.ForService("search")}
}

// normalizeKeyword case-folds and trims the query so matching is
// case-insensitive.
func normalizeKeyword(keyword string) string {
	return queryFolder.String(strings.TrimSpace(keyword))
}

// ThreadResults is a paged thread search response.
type ThreadResults struct {
	Results []*storage.ThreadView `json:"results"`
	Total   int                   `json:"total"`
}

// Threads searches live threads by title or description substring. An empty
// keyword matches nothing. sortBy reorders the returned page: SortPopular by
// like then comment count, anything else newest first.
func (s *Search) Threads(ctx context.Context, keyword string, page, size int, sortBy string) (*ThreadResults, error) {
	keyword = normalizeKeyword(keyword)
	if keyword == "" {
		return &ThreadResults{Results: []*storage.ThreadView{}}, nil
	}

	views, total, err := s.store.SearchThreads(keyword, page, size)
	if err != nil {
		return nil, fmt.Errorf("searching threads: %w", err)
	}
	if views == nil {
		views = []*storage.ThreadView{}
	}

	if sortBy == SortPopular {
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].LikeCount != views[j].LikeCount {
				return views[i].LikeCount > views[j].LikeCount
			}
			return views[i].CommentCount > views[j].CommentCount
		})
	}

	return &ThreadResults{Results: views, Total: total}, nil
}

// CommentResults is a paged comment search response.
type CommentResults struct {
	Results []*storage.CommentView `json:"results"`
	Total   int                    `json:"total"`
}

// Comments searches live comments by content substring.
func (s *Search) Comments(ctx context.Context, keyword string, page, size int) (*CommentResults, error) {
	keyword = normalizeKeyword(keyword)
	if keyword == "" {
		return &CommentResults{Results: []*storage.CommentView{}}, nil
	}

	views, total, err := s.store.SearchComments(keyword, page, size)
	if err != nil {
		return nil, fmt.Errorf("searching comments: %w", err)
	}
	if views == nil {
		views = []*storage.CommentView{}
	}

	return &CommentResults{Results: views, Total: total}, nil
}
