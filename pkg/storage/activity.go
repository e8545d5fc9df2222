package storage

import (
	"fmt"
	"strings"
	"time"
)

// ActivityStats aggregates one user's contribution counts. Soft-deleted
// content is excluded everywhere; likes received does not count the user's
// own likes on their content.
type ActivityStats struct {
	Threads       int `json:"threads"`
	Comments      int `json:"comments"`
	LikesGiven    int `json:"likes_given"`
	LikesReceived int `json:"likes_received"`
}

// TagCount is one entry of the per-user tag usage ranking.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ActivityThread struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Title        string    `json:"title"`
	Tags         []string  `json:"tags"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
}

type ActivityComment struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Content     string    `json:"content"`
	ThreadID    int64     `json:"thread_id"`
	ThreadTitle string    `json:"thread_title"`
	LikeCount   int       `json:"like_count"`
}

// ActivityLike describes one like the user gave. Thread likes carry only the
// thread fields; comment likes additionally carry the comment id and a
// trimmed excerpt of its content.
type ActivityLike struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	TargetType     string    `json:"target_type"`
	ThreadID       int64     `json:"thread_id"`
	ThreadTitle    string    `json:"thread_title"`
	CommentID      *int64    `json:"comment_id"`
	CommentExcerpt *string   `json:"comment_excerpt"`
}

// ActivitySnapshot is the admin view of one user's footprint: aggregate
// stats, their most-used tags and their most recent contributions.
type ActivitySnapshot struct {
	User           *User              `json:"user"`
	Stats          ActivityStats      `json:"stats"`
	TopTags        []TagCount         `json:"top_tags"`
	RecentThreads  []*ActivityThread  `json:"recent_threads"`
	RecentComments []*ActivityComment `json:"recent_comments"`
	RecentLikes    []*ActivityLike    `json:"recent_likes"`
}

const activityExcerptLimit = 120

// UserActivitySnapshot assembles the activity view for one user. Returns
// ErrNotFound when the user does not exist.
func (s *Storage) UserActivitySnapshot(userID int64, limitThreads, limitComments, limitLikes int) (*ActivitySnapshot, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.activityStats(userID)
	if err != nil {
		return nil, err
	}
	topTags, err := s.topTags(userID)
	if err != nil {
		return nil, err
	}
	threads, err := s.recentThreads(userID, limitThreads)
	if err != nil {
		return nil, err
	}
	comments, err := s.recentComments(userID, limitComments)
	if err != nil {
		return nil, err
	}
	likes, err := s.recentLikes(userID, limitLikes)
	if err != nil {
		return nil, err
	}

	return &ActivitySnapshot{
		User:           user,
		Stats:          stats,
		TopTags:        topTags,
		RecentThreads:  threads,
		RecentComments: comments,
		RecentLikes:    likes,
	}, nil
}

func (s *Storage) activityStats(userID int64) (ActivityStats, error) {
	var stats ActivityStats

	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM threads WHERE author_id = ? AND is_deleted = 0`, userID,
	).Scan(&stats.Threads); err != nil {
		return stats, fmt.Errorf("counting threads for user %d: %w", userID, err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM comments WHERE author_id = ? AND is_deleted = 0`, userID,
	).Scan(&stats.Comments); err != nil {
		return stats, fmt.Errorf("counting comments for user %d: %w", userID, err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM likes WHERE user_id = ?`, userID,
	).Scan(&stats.LikesGiven); err != nil {
		return stats, fmt.Errorf("counting likes given by user %d: %w", userID, err)
	}
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM likes l
		LEFT JOIN threads t ON t.id = l.thread_id
		LEFT JOIN comments c ON c.id = l.comment_id
		WHERE l.user_id != ?
		  AND ((t.author_id = ? AND t.is_deleted = 0)
		    OR (c.author_id = ? AND c.is_deleted = 0))`,
		userID, userID, userID,
	).Scan(&stats.LikesReceived); err != nil {
		return stats, fmt.Errorf("counting likes received by user %d: %w", userID, err)
	}

	return stats, nil
}

func (s *Storage) topTags(userID int64) ([]TagCount, error) {
	rows, err := s.db.Query(`
		SELECT tg.name, COUNT(*) AS uses FROM tags tg
		JOIN thread_tags tt ON tt.tag_id = tg.id
		JOIN threads t ON t.id = tt.thread_id
		WHERE t.author_id = ? AND t.is_deleted = 0
		GROUP BY tg.name
		ORDER BY uses DESC, tg.name ASC
		LIMIT 10`, userID)
	if err != nil {
		return nil, fmt.Errorf("ranking tags for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	tags := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("scanning tag count: %w", err)
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

func (s *Storage) recentThreads(userID int64, limit int) ([]*ActivityThread, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, updated_at, title FROM threads
		WHERE author_id = ? AND is_deleted = 0
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent threads for user %d: %w", userID, err)
	}
	threads := []*ActivityThread{}
	for rows.Next() {
		var t ActivityThread
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.Title); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning recent thread: %w", err)
		}
		threads = append(threads, &t)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, t := range threads {
		tags, err := s.threadTags(t.ID)
		if err != nil {
			return nil, err
		}
		t.Tags = tags
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM likes WHERE thread_id = ?`, t.ID,
		).Scan(&t.LikeCount); err != nil {
			return nil, fmt.Errorf("counting likes for thread %d: %w", t.ID, err)
		}
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM comments WHERE thread_id = ? AND is_deleted = 0`, t.ID,
		).Scan(&t.CommentCount); err != nil {
			return nil, fmt.Errorf("counting comments for thread %d: %w", t.ID, err)
		}
	}
	return threads, nil
}

func (s *Storage) recentComments(userID int64, limit int) ([]*ActivityComment, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.created_at, c.updated_at, c.content, c.thread_id, t.title
		FROM comments c
		JOIN threads t ON t.id = c.thread_id
		WHERE c.author_id = ? AND c.is_deleted = 0
		ORDER BY c.created_at DESC, c.id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent comments for user %d: %w", userID, err)
	}
	comments := []*ActivityComment{}
	for rows.Next() {
		var c ActivityComment
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.Content, &c.ThreadID, &c.ThreadTitle); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scanning recent comment: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, c := range comments {
		if err := s.db.QueryRow(
			`SELECT COUNT(*) FROM likes WHERE comment_id = ?`, c.ID,
		).Scan(&c.LikeCount); err != nil {
			return nil, fmt.Errorf("counting likes for comment %d: %w", c.ID, err)
		}
	}
	return comments, nil
}

func (s *Storage) recentLikes(userID int64, limit int) ([]*ActivityLike, error) {
	rows, err := s.db.Query(`
		SELECT l.id, l.created_at,
		       l.thread_id, t.title,
		       l.comment_id, c.content, c.thread_id, ct.title
		FROM likes l
		LEFT JOIN threads t ON t.id = l.thread_id
		LEFT JOIN comments c ON c.id = l.comment_id
		LEFT JOIN threads ct ON ct.id = c.thread_id
		WHERE l.user_id = ?
		ORDER BY l.created_at DESC, l.id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent likes for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	likes := []*ActivityLike{}
	for rows.Next() {
		var (
			id                        int64
			createdAt                 time.Time
			threadID, commentID       *int64
			threadTitle, commentTitle *string
			commentContent            *string
			commentThreadID           *int64
		)
		if err := rows.Scan(&id, &createdAt,
			&threadID, &threadTitle,
			&commentID, &commentContent, &commentThreadID, &commentTitle); err != nil {
			return nil, fmt.Errorf("scanning recent like: %w", err)
		}

		switch {
		case threadID != nil && threadTitle != nil:
			likes = append(likes, &ActivityLike{
				ID:          id,
				CreatedAt:   createdAt,
				TargetType:  "thread",
				ThreadID:    *threadID,
				ThreadTitle: *threadTitle,
			})
		case commentID != nil && commentContent != nil && commentThreadID != nil:
			excerpt := excerptContent(*commentContent)
			title := ""
			if commentTitle != nil {
				title = *commentTitle
			}
			likes = append(likes, &ActivityLike{
				ID:             id,
				CreatedAt:      createdAt,
				TargetType:     "comment",
				ThreadID:       *commentThreadID,
				ThreadTitle:    title,
				CommentID:      commentID,
				CommentExcerpt: &excerpt,
			})
		}
	}
	return likes, rows.Err()
}

func excerptContent(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= activityExcerptLimit {
		return string(runes)
	}
	return string(runes[:activityExcerptLimit-3]) + "..."
}
