package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
)

// KeywordStat counts the posts whose message contains a keyword.
type KeywordStat struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Analytics is the session summary.
type Analytics struct {
	TotalPosts          int           `json:"totalPosts"`
	TotalComments       int           `json:"totalComments"`
	PostsWithImages     int           `json:"postsWithImages"`
	HighScorePosts      int           `json:"highScorePosts"`
	TodayPosts          int           `json:"todayPosts"`
	KeywordStats        []KeywordStat `json:"keywordStats"`
	TotalCustomers      int           `json:"totalCustomers"`
	InterestedCustomers int           `json:"interestedCustomers"`
}

// Analytics summarizes the working collections and the ledger.
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	posts, err := s.deps.Posts.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	comments, err := s.deps.Posts.Comments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	customers, err := s.deps.Customers.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	a := &Analytics{
		TotalPosts:     len(posts),
		TotalComments:  len(comments),
		TotalCustomers: len(customers),
	}

	now := time.Now()
	for i := range posts {
		p := &posts[i]
		if p.HasImages() {
			a.PostsWithImages++
		}
		if s.Score(p) > highScoreThreshold {
			a.HighScorePosts++
		}
		if sameDay(p.CreatedAt, now) {
			a.TodayPosts++
		}
	}

	for _, c := range customers {
		if c.Status == domain.StatusInterested {
			a.InterestedCustomers++
		}
	}

	a.KeywordStats = keywordStats(s.Keywords(), posts)
	return a, nil
}

// keywordStats ranks keywords by how many post messages contain them.
func keywordStats(keywords []string, posts []domain.Post) []KeywordStat {
	stats := make([]KeywordStat, 0, len(keywords))
	for _, kw := range keywords {
		stat := KeywordStat{Keyword: kw}
		lowered := strings.ToLower(kw)
		for i := range posts {
			if strings.Contains(strings.ToLower(posts[i].Message), lowered) {
				stat.Count++
			}
		}
		stats = append(stats, stat)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})
	return stats
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
