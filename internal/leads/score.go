// Package leads turns raw feed records into ranked sales leads: scoring,
// filtering, and the customer ledger.
package leads

import (
	"strings"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
)

// Score weights. A keyword hit outweighs engagement signals.
const (
	keywordPoints = 10
	commentPoints = 2
	imagePoints   = 5
)

// Scorer assigns a relevance score to a post against the active keyword
// set. Scoring is deterministic and pure; scores are recomputed on demand,
// never cached on the post.
type Scorer struct {
	keywords []string
}

// NewScorer creates a scorer over the given keyword set. Duplicates in the
// set count multiple times.
func NewScorer(keywords []string) *Scorer {
	return &Scorer{keywords: keywords}
}

// Keywords returns the active keyword set.
func (s *Scorer) Keywords() []string {
	return s.keywords
}

// Score returns the post's relevance score: keywordPoints per keyword found
// as a case-insensitive substring of the message, commentPoints per
// attached comment, and a flat imagePoints when the post carries at least
// one image. Total is unbounded above.
func (s *Scorer) Score(post *domain.Post) int {
	score := 0
	message := strings.ToLower(post.Message)
	for _, kw := range s.keywords {
		if kw != "" && strings.Contains(message, strings.ToLower(kw)) {
			score += keywordPoints
		}
	}
	score += len(post.Comments) * commentPoints
	if post.HasImages() {
		score += imagePoints
	}
	return score
}
