package leads

import (
	"regexp"
	"strings"
	"time"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
)

// DateWindow restricts posts by age relative to now, with inclusive
// whole-day boundaries.
type DateWindow string

const (
	DateAll   DateWindow = "all"
	DateToday DateWindow = "today"
	DateWeek  DateWindow = "week"
	DateMonth DateWindow = "month"
)

// dayThreshold returns the maximum whole-day age a post may have for the
// window, and whether the window restricts at all.
func (w DateWindow) dayThreshold() (int, bool) {
	switch w {
	case DateToday:
		return 0, true
	case DateWeek:
		return 7, true
	case DateMonth:
		return 30, true
	default:
		return 0, false
	}
}

// Criteria is the current filter configuration.
type Criteria struct {
	Window   DateWindow
	MinScore int

	// Query is a free-text search over message, author name, and comment
	// messages/author names. Empty matches everything.
	Query string

	// KeywordsEnabled turns the keyword stage on. The stage is also a
	// no-op when Allow is empty.
	KeywordsEnabled bool
	Allow           []string
	Exclude         []string

	// Regex interprets Allow entries as case-insensitive regular
	// expressions instead of substrings.
	Regex bool
}

// Filter evaluates posts against fixed criteria. The keyword match
// strategy (pattern or substring) is resolved once at construction: if any
// Allow pattern fails to compile in regex mode, the whole set degrades to
// substring matching.
type Filter struct {
	crit     Criteria
	scorer   *Scorer
	patterns []*regexp.Regexp // nil means substring strategy
	now      func() time.Time
}

// NewFilter builds a filter for the given criteria and scorer.
func NewFilter(crit Criteria, scorer *Scorer) *Filter {
	f := &Filter{
		crit:   crit,
		scorer: scorer,
		now:    time.Now,
	}
	if crit.Regex {
		f.patterns = compilePatterns(crit.Allow)
	}
	return f
}

// compilePatterns compiles every allow keyword as a case-insensitive
// pattern. Any compilation failure discards the set, selecting the
// substring strategy instead; the failure is never retried per post.
func compilePatterns(allow []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(allow))
	for _, kw := range allow {
		p, err := regexp.Compile("(?i)" + kw)
		if err != nil {
			return nil
		}
		patterns = append(patterns, p)
	}
	return patterns
}

// Include reports whether the post passes all filter stages: date window,
// score threshold, free-text search, and keyword filtering. Stages are
// independent predicates; the cheap date check runs first.
func (f *Filter) Include(post *domain.Post) bool {
	if !f.withinWindow(post) {
		return false
	}
	if f.scorer.Score(post) < f.crit.MinScore {
		return false
	}
	if !f.matchesQuery(post) {
		return false
	}
	return f.matchesKeywords(post)
}

func (f *Filter) withinWindow(post *domain.Post) bool {
	threshold, restricted := f.crit.Window.dayThreshold()
	if !restricted {
		return true
	}
	ageDays := int(f.now().Sub(post.CreatedAt).Hours() / 24)
	return ageDays <= threshold
}

func (f *Filter) matchesQuery(post *domain.Post) bool {
	query := strings.ToLower(f.crit.Query)
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(post.Message), query) ||
		strings.Contains(strings.ToLower(post.AuthorName), query) {
		return true
	}
	for _, c := range post.Comments {
		if strings.Contains(strings.ToLower(c.Message), query) ||
			strings.Contains(strings.ToLower(c.AuthorName), query) {
			return true
		}
	}
	return false
}

// matchesKeywords applies the keyword stage over a combined blob of the
// post message, author name, and all comment messages/author names.
func (f *Filter) matchesKeywords(post *domain.Post) bool {
	if !f.crit.KeywordsEnabled || len(f.crit.Allow) == 0 {
		return true
	}

	blob := postBlob(post)

	if f.patterns != nil {
		for _, p := range f.patterns {
			if p.MatchString(blob) {
				return true
			}
		}
		return false
	}

	lowered := strings.ToLower(blob)
	allowed := false
	for _, kw := range f.crit.Allow {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	for _, kw := range f.crit.Exclude {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func postBlob(post *domain.Post) string {
	var b strings.Builder
	b.WriteString(post.Message)
	b.WriteString(" ")
	b.WriteString(post.AuthorName)
	for _, c := range post.Comments {
		b.WriteString(" ")
		b.WriteString(c.Message)
		b.WriteString(" ")
		b.WriteString(c.AuthorName)
	}
	return b.String()
}
