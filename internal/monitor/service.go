// Package monitor wires the ingestion, lookup, scoring, and ledger pieces
// into the session-level service the CLI and HTTP server drive.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
	"github.com/AymanAAASWa/facebook-monitor/internal/feed"
	"github.com/AymanAAASWa/facebook-monitor/internal/leads"
	"github.com/AymanAAASWa/facebook-monitor/internal/lookup"
	"github.com/AymanAAASWa/facebook-monitor/internal/scheduler"
)

// highScoreThreshold marks a post as notable for analytics and auto-mode
// alerts.
const highScoreThreshold = 15

// ErrResolveInFlight is returned when a contact lookup for the same author
// id is already running. The pending set is advisory de-duplication, not a
// lock.
var ErrResolveInFlight = errors.New("contact lookup already in flight for this author")

// ErrNoMappingFile is returned when no mapping file was configured.
var ErrNoMappingFile = errors.New("no mapping file configured")

// Deps are the collaborators the service is built from.
type Deps struct {
	Gateway   feed.Gateway
	Posts     domain.PostStore
	Cursors   domain.CursorStore
	Contacts  domain.ContactStore
	Customers domain.CustomerStore
	Notifier  domain.Notifier
	Logger    *slog.Logger
}

// Options tune session behavior.
type Options struct {
	Groups          []string
	Keywords        []string
	ExcludeKeywords []string
	MappingFile     string
	RefreshPeriod   time.Duration
	AlertThreshold  int
	ChunkSize       int

	// FetchFirstPage makes incremental ingestion fetch page one for
	// groups without a stored cursor instead of skipping them.
	FetchFirstPage bool
}

// RefreshSummary reports the outcome of one ingestion call.
type RefreshSummary struct {
	Mode     feed.Mode
	Posts    int
	Comments int
	Groups   int
	Failed   []string
}

// ScoredPost pairs a post with its score under the active keyword set.
type ScoredPost struct {
	domain.Post
	Score int `json:"score"`
}

// Service owns the session state: working collections, cursor map,
// keyword set, pending lookups, and the auto-refresh handle.
type Service struct {
	deps     Deps
	ingestor *feed.Ingestor
	resolver *lookup.Resolver
	ledger   *leads.Ledger
	refresh  *scheduler.Scheduler

	mappingFile string
	logger      *slog.Logger

	mu       sync.Mutex
	groups   []string
	scorer   *leads.Scorer
	exclude  []string
	pending  map[string]struct{}
	lastLoad time.Time
}

// NewService assembles the service.
func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		deps:        deps,
		mappingFile: opts.MappingFile,
		logger:      deps.Logger,
		groups:      append([]string(nil), opts.Groups...),
		scorer:      leads.NewScorer(append([]string(nil), opts.Keywords...)),
		exclude:     append([]string(nil), opts.ExcludeKeywords...),
		pending:     make(map[string]struct{}),
	}
	s.ingestor = feed.NewIngestor(deps.Gateway, feed.Options{FetchFirstPage: opts.FetchFirstPage}, deps.Logger)
	s.resolver = lookup.NewResolver(opts.ChunkSize, deps.Logger)
	s.ledger = leads.NewLedger(deps.Customers, deps.Notifier, s.Score, opts.AlertThreshold, deps.Logger)
	s.refresh = scheduler.New(opts.RefreshPeriod, func(ctx context.Context) {
		if _, err := s.LoadPosts(ctx, feed.Incremental, true); err != nil {
			deps.Logger.Error("scheduled refresh failed", "error", err)
		}
	}, deps.Logger)
	return s
}

// Score computes the post's score under the current keyword set.
func (s *Service) Score(post *domain.Post) int {
	s.mu.Lock()
	scorer := s.scorer
	s.mu.Unlock()
	return scorer.Score(post)
}

// LoadPosts runs one ingestion over the configured groups. Full mode
// replaces the working collections; Incremental appends older pages. auto
// suppresses interactive status and instead raises one alert when notable
// posts arrived.
func (s *Service) LoadPosts(ctx context.Context, mode feed.Mode, auto bool) (*RefreshSummary, error) {
	s.mu.Lock()
	groups := append([]string(nil), s.groups...)
	s.mu.Unlock()

	if len(groups) == 0 {
		return nil, errors.New("no groups configured")
	}

	cursors, err := s.deps.Cursors.Cursors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cursors: %w", err)
	}

	result := s.ingestor.Ingest(ctx, groups, cursors, mode)

	switch mode {
	case feed.Full:
		if err := s.deps.Posts.ReplacePosts(ctx, result.Posts); err != nil {
			return nil, fmt.Errorf("replace posts: %w", err)
		}
	default:
		if err := s.deps.Posts.AppendPosts(ctx, result.Posts); err != nil {
			return nil, fmt.Errorf("append posts: %w", err)
		}
	}

	if err := s.applyCursors(ctx, cursors, result.Cursors); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastLoad = time.Now()
	s.mu.Unlock()

	// The scheduler only runs while the session has posts to refresh.
	if count, err := s.deps.Posts.CountPosts(ctx); err == nil && count == 0 {
		s.refresh.Stop()
	}

	if auto {
		s.alertNotablePosts(ctx, result.Posts)
	}

	return &RefreshSummary{
		Mode:     mode,
		Posts:    len(result.Posts),
		Comments: len(result.Comments),
		Groups:   len(groups),
		Failed:   result.Failed,
	}, nil
}

func (s *Service) applyCursors(ctx context.Context, before, after map[string]string) error {
	for groupID := range before {
		if _, ok := after[groupID]; !ok {
			if err := s.deps.Cursors.ClearCursor(ctx, groupID); err != nil {
				return fmt.Errorf("clear cursor: %w", err)
			}
		}
	}
	for groupID, token := range after {
		if before[groupID] == token {
			continue
		}
		if err := s.deps.Cursors.UpsertCursor(ctx, groupID, token); err != nil {
			return fmt.Errorf("store cursor: %w", err)
		}
	}
	return nil
}

func (s *Service) alertNotablePosts(ctx context.Context, posts []domain.Post) {
	notable := 0
	for i := range posts {
		if s.Score(&posts[i]) > highScoreThreshold {
			notable++
		}
	}
	if notable == 0 {
		return
	}
	msg := fmt.Sprintf("%d notable posts found", notable)
	if err := s.deps.Notifier.Notify(ctx, "new notable posts", msg); err != nil {
		s.logger.Warn("refresh alert delivery failed", "error", err)
	}
}

// ResolveContact resolves the author's contact value from the mapping
// file, stores the result, and attributes the author's posts to the
// customer ledger when a contact was found. A lookup already in flight for
// the same id returns ErrResolveInFlight; a completed lookup is returned
// from the contact store without rescanning the file.
func (s *Service) ResolveContact(ctx context.Context, authorID string) (domain.Contact, error) {
	if authorID == "" {
		return domain.Contact{}, errors.New("empty author id")
	}

	if cached, ok, err := s.deps.Contacts.Contact(ctx, authorID); err != nil {
		return domain.Contact{}, fmt.Errorf("load contact: %w", err)
	} else if ok {
		return cached, nil
	}

	if s.mappingFile == "" {
		return domain.Contact{}, ErrNoMappingFile
	}

	s.mu.Lock()
	if _, inFlight := s.pending[authorID]; inFlight {
		s.mu.Unlock()
		return domain.Contact{}, ErrResolveInFlight
	}
	s.pending[authorID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, authorID)
		s.mu.Unlock()
	}()

	f, err := os.Open(s.mappingFile)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("open mapping file: %w", err)
	}
	defer f.Close()

	contact := s.resolver.Resolve(authorID, f)

	if err := s.deps.Contacts.UpsertContact(ctx, authorID, contact); err != nil {
		return domain.Contact{}, fmt.Errorf("store contact: %w", err)
	}

	if contact.Found {
		if err := s.attributePosts(ctx, authorID, contact); err != nil {
			s.logger.Error("failed to attribute posts to ledger", "author_id", authorID, "error", err)
		}
	}

	s.logger.Info("contact lookup finished", "author_id", authorID, "found", contact.Found)
	return contact, nil
}

// attributePosts upserts every stored post by the author into the ledger.
func (s *Service) attributePosts(ctx context.Context, authorID string, contact domain.Contact) error {
	posts, err := s.deps.Posts.Posts(ctx)
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	for i := range posts {
		if posts[i].AuthorID != authorID {
			continue
		}
		if _, err := s.ledger.Upsert(ctx, &posts[i], contact); err != nil {
			return err
		}
	}
	return nil
}

// Resolving reports whether a lookup for the author id is in flight.
func (s *Service) Resolving(authorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[authorID]
	return ok
}

// Filtered returns the stored posts passing the criteria, scored, newest
// first.
func (s *Service) Filtered(ctx context.Context, crit leads.Criteria) ([]ScoredPost, error) {
	posts, err := s.deps.Posts.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}

	s.mu.Lock()
	scorer := s.scorer
	s.mu.Unlock()
	filter := leads.NewFilter(crit, scorer)

	out := make([]ScoredPost, 0, len(posts))
	for i := range posts {
		if !filter.Include(&posts[i]) {
			continue
		}
		out = append(out, ScoredPost{Post: posts[i], Score: scorer.Score(&posts[i])})
	}
	return out, nil
}

// Customers returns the ledger snapshot ranked by score.
func (s *Service) Customers(ctx context.Context) ([]domain.Customer, error) {
	return s.deps.Customers.Customers(ctx)
}

// SetAutoRefresh toggles the periodic incremental refresh. Enabling is a
// no-op while the session has no posts.
func (s *Service) SetAutoRefresh(ctx context.Context, enabled bool) error {
	if !enabled {
		s.refresh.Stop()
		return nil
	}
	count, err := s.deps.Posts.CountPosts(ctx)
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	if count == 0 {
		return errors.New("no posts ingested yet")
	}
	s.refresh.Start()
	return nil
}

// AutoRefreshActive reports whether the refresh loop is running.
func (s *Service) AutoRefreshActive() bool {
	return s.refresh.Active()
}

// RefreshRemaining returns the countdown to the next scheduled refresh.
func (s *Service) RefreshRemaining() time.Duration {
	return s.refresh.Remaining()
}

// Shutdown cancels the refresh loop.
func (s *Service) Shutdown() {
	s.refresh.Stop()
}

// Keywords returns the active keyword set.
func (s *Service) Keywords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scorer.Keywords()...)
}

// SetKeywords replaces the active keyword set.
func (s *Service) SetKeywords(keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scorer = leads.NewScorer(append([]string(nil), keywords...))
}

// ExcludeKeywords returns the parallel exclude set for keyword filtering.
func (s *Service) ExcludeKeywords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.exclude...)
}

// SetExcludeKeywords replaces the exclude set.
func (s *Service) SetExcludeKeywords(keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exclude = append([]string(nil), keywords...)
}

// Groups returns the monitored group ids.
func (s *Service) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.groups...)
}

// SetGroups replaces the monitored group set.
func (s *Service) SetGroups(groups []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append([]string(nil), groups...)
}
