package monitor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
	"github.com/AymanAAASWa/facebook-monitor/internal/feed"
	"github.com/AymanAAASWa/facebook-monitor/internal/graph"
	"github.com/AymanAAASWa/facebook-monitor/internal/leads"
	"github.com/AymanAAASWa/facebook-monitor/internal/store"
)

// scriptedGateway serves pages keyed by "groupID|after".
type scriptedGateway struct {
	pages map[string]*graph.FeedResponse
	calls int
}

func (g *scriptedGateway) GroupName(_ context.Context, groupID string) (string, error) {
	return "Group " + groupID, nil
}

func (g *scriptedGateway) FeedPage(_ context.Context, groupID, after string) (*graph.FeedResponse, error) {
	g.calls++
	page, ok := g.pages[groupID+"|"+after]
	if !ok {
		return &graph.FeedResponse{}, nil
	}
	return page, nil
}

type capturedAlert struct {
	title   string
	message string
}

type captureNotifier struct {
	alerts []capturedAlert
}

func (n *captureNotifier) Notify(_ context.Context, title, message string) error {
	n.alerts = append(n.alerts, capturedAlert{title: title, message: message})
	return nil
}

func gatewayPage(next string, entries ...graph.FeedEntry) *graph.FeedResponse {
	resp := &graph.FeedResponse{Data: entries}
	if next != "" {
		resp.Paging = &graph.Paging{Next: next}
	}
	return resp
}

func entry(id, authorID, message string) graph.FeedEntry {
	return graph.FeedEntry{
		ID:          id,
		Message:     message,
		CreatedTime: time.Now().Format("2006-01-02T15:04:05-0700"),
		From:        &graph.Actor{ID: authorID, Name: "Author " + authorID},
	}
}

type fixture struct {
	service  *Service
	store    *store.Store
	gateway  *scriptedGateway
	notifier *captureNotifier
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	gw := &scriptedGateway{pages: make(map[string]*graph.FeedResponse)}
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewService(Deps{
		Gateway:   gw,
		Posts:     st,
		Cursors:   st,
		Contacts:  st,
		Customers: st,
		Notifier:  notifier,
		Logger:    logger,
	}, opts)
	t.Cleanup(service.Shutdown)

	return &fixture{service: service, store: st, gateway: gw, notifier: notifier}
}

func writeMappingFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestLoadPosts_FullStoresPostsAndCursor(t *testing.T) {
	f := newFixture(t, Options{Groups: []string{"g1"}, Keywords: []string{"offer"}})
	f.gateway.pages["g1|"] = gatewayPage(
		"https://graph.example.com/g1/feed?after=tok1",
		entry("p1", "a1", "great offer"),
		entry("p2", "a2", "nothing"),
	)

	ctx := context.Background()
	summary, err := f.service.LoadPosts(ctx, feed.Full, false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Posts)
	assert.Equal(t, 1, summary.Groups)
	assert.Empty(t, summary.Failed)

	posts, err := f.store.Posts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	cursors, err := f.store.Cursors(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"g1": "tok1"}, cursors)
}

func TestLoadPosts_IncrementalConsumesStoredCursor(t *testing.T) {
	f := newFixture(t, Options{Groups: []string{"g1"}})
	f.gateway.pages["g1|"] = gatewayPage("https://x/feed?after=tok1", entry("p1", "a1", "first"))
	f.gateway.pages["g1|tok1"] = gatewayPage("", entry("p2", "a1", "older"))

	ctx := context.Background()
	_, err := f.service.LoadPosts(ctx, feed.Full, false)
	require.NoError(t, err)

	summary, err := f.service.LoadPosts(ctx, feed.Incremental, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Posts)

	// Both pages accumulated; the exhausted cursor is gone.
	n, err := f.store.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cursors, err := f.store.Cursors(ctx)
	require.NoError(t, err)
	assert.Empty(t, cursors)

	// With no cursor left the group is skipped outright.
	calls := f.gateway.calls
	summary, err = f.service.LoadPosts(ctx, feed.Incremental, false)
	require.NoError(t, err)
	assert.Zero(t, summary.Posts)
	assert.Equal(t, calls, f.gateway.calls)
}

func TestLoadPosts_NoGroupsConfigured(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.service.LoadPosts(context.Background(), feed.Full, false)
	assert.Error(t, err)
}

func TestLoadPosts_AutoModeAlertsOnNotablePosts(t *testing.T) {
	f := newFixture(t, Options{Groups: []string{"g1"}, Keywords: []string{"offer", "price"}})
	f.gateway.pages["g1|"] = gatewayPage("",
		entry("p1", "a1", "offer offer"), // 20 points
		entry("p2", "a2", "quiet"),
	)

	_, err := f.service.LoadPosts(context.Background(), feed.Full, true)
	require.NoError(t, err)

	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "new notable posts", f.notifier.alerts[0].title)
	assert.Equal(t, "1 notable posts found", f.notifier.alerts[0].message)
}

func TestResolveContact_FoundAttributesPosts(t *testing.T) {
	mapping := writeMappingFile(t, `{"a0":"0100000000"}
{"a1":"0100000001"}
`)
	f := newFixture(t, Options{Groups: []string{"g1"}, Keywords: []string{"offer"}, MappingFile: mapping})
	f.gateway.pages["g1|"] = gatewayPage("",
		entry("p1", "a1", "an offer"),
		entry("p2", "a1", "another offer"),
		entry("p3", "a2", "unrelated"),
	)

	ctx := context.Background()
	_, err := f.service.LoadPosts(ctx, feed.Full, false)
	require.NoError(t, err)

	contact, err := f.service.ResolveContact(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.Contact{Value: "0100000001", Found: true}, contact)

	customer, err := f.store.Customer(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, "0100000001", customer.Phone)
	assert.ElementsMatch(t, []string{"p1", "p2"}, customer.PostIDs)
	assert.Equal(t, 20, customer.Score)

	other, err := f.store.Customer(ctx, "a2")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestResolveContact_CachedResultSkipsRescan(t *testing.T) {
	mapping := writeMappingFile(t, `{"a1":"0100000001"}`)
	f := newFixture(t, Options{MappingFile: mapping})

	ctx := context.Background()
	first, err := f.service.ResolveContact(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, first.Found)

	// The second call must come from the contact store, not the file.
	require.NoError(t, os.Remove(mapping))
	second, err := f.service.ResolveContact(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveContact_AbsentIdentifierIsCachedUnresolved(t *testing.T) {
	mapping := writeMappingFile(t, `{"a1":"0100000001"}`)
	f := newFixture(t, Options{MappingFile: mapping})

	ctx := context.Background()
	contact, err := f.service.ResolveContact(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, contact.Found)

	// No customer is created for an unresolved author.
	customer, err := f.store.Customer(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, customer)

	stored, ok, err := f.store.Contact(ctx, "missing")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, stored.Found)
}

func TestResolveContact_DuplicateLookupRejectedWhileInFlight(t *testing.T) {
	// A FIFO blocks the opening resolve until a writer appears, holding
	// the pending-set entry open for the duration of the test.
	mapping := filepath.Join(t.TempDir(), "mapping.fifo")
	require.NoError(t, syscall.Mkfifo(mapping, 0o600))

	f := newFixture(t, Options{MappingFile: mapping})
	ctx := context.Background()

	type outcome struct {
		contact domain.Contact
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		c, err := f.service.ResolveContact(ctx, "a1")
		done <- outcome{contact: c, err: err}
	}()

	require.Eventually(t, func() bool { return f.service.Resolving("a1") }, time.Second, 5*time.Millisecond)

	// The dedup is per identifier: a1 is rejected, a2 is not considered
	// in flight.
	_, err := f.service.ResolveContact(ctx, "a1")
	assert.ErrorIs(t, err, ErrResolveInFlight)
	assert.False(t, f.service.Resolving("a2"))

	w, err := os.OpenFile(mapping, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = w.WriteString(`{"a1":"0100000001"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, domain.Contact{Value: "0100000001", Found: true}, res.contact)
	assert.False(t, f.service.Resolving("a1"))
}

func TestResolveContact_NoMappingFile(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.service.ResolveContact(context.Background(), "a1")
	assert.ErrorIs(t, err, ErrNoMappingFile)
}

func TestResolveContact_EmptyAuthor(t *testing.T) {
	f := newFixture(t, Options{MappingFile: "unused"})
	_, err := f.service.ResolveContact(context.Background(), "")
	assert.Error(t, err)
}

func TestFiltered_ScoresAndFilters(t *testing.T) {
	f := newFixture(t, Options{Groups: []string{"g1"}, Keywords: []string{"offer"}})
	f.gateway.pages["g1|"] = gatewayPage("",
		entry("p1", "a1", "an offer"),
		entry("p2", "a2", "plain"),
	)

	ctx := context.Background()
	_, err := f.service.LoadPosts(ctx, feed.Full, false)
	require.NoError(t, err)

	all, err := f.service.Filtered(ctx, leads.Criteria{Window: leads.DateAll})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scored, err := f.service.Filtered(ctx, leads.Criteria{Window: leads.DateAll, MinScore: 5})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "p1", scored[0].ID)
	assert.Equal(t, 10, scored[0].Score)
}

func TestSetKeywordsChangesScoring(t *testing.T) {
	f := newFixture(t, Options{Keywords: []string{"offer"}})

	post := &domain.Post{ID: "p1", Message: "price drop"}
	assert.Zero(t, f.service.Score(post))

	f.service.SetKeywords([]string{"price"})
	assert.Equal(t, 10, f.service.Score(post))
	assert.Equal(t, []string{"price"}, f.service.Keywords())
}

func TestSetAutoRefreshRequiresPosts(t *testing.T) {
	f := newFixture(t, Options{Groups: []string{"g1"}})

	err := f.service.SetAutoRefresh(context.Background(), true)
	assert.Error(t, err)
	assert.False(t, f.service.AutoRefreshActive())

	f.gateway.pages["g1|"] = gatewayPage("", entry("p1", "a1", "hello"))
	_, err = f.service.LoadPosts(context.Background(), feed.Full, false)
	require.NoError(t, err)

	require.NoError(t, f.service.SetAutoRefresh(context.Background(), true))
	assert.True(t, f.service.AutoRefreshActive())
	assert.Greater(t, f.service.RefreshRemaining(), time.Duration(0))

	require.NoError(t, f.service.SetAutoRefresh(context.Background(), false))
	assert.False(t, f.service.AutoRefreshActive())
	assert.Zero(t, f.service.RefreshRemaining())
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t, Options{Groups: []string{"g1"}, Keywords: []string{"offer", "rare"}})

	withImage := entry("p1", "a1", "offer offer") // 20 points, notable
	withImage.FullPicture = "https://cdn.example.com/x.jpg"
	f.gateway.pages["g1|"] = gatewayPage("",
		withImage,
		entry("p2", "a2", "plain"),
	)

	ctx := context.Background()
	_, err := f.service.LoadPosts(ctx, feed.Full, false)
	require.NoError(t, err)

	require.NoError(t, f.store.SaveCustomer(ctx, &domain.Customer{
		ID: "a1", Name: "Dana", Status: domain.StatusInterested, PostIDs: []string{"p1"}, LastContactAt: time.Now(),
	}))

	a, err := f.service.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalPosts)
	assert.Equal(t, 1, a.PostsWithImages)
	assert.Equal(t, 1, a.HighScorePosts)
	assert.Equal(t, 2, a.TodayPosts)
	assert.Equal(t, 1, a.TotalCustomers)
	assert.Equal(t, 1, a.InterestedCustomers)

	require.Len(t, a.KeywordStats, 2)
	assert.Equal(t, KeywordStat{Keyword: "offer", Count: 1}, a.KeywordStats[0])
	assert.Equal(t, KeywordStat{Keyword: "rare", Count: 0}, a.KeywordStats[1])
}
