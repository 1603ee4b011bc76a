package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
	"github.com/AymanAAASWa/facebook-monitor/internal/graph"
	"github.com/AymanAAASWa/facebook-monitor/internal/monitor"
	"github.com/AymanAAASWa/facebook-monitor/internal/store"
)

type stubGateway struct{}

func (stubGateway) GroupName(context.Context, string) (string, error) {
	return "Bikes", nil
}

func (stubGateway) FeedPage(context.Context, string, string) (*graph.FeedResponse, error) {
	return nil, errors.New("not used")
}

type testServer struct {
	*httptest.Server
	store   *store.Store
	service *monitor.Service
}

func newTestServer(t *testing.T, upstreamURL string) *testServer {
	return newTestServerWith(t, upstreamURL, monitor.Options{
		Groups:   []string{"g1"},
		Keywords: []string{"offer"},
	})
}

func newTestServerWith(t *testing.T, upstreamURL string, opts monitor.Options) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	service := monitor.NewService(monitor.Deps{
		Gateway:   stubGateway{},
		Posts:     st,
		Cursors:   st,
		Contacts:  st,
		Customers: st,
		Notifier:  &monitor.LogNotifier{Logger: logger},
		Logger:    logger,
	}, opts)
	t.Cleanup(service.Shutdown)

	srv := NewServer(0, service, graph.NewClient(upstreamURL, "server-token"), logger)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, store: st, service: service}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	var body map[string]string
	status := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestProxy_MissingAccessToken(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	var body map[string]string
	status := getJSON(t, ts.URL+"/api/facebook?action=posts&groupId=g1", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing accessToken", body["error"])
}

func TestProxy_UpstreamStatusAndBodyPassThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/g1/feed", r.URL.Path)
		assert.Equal(t, "caller-token", r.URL.Query().Get("access_token"))
		assert.Equal(t, "cur1", r.URL.Query().Get("after"))
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"expired","type":"OAuthException","code":190}}`))
	}))
	defer upstream.Close()

	ts := newTestServer(t, upstream.URL)

	resp, err := http.Get(ts.URL + "/api/facebook?accessToken=caller-token&action=posts&groupId=g1&after=cur1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"message":"expired","type":"OAuthException","code":190}}`, string(body))
}

func TestProxy_InvalidActionOrMissingGroup(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	var body map[string]string
	status := getJSON(t, ts.URL+"/api/facebook?accessToken=tok&action=posts", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid action or missing groupId", body["error"])

	status = getJSON(t, ts.URL+"/api/facebook?accessToken=tok&action=bogus&groupId=g1", &body)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProxy_UpstreamUnreachable(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	var body map[string]string
	status := getJSON(t, ts.URL+"/api/facebook?accessToken=tok&action=test", &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to fetch from upstream API", body["error"])
}

func seedPosts(t *testing.T, ts *testServer) {
	t.Helper()
	require.NoError(t, ts.store.ReplacePosts(context.Background(), []domain.Post{
		{ID: "p1", GroupID: "g1", GroupName: "Bikes", AuthorID: "a1", AuthorName: "Dana", Message: "great offer", CreatedAt: time.Now()},
		{ID: "p2", GroupID: "g1", GroupName: "Bikes", AuthorID: "a2", AuthorName: "Murad", Message: "nothing", CreatedAt: time.Now()},
	}))
}

func TestPosts_FilterByScore(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")
	seedPosts(t, ts)

	var body struct {
		Count int `json:"count"`
		Posts []struct {
			ID    string `json:"id"`
			Score int    `json:"score"`
		} `json:"posts"`
	}

	status := getJSON(t, ts.URL+"/api/posts", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.Count)

	status = getJSON(t, ts.URL+"/api/posts?minScore=10", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "p1", body.Posts[0].ID)
	assert.Equal(t, 10, body.Posts[0].Score)
}

func TestPosts_ConfiguredExcludeSetVetoesMatches(t *testing.T) {
	ts := newTestServerWith(t, "http://127.0.0.1:1", monitor.Options{
		Groups:          []string{"g1"},
		Keywords:        []string{"offer"},
		ExcludeKeywords: []string{"scam"},
	})
	require.NoError(t, ts.store.ReplacePosts(context.Background(), []domain.Post{
		{ID: "p1", GroupID: "g1", AuthorID: "a1", AuthorName: "Dana", Message: "great offer", CreatedAt: time.Now()},
		{ID: "p2", GroupID: "g1", AuthorID: "a2", AuthorName: "Murad", Message: "offer but a scam", CreatedAt: time.Now()},
	}))

	var body struct {
		Count int `json:"count"`
		Posts []struct {
			ID string `json:"id"`
		} `json:"posts"`
	}
	status := getJSON(t, ts.URL+"/api/posts?keywords=true", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "p1", body.Posts[0].ID)
}

func TestPosts_InvalidQueryParams(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	status := getJSON(t, ts.URL+"/api/posts?date=decade", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = getJSON(t, ts.URL+"/api/posts?minScore=-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = getJSON(t, ts.URL+"/api/posts?keywords=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestResolve_NoMappingFileConfigured(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	var body map[string]string
	status := postJSON(t, ts.URL+"/api/resolve/a1", "", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NoMappingFile", body["error"])
}

func TestResolve_ConflictWhileLookupInFlight(t *testing.T) {
	// A FIFO keeps the first lookup blocked in the file open, so a second
	// request for the same author hits the in-flight branch.
	mapping := filepath.Join(t.TempDir(), "mapping.fifo")
	require.NoError(t, syscall.Mkfifo(mapping, 0o600))

	ts := newTestServerWith(t, "http://127.0.0.1:1", monitor.Options{
		Groups:      []string{"g1"},
		Keywords:    []string{"offer"},
		MappingFile: mapping,
	})

	firstDone := make(chan int, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/resolve/a1", "application/json", nil)
		if err != nil {
			firstDone <- 0
			return
		}
		resp.Body.Close()
		firstDone <- resp.StatusCode
	}()

	require.Eventually(t, func() bool { return ts.service.Resolving("a1") }, time.Second, 5*time.Millisecond)

	var body map[string]string
	status := postJSON(t, ts.URL+"/api/resolve/a1", "", &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ResolveInFlight", body["error"])

	w, err := os.OpenFile(mapping, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = w.WriteString(`{"a1":"0100000001"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, http.StatusOK, <-firstDone)
}

func TestKeywords_ExportAndImport(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	var keywords []string
	status := getJSON(t, ts.URL+"/api/keywords", &keywords)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"offer"}, keywords)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/keywords", strings.NewReader(`["price","buy"]`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status = getJSON(t, ts.URL+"/api/keywords", &keywords)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"price", "buy"}, keywords)
}

func TestKeywords_MalformedImportKeepsPriorSet(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/keywords", strings.NewReader(`{"broken":`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var keywords []string
	getJSON(t, ts.URL+"/api/keywords", &keywords)
	assert.Equal(t, []string{"offer"}, keywords)
}

func TestAutoRefresh_RequiresPosts(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	var body map[string]any
	status := getJSON(t, ts.URL+"/api/autorefresh", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["active"])

	status = postJSON(t, ts.URL+"/api/autorefresh?enabled=true", "", nil)
	assert.Equal(t, http.StatusConflict, status)

	seedPosts(t, ts)

	status = postJSON(t, ts.URL+"/api/autorefresh?enabled=true", "", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["active"])

	status = postJSON(t, ts.URL+"/api/autorefresh?enabled=false", "", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["active"])
}

func TestExportEndpointsServeCSV(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")
	seedPosts(t, ts)

	resp, err := http.Get(ts.URL + "/api/export/feed.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `"Type","GroupId"`))

	resp, err = http.Get(ts.URL + "/api/export/customers.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `"Name","Phone"`))
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
