// Package httpserver exposes the monitor's operations as JSON/CSV
// endpoints plus the feed-gateway proxy. It is presentation glue: every
// handler invokes a core operation and renders its result.
package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/AymanAAASWa/facebook-monitor/internal/feed"
	"github.com/AymanAAASWa/facebook-monitor/internal/graph"
	"github.com/AymanAAASWa/facebook-monitor/internal/leads"
	"github.com/AymanAAASWa/facebook-monitor/internal/monitor"
)

// Server serves the monitor API.
type Server struct {
	service    *monitor.Service
	proxy      *graph.Client
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates the HTTP server on the given port.
func NewServer(port int, service *monitor.Service, proxy *graph.Client, logger *slog.Logger) *Server {
	s := &Server{
		service: service,
		proxy:   proxy,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/facebook", s.handleProxy)
	mux.HandleFunc("GET /api/posts", s.handlePosts)
	mux.HandleFunc("GET /api/customers", s.handleCustomers)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/resolve/{authorID}", s.handleResolve)
	mux.HandleFunc("GET /api/autorefresh", s.handleAutoRefreshStatus)
	mux.HandleFunc("POST /api/autorefresh", s.handleAutoRefreshToggle)
	mux.HandleFunc("GET /api/keywords", s.handleKeywordsExport)
	mux.HandleFunc("PUT /api/keywords", s.handleKeywordsImport)
	mux.HandleFunc("GET /api/export/feed.csv", s.handleFeedCSV)
	mux.HandleFunc("GET /api/export/customers.csv", s.handleCustomersCSV)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening. It blocks until the server is shut down or an
// error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProxy forwards one Graph API request for an external caller.
// Upstream non-success statuses pass through verbatim; an upstream network
// failure becomes a generic server error.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accessToken := q.Get("accessToken")
	if accessToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing accessToken"})
		return
	}

	action := q.Get("action")
	if action == "" {
		action = "posts"
	}
	groupID := q.Get("groupId")
	after := q.Get("after")

	status, body, err := s.proxy.Forward(r.Context(), accessToken, action, groupID, after)
	if err != nil {
		if status == 0 && !isBadAction(action, groupID) {
			s.logger.Error("upstream fetch failed", "action", action, "group_id", groupID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch from upstream API"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid action or missing groupId"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.Copy(w, bytes.NewReader(body))
}

func isBadAction(action, groupID string) bool {
	switch action {
	case "name", "posts":
		return groupID == ""
	case "test":
		return false
	default:
		return true
	}
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	crit, err := s.criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	posts, err := s.service.Filtered(r.Context(), crit)
	if err != nil {
		s.logger.Error("failed to list posts", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "count": len(posts)})
}

func (s *Server) criteriaFromQuery(r *http.Request) (leads.Criteria, error) {
	q := r.URL.Query()
	crit := leads.Criteria{
		Window:  leads.DateAll,
		Query:   q.Get("q"),
		Allow:   s.service.Keywords(),
		Exclude: s.service.ExcludeKeywords(),
	}

	if d := q.Get("date"); d != "" {
		switch leads.DateWindow(d) {
		case leads.DateAll, leads.DateToday, leads.DateWeek, leads.DateMonth:
			crit.Window = leads.DateWindow(d)
		default:
			return crit, fmt.Errorf("invalid date window %q", d)
		}
	}
	if m := q.Get("minScore"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n < 0 {
			return crit, fmt.Errorf("invalid minScore %q", m)
		}
		crit.MinScore = n
	}
	if k := q.Get("keywords"); k != "" {
		enabled, err := strconv.ParseBool(k)
		if err != nil {
			return crit, fmt.Errorf("invalid keywords flag %q", k)
		}
		crit.KeywordsEnabled = enabled
	}
	if rx := q.Get("regex"); rx != "" {
		enabled, err := strconv.ParseBool(rx)
		if err != nil {
			return crit, fmt.Errorf("invalid regex flag %q", rx)
		}
		crit.Regex = enabled
	}
	return crit, nil
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.service.Customers(r.Context())
	if err != nil {
		s.logger.Error("failed to list customers", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to list customers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers, "count": len(customers)})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.service.Analytics(r.Context())
	if err != nil {
		s.logger.Error("failed to build analytics", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to build analytics")
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	mode := feed.Full
	if m := r.URL.Query().Get("mode"); m == "incremental" {
		mode = feed.Incremental
	} else if m != "" && m != "full" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "mode must be full or incremental")
		return
	}

	summary, err := s.service.LoadPosts(r.Context(), mode, false)
	if err != nil {
		s.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts":    summary.Posts,
		"comments": summary.Comments,
		"groups":   summary.Groups,
		"failed":   summary.Failed,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	authorID := r.PathValue("authorID")

	contact, err := s.service.ResolveContact(r.Context(), authorID)
	switch {
	case errors.Is(err, monitor.ErrResolveInFlight):
		writeError(w, http.StatusConflict, "ResolveInFlight", err.Error())
		return
	case errors.Is(err, monitor.ErrNoMappingFile):
		writeError(w, http.StatusBadRequest, "NoMappingFile", err.Error())
		return
	case err != nil:
		s.logger.Error("contact lookup failed", "author_id", authorID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "contact lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authorId": authorID,
		"found":    contact.Found,
		"phone":    contact.Value,
	})
}

func (s *Server) handleAutoRefreshStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":           s.service.AutoRefreshActive(),
		"remainingSeconds": int(s.service.RefreshRemaining().Seconds()),
	})
}

func (s *Server) handleAutoRefreshToggle(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "enabled must be true or false")
		return
	}
	if err := s.service.SetAutoRefresh(r.Context(), enabled); err != nil {
		writeError(w, http.StatusConflict, "AutoRefresh", err.Error())
		return
	}
	s.handleAutoRefreshStatus(w, r)
}

func (s *Server) handleKeywordsExport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Keywords())
}

// handleKeywordsImport replaces the keyword set. A malformed payload is
// reported and the prior set stays in effect.
func (s *Server) handleKeywordsImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "failed to read body")
		return
	}
	var keywords []string
	if err := json.Unmarshal(body, &keywords); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "keyword list must be a JSON array of strings")
		return
	}
	s.service.SetKeywords(keywords)
	writeJSON(w, http.StatusOK, map[string]int{"count": len(keywords)})
}

func (s *Server) handleFeedCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="feed.csv"`)
	if err := s.service.ExportFeedCSV(r.Context(), w); err != nil {
		s.logger.Error("feed export failed", "error", err)
	}
}

func (s *Server) handleCustomersCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="customers.csv"`)
	if err := s.service.ExportCustomersCSV(r.Context(), w); err != nil {
		s.logger.Error("customer export failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
			"request_id", requestID,
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
