package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the monitor session.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// AccessToken is the operator-supplied Graph API credential. Token
	// acquisition is out of scope; it is read, never obtained.
	AccessToken string

	// GraphBaseURL overrides the upstream Graph endpoint (tests, proxies).
	// Empty selects the default endpoint.
	GraphBaseURL string

	// GroupFile is a JSON array of group ids to monitor.
	GroupFile string

	// KeywordFile is a JSON array of scoring/filtering keywords.
	KeywordFile string

	// ExcludeFile is a JSON array of keywords that veto a post in
	// substring keyword filtering.
	ExcludeFile string

	// MappingFile is the identifier-to-contact mapping file.
	MappingFile string

	// DatabaseDSN is the SQLite DSN for the session store. Empty keeps
	// the session in memory.
	DatabaseDSN string

	// RefreshPeriod is the auto-refresh period.
	RefreshPeriod time.Duration

	// AlertThreshold is the ledger's creation-alert score threshold.
	AlertThreshold int

	// LookupChunkSize is the mapping-file read window in bytes.
	LookupChunkSize int

	// FetchFirstPage makes incremental ingestion fetch page one for
	// groups without a stored cursor instead of skipping them.
	FetchFirstPage bool
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            8080,
		GraphBaseURL:    os.Getenv("MONITOR_GRAPH_URL"),
		GroupFile:       os.Getenv("MONITOR_GROUP_FILE"),
		KeywordFile:     os.Getenv("MONITOR_KEYWORD_FILE"),
		ExcludeFile:     os.Getenv("MONITOR_EXCLUDE_FILE"),
		MappingFile:     os.Getenv("MONITOR_MAPPING_FILE"),
		DatabaseDSN:     os.Getenv("MONITOR_DB_DSN"),
		RefreshPeriod:   300 * time.Second,
		AlertThreshold:  20,
		LookupChunkSize: 1 << 20,
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = port
	}

	cfg.AccessToken = os.Getenv("MONITOR_ACCESS_TOKEN")
	if file := os.Getenv("MONITOR_ACCESS_TOKEN_FILE"); cfg.AccessToken == "" && file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read access token file: %w", err)
		}
		cfg.AccessToken = strings.TrimSpace(string(data))
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("MONITOR_ACCESS_TOKEN or MONITOR_ACCESS_TOKEN_FILE is required")
	}

	if v := os.Getenv("MONITOR_REFRESH_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid MONITOR_REFRESH_SECONDS %q", v)
		}
		cfg.RefreshPeriod = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("MONITOR_ALERT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MONITOR_ALERT_THRESHOLD %q", v)
		}
		cfg.AlertThreshold = n
	}

	if v := os.Getenv("MONITOR_LOOKUP_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MONITOR_LOOKUP_CHUNK_SIZE %q", v)
		}
		cfg.LookupChunkSize = n
	}

	if v := os.Getenv("MONITOR_FETCH_FIRST_PAGE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MONITOR_FETCH_FIRST_PAGE %q", v)
		}
		cfg.FetchFirstPage = b
	}

	return cfg, nil
}
