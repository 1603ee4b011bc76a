package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// feedFields is the field selection requested for every feed page: message,
// timestamp, author identity and picture, attachments, the full picture,
// and the first page of comments.
const feedFields = "message,created_time,from{id,name,picture},attachments{media,type,url},full_picture,comments{message,from{id,name},created_time}"

// feedPageLimit caps how many entries one feed page request returns.
const feedPageLimit = 25

// Client is a minimal Graph API client for reading group feeds. The access
// token is supplied by the operator, never obtained by the client.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Graph API client. If baseURL is empty it defaults to
// the v19.0 Graph endpoint.
func NewClient(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GroupName fetches the display name of a group.
func (c *Client) GroupName(ctx context.Context, groupID string) (string, error) {
	q := url.Values{}
	q.Set("fields", "name")
	q.Set("access_token", c.accessToken)

	var resp NameResponse
	if err := c.get(ctx, "/"+groupID+"?"+q.Encode(), &resp); err != nil {
		return "", fmt.Errorf("fetch group name: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("fetch group name: %w", resp.Error)
	}
	return resp.Name, nil
}

// FeedPage fetches one page of a group's feed. A non-empty after token
// continues pagination from a previous page.
func (c *Client) FeedPage(ctx context.Context, groupID, after string) (*FeedResponse, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", feedPageLimit))
	q.Set("fields", feedFields)
	q.Set("access_token", c.accessToken)
	if after != "" {
		q.Set("after", after)
	}

	var resp FeedResponse
	if err := c.get(ctx, "/"+groupID+"/feed?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetch feed page: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("fetch feed page: %w", resp.Error)
	}
	return &resp, nil
}

// ValidateToken checks the access token against the caller's own profile.
func (c *Client) ValidateToken(ctx context.Context) (*Profile, error) {
	q := url.Values{}
	q.Set("access_token", c.accessToken)

	var resp Profile
	if err := c.get(ctx, "/me?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("validate token: %w", resp.Error)
	}
	return &resp, nil
}

// Forward performs an upstream request for the proxy endpoint and returns
// the raw status and body so non-success upstream responses pass through
// verbatim. The action values mirror the proxy query contract.
func (c *Client) Forward(ctx context.Context, accessToken, action, groupID, after string) (int, []byte, error) {
	q := url.Values{}
	q.Set("access_token", accessToken)

	var path string
	switch {
	case action == "name" && groupID != "":
		q.Set("fields", "name")
		path = "/" + groupID
	case action == "posts" && groupID != "":
		q.Set("limit", fmt.Sprintf("%d", feedPageLimit))
		q.Set("fields", feedFields)
		if after != "" {
			q.Set("after", after)
		}
		path = "/" + groupID + "/feed"
	case action == "test":
		path = "/me"
	default:
		return 0, nil, fmt.Errorf("invalid action %q or missing groupId", action)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Graph API error payloads arrive with non-2xx statuses; decode them
	// into the result's Error field instead of discarding the body.
	if err := json.Unmarshal(body, result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("unmarshal response: %w", err)
	}

	// A non-success status is a failure even when the body parses without
	// an error object; callers surface the typed error when one is present.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c, ok := result.(apiErrorCarrier); !ok || c.apiError() == nil {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
	}
	return nil
}

type apiErrorCarrier interface {
	apiError() *APIError
}
