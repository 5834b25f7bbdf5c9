// Package dashboard wraps the trading engine's action-based dashboard API.
// Every call is a single authenticated POST; transport and HTTP failures are
// folded into ErrUnavailable so callers retry by policy, not by accident.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clawrelay/internal/config"
)

// ErrUnavailable marks any failed dashboard call: connection refused,
// timeout, non-2xx status, or an undecodable body.
var ErrUnavailable = errors.New("dashboard api unavailable")

const (
	ActionGetEvents           = "get_events"
	ActionMarkEventsPosted    = "mark_events_posted"
	ActionGetPortfolioSummary = "get_portfolio_summary"
	ActionGetPositions        = "get_positions"
	ActionGetDecisions        = "get_decisions"
)

// Client calls the dashboard endpoint. Safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg config.DashboardConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		return nil, fmt.Errorf("dashboard.api_url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard.api_url failed: %w", err)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(parsed.String(), "/") + "/api/dashboard",
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Call performs one action request and returns the payload under "data".
// No retry here: the poll loop's next tick is the retry mechanism.
func (c *Client) Call(ctx context.Context, action string, params map[string]any) (json.RawMessage, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("dashboard client not initialized")
	}
	body := map[string]any{"action": action}
	for k, v := range params {
		body[k] = v
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request failed: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("building %s request failed: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("%w: %s returned %s: %s", ErrUnavailable, action, resp.Status, strings.TrimSpace(string(detail)))
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decoding %s response failed: %v", ErrUnavailable, action, err)
	}
	return env.Data, nil
}

// GetEvents fetches events that have not yet been marked posted.
func (c *Client) GetEvents(ctx context.Context) ([]Event, error) {
	data, err := c.Call(ctx, ActionGetEvents, nil)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: decoding events failed: %v", ErrUnavailable, err)
	}
	return events, nil
}

// MarkEventsPosted acknowledges delivered event ids in one batch. The server
// owns deduplication of already-acknowledged ids.
func (c *Client) MarkEventsPosted(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.Call(ctx, ActionMarkEventsPosted, map[string]any{"eventIds": ids})
	return err
}

func (c *Client) GetPortfolioSummary(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, ActionGetPortfolioSummary, nil)
}

func (c *Client) GetPositions(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, ActionGetPositions, nil)
}

func (c *Client) GetDecisions(ctx context.Context, limit int) (json.RawMessage, error) {
	return c.Call(ctx, ActionGetDecisions, map[string]any{"limit": limit})
}
