// Package client calls the lifestats REST API with a bearer token. It backs
// the stdio MCP binary and the command line tool, so data can live on a
// remote server reached over Tailscale.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lifestats/lifestats/internal/aggregate"
	"github.com/lifestats/lifestats/internal/models"
	"github.com/lifestats/lifestats/internal/tracker"
)

// APIError is a non-2xx response. Detail is the server's "detail" field
// when the body carried one.
type APIError struct {
	Status int
	Detail string
	Hint   []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("lifestats: %d %s", e.Status, e.Detail)
	if len(e.Hint) > 0 {
		msg += " (valid: " + strings.Join(e.Hint, ", ") + ")"
	}
	return msg
}

// Client talks to one lifestats server. The user is whoever owns the token;
// the userID arguments exist to satisfy the shared data-source interface and
// are ignored.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client targeting baseURL. token may be empty for Signup.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Detail: http.StatusText(resp.StatusCode)}
		var eb struct {
			Detail any      `json:"detail"`
			Hint   []string `json:"hint"`
		}
		if json.Unmarshal(data, &eb) == nil {
			if s, ok := eb.Detail.(string); ok && s != "" {
				apiErr.Detail = s
			}
			apiErr.Hint = eb.Hint
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// SignupResult is the response to a successful signup.
type SignupResult struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Signup creates an account and returns its first token.
func (c *Client) Signup(ctx context.Context, username string) (*SignupResult, error) {
	var res SignupResult
	if err := c.do(ctx, http.MethodPost, "/api/signup", nil, map[string]string{"username": username}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me returns the token's owner.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Summary fetches the five period aggregates anchored at now.
func (c *Client) Summary(ctx context.Context, _ int, now time.Time) (*aggregate.Result, error) {
	params := url.Values{}
	if !now.IsZero() {
		params.Set("at", now.Format(time.RFC3339))
	}
	var res aggregate.Result
	if err := c.do(ctx, http.MethodGet, "/api/metrics", params, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ActiveMetrics lists the user's active metrics.
func (c *Client) ActiveMetrics(ctx context.Context, _ int) ([]tracker.MetricView, error) {
	var views []tracker.MetricView
	if err := c.do(ctx, http.MethodGet, "/api/metrics/config", nil, nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

// EffectiveGoals lists the current goal per metric.
func (c *Client) EffectiveGoals(ctx context.Context, _ int) ([]tracker.EffectiveGoal, error) {
	var goals []tracker.EffectiveGoal
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, nil, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// RecentEntries lists the latest entries, newest first.
func (c *Client) RecentEntries(ctx context.Context, _ int, limit int) ([]models.Entry, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var entries []models.Entry
	if err := c.do(ctx, http.MethodGet, "/api/metrics/entries", params, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RecordEntry logs a measurement. A nil ts lets the server use its clock.
func (c *Client) RecordEntry(ctx context.Context, _ int, key string, value float64, ts *time.Time) (*models.Entry, error) {
	body := map[string]any{"metric_key": key, "value": value}
	if ts != nil {
		body["timestamp"] = ts.Format(time.RFC3339)
	}
	var e models.Entry
	if err := c.do(ctx, http.MethodPost, "/api/metrics", nil, body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// SetGoal records a new target for key.
func (c *Client) SetGoal(ctx context.Context, key string, target float64) (*models.Goal, error) {
	var g models.Goal
	body := map[string]any{"metric_key": key, "target_value": target}
	if err := c.do(ctx, http.MethodPost, "/api/goals", nil, body, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
