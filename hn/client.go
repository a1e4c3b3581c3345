package hn

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

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Firebase host of the Hacker News API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com"

const (
	apiVersion         = "/v0"
	defaultConcurrency = 10
	defaultTimeout     = 15 * time.Second
)

// ErrNotFound is returned when the API answers with a JSON null,
// which is what it does for unknown ids and users.
var ErrNotFound = errors.New("not found")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type Client struct {
	http    *http.Client
	baseURL string
	sem     chan struct{}
	limiter *rate.Limiter
	limit   int
}

type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithConcurrency caps in-flight requests. n <= 0 removes the cap.
func WithConcurrency(n int) Option {
	return func(c *Client) { c.limit = n }
}

// WithRateLimit throttles outbound requests to rps per second.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		baseURL: DefaultBaseURL,
		limit:   defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limit > 0 {
		c.sem = make(chan struct{}, c.limit)
	}
	return c
}

// Concurrency reports the in-flight request cap, 0 when unbounded.
func (c *Client) Concurrency() int {
	if c.limit < 0 {
		return 0
	}
	return c.limit
}

func (c *Client) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.sem == nil {
		return nil
	}
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.sem != nil {
		<-c.sem
	}
}

// getJSON issues one GET and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	reqURL := c.baseURL + apiVersion + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: reqURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return ErrNotFound
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// StoryIDs returns the ranked ids of a feed, truncated to limit.
// limit <= 0 returns the whole list.
func (c *Client) StoryIDs(ctx context.Context, feed Feed, limit int) ([]int, error) {
	if feed == "" {
		feed = FeedTop
	}
	var ids []int
	if err := c.getJSON(ctx, feed.path(), &ids); err != nil {
		return nil, fmt.Errorf("fetch %s stories: %w", feed, err)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// TopStories returns up to limit top story IDs.
func (c *Client) TopStories(ctx context.Context, limit int) ([]int, error) {
	return c.StoryIDs(ctx, FeedTop, limit)
}

// GetItem fetches a single HN item by ID.
func (c *Client) GetItem(ctx context.Context, id int) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, fmt.Sprintf("/item/%d.json", id), &item); err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}
	return &item, nil
}

// GetUser fetches a user profile by handle.
func (c *Client) GetUser(ctx context.Context, name string) (*User, error) {
	if name == "" {
		return nil, fmt.Errorf("fetch user: empty name")
	}
	var u User
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(name)+".json", &u); err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", name, err)
	}
	return &u, nil
}
