// Package upstream implements the HTTP client for the feed API this
// cache fronts.
package upstream

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/ratelimit"
	"github.com/gfycat/feedcore/internal/store"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 30 * time.Second

// Outbound request budget per feed key. Item lookups share one bucket
// under itemsKey.
const (
	requestsPerSecond = 5
	requestBurst      = 10
	itemsKey          = "items"
)

// Client fetches feed pages and items over HTTP. It satisfies
// feedmanager.Fetcher. Requests are rate limited per feed key so a
// refresh storm on one feed cannot starve the rest.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// NewClient returns a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.New(requestsPerSecond, requestBurst),
		logger:  logger,
	}
}

// Close releases the limiter's cleanup goroutine.
func (c *Client) Close() {
	c.limiter.Stop()
}

// FetchFeed requests the feed's first page.
func (c *Client) FetchFeed(ctx context.Context, id feedid.Identifier, count int) (*domain.FeedPage, error) {
	if err := c.limiter.Wait(ctx, id.UniqueKey()); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("key", id.UniqueKey())
	q.Set("count", strconv.Itoa(count))

	var page domain.FeedPage
	if err := c.getJSON(ctx, "/v1/feeds?"+q.Encode(), &page); err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", id.UniqueKey(), err)
	}
	return &page, nil
}

// FetchMore requests the continuation after digest.
func (c *Client) FetchMore(ctx context.Context, id feedid.Identifier, digest string, count int) (*domain.FeedPage, error) {
	if err := c.limiter.Wait(ctx, id.UniqueKey()); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("key", id.UniqueKey())
	q.Set("digest", digest)
	q.Set("count", strconv.Itoa(count))

	var page domain.FeedPage
	if err := c.getJSON(ctx, "/v1/feeds/more?"+q.Encode(), &page); err != nil {
		return nil, fmt.Errorf("fetch continuation %s: %w", id.UniqueKey(), err)
	}
	return &page, nil
}

// FetchItem requests a single item by content id.
func (c *Client) FetchItem(ctx context.Context, contentID string) (*domain.Item, error) {
	if err := c.limiter.Wait(ctx, itemsKey); err != nil {
		return nil, err
	}

	var item domain.Item
	if err := c.getJSON(ctx, "/v1/items/"+url.PathEscape(contentID), &item); err != nil {
		return nil, fmt.Errorf("fetch item %s: %w", contentID, err)
	}
	return &item, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream request",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return store.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	if err := json.UnmarshalRead(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Disabled is a Fetcher for cache-only deployments. Every fetch reports
// the upstream as unconfigured; reads serve whatever is cached.
type Disabled struct{}

func (Disabled) FetchFeed(context.Context, feedid.Identifier, int) (*domain.FeedPage, error) {
	return nil, errDisabled
}

func (Disabled) FetchMore(context.Context, feedid.Identifier, string, int) (*domain.FeedPage, error) {
	return nil, errDisabled
}

func (Disabled) FetchItem(context.Context, string) (*domain.Item, error) {
	return nil, errDisabled
}

var errDisabled = fmt.Errorf("upstream not configured")
