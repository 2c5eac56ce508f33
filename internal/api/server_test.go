package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/feedmanager"
	"github.com/gfycat/feedcore/internal/http/response"
	"github.com/gfycat/feedcore/internal/metrics"
	"github.com/gfycat/feedcore/internal/store"
	"github.com/gfycat/feedcore/internal/store/sqlite"
)

// fakeFetcher serves canned pages keyed by feed and by digest.
type fakeFetcher struct {
	feedPages map[string]*domain.FeedPage
	morePages map[string]*domain.FeedPage
	items     map[string]*domain.Item
}

func (f *fakeFetcher) FetchFeed(_ context.Context, id feedid.Identifier, _ int) (*domain.FeedPage, error) {
	page, ok := f.feedPages[id.UniqueKey()]
	if !ok {
		return nil, fmt.Errorf("no canned page for %s", id.UniqueKey())
	}
	return page, nil
}

func (f *fakeFetcher) FetchMore(_ context.Context, id feedid.Identifier, digest string, _ int) (*domain.FeedPage, error) {
	page, ok := f.morePages[digest]
	if !ok {
		return nil, fmt.Errorf("no canned continuation for %s digest %q", id.UniqueKey(), digest)
	}
	return page, nil
}

func (f *fakeFetcher) FetchItem(_ context.Context, contentID string) (*domain.Item, error) {
	it, ok := f.items[contentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return it, nil
}

func testItem(contentID string) domain.Item {
	return domain.Item{
		ContentID:       contentID,
		Name:            contentID,
		Owner:           "someuser",
		ServerCreatedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func testPage(digest string, ids ...string) *domain.FeedPage {
	p := &domain.FeedPage{Digest: digest}
	for _, id := range ids {
		p.Items = append(p.Items, testItem(id))
	}
	return p
}

// setupTestServer creates a server over a real store and a canned fetcher.
func setupTestServer(t *testing.T, fetcher *fakeFetcher) (*Server, *sqlite.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	manager := feedmanager.New(st, fetcher, logger)
	collector := metrics.NewCollector(prometheus.NewRegistry())
	st.SetRecorder(collector)

	return NewServer(st, manager, nil, nil, logger), st
}

func doRequest(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func feedTarget(path string, id feedid.Identifier) string {
	q := url.Values{}
	q.Set("key", id.UniqueKey())
	return path + "?" + q.Encode()
}

func feedItemIDs(t *testing.T, envelope response.Envelope) []string {
	t.Helper()
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	items, ok := data["items"].([]any)
	require.True(t, ok)

	out := make([]string, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		require.True(t, ok)
		out = append(out, item["content_id"].(string))
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	s, _ := setupTestServer(t, &fakeFetcher{})

	w := doRequest(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.True(t, envelope.Success)
}

func TestGetFeedFetchesThrough(t *testing.T) {
	id := feedid.Trending()
	fetcher := &fakeFetcher{
		feedPages: map[string]*domain.FeedPage{id.UniqueKey(): testPage("d1", "a", "b")},
	}
	s, _ := setupTestServer(t, fetcher)

	w := doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, []string{"a", "b"}, feedItemIDs(t, envelope))
}

func TestGetFeedMissingKey(t *testing.T) {
	s, _ := setupTestServer(t, &fakeFetcher{})

	w := doRequest(t, s, http.MethodGet, "/api/v1/feeds", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFeedUnrecognizedKey(t *testing.T) {
	s, _ := setupTestServer(t, &fakeFetcher{})

	w := doRequest(t, s, http.MethodGet, "/api/v1/feeds?key=bogus", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoadMoreAppends(t *testing.T) {
	id := feedid.Trending()
	fetcher := &fakeFetcher{
		feedPages: map[string]*domain.FeedPage{id.UniqueKey(): testPage("d1", "a", "b")},
		morePages: map[string]*domain.FeedPage{"d1": testPage("d2", "c", "d")},
	}
	s, _ := setupTestServer(t, fetcher)

	w := doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodPost, feedTarget("/api/v1/feeds/more", id), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, []string{"a", "b", "c", "d"}, feedItemIDs(t, envelope))
}

func TestDropFeed(t *testing.T) {
	id := feedid.Trending()
	fetcher := &fakeFetcher{
		feedPages: map[string]*domain.FeedPage{id.UniqueKey(): testPage("d1", "a")},
	}
	s, st := setupTestServer(t, fetcher)

	w := doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodDelete, feedTarget("/api/v1/feeds", id), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	data, err := st.GetFeedData(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, data.Items)
}

func TestGetItemFetchesThrough(t *testing.T) {
	it := testItem("clip1")
	fetcher := &fakeFetcher{items: map[string]*domain.Item{"clip1": &it}}
	s, _ := setupTestServer(t, fetcher)

	w := doRequest(t, s, http.MethodGet, "/api/v1/items/clip1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "clip1", data["content_id"])
}

func TestGetItemNotFound(t *testing.T) {
	s, _ := setupTestServer(t, &fakeFetcher{})

	w := doRequest(t, s, http.MethodGet, "/api/v1/items/unknown", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.False(t, envelope.Success)
}

func TestBlockUserFiltersFeed(t *testing.T) {
	id := feedid.Trending()
	fetcher := &fakeFetcher{
		feedPages: map[string]*domain.FeedPage{id.UniqueKey(): testPage("d1", "a", "b")},
	}
	s, _ := setupTestServer(t, fetcher)

	w := doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodPut, "/api/v1/moderation/users/someuser/blocked", flagRequest{Value: true})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Empty(t, feedItemIDs(t, envelope))

	w = doRequest(t, s, http.MethodPut, "/api/v1/moderation/users/someuser/blocked", flagRequest{Value: false})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	envelope = decodeEnvelope(t, w)
	assert.Equal(t, []string{"a", "b"}, feedItemIDs(t, envelope))
}

func TestMarkDeletedHidesItem(t *testing.T) {
	id := feedid.Trending()
	fetcher := &fakeFetcher{
		feedPages: map[string]*domain.FeedPage{id.UniqueKey(): testPage("d1", "a", "b")},
	}
	s, _ := setupTestServer(t, fetcher)

	w := doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodPut, "/api/v1/moderation/items/a/deleted", flagRequest{Value: true})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, []string{"b"}, feedItemIDs(t, envelope))
}

func TestModerationBadBody(t *testing.T) {
	s, _ := setupTestServer(t, &fakeFetcher{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/moderation/items/a/nsfw", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddAndRemoveRecent(t *testing.T) {
	it := testItem("clip1")
	fetcher := &fakeFetcher{items: map[string]*domain.Item{"clip1": &it}}
	s, st := setupTestServer(t, fetcher)

	w := doRequest(t, s, http.MethodPost, "/api/v1/items/clip1/recent", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	data, err := st.GetFeedData(context.Background(), feedid.Recent())
	require.NoError(t, err)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "clip1", data.Items[0].ContentID)

	w = doRequest(t, s, http.MethodDelete, "/api/v1/items/clip1/recent", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	data, err = st.GetFeedData(context.Background(), feedid.Recent())
	require.NoError(t, err)
	assert.Empty(t, data.Items)
}

func TestMetricsRoute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	st.SetRecorder(collector)

	id := feedid.Trending()
	fetcher := &fakeFetcher{
		feedPages: map[string]*domain.FeedPage{id.UniqueKey(): testPage("d1", "a")},
	}
	manager := feedmanager.New(st, fetcher, logger)
	s := NewServer(st, manager, nil, metrics.Handler(reg), logger)

	w := doRequest(t, s, http.MethodGet, feedTarget("/api/v1/feeds", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "feedcore_items_upserted_total")
}
