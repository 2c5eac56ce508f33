package upstream

import (
	"context"
	"encoding/json/v2"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchFeed(t *testing.T) {
	var gotKey, gotCount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/feeds", r.URL.Path)
		gotKey = r.URL.Query().Get("key")
		gotCount = r.URL.Query().Get("count")
		require.NoError(t, json.MarshalWrite(w, domain.FeedPage{
			Digest: "d1",
			Items:  []domain.Item{{ContentID: "a"}, {ContentID: "b"}},
		}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	page, err := client.FetchFeed(context.Background(), feedid.Trending(), 100)
	require.NoError(t, err)

	assert.Equal(t, feedid.Trending().UniqueKey(), gotKey)
	assert.Equal(t, "100", gotCount)
	assert.Equal(t, "d1", page.Digest)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a", page.Items[0].ContentID)
}

func TestFetchMorePassesDigest(t *testing.T) {
	var gotDigest string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/feeds/more", r.URL.Path)
		gotDigest = r.URL.Query().Get("digest")
		require.NoError(t, json.MarshalWrite(w, domain.FeedPage{Digest: "d2"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	page, err := client.FetchMore(context.Background(), feedid.Trending(), "d1", 100)
	require.NoError(t, err)

	assert.Equal(t, "d1", gotDigest)
	assert.Equal(t, "d2", page.Digest)
}

func TestFetchItemNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	_, err := client.FetchItem(context.Background(), "missing")

	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestFetchItemEscapesContentID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		require.NoError(t, json.MarshalWrite(w, domain.Item{ContentID: "weird id"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	item, err := client.FetchItem(context.Background(), "weird id")
	require.NoError(t, err)

	assert.Equal(t, "/v1/items/weird%20id", gotPath)
	assert.Equal(t, "weird id", item.ContentID)
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	_, err := client.FetchFeed(context.Background(), feedid.Trending(), 100)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream status 502")
}

func TestDisabledFetcher(t *testing.T) {
	var f Disabled

	_, err := f.FetchFeed(context.Background(), feedid.Trending(), 1)
	assert.Error(t, err)
	_, err = f.FetchMore(context.Background(), feedid.Trending(), "d", 1)
	assert.Error(t, err)
	_, err = f.FetchItem(context.Background(), "a")
	assert.Error(t, err)
}
