// Package feedmanager drives the feed cache from network fetches. It is
// the layer that decides when a cached feed is good enough to serve, when
// to hit the network, and which cache errors are expected races to drop
// rather than surface.
package feedmanager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/store"
)

const (
	// DefaultFetchCount is the page size for first fetches and
	// continuations.
	DefaultFetchCount = 100
	// DefaultNewItemsCount is the page size for "what's new" fetches.
	DefaultNewItemsCount = 1
	// DefaultRecentLimit caps the recent feed's size.
	DefaultRecentLimit = 100
)

// Fetcher is the network collaborator. Implementations translate feed
// identifiers into remote API calls and return pages the cache can merge.
type Fetcher interface {
	// FetchFeed returns the first page for the feed.
	FetchFeed(ctx context.Context, id feedid.Identifier, count int) (*domain.FeedPage, error)
	// FetchMore returns the page continuing from digest. An empty page
	// means the feed has no more content.
	FetchMore(ctx context.Context, id feedid.Identifier, digest string, count int) (*domain.FeedPage, error)
	// FetchItem returns one item by content id.
	FetchItem(ctx context.Context, contentID string) (*domain.Item, error)
}

// Manager coordinates the cache and the fetcher.
type Manager struct {
	cache   store.FeedCache
	fetcher Fetcher
	logger  *slog.Logger

	staleAfter    time.Duration
	fetchCount    int
	newItemsCount int
	recentLimit   int
	now           func() time.Time
}

// New returns a manager with default paging and staleness policy.
func New(cache store.FeedCache, fetcher Fetcher, logger *slog.Logger) *Manager {
	return &Manager{
		cache:         cache,
		fetcher:       fetcher,
		logger:        logger,
		staleAfter:    store.DefaultStaleAfter,
		fetchCount:    DefaultFetchCount,
		newItemsCount: DefaultNewItemsCount,
		recentLimit:   DefaultRecentLimit,
		now:           time.Now,
	}
}

// SetStaleAfter overrides how long a cached feed is served without a
// refetch.
func (m *Manager) SetStaleAfter(d time.Duration) {
	m.staleAfter = d
}

// SetRecentLimit overrides the recent feed's size cap.
func (m *Manager) SetRecentLimit(limit int) {
	m.recentLimit = limit
}

// SetFetchCount overrides the page size requested from the fetcher.
func (m *Manager) SetFetchCount(count int) {
	m.fetchCount = count
}

// GetItem returns the item from the cache, falling back to the network.
// A fetched item is wrapped in its single-item feed so observers can
// subscribe to it before it appears in any listing.
func (m *Manager) GetItem(ctx context.Context, contentID string) (*domain.Item, error) {
	it, err := m.cache.GetItem(ctx, contentID)
	if err == nil {
		return it, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	it, err = m.fetcher.FetchItem(ctx, contentID)
	if err != nil {
		return nil, err
	}

	page := domain.FeedPage{Items: []domain.Item{*it}}
	if err := m.cache.InsertFeed(ctx, feedid.FromSingleItem(contentID), page, store.CloseModeClose, true); err != nil {
		m.logger.Warn("cache fetched item", "content_id", contentID, "error", err)
	}
	return it, nil
}

// GetFeed is the read-through entry point: cached data when fresh,
// otherwise a refetch. When the refetch fails but stale data exists, the
// stale data is served.
func (m *Manager) GetFeed(ctx context.Context, id feedid.Identifier) (*domain.FeedData, error) {
	data, err := m.cache.GetFeedData(ctx, id)
	if err != nil {
		return nil, err
	}
	if !data.IsEmpty() && !data.Info.IsOutdated(m.now(), m.staleAfter) {
		return data, nil
	}

	if err := m.Refresh(ctx, id); err != nil {
		if data.IsEmpty() {
			return nil, err
		}
		m.logger.Warn("refresh failed, serving cached feed", "feed", id.UniqueKey(), "error", err)
		return data, nil
	}
	return m.cache.GetFeedData(ctx, id)
}

// Refresh replaces the feed with a fresh first page.
func (m *Manager) Refresh(ctx context.Context, id feedid.Identifier) error {
	m.logger.Debug("refresh", "feed", id.UniqueKey())

	page, err := m.fetcher.FetchFeed(ctx, id, m.fetchCount)
	if err != nil {
		return err
	}
	return m.cache.InsertFeed(ctx, id, *page, store.CloseModeAuto, false)
}

// LoadMore fetches the continuation for the given snapshot and merges it.
// A closed feed (empty digest) is a no-op; a lost digest race is dropped.
func (m *Manager) LoadMore(ctx context.Context, data *domain.FeedData) error {
	digest := data.Info.Digest
	if digest == "" {
		m.logger.Debug("load more on closed feed", "feed", data.Info.UniqueKey)
		return nil
	}

	id, err := feedid.Parse(data.Info.UniqueKey)
	if err != nil {
		return err
	}

	page, err := m.fetcher.FetchMore(ctx, id, digest, m.fetchCount)
	if err != nil {
		return err
	}
	return m.applyContinuation(ctx, id, digest, page)
}

// PrependNew fetches items newer than the cached feed and merges them at
// the front.
func (m *Manager) PrependNew(ctx context.Context, id feedid.Identifier) error {
	data, err := m.cache.GetFeedData(ctx, id)
	if err != nil {
		return err
	}

	page, err := m.fetcher.FetchMore(ctx, id, data.Info.Digest, m.newItemsCount)
	if err != nil {
		return err
	}
	return m.applyContinuation(ctx, id, data.Info.Digest, page)
}

// applyContinuation merges a continuation page under the digest the
// caller observed. An empty page closes the feed instead. Losing the
// digest race to a parallel continuation is expected; the winner's write
// already superseded this one.
func (m *Manager) applyContinuation(ctx context.Context, id feedid.Identifier, digest string, page *domain.FeedPage) error {
	var err error
	if page.IsEmpty() {
		err = m.cache.CloseFeed(ctx, id, digest)
	} else {
		err = m.cache.UpdateFeed(ctx, id, digest, *page)
	}
	if errors.Is(err, store.ErrStaleDigest) {
		m.logger.Debug("continuation lost digest race", "feed", id.UniqueKey())
		return nil
	}
	return err
}

// AddRecent appends the item to the recent feed and trims the feed back
// under the size limit.
func (m *Manager) AddRecent(ctx context.Context, item *domain.Item) error {
	page := domain.FeedPage{Items: []domain.Item{*item}}
	if err := m.cache.InsertFeed(ctx, feedid.Recent(), page, store.CloseModeClose, true); err != nil {
		return err
	}
	m.logger.Debug("added to recent", "content_id", item.ContentID)
	return m.trimRecent(ctx)
}

// RemoveRecent drops one item from the recent feed.
func (m *Manager) RemoveRecent(ctx context.Context, item *domain.Item) error {
	return m.cache.RemoveFromRecent(ctx, item)
}

// Drop deletes the cached feed.
func (m *Manager) Drop(ctx context.Context, id feedid.Identifier) error {
	return m.cache.Delete(ctx, id)
}

func (m *Manager) trimRecent(ctx context.Context) error {
	data, err := m.cache.GetFeedData(ctx, feedid.Recent())
	if err != nil {
		return err
	}

	// Oldest memberships sit at the front of the ordered read.
	deleted := 0
	for deleted < len(data.Items) && len(data.Items)-deleted > m.recentLimit {
		if err := m.cache.RemoveFromRecent(ctx, &data.Items[deleted]); err != nil {
			return err
		}
		deleted++
	}
	if deleted > 0 {
		m.logger.Debug("deleted outdated recent items", "count", deleted)
	}
	return nil
}
