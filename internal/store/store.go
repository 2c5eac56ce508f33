// Package store defines the persistence interface for the feed cache.
package store

import (
	"context"
	"time"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/feedid"
)

// DefaultStaleAfter is how long a cached feed stays fresh. Reads older
// than this trigger a refetch and the no-op short-circuit stops applying.
const DefaultStaleAfter = 3 * time.Minute

// FeedCache is the transactional store reconciling network feed pages with
// local persistence. Implementations must serialize writes to the same feed;
// cross-call ordering for racing continuations is provided by the digest
// precondition on UpdateFeed and CloseFeed.
type FeedCache interface {
	// GetItem returns the cached item or ErrNotFound. There is no network
	// fallback at this layer.
	GetItem(ctx context.Context, contentID string) (*domain.Item, error)

	// InsertFeed merges a feed page. With append == false the feed row is
	// replaced (memberships cascade away); with append == true the row is
	// created only if absent and repeated calls are idempotent. A page
	// identical to what is already stored is skipped without notification.
	InsertFeed(ctx context.Context, id feedid.Identifier, page domain.FeedPage, mode CloseMode, append bool) error

	// UpdateFeed advances the feed's digest from previousDigest to the
	// page's digest and merges the page's items. Returns ErrStaleDigest
	// when a concurrent continuation already advanced the digest; callers
	// treat that as an expected race and drop it.
	UpdateFeed(ctx context.Context, id feedid.Identifier, previousDigest string, page domain.FeedPage) error

	// CloseFeed marks the feed as having no further pages, guarded by the
	// same digest precondition as UpdateFeed.
	CloseFeed(ctx context.Context, id feedid.Identifier, previousDigest string) error

	// GetFeedData returns the feed's metadata and its ordered,
	// moderation-filtered items. A feed that was never cached yields an
	// empty, not-closed FeedData rather than an error.
	GetFeedData(ctx context.Context, id feedid.Identifier) (*domain.FeedData, error)

	// Delete removes the feed row and, via cascade, its memberships.
	// Items are left intact. A change notification fires whether or not
	// a row existed.
	Delete(ctx context.Context, id feedid.Identifier) error

	// MarkDeleted soft-deletes or restores an item in every feed's
	// filtered view. Deleting also removes the item's single-item feed.
	MarkDeleted(ctx context.Context, item *domain.Item, deleted bool) error

	// MarkPublished updates the item's published flag.
	MarkPublished(ctx context.Context, item *domain.Item, published bool) error

	// MarkNSFW updates the item's nsfw flag.
	MarkNSFW(ctx context.Context, item *domain.Item, nsfw bool) error

	// RemoveFromRecent drops the membership linking the recent feed to
	// item. The item itself stays cached.
	RemoveFromRecent(ctx context.Context, item *domain.Item) error

	// BlockUser hides (or unhides) every item owned by username.
	BlockUser(ctx context.Context, username string, block bool) error

	// BlockItem hides (or unhides) one item by content id.
	BlockItem(ctx context.Context, contentID string, block bool) error

	Close() error
}

// Notifier receives change notifications as write side effects.
// *feedbus.Bus satisfies it.
type Notifier interface {
	Notify(id feedid.Identifier)
	NotifyAll()
}

type noopNotifier struct{}

func (noopNotifier) Notify(feedid.Identifier) {}
func (noopNotifier) NotifyAll()               {}

// NewNoopNotifier returns a Notifier that drops everything. Used until a
// bus is attached.
func NewNoopNotifier() Notifier { return noopNotifier{} }

type multiNotifier []Notifier

func (m multiNotifier) Notify(id feedid.Identifier) {
	for _, n := range m {
		n.Notify(id)
	}
}

func (m multiNotifier) NotifyAll() {
	for _, n := range m {
		n.NotifyAll()
	}
}

// MultiNotifier fans every notification out to all of the given
// notifiers, in order.
func MultiNotifier(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}

// Recorder collects cache counters. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	RecordItemsUpserted(count int)
	RecordNoopSkip()
	RecordDigestRace()
	RecordNotification()
}

type noopRecorder struct{}

func (noopRecorder) RecordItemsUpserted(int) {}
func (noopRecorder) RecordNoopSkip()         {}
func (noopRecorder) RecordDigestRace()       {}
func (noopRecorder) RecordNotification()     {}

// NewNoopRecorder returns a Recorder that counts nothing.
func NewNoopRecorder() Recorder { return noopRecorder{} }
