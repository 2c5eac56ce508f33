package domain

import (
	"fmt"
	"time"
)

// FeedPage is one network response for a feed: items to append, items to
// prepend (refresh results newer than anything cached) and the continuation
// digest for the next page. An empty Digest means the feed has no further
// pages.
type FeedPage struct {
	Items    []Item `json:"items"`
	NewItems []Item `json:"new_items,omitempty"`
	Digest   string `json:"digest,omitempty"`
}

// IsEmpty reports whether the page carries no items at all.
func (p FeedPage) IsEmpty() bool {
	return len(p.Items) == 0 && len(p.NewItems) == 0
}

// FeedInfo is the cached metadata for one feed.
type FeedInfo struct {
	UniqueKey string    `json:"unique_key"`
	Digest    string    `json:"digest,omitempty"`
	Closed    bool      `json:"closed"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOutdated reports whether the feed row is older than staleAfter at
// the given instant.
func (f FeedInfo) IsOutdated(now time.Time, staleAfter time.Duration) bool {
	return f.CreatedAt.Add(staleAfter).Before(now)
}

// FeedData is the moderation-filtered, ordered view of a cached feed.
// A feed that has never been cached yields a FeedData with zero items
// and Closed == false.
type FeedData struct {
	Info  FeedInfo `json:"info"`
	Items []Item   `json:"items"`
}

// IsEmpty reports whether the feed has no visible items.
func (d FeedData) IsEmpty() bool {
	return len(d.Items) == 0
}

// Count returns the number of visible items.
func (d FeedData) Count() int {
	return len(d.Items)
}

func (d FeedData) String() string {
	return fmt.Sprintf("FeedData{%s items=%d closed=%t}", d.Info.UniqueKey, len(d.Items), d.Info.Closed)
}
