// Package sse implements Server-Sent Events for streaming feed change
// notifications to external observers.
package sse

import (
	"time"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventFeedChanged fires when one feed's cached content changed.
	EventFeedChanged EventType = "feed.changed"
	// EventFeedsInvalidated fires after a moderation action that can
	// affect every feed's filtered view.
	EventFeedsInvalidated EventType = "feeds.invalidated"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Type      EventType `json:"type"`

	// FeedKey filters delivery: clients watching a specific feed only
	// receive events carrying their key. Empty means broadcast to all.
	FeedKey string `json:"-"`
}

// FeedChangedEventData is the data payload for feed change events.
type FeedChangedEventData struct {
	FeedKey string `json:"feed_key"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewFeedChangedEvent creates an event for one changed feed.
func NewFeedChangedEvent(feedKey string) Event {
	return Event{
		Type:      EventFeedChanged,
		Timestamp: time.Now(),
		Data:      FeedChangedEventData{FeedKey: feedKey},
		FeedKey:   feedKey,
	}
}

// NewFeedsInvalidatedEvent creates the global invalidation event.
func NewFeedsInvalidatedEvent() Event {
	return Event{
		Type:      EventFeedsInvalidated,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatEventData{ServerTime: time.Now()},
	}
}
