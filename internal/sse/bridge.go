package sse

import (
	"github.com/gfycat/feedcore/internal/feedbus"
	"github.com/gfycat/feedcore/internal/feedid"
)

// Bridge converts cache change notifications into SSE events. It
// implements store.Notifier; per-feed notifications pass through a
// coalescer so a burst of merges becomes one event per feed per interval.
type Bridge struct {
	manager   *Manager
	coalescer *feedbus.Coalescer
}

// NewBridge returns a bridge emitting into manager.
func NewBridge(manager *Manager) *Bridge {
	b := &Bridge{manager: manager}
	b.coalescer = feedbus.NewCoalescer(feedbus.DefaultCoalesceInterval,
		feedbus.ObserverFunc(func(id feedid.Identifier) {
			manager.Emit(NewFeedChangedEvent(id.UniqueKey()))
		}))
	return b
}

// Notify forwards one feed's change through the coalescer.
func (b *Bridge) Notify(id feedid.Identifier) {
	b.coalescer.OnFeedChanged(id)
}

// NotifyAll emits the global invalidation event. Not coalesced,
// moderation actions are rare and every client must hear about them.
func (b *Bridge) NotifyAll() {
	b.manager.Emit(NewFeedsInvalidatedEvent())
}

// Stop drops any pending coalesced notifications.
func (b *Bridge) Stop() {
	b.coalescer.Stop()
}
