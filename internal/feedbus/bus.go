// Package feedbus is the in-process registry connecting cache writers to
// feed observers. Delivery is synchronous and in-memory only; nothing
// survives a process restart.
package feedbus

import (
	"reflect"
	"sync"

	"github.com/gfycat/feedcore/internal/feedid"
)

// Observer receives change notifications for feeds it subscribed to.
type Observer interface {
	OnFeedChanged(id feedid.Identifier)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(id feedid.Identifier)

// OnFeedChanged calls f.
func (f ObserverFunc) OnFeedChanged(id feedid.Identifier) { f(id) }

type entry struct {
	id        feedid.Identifier
	observers []Observer
}

// Bus maps feed identifiers to observer sets. Observers registered for an
// identifier are invoked, in no particular order, whenever that feed (or
// every feed, via NotifyAll) changes.
type Bus struct {
	mu      sync.RWMutex
	entries map[string]*entry // keyed by UniqueKey
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{entries: make(map[string]*entry)}
}

// Subscribe registers observer for changes to id. Registering the same
// observer twice delivers each notification twice.
func (b *Bus) Subscribe(id feedid.Identifier, observer Observer) {
	if id == nil || observer == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := id.UniqueKey()
	e, ok := b.entries[key]
	if !ok {
		e = &entry{id: id}
		b.entries[key] = e
	}
	e.observers = append(e.observers, observer)
}

// Unsubscribe removes observer from every identifier it was registered
// under.
func (b *Bus) Unsubscribe(observer Observer) {
	if observer == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, e := range b.entries {
		kept := e.observers[:0]
		for _, o := range e.observers {
			if !sameObserver(o, observer) {
				kept = append(kept, o)
			}
		}
		e.observers = kept
		if len(e.observers) == 0 {
			delete(b.entries, key)
		}
	}
}

// sameObserver reports whether two observers are the same registration.
// ObserverFunc values are uncomparable with ==, so funcs are matched by
// code pointer instead.
func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}

// Notify synchronously invokes every observer registered for exactly id.
func (b *Bus) Notify(id feedid.Identifier) {
	if id == nil {
		return
	}
	b.mu.RLock()
	var observers []Observer
	if e, ok := b.entries[id.UniqueKey()]; ok {
		observers = append(observers, e.observers...)
	}
	b.mu.RUnlock()

	for _, o := range observers {
		o.OnFeedChanged(id)
	}
}

// NotifyAll synchronously invokes every observer under every identifier.
// Used after moderation actions that invalidate all feeds at once.
func (b *Bus) NotifyAll() {
	b.mu.RLock()
	type delivery struct {
		id        feedid.Identifier
		observers []Observer
	}
	deliveries := make([]delivery, 0, len(b.entries))
	for _, e := range b.entries {
		deliveries = append(deliveries, delivery{id: e.id, observers: append([]Observer(nil), e.observers...)})
	}
	b.mu.RUnlock()

	for _, d := range deliveries {
		for _, o := range d.observers {
			o.OnFeedChanged(d.id)
		}
	}
}
