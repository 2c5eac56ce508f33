package feedbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gfycat/feedcore/internal/feedid"
)

// recorder counts notifications per feed key.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) OnFeedChanged(id feedid.Identifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id.UniqueKey())
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestBus_NotifyReachesOnlySubscribedFeed(t *testing.T) {
	bus := New()
	cats := &recorder{}
	dogs := &recorder{}
	bus.Subscribe(feedid.FromTag("cats"), cats)
	bus.Subscribe(feedid.FromTag("dogs"), dogs)

	bus.Notify(feedid.FromTag("cats"))

	assert.Equal(t, 1, cats.count())
	assert.Equal(t, 0, dogs.count())
}

func TestBus_NotifyMatchesByEncodingNotInstance(t *testing.T) {
	bus := New()
	obs := &recorder{}
	bus.Subscribe(feedid.FromSearch("sunset"), obs)

	// A separately constructed identifier with the same parameters hits
	// the same observers.
	bus.Notify(feedid.FromSearch("sunset"))

	require.Equal(t, 1, obs.count())
	assert.Equal(t, feedid.FromSearch("sunset").UniqueKey(), obs.calls[0])
}

func TestBus_NotifyAllReachesEveryObserver(t *testing.T) {
	bus := New()
	a := &recorder{}
	b := &recorder{}
	bus.Subscribe(feedid.Trending(), a)
	bus.Subscribe(feedid.FromUser("alice"), b)
	bus.Subscribe(feedid.FromUser("bob"), b)

	bus.NotifyAll()

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 2, b.count())
}

func TestBus_UnsubscribeRemovesFromAllFeeds(t *testing.T) {
	bus := New()
	obs := &recorder{}
	other := &recorder{}
	bus.Subscribe(feedid.Trending(), obs)
	bus.Subscribe(feedid.FromTag("cats"), obs)
	bus.Subscribe(feedid.FromTag("cats"), other)

	bus.Unsubscribe(obs)
	bus.Notify(feedid.Trending())
	bus.Notify(feedid.FromTag("cats"))

	assert.Equal(t, 0, obs.count())
	assert.Equal(t, 1, other.count())
}

func TestBus_UnsubscribeObserverFunc(t *testing.T) {
	bus := New()
	var calls int
	obs := ObserverFunc(func(id feedid.Identifier) { calls++ })
	other := &recorder{}
	bus.Subscribe(feedid.Trending(), obs)
	bus.Subscribe(feedid.Trending(), other)

	assert.NotPanics(t, func() { bus.Unsubscribe(obs) })
	bus.Notify(feedid.Trending())

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, other.count())
}

func TestBus_NilArgumentsAreIgnored(t *testing.T) {
	bus := New()
	assert.NotPanics(t, func() {
		bus.Subscribe(nil, &recorder{})
		bus.Subscribe(feedid.Trending(), nil)
		bus.Unsubscribe(nil)
		bus.Notify(nil)
		bus.NotifyAll()
	})
}

func TestCoalescer_FirstNotificationPassesThrough(t *testing.T) {
	obs := &recorder{}
	c := NewCoalescer(50*time.Millisecond, obs)
	defer c.Stop()

	c.OnFeedChanged(feedid.Trending())

	assert.Equal(t, 1, obs.count())
}

func TestCoalescer_BurstCollapsesToOneTrailingDelivery(t *testing.T) {
	obs := &recorder{}
	c := NewCoalescer(30*time.Millisecond, obs)
	defer c.Stop()

	for i := 0; i < 10; i++ {
		c.OnFeedChanged(feedid.Trending())
	}

	// Leading edge delivered immediately, the other nine collapse into a
	// single trailing delivery for the feed.
	assert.Equal(t, 1, obs.count())
	assert.Eventually(t, func() bool { return obs.count() == 2 }, time.Second, 5*time.Millisecond)

	// No further deliveries arrive after the trailing flush.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 2, obs.count())
}

func TestCoalescer_BatchKeepsDistinctFeeds(t *testing.T) {
	obs := &recorder{}
	c := NewCoalescer(30*time.Millisecond, obs)
	defer c.Stop()

	c.OnFeedChanged(feedid.FromTag("cats"))
	c.OnFeedChanged(feedid.FromTag("dogs"))
	c.OnFeedChanged(feedid.FromTag("dogs"))

	assert.Eventually(t, func() bool { return obs.count() == 2 }, time.Second, 5*time.Millisecond)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Contains(t, obs.calls, feedid.FromTag("cats").UniqueKey())
	assert.Contains(t, obs.calls, feedid.FromTag("dogs").UniqueKey())
}

func TestCoalescer_StopDropsPending(t *testing.T) {
	obs := &recorder{}
	c := NewCoalescer(30*time.Millisecond, obs)

	c.OnFeedChanged(feedid.Trending())
	c.OnFeedChanged(feedid.Trending())
	c.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, obs.count())
}
