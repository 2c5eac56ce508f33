package feedbus

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gfycat/feedcore/internal/feedid"
)

// DefaultCoalesceInterval bounds how often a Coalescer delivers while a
// burst of notifications is in flight.
const DefaultCoalesceInterval = 100 * time.Millisecond

// Coalescer is an Observer decorator that collapses notification bursts.
// The first notification in a quiet period passes through immediately;
// further notifications within the interval are batched and delivered once
// the interval elapses, deduplicated per feed. The bus itself stays
// burst-transparent; coalescing policy belongs to the consumer.
type Coalescer struct {
	next     Observer
	interval time.Duration
	limiter  *rate.Limiter

	mu      sync.Mutex
	pending map[string]feedid.Identifier
	timer   *time.Timer
}

// NewCoalescer wraps next with a delivery limit of one batch per interval.
func NewCoalescer(interval time.Duration, next Observer) *Coalescer {
	if interval <= 0 {
		interval = DefaultCoalesceInterval
	}
	return &Coalescer{
		next:     next,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		pending:  make(map[string]feedid.Identifier),
	}
}

// OnFeedChanged implements Observer.
func (c *Coalescer) OnFeedChanged(id feedid.Identifier) {
	c.mu.Lock()
	if len(c.pending) == 0 && c.limiter.Allow() {
		c.mu.Unlock()
		c.next.OnFeedChanged(id)
		return
	}

	c.pending[id.UniqueKey()] = id
	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, c.flush)
	}
	c.mu.Unlock()
}

// Stop cancels any scheduled delivery. Pending notifications are dropped.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = make(map[string]feedid.Identifier)
}

func (c *Coalescer) flush() {
	c.mu.Lock()
	ids := make([]feedid.Identifier, 0, len(c.pending))
	for _, id := range c.pending {
		ids = append(ids, id)
	}
	c.pending = make(map[string]feedid.Identifier)
	c.timer = nil
	c.mu.Unlock()

	for _, id := range ids {
		c.next.OnFeedChanged(id)
	}
}
