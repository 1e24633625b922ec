package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hikari-health/auth-core/internal/core/ports"
)

type window struct {
	count   int
	resetAt time.Time
}

// Counter is a fixed-window rate counter. Increment-and-read on a key happens
// under one lock so concurrent hits never undercount.
type Counter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

var _ ports.RateCounter = (*Counter)(nil)

func NewCounter() *Counter {
	return &Counter{windows: make(map[string]*window), now: time.Now}
}

// Increment adds a hit to key. An expired window is replaced lazily here.
func (c *Counter) Increment(_ context.Context, key string, win time.Duration) (int, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(win)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Cleanup drops windows that ended before now and returns how many it removed.
func (c *Counter) Cleanup(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, k)
			n++
		}
	}
	return n
}
