package apiclient

import (
	"sync"
	"time"
)

// cooldowns tracks the 429 pause per session scope. Copies made by WithToken share it.
type cooldowns struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func newCooldowns() *cooldowns {
	return &cooldowns{until: make(map[string]time.Time)}
}

func (c *cooldowns) start(scope string, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.until[scope]; !ok || until.After(cur) {
		c.until[scope] = until
	}
}

func (c *cooldowns) active(scope string, now time.Time) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.until[scope]
	if !ok {
		return time.Time{}, false
	}
	if !now.Before(until) {
		delete(c.until, scope)
		return time.Time{}, false
	}
	return until, true
}
