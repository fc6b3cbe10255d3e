package services

import (
	"sync"
	"time"
)

// Cooldown remembers the last accepted submission per user.
// Check and Commit are separate so the window is consumed only after the dispatcher got the request.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[int64]time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, last: make(map[int64]time.Time)}
}

func (c *Cooldown) Window() time.Duration {
	return c.window
}

// Check reports whether a submission at now is allowed and, if not, how long to wait.
func (c *Cooldown) Check(userID int64, now time.Time) (remaining time.Duration, ok bool) {
	c.mu.Lock()
	last, seen := c.last[userID]
	c.mu.Unlock()
	if !seen {
		return 0, true
	}
	elapsed := now.Sub(last)
	if elapsed >= c.window {
		return 0, true
	}
	return c.window - elapsed, false
}

func (c *Cooldown) Commit(userID int64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[userID] = now
}
