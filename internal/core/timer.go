package core

import (
	"sync"
	"time"
)

// Countdown is a cancellable one-shot room timer. Setting a new
// deadline or clearing it cancels any pending fire. Each schedule
// carries a generation: a callback that serializes behind another lock
// before acting must re-check Valid with its generation after
// acquiring that lock, because Clear can win the race while the
// callback is already running and blocked.
type Countdown struct {
	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	deadline time.Time
}

func NewCountdown() *Countdown { return &Countdown{} }

// Set schedules fire after d, replacing any pending schedule. The
// callback receives the schedule's generation for Valid checks.
func (c *Countdown) Set(d time.Duration, fire func(gen uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.deadline = time.Now().Add(d)
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.deadline = time.Time{}
		c.mu.Unlock()
		fire(gen)
	})
}

// Clear cancels the pending fire, if any. A callback that already
// started sees its generation invalidated.
func (c *Countdown) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.deadline = time.Time{}
}

// Valid reports whether gen is still the live schedule.
func (c *Countdown) Valid(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// Remaining reports the time left, zero when nothing is scheduled.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return 0
	}
	if d := time.Until(c.deadline); d > 0 {
		return d
	}
	return 0
}

// Set reports whether a fire is pending.
func (c *Countdown) IsSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}
