package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable time source. Admission rules compare against "now", so
// tests pin it to a known instant on the booking day.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc is what services take as their time source. A nil clock falls
// back to the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SetAt moves the clock to hour:minute of its current day.
func (c *Clock) SetAt(hour, minute int) time.Time {
	t := c.At(hour, minute)
	c.Set(t)
	return t
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// At returns hour:minute on the clock's day in the clock's location.
func (c *Clock) At(hour, minute int) time.Time {
	now := c.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, now.Location())
}

// Tomorrow returns hour:minute on the day after the clock's day.
func (c *Clock) Tomorrow(hour, minute int) time.Time {
	return c.At(hour, minute).AddDate(0, 0, 1)
}

// In keeps the instant and switches the clock to loc.
func (c *Clock) In(loc *time.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.In(loc)
}
