package services

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts wall-clock reads and deferred callbacks so deadline logic
// can be driven with virtual time in tests. Scheduled callbacks are never
// cancelled; they are expected to be liveness-guarded no-ops when stale.
type Clock interface {
	Now() time.Time
	Schedule(d time.Duration, fn func())
}

type realClock struct{}

// NewRealClock returns the production clock backed by the time package.
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// FakeClock is a deterministic Clock for tests. Advance moves virtual time
// forward and fires due callbacks in deadline order on the calling goroutine.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at time.Time
	fn func()
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Schedule(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, &fakeTimer{at: c.now.Add(d), fn: fn})
}

// Advance moves the clock to now+d, firing every callback whose deadline is
// reached, earliest first. Callbacks may schedule further callbacks; those
// fire too if they fall within the window.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool {
			return c.timers[i].at.Before(c.timers[j].at)
		})

		var next *fakeTimer
		for i, t := range c.timers {
			if !t.at.After(target) {
				next = t
				c.timers = append(c.timers[:i], c.timers[i+1:]...)
				break
			}
		}

		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}

		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.fn()
	}
}
