// Package testutil provides deterministic stand-ins for time and
// navigation used across package tests.
package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a virtual clock whose timers fire only on Advance.
//
// It implements checkout.Scheduler, so a test decides exactly when a
// delayed redirect happens instead of sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Timer callbacks run on the goroutine that calls Advance, without the
// lock held.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at    time.Duration
	seq   int
	fn    func()
	fired bool
	stop  bool
}

// NewManualClock creates a clock at elapsed time 0.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Elapsed returns the virtual time advanced so far.
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f at Elapsed()+d. stop cancels a pending f and
// reports whether it was still pending.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) (stop func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &manualTimer{at: c.now + d, seq: c.seq, fn: f}
	c.timers = append(c.timers, t)

	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if t.fired || t.stop {
			return false
		}
		t.stop = true
		return true
	}
}

// Pending returns the number of timers that have neither fired nor stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stop {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and fires every due timer in
// deadline order, ties broken by scheduling order.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.fired && !t.stop && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
}
