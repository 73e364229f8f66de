/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeClock only moves when Advance is called. Due AfterFunc callbacks
// run synchronously in Advance, outside the clock's lock, so they may
// stop other timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)

	var due, waiting []*fakeTimer
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.deadline.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			waiting = append(waiting, t)
		}
	}
	c.timers = waiting
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, t := range due {
		t.f()
	}
}

// pending returns the number of timers that have neither fired nor been
// stopped.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func TestFakeClockFiresOnlyDueTimers(t *testing.T) {
	clk := newFakeClock()

	var fired []string
	clk.AfterFunc(10*time.Second, func() { fired = append(fired, "ten") })
	clk.AfterFunc(5*time.Second, func() { fired = append(fired, "five") })
	stopped := clk.AfterFunc(7*time.Second, func() { fired = append(fired, "seven") })

	if !stopped.Stop() {
		t.Fatalf("expected Stop to cancel a pending timer")
	}

	clk.Advance(9 * time.Second)
	if len(fired) != 1 || fired[0] != "five" {
		t.Fatalf("unexpected timers after 9s: %v", fired)
	}

	clk.Advance(time.Second)
	if len(fired) != 2 || fired[1] != "ten" {
		t.Fatalf("unexpected timers after 10s: %v", fired)
	}

	if stopped.Stop() {
		t.Fatalf("expected Stop on a stopped timer to report false")
	}
	if n := clk.pending(); n != 0 {
		t.Fatalf("expected no pending timers, got %d", n)
	}
}
