package runtime

import (
	"sort"
	"sync"
	"time"
)

// VirtualClock only moves when told to. Its tickers never fire; callers
// inject ticks explicitly. Timers fire, in due order, when Set or Advance
// moves time past them.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*virtualTimer
}

type virtualTimer struct {
	clock   *VirtualClock
	due     time.Time
	fn      func()
	stopped bool
}

// NewVirtualClock returns a clock frozen at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) NewTicker(time.Duration) Ticker { return idleTicker{} }

func (c *VirtualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &virtualTimer{clock: c, due: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// Set moves time to t and runs every timer that became due. Moving
// backwards is ignored.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
	}
	var due, keep []*virtualTimer
	for _, tm := range c.timers {
		switch {
		case tm.stopped:
		case !tm.due.After(c.now):
			due = append(due, tm)
		default:
			keep = append(keep, tm)
		}
	}
	c.timers = keep
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
	for _, tm := range due {
		tm.fn()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *VirtualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (t *virtualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}
