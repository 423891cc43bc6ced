package app

import (
	"sync"
	"time"
)

// Clock emits ticks to subscribers at a fixed interval.
type Clock interface {
	Subscribe(interval time.Duration, fn func()) Subscription
}

// Subscription is a handle to a running tick stream.
type Subscription interface {
	// Cancel stops future ticks. It is safe to call more than once and never
	// waits for a callback that is already running.
	Cancel()
}

// TickerClock is a wall-clock Clock. Each tick is a single-shot timer that is
// re-armed only after the previous callback returns, so callbacks never overlap.
type TickerClock struct{}

func NewTickerClock() *TickerClock {
	return &TickerClock{}
}

func (c *TickerClock) Subscribe(interval time.Duration, fn func()) Subscription {
	sub := &tickerSubscription{interval: interval, fn: fn}
	sub.mu.Lock()
	sub.timer = time.AfterFunc(interval, sub.fire)
	sub.mu.Unlock()
	return sub
}

type tickerSubscription struct {
	interval time.Duration
	fn       func()

	mu       sync.Mutex
	timer    *time.Timer
	canceled bool
}

func (s *tickerSubscription) fire() {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canceled {
		s.timer.Reset(s.interval)
	}
}

func (s *tickerSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return
	}
	s.canceled = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

// ManualClock is a Clock driven explicitly by Tick, used in tests and replays.
type ManualClock struct {
	mu   sync.Mutex
	subs map[*manualSubscription]struct{}
}

func NewManualClock() *ManualClock {
	return &ManualClock{subs: make(map[*manualSubscription]struct{})}
}

func (c *ManualClock) Subscribe(_ time.Duration, fn func()) Subscription {
	sub := &manualSubscription{clock: c, fn: fn}
	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()
	return sub
}

// Tick fires n ticks on every live subscription, one after another.
func (c *ManualClock) Tick(n int) {
	for i := 0; i < n; i++ {
		c.mu.Lock()
		live := make([]*manualSubscription, 0, len(c.subs))
		for sub := range c.subs {
			live = append(live, sub)
		}
		c.mu.Unlock()

		for _, sub := range live {
			if sub.active() {
				sub.fn()
			}
		}
	}
}

// Active returns the number of subscriptions that have not been cancelled.
func (c *ManualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

type manualSubscription struct {
	clock *ManualClock
	fn    func()
}

func (s *manualSubscription) active() bool {
	s.clock.mu.Lock()
	defer s.clock.mu.Unlock()
	_, ok := s.clock.subs[s]
	return ok
}

func (s *manualSubscription) Cancel() {
	s.clock.mu.Lock()
	delete(s.clock.subs, s)
	s.clock.mu.Unlock()
}
