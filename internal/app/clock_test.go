package app_test

import (
	"sync/atomic"
	"testing"
	"time"

	"studymaster-service/internal/app"
)

func TestTickerClockFiresUntilCancelled(t *testing.T) {
	var ticks atomic.Int32
	sub := app.NewTickerClock().Subscribe(2*time.Millisecond, func() { ticks.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 {
		if time.Now().After(deadline) {
			sub.Cancel()
			t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
		}
		time.Sleep(time.Millisecond)
	}

	sub.Cancel()
	sub.Cancel()
	// Allow a callback that was already running to finish.
	time.Sleep(10 * time.Millisecond)
	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != stopped {
		t.Fatalf("ticks continued after cancel: %d -> %d", stopped, got)
	}
}

func TestTickerClockCancelFromCallback(t *testing.T) {
	var (
		ticks atomic.Int32
		sub   atomic.Value
	)
	done := make(chan struct{})
	s := app.NewTickerClock().Subscribe(time.Millisecond, func() {
		if ticks.Add(1) == 1 {
			for sub.Load() == nil {
				time.Sleep(time.Millisecond)
			}
			sub.Load().(app.Subscription).Cancel()
			close(done)
		}
	})
	sub.Store(s)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never ran")
	}
	time.Sleep(20 * time.Millisecond)
	if got := ticks.Load(); got != 1 {
		t.Fatalf("expected exactly one tick, got %d", got)
	}
}

func TestManualClockTracksSubscriptions(t *testing.T) {
	clock := app.NewManualClock()
	var a, b int
	subA := clock.Subscribe(time.Second, func() { a++ })
	clock.Subscribe(time.Second, func() { b++ })

	clock.Tick(2)
	subA.Cancel()
	clock.Tick(1)

	if a != 2 || b != 3 {
		t.Fatalf("unexpected tick counts a=%d b=%d", a, b)
	}
	if clock.Active() != 1 {
		t.Fatalf("expected one active subscription, got %d", clock.Active())
	}
}
