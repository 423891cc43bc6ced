package app_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"studymaster-service/internal/app"
	"studymaster-service/internal/domain"
)

func newSession(t *testing.T, cfg app.SessionConfig) *app.Session {
	t.Helper()
	if cfg.Policy == (app.ScoringPolicy{}) {
		cfg.Policy = app.DefaultPolicy()
	}
	s, err := app.NewSession("s-1", "math", cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSessionAppliesConcurrentTicks(t *testing.T) {
	clock := app.NewManualClock()
	s := newSession(t, app.SessionConfig{Clock: clock})
	if _, err := s.Start(makeQuestions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Tick(5)
		}()
	}
	wg.Wait()

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got, want := snap.Attempt.TimeBudget, 40.0/60.0; got != want {
		t.Fatalf("expected budget %v, got %v", want, got)
	}
}

func TestSessionSubscribeStreamsSnapshots(t *testing.T) {
	s := newSession(t, app.SessionConfig{Clock: app.NewManualClock()})
	if _, err := s.Start(makeQuestions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}

	ch, cancel := s.Subscribe()
	defer cancel()

	first := <-ch
	if first.State != app.StateActive {
		t.Fatalf("expected current snapshot first, got %s", first.State)
	}

	outcome, _, err := s.SelectAnswer("b")
	if err != nil || !outcome.Correct {
		t.Fatalf("select: %+v %v", outcome, err)
	}
	select {
	case update := <-ch:
		if !update.Attempt.AnsweredCorrectly {
			t.Fatalf("expected answered update, got %+v", update.Attempt)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update received")
	}
}

func TestSessionReportsCompletion(t *testing.T) {
	results := make(chan domain.SessionResult, 1)
	fixed := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	s := newSession(t, app.SessionConfig{
		Clock:      app.NewManualClock(),
		Now:        func() time.Time { return fixed },
		OnComplete: func(r domain.SessionResult) { results <- r },
	})
	if _, err := s.Start(makeQuestions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Forfeit(); err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	snap, err := s.Advance()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if snap.State != app.StateCompleted {
		t.Fatalf("expected completed, got %s", snap.State)
	}
	if !s.CreatedAt().Equal(fixed) {
		t.Fatalf("expected creation time %v, got %v", fixed, s.CreatedAt())
	}

	r := <-results
	if r.SessionID != "s-1" || r.SubjectID != "math" || len(r.Scores) != 1 || r.Mean != 40 || !r.CompletedAt.Equal(fixed) {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestSessionReplayWithNewQuestions(t *testing.T) {
	s := newSession(t, app.SessionConfig{Clock: app.NewManualClock()})
	if _, err := s.Start(makeQuestions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Replay(nil); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected replay while active to fail, got %v", err)
	}
	_, _ = s.Forfeit()
	_, _ = s.Advance()

	snap, err := s.Replay(makeQuestions(3))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if snap.State != app.StateActive || snap.Total != 3 {
		t.Fatalf("expected active replay over 3 questions, got %+v", snap)
	}
}

func TestSessionCloseStopsEverything(t *testing.T) {
	clock := app.NewManualClock()
	s := newSession(t, app.SessionConfig{Clock: clock})
	if _, err := s.Start(makeQuestions(2)); err != nil {
		t.Fatalf("start: %v", err)
	}
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Close()
	s.Close()

	if clock.Active() != 0 {
		t.Fatalf("close must stop the clock, %d active", clock.Active())
	}
	clock.Tick(3)
	for range ch {
	}
	if _, err := s.Advance(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed session error, got %v", err)
	}
	late, lateCancel := s.Subscribe()
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Fatalf("subscription after close must be closed")
	}
}

func TestSessionWithTickerClockTimesOut(t *testing.T) {
	policy := app.DefaultPolicy()
	policy.TotalTicks = 3
	s := newSession(t, app.SessionConfig{Policy: policy, TickInterval: 2 * time.Millisecond})
	if _, err := s.Start(makeQuestions(1)); err != nil {
		t.Fatalf("start: %v", err)
	}

	ch, cancel := s.Subscribe()
	defer cancel()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.Attempt != nil && snap.Attempt.TimedOut {
				if snap.Attempt.Score != policy.FloorScore || !snap.Attempt.CanAdvance {
					t.Fatalf("unexpected timed out attempt: %+v", snap.Attempt)
				}
				return
			}
		case <-timeout:
			t.Fatalf("question never timed out")
		}
	}
}
