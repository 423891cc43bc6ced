package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"studymaster-service/internal/app"
	"studymaster-service/internal/domain"
	"studymaster-service/internal/infra/memory"
)

func newTestService(clock app.Clock) (*app.QuizService, *memory.SessionStore, *mutableLoader) {
	store := memory.NewSessionStore()
	loader := &mutableLoader{subjects: map[string][]domain.Question{
		"math":  makeQuestions(2),
		"empty": {},
	}}
	service := app.NewQuizService(store, loader, clock, app.QuizConfig{Policy: app.DefaultPolicy()})
	return service, store, loader
}

// mutableLoader serves questions straight from a map so tests can change them between fetches.
type mutableLoader struct {
	subjects map[string][]domain.Question
}

func (l *mutableLoader) Fetch(_ context.Context, subjectID string) ([]domain.Question, error) {
	qs, ok := l.subjects[subjectID]
	if !ok {
		return nil, domain.ErrSubjectNotFound
	}
	return qs, nil
}

func TestQuizFlowRecordsResult(t *testing.T) {
	ctx := context.Background()
	clock := app.NewManualClock()
	service, store, _ := newTestService(clock)

	session, snap, err := service.StartQuiz(ctx, "math")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer service.Leave(ctx, session.ID())
	if snap.State != app.StateActive || snap.Total != 2 {
		t.Fatalf("expected active two-question quiz, got %+v", snap)
	}

	if _, _, err := service.SelectAnswer(ctx, session.ID(), "a"); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	outcome, snap, err := service.SelectAnswer(ctx, session.ID(), "b")
	if err != nil || !outcome.Correct {
		t.Fatalf("expected correct answer, got %+v (%v)", outcome, err)
	}
	if snap.Attempt.Score != 100 {
		t.Fatalf("expected 100, got %v", snap.Attempt.Score)
	}
	if _, err := service.Advance(ctx, session.ID()); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	clock.Tick(60)
	if _, err := service.Advance(ctx, session.ID()); err != nil {
		t.Fatalf("advance after expiry failed: %v", err)
	}

	result, ok := store.Result(session.ID())
	if !ok {
		t.Fatalf("expected stored result")
	}
	if len(result.Scores) != 2 || result.Scores[0] != 100 || result.Scores[1] != 40 || result.Mean != 70 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(app.NewManualClock())

	session, _, err := service.StartQuiz(ctx, "math")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer service.Leave(ctx, session.ID())

	ch, cancel, err := service.Subscribe(ctx, session.ID())
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	if _, err := service.Forfeit(ctx, session.ID()); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}

	select {
	case update := <-ch:
		if !update.Attempt.Forfeited || update.Attempt.Score != 40 {
			t.Fatalf("expected forfeited update worth 40, got %+v", update.Attempt)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update received")
	}
}

func TestUnknownSessionAndSubject(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(app.NewManualClock())

	if _, _, err := service.SelectAnswer(ctx, "missing", "a"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, err := service.Snapshot(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.StartQuiz(ctx, "history"); !errors.Is(err, domain.ErrSubjectNotFound) {
		t.Fatalf("expected subject error, got %v", err)
	}
	service.Leave(ctx, "missing")
}

func TestEmptySubjectCompletesImmediately(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService(app.NewManualClock())

	session, snap, err := service.StartQuiz(ctx, "empty")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer service.Leave(ctx, session.ID())

	if snap.State != app.StateCompleted || snap.Mean != 0 {
		t.Fatalf("expected completed quiz with mean 0, got %+v", snap)
	}
	if result, ok := store.Result(session.ID()); !ok || len(result.Scores) != 0 {
		t.Fatalf("expected empty stored result, got %+v %v", result, ok)
	}
}

func TestReplayRefetchesQuestions(t *testing.T) {
	ctx := context.Background()
	service, _, loader := newTestService(app.NewManualClock())

	session, _, err := service.StartQuiz(ctx, "math")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer service.Leave(ctx, session.ID())

	for i := 0; i < 2; i++ {
		_, _ = service.Forfeit(ctx, session.ID())
		_, _ = service.Advance(ctx, session.ID())
	}

	loader.subjects["math"] = makeQuestions(3)
	snap, err := service.Replay(ctx, session.ID(), false)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if snap.Total != 2 {
		t.Fatalf("replay without refetch should keep 2 questions, got %d", snap.Total)
	}

	for i := 0; i < 2; i++ {
		_, _ = service.Forfeit(ctx, session.ID())
		_, _ = service.Advance(ctx, session.ID())
	}
	snap, err = service.Replay(ctx, session.ID(), true)
	if err != nil {
		t.Fatalf("replay with refetch failed: %v", err)
	}
	if snap.Total != 3 || len(snap.Scores) != 0 {
		t.Fatalf("expected fresh 3-question run, got %+v", snap)
	}
}

func TestLeaveStopsClockAndForgetsSession(t *testing.T) {
	ctx := context.Background()
	clock := app.NewManualClock()
	service, store, _ := newTestService(clock)

	session, _, err := service.StartQuiz(ctx, "math")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	service.Leave(ctx, session.ID())

	if clock.Active() != 0 {
		t.Fatalf("expected clock to stop, %d active", clock.Active())
	}
	if _, ok := store.Get(session.ID()); ok {
		t.Fatalf("expected session to be removed")
	}
	if _, err := service.Advance(ctx, session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error after leave, got %v", err)
	}
}
