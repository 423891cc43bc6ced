package app

import (
	"sync"
	"time"

	"studymaster-service/internal/domain"
)

// Session owns one Engine and runs every engine call, including clock
// ticks, on a single goroutine.
type Session struct {
	id        string
	subjectID string
	createdAt time.Time
	now       func() time.Time

	engine  *Engine
	mailbox chan func()
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once

	mu          sync.RWMutex
	last        Snapshot
	subscribers map[chan Snapshot]struct{}

	onComplete func(domain.SessionResult)
}

// SessionConfig carries the per-session engine settings.
type SessionConfig struct {
	Policy       ScoringPolicy
	TickInterval time.Duration
	Clock        Clock
	Now          func() time.Time
	OnComplete   func(domain.SessionResult)
}

// NewSession creates a session and starts its event loop. Call Close to release it.
func NewSession(id, subjectID string, cfg SessionConfig) (*Session, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewTickerClock()
	}

	s := &Session{
		id:          id,
		subjectID:   subjectID,
		createdAt:   now(),
		now:         now,
		mailbox:     make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
		onComplete:  cfg.OnComplete,
	}
	engine, err := NewEngine(cfg.Policy, clock,
		WithTickInterval(cfg.TickInterval),
		WithDispatch(s.dispatch),
		WithOnChange(s.broadcast),
		WithOnComplete(s.completed),
	)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	s.last = engine.Snapshot()

	go s.run()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) SubjectID() string { return s.subjectID }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Start(questions []domain.Question) (Snapshot, error) {
	return s.exec(func(e *Engine) error { return e.Start(questions) })
}

func (s *Session) SelectAnswer(option string) (AnswerOutcome, Snapshot, error) {
	var outcome AnswerOutcome
	snap, err := s.exec(func(e *Engine) error {
		var err error
		outcome, err = e.SelectAnswer(option)
		return err
	})
	return outcome, snap, err
}

func (s *Session) Forfeit() (Snapshot, error) {
	return s.exec(func(e *Engine) error { return e.Forfeit() })
}

func (s *Session) Advance() (Snapshot, error) {
	return s.exec(func(e *Engine) error { return e.Advance() })
}

// Replay restarts a completed session. A non-nil question set replaces the current one.
func (s *Session) Replay(questions []domain.Question) (Snapshot, error) {
	return s.exec(func(e *Engine) error {
		if questions != nil {
			return e.ReplayWith(questions)
		}
		return e.Replay()
	})
}

func (s *Session) Snapshot() (Snapshot, error) {
	return s.exec(func(*Engine) error { return nil })
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.last
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the engine clock, ends the event loop and closes subscriber channels.
func (s *Session) Close() {
	s.once.Do(func() {
		_ = s.do(func() { s.engine.Close() })
		close(s.quit)
		<-s.done

		s.mu.Lock()
		for ch := range s.subscribers {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	})
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.mailbox:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the session goroutine and waits for it to finish.
func (s *Session) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case s.mailbox <- func() { fn(); close(finished) }:
	case <-s.done:
		return domain.ErrSessionClosed
	}
	<-finished
	return nil
}

func (s *Session) exec(fn func(e *Engine) error) (Snapshot, error) {
	var (
		snap  Snapshot
		opErr error
	)
	if err := s.do(func() {
		opErr = fn(s.engine)
		snap = s.engine.Snapshot()
	}); err != nil {
		return Snapshot{}, err
	}
	return snap, opErr
}

// dispatch marshals clock ticks onto the session goroutine. Ticks arriving
// after Close are dropped.
func (s *Session) dispatch(fn func()) {
	_ = s.do(fn)
}

func (s *Session) completed(scores []float64, mean float64) {
	if s.onComplete == nil {
		return
	}
	s.onComplete(domain.SessionResult{
		SessionID:   s.id,
		SubjectID:   s.subjectID,
		Scores:      scores,
		Mean:        mean,
		CompletedAt: s.now(),
	})
}

func (s *Session) broadcast(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = snap
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot so slow readers never block the session.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
