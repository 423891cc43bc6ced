package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"studymaster-service/internal/domain"
)

// SessionRepository abstracts where live quiz sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	// SaveResult stores the final score list of a completed session.
	SaveResult(ctx context.Context, result domain.SessionResult) error
}

// QuestionProvider supplies the ordered question set of a subject. It may return an empty set.
type QuestionProvider interface {
	Fetch(ctx context.Context, subjectID string) ([]domain.Question, error)
}

// QuizConfig holds the engine settings applied to every new session.
type QuizConfig struct {
	Policy       ScoringPolicy
	TickInterval time.Duration
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionProvider
	clock     Clock
	cfg       QuizConfig
	newID     func() string
}

func NewQuizService(store SessionRepository, questions QuestionProvider, clock Clock, cfg QuizConfig) *QuizService {
	if clock == nil {
		clock = NewTickerClock()
	}
	return &QuizService{
		sessions:  store,
		questions: questions,
		clock:     clock,
		cfg:       cfg,
		newID:     uuid.NewString,
	}
}

// StartQuiz fetches the subject's questions and starts a new session on them.
func (s *QuizService) StartQuiz(ctx context.Context, subjectID string) (*Session, Snapshot, error) {
	questions, err := s.questions.Fetch(ctx, subjectID)
	if err != nil {
		return nil, Snapshot{}, err
	}

	session, err := NewSession(s.newID(), subjectID, SessionConfig{
		Policy:       s.cfg.Policy,
		TickInterval: s.cfg.TickInterval,
		Clock:        s.clock,
		OnComplete:   s.recordResult,
	})
	if err != nil {
		return nil, Snapshot{}, err
	}

	snap, err := session.Start(questions)
	if err != nil {
		session.Close()
		return nil, Snapshot{}, err
	}
	s.sessions.Put(session)
	log.Printf("quiz session %s started for subject %s with %d questions", session.ID(), subjectID, len(questions))
	return session, snap, nil
}

func (s *QuizService) SelectAnswer(_ context.Context, sessionID, option string) (AnswerOutcome, Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return AnswerOutcome{}, Snapshot{}, domain.ErrSessionNotFound
	}
	return session.SelectAnswer(option)
}

func (s *QuizService) Forfeit(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Forfeit()
}

func (s *QuizService) Advance(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Advance()
}

// Replay restarts a completed session. With refetch the question set is loaded again first.
func (s *QuizService) Replay(ctx context.Context, sessionID string, refetch bool) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	var questions []domain.Question
	if refetch {
		fetched, err := s.questions.Fetch(ctx, session.SubjectID())
		if err != nil {
			return Snapshot{}, err
		}
		questions = fetched
		if questions == nil {
			questions = []domain.Question{}
		}
	}
	return session.Replay(questions)
}

func (s *QuizService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot()
}

// Subscribe returns a channel that receives snapshots of a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Snapshot, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Leave tears down a session; its clock is stopped whatever state it was in.
func (s *QuizService) Leave(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	log.Printf("quiz session %s closed after %s", sessionID, time.Since(session.CreatedAt()).Round(time.Second))
}

func (s *QuizService) recordResult(result domain.SessionResult) {
	log.Printf("quiz session %s completed: %d questions, mean %.1f", result.SessionID, len(result.Scores), result.Mean)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.sessions.SaveResult(ctx, result); err != nil {
		log.Printf("save result for session %s: %v", result.SessionID, err)
	}
}
