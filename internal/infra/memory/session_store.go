package memory

import (
	"context"
	"sync"

	"studymaster-service/internal/app"
	"studymaster-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	results  map[string]domain.SessionResult
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		results:  make(map[string]domain.SessionResult),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// SaveResult keeps the latest result of each session; a replay overwrites it.
func (s *SessionStore) SaveResult(_ context.Context, result domain.SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.Scores = append([]float64(nil), result.Scores...)
	s.results[result.SessionID] = result
	return nil
}

// Result returns the last recorded result of a session.
func (s *SessionStore) Result(sessionID string) (domain.SessionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[sessionID]
	return result, ok
}
