package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"studymaster-service/internal/app"
	"studymaster-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions own a goroutine and a clock subscription, so the live objects
//     stay in a local map.
//   - Redis holds a liveness marker per session and the final result hash of
//     completed sessions, both expiring after ttl.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.SubjectID(), s.ttl).Err()
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
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// SaveResult writes the result as HSET quiz:result:{sessionID} subject, mean, count, scores, completed_at.
func (s *SessionStore) SaveResult(ctx context.Context, result domain.SessionResult) error {
	scores, err := json.Marshal(result.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	key := s.resultKey(result.SessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"subject":      result.SubjectID,
		"mean":         strconv.FormatFloat(result.Mean, 'f', -1, 64),
		"count":        len(result.Scores),
		"scores":       string(scores),
		"completed_at": result.CompletedAt.UTC().Format(time.RFC3339),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// Result reads back a stored session result.
func (s *SessionStore) Result(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	fields, err := s.client.HGetAll(ctx, s.resultKey(sessionID)).Result()
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("load result: %w", err)
	}
	if len(fields) == 0 {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	result := domain.SessionResult{SessionID: sessionID, SubjectID: fields["subject"]}
	if result.Mean, err = strconv.ParseFloat(fields["mean"], 64); err != nil {
		return domain.SessionResult{}, fmt.Errorf("parse mean: %w", err)
	}
	if err := json.Unmarshal([]byte(fields["scores"]), &result.Scores); err != nil {
		return domain.SessionResult{}, fmt.Errorf("parse scores: %w", err)
	}
	if ts := fields["completed_at"]; ts != "" {
		if result.CompletedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return domain.SessionResult{}, fmt.Errorf("parse completed_at: %w", err)
		}
	}
	return result, nil
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}

func (s *SessionStore) resultKey(sessionID string) string {
	return "quiz:result:" + sessionID
}
