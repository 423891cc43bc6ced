package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"studymaster-service/internal/domain"
)

// QuestionLoader fetches a subject's questions from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error)
}

// QuestionRepository caches question sets in Redis and falls back to a loader on cache miss.
// Sets are stored JSON-encoded as: SET questions:{subjectID} [...] EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) Fetch(ctx context.Context, subjectID string) ([]domain.Question, error) {
	if questions, ok := r.cached(ctx, subjectID); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(subjectID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := r.cached(ctx, subjectID); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("encode questions: %w", err)
		}
		// best-effort: a failed write only costs a reload next time
		if err := r.client.Set(ctx, r.key(subjectID), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache questions for %s: %v", subjectID, err)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	// singleflight hands the same slice to every waiter; give each caller its own copy.
	questions := result.([]domain.Question)
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out, nil
}

// Invalidate removes the cached set of a subject, e.g. after seeding new questions.
func (r *QuestionRepository) Invalidate(ctx context.Context, subjectID string) error {
	return r.client.Del(ctx, r.key(subjectID)).Err()
}

func (r *QuestionRepository) cached(ctx context.Context, subjectID string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, r.key(subjectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("read cached questions for %s: %v", subjectID, err)
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		log.Printf("decode cached questions for %s: %v", subjectID, err)
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) key(subjectID string) string {
	return "questions:" + subjectID
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
