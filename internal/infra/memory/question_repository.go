package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"studymaster-service/internal/domain"
)

// QuestionLoader fetches a subject's questions from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

// Fetch returns a copy of the cached question set, loading it on a miss.
func (r *QuestionRepository) Fetch(ctx context.Context, subjectID string) ([]domain.Question, error) {
	if questions, ok := r.lookup(subjectID); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(subjectID, func() (interface{}, error) {
		if questions, ok := r.lookup(subjectID); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[subjectID] = cachedQuestions{
			questions: questions,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

// Invalidate drops the cached set of a subject.
func (r *QuestionRepository) Invalidate(subjectID string) {
	r.mu.Lock()
	delete(r.cache, subjectID)
	r.mu.Unlock()
}

func (r *QuestionRepository) lookup(subjectID string) ([]domain.Question, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[subjectID]; ok && entry.expiresAt.After(now) {
		return cloneQuestions(entry.questions), true
	}
	return nil, false
}

// ttlWithJitter must be called with mu held.
func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	subjects map[string][]domain.Question
}

func NewStaticQuestionLoader(subjects map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{subjects: subjects}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, subjectID string) ([]domain.Question, error) {
	if questions, ok := l.subjects[subjectID]; ok {
		return cloneQuestions(questions), nil
	}
	return nil, domain.ErrSubjectNotFound
}
