package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"studymaster-service/internal/domain"
)

// QuestionSeeder inserts a question bank for subjects that have none yet.
type QuestionSeeder struct {
	pool *pgxpool.Pool
}

func NewQuestionSeeder(pool *pgxpool.Pool) *QuestionSeeder {
	return &QuestionSeeder{pool: pool}
}

// Seed creates the subject if needed and inserts questions in order, unless the
// subject already has questions. It reports how many questions were inserted.
func (s *QuestionSeeder) Seed(ctx context.Context, subject domain.Subject, questions []domain.Question) (int, error) {
	inserted := 0
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO subjects (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			subject.ID, subject.Name); err != nil {
			return fmt.Errorf("insert subject: %w", err)
		}

		var existing int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM questions WHERE subject_id=$1`, subject.ID).Scan(&existing); err != nil {
			return fmt.Errorf("count questions: %w", err)
		}
		if existing > 0 {
			return nil
		}

		for i, q := range questions {
			if err := q.Validate(); err != nil {
				return err
			}
			options, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO questions (id, subject_id, position, prompt, correct_answer, options) VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
				q.ID, subject.ID, i, q.Prompt, q.CorrectAnswer, string(options)); err != nil {
				return fmt.Errorf("insert question %s: %w", q.ID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
