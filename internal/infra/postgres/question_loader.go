package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"studymaster-service/internal/domain"
)

// QuestionLoader loads a subject's questions from Postgres, options stored as JSONB.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, subjectID string) ([]domain.Question, error) {
	var exists bool
	if err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM subjects WHERE id=$1)`, subjectID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}
	if !exists {
		return nil, domain.ErrSubjectNotFound
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, prompt, correct_answer, options FROM questions WHERE subject_id=$1 ORDER BY position, id`,
		subjectID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		q := domain.Question{SubjectID: subjectID}
		var raw []byte
		if err := rows.Scan(&q.ID, &q.Prompt, &q.CorrectAnswer, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}
