package domain

import (
	"fmt"
	"time"
)

// Question models an MCQ question. CorrectAnswer is compared against the
// option text, so it must appear in Options exactly once.
type Question struct {
	ID            string   `json:"id"`
	SubjectID     string   `json:"subjectId"`
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correctAnswer"`
	Options       []string `json:"options"`
}

// Validate checks that options are unique and the correct answer is one of them.
func (q Question) Validate() error {
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: %s has duplicate option %q", ErrInvalidQuestion, q.ID, opt)
		}
		seen[opt] = struct{}{}
	}
	if q.CorrectAnswer == "" {
		return fmt.Errorf("%w: %s has no correct answer", ErrInvalidQuestion, q.ID)
	}
	if _, ok := seen[q.CorrectAnswer]; !ok {
		return fmt.Errorf("%w: %s correct answer %q is not an option", ErrInvalidQuestion, q.ID, q.CorrectAnswer)
	}
	return nil
}

// HasOption reports whether option is one of the question's choices.
func (q Question) HasOption(option string) bool {
	for _, opt := range q.Options {
		if opt == option {
			return true
		}
	}
	return false
}

// Subject groups notes and questions.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Note is a free-text study note attached to a subject.
type Note struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionResult is the per-question score list reported once a quiz completes.
type SessionResult struct {
	SessionID   string    `json:"sessionId"`
	SubjectID   string    `json:"subjectId"`
	Scores      []float64 `json:"scores"`
	Mean        float64   `json:"mean"`
	CompletedAt time.Time `json:"completedAt"`
}
