package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"studymaster-service/internal/domain"
)

// PlaceholderNoteName is the title given to freshly created notes.
const PlaceholderNoteName = "New Note"

// NoteStore persists subjects and notes. List methods return subjects
// ordered by name and notes ordered by UpdatedAt ascending.
type NoteStore interface {
	CreateSubject(ctx context.Context, subject domain.Subject) error
	GetSubject(ctx context.Context, id string) (domain.Subject, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	// DeleteSubject removes the subject together with its notes.
	DeleteSubject(ctx context.Context, id string) error

	CreateNote(ctx context.Context, note domain.Note) error
	UpdateNote(ctx context.Context, note domain.Note) error
	GetNote(ctx context.Context, id string) (domain.Note, error)
	ListNotes(ctx context.Context, subjectID string) ([]domain.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// NoteService implements subject and note management.
type NoteService struct {
	store NoteStore
	now   func() time.Time
	newID func() string
}

func NewNoteService(store NoteStore) *NoteService {
	return &NoteService{store: store, now: time.Now, newID: uuid.NewString}
}

// NewNoteServiceWithClock is test-only for deterministic timestamps.
func NewNoteServiceWithClock(store NoteStore, now func() time.Time) *NoteService {
	svc := NewNoteService(store)
	svc.now = now
	return svc
}

func (s *NoteService) CreateSubject(ctx context.Context, name string) (domain.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Subject{}, domain.ErrEmptyName
	}
	subject := domain.Subject{ID: s.newID(), Name: name}
	if err := s.store.CreateSubject(ctx, subject); err != nil {
		return domain.Subject{}, fmt.Errorf("create subject: %w", err)
	}
	return subject, nil
}

func (s *NoteService) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return s.store.ListSubjects(ctx)
}

func (s *NoteService) DeleteSubject(ctx context.Context, id string) error {
	return s.store.DeleteSubject(ctx, id)
}

// CreateNote adds an empty placeholder note to the subject, ready for editing.
func (s *NoteService) CreateNote(ctx context.Context, subjectID string) (domain.Note, error) {
	if _, err := s.store.GetSubject(ctx, subjectID); err != nil {
		return domain.Note{}, err
	}
	note := domain.Note{
		ID:        s.newID(),
		SubjectID: subjectID,
		Name:      PlaceholderNoteName,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return domain.Note{}, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

// UpdateNote saves a new title and content and refreshes the modification time.
func (s *NoteService) UpdateNote(ctx context.Context, id, name, content string) (domain.Note, error) {
	note, err := s.store.GetNote(ctx, id)
	if err != nil {
		return domain.Note{}, err
	}
	note.Name = name
	note.Content = content
	note.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return domain.Note{}, fmt.Errorf("update note: %w", err)
	}
	return note, nil
}

// FinishEditing replaces a placeholder title with the first word of the content.
func (s *NoteService) FinishEditing(ctx context.Context, id string) (domain.Note, error) {
	note, err := s.store.GetNote(ctx, id)
	if err != nil {
		return domain.Note{}, err
	}
	if note.Name != PlaceholderNoteName {
		return note, nil
	}
	word := firstWord(note.Content)
	if word == "" {
		return note, nil
	}
	return s.UpdateNote(ctx, id, word, note.Content)
}

func (s *NoteService) GetNote(ctx context.Context, id string) (domain.Note, error) {
	return s.store.GetNote(ctx, id)
}

// ListNotes returns the subject's named notes, oldest modification first.
func (s *NoteService) ListNotes(ctx context.Context, subjectID string) ([]domain.Note, error) {
	if _, err := s.store.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	named := notes[:0]
	for _, n := range notes {
		if n.Name != "" {
			named = append(named, n)
		}
	}
	return named, nil
}

func (s *NoteService) DeleteNote(ctx context.Context, id string) error {
	return s.store.DeleteNote(ctx, id)
}

func firstWord(content string) string {
	fields := strings.FieldsFunc(content, unicode.IsSpace)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
