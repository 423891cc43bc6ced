package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"studymaster-service/internal/domain"
)

type subjectRow struct {
	bun.BaseModel `bun:"table:subjects"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}

type noteRow struct {
	bun.BaseModel `bun:"table:notes"`

	ID        string    `bun:"id,pk"`
	SubjectID string    `bun:"subject_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Content   string    `bun:"content,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (r noteRow) toDomain() domain.Note {
	return domain.Note{ID: r.ID, SubjectID: r.SubjectID, Name: r.Name, Content: r.Content, UpdatedAt: r.UpdatedAt.UTC()}
}

func fromNote(n domain.Note) noteRow {
	return noteRow{ID: n.ID, SubjectID: n.SubjectID, Name: n.Name, Content: n.Content, UpdatedAt: n.UpdatedAt}
}

// NoteStore persists subjects and notes in Postgres through bun.
type NoteStore struct {
	db *bun.DB
}

func NewNoteStore(db *bun.DB) *NoteStore {
	return &NoteStore{db: db}
}

func (s *NoteStore) CreateSubject(ctx context.Context, subject domain.Subject) error {
	row := subjectRow{ID: subject.ID, Name: subject.Name}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *NoteStore) GetSubject(ctx context.Context, id string) (domain.Subject, error) {
	var row subjectRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	if err != nil {
		return domain.Subject{}, fmt.Errorf("select subject: %w", err)
	}
	return domain.Subject{ID: row.ID, Name: row.Name}, nil
}

func (s *NoteStore) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	var rows []subjectRow
	if err := s.db.NewSelect().Model(&rows).Order("name ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	subjects := make([]domain.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, domain.Subject{ID: row.ID, Name: row.Name})
	}
	return subjects, nil
}

// DeleteSubject relies on ON DELETE CASCADE to remove the subject's notes and questions.
func (s *NoteStore) DeleteSubject(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*subjectRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireAffected(res, domain.ErrSubjectNotFound)
}

func (s *NoteStore) CreateNote(ctx context.Context, note domain.Note) error {
	row := fromNote(note)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *NoteStore) UpdateNote(ctx context.Context, note domain.Note) error {
	row := fromNote(note)
	res, err := s.db.NewUpdate().Model(&row).Column("name", "content", "updated_at").WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return requireAffected(res, domain.ErrNoteNotFound)
}

func (s *NoteStore) GetNote(ctx context.Context, id string) (domain.Note, error) {
	var row noteRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Note{}, domain.ErrNoteNotFound
	}
	if err != nil {
		return domain.Note{}, fmt.Errorf("select note: %w", err)
	}
	return row.toDomain(), nil
}

func (s *NoteStore) ListNotes(ctx context.Context, subjectID string) ([]domain.Note, error) {
	var rows []noteRow
	err := s.db.NewSelect().Model(&rows).
		Where("subject_id = ?", subjectID).
		Order("updated_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	notes := make([]domain.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.toDomain())
	}
	return notes, nil
}

func (s *NoteStore) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*noteRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireAffected(res, domain.ErrNoteNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
