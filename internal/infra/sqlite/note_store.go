package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"studymaster-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS subjects (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
    id         TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL,
    name       TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS notes_subject_updated_idx ON notes (subject_id, updated_at);
`

// NoteStore persists subjects and notes in an embedded SQLite database.
// Timestamps are stored as Unix nanoseconds so ordering is exact.
type NoteStore struct {
	db *sql.DB
}

// Open creates a NoteStore at dsn, applies pragmas and creates the schema.
func Open(dsn string) (*NoteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps in-memory databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, p := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &NoteStore{db: db}, nil
}

func (s *NoteStore) Close() error {
	return s.db.Close()
}

func (s *NoteStore) CreateSubject(ctx context.Context, subject domain.Subject) error {
	if _, err := s.db.ExecContext(ctx, "INSERT INTO subjects (id, name) VALUES (?, ?)", subject.ID, subject.Name); err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *NoteStore) GetSubject(ctx context.Context, id string) (domain.Subject, error) {
	var subject domain.Subject
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM subjects WHERE id = ?", id).Scan(&subject.ID, &subject.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	if err != nil {
		return domain.Subject{}, fmt.Errorf("select subject: %w", err)
	}
	return subject, nil
}

func (s *NoteStore) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM subjects ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]domain.Subject, 0)
	for rows.Next() {
		var subject domain.Subject
		if err := rows.Scan(&subject.ID, &subject.Name); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func (s *NoteStore) DeleteSubject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subjects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireAffected(res, domain.ErrSubjectNotFound)
}

func (s *NoteStore) CreateNote(ctx context.Context, note domain.Note) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, subject_id, name, content, updated_at) VALUES (?, ?, ?, ?, ?)",
		note.ID, note.SubjectID, note.Name, note.Content, note.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *NoteStore) UpdateNote(ctx context.Context, note domain.Note) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET name = ?, content = ?, updated_at = ? WHERE id = ?",
		note.Name, note.Content, note.UpdatedAt.UnixNano(), note.ID)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return requireAffected(res, domain.ErrNoteNotFound)
}

func (s *NoteStore) GetNote(ctx context.Context, id string) (domain.Note, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, subject_id, name, content, updated_at FROM notes WHERE id = ?", id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Note{}, domain.ErrNoteNotFound
	}
	if err != nil {
		return domain.Note{}, fmt.Errorf("select note: %w", err)
	}
	return note, nil
}

func (s *NoteStore) ListNotes(ctx context.Context, subjectID string) ([]domain.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, subject_id, name, content, updated_at FROM notes WHERE subject_id = ? ORDER BY updated_at, id",
		subjectID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (s *NoteStore) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireAffected(res, domain.ErrNoteNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (domain.Note, error) {
	var (
		note    domain.Note
		updated int64
	)
	if err := row.Scan(&note.ID, &note.SubjectID, &note.Name, &note.Content, &updated); err != nil {
		return domain.Note{}, err
	}
	note.UpdatedAt = time.Unix(0, updated).UTC()
	return note, nil
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
