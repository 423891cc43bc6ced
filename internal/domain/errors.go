package domain

import "errors"

var (
	// ErrInvalidState is returned when an operation is not allowed in the current quiz state.
	ErrInvalidState = errors.New("invalid quiz state")
	// ErrSessionNotFound is returned when a quiz session has not been started or was closed.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when a session is used after teardown.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrSubjectNotFound indicates the subject does not exist.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrNoteNotFound indicates the note does not exist.
	ErrNoteNotFound = errors.New("note not found")
	// ErrOptionNotFound indicates a selected option is not offered by the current question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidQuestion indicates malformed question content.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrEmptyName is returned when a subject is created without a name.
	ErrEmptyName = errors.New("name must not be empty")
)
