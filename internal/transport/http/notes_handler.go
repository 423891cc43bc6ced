package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"studymaster-service/internal/app"
	"studymaster-service/internal/domain"
)

// NotesHandler exposes subject and note management as a JSON API.
type NotesHandler struct {
	service *app.NoteService
}

func NewNotesHandler(service *app.NoteService) *NotesHandler {
	return &NotesHandler{service: service}
}

// Register mounts the notes routes on mux.
func (h *NotesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /subjects", h.listSubjects)
	mux.HandleFunc("POST /subjects", h.createSubject)
	mux.HandleFunc("DELETE /subjects/{id}", h.deleteSubject)
	mux.HandleFunc("GET /subjects/{id}/notes", h.listNotes)
	mux.HandleFunc("POST /subjects/{id}/notes", h.createNote)
	mux.HandleFunc("GET /notes/{id}", h.getNote)
	mux.HandleFunc("PUT /notes/{id}", h.updateNote)
	mux.HandleFunc("DELETE /notes/{id}", h.deleteNote)
	mux.HandleFunc("POST /notes/{id}/close", h.finishEditing)
}

type subjectRequest struct {
	Name string `json:"name"`
}

type noteRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (h *NotesHandler) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.ListSubjects(r.Context())
	respond(w, http.StatusOK, subjects, err)
}

func (h *NotesHandler) createSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid subject payload", http.StatusBadRequest)
		return
	}
	subject, err := h.service.CreateSubject(r.Context(), req.Name)
	respond(w, http.StatusCreated, subject, err)
}

func (h *NotesHandler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteSubject(r.Context(), r.PathValue("id"))
	respond(w, http.StatusNoContent, nil, err)
}

func (h *NotesHandler) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.ListNotes(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, notes, err)
}

func (h *NotesHandler) createNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.CreateNote(r.Context(), r.PathValue("id"))
	respond(w, http.StatusCreated, note, err)
}

func (h *NotesHandler) getNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.GetNote(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, note, err)
}

func (h *NotesHandler) updateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid note payload", http.StatusBadRequest)
		return
	}
	note, err := h.service.UpdateNote(r.Context(), r.PathValue("id"), req.Name, req.Content)
	respond(w, http.StatusOK, note, err)
}

func (h *NotesHandler) deleteNote(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteNote(r.Context(), r.PathValue("id"))
	respond(w, http.StatusNoContent, nil, err)
}

func (h *NotesHandler) finishEditing(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.FinishEditing(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, note, err)
}

func respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			log.Printf("notes api error: %v", err)
		}
		http.Error(w, err.Error(), code)
		return
	}
	if body == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound), errors.Is(err, domain.ErrNoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
