package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/avelichko/notesservice/internal/auth"
	"github.com/avelichko/notesservice/internal/cache"
	"github.com/avelichko/notesservice/internal/models"
	"github.com/avelichko/notesservice/internal/storage"
)

// NotesCache is the slice of the cache layer the notes handlers need.
type NotesCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte) error
	Invalidate(ctx context.Context, ownerID int) error
}

type noteCreate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type noteUpdate struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type noteOut struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func toNoteOut(n *models.Note) noteOut {
	return noteOut{ID: n.ID, Title: n.Title, Content: n.Content}
}

type NotesHandler struct {
	notes storage.NoteStore
	cache NotesCache
	log   zerolog.Logger
}

func NewNotesHandler(notes storage.NoteStore, notesCache NotesCache, log zerolog.Logger) *NotesHandler {
	return &NotesHandler{notes: notes, cache: notesCache, log: log}
}

// invalidate purges the owner's cached listings. Callers run it after a
// successful mutation and before writing the response, so no later read can
// serve a listing older than the mutation. Detached from the request
// context: a client disconnect after the DB write must not skip the purge.
func (h *NotesHandler) invalidate(ctx context.Context, ownerID int) {
	ctx = context.WithoutCancel(ctx)
	if err := h.cache.Invalidate(ctx, ownerID); err != nil {
		h.log.Warn().Err(err).Int("owner_id", ownerID).Msg("cache invalidation failed")
	}
}

func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var in noteCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" || in.Content == "" {
		writeDetail(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	note := &models.Note{OwnerID: user.ID, Title: in.Title, Content: in.Content}
	if err := h.notes.CreateNote(r.Context(), note); err != nil {
		h.log.Error().Err(err).Msg("failed to create note")
		writeDetail(w, http.StatusInternalServerError, "Failed to create note")
		return
	}

	h.invalidate(r.Context(), user.ID)
	writeJSON(w, http.StatusCreated, toNoteOut(note))
}

func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	query := r.URL.Query()

	skip := 0
	if v := query.Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	limit := 10
	if v := query.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			limit = n
		}
	}
	search := query.Get("search")

	key := cache.Key(user.ID, skip, limit, search)
	if payload, err := h.cache.Get(r.Context(), key); err == nil {
		writeRawJSON(w, http.StatusOK, payload)
		return
	} else if !errors.Is(err, cache.ErrMiss) {
		// Degrade to a direct store read; the request must not fail on a
		// cache outage.
		h.log.Warn().Err(err).Msg("cache read failed")
	}

	notes, err := h.notes.ListNotes(r.Context(), user.ID, skip, limit, search)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list notes")
		writeDetail(w, http.StatusInternalServerError, "Failed to list notes")
		return
	}

	out := make([]noteOut, 0, len(notes))
	for i := range notes {
		out = append(out, toNoteOut(&notes[i]))
	}

	payload, err := json.Marshal(out)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal notes")
		writeDetail(w, http.StatusInternalServerError, "Failed to list notes")
		return
	}

	if err := h.cache.Set(r.Context(), key, payload); err != nil {
		h.log.Warn().Err(err).Msg("cache write failed")
	}
	writeRawJSON(w, http.StatusOK, payload)
}

func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	noteID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid note id")
		return
	}

	note, err := h.notes.GetNote(r.Context(), user.ID, noteID)
	if err != nil {
		h.respondNoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteOut(note))
}

func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	noteID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid note id")
		return
	}

	var in noteUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.notes.UpdateNote(r.Context(), user.ID, noteID, in.Title, in.Content)
	if err != nil {
		h.respondNoteError(w, err)
		return
	}

	h.invalidate(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, toNoteOut(note))
}

func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	noteID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid note id")
		return
	}

	if err := h.notes.DeleteNote(r.Context(), user.ID, noteID); err != nil {
		h.respondNoteError(w, err)
		return
	}

	h.invalidate(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Note deleted"})
}

// respondNoteError maps storage errors; absent and foreign notes are both
// 404 so existence never leaks across owners.
func (h *NotesHandler) respondNoteError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}
	h.log.Error().Err(err).Msg("note operation failed")
	writeDetail(w, http.StatusInternalServerError, "Internal error")
}
