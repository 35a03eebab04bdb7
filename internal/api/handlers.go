package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/notebot/internal/apperr"
	"github.com/starford/notebot/internal/models"
	"github.com/starford/notebot/internal/notebook"
	"github.com/starford/notebot/internal/parser"
)

// Handler holds API route handlers.
type Handler struct {
	nb *notebook.Notebook
}

// NewHandler creates a new Handler.
func NewHandler(nb *notebook.Notebook) *Handler {
	return &Handler{nb: nb}
}

func summarize(notes []models.Note, budget int) []NoteSummary {
	out := make([]NoteSummary, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteSummary{Note: n, Preview: parser.Preview(n.Content, budget)})
	}
	return out
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List active notes, pinned first then most recent
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive substring filter"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes := summarize(h.nb.List(r.URL.Query().Get("q")), parser.ListPreviewBudget)
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note and make it current
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.nb.Create(req.Title, req.Content, parser.NormalizeTags(req.Tags))
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetCurrent handles GET /api/notes/current.
func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	note, ok := h.nb.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no note selected"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SelectNote handles POST /api/notes/{id}/select.
func (h *Handler) SelectNote(w http.ResponseWriter, r *http.Request) {
	if err := h.nb.Select(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCurrent handles PUT /api/notes/current.
//
//	@Summary		Merge a partial update into the current note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/current [put]
func (h *Handler) UpdateCurrent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	patch := notebook.Patch{Title: req.Title, Content: req.Content}
	if req.Tags != nil {
		tags := parser.NormalizeTags(*req.Tags)
		patch.Tags = &tags
	}
	note, err := h.nb.Update(patch)
	if err != nil {
		if errors.Is(err, apperr.ErrNoSelection) {
			writeJSON(w, http.StatusNotFound, errorBody("no note selected"))
			return
		}
		slog.Error("update note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// TogglePin handles POST /api/notes/current/pin.
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	note, err := h.nb.TogglePin()
	if err != nil {
		if errors.Is(err, apperr.ErrNoSelection) {
			writeJSON(w, http.StatusNotFound, errorBody("no note selected"))
			return
		}
		slog.Error("toggle pin failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ExportCurrent handles GET /api/notes/current/export. The note is
// served as a download named after its title; format=txt strips the
// Markdown punctuation, the default is raw Markdown.
func (h *Handler) ExportCurrent(w http.ResponseWriter, r *http.Request) {
	note, ok := h.nb.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no note selected"))
		return
	}
	body := note.Content
	contentType := "text/markdown; charset=utf-8"
	ext := ".md"
	if r.URL.Query().Get("format") == "txt" {
		body = parser.StripMarkdown(note.Content)
		contentType = "text/plain; charset=utf-8"
		ext = ".txt"
	}
	filename := parser.SafeFileName(note.Title) + ext
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// RequestArchive handles POST /api/notes/current/archive. The action is
// staged, not executed; 202 carries the confirmation prompt.
func (h *Handler) RequestArchive(w http.ResponseWriter, r *http.Request) {
	h.writePending(w, func() (notebook.PendingAction, error) { return h.nb.RequestArchive() })
}

// RequestDelete handles POST /api/notes/current/delete.
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	h.writePending(w, func() (notebook.PendingAction, error) { return h.nb.RequestDelete() })
}

// RequestRestore handles POST /api/archive/{id}/restore.
func (h *Handler) RequestRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.writePending(w, func() (notebook.PendingAction, error) { return h.nb.RequestRestore(id) })
}

// RequestDeleteArchived handles POST /api/archive/{id}/delete.
func (h *Handler) RequestDeleteArchived(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.writePending(w, func() (notebook.PendingAction, error) { return h.nb.RequestDeleteArchived(id) })
}

func (h *Handler) writePending(w http.ResponseWriter, stage func() (notebook.PendingAction, error)) {
	p, err := stage()
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNoSelection):
			writeJSON(w, http.StatusNotFound, errorBody("no note selected"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		default:
			slog.Error("stage action failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

// ListArchived handles GET /api/archive.
func (h *Handler) ListArchived(w http.ResponseWriter, r *http.Request) {
	notes := summarize(h.nb.Archived(), parser.ArchivePreviewBudget)
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetPending handles GET /api/pending.
func (h *Handler) GetPending(w http.ResponseWriter, r *http.Request) {
	p, ok := h.nb.Pending()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no pending action"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ConfirmPending handles POST /api/pending/confirm.
//
//	@Summary		Execute the staged action
//	@Tags			pending
//	@Produce		json
//	@Success		200	{object}	PendingResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pending/confirm [post]
func (h *Handler) ConfirmPending(w http.ResponseWriter, r *http.Request) {
	p, err := h.nb.Confirm()
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNoPending):
			writeJSON(w, http.StatusNotFound, errorBody("no pending action"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		default:
			slog.Error("confirm failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CancelPending handles POST /api/pending/cancel. Cancelling with
// nothing staged is a no-op.
func (h *Handler) CancelPending(w http.ResponseWriter, r *http.Request) {
	h.nb.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /api/session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionResponse{Messages: h.nb.History()})
}

// SendMessage handles POST /api/session/messages.
//
//	@Summary		Send a chat message and wait for the assistant reply
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SendMessageRequest	true	"Message to send"
//	@Success		200		{object}	SendMessageResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/messages [post]
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	reply, err := h.nb.Send(r.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrEmptyMessage):
			writeJSON(w, http.StatusBadRequest, errorBody("message is required"))
		case errors.Is(err, apperr.ErrChatBusy):
			writeJSON(w, http.StatusConflict, errorBody("a chat request is already in flight"))
		default:
			// The reply holds the error text and is already part of the
			// session; surface it with the failure flag set.
			writeJSON(w, http.StatusOK, SendMessageResponse{Message: reply, Failed: true})
		}
		return
	}
	writeJSON(w, http.StatusOK, SendMessageResponse{Message: reply})
}

// NewSession handles POST /api/session/new.
func (h *Handler) NewSession(w http.ResponseWriter, r *http.Request) {
	h.nb.NewSession()
	w.WriteHeader(http.StatusNoContent)
}

// SaveSession handles POST /api/session/save. The transcript becomes a
// new note tagged "chat"; the session itself is untouched.
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	note, err := h.nb.SaveTranscript()
	if err != nil {
		if errors.Is(err, apperr.ErrEmptySession) {
			writeJSON(w, http.StatusBadRequest, errorBody("chat session is empty"))
			return
		}
		slog.Error("save transcript failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.nb.Settings())
}

// UpdateSettings handles PUT /api/settings. Absent fields are left
// unchanged; unknown values are rejected.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Theme != nil {
		if err := h.nb.SetTheme(*req.Theme); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	if req.AIMode != nil {
		if err := h.nb.SetAIMode(*req.AIMode); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	writeJSON(w, http.StatusOK, h.nb.Settings())
}
