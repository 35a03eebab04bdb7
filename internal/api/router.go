package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/notebot/internal/chat"
	"github.com/starford/notebot/internal/notebook"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// The chat proxy stays outside the auth group; it carries its own
// cross-origin contract and never requires the local token.
func NewRouter(nb *notebook.Notebook, upstream *chat.Client, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(nb)

	r := chi.NewRouter()

	r.Mount("/chat", NewChatProxy(upstream))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Active notes.
		r.Get("/notes", h.ListNotes)
		r.Post("/notes", h.CreateNote)
		r.Get("/notes/current", h.GetCurrent)
		r.Put("/notes/current", h.UpdateCurrent)
		r.Post("/notes/current/pin", h.TogglePin)
		r.Get("/notes/current/export", h.ExportCurrent)
		r.Post("/notes/current/archive", h.RequestArchive)
		r.Post("/notes/current/delete", h.RequestDelete)
		r.Post("/notes/{id}/select", h.SelectNote)

		// Archive.
		r.Get("/archive", h.ListArchived)
		r.Post("/archive/{id}/restore", h.RequestRestore)
		r.Post("/archive/{id}/delete", h.RequestDeleteArchived)

		// Staged destructive actions.
		r.Get("/pending", h.GetPending)
		r.Post("/pending/confirm", h.ConfirmPending)
		r.Post("/pending/cancel", h.CancelPending)

		// Chat session.
		r.Get("/session", h.GetSession)
		r.Post("/session/messages", h.SendMessage)
		r.Post("/session/new", h.NewSession)
		r.Post("/session/save", h.SaveSession)

		// Settings.
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// SSE endpoint (protected by same auth middleware).
		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
