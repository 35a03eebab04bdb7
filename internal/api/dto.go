package api

import (
	"github.com/starford/notebot/internal/chat"
	"github.com/starford/notebot/internal/models"
	"github.com/starford/notebot/internal/notebook"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string   `json:"title" example:"Shopping"`
	Content string   `json:"content" example:"# Groceries\n- milk"`
	Tags    []string `json:"tags" example:"home,errands"`
}

// UpdateNoteRequest is a partial update of the current note. Absent
// fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// NoteSummary is a note with its rendered list preview.
type NoteSummary struct {
	models.Note
	Preview string `json:"preview"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteSummary `json:"notes" validate:"required"`
	Total int           `json:"total" example:"3" validate:"required"`
}

// PendingResponse describes a staged action awaiting confirmation.
type PendingResponse = notebook.PendingAction

// SessionResponse wraps the chat session log.
type SessionResponse struct {
	Messages []models.ChatMessage `json:"messages" validate:"required"`
}

// SendMessageRequest is the request body for a chat send.
type SendMessageRequest struct {
	Message string `json:"message" example:"summarize my notes" validate:"required"`
}

// SendMessageResponse carries the assistant reply. Failed is set when
// the responder errored; the reply then holds the error text.
type SendMessageResponse struct {
	Message models.ChatMessage `json:"message" validate:"required"`
	Failed  bool               `json:"failed"`
}

// SettingsRequest is a partial settings update.
type SettingsRequest struct {
	Theme  *string `json:"theme" example:"dark"`
	AIMode *string `json:"aiMode" example:"simulated"`
}

// ChatProxyRequest is the serverless-compatible completion request.
// Message entries decode loosely: extra fields are ignored, malformed
// entries are dropped during sanitization, and only role and content
// are ever forwarded upstream.
type ChatProxyRequest struct {
	Model    string             `json:"model"`
	Messages []chat.WireMessage `json:"messages"`
}

// ChatProxyResponse is the serverless-compatible completion response.
type ChatProxyResponse struct {
	Content string `json:"content" validate:"required"`
}
