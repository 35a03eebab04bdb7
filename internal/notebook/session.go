package notebook

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/notebot/internal/apperr"
	"github.com/starford/notebot/internal/models"
)

// History returns a copy of the session log.
func (nb *Notebook) History() []models.ChatMessage {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	return append([]models.ChatMessage(nil), nb.chat...)
}

// NewSession clears the session log. The log is ephemeral and never
// persisted.
func (nb *Notebook) NewSession() {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.chat = nil
	defer nb.emit(Event{Kind: EventChatChanged})
}

// Send appends the user message, dispatches to the responder selected
// by the AI mode, and appends the assistant reply. On responder failure
// the reply is a formatted error message and the error is returned so
// callers can surface a notification; the user message is never rolled
// back. At most one send is in flight; a concurrent send gets
// ErrChatBusy without touching the log.
func (nb *Notebook) Send(ctx context.Context, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, apperr.ErrEmptyMessage
	}

	nb.mu.Lock()
	if nb.sending {
		nb.mu.Unlock()
		return models.ChatMessage{}, apperr.ErrChatBusy
	}
	nb.sending = true
	nb.chat = append(nb.chat, models.ChatMessage{
		Role:    models.RoleUser,
		Content: text,
		TS:      nb.now(),
	})
	history := append([]models.ChatMessage(nil), nb.chat...)
	responder := nb.responders[nb.settings.AIMode]
	nb.mu.Unlock()
	nb.emit(Event{Kind: EventChatChanged})

	var reply string
	var err error
	if responder == nil {
		err = fmt.Errorf("notebook: no responder for mode %q", nb.Settings().AIMode)
	} else {
		reply, err = responder.Reply(ctx, history)
	}
	if err != nil {
		reply = fmt.Sprintf("Error: %s", err)
	}

	nb.mu.Lock()
	nb.sending = false
	msg := models.ChatMessage{
		Role:    models.RoleAssistant,
		Content: reply,
		TS:      nb.now(),
	}
	nb.chat = append(nb.chat, msg)
	nb.mu.Unlock()
	nb.emit(Event{Kind: EventChatChanged})

	return msg, err
}

// SaveTranscript materializes the session log into a new note (a copy;
// the session itself is untouched).
func (nb *Notebook) SaveTranscript() (models.Note, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if len(nb.chat) == 0 {
		return models.Note{}, apperr.ErrEmptySession
	}

	lines := make([]string, 0, len(nb.chat))
	for _, m := range nb.chat {
		speaker := "AI"
		if m.Role == models.RoleUser {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s:\n%s", speaker, m.Content))
	}
	title := fmt.Sprintf("Chat %s", nb.now().Format("2006-01-02 15:04"))

	n, err := nb.createLocked(title, strings.Join(lines, "\n\n"), []string{"chat"})
	if err != nil {
		return models.Note{}, err
	}
	defer nb.emit(Event{Kind: EventNoteChanged, NoteID: n.ID})
	return n, nil
}
