// Package chat provides the assistant responders: a local simulated
// responder and a client for an OpenAI-compatible chat-completion API.
package chat

import (
	"context"
	"strings"

	"github.com/starford/notebot/internal/models"
)

// Message is the wire shape forwarded upstream. Only role and content
// ever leave the process.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Responder produces an assistant reply for a chat history. The last
// entry of history is the user message being answered.
type Responder interface {
	Reply(ctx context.Context, history []models.ChatMessage) (string, error)
}

// Sanitize reduces a message history to {role, content} pairs. Entries
// whose role or content is empty or not a known role are dropped; all
// well-formed entries survive in order.
func Sanitize(history []models.ChatMessage) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if !models.ValidRole(m.Role) || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// WireMessage is one undecoded entry of a proxy request. Role and
// content stay untyped so a malformed entry (numeric content, missing
// role) decodes without failing the whole request and can be dropped
// individually.
type WireMessage struct {
	Role    any `json:"role"`
	Content any `json:"content"`
}

// SanitizeWire applies the same policy to raw wire entries: an entry
// survives only when both role and content are non-empty strings and
// the role is known. Well-formed entries keep their order.
func SanitizeWire(in []WireMessage) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		role, ok := m.Role.(string)
		if !ok || !models.ValidRole(role) {
			continue
		}
		content, ok := m.Content.(string)
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}
