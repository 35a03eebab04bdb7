// Package models defines the domain types for Notebot.
package models

import (
	"strings"
	"time"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// AI modes.
const (
	AIModeSimulated  = "simulated"
	AIModeServerless = "serverless"
)

// Note is a user document. A note lives in exactly one of the active or
// archived collections at a time.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Valid reports whether a note read back from storage is usable.
// Malformed entries are dropped at the ingestion boundary instead of
// being trusted at use sites.
func (n *Note) Valid() bool {
	return n != nil && n.ID != ""
}

// Normalize repairs optional fields after a storage read.
func (n *Note) Normalize() {
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = n.UpdatedAt
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
}

// Clone returns a deep copy so callers cannot mutate controller state.
func (n Note) Clone() Note {
	out := n
	out.Tags = append([]string(nil), n.Tags...)
	return out
}

// ChatMessage is one entry in the append-only session log. Messages are
// never mutated after creation.
type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// ValidRole reports whether role is one of the known chat roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Settings holds the persisted user preferences.
type Settings struct {
	Theme  string `json:"theme"`
	AIMode string `json:"aiMode"`
}

// Normalize coerces unknown stored values back to defaults.
func (s *Settings) Normalize() {
	if s.Theme != ThemeLight && s.Theme != ThemeDark {
		s.Theme = ThemeDark
	}
	if s.AIMode != AIModeSimulated && s.AIMode != AIModeServerless {
		s.AIMode = AIModeSimulated
	}
}

// MatchesFilter reports whether the note matches a case-insensitive
// substring search over title, content, or any tag.
func (n *Note) MatchesFilter(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Content), term) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}
