// Package notebook implements the authoritative application state: the
// active and archived note collections, the chat session, and the user
// settings.
//
// Concurrency model: one mutex guards all state. Every mutating
// operation persists the full state to the durable store before
// returning (last writer wins, no partial writes) and then fires the
// notify hook. The hook must not call back into the notebook; the SSE
// broker's non-blocking publish satisfies this. The only suspension
// point is an
// in-flight chat send, which is serialized: a second send while one is
// pending is rejected.
package notebook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/notebot/internal/apperr"
	"github.com/starford/notebot/internal/chat"
	"github.com/starford/notebot/internal/models"
	"github.com/starford/notebot/internal/storage"
)

// Storage keys. Each is an independent entry holding a complete value.
const (
	KeyNotes    = "notes"
	KeyArchived = "archived"
	KeyTheme    = "theme"
	KeyAIMode   = "ai_mode"
)

// Event kinds published through the notify hook.
const (
	EventNoteChanged     = "note.changed"
	EventArchiveChanged  = "archive.changed"
	EventChatChanged     = "chat.changed"
	EventSettingsChanged = "settings.changed"
)

// Event describes a state change for render-layer collaborators.
type Event struct {
	Kind   string `json:"kind"`
	NoteID string `json:"noteId,omitempty"`
}

// NotifyFunc receives events after a state mutation has been committed.
type NotifyFunc func(Event)

// Notebook owns the in-memory state and its durable mirror.
type Notebook struct {
	store  storage.Provider
	logger *slog.Logger

	now   func() time.Time
	newID func() string

	mu         sync.Mutex
	notes      []models.Note
	archived   []models.Note
	chat       []models.ChatMessage
	settings   models.Settings
	currentID  string
	pending    *PendingAction
	sending    bool
	notify     NotifyFunc
	responders map[string]chat.Responder
}

// Option configures a Notebook.
type Option func(*Notebook)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(nb *Notebook) { nb.now = now }
}

// WithIDFunc injects the note ID generator.
func WithIDFunc(fn func() string) Option {
	return func(nb *Notebook) { nb.newID = fn }
}

// WithNotify sets the event hook.
func WithNotify(fn NotifyFunc) Option {
	return func(nb *Notebook) { nb.notify = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(nb *Notebook) { nb.logger = l }
}

// New loads state from the store and returns a ready notebook. When
// both collections are empty a welcome note is seeded, matching a first
// run.
func New(store storage.Provider, opts ...Option) (*Notebook, error) {
	nb := &Notebook{
		store:      store,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
		responders: make(map[string]chat.Responder),
	}
	for _, opt := range opts {
		opt(nb)
	}

	if err := nb.load(); err != nil {
		return nil, err
	}

	if len(nb.notes) == 0 && len(nb.archived) == 0 {
		nb.seedWelcomeNote()
		if err := nb.persist(); err != nil {
			return nil, err
		}
	}
	if nb.currentID == "" && len(nb.notes) > 0 {
		nb.currentID = nb.notes[0].ID
	}
	return nb, nil
}

// SetResponder registers the responder for an AI mode.
func (nb *Notebook) SetResponder(mode string, r chat.Responder) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.responders[mode] = r
}

// load reads the four storage keys and coerces them into strict shapes.
// Malformed values are dropped, not trusted.
func (nb *Notebook) load() error {
	nb.notes = nb.loadNotes(KeyNotes)
	nb.archived = nb.loadNotes(KeyArchived)

	// Enforce ID uniqueness across the union; first occurrence wins.
	seen := make(map[string]struct{}, len(nb.notes)+len(nb.archived))
	nb.notes = dedupe(nb.notes, seen)
	nb.archived = dedupe(nb.archived, seen)

	nb.settings = models.Settings{
		Theme:  nb.loadString(KeyTheme),
		AIMode: nb.loadString(KeyAIMode),
	}
	nb.settings.Normalize()
	return nil
}

func (nb *Notebook) loadNotes(key string) []models.Note {
	raw, err := nb.store.Get(key)
	if err != nil {
		if err != storage.ErrKeyNotFound {
			nb.logger.Warn("load failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return []models.Note{}
	}
	var all []models.Note
	if err := json.Unmarshal(raw, &all); err != nil {
		nb.logger.Warn("malformed stored value, starting empty",
			slog.String("key", key), slog.String("error", err.Error()))
		return []models.Note{}
	}
	out := make([]models.Note, 0, len(all))
	for i := range all {
		if !all[i].Valid() {
			nb.logger.Warn("dropping malformed note", slog.String("key", key))
			continue
		}
		all[i].Normalize()
		out = append(out, all[i])
	}
	return out
}

func (nb *Notebook) loadString(key string) string {
	raw, err := nb.store.Get(key)
	if err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func dedupe(notes []models.Note, seen map[string]struct{}) []models.Note {
	out := notes[:0]
	for _, n := range notes {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (nb *Notebook) seedWelcomeNote() {
	now := nb.now()
	nb.notes = []models.Note{{
		ID:    nb.newID(),
		Title: "Welcome to Notebot",
		Content: "# Welcome\n\nThis is your notebook.\n\n## Try:\n" +
			"- Create a note\n- Write markdown\n- Pin / archive\n- Send a note to the chatbot",
		Tags:      []string{"welcome", "demo"},
		Pinned:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	nb.currentID = nb.notes[0].ID
}

// persist mirrors the full state to the store. Must be called with the
// lock held. Chat is deliberately not persisted.
func (nb *Notebook) persist() error {
	notesJSON, err := json.Marshal(nb.notes)
	if err != nil {
		return fmt.Errorf("notebook: encode notes: %w", err)
	}
	archivedJSON, err := json.Marshal(nb.archived)
	if err != nil {
		return fmt.Errorf("notebook: encode archived: %w", err)
	}
	themeJSON, _ := json.Marshal(nb.settings.Theme)
	modeJSON, _ := json.Marshal(nb.settings.AIMode)

	if err := nb.store.Put(KeyNotes, notesJSON); err != nil {
		return err
	}
	if err := nb.store.Put(KeyArchived, archivedJSON); err != nil {
		return err
	}
	if err := nb.store.Put(KeyTheme, themeJSON); err != nil {
		return err
	}
	return nb.store.Put(KeyAIMode, modeJSON)
}

func (nb *Notebook) emit(events ...Event) {
	if nb.notify == nil {
		return
	}
	for _, ev := range events {
		nb.notify(ev)
	}
}

// touch advances a note's UpdatedAt, keeping it strictly increasing
// even under a coarse clock.
func (nb *Notebook) touch(n *models.Note) {
	t := nb.now()
	if !t.After(n.UpdatedAt) {
		t = n.UpdatedAt.Add(time.Nanosecond)
	}
	n.UpdatedAt = t
}

func (nb *Notebook) findNote(id string) int {
	for i := range nb.notes {
		if nb.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (nb *Notebook) findArchived(id string) int {
	for i := range nb.archived {
		if nb.archived[i].ID == id {
			return i
		}
	}
	return -1
}

// Create inserts a new note at the front of the active list and makes
// it current. Ordering is maintained by insertion; sorting happens only
// in List.
func (nb *Notebook) Create(title, content string, tags []string) (models.Note, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	n, err := nb.createLocked(title, content, tags)
	if err != nil {
		return models.Note{}, err
	}
	defer nb.emit(Event{Kind: EventNoteChanged, NoteID: n.ID})
	return n, nil
}

func (nb *Notebook) createLocked(title, content string, tags []string) (models.Note, error) {
	if title == "" {
		title = "New Note"
	}
	if tags == nil {
		tags = []string{}
	}
	now := nb.now()
	n := models.Note{
		ID:        nb.newID(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	nb.notes = append([]models.Note{n}, nb.notes...)
	nb.currentID = n.ID
	if err := nb.persist(); err != nil {
		return models.Note{}, err
	}
	return n.Clone(), nil
}

// Select makes the note with the given id current. Archived notes
// cannot be selected.
func (nb *Notebook) Select(id string) error {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if nb.findNote(id) < 0 {
		return apperr.ErrNotFound
	}
	nb.currentID = id
	return nil
}

// Current returns the selected note.
func (nb *Notebook) Current() (models.Note, bool) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if idx := nb.findNote(nb.currentID); idx >= 0 {
		return nb.notes[idx].Clone(), true
	}
	return models.Note{}, false
}

// Patch is a partial note update. Nil fields are left unchanged.
type Patch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// Update merges a patch into the current note and refreshes UpdatedAt.
func (nb *Notebook) Update(p Patch) (models.Note, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	idx := nb.findNote(nb.currentID)
	if idx < 0 {
		return models.Note{}, apperr.ErrNoSelection
	}
	n := &nb.notes[idx]
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = append([]string(nil), (*p.Tags)...)
	}
	nb.touch(n)
	if err := nb.persist(); err != nil {
		return models.Note{}, err
	}
	defer nb.emit(Event{Kind: EventNoteChanged, NoteID: n.ID})
	return n.Clone(), nil
}

// TogglePin flips the pin flag on the current note.
func (nb *Notebook) TogglePin() (models.Note, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	idx := nb.findNote(nb.currentID)
	if idx < 0 {
		return models.Note{}, apperr.ErrNoSelection
	}
	n := &nb.notes[idx]
	n.Pinned = !n.Pinned
	nb.touch(n)
	if err := nb.persist(); err != nil {
		return models.Note{}, err
	}
	defer nb.emit(Event{Kind: EventNoteChanged, NoteID: n.ID})
	return n.Clone(), nil
}

// List returns the active notes filtered by a case-insensitive
// substring match and sorted pinned-first, then by UpdatedAt descending.
// The sort is computed per call; storage order is never mutated.
func (nb *Notebook) List(filter string) []models.Note {
	nb.mu.Lock()
	defer nb.mu.Unlock()

	out := make([]models.Note, 0, len(nb.notes))
	for i := range nb.notes {
		if nb.notes[i].MatchesFilter(filter) {
			out = append(out, nb.notes[i].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Archived returns the archived notes in storage order.
func (nb *Notebook) Archived() []models.Note {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	out := make([]models.Note, 0, len(nb.archived))
	for i := range nb.archived {
		out = append(out, nb.archived[i].Clone())
	}
	return out
}

// Settings returns the current settings.
func (nb *Notebook) Settings() models.Settings {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	return nb.settings
}

// SetTheme updates and persists the theme.
func (nb *Notebook) SetTheme(theme string) error {
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return fmt.Errorf("notebook: unknown theme %q", theme)
	}
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.settings.Theme = theme
	if err := nb.persist(); err != nil {
		return err
	}
	defer nb.emit(Event{Kind: EventSettingsChanged})
	return nil
}

// SetAIMode updates and persists the AI mode.
func (nb *Notebook) SetAIMode(mode string) error {
	if mode != models.AIModeSimulated && mode != models.AIModeServerless {
		return fmt.Errorf("notebook: unknown AI mode %q", mode)
	}
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.settings.AIMode = mode
	if err := nb.persist(); err != nil {
		return err
	}
	defer nb.emit(Event{Kind: EventSettingsChanged})
	return nil
}

// Reload re-reads the persisted keys, keeping the ephemeral chat
// session. Used when the store changed outside this process.
func (nb *Notebook) Reload() error {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if err := nb.load(); err != nil {
		return err
	}
	if nb.findNote(nb.currentID) < 0 {
		nb.currentID = ""
		if len(nb.notes) > 0 {
			nb.currentID = nb.notes[0].ID
		}
	}
	return nil
}
