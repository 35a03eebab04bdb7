package notebook

import (
	"github.com/starford/notebot/internal/apperr"
	"github.com/starford/notebot/internal/models"
)

// Commands that require confirmation before executing.
const (
	CommandArchive        = "archive"
	CommandDelete         = "delete"
	CommandRestore        = "restore"
	CommandDeleteArchived = "delete_archived"
)

// PendingAction is a staged destructive command. It is a plain
// descriptor, not a stored closure: Confirm re-resolves the note by ID
// and executes the tagged command.
type PendingAction struct {
	Command string `json:"command"`
	NoteID  string `json:"noteId"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// stage replaces any previously pending action; at most one exists at a
// time.
func (nb *Notebook) stage(p PendingAction) PendingAction {
	nb.pending = &p
	return p
}

// RequestArchive stages archiving of the current note.
func (nb *Notebook) RequestArchive() (PendingAction, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	idx := nb.findNote(nb.currentID)
	if idx < 0 {
		return PendingAction{}, apperr.ErrNoSelection
	}
	return nb.stage(PendingAction{
		Command: CommandArchive,
		NoteID:  nb.notes[idx].ID,
		Title:   "Archive Note",
		Message: "Archive this note? You can restore it later.",
	}), nil
}

// RequestDelete stages permanent deletion of the current note.
func (nb *Notebook) RequestDelete() (PendingAction, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	idx := nb.findNote(nb.currentID)
	if idx < 0 {
		return PendingAction{}, apperr.ErrNoSelection
	}
	return nb.stage(PendingAction{
		Command: CommandDelete,
		NoteID:  nb.notes[idx].ID,
		Title:   "Delete Note",
		Message: "Delete permanently? This cannot be undone.",
	}), nil
}

// RequestRestore stages moving an archived note back to the active
// list.
func (nb *Notebook) RequestRestore(id string) (PendingAction, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if nb.findArchived(id) < 0 {
		return PendingAction{}, apperr.ErrNotFound
	}
	return nb.stage(PendingAction{
		Command: CommandRestore,
		NoteID:  id,
		Title:   "Restore Note",
		Message: "Restore to active notes?",
	}), nil
}

// RequestDeleteArchived stages permanent deletion of an archived note.
func (nb *Notebook) RequestDeleteArchived(id string) (PendingAction, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if nb.findArchived(id) < 0 {
		return PendingAction{}, apperr.ErrNotFound
	}
	return nb.stage(PendingAction{
		Command: CommandDeleteArchived,
		NoteID:  id,
		Title:   "Delete Archived Note",
		Message: "Delete permanently? This cannot be undone.",
	}), nil
}

// Pending returns the currently staged action, if any.
func (nb *Notebook) Pending() (PendingAction, bool) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if nb.pending == nil {
		return PendingAction{}, false
	}
	return *nb.pending, true
}

// Cancel discards the staged action. Cancelling when nothing is staged
// is a no-op.
func (nb *Notebook) Cancel() {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.pending = nil
}

// Confirm executes and clears the staged action.
func (nb *Notebook) Confirm() (PendingAction, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if nb.pending == nil {
		return PendingAction{}, apperr.ErrNoPending
	}
	p := *nb.pending
	nb.pending = nil

	var events []Event
	var err error
	switch p.Command {
	case CommandArchive:
		events, err = nb.executeArchive(p.NoteID)
	case CommandDelete:
		events, err = nb.executeDelete(p.NoteID)
	case CommandRestore:
		events, err = nb.executeRestore(p.NoteID)
	case CommandDeleteArchived:
		events, err = nb.executeDeleteArchived(p.NoteID)
	default:
		return PendingAction{}, apperr.ErrNoPending
	}
	if err != nil {
		return PendingAction{}, err
	}
	if err := nb.persist(); err != nil {
		return PendingAction{}, err
	}
	defer nb.emit(events...)
	return p, nil
}

// executeArchive transfers the note to the front of the archive,
// clearing its pin. If the active list empties, a blank note is
// created; otherwise the new first note becomes current.
func (nb *Notebook) executeArchive(id string) ([]Event, error) {
	idx := nb.findNote(id)
	if idx < 0 {
		return nil, apperr.ErrNotFound
	}
	n := nb.notes[idx]
	n.Pinned = false
	nb.touch(&n)
	nb.notes = append(nb.notes[:idx], nb.notes[idx+1:]...)
	nb.archived = append([]models.Note{n}, nb.archived...)
	nb.afterActiveRemoval()
	return []Event{
		{Kind: EventNoteChanged, NoteID: id},
		{Kind: EventArchiveChanged, NoteID: id},
	}, nil
}

func (nb *Notebook) executeDelete(id string) ([]Event, error) {
	idx := nb.findNote(id)
	if idx < 0 {
		return nil, apperr.ErrNotFound
	}
	nb.notes = append(nb.notes[:idx], nb.notes[idx+1:]...)
	nb.afterActiveRemoval()
	return []Event{{Kind: EventNoteChanged, NoteID: id}}, nil
}

// executeRestore transfers the note back to the front of the active
// list and makes it current.
func (nb *Notebook) executeRestore(id string) ([]Event, error) {
	idx := nb.findArchived(id)
	if idx < 0 {
		return nil, apperr.ErrNotFound
	}
	n := nb.archived[idx]
	nb.touch(&n)
	nb.archived = append(nb.archived[:idx], nb.archived[idx+1:]...)
	nb.notes = append([]models.Note{n}, nb.notes...)
	nb.currentID = n.ID
	return []Event{
		{Kind: EventNoteChanged, NoteID: id},
		{Kind: EventArchiveChanged, NoteID: id},
	}, nil
}

func (nb *Notebook) executeDeleteArchived(id string) ([]Event, error) {
	idx := nb.findArchived(id)
	if idx < 0 {
		return nil, apperr.ErrNotFound
	}
	nb.archived = append(nb.archived[:idx], nb.archived[idx+1:]...)
	return []Event{{Kind: EventArchiveChanged, NoteID: id}}, nil
}

// afterActiveRemoval re-establishes the current selection after a note
// leaves the active list: the first remaining note, or a fresh blank
// note when the list emptied.
func (nb *Notebook) afterActiveRemoval() {
	if len(nb.notes) > 0 {
		nb.currentID = nb.notes[0].ID
		return
	}
	now := nb.now()
	blank := models.Note{
		ID:        nb.newID(),
		Title:     "New Note",
		Content:   "",
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	nb.notes = []models.Note{blank}
	nb.currentID = blank.ID
}
