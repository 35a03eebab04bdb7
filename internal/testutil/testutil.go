// Package testutil provides shared test helpers for setting up stores
// and notebooks.
package testutil

import (
	"testing"

	"github.com/starford/notebot/internal/notebook"
	"github.com/starford/notebot/internal/storage"
)

// TestStore creates a temporary file-backed store that is automatically
// cleaned up.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestNotebook creates a notebook over a temporary store. It carries
// the seeded welcome note.
func TestNotebook(t *testing.T, opts ...notebook.Option) *notebook.Notebook {
	t.Helper()
	nb, err := notebook.New(TestStore(t), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return nb
}
