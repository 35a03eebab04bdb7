// Package storage defines the durable key-value store abstraction.
//
// The notebook persists its full state as independent keyed entries
// (notes, archived, theme, ai_mode). Every Put is a complete overwrite
// of the value for that key: last writer wins, no partial writes.
package storage

import "errors"

// ErrKeyNotFound is returned by Get when the key has never been written.
var ErrKeyNotFound = errors.New("storage: key not found")

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Provider is the interface for durable state persistence.
type Provider interface {
	// Get returns the stored value for key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Put atomically overwrites the value for key.
	Put(key string, value []byte) error
	// Close releases any underlying resources.
	Close() error
}
