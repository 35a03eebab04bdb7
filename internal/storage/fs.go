package storage

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Key names map directly to file names, so restrict them to a safe
// charset instead of resolving paths.
var keyRe = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// FS implements Provider with one <key>.json file per key under root.
type FS struct {
	root string

	mu      sync.Mutex
	written map[string][sha256.Size]byte
}

// NewFS creates an FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, written: make(map[string][sha256.Size]byte)}, nil
}

func (f *FS) keyPath(key string) (string, error) {
	if !keyRe.MatchString(key) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(f.root, key+".json"), nil
}

// Get returns the stored value for key.
func (f *FS) Get(key string) ([]byte, error) {
	p, err := f.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Put atomically overwrites the value by writing a synced temp file and
// renaming it over the target.
func (f *FS) Put(key string, value []byte) error {
	p, err := f.keyPath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".notebot-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true

	f.mu.Lock()
	f.written[key] = sha256.Sum256(value)
	f.mu.Unlock()
	return nil
}

// EchoesLastWrite reports whether the on-disk value for key matches the
// value this process wrote last. The watcher uses it to tell its own
// persists apart from external edits.
func (f *FS) EchoesLastWrite(key string) bool {
	f.mu.Lock()
	want, ok := f.written[key]
	f.mu.Unlock()
	if !ok {
		return false
	}
	data, err := f.Get(key)
	if err != nil {
		return false
	}
	return sha256.Sum256(data) == want
}

// Close is a no-op for the file backend.
func (f *FS) Close() error { return nil }

// Root returns the absolute store directory, used by the watcher.
func (f *FS) Root() string { return f.root }
