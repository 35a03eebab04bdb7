package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_ExternalEditReported(t *testing.T) {
	fs := tempStore(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var keys []string

	go func() {
		_ = Watch(ctx, fs, logger, func(key string) {
			mu.Lock()
			keys = append(keys, key)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(fs.Root(), "notes.json"), []byte(`[]`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, k := range keys {
			if k == "notes" {
				return true
			}
		}
		return false
	}, "expected notes callback for external edit")
}

func TestWatcher_OwnPutIgnored(t *testing.T) {
	fs := tempStore(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var keys []string

	go func() {
		_ = Watch(ctx, fs, logger, func(key string) {
			mu.Lock()
			keys = append(keys, key)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)

	if err := fs.Put("theme", []byte(`"dark"`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Past the debounce window plus slack, the self-write must not have
	// surfaced.
	time.Sleep(700 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 0 {
		t.Errorf("own Put reported as external change: %v", keys)
	}
}
