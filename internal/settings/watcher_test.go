package settings

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/kv"
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

func TestWatchAppliesConfigChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(kv.BackendDurable+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := New(kv.NewMemory(), kv.BackendDurable)
	if err != nil {
		t.Fatal(err)
	}

	// load reads the backend name straight from the file; the real
	// caller parses the full YAML config instead.
	load := func() (string, error) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var applied []string
	go func() {
		_ = Watch(ctx, st, configPath, load, logger, func(backend string) {
			mu.Lock()
			applied = append(applied, backend)
			mu.Unlock()
		})
	}()

	// Give the watcher time to install.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configPath, []byte(kv.BackendSession+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 3*time.Second, 50*time.Millisecond, func() bool {
		return st.Backend() == kv.BackendSession
	}, "backend switch not applied from config change")

	eventually(t, time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 1 && applied[0] == kv.BackendSession
	}, "callback not invoked for applied change")
}

func TestWatchIgnoresNoopRewrite(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(kv.BackendDurable), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := New(kv.NewMemory(), kv.BackendDurable)
	if err != nil {
		t.Fatal(err)
	}
	load := func() (string, error) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	go func() {
		_ = Watch(ctx, st, configPath, load, logger, func(string) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// Rewriting the same preference must not fire the callback.
	if err := os.WriteFile(configPath, []byte(kv.BackendDurable), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("callback fired %d times for a no-op rewrite", calls)
	}
}
