package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) (<-chan *Config, context.CancelFunc) {
	t.Helper()

	reloaded := make(chan *Config, 4)
	watcher := NewWatcher(path, func(cfg *Config) { reloaded <- cfg }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	// Let the watcher register with the filesystem before the test writes.
	time.Sleep(200 * time.Millisecond)

	return reloaded, cancel
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \":8080\"\n"), 0644))

	reloaded, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \":9090\"\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ":9090", cfg.Server.Listen)
		// The reload merges over defaults, so untouched fields survive.
		assert.Equal(t, "anthropic", cfg.Agents.Visual.Provider)
	case <-time.After(5 * time.Second):
		t.Fatal("config change never observed")
	}
}

// An invalid config on disk is skipped; the previous config stays in effect
// and a later valid write still lands.
func TestWatcherSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \":8080\"\n"), 0644))

	reloaded, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("agents:\n  temperature: 5\n"), 0644))

	// Past the debounce window: the invalid config must not be forwarded.
	time.Sleep(3 * debounceDelay)
	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid config was forwarded: %+v", cfg)
	default:
	}

	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \":7070\"\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, ":7070", cfg.Server.Listen)
	case <-time.After(5 * time.Second):
		t.Fatal("valid config after invalid one never observed")
	}
}

// Writes to other files in the watched directory are ignored.
func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen: \":8080\"\n"), 0644))

	reloaded, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("scratch"), 0644))

	time.Sleep(3 * debounceDelay)
	select {
	case cfg := <-reloaded:
		t.Fatalf("sibling write triggered a reload: %+v", cfg)
	default:
	}
}
