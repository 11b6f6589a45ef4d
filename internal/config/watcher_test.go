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

type reload struct {
	cfg RigConfig
	err error
}

func startWatcher(t *testing.T, dir string) <-chan reload {
	t.Helper()
	reloads := make(chan reload, 8)
	w, err := NewWatcher(dir, func(cfg RigConfig, err error) {
		reloads <- reload{cfg, err}
	})
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return reloads
}

func nextReload(t *testing.T, reloads <-chan reload) reload {
	t.Helper()
	select {
	case r := <-reloads:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
		return reload{}
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	reloads := startWatcher(t, dir)

	writeConfig(t, dir, "level: isolated\n")
	r := nextReload(t, reloads)
	require.NoError(t, r.err)
	assert.Equal(t, "isolated", r.cfg.Level)

	writeConfig(t, dir, "level: galaxy\n")
	r = nextReload(t, reloads)
	var validation ValidationErrors
	assert.ErrorAs(t, r.err, &validation)

	require.NoError(t, os.Remove(filepath.Join(dir, FileName)))
	r = nextReload(t, reloads)
	require.NoError(t, r.err)
	assert.Equal(t, GetDefaultConfig(), r.cfg)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	reloads := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	select {
	case r := <-reloads:
		t.Fatalf("unexpected reload: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewWatcherNeedsDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), func(RigConfig, error) {})
	assert.Error(t, err)
}
