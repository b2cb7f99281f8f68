// Package testsupport provides helpers shared by package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
	"scribe/internal/ledger"
)

// NewConfig returns a validated configuration rooted in the test's temp
// directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.BackupDir = filepath.Join(base, "backup")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LockFile = filepath.Join(base, "scribe.pid")
	cfg.Paths.StopFile = filepath.Join(base, "work", ".stop-requested")
	cfg.Whisper.ModelDir = filepath.Join(base, "models")
	cfg.Workflow.ItemPauseSeconds = 0

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// MustOpenLedger opens a ledger store in the test's temp space and closes it
// on cleanup.
func MustOpenLedger(t *testing.T) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// WriteFile creates a file with the given contents, creating parent
// directories as needed.
func WriteFile(t *testing.T, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
