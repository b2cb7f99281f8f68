package runlock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.pid")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid token: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected pid token contents")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected pid token removed, stat err: %v", err)
	}

	// Release is idempotent.
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestSecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.pid")

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if _, err := Acquire(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestStaleTokenIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.pid")

	// A PID far beyond pid_max cannot belong to a live process.
	if err := os.WriteFile(path, []byte("4194304999\n"), 0o644); err != nil {
		t.Fatalf("write stale token: %v", err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire over stale token: %v", err)
	}
	defer lock.Release()
}

func TestAcquireRequiresPath(t *testing.T) {
	if _, err := Acquire(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
