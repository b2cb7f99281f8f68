package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.txt")

	archive, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if archive.Len() != 0 {
		t.Fatalf("expected empty archive, got %d entries", archive.Len())
	}

	if err := archive.Add("ep-1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := archive.Add("ep-2"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !archive.Contains("ep-1") || !archive.Contains("ep-2") {
		t.Fatal("added ids must be contained")
	}

	// Reopen and verify persistence.
	reopened, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.Contains("ep-1") || reopened.Len() != 2 {
		t.Fatalf("expected persisted entries, got %d", reopened.Len())
	}
}

func TestArchiveAddIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.txt")
	archive, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := archive.Add("ep-1"); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if got := strings.Count(string(data), "ep-1"); got != 1 {
		t.Fatalf("expected one line for ep-1, got %d", got)
	}
}

func TestArchiveIgnoresBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.txt")
	if err := os.WriteFile(path, []byte("ep-1\n\n  \nep-2\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	archive, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if archive.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", archive.Len())
	}
}

func TestArchiveRejectsEmptyID(t *testing.T) {
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "downloaded.txt"))
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if err := archive.Add("  "); err == nil {
		t.Fatal("expected error for empty id")
	}
}
