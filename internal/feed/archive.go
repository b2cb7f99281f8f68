package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Archive is the append-only download-seen file. Each line records one
// episode id that has already been fetched; entries are never removed, so a
// harvest run can be repeated without re-downloading earlier episodes.
type Archive struct {
	mu   sync.Mutex
	path string
	seen map[string]struct{}
}

// OpenArchive loads the seen set from path. A missing file yields an empty
// archive; the file is created on first Add.
func OpenArchive(path string) (*Archive, error) {
	archive := &Archive{
		path: path,
		seen: make(map[string]struct{}),
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return archive, nil
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		archive.seen[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return archive, nil
}

// Contains reports whether the episode id has been downloaded before.
func (a *Archive) Contains(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.seen[id]
	return ok
}

// Add records the episode id, appending it to the backing file. Adding an id
// that is already present is a no-op.
func (a *Archive) Add(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("archive: empty id")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.seen[id]; ok {
		return nil
	}

	if dir := filepath.Dir(a.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive directory: %w", err)
		}
	}
	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive for append: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("append archive entry: %w", err)
	}
	a.seen[id] = struct{}{}
	return nil
}

// Len returns the number of recorded episode ids.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}
