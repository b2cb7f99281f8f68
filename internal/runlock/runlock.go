package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning indicates another live pipeline instance holds the lock.
var ErrAlreadyRunning = errors.New("another scribe instance is already running")

// Lock is the single-instance guard for the pipeline: an advisory file lock
// paired with a PID token. The advisory lock dies with the process, so a
// crashed instance never blocks the next run; the PID token additionally lets
// operators see who holds the lock and lets Acquire reclaim tokens whose
// process is gone.
type Lock struct {
	path string
	fl   *flock.Flock
}

// Acquire takes the run lock at path, writing the current PID as the token.
// A token referencing a live process yields ErrAlreadyRunning; a stale token
// is reclaimed and overwritten.
func Acquire(path string) (*Lock, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("runlock: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("runlock: create lock directory: %w", err)
	}

	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("runlock: acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: lock held at %s", ErrAlreadyRunning, path)
	}

	// The advisory lock is ours, but an older instance that predates the
	// flock scheme may still be alive behind a bare PID token.
	if pid, err := readPID(path); err == nil && pid > 0 && pid != os.Getpid() && processAlive(pid) {
		_ = fl.Unlock()
		return nil, fmt.Errorf("%w: pid %d holds %s", ErrAlreadyRunning, pid, path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("runlock: write pid token: %w", err)
	}
	return &Lock{path: path, fl: fl}, nil
}

// Release removes the PID token and drops the advisory lock. Safe to call
// once on every exit path; subsequent calls are no-ops.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	removeErr := os.Remove(l.path)
	if removeErr != nil && os.IsNotExist(removeErr) {
		removeErr = nil
	}
	unlockErr := l.fl.Unlock()
	l.fl = nil
	if removeErr != nil {
		return fmt.Errorf("runlock: remove pid token: %w", removeErr)
	}
	if unlockErr != nil {
		return fmt.Errorf("runlock: release lock: %w", unlockErr)
	}
	return nil
}

// Path returns the PID token location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes the PID with signal 0. EPERM still means the process
// exists, just owned by someone else.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
