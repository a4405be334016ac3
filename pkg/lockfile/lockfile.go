// Package lockfile provides scoped, cross-process advisory locking and
// atomic file replacement. Both the price cache and the position ledgers
// are mutated by independent processes (the background monitor and the
// interactive CLI), so every read-modify-write cycle goes through
// Acquire + WriteAtomic.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLockTimeout is returned when a lock cannot be acquired within the
// bounded wait. Callers surface this as "try again later".
var ErrLockTimeout = errors.New("lockfile: acquisition timed out")

const pollInterval = 10 * time.Millisecond

// In-process mutexes keyed by lock file path. flock is per-process on
// some platforms, so threads in the same process need their own gate.
var (
	registryMu sync.Mutex
	registry   = make(map[string]*sync.Mutex)
)

func pathMutex(path string) *sync.Mutex {
	registryMu.Lock()
	defer registryMu.Unlock()
	mu, ok := registry[path]
	if !ok {
		mu = &sync.Mutex{}
		registry[path] = mu
	}
	return mu
}

// Lock is a held lock on a resource. Release must be called on all exit
// paths; defer immediately after Acquire.
type Lock struct {
	path     string
	file     *os.File
	mu       *sync.Mutex
	released bool
}

// Acquire takes the lock guarding path, waiting at most wait. The lock
// file is path + ".lock" so the guarded file itself can be atomically
// replaced while held. Returns ErrLockTimeout if contended beyond the
// bound, or the context error if ctx is cancelled first.
func Acquire(ctx context.Context, path string, wait time.Duration) (*Lock, error) {
	deadline := time.Now().Add(wait)
	lockPath := path + ".lock"

	mu := pathMutex(lockPath)
	if err := lockWithDeadline(ctx, mu, deadline); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("lockfile: create directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("lockfile: open %s: %w", lockPath, err)
	}

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{path: path, file: f, mu: mu}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			f.Close()
			mu.Unlock()
			return nil, fmt.Errorf("lockfile: flock %s: %w", lockPath, err)
		}
		if time.Now().After(deadline) {
			f.Close()
			mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, lockPath)
		}
		select {
		case <-ctx.Done():
			f.Close()
			mu.Unlock()
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// lockWithDeadline takes an in-process mutex, giving up at deadline.
func lockWithDeadline(ctx context.Context, mu *sync.Mutex, deadline time.Time) error {
	for {
		if mu.TryLock() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("lockfile: unlock %s: %w", l.path, err)
	}
	return closeErr
}

// WriteAtomic writes data to path via a temp file in the same directory
// followed by a rename, so a reader never observes a partial write. The
// temp file is fsynced before the rename to survive a crash.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("lockfile: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("lockfile: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("lockfile: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("lockfile: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("lockfile: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("lockfile: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("lockfile: rename: %w", err)
	}
	return nil
}
