// Package dirlock takes an exclusive, non-blocking advisory lock on a
// gitkv data directory so two Store instances never open the same
// directory concurrently and race each other's bucket writes and git
// operations. Uses golang.org/x/sys/unix's flock wrapper directly, since
// the standard library exposes no advisory file locking primitive.
package dirlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockFileName is the sentinel file flock is taken on, relative to the data
// directory root (not a bucket data directory; this lives at the repo
// working-directory root so it covers the whole store, not just the JSON
// shard directory).
const LockFileName = ".gitkv.lock"

// ErrLocked means another process already holds the lock.
var ErrLocked = errors.New("gitkv: data directory already locked by another process")

// Lock holds an open, flocked file descriptor. Call Unlock to release it.
type Lock struct {
	f *os.File
}

// Acquire takes a non-blocking exclusive lock on <root>/.gitkv.lock,
// creating root if needed. Returns ErrLocked if another process holds it.
func Acquire(root string) (*Lock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}

	path := filepath.Join(root, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("flock: %w", err)
	}

	return &Lock{f: f}, nil
}

// Unlock releases the lock and closes the underlying file. Safe to call
// once; a second call is a no-op.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	return closeErr
}
