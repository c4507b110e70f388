package binary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultLockTimeout bounds how long a writer waits for another to finish.
	DefaultLockTimeout = 5 * time.Minute

	lockPollInterval = 100 * time.Millisecond
)

// ErrLockTimeout is returned when the cache lock could not be taken in time.
var ErrLockTimeout = errors.New("timed out waiting for cache lock: another pbsetup may be downloading")

// Lock is an advisory file lock guarding cache writes. The operating system
// drops it when the holding process exits, however that happens, so a lock
// file left on disk never blocks later runs by itself.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the advisory lock on path, waiting up to timeout while
// another process holds it.
func AcquireLock(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(path)
	locked, err := fl.TryLockContext(waitCtx, lockPollInterval)
	switch {
	case locked:
		return &Lock{fl: fl}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err == nil || errors.Is(err, context.DeadlineExceeded):
		return nil, ErrLockTimeout
	default:
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
}

// Release drops the lock. The lock file itself stays in place for the next
// writer.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", l.fl.Path(), err)
	}
	l.fl = nil
	return nil
}
