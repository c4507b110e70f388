package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/logging"
)

const (
	// EnvCacheDir overrides the cache root.
	EnvCacheDir = "PBSETUP_CACHE_DIR"
	// DefaultCacheDirName is the cache root under the user's home directory.
	DefaultCacheDirName = ".pb_cache"

	lockFileName = ".pbsetup.lock"
)

// DefaultCacheDir returns $PBSETUP_CACHE_DIR, or ~/.pb_cache.
func DefaultCacheDir() (string, error) {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return ExpandHome(dir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DefaultCacheDirName), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Cache is a flat directory of downloaded release archives keyed by
// filename. Entries are never evicted or rewritten once committed.
type Cache struct {
	root        string
	lockTimeout time.Duration
	logger      logging.Logger
}

// Source opens the content of a missing cache entry.
type Source func(ctx context.Context) (io.Reader, error)

// Check inspects a fully written temporary file before it is committed.
type Check func(tmpPath string) error

// NewCache returns a cache rooted at root. The directory is created lazily.
func NewCache(root string, logger logging.Logger) *Cache {
	return &Cache{
		root:        root,
		lockTimeout: DefaultLockTimeout,
		logger:      logging.OrNop(logger),
	}
}

// Root returns the cache directory, creating it if absent.
func (c *Cache) Root() (string, error) {
	if err := os.MkdirAll(c.root, 0755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	return c.root, nil
}

// Lookup returns the path of the entry named filename if it exists and is
// not a directory.
func (c *Cache) Lookup(filename string) (string, bool) {
	path := filepath.Join(c.root, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Lock takes the exclusive cache write lock.
func (c *Cache) Lock(ctx context.Context) (*Lock, error) {
	root, err := c.Root()
	if err != nil {
		return nil, err
	}
	return AcquireLock(ctx, filepath.Join(root, lockFileName), c.lockTimeout)
}

// Store writes r to the entry named filename.
func (c *Cache) Store(ctx context.Context, filename string, r io.Reader) (string, error) {
	path, _, err := c.StoreFrom(ctx, filename, func(context.Context) (io.Reader, error) {
		return r, nil
	}, nil)
	return path, err
}

// StoreFrom fills the entry named filename from src and returns its path.
//
// The cache lock is held while writing. If the entry appears while waiting
// for the lock, src is never opened and existed is true. When the lock cannot
// be taken within the lock timeout the entry is written without it; the
// temp-file-and-rename commit keeps concurrent writers from corrupting it.
// check, when non-nil, runs on the complete temporary file and a failure
// leaves no entry.
func (c *Cache) StoreFrom(ctx context.Context, filename string, src Source, check Check) (path string, existed bool, err error) {
	if err := validEntryName(filename); err != nil {
		return "", false, err
	}

	lock, err := c.Lock(ctx)
	switch {
	case err == nil:
		defer lock.Release()
	case errors.Is(err, ErrLockTimeout):
		c.logger.Warn("cache lock busy, writing without it", "file", filename, "timeout", c.lockTimeout)
	default:
		return "", false, fmt.Errorf("lock cache: %w", err)
	}

	// Another process may have finished the same entry while we waited.
	if path, ok := c.Lookup(filename); ok {
		c.logger.Debug("cache filled while waiting for lock", "file", filename)
		return path, true, nil
	}

	r, err := src(ctx)
	if err != nil {
		return "", false, err
	}

	path, err = c.commit(filename, r, check)
	if err != nil {
		return "", false, err
	}
	return path, false, nil
}

// validEntryName rejects names that are not a single plain file in the root.
func validEntryName(filename string) error {
	if filename == "" || filename != filepath.Base(filename) || filename == lockFileName {
		return fmt.Errorf("invalid cache entry name: %q", filename)
	}
	return nil
}

// commit streams r into a temporary file in the cache root, runs check on
// it, and renames it into place. On any failure the temporary file is
// removed and no entry is created.
func (c *Cache) commit(filename string, r io.Reader, check Check) (string, error) {
	if err := validEntryName(filename); err != nil {
		return "", err
	}

	root, err := c.Root()
	if err != nil {
		return "", err
	}

	tmpFile, err := os.CreateTemp(root, filename+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return "", fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if check != nil {
		if err := check(tmpPath); err != nil {
			return "", err
		}
	}

	destPath := filepath.Join(root, filename)
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return destPath, nil
}
