package binary

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/logging"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
)

// Manager orchestrates artifact lookup, download, verification and
// extraction.
type Manager struct {
	cache        *Cache
	downloadBase string
	downloader   *Downloader
	verifier     Verifier
	extractor    *Extractor
	progress     Progress
	logger       logging.Logger
}

// Config holds configuration for the binary manager
type Config struct {
	// CacheDir is the cache root (see DefaultCacheDir).
	CacheDir string
	// DownloadBase overrides release.DefaultDownloadBase.
	DownloadBase string
	// Verification selects the check applied to fresh downloads.
	Verification VerificationMethod
	// Keyring is the GPG keyring used with VerificationGPG.
	Keyring string
	// Progress reports transfer progress. Defaults to NoProgress.
	Progress Progress
	Logger   logging.Logger
}

// NewManager creates a new binary manager
func NewManager(config Config) (*Manager, error) {
	if config.CacheDir == "" {
		return nil, fmt.Errorf("CacheDir is required")
	}

	base := config.DownloadBase
	if base == "" {
		base = release.DefaultDownloadBase
	}

	progress := config.Progress
	if progress == nil {
		progress = NoProgress
	}

	downloader := NewDownloader()
	verifier, err := NewVerifier(config.Verification, config.Keyring, downloader)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}

	return &Manager{
		cache:        NewCache(config.CacheDir, config.Logger),
		downloadBase: base,
		downloader:   downloader,
		verifier:     verifier,
		extractor:    NewExtractor(config.Logger),
		progress:     progress,
		logger:       logging.OrNop(config.Logger),
	}, nil
}

// Cache returns the manager's cache store.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Locate derives the artifact for version and tag under the configured base.
func (m *Manager) Locate(version string, tag platform.Tag) release.Artifact {
	return release.LocateAt(m.downloadBase, version, tag)
}

// Acquire makes the archive for version and tag available locally.
//
// A cache hit returns immediately without network access. On a miss the
// archive is streamed into the cache through Cache.StoreFrom with progress
// reporting, and verified before it is committed. A failed transfer is not
// retried and leaves no cache entry.
func (m *Manager) Acquire(ctx context.Context, version string, tag platform.Tag) (*AcquireResult, error) {
	artifact := m.Locate(version, tag)

	if path, ok := m.cache.Lookup(artifact.Filename); ok {
		m.logger.Debug("cache hit", "file", artifact.Filename, "path", path)
		return &AcquireResult{Artifact: artifact, Path: path, Cached: true}, nil
	}

	startTime := time.Now()
	var (
		body    io.ReadCloser
		counter *countingReader
		done    func()
		finish  sync.Once
	)
	defer func() {
		if body != nil {
			body.Close()
		}
		if done != nil {
			finish.Do(done)
		}
	}()

	open := func(ctx context.Context) (io.Reader, error) {
		m.logger.Debug("downloading artifact", "url", artifact.URL)

		rc, size, err := m.downloader.Open(ctx, artifact.URL)
		if err != nil {
			return nil, err
		}
		body = rc
		counter = &countingReader{r: rc}

		var reader io.Reader
		reader, done = m.progress(counter, size)
		return reader, nil
	}

	verify := func(tmpPath string) error {
		finish.Do(done)
		if err := m.verifier.Verify(ctx, artifact, tmpPath); err != nil {
			return fmt.Errorf("verify %s: %w", artifact.Filename, err)
		}
		return nil
	}

	path, existed, err := m.cache.StoreFrom(ctx, artifact.Filename, open, verify)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", artifact.Filename, err)
	}
	if existed {
		return &AcquireResult{Artifact: artifact, Path: path, Cached: true}, nil
	}

	m.logger.Debug("artifact cached", "path", path, "bytes", counter.n)
	return &AcquireResult{
		Artifact:     artifact,
		Path:         path,
		Verified:     m.verifier.Method(),
		Size:         counter.n,
		DownloadTime: time.Since(startTime),
	}, nil
}

// Install acquires the archive and extracts it into destDir.
func (m *Manager) Install(ctx context.Context, version string, tag platform.Tag, destDir string) (*AcquireResult, error) {
	result, err := m.Acquire(ctx, version, tag)
	if err != nil {
		return nil, err
	}

	if err := m.extractor.Extract(result.Path, destDir, tag); err != nil {
		return nil, fmt.Errorf("extract %s: %w", result.Artifact.Filename, err)
	}
	return result, nil
}

// countingReader records how many bytes passed through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
