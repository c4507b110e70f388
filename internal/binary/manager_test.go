package binary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
)

// releaseServer serves archives under /{version}/{filename}, with an
// optional detached signature, and counts archive requests.
type releaseServer struct {
	*httptest.Server
	archive   []byte
	signature []byte
	hits      int32
}

func newReleaseServer(t *testing.T, archive, signature []byte) *releaseServer {
	t.Helper()

	rs := &releaseServer{archive: archive, signature: signature}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != release.DefaultUserAgent {
			t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}

		switch {
		case strings.HasSuffix(r.URL.Path, ".zip.asc"):
			if rs.signature == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(rs.signature)
		case strings.HasSuffix(r.URL.Path, ".zip"):
			atomic.AddInt32(&rs.hits, 1)
			if rs.archive == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprint(len(rs.archive)))
			w.Write(rs.archive)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *releaseServer) archiveHits() int32 {
	return atomic.LoadInt32(&rs.hits)
}

func newTestManager(t *testing.T, base string, cfg Config) *Manager {
	t.Helper()

	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	}
	cfg.DownloadBase = base

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid_config",
			config: Config{CacheDir: "/tmp/pb_cache"},
		},
		{
			name:    "missing_cache_dir",
			config:  Config{},
			wantErr: "CacheDir is required",
		},
		{
			name:    "gpg_without_keyring",
			config:  Config{CacheDir: "/tmp/pb_cache", Verification: VerificationGPG},
			wantErr: "requires a keyring",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.config)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("NewManager() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewManager() error = %v, want nil", err)
			}
			if m.downloadBase != release.DefaultDownloadBase {
				t.Errorf("downloadBase = %q, want default", m.downloadBase)
			}
		})
	}
}

func TestManagerAcquire_DownloadsThenCaches(t *testing.T) {
	rs := newReleaseServer(t, pocketbaseZip(t), nil)
	var progress bytes.Buffer
	m := newTestManager(t, rs.URL, Config{Progress: PercentProgress(&progress)})

	first, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64)
	if err != nil {
		t.Fatalf("Acquire() error = %v, want nil", err)
	}
	if first.Cached {
		t.Error("first Acquire() Cached = true, want false")
	}
	if filepath.Base(first.Path) != "pocketbase_0.30.3_linux_amd64.zip" {
		t.Errorf("Path = %q, want cache entry named after artifact", first.Path)
	}
	if first.Size != int64(len(rs.archive)) {
		t.Errorf("Size = %d, want %d", first.Size, len(rs.archive))
	}
	if !strings.Contains(progress.String(), "Downloading: 100%") {
		t.Errorf("progress output = %q, want percentage lines", progress.String())
	}

	second, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64)
	if err != nil {
		t.Fatalf("second Acquire() error = %v, want nil", err)
	}
	if !second.Cached || second.Path != first.Path {
		t.Errorf("second Acquire() = %+v, want cached %q", second, first.Path)
	}

	if hits := rs.archiveHits(); hits != 1 {
		t.Errorf("archive requests = %d, want 1", hits)
	}

	root, _ := m.Cache().Root()
	assertCleanRoot(t, root, "pocketbase_0.30.3_linux_amd64.zip")
}

func TestManagerAcquire_PreexistingEntryNoNetwork(t *testing.T) {
	rs := newReleaseServer(t, pocketbaseZip(t), nil)
	m := newTestManager(t, rs.URL, Config{})

	if _, err := m.Cache().Store(context.Background(), "pocketbase_0.29.0_darwin_arm64.zip", strings.NewReader("seeded")); err != nil {
		t.Fatal(err)
	}

	tag := platform.Tag{OS: "darwin", Arch: "arm64"}
	result, err := m.Acquire(context.Background(), "v0.29.0", tag)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !result.Cached || result.Verified != VerificationNone {
		t.Errorf("Acquire() = %+v, want unverified cache hit", result)
	}
	if hits := rs.archiveHits(); hits != 0 {
		t.Errorf("archive requests = %d, want 0", hits)
	}
}

func TestManagerAcquire_TransferFailure(t *testing.T) {
	rs := newReleaseServer(t, nil, nil)
	m := newTestManager(t, rs.URL, Config{})

	_, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64)
	var statusErr *release.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("Acquire() error = %v, want 404 HTTPStatusError", err)
	}

	// No retry.
	if hits := rs.archiveHits(); hits != 1 {
		t.Errorf("archive requests = %d, want 1", hits)
	}

	root, _ := m.Cache().Root()
	assertCleanRoot(t, root)
}

func TestManagerAcquire_TruncatedTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("only a few bytes"))
	}))
	defer server.Close()

	m := newTestManager(t, server.URL, Config{})
	if _, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64); err == nil {
		t.Fatal("Acquire() error = nil, want truncated transfer error")
	}

	root, _ := m.Cache().Root()
	assertCleanRoot(t, root)
}

func TestManagerAcquire_GPG(t *testing.T) {
	archive := pocketbaseZip(t)
	filename := "pocketbase_0.30.3_linux_amd64.zip"

	signer, keyring := newTestEntity(t, true)
	stranger, _ := newTestEntity(t, false)

	tests := []struct {
		name      string
		signature []byte
		wantErr   bool
	}{
		{
			name:      "verified",
			signature: armoredSignature(t, signer, archive),
		},
		{
			name:      "wrong_signer_not_cached",
			signature: armoredSignature(t, stranger, archive),
			wantErr:   true,
		},
		{
			name:    "missing_signature_not_cached",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newReleaseServer(t, archive, tt.signature)
			m := newTestManager(t, rs.URL, Config{Verification: VerificationGPG, Keyring: keyring})

			result, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64)
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "verify "+filename) {
					t.Fatalf("Acquire() error = %v, want verification error", err)
				}
				if _, ok := m.Cache().Lookup(filename); ok {
					t.Error("unverified archive committed to cache")
				}
				root, _ := m.Cache().Root()
				assertCleanRoot(t, root)
				return
			}

			if err != nil {
				t.Fatalf("Acquire() error = %v, want nil", err)
			}
			if result.Verified != VerificationGPG {
				t.Errorf("Verified = %v, want gpg", result.Verified)
			}
		})
	}
}

func TestManagerAcquire_WaitsForLockThenUsesCache(t *testing.T) {
	rs := newReleaseServer(t, pocketbaseZip(t), nil)
	m := newTestManager(t, rs.URL, Config{})

	held, err := m.Cache().Lock(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan *AcquireResult, 1)
	errs := make(chan error, 1)
	go func() {
		result, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64)
		if err != nil {
			errs <- err
			return
		}
		done <- result
	}()

	// Another writer fills the entry while holding the lock.
	if _, err := m.Cache().commit("pocketbase_0.30.3_linux_amd64.zip", strings.NewReader("from other process"), nil); err != nil {
		t.Fatal(err)
	}
	held.Release()

	select {
	case result := <-done:
		if !result.Cached {
			t.Error("Acquire() Cached = false, want true after waiting")
		}
	case err := <-errs:
		t.Fatalf("Acquire() error = %v", err)
	}

	if hits := rs.archiveHits(); hits != 0 {
		t.Errorf("archive requests = %d, want 0", hits)
	}
}

func TestManagerAcquire_LeftoverLockFile(t *testing.T) {
	rs := newReleaseServer(t, pocketbaseZip(t), nil)
	m := newTestManager(t, rs.URL, Config{})
	m.Cache().lockTimeout = 2 * time.Second

	// A run killed mid-download leaves its lock file behind.
	root, _ := m.Cache().Root()
	if err := os.WriteFile(filepath.Join(root, lockFileName), []byte("pid=999999\n"), 0600); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	result, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64)
	if err != nil {
		t.Fatalf("Acquire() error = %v, want nil", err)
	}
	if result.Cached {
		t.Error("Acquire() Cached = true, want fresh download")
	}
	if waited := time.Since(start); waited > time.Second {
		t.Errorf("Acquire() took %v behind a leftover lock file", waited)
	}
	if hits := rs.archiveHits(); hits != 1 {
		t.Errorf("archive requests = %d, want 1", hits)
	}
}

func TestManagerAcquire_BusyLockStillDownloads(t *testing.T) {
	rs := newReleaseServer(t, pocketbaseZip(t), nil)
	m := newTestManager(t, rs.URL, Config{})
	m.Cache().lockTimeout = 100 * time.Millisecond

	held, err := m.Cache().Lock(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	result, err := m.Acquire(context.Background(), "v0.30.3", linuxAMD64)
	if err != nil {
		t.Fatalf("Acquire() error = %v, want nil", err)
	}
	if result.Cached || result.Size != int64(len(rs.archive)) {
		t.Errorf("Acquire() = %+v, want fresh download", result)
	}

	root, _ := m.Cache().Root()
	assertCleanRoot(t, root, "pocketbase_0.30.3_linux_amd64.zip")
}

func TestManagerInstall(t *testing.T) {
	rs := newReleaseServer(t, pocketbaseZip(t), nil)
	m := newTestManager(t, rs.URL, Config{})
	projectDir := filepath.Join(t.TempDir(), "myapp")

	result, err := m.Install(context.Background(), "v0.30.3", linuxAMD64, projectDir)
	if err != nil {
		t.Fatalf("Install() error = %v, want nil", err)
	}
	if result.Cached {
		t.Error("Install() Cached = true on empty cache")
	}

	for _, name := range []string{"pocketbase", "CHANGELOG.md", "LICENSE.md"} {
		if _, err := os.Stat(filepath.Join(projectDir, name)); err != nil {
			t.Errorf("%s not extracted: %v", name, err)
		}
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(filepath.Join(projectDir, "pocketbase"))
		if info.Mode().Perm() != 0755 {
			t.Errorf("pocketbase perm = %o, want 0755", info.Mode().Perm())
		}
	}
}

func TestManagerInstall_CorruptCachedArchive(t *testing.T) {
	m := newTestManager(t, "http://127.0.0.1:0", Config{})
	if _, err := m.Cache().Store(context.Background(), "pocketbase_0.30.3_linux_amd64.zip", strings.NewReader("garbage")); err != nil {
		t.Fatal(err)
	}

	_, err := m.Install(context.Background(), "v0.30.3", linuxAMD64, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "extract") {
		t.Errorf("Install() error = %v, want extract error", err)
	}
}
