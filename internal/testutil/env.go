// Package testutil provides utilities for testing pbsetup in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated locations created by SetupTestEnv.
type Env struct {
	Home     string
	CacheDir string
	Config   string // config file path; the file itself is not created
}

// SetupTestEnv points HOME, the artifact cache and the config file at a
// fresh temp directory so tests never touch the user's ~/.pb_cache or
// ~/.config/pbsetup. Cleanup is handled by t.TempDir.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Home:     filepath.Join(tmpDir, "home"),
		CacheDir: filepath.Join(tmpDir, "cache"),
		Config:   filepath.Join(tmpDir, "config", "config.lua"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(env.Home, ".config"))
	t.Setenv("PBSETUP_CACHE_DIR", env.CacheDir)
	t.Setenv("PBSETUP_CONFIG", env.Config)
	t.Setenv("PBSETUP_DEBUG", "")
	t.Setenv("PBSETUP_GIT_NAME", "pbsetup test")
	t.Setenv("PBSETUP_GIT_EMAIL", "test@localhost")

	for _, dir := range []string{env.Home, env.CacheDir, filepath.Dir(env.Config)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
