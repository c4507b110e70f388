package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
)

// mockDetector is a test implementation of platform.Detector.
type mockDetector struct {
	info *platform.Info
	err  error
}

func (m *mockDetector) Detect(ctx context.Context) (*platform.Info, error) {
	return m.info, m.err
}

func TestParser_ParseString_Minimal(t *testing.T) {
	luaCode := `pbsetup = { port = 9000 }`

	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Version != "" || cfg.Git || cfg.Verify.Method != "" {
		t.Errorf("unset fields populated: %+v", cfg)
	}
}

func TestParser_ParseString_Full(t *testing.T) {
	luaCode := `
		pbsetup = {
			port = 8091,
			version = "v0.29.0",
			cache_dir = "~/pb-cache",
			releases_url = "https://mirror.example.com/releases",
			download_base = "https://mirror.example.com/download",
			fallback_versions = { "v0.29.0", "v0.28.0" },
			git = true,
			verify = { method = "GPG", keyring = "/keys/pocketbase.asc" },
		}
	`

	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	want := Config{
		Port:             8091,
		Version:          "v0.29.0",
		CacheDir:         "~/pb-cache",
		ReleasesURL:      "https://mirror.example.com/releases",
		DownloadBase:     "https://mirror.example.com/download",
		FallbackVersions: []string{"v0.29.0", "v0.28.0"},
		Git:              true,
		Verify:           VerifyConfig{Method: VerifyGPG, Keyring: "/keys/pocketbase.asc"},
	}

	if cfg.Port != want.Port || cfg.Version != want.Version || cfg.CacheDir != want.CacheDir {
		t.Errorf("scalars = %+v, want %+v", cfg, want)
	}
	if cfg.ReleasesURL != want.ReleasesURL || cfg.DownloadBase != want.DownloadBase {
		t.Errorf("urls = %q %q", cfg.ReleasesURL, cfg.DownloadBase)
	}
	if strings.Join(cfg.FallbackVersions, ",") != strings.Join(want.FallbackVersions, ",") {
		t.Errorf("FallbackVersions = %v, want %v", cfg.FallbackVersions, want.FallbackVersions)
	}
	if !cfg.Git {
		t.Error("Git = false, want true")
	}
	if cfg.Verify != want.Verify {
		t.Errorf("Verify = %+v, want %+v", cfg.Verify, want.Verify)
	}
}

func TestParser_ParseString_PlatformConditionals(t *testing.T) {
	luaCode := `
		pbsetup = {
			port = platform.is_macos and 8091 or 8090,
			fallback_versions = {
				"v0.30.3",
				platform.is_linux and "v0.30.2" or nil,
				"v0.30.1",
			},
		}
	`

	tests := []struct {
		name         string
		info         *platform.Info
		wantPort     int
		wantFallback []string
	}{
		{
			name:         "macos",
			info:         &platform.Info{OS: platform.OSDarwin, Arch: platform.ArchARM64},
			wantPort:     8091,
			wantFallback: []string{"v0.30.3", "v0.30.1"},
		},
		{
			name:         "linux",
			info:         &platform.Info{OS: platform.OSLinux, Arch: platform.ArchAMD64},
			wantPort:     8090,
			wantFallback: []string{"v0.30.3", "v0.30.2", "v0.30.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(&mockDetector{info: tt.info})
			cfg, err := parser.ParseString(context.Background(), luaCode)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", cfg.Port, tt.wantPort)
			}
			if strings.Join(cfg.FallbackVersions, ",") != strings.Join(tt.wantFallback, ",") {
				t.Errorf("FallbackVersions = %v, want %v", cfg.FallbackVersions, tt.wantFallback)
			}
		})
	}
}

func TestParser_ParseString_DetectorError(t *testing.T) {
	parser := NewParser(&mockDetector{err: errors.New("no uname")})

	_, err := parser.ParseString(context.Background(), `pbsetup = {}`)
	if err == nil || !strings.Contains(err.Error(), "platform detection failed") {
		t.Errorf("ParseString() error = %v, want platform detection error", err)
	}
}

func TestParser_ParseString_Errors(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		errMsg string
	}{
		{
			name:   "syntax_error",
			code:   `pbsetup = {`,
			errMsg: "Lua syntax error",
		},
		{
			name:   "missing_table",
			code:   `x = 1`,
			errMsg: "missing or invalid 'pbsetup' table",
		},
		{
			name:   "table_is_string",
			code:   `pbsetup = "port=8090"`,
			errMsg: "missing or invalid 'pbsetup' table",
		},
		{
			name:   "port_wrong_type",
			code:   `pbsetup = { port = "8090" }`,
			errMsg: "invalid 'port' field",
		},
		{
			name:   "port_fractional",
			code:   `pbsetup = { port = 8090.5 }`,
			errMsg: "expected integer",
		},
		{
			name:   "port_out_of_range",
			code:   `pbsetup = { port = 80 }`,
			errMsg: "out of range",
		},
		{
			name:   "git_wrong_type",
			code:   `pbsetup = { git = "yes" }`,
			errMsg: "expected boolean",
		},
		{
			name:   "verify_wrong_type",
			code:   `pbsetup = { verify = "gpg" }`,
			errMsg: "invalid 'verify' field",
		},
		{
			name:   "unknown_verify_method",
			code:   `pbsetup = { verify = { method = "md5" } }`,
			errMsg: "unknown method",
		},
		{
			name:   "gpg_without_keyring",
			code:   `pbsetup = { verify = { method = "gpg" } }`,
			errMsg: "keyring is required",
		},
		{
			name:   "bad_version",
			code:   `pbsetup = { version = "0.30" }`,
			errMsg: "invalid version",
		},
		{
			name:   "ftp_download_base",
			code:   `pbsetup = { download_base = "ftp://mirror.example.com" }`,
			errMsg: "http or https",
		},
		{
			name:   "sandboxed_os",
			code:   `pbsetup = { cache_dir = os.getenv("HOME") }`,
			errMsg: "Lua syntax error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseString(context.Background(), tt.code)
			if err == nil {
				t.Fatal("ParseString() error = nil, want error")
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("error type = %T, want *ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestParser_ParseString_LatestVersion(t *testing.T) {
	cfg, err := NewParser(nil).ParseString(context.Background(), `pbsetup = { version = "latest" }`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if cfg.Version != "latest" {
		t.Errorf("Version = %q, want latest", cfg.Version)
	}
}

func TestParser_ParseString_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser(nil).ParseString(ctx, `while true do end`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ParseString() error = %v, want context.Canceled", err)
	}
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.lua")
	if err := os.WriteFile(good, []byte(`pbsetup = { git = true }`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewParser(nil).ParseFile(context.Background(), good)
	if err != nil || !cfg.Git {
		t.Errorf("ParseFile(good) = %+v, %v", cfg, err)
	}

	bad := filepath.Join(dir, "bad.lua")
	if err := os.WriteFile(bad, []byte(`pbsetup = `), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = NewParser(nil).ParseFile(context.Background(), bad)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Path != bad {
		t.Errorf("ParseFile(bad) error = %v, want ParseError with path", err)
	}

	if _, err := NewParser(nil).ParseFile(context.Background(), filepath.Join(dir, "missing.lua")); err == nil {
		t.Error("ParseFile(missing) error = nil, want error")
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{
		Path:    "/home/u/.config/pbsetup/config.lua",
		Message: "Lua syntax error",
		Detail:  "<string>:1: unexpected EOF\nstack traceback:\n\t[G]: ?",
	}

	short := FormatError(err, false)
	if strings.Contains(short, "stack traceback") {
		t.Errorf("FormatError(verbose=false) = %q, want traceback stripped", short)
	}
	if !strings.HasPrefix(short, err.Path) {
		t.Errorf("FormatError(verbose=false) = %q, want path prefix", short)
	}

	long := FormatError(err, true)
	if !strings.Contains(long, "Details:") || !strings.Contains(long, "stack traceback") {
		t.Errorf("FormatError(verbose=true) = %q, want raw details", long)
	}

	plain := errors.New("boom")
	if FormatError(plain, false) != "boom" {
		t.Errorf("FormatError(plain) = %q, want boom", FormatError(plain, false))
	}
}
