package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantField string
	}{
		{
			name:   "empty_config",
			config: &Config{},
		},
		{
			name:   "defaults",
			config: Defaults(),
		},
		{
			name:   "port_lower_bound",
			config: &Config{Port: MinPort},
		},
		{
			name:   "port_upper_bound",
			config: &Config{Port: MaxPort},
		},
		{
			name:      "port_too_low",
			config:    &Config{Port: 1023},
			wantField: "port",
		},
		{
			name:      "port_too_high",
			config:    &Config{Port: 65536},
			wantField: "port",
		},
		{
			name:      "invalid_version",
			config:    &Config{Version: "v1.x"},
			wantField: "version",
		},
		{
			name:      "invalid_fallback",
			config:    &Config{FallbackVersions: []string{"v0.30.3", "next"}},
			wantField: "fallback_versions[2]",
		},
		{
			name:      "releases_url_without_host",
			config:    &Config{ReleasesURL: "https://"},
			wantField: "releases_url",
		},
		{
			name:      "download_base_file_scheme",
			config:    &Config{DownloadBase: "file:///tmp"},
			wantField: "download_base",
		},
		{
			name:      "checksum_method_rejected",
			config:    &Config{Verify: VerifyConfig{Method: "sha256"}},
			wantField: "verify.method",
		},
		{
			name:   "gpg_with_keyring",
			config: &Config{Verify: VerifyConfig{Method: VerifyGPG, Keyring: "/k.asc"}},
		},
		{
			name:      "gpg_blank_keyring",
			config:    &Config{Verify: VerifyConfig{Method: VerifyGPG, Keyring: "  "}},
			wantField: "verify.keyring",
		},
		{
			name:      "unknown_method",
			config:    &Config{Verify: VerifyConfig{Method: "cosign"}},
			wantField: "verify.method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	withField := &ValidationError{Field: "port", Message: "bad"}
	if got := withField.Error(); got != "config validation failed for port: bad" {
		t.Errorf("Error() = %q", got)
	}

	noField := &ValidationError{Message: "bad"}
	if got := noField.Error(); got != "config validation failed: bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()

	if d.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", d.Port, DefaultPort)
	}
	if d.ReleasesURL != release.DefaultReleasesURL || d.DownloadBase != release.DefaultDownloadBase {
		t.Errorf("urls = %q %q", d.ReleasesURL, d.DownloadBase)
	}
	if d.Verify.Method != VerifyNone {
		t.Errorf("Verify.Method = %q, want none", d.Verify.Method)
	}

	// The fallback list is a copy.
	d.FallbackVersions[0] = "v9.9.9"
	if release.DefaultFallbackVersions[0] == "v9.9.9" {
		t.Error("Defaults() shares the package fallback slice")
	}
}

func TestConfig_Merge(t *testing.T) {
	base := Defaults()
	base.Merge(&Config{
		Port:             9000,
		Version:          "v0.29.0",
		FallbackVersions: []string{"v0.29.0"},
		Git:              true,
		Verify:           VerifyConfig{Method: VerifyGPG, Keyring: "/k.asc"},
	})

	if base.Port != 9000 || base.Version != "v0.29.0" || !base.Git {
		t.Errorf("Merge() scalars = %+v", base)
	}
	if strings.Join(base.FallbackVersions, ",") != "v0.29.0" {
		t.Errorf("FallbackVersions = %v", base.FallbackVersions)
	}
	if base.Verify.Method != VerifyGPG || base.Verify.Keyring != "/k.asc" {
		t.Errorf("Verify = %+v, want gpg with keyring", base.Verify)
	}
	if base.DownloadBase != release.DefaultDownloadBase {
		t.Errorf("unset DownloadBase overwrote default: %q", base.DownloadBase)
	}

	base.Merge(nil)
	if base.Port != 9000 {
		t.Error("Merge(nil) changed config")
	}
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		port    int
		wantErr bool
	}{
		{1023, true},
		{1024, false},
		{8090, false},
		{65535, false},
		{65536, true},
		{0, true},
		{-1, true},
	}

	for _, tt := range tests {
		if err := ValidatePort(tt.port); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePort(%d) error = %v, wantErr %v", tt.port, err, tt.wantErr)
		}
	}
}
