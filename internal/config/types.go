package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
)

// Config represents a parsed pbsetup configuration.
// Zero values mean "not set" and leave the built-in default in effect.
type Config struct {
	Port             int
	Version          string
	CacheDir         string
	ReleasesURL      string
	DownloadBase     string
	FallbackVersions []string
	Git              bool
	Verify           VerifyConfig
}

// VerifyConfig selects how fresh downloads are checked before caching.
type VerifyConfig struct {
	Method  string
	Keyring string
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:             DefaultPort,
		CacheDir:         "~/.pb_cache",
		ReleasesURL:      release.DefaultReleasesURL,
		DownloadBase:     release.DefaultDownloadBase,
		FallbackVersions: append([]string(nil), release.DefaultFallbackVersions...),
		Verify:           VerifyConfig{Method: VerifyNone},
	}
}

// Validate validates the config structure.
func (c *Config) Validate() error {
	if c.Port != 0 {
		if err := ValidatePort(c.Port); err != nil {
			return &ValidationError{Field: luaFieldPort, Message: err.Error()}
		}
	}

	if c.Version != "" && c.Version != release.LatestVersion && !release.ValidVersion(c.Version) {
		return &ValidationError{Field: luaFieldVersion, Message: fmt.Sprintf("invalid version %q", c.Version)}
	}

	for i, v := range c.FallbackVersions {
		if !release.ValidVersion(v) {
			return &ValidationError{
				Field:   fmt.Sprintf("%s[%d]", luaFieldFallback, i+1),
				Message: fmt.Sprintf("invalid version %q", v),
			}
		}
	}

	if c.ReleasesURL != "" {
		if err := validateHTTPURL(c.ReleasesURL); err != nil {
			return &ValidationError{Field: luaFieldReleasesURL, Message: err.Error()}
		}
	}

	if c.DownloadBase != "" {
		if err := validateHTTPURL(c.DownloadBase); err != nil {
			return &ValidationError{Field: luaFieldDownloadBase, Message: err.Error()}
		}
	}

	switch c.Verify.Method {
	case "", VerifyNone:
	case VerifyGPG:
		if strings.TrimSpace(c.Verify.Keyring) == "" {
			return &ValidationError{Field: "verify.keyring", Message: "keyring is required when method is gpg"}
		}
	default:
		return &ValidationError{
			Field:   "verify.method",
			Message: fmt.Sprintf("unknown method %q (want none or gpg)", c.Verify.Method),
		}
	}

	return nil
}

// Merge overlays the fields set in other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.Version != "" {
		c.Version = other.Version
	}
	if other.CacheDir != "" {
		c.CacheDir = other.CacheDir
	}
	if other.ReleasesURL != "" {
		c.ReleasesURL = other.ReleasesURL
	}
	if other.DownloadBase != "" {
		c.DownloadBase = other.DownloadBase
	}
	if len(other.FallbackVersions) > 0 {
		c.FallbackVersions = append([]string(nil), other.FallbackVersions...)
	}
	if other.Git {
		c.Git = true
	}
	if other.Verify.Method != "" {
		c.Verify.Method = other.Verify.Method
	}
	if other.Verify.Keyring != "" {
		c.Verify.Keyring = other.Verify.Keyring
	}
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// ValidatePort reports whether port is usable for a PocketBase server.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port %d out of range %d-%d", port, MinPort, MaxPort)
	}
	return nil
}

// validateHTTPURL validates an http or https endpoint.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
