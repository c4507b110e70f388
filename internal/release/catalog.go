// Package release discovers published PocketBase versions and derives the
// artifact reference for a version and platform.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/logging"
)

const (
	// DefaultReleasesURL lists the most recent releases of the distributor.
	DefaultReleasesURL = "https://api.github.com/repos/pocketbase/pocketbase/releases?per_page=30"
	// DefaultUserAgent is the User-Agent header sent with every request.
	DefaultUserAgent = "pbsetup/1.0"
	// DefaultTimeout bounds a single catalog request.
	DefaultTimeout = 15 * time.Second
	// DefaultAttempts is the number of catalog requests made before giving up.
	DefaultAttempts = 3
	// DefaultBackoff is the fixed pause between catalog attempts.
	DefaultBackoff = time.Second
	// DefaultLimit caps the number of stable versions returned.
	DefaultLimit = 15

	// LatestVersion is used when neither the catalog nor the fallback table
	// yields a version.
	LatestVersion = "latest"

	acceptHeader = "application/vnd.github.v3+json"
)

// DefaultFallbackVersions is offered when the catalog cannot be reached.
// Newest first.
var DefaultFallbackVersions = []string{
	"v0.30.3",
	"v0.30.2",
	"v0.30.1",
	"v0.30.0",
	"v0.29.3",
	"v0.29.2",
	"v0.29.1",
	"v0.29.0",
	"v0.28.0",
}

var (
	// ErrNoStableVersions is returned when the listing holds no stable release.
	ErrNoStableVersions = errors.New("no stable releases found")
	// ErrEmptyResponse is returned when the listing body is empty.
	ErrEmptyResponse = errors.New("empty response body")
)

// HTTPStatusError reports a non-2xx catalog response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// releaseEntry is the subset of a release listing entry we read.
type releaseEntry struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
}

// Catalog queries the release listing endpoint.
//
// The zero value is not usable; construct with NewCatalog and override fields
// as needed before the first call.
type Catalog struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	Attempts  int
	Backoff   time.Duration
	Limit     int
	// Fallback is returned by Versions when the listing cannot be fetched.
	Fallback []string

	Client *http.Client
	Logger logging.Logger
}

// NewCatalog returns a Catalog with the default endpoint and policies.
func NewCatalog() *Catalog {
	fallback := make([]string, len(DefaultFallbackVersions))
	copy(fallback, DefaultFallbackVersions)

	return &Catalog{
		URL:       DefaultReleasesURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		Attempts:  DefaultAttempts,
		Backoff:   DefaultBackoff,
		Limit:     DefaultLimit,
		Fallback:  fallback,
		Client:    &http.Client{},
		Logger:    logging.Nop(),
	}
}

// ListStableVersions fetches the release listing and returns the tags of
// non-prerelease entries in listing order, at most Limit of them.
//
// Each failed attempt (transport error, non-2xx status, empty body,
// undecodable JSON or no stable entries) is followed by a Backoff pause
// unless it was the last one; the last failure is returned.
func (c *Catalog) ListStableVersions(ctx context.Context) ([]string, error) {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	logger := logging.OrNop(c.Logger)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		versions, err := c.fetchOnce(ctx)
		if err == nil {
			logger.Debug("fetched release catalog", "attempt", attempt, "versions", len(versions))
			return versions, nil
		}

		lastErr = err
		logger.Debug("catalog attempt failed", "attempt", attempt, "error", err)

		if attempt < attempts {
			select {
			case <-time.After(c.Backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("list releases after %d attempts: %w", attempts, lastErr)
}

// Versions returns the stable versions, or the Fallback table if they cannot
// be listed. The boolean is true when the fallback was used.
func (c *Catalog) Versions(ctx context.Context) ([]string, bool) {
	versions, err := c.ListStableVersions(ctx)
	if err == nil {
		return versions, false
	}

	logging.OrNop(c.Logger).Warn("using fallback versions", "error", err)
	fallback := make([]string, len(c.Fallback))
	copy(fallback, c.Fallback)
	return fallback, true
}

// fetchOnce performs a single listing request.
func (c *Catalog) fetchOnce(ctx context.Context) ([]string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", acceptHeader)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: c.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var entries []releaseEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode release listing: %w", err)
	}

	return stableTags(entries, c.Limit)
}

// stableTags filters out prereleases, preserving order, and truncates to limit.
func stableTags(entries []releaseEntry, limit int) ([]string, error) {
	var versions []string
	for _, e := range entries {
		if e.Prerelease || e.TagName == "" {
			continue
		}
		versions = append(versions, e.TagName)
		if limit > 0 && len(versions) == limit {
			break
		}
	}

	if len(versions) == 0 {
		return nil, ErrNoStableVersions
	}
	return versions, nil
}
