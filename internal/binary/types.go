package binary

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
)

// VerificationMethod indicates how a freshly downloaded archive was checked.
type VerificationMethod int

const (
	// VerificationNone means the archive was accepted as downloaded.
	VerificationNone VerificationMethod = iota
	// VerificationGPG means a detached signature was checked against a keyring.
	VerificationGPG
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationNone:
		return "none"
	case VerificationGPG:
		return "gpg"
	default:
		return "unknown"
	}
}

// ParseVerificationMethod parses "none" or "gpg" (case-insensitive).
// An empty string means none.
func ParseVerificationMethod(s string) (VerificationMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return VerificationNone, nil
	case "gpg":
		return VerificationGPG, nil
	default:
		return VerificationNone, fmt.Errorf("unknown verification method %q (want none or gpg)", s)
	}
}

// AcquireResult describes a locally available release archive.
type AcquireResult struct {
	Artifact release.Artifact
	// Path is the cache entry for the artifact.
	Path string
	// Cached is true when no transfer took place.
	Cached bool
	// Verified is the check applied to a fresh download. Always
	// VerificationNone for cache hits.
	Verified VerificationMethod
	// Size is the number of bytes transferred; zero for cache hits.
	Size         int64
	DownloadTime time.Duration
}
