package release

import (
	"strings"

	"golang.org/x/mod/semver"
)

// ValidVersion reports whether s is an acceptable version id: a leading "v"
// followed by a non-empty run of digits and dots. "latest", "1.2.3" and
// "v1.2.x" are all rejected.
func ValidVersion(s string) bool {
	if !strings.HasPrefix(s, "v") {
		return false
	}

	digits := strings.ReplaceAll(s[1:], ".", "")
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Change describes how a target version relates to an installed one.
type Change int

const (
	// ChangeUnknown is reported when either side is not comparable.
	ChangeUnknown Change = iota
	// ChangeSame means both versions are equal.
	ChangeSame
	// ChangeUpgrade means the target is newer.
	ChangeUpgrade
	// ChangeDowngrade means the target is older.
	ChangeDowngrade
)

// String returns a short human description.
func (c Change) String() string {
	switch c {
	case ChangeSame:
		return "same version"
	case ChangeUpgrade:
		return "upgrade"
	case ChangeDowngrade:
		return "downgrade"
	default:
		return "unknown change"
	}
}

// Compare classifies moving from installed to target.
func Compare(installed, target string) Change {
	if !semver.IsValid(installed) || !semver.IsValid(target) {
		return ChangeUnknown
	}

	switch semver.Compare(target, installed) {
	case 0:
		return ChangeSame
	case 1:
		return ChangeUpgrade
	default:
		return ChangeDowngrade
	}
}
