// Package platform identifies the host operating system and CPU architecture
// and maps them onto the release-naming vocabulary used by the PocketBase
// distributor.
//
// Unknown operating systems and architectures never produce an error: they
// fall back to linux and amd64 respectively. The package also exposes the
// detected platform to Lua configurations as a read-only table.
package platform

import "context"

// Release-vocabulary operating system names.
const (
	OSLinux   = "linux"
	OSDarwin  = "darwin"
	OSWindows = "windows"
)

// Release-vocabulary architecture names.
const (
	ArchAMD64 = "amd64"
	ArchARM64 = "arm64"
)

// Linux distribution family constants.
// These represent canonical family names for grouping related distributions.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Tag is the normalized (OS, architecture) pair used to select a release
// artifact. It is a value type and is never mutated once derived.
type Tag struct {
	OS   string // "linux", "darwin", "windows"
	Arch string // "amd64", "arm64"
}

// String returns the tag as "os_arch", the form used in artifact filenames.
func (t Tag) String() string {
	return t.OS + "_" + t.Arch
}

// IsPOSIX reports whether executables on this platform need permission bits.
func (t Tag) IsPOSIX() bool {
	return t.OS == OSLinux || t.OS == OSDarwin
}

// Info contains platform detection information.
type Info struct {
	OS       string // normalized OS name
	Arch     string // normalized architecture
	OSRaw    string // host OS name before mapping
	ArchRaw  string // machine architecture before mapping (e.g. "x86_64", "aarch64")
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Tag returns the release tag for this platform.
func (i *Info) Tag() Tag {
	return Tag{OS: i.OS, Arch: i.Arch}
}

// Distro contains Linux distribution information.
// This is nil on non-Linux platforms.
type Distro struct {
	ID      string // distro ID (e.g., "ubuntu")
	Family  string // canonical family (e.g., "debian")
	Version string // version (e.g., "22.04")
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != OSLinux || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == OSLinux
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == OSDarwin
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == OSWindows
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == ArchARM64
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == OSDarwin && i.Arch == ArchARM64
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Fixed returns a Detector that always reports info. It lets callers that
// already detected the host reuse the result.
func Fixed(info *Info) Detector {
	return fixedDetector{info: info}
}

type fixedDetector struct {
	info *Info
}

func (f fixedDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.info, nil
}
