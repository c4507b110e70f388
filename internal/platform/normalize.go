package platform

import (
	"strings"
)

// osMap maps host OS names to release OS names.
var osMap = map[string]string{
	"linux":   OSLinux,
	"darwin":  OSDarwin,
	"windows": OSWindows,
}

// archMap maps machine architecture names to release architecture names.
// Only the names the distributor has historically been addressed with are
// listed; anything else falls back to amd64.
var archMap = map[string]string{
	"x86_64": ArchAMD64,
	"amd64":  ArchAMD64,
	"arm64":  ArchARM64,
}

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// Identify maps a host OS name and machine architecture onto a Tag.
// It is total: unrecognized values fall back to linux and amd64.
func Identify(osName, machine string) Tag {
	return Tag{
		OS:   normalizeOS(osName),
		Arch: normalizeArch(machine),
	}
}

// normalizeOS converts a host OS name to a release OS name.
func normalizeOS(osName string) string {
	if name, ok := osMap[strings.ToLower(strings.TrimSpace(osName))]; ok {
		return name
	}
	return OSLinux
}

// normalizeArch converts a machine architecture to a release architecture name.
func normalizeArch(arch string) string {
	if name, ok := archMap[strings.ToLower(strings.TrimSpace(arch))]; ok {
		return name
	}
	return ArchAMD64
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}

	return FamilyUnknown
}
