package release

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
)

// DefaultDownloadBase is the prefix of every artifact URL.
const DefaultDownloadBase = "https://github.com/pocketbase/pocketbase/releases/download"

// Artifact identifies a downloadable release archive.
type Artifact struct {
	Version  string
	Tag      platform.Tag
	Filename string
	URL      string
}

// Locate derives the artifact for version and tag under DefaultDownloadBase.
func Locate(version string, tag platform.Tag) Artifact {
	return LocateAt(DefaultDownloadBase, version, tag)
}

// LocateAt derives the artifact for version and tag under base.
// It performs no validation and no I/O.
func LocateAt(base, version string, tag platform.Tag) Artifact {
	numeric := strings.TrimPrefix(version, "v")
	filename := fmt.Sprintf("pocketbase_%s_%s_%s.zip", numeric, tag.OS, tag.Arch)

	return Artifact{
		Version:  version,
		Tag:      tag,
		Filename: filename,
		URL:      fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), version, filename),
	}
}
