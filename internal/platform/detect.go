package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using host introspection.
type RealDetector struct {
	goos string
	// kernelArch returns the uname-style machine name (e.g. "x86_64").
	kernelArch func() (string, error)
	// platformInfo returns the Linux distribution platform, family and version.
	platformInfo func(ctx context.Context) (string, string, string, error)
}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{
		goos:         runtime.GOOS,
		kernelArch:   host.KernelArch,
		platformInfo: host.PlatformInformationWithContext,
	}
}

// Detect performs platform detection and returns platform information.
//
// The OS name comes from runtime.GOOS. The machine architecture comes from
// gopsutil's KernelArch (the value uname reports), falling back to
// runtime.GOARCH when the kernel cannot be queried. Both are then mapped with
// Identify, so detection itself never fails on an unknown platform.
//
// On Linux, distribution details are filled in when gopsutil can read them;
// a failed distribution lookup is not an error.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	machine, err := d.kernelArch()
	if err != nil || machine == "" {
		machine = runtime.GOARCH
	}

	tag := Identify(d.goos, machine)
	info := &Info{
		OS:      tag.OS,
		Arch:    tag.Arch,
		OSRaw:   d.goos,
		ArchRaw: machine,
	}

	if d.goos == OSLinux && d.platformInfo != nil {
		platform, family, version, err := d.platformInfo(ctx)
		if err != nil {
			// Check if context was cancelled - this is a hard failure
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}

		platform = normalizePlatform(platform)
		if platform != "" {
			info.Platform = platform
			info.Family = mapFamily(family)
			info.Version = normalizePlatform(version)
		}
	}

	return info, nil
}
