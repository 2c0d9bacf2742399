// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the binary at link time:
//
//	go build -ldflags "-X audiorelay/pkg/build.buildVersion=0.2.0 \
//	    -X audiorelay/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X audiorelay/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run with the defaults below.
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown in CLI help.
const Description = "Real-time speech transcription and translation relay"

// Info is the build metadata.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats the metadata for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:    "audiorelay",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

// Initialize copies the ldflags values into the build info. It returns an
// error naming every missing flag and leaves the defaults in place for
// those, so callers may treat the error as a warning on dev builds.
func Initialize() error {
	var errs []error
	set := func(dst *string, val, flag string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = val
	}

	set(&buildInfo.Name, buildName, "BuildName")
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")

	return errors.Join(errs...)
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() Info {
	return buildInfo
}
