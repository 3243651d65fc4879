// Package version reports build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   string // Set via ldflags.
	Branch    string
	BuildUser string
	BuildDate string

	Revision  = getRevision(readBuildInfo())
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// GetVersion returns the release version, or the VCS revision for
// development builds.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

// String describes the build on one line.
func String() string {
	return fmt.Sprintf("crumbs %s (revision %s, %s %s/%s)", GetVersion(), Revision, GoVersion, GoOS, GoArch)
}

func readBuildInfo() []debug.BuildSetting {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	return buildInfo.Settings
}

func getRevision(settings []debug.BuildSetting) string {
	rev := "unknown"
	modified := false

	for _, v := range settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value[:min(len(v.Value), 7)]

		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
