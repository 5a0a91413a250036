// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/workspacesync/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	Dirty     bool
	BuildTime string
}

// Resolve returns the injected build information, filling commit,
// dirtiness and time from the toolchain's VCS stamps when they were
// not injected.
func Resolve() Build {
	build := Build{Version: Version, Commit: GitCommit, BuildTime: BuildTime}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return build
	}
	return fromSettings(build, info.Settings)
}

func fromSettings(build Build, settings []debug.BuildSetting) Build {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if build.Commit == "unknown" && setting.Value != "" {
				build.Commit = setting.Value[:min(len(setting.Value), 7)]
			}
		case "vcs.time":
			if build.BuildTime == "unknown" {
				build.BuildTime = setting.Value
			}
		case "vcs.modified":
			build.Dirty = setting.Value == "true"
		}
	}
	return build
}

func (b Build) String() string {
	dirty := ""
	if b.Dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", b.Version, b.Commit, dirty, b.BuildTime)
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return Resolve().String()
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
