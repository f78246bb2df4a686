// Package versions provides build version information and version comparison
// helpers for the catalog ingester.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Name is the program name reported in version output and the User-Agent header
const Name = "catalog-ingester"

const unknownStr = "unknown"

// Version information set by build using -ldflags
var (
	Version   = "dev"
	Commit    = unknownStr
	BuildDate = unknownStr
)

// VersionInfo describes the running build. Modified is set when a
// development build was made from a dirty worktree.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// UserAgent formats the build as an HTTP User-Agent product token
func (v VersionInfo) UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", Name, v.Version, v.Platform)
}

// String is the one-line form printed by the version command
func (v VersionInfo) String() string {
	commit := v.Commit
	if v.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s %s (commit %s, built %s, %s, %s)",
		Name, v.Version, commit, v.BuildDate, v.GoVersion, v.Platform)
}

// GetVersionInfo returns the version information of the running binary
func GetVersionInfo() VersionInfo {
	var settings []debug.BuildSetting
	if strings.HasPrefix(Version, "dev") {
		if info, ok := debug.ReadBuildInfo(); ok {
			settings = info.Settings
		}
	}
	return newVersionInfo(Version, Commit, BuildDate, settings)
}

// newVersionInfo fills commit and build date from VCS build settings when the
// linker did not set them. A bare "dev" version is replaced by the short commit.
func newVersionInfo(version, commit, buildDate string, settings []debug.BuildSetting) VersionInfo {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == unknownStr {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.BuildDate == unknownStr {
				info.BuildDate = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	if t, err := time.Parse(time.RFC3339, info.BuildDate); err == nil {
		info.BuildDate = t.UTC().Format("2006-01-02 15:04:05 MST")
	}

	if info.Version == "dev" {
		info.Version = fmt.Sprintf("build-%.*s", 8, info.Commit)
	}
	return info
}
