package versions

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// It uses semantic versioning for comparison when both strings are valid semver,
// and falls back to lexicographic string comparison otherwise.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	if errNew != nil || errOld != nil {
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}

// IsNewerAPIVersion compares two descriptor apiVersions such as
// catalog.backstage.io/v2 and catalog.backstage.io/v1. Only the segment after
// the last slash is compared when both share the same group.
func IsNewerAPIVersion(newAPIVersion, oldAPIVersion string) bool {
	newGroup, newVersion := splitAPIVersion(newAPIVersion)
	oldGroup, oldVersion := splitAPIVersion(oldAPIVersion)

	if newGroup != oldGroup {
		return newAPIVersion > oldAPIVersion
	}
	return IsNewerVersion(newVersion, oldVersion)
}

func splitAPIVersion(apiVersion string) (group, version string) {
	idx := strings.LastIndex(apiVersion, "/")
	if idx < 0 {
		return "", apiVersion
	}
	return apiVersion[:idx], apiVersion[idx+1:]
}
