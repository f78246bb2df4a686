package versions

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVersionInfo(t *testing.T) {
	t.Parallel()

	vcs := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		settings      []debug.BuildSetting
		wantVersion   string
		wantCommit    string
		wantBuildDate string
		wantModified  bool
	}{
		{
			name:          "release build",
			version:       "v1.2.3",
			commit:        "abcdef1234567890",
			buildDate:     "2026-01-02T03:04:05Z",
			wantVersion:   "v1.2.3",
			wantCommit:    "abcdef1234567890",
			wantBuildDate: "2026-01-02 03:04:05 UTC",
		},
		{
			name:          "dev build from vcs settings",
			version:       "dev",
			commit:        unknownStr,
			buildDate:     unknownStr,
			settings:      vcs,
			wantVersion:   "build-01234567",
			wantCommit:    "0123456789abcdef",
			wantBuildDate: "2026-01-02 03:04:05 UTC",
			wantModified:  true,
		},
		{
			name:          "linker values win over vcs settings",
			version:       "dev",
			commit:        "fedcba9876543210",
			buildDate:     "not-a-date",
			settings:      vcs,
			wantVersion:   "build-fedcba98",
			wantCommit:    "fedcba9876543210",
			wantBuildDate: "not-a-date",
			wantModified:  true,
		},
		{
			name:          "dev build without vcs",
			version:       "dev",
			commit:        unknownStr,
			buildDate:     unknownStr,
			wantVersion:   "build-unknown",
			wantCommit:    unknownStr,
			wantBuildDate: unknownStr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := newVersionInfo(tt.version, tt.commit, tt.buildDate, tt.settings)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.wantCommit, info.Commit)
			assert.Equal(t, tt.wantBuildDate, info.BuildDate)
			assert.Equal(t, tt.wantModified, info.Modified)
			assert.NotEmpty(t, info.GoVersion)
			assert.Contains(t, info.Platform, "/")
		})
	}
}

func TestVersionInfo_Format(t *testing.T) {
	t.Parallel()

	info := VersionInfo{
		Version:   "v1.0.0",
		Commit:    "abc123",
		BuildDate: "2026-01-02 03:04:05 UTC",
		Modified:  true,
		GoVersion: "go1.25.2",
		Platform:  "linux/amd64",
	}

	assert.Equal(t, "catalog-ingester/v1.0.0 (linux/amd64)", info.UserAgent())
	assert.Equal(t,
		"catalog-ingester v1.0.0 (commit abc123-dirty, built 2026-01-02 03:04:05 UTC, go1.25.2, linux/amd64)",
		info.String())
}
