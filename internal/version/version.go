// Package version reports the version htmlc was built as.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version of the application
	Version = "dev"

	// GitCommit is the git commit hash when the binary was built
	GitCommit = "unknown"

	// BuildTime is the time when the binary was built (RFC3339 format)
	BuildTime = "unknown"
)

// GetVersion returns the application version, preferring the ldflags value
// over the module version recorded by the Go toolchain.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return strings.TrimPrefix(Version, "v")
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return strings.TrimPrefix(info.Main.Version, "v")
		}

		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				return "dev-" + setting.Value[:7]
			}
		}
	}

	return "dev"
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "unknown"
}

// Banner is the line printed by `htmlc version` and at the start of a
// batch run.
func Banner() string {
	v := GetVersion()
	if v != "" && v[0] >= '0' && v[0] <= '9' {
		return "htmlc v" + v
	}
	return "htmlc " + v
}

// GetDetailedVersion returns the banner followed by the build details
func GetDetailedVersion() string {
	parts := []string{Banner()}

	if commit := GetGitCommit(); commit != "unknown" {
		parts = append(parts, fmt.Sprintf("Commit: %s", commit))
	}
	if built := parseISOTime(BuildTime); !built.IsZero() {
		parts = append(parts, fmt.Sprintf("Built: %s", built.Format(time.RFC3339)))
	}
	parts = append(parts, fmt.Sprintf("Go: %s", runtime.Version()))
	parts = append(parts, fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH))

	return strings.Join(parts, "\n")
}

// parseISOTime parses an ISO 8601 time string, returns zero time on error
func parseISOTime(timeStr string) time.Time {
	if timeStr == "" || timeStr == "unknown" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t
		}
	}

	return time.Time{}
}
