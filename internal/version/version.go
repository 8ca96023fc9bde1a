// Package version exposes build metadata stamped in via ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version (set by ldflags during build)
	Version = "dev"
	// Commit is the git commit hash (set by ldflags during build)
	Commit = "unknown"
	// Date is the build date (set by ldflags during build)
	Date = "unknown"
)

// Info is the version payload surfaced by the CLI
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the build metadata for the running binary. The commit is
// truncated for display; the full hash lives in the binary's build info.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    shortCommit(Commit),
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Short returns just the version number
func (i Info) Short() string {
	return i.Version
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
