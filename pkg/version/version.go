// Package version exposes the build metadata stamped into trove binaries.
//
// Release builds overwrite the package variables through -ldflags, for
// example:
//
//	-X github.com/trove-dev/trove/pkg/version.Version=v1.2.0
//
// Unstamped builds report "dev" with unknown commit and date.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the short git commit hash the binary was built from.
	Commit = "unknown"

	// Date is the RFC3339 build timestamp.
	Date = "unknown"
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns the full build metadata, including the Go toolchain
// version and target platform captured at link time.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// String returns the one-line human form used by `trove version`.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("trove %s (commit: %s, built: %s, go: %s)",
		info.Version, info.Commit, info.Date, info.GoVersion)
}

// Short returns only the version number.
func Short() string {
	return Version
}
