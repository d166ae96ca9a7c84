// Package version provides build and version information for vgrep.
package version

import (
	"fmt"
	"runtime"
)

// Version is set via ldflags at build time, or defaults to dev.
var Version = "dev"

// Build information set via ldflags at build time.
var (
	Commit    = "unknown"
	Date      = "unknown"
	GoVersion = runtime.Version()
)

// String returns a formatted version string with all build info.
func String() string {
	return fmt.Sprintf("vgrep %s (commit: %s, built: %s, go: %s)", Version, Commit, Date, GoVersion)
}

// Short returns just the version string.
func Short() string {
	return Version
}
