// Package build carries version metadata injected at link time.
package build

import "fmt"

var (
	// Version is the release version, set via -ldflags.
	Version = "dev"

	// Commit is the git commit hash, set via -ldflags.
	Commit = "unknown"
)

// String returns a human-readable version line.
func String() string {
	return fmt.Sprintf("wordscape %s (%s)", Version, Commit)
}
