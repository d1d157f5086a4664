package version

import "fmt"

var (
	// Version is the release of the controller, set with -ldflags "-X .../version.Version=...".
	Version = "0.1.0-dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the release string.
func Short() string {
	return Version
}

// Full returns the release with commit and build time.
func Full() string {
	return fmt.Sprintf("gate-controller %s (commit %s, built %s)", Version, Commit, BuildTime)
}
