// Package version exposes build information set at link time, e.g.
//
//	go build -ldflags "-X github.com/Sumatoshi-tech/treematch/pkg/version.Version=v1.2.0"
package version

import "fmt"

// Build information. Overridden with -ldflags -X at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build information for humans.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
