// Package version holds the labdesc build identity, stamped via ldflags:
//
//	-X github.com/ethpandaops/labdesc/internal/version.Version=v1.2.0
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String renders the build identity for the version command.
func String() string {
	return fmt.Sprintf("labdesc %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
