// Package version holds build metadata injected with ldflags:
//
//	go build -ldflags "-X git.home.luguber.info/inful/cmsbuild/internal/version.Version=v0.3.0"
package version

import "fmt"

// Version is the release tag.
var Version = "unknown"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version line printed by --version.
func String() string {
	return fmt.Sprintf("cmsbuild %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
