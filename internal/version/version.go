// Package version holds build information injected with -ldflags.
package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X gochat/internal/version.Version=v1.2.3 -X gochat/internal/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line build description.
func Info() string {
	return fmt.Sprintf("gochat %s (commit %s, built %s)", Version, Commit, Date)
}
