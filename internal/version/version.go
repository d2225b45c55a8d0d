// Package version holds build metadata injected with -ldflags:
//
//	go build -ldflags "-X github.com/vogonweb/vogon/internal/version.Version=1.4.0"
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is the build metadata reported by /health.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// Current returns the build metadata of the running binary.
func Current() Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
}

// String renders "version (commit)" for page footers.
func (i Info) String() string {
	if i.GitCommit == "" || i.GitCommit == "unknown" {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit)
}
