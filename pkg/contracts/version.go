// Package contracts holds the types shared by the server, the CLI and
// clients of the JSON API.
package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the application release
const Version = "0.3.0"

const (
	// DataFormatVersion versions the Parquet and CSV record layouts
	DataFormatVersion = "v1"

	// APIVersion versions the HTTP and WebSocket messages
	APIVersion = "v1"
)

// Set with -ldflags "-X eventdash/pkg/contracts.GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served by /api/version
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo reports the build. Without ldflags the commit and build
// time fall back to the VCS stamp embedded by the go tool.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "unknown":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildTime == "unknown":
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// GetVersionString is the one-line banner used by the CLI usage text
func GetVersionString() string {
	info := GetVersionInfo()
	commit := info.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("Patient Event Dashboard v%s (%s, %s)", info.Version, commit, info.GoVersion)
}
