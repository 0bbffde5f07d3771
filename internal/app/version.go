package app

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/tejashwikalptaru/tunequeue/internal/app.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	GitTag    = ""
	BuildTime = ""
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string
	GitCommit string
	GitTag    string
	BuildTime string
	Modified  bool
}

// GetVersionInfo returns the ldflags values, falling back to the VCS stamp
// the Go toolchain embeds in module builds.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	return info
}

// FullString formats the version for `tunequeue --version` and the startup log.
func (v VersionInfo) FullString() string {
	version := v.Version
	if v.GitTag != "" {
		version = v.GitTag
	}

	commit := v.GitCommit
	if commit == "" {
		commit = "unknown"
	} else if len(commit) > 12 {
		commit = commit[:12]
	}
	if v.Modified {
		commit += "-dirty"
	}

	built := v.BuildTime
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("TuneQueue %s (commit: %s, built: %s)", version, commit, built)
}
