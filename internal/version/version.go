package version

import "runtime/debug"

// Version is the current semantic version
const Version = "0.3.0"

// Build metadata, set with -ldflags "-X"
var (
	// BuildDate is set during build time (use -ldflags)
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags)
	GitCommit = "unknown"
)

// Info returns version information as a string
func Info() string {
	return Version
}

// FullInfo returns detailed version information
func FullInfo() string {
	return "xref " + Version + " (commit: " + commit() + ", built: " + BuildDate + ")"
}

// commit returns the ldflags value, falling back to the VCS revision stamped
// by the go tool.
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			return s.Value[:12]
		}
	}
	return GitCommit
}
