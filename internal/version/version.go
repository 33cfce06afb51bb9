// Package version carries build metadata stamped in via ldflags.
package version

var (
	// Version is the current benchlink version.
	Version = "dev"
	// GitSHA is the git commit SHA of the build.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
