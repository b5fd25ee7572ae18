package version

// Version information for the middle end, stamped into plan cache entries
// so a cache built by one build never satisfies a lookup from another.
// These variables can be overridden at build time via -ldflags.

var (
	// Version is the semantic version of this module.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)
