package version

import "runtime"

// Build information, set with -ldflags "-X".
var (
	Version = "dev"
	Commit  = ""
)

// String is the version with the commit appended when known.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}

// UserAgent identifies stashdrop in outbound HTTP requests.
func UserAgent() string {
	return "stashdrop/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
