// Package version exposes the build version of the bulklist binary.
package version

// Version is the semantic version of this build. Release builds override it
// via -ldflags "-X github.com/bulklist/bulklist/pkg/version.Version=...".
//
//nolint:gochecknoglobals // set at link time
var Version = "0.1.0-dev"

// GetVersion returns the version string for the running binary.
func GetVersion() string {
	return Version
}
