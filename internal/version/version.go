// Package version holds the release version stamped into the binaries.
package version

// Version is overridden at build time with
// -ldflags "-X github.com/fairdatasociety/fairos_sdk_go/internal/version.Version=v0.3.0".
var Version = "0.1.0-dev"
