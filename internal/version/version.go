// Package version holds the build version, overridden at link time with
// -ldflags "-X patwa/internal/version.Version=...".
package version

// Version is the application version.
var Version = "0.1.0-dev"
