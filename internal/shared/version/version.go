// Package version holds the build-time version string, overridable via
// -ldflags "-X indexchan/internal/shared/version.Version=...".
package version

var Version = "dev"
