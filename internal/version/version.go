// Package version carries build-time version metadata for the dispatcher
// and worker binaries.
package version

// VERSION of the build. Set during the build process with -ldflags.
var VERSION = "undefined"
