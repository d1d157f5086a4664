// Package version exposes build metadata of the gate controller binaries.
//
// Version, Commit and BuildTime are injected with -ldflags at build time and
// keep development defaults otherwise.
package version
