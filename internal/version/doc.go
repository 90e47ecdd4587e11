// Package version exposes build metadata injected through ldflags.
// The firmware version doubles as serverInfo.version in tool initialization
// replies when the settings file does not override it.
package version
