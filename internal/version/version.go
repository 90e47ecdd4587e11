package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the firmware version, overridable via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Info is the machine readable build description.
type Info struct {
	// Program is the binary name.
	Program string `json:"program"`
	// Version is the firmware version.
	Version string `json:"version"`
	// Commit is the source revision.
	Commit string `json:"commit"`
	// BuildTime is the build timestamp.
	BuildTime string `json:"build_time"`
	// GoVersion is the toolchain that built the binary.
	GoVersion string `json:"go_version"`
	// Platform is GOOS/GOARCH.
	Platform string `json:"platform"`
}

// Short returns only the semantic version string.
// The device reports it as the firmware version when settings leave it empty.
func Short() string {
	return Version
}

// Describe returns the build description of program.
func Describe(program string) Info {
	return Info{
		Program:   program,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the one-line form printed by the version command.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s %s)",
		i.Program, i.Version, i.Commit, i.BuildTime, i.GoVersion, i.Platform)
}
