// SPDX-License-Identifier: MIT
//
// Package build carries the metadata embedded into the pitchscope binary at
// link time: name, build timestamp, commit and semantic version. The values
// are injected with -ldflags, for example:
//
//	go build -ldflags "-X pitchscope/pkg/build.buildName=pitchscope \
//	  -X pitchscope/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds run without them; Initialize reports which flag is
// missing and the caller decides whether that is fatal.
package build

import "errors"

// Description is the one-line summary shown by the CLI.
const Description = "Real-time pitch and level analyzer for PCM audio input"

var (
	ErrMissingName    = errors.New("BuildName is required")
	ErrMissingTime    = errors.New("BuildTime is required")
	ErrMissingCommit  = errors.New("BuildCommit is required")
	ErrMissingVersion = errors.New("BuildVersion is required")
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "pitchscope",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize validates and copies build information from the ldflags
// variables into the flags returned by GetBuildFlags. On error the
// development defaults stay in place.
func Initialize() error {
	if buildName == "" {
		return ErrMissingName
	}
	if buildTime == "" {
		return ErrMissingTime
	}
	if buildCommit == "" {
		return ErrMissingCommit
	}
	if buildVersion == "" {
		return ErrMissingVersion
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
