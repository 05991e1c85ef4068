package internal

import (
	"fmt"
	"runtime"
	"strings"
)

const (

	// Placeholder for a build variable that was not injected.
	defaultUndefined = "(undefined)"

	// Version string reported by developer builds.
	defaultLocalBuild = "(local)"

	// Branch whose builds omit the stage suffix.
	mainBranch = "main"
)

var (
	version   = "" // Release version (e.g., "0.4.0").
	stage     = "" // Branch the binary was built from (e.g., "main").
	gitCommit = "" // Commit hash of the build.

	rawQuiet   = "false" // Quiet mode default.
	rawDebug   = "false" // Debug mode default.
	rawVerbose = "false" // Verbose mode default.
)

// Returns the release version without a leading "v".
//
// Returns "(undefined)" when the version was not injected at link time.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return defaultUndefined
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// Returns the branch the binary was built from, or "(undefined)".
func Stage() string {
	s := strings.TrimSpace(stage)
	if s == "" {
		return defaultUndefined
	}
	return strings.ToLower(s)
}

// Returns the commit hash of the build, or "(undefined)".
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Returns the platform the binary runs on, as "os/arch".
func HostPlatform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// Reports whether the binary is a developer build.
//
// Pipeline builds inject version, commit and stage; missing any of them marks
// the binary as local.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns a version line for display.
//
// Local builds report "(local)". Pipeline builds report
// "<version>[+<stage>] <commit> [<os/arch>]", omitting the stage for main.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	s := Stage()
	if s == mainBranch {
		s = ""
	} else {
		s = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), s, GitCommit(), HostPlatform())
}
