package devenv

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cruciblehq/cruxmatrix/internal/library"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
)

// Inputs to [Compose].
type Input struct {
	Host      platform.Platform  // Host platform.
	Toolchain platform.Toolchain // Toolchain settings for the host platform.
	Libraries library.List       // Declared external libraries.
	Overrides map[string]string  // Library prefix overrides, by name.
	Tools     []string           // Tools the environment provides.
	Env       map[string]string  // Extra environment, applied last.
}

// An interactive development environment descriptor.
type Environment struct {
	Platform string            // Host platform identifier.
	Tools    []string          // Provided tools, sorted and deduplicated.
	Env      map[string]string // Environment overlay.
}

// Composes the development environment.
//
// The overlay is layered as toolchain env, then library overlay, then
// extra env, the same order build contexts use.
func Compose(in Input) *Environment {
	overlay := library.Overlay(in.Libraries, in.Overrides, in.Host.OS)
	ctx := platform.NewBuildContext(in.Host, in.Toolchain, in.Libraries, overlay, in.Env)

	tools := slices.Clone(in.Tools)
	slices.Sort(tools)
	tools = slices.Compact(tools)

	return &Environment{
		Platform: in.Host.String(),
		Tools:    tools,
		Env:      ctx.Env(),
	}
}

// Renders the overlay as POSIX shell export statements, sorted by name.
//
// Search path variables are prepended to the variable's current value.
func (e *Environment) Exports() string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(e.Env)) {
		v := quote(e.Env[k])
		if library.IsSearchPath(k) && e.Env[k] != "" {
			v += fmt.Sprintf(`"${%s:+:$%s}"`, k, k)
		}
		fmt.Fprintf(&b, "export %s=%s\n", k, v)
	}
	return b.String()
}

// Applies the overlay to a base environment of "KEY=value" entries.
func (e *Environment) Environ(base []string, sep string) []string {
	return library.Apply(base, e.Env, sep)
}

// Quotes s for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
