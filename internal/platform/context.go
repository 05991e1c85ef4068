package platform

import (
	"maps"
	"slices"

	"github.com/cruciblehq/cruxmatrix/internal/library"
)

// Everything a pipeline needs to build for one target platform.
//
// A BuildContext is immutable once created. Accessors return copies, so a
// context can be shared freely between concurrent stages of its pipeline.
type BuildContext struct {
	platform  Platform
	toolchain Toolchain
	libraries library.List
	env       map[string]string
}

// Creates a build context.
//
// The environment is layered as toolchain env, then the library overlay,
// then project env, with later layers winning.
func NewBuildContext(p Platform, tc Toolchain, libs library.List, overlay, projectEnv map[string]string) *BuildContext {
	env := make(map[string]string, len(tc.Env)+len(overlay)+len(projectEnv))
	maps.Copy(env, tc.Env)
	maps.Copy(env, overlay)
	maps.Copy(env, projectEnv)

	tc.Env = maps.Clone(tc.Env)
	return &BuildContext{
		platform:  p,
		toolchain: tc,
		libraries: slices.Clone(libs),
		env:       env,
	}
}

// Returns the target platform.
func (c *BuildContext) Platform() Platform {
	return c.platform
}

// Returns the toolchain for the target platform.
func (c *BuildContext) Toolchain() Toolchain {
	tc := c.toolchain
	tc.Env = maps.Clone(tc.Env)
	return tc
}

// Returns the declared external libraries.
func (c *BuildContext) Libraries() library.List {
	return slices.Clone(c.libraries)
}

// Returns the environment overrides applied to every toolchain invocation.
func (c *BuildContext) Env() map[string]string {
	return maps.Clone(c.env)
}
