package build

import (
	"maps"

	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/cruciblehq/cruxmatrix/internal/toolchain"
)

// Environment and location for invocations of one stage.
//
// The base state comes from the build context. Stage-level env is layered
// on top via resolve without modifying the base.
type stageState struct {
	platform string
	image    string
	dir      string
	env      map[string]string
}

// Creates the base state for a build context.
func newStageState(bc *platform.BuildContext) *stageState {
	return &stageState{
		platform: bc.Platform().String(),
		image:    bc.Toolchain().Image,
		env:      bc.Env(),
	}
}

// Returns a new state for a stage running in dir with its own env. The
// receiver is not modified.
func (s *stageState) resolve(dir string, stageEnv map[string]string) *stageState {
	resolved := &stageState{
		platform: s.platform,
		image:    s.image,
		dir:      dir,
		env:      make(map[string]string, len(s.env)+len(stageEnv)),
	}
	maps.Copy(resolved.env, s.env)
	maps.Copy(resolved.env, stageEnv)
	return resolved
}

// Returns the toolchain invocation for args in this state.
func (s *stageState) invocation(stage string, args []string) toolchain.Invocation {
	return toolchain.Invocation{
		Stage:    stage,
		Platform: s.platform,
		Args:     args,
		Dir:      s.dir,
		Env:      maps.Clone(s.env),
		Image:    s.image,
	}
}
