package toolchain

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/cruciblehq/cruxmatrix/internal/library"
	"github.com/cruciblehq/cruxmatrix/internal/runtime"
	"github.com/google/uuid"
)

// Runs invocations inside toolchain containers.
//
// Each invocation gets a fresh container from the platform's toolchain
// image, with the invocation directory bind mounted at the same path. The
// container is destroyed when the command exits.
type ContainerRunner struct {
	rt *runtime.Runtime
}

// Creates a container runner on an open runtime.
func NewContainerRunner(rt *runtime.Runtime) *ContainerRunner {
	return &ContainerRunner{rt: rt}
}

func (r *ContainerRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if len(inv.Args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrInvocation)
	}
	if inv.Image == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoImage, inv.Platform)
	}

	id := fmt.Sprintf("cruxmatrix-%s-%s", inv.Stage, uuid.NewString())
	ctr, err := r.rt.StartContainer(ctx, inv.Image, id, inv.Platform, []string{inv.Dir})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvocation, err)
	}
	defer ctr.Destroy(context.WithoutCancel(ctx))

	res, err := ctr.Exec(ctx, inv.Args, containerEnv(inv.Env), inv.Dir)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrCancelled, inv.String(), err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvocation, inv.String(), err)
	}

	return &Result{ExitCode: res.ExitCode, Log: res.Output}, nil
}

// Converts an overlay to "KEY=value" entries.
//
// Search path variables from the host overlay name host directories, which
// do not exist inside the image, so they are left to the image defaults.
func containerEnv(overlay map[string]string) []string {
	env := make([]string, 0, len(overlay))
	for _, k := range slices.Sorted(maps.Keys(overlay)) {
		if library.IsSearchPath(k) {
			continue
		}
		env = append(env, k+"="+overlay[k])
	}
	return env
}
