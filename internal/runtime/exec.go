package runtime

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Output of a command run inside a container.
type ExecResult struct {
	ExitCode int
	Output   string // Interleaved standard output and standard error.
}

// Runs a command inside the container.
//
// env is layered over the image environment and workdir replaces the image
// working directory for this command only. A nonzero exit is reported in
// the result, not as an error. When ctx is cancelled the process is killed
// and ctx.Err() is returned.
func (c *Container) Exec(ctx context.Context, args []string, env []string, workdir string) (*ExecResult, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	pspec := processSpec(spec.Process, args, env, workdir)

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	var out outputBuffer
	process, err := task.Exec(ctx, execID(), pspec, cio.NewCreator(cio.WithStreams(nil, &out, &out)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	code, err := awaitProcess(ctx, process)
	if err != nil {
		return nil, err
	}
	return &ExecResult{ExitCode: code, Output: out.String()}, nil
}

// Returns the process spec for a command, derived from the container's
// own process. base is not modified.
func processSpec(base *specs.Process, args, env []string, workdir string) *specs.Process {
	pspec := *base
	pspec.Terminal = false
	pspec.Args = slices.Clone(args)
	pspec.Env = overlayEnv(base.Env, env)
	if workdir != "" {
		pspec.Cwd = workdir
	}
	return &pspec
}

// Returns a unique exec process ID.
func execID() string {
	return "exec-" + uuid.NewString()
}

// Layers "KEY=value" entries over an image environment. The result is
// sorted; malformed entries are dropped.
func overlayEnv(image, overlay []string) []string {
	merged := make(map[string]string, len(image)+len(overlay))
	for _, entries := range [][]string{image, overlay} {
		for _, entry := range entries {
			if k, v, ok := strings.Cut(entry, "="); ok && k != "" {
				merged[k] = v
			}
		}
	}

	env := make([]string, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// Waits for an exec process to exit and returns its exit code.
//
// The process is always deleted before returning, and killed first when
// ctx is cancelled.
func awaitProcess(ctx context.Context, process containerd.Process) (int, error) {
	cleanup := context.WithoutCancel(ctx)

	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(cleanup, containerd.WithProcessKill)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(cleanup, containerd.WithProcessKill)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	var status containerd.ExitStatus
	select {
	case status = <-statusC:
		process.Delete(cleanup)
	case <-ctx.Done():
		process.Delete(cleanup, containerd.WithProcessKill)
		return 0, ctx.Err()
	}

	code, _, err := status.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return int(code), nil
}

// Buffer shared by the stdout and stderr copiers.
type outputBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
