package toolchain

import (
	"context"
	"strings"
)

// A single toolchain command.
type Invocation struct {
	Stage    string            // Pipeline stage issuing the command, such as "deps" or "lint".
	Platform string            // Target platform identifier.
	Args     []string          // Command and arguments.
	Dir      string            // Working directory.
	Env      map[string]string // Environment overlay applied over the runner's base environment.
	Image    string            // Toolchain image archive, used by container runners.
}

// Returns the command line for logs.
func (inv Invocation) String() string {
	return strings.Join(inv.Args, " ")
}

// Outcome of a toolchain command that ran to completion.
type Result struct {
	ExitCode int    // Process exit code. Zero means success.
	Log      string // Interleaved standard output and standard error.
}

// Reports whether the command succeeded.
func (r *Result) OK() bool {
	return r.ExitCode == 0
}

// Runs toolchain invocations.
//
// Implementations must be safe for concurrent use and must stop the
// command when ctx is cancelled, returning an error wrapping [ErrCancelled].
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}
