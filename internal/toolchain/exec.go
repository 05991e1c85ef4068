package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cruciblehq/cruxmatrix/internal/library"
)

// Host variables passed through to toolchain subprocesses by default.
var DefaultPassthrough = []string{
	"PATH", "HOME", "USER", "LOGNAME", "TMPDIR", "TEMP", "TMP",
	"LANG", "LC_ALL", "TERM", "SHELL", "SYSTEMROOT", "USERPROFILE",
	"CARGO_HOME", "RUSTUP_HOME", "GOPATH", "GOCACHE", "GOMODCACHE",
	"SSL_CERT_FILE", "SSL_CERT_DIR",
}

// Time a cancelled process is given to release its output pipes.
const waitDelay = 5 * time.Second

// Runs invocations as host subprocesses.
type ExecRunner struct {
	passthrough []string
	environ     func() []string
}

// Creates a subprocess runner.
//
// Only host variables named in passthrough reach the subprocess; nil
// selects [DefaultPassthrough]. Everything else comes from the invocation
// overlay, so two hosts with different shells produce the same build.
func NewExecRunner(passthrough []string) *ExecRunner {
	if passthrough == nil {
		passthrough = DefaultPassthrough
	}
	return &ExecRunner{passthrough: passthrough, environ: os.Environ}
}

func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if len(inv.Args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrInvocation)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	env := r.Environ(inv.Env)

	name, err := LookPath(inv.Args[0], env)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvocation, err)
	}

	cmd := exec.CommandContext(ctx, name, inv.Args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = env
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var out syncBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	slog.Debug("running toolchain", "stage", inv.Stage, "platform", inv.Platform, "command", inv.String(), "dir", inv.Dir)

	err = cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCancelled, inv.String(), ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
	default:
		return nil, fmt.Errorf("%w: %s: %w", ErrInvocation, inv.String(), err)
	}

	res := &Result{ExitCode: cmd.ProcessState.ExitCode(), Log: out.String()}
	slog.Debug("toolchain finished", "stage", inv.Stage, "platform", inv.Platform, "exit", res.ExitCode, "duration", time.Since(start))
	return res, nil
}

// Returns the subprocess environment for an overlay.
//
// Passthrough variables are copied from the host, then the overlay is
// applied with search path variables prepended to the inherited value.
func (r *ExecRunner) Environ(overlay map[string]string) []string {
	var base []string
	for _, entry := range r.environ() {
		k, _, ok := strings.Cut(entry, "=")
		if ok && slices.Contains(r.passthrough, k) {
			base = append(base, entry)
		}
	}
	return library.Apply(base, overlay, string(os.PathListSeparator))
}

// Resolves a command name against the PATH in env.
//
// exec.Command resolves against the parent's PATH, which differs from the
// subprocess PATH once the overlay prepends library directories.
func LookPath(name string, env []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return name, nil
	}
	var pathVar string
	for _, entry := range env {
		if v, ok := strings.CutPrefix(entry, "PATH="); ok {
			pathVar = v
		}
	}
	for _, dir := range filepath.SplitList(pathVar) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if p, err := exec.LookPath(candidate); err == nil {
			return p, nil
		}
	}
	return exec.LookPath(name)
}

// Writer shared by stdout and stderr.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
