package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"

	"github.com/cruciblehq/cruxmatrix/internal/devenv"
	"github.com/cruciblehq/cruxmatrix/internal/toolchain"
)

// Represents the 'cruxmatrix develop' command.
type DevelopCmd struct {
	Command []string `arg:"" optional:"" passthrough:"" help:"Command to run in the environment. Prints shell exports when omitted."`
}

// Executes the develop command.
//
// The environment carries the same library overlay and host toolchain
// settings the build stages use. Without a command the overlay is printed
// as export statements, suitable for eval. With one, the command runs with
// the overlay applied and its exit status is forwarded.
func (c *DevelopCmd) Run(ctx context.Context) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	m := p.manifest

	tc, ok := m.Table().Lookup(p.host)
	if !ok {
		slog.Debug("no toolchain mapping for host; using bare environment", "host", p.host)
	}

	env := maps.Clone(m.Env)
	maps.Copy(env, m.Develop.Env)

	dev := devenv.Compose(devenv.Input{
		Host:      p.host,
		Toolchain: tc,
		Libraries: m.Libraries,
		Overrides: p.overrides,
		Tools:     m.Develop.Tools,
		Env:       env,
	})

	for _, tool := range dev.Tools {
		if _, err := exec.LookPath(tool); err != nil {
			slog.Warn("tool not found", "tool", tool)
		}
	}

	if len(c.Command) == 0 {
		fmt.Print(dev.Exports())
		return nil
	}

	return runIn(ctx, dev, c.Command)
}

// Runs args with the environment applied, forwarding its exit status.
func runIn(ctx context.Context, dev *devenv.Environment, args []string) error {
	environ := dev.Environ(os.Environ(), string(os.PathListSeparator))

	path, err := toolchain.LookPath(args[0], environ)
	if err != nil {
		return &ExitError{Code: 127, Err: err}
	}

	cmd := exec.CommandContext(ctx, path, args[1:]...)
	cmd.Env = environ
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	slog.Debug("running in development environment", "command", args)

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}
