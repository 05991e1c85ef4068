package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cruciblehq/cruxmatrix/internal/build"
	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/paths"
)

// Represents the 'cruxmatrix check' command.
type CheckCmd struct {
	PlatformFlags `embed:""`
	Report        string `help:"Write a machine-readable report to FILE." type:"path" placeholder:"FILE"`
	Format        string `help:"Report format (${enum})." enum:"json,yaml,text" default:"json"`
}

// Executes the check command.
//
// Runs dependencies, lint, test and package for every platform. Every
// check is printed; failing check names also go to stderr.
func (c *CheckCmd) Run(ctx context.Context) error {
	result, err := runPipeline(ctx, build.ModeCheck, c.Platforms, "")
	if err != nil {
		return err
	}

	if err := printChecks(result.Checks); err != nil {
		return err
	}

	if c.Report != "" {
		if err := writeReport(c.Report, c.Format, result.Checks); err != nil {
			return err
		}
		slog.Info("report written", "path", c.Report, "format", c.Format)
	}

	failed := result.Checks.Failed()
	for _, name := range failed {
		fmt.Fprintln(stderr, name)
	}
	return checksFailed(failed)
}

func writeReport(path, format string, s *check.Set) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}
	if err := check.Encode(f, s, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
