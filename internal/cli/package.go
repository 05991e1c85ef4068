package cli

import (
	"context"

	"github.com/cruciblehq/cruxmatrix/internal/build"
	"github.com/cruciblehq/cruxmatrix/internal/check"
)

// Represents the 'cruxmatrix package' command.
type PackageCmd struct {
	PlatformFlags `embed:""`
	Out           string `short:"o" help:"Package output directory. Defaults to dist in the project root." type:"path" placeholder:"DIR"`
}

// Executes the package command.
//
// Builds one package per platform along with an OCI image layout
// describing it, then prints each package with its digest.
func (c *PackageCmd) Run(ctx context.Context) error {
	result, err := runPipeline(ctx, build.ModePackage, c.Platforms, c.Out)
	if err != nil {
		return err
	}

	printLogs(stderr, result.Checks)
	if err := printPackages(stdout, result.Packages); err != nil {
		return err
	}
	if !result.Checks.Passed() {
		if err := check.Encode(stderr, result.Checks, check.FormatText); err != nil {
			return err
		}
	}
	return checksFailed(result.Checks.Failed())
}
