package cli

import (
	"context"

	"github.com/cruciblehq/cruxmatrix/internal/build"
)

// Represents the 'cruxmatrix build' command.
type BuildCmd struct {
	PlatformFlags `embed:""`
	DepsOnly      bool `help:"Only build and cache dependencies."`
}

// Executes the build command.
//
// Builds the dependency cache and the package for every platform, prints
// the check table and fails if any check did not pass.
func (c *BuildCmd) Run(ctx context.Context) error {
	mode := build.ModeBuild
	if c.DepsOnly {
		mode = build.ModeDeps
	}

	result, err := runPipeline(ctx, mode, c.Platforms, "")
	if err != nil {
		return err
	}

	if err := printChecks(result.Checks); err != nil {
		return err
	}
	return checksFailed(result.Checks.Failed())
}
