package cli

import (
	"context"
	"log/slog"

	"github.com/cruciblehq/cruxmatrix/internal/build"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
)

// Platform selection shared by pipeline commands.
type PlatformFlags struct {
	Platforms []string `name:"platform" short:"p" help:"Target platform, repeatable. Defaults to the manifest platforms, or the host." env:"CRUXMATRIX_PLATFORMS" sep:"," placeholder:"OS/ARCH[/VARIANT]"`
}

// Loads the project and runs the pipeline in mode.
func runPipeline(ctx context.Context, mode build.Mode, requested []string, distDir string) (*build.Result, error) {
	p, err := loadProject()
	if err != nil {
		return nil, err
	}

	// Unsupported platforms fail their own pipelines; the rest still run.
	contexts, err := p.contexts(requested)
	unsupported := platform.UnsupportedPlatforms(err)
	if err != nil && unsupported == nil {
		return nil, err
	}

	s, err := openSession(p, distDir)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	result, err := build.Run(ctx, build.Options{
		Manifest:    p.manifest,
		Snapshot:    s.snapshot,
		Contexts:    contexts,
		Unsupported: unsupported,
		Host:        p.host,
		Store:       s.store,
		Runner:      s.runner,
		Mode:        mode,
		WorkDir:     s.workDir,
		DistDir:     s.distDir,
		Jobs:        RootCmd.Jobs,
		KeepWork:    RootCmd.KeepWork,
	})
	if err != nil {
		// Report whatever finished before the run was cut short.
		if result != nil && result.Checks.Len() > 0 {
			if perr := printChecks(result.Checks); perr != nil {
				slog.Warn("failed to print partial results", "error", perr)
			}
		}
		return nil, err
	}

	s.warnChanged()
	slog.Debug("run complete", "run", result.RunID, "compiles", result.Compiles)
	return result, nil
}
