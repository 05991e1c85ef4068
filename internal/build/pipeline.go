package build

import (
	"context"
	"log/slog"

	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"golang.org/x/sync/errgroup"
)

// Shared state for every platform pipeline of a run.
type pipeline struct {
	opts   Options
	runDir string
	deps   *depsBuilder
}

// Returns the stages after deps that this run executes.
func (p *pipeline) stages() []string {
	m := p.opts.Manifest
	var stages []string
	if p.opts.Mode == ModeCheck {
		if m.Lint != nil {
			stages = append(stages, check.StageLint)
		}
		if m.Test != nil {
			stages = append(stages, check.StageTest)
		}
	}
	if p.opts.Mode != ModeDeps && m.Package != nil {
		stages = append(stages, check.StagePackage)
	}
	return stages
}

// Runs every stage for one build context.
//
// The dependency artifact is resolved first. On failure every later stage
// is recorded as skipped and never started. Otherwise the later stages run
// concurrently and each records its own result. The returned set always
// holds every result produced; the error is non-nil only on cancellation.
func (p *pipeline) runPlatform(ctx context.Context, bc *platform.BuildContext) (*check.Set, *Package, error) {
	id := bc.Platform().String()
	set := check.NewSet()
	stages := p.stages()

	slog.Info("building platform", "platform", id, "stages", stages)

	out, err := p.deps.resolve(ctx, bc)
	if err != nil && isCancellation(err) {
		return set, nil, err
	}
	set.Add(depsResult(id, out, err))

	if err != nil {
		slog.Warn("dependencies failed", "platform", id, "error", err)
		for _, stage := range stages {
			set.Add(check.Skip(id, stage, "dependency build failed"))
		}
		return set, nil, nil
	}

	var pkg *Package
	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range stages {
		g.Go(func() error {
			var (
				r   *check.StageResult
				err error
			)
			switch stage {
			case check.StageLint:
				r, err = p.lint(gctx, bc, out)
			case check.StageTest:
				r, err = p.test(gctx, bc, out)
			case check.StagePackage:
				r, pkg, err = p.pack(gctx, bc, out)
			}
			if err != nil {
				return err
			}
			return set.Add(r)
		})
	}

	if err := g.Wait(); err != nil {
		return set, nil, err
	}
	return set, pkg, nil
}

// Returns the results for a platform that has no toolchain.
//
// The deps stage fails with e and every later stage is skipped.
func (p *pipeline) unsupported(e *platform.UnsupportedPlatformError) *check.Set {
	slog.Warn("platform unsupported", "platform", e.Platform)
	set := check.NewSet()
	set.Add(depsResult(e.Platform, nil, e))
	for _, stage := range p.stages() {
		set.Add(check.Skip(e.Platform, stage, "platform unsupported"))
	}
	return set
}
