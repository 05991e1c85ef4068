package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/cruciblehq/cruxmatrix/internal/cache"
	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/cruciblehq/cruxmatrix/internal/paths"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/cruciblehq/cruxmatrix/internal/snapshot"
	"github.com/cruciblehq/cruxmatrix/internal/toolchain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Selects which stages a run executes.
type Mode int

const (
	ModeDeps    Mode = iota // Dependency cache only.
	ModeBuild               // Dependency cache and package.
	ModeCheck               // Dependency cache, lint, test and package.
	ModePackage             // Dependency cache and package with an OCI layout.
)

func (m Mode) String() string {
	switch m {
	case ModeDeps:
		return "deps"
	case ModeBuild:
		return "build"
	case ModeCheck:
		return "check"
	case ModePackage:
		return "package"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Controls a pipeline run.
type Options struct {
	Manifest *manifest.Manifest       // Project manifest.
	Snapshot *snapshot.Snapshot       // Source snapshot shared by every stage.
	Contexts []*platform.BuildContext // Resolved build contexts, one pipeline each.
	Host     platform.Platform        // Host platform, visible to manifest expressions.
	Store    cache.Store              // Dependency cache store.
	Runner   toolchain.Runner         // Toolchain runner.
	Mode     Mode                     // Stages to run.
	WorkDir  string                   // Root for per-run work directories.
	DistDir  string                   // Package output directory.
	Jobs     int                      // Maximum concurrent platform pipelines. Zero means unlimited.
	KeepWork bool                     // Keep work directories after the run.
	Layout   bool                     // Write an OCI image layout for each package. Implied by ModePackage.

	// Requested platforms without a toolchain mapping, each reported as a
	// failed pipeline.
	Unsupported []*platform.UnsupportedPlatformError
}

// Returned after a run.
type Result struct {
	RunID    string     // Unique run identifier, also the work directory name.
	Checks   *check.Set // Every stage result produced.
	Packages []*Package // Packages built, sorted by platform.
	Compiles int64      // Dependency compilations started.
}

// Runs the pipeline for every build context.
//
// Stage failures are reported through Result.Checks, never as errors. An
// error is returned for invalid options, an unusable dependency lock set,
// or cancellation; the result then holds whatever completed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Mode == ModePackage {
		opts.Layout = true
	}

	runID := uuid.NewString()
	runDir := filepath.Join(opts.WorkDir, runID)
	if err := os.MkdirAll(runDir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if opts.KeepWork {
		slog.Info("keeping work directory", "path", runDir)
	} else {
		defer os.RemoveAll(runDir)
	}

	deps, err := newDepsBuilder(opts.Manifest, opts.Snapshot, opts.Store, opts.Runner, opts.Host, runDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuild, err)
	}

	slog.Info("starting run",
		"run", runID,
		"mode", opts.Mode,
		"platforms", platformIDs(opts.Contexts),
		"snapshot", opts.Snapshot.Digest(),
	)

	p := &pipeline{opts: opts, runDir: runDir, deps: deps}
	result := &Result{RunID: runID, Checks: check.NewSet()}

	for _, e := range opts.Unsupported {
		if err := result.Checks.Merge(p.unsupported(e)); err != nil {
			return nil, err
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}

	for _, bc := range opts.Contexts {
		g.Go(func() error {
			set, pkg, err := p.runPlatform(gctx, bc)

			mu.Lock()
			defer mu.Unlock()
			if mergeErr := result.Checks.Merge(set); mergeErr != nil {
				return mergeErr
			}
			if pkg != nil {
				result.Packages = append(result.Packages, pkg)
			}
			return err
		})
	}

	err = g.Wait()
	slices.SortFunc(result.Packages, func(a, b *Package) int {
		return strings.Compare(a.Platform, b.Platform)
	})
	result.Compiles = deps.Compiles()

	if err != nil {
		return result, err
	}

	slog.Info("run finished", "run", runID, "passed", result.Checks.Passed(), "checks", result.Checks.Len())
	return result, nil
}

// Checks that required options are present.
func (o *Options) validate() error {
	switch {
	case o.Manifest == nil:
		return fmt.Errorf("%w: no manifest", ErrBuild)
	case o.Snapshot == nil:
		return fmt.Errorf("%w: no snapshot", ErrBuild)
	case o.Store == nil:
		return fmt.Errorf("%w: no cache store", ErrBuild)
	case o.Runner == nil:
		return fmt.Errorf("%w: no toolchain runner", ErrBuild)
	case o.WorkDir == "":
		return fmt.Errorf("%w: no work directory", ErrBuild)
	}
	if o.Mode != ModeDeps && o.Mode != ModeCheck && o.Manifest.Package == nil {
		return ErrNoPackageStage
	}
	return nil
}

func platformIDs(contexts []*platform.BuildContext) []string {
	ids := make([]string, 0, len(contexts))
	for _, bc := range contexts {
		ids = append(ids, bc.Platform().String())
	}
	return ids
}
