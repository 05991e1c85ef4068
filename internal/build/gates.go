package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
)

// Runs the lint stage and records its result.
//
// Returns an error only on cancellation; every other failure is a failed
// result.
func (p *pipeline) lint(ctx context.Context, bc *platform.BuildContext, deps *depsOutcome) (*check.StageResult, error) {
	lint := p.opts.Manifest.Lint
	start := time.Now()
	r := &check.StageResult{Stage: check.StageLint, Platform: bc.Platform().String()}

	log, exit, err := p.runStage(ctx, bc, deps, check.StageLint, lint.Command, lint.Env)
	r.Duration = time.Since(start)
	if err != nil {
		if isCancellation(err) {
			return nil, err
		}
		return failed(r, log, err), nil
	}

	counts := countDiagnostics(lint.DiagnosticPattern, log)
	r.Log = log
	r.Diagnostics = &counts

	switch {
	case diagnosticsFail(counts, lint.WarningsAsErrors):
		r.Status = check.Failed
		r.Reason = "diagnostics at or above threshold"
	case exit != 0:
		r.Status = check.Failed
		r.Reason = fmt.Sprintf("exit status %d", exit)
	default:
		r.Status = check.Passed
	}
	return r, nil
}

// Runs the test stage and records its result.
//
// Returns an error only on cancellation.
func (p *pipeline) test(ctx context.Context, bc *platform.BuildContext, deps *depsOutcome) (*check.StageResult, error) {
	test := p.opts.Manifest.Test
	start := time.Now()
	r := &check.StageResult{Stage: check.StageTest, Platform: bc.Platform().String()}

	log, exit, err := p.runStage(ctx, bc, deps, check.StageTest, test.Command, test.Env)
	r.Duration = time.Since(start)
	if err != nil {
		if isCancellation(err) {
			return nil, err
		}
		return failed(r, log, err), nil
	}

	r.Log = log
	r.Tests = parseTestCounts(test.Format, log)

	switch {
	case exit != 0:
		r.Status = check.Failed
		r.Reason = fmt.Sprintf("exit status %d", exit)
	case r.Tests != nil && r.Tests.Failed > 0:
		r.Status = check.Failed
		r.Reason = fmt.Sprintf("%d tests failed", r.Tests.Failed)
	default:
		r.Status = check.Passed
	}
	return r, nil
}

// Prepares a stage work directory and runs the stage command in it.
//
// Returns the log and exit code of a command that ran to completion.
func (p *pipeline) runStage(ctx context.Context, bc *platform.BuildContext, deps *depsOutcome, stage string, cmd manifest.Command, env map[string]string) (string, int, error) {
	dir := p.stageDir(bc, stage)
	if err := prepareWorkspace(dir, p.opts.Snapshot, deps.Artifact); err != nil {
		return "", 0, err
	}

	args, err := cmd.Eval(manifest.NewScope(bc.Platform(), bc.Toolchain(), p.opts.Host))
	if err != nil {
		return "", 0, err
	}

	state := newStageState(bc).resolve(dir, env)
	res, err := p.opts.Runner.Run(ctx, state.invocation(stage, args))
	if err != nil {
		return "", 0, err
	}
	return res.Log, res.ExitCode, nil
}

// Returns the work directory of a stage.
func (p *pipeline) stageDir(bc *platform.BuildContext, stage string) string {
	return filepath.Join(p.runDir, bc.Platform().Slug(), stage)
}

// Marks r as failed by err, keeping any log produced.
func failed(r *check.StageResult, log string, err error) *check.StageResult {
	r.Status = check.Failed
	r.Log = log
	r.Reason = err.Error()
	return r
}
