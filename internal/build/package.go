package build

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/opencontainers/go-digest"
)

// A built, installable package for one platform.
type Package struct {
	Platform string        `json:"platform" yaml:"platform"`
	Path     string        `json:"path" yaml:"path"`
	Digest   digest.Digest `json:"digest" yaml:"digest"`
	Size     int64         `json:"size" yaml:"size"`
	Layout   string        `json:"layout,omitempty" yaml:"layout,omitempty"` // OCI image layout directory, when written.
	Manifest digest.Digest `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// Builds the package for bc and records the result.
//
// Failures are recorded as a failed result carrying a [PackageBuildError]
// reason. Returns an error only on cancellation.
func (p *pipeline) pack(ctx context.Context, bc *platform.BuildContext, deps *depsOutcome) (*check.StageResult, *Package, error) {
	start := time.Now()
	id := bc.Platform().String()
	r := &check.StageResult{Stage: check.StagePackage, Platform: id}

	pkg, log, err := p.buildPackage(ctx, bc, deps)
	r.Duration = time.Since(start)
	r.Log = log
	if err != nil {
		if isCancellation(err) {
			return nil, nil, err
		}
		var pbe *PackageBuildError
		if !errors.As(err, &pbe) {
			err = &PackageBuildError{Platform: id, Output: log, Err: err}
		}
		slog.Warn("package failed", "platform", id, "error", err)
		r.Status = check.Failed
		r.Reason = err.Error()
		return r, nil, nil
	}

	r.Status = check.Passed
	r.Artifact = pkg.Path
	r.Reason = pkg.Digest.String()
	return r, pkg, nil
}

// Compiles the project, collects the artifact and writes the package.
func (p *pipeline) buildPackage(ctx context.Context, bc *platform.BuildContext, deps *depsOutcome) (*Package, string, error) {
	spec := p.opts.Manifest.Package
	id := bc.Platform().String()

	log, exit, err := p.runStage(ctx, bc, deps, check.StagePackage, spec.Command, spec.Env)
	if err != nil {
		return nil, log, err
	}
	if exit != 0 {
		return nil, log, &PackageBuildError{Platform: id, Output: log}
	}

	artifact, err := spec.Artifact(manifest.NewScope(bc.Platform(), bc.Toolchain(), p.opts.Host))
	if err != nil {
		return nil, log, err
	}

	src := filepath.Join(p.stageDir(bc, check.StagePackage), filepath.FromSlash(artifact))
	outDir := filepath.Join(p.opts.DistDir, bc.Platform().Slug())
	dest := filepath.Join(outDir, path.Base(artifact))

	d, size, err := copyArtifact(src, dest)
	if err != nil {
		return nil, log, &PackageBuildError{Platform: id, Output: log, Err: err}
	}

	pkg := &Package{Platform: id, Path: dest, Digest: d, Size: size}

	if p.opts.Layout {
		layout := filepath.Join(outDir, "oci")
		m, err := writeLayout(layout, bc.Platform(), dest, path.Base(artifact), d, size)
		if err != nil {
			return nil, log, &PackageBuildError{Platform: id, Output: log, Err: err}
		}
		pkg.Layout = layout
		pkg.Manifest = m
	}

	slog.Info("package built", "platform", id, "path", dest, "digest", d)
	return pkg, log, nil
}
