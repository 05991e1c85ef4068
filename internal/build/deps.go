package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cruciblehq/cruxmatrix/internal/cache"
	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/cruciblehq/cruxmatrix/internal/snapshot"
	"github.com/cruciblehq/cruxmatrix/internal/toolchain"
	"golang.org/x/sync/singleflight"
)

// Outcome of resolving the dependency artifact for a build context.
type depsOutcome struct {
	Key      cache.Key
	Artifact *cache.Artifact
	Hit      bool   // Served from the store without compiling.
	Log      string // Compiler output, empty on a hit.
}

// Produces dependency artifacts, compiling each cache key at most once.
//
// Misses for the same key are coalesced onto a single compilation. A key
// whose compilation failed keeps failing for the rest of the run without
// recompiling; a cancelled compilation is not remembered.
type depsBuilder struct {
	manifest *manifest.Manifest
	lock     *snapshot.Snapshot
	store    cache.Store
	runner   toolchain.Runner
	host     platform.Platform
	workDir  string

	group    singleflight.Group
	failures sync.Map // cache.Key -> error
	compiles atomic.Int64
}

// Creates a dependency builder for one run.
//
// The lock subset is taken from snap using the manifest's dependency files.
func newDepsBuilder(m *manifest.Manifest, snap *snapshot.Snapshot, store cache.Store, runner toolchain.Runner, host platform.Platform, workDir string) (*depsBuilder, error) {
	lock, err := snap.Subset(m.Dependencies.Files)
	if err != nil {
		return nil, err
	}
	return &depsBuilder{
		manifest: m,
		lock:     lock,
		store:    store,
		runner:   runner,
		host:     host,
		workDir:  workDir,
	}, nil
}

// Returns the cache key for a build context.
func (d *depsBuilder) key(bc *platform.BuildContext) cache.Key {
	return cache.NewKey(d.lock.Digest(), bc.Platform().String(), bc.Libraries().Digest())
}

// Returns the number of compilations started.
func (d *depsBuilder) Compiles() int64 {
	return d.compiles.Load()
}

// Returns the dependency artifact for bc, compiling it on a miss.
func (d *depsBuilder) resolve(ctx context.Context, bc *platform.BuildContext) (*depsOutcome, error) {
	key := d.key(bc)

	if err, ok := d.failures.Load(key); ok {
		return nil, err.(error)
	}

	if out, err := d.lookup(ctx, key); out != nil || err != nil {
		return out, err
	}

	v, err, shared := d.group.Do(key.String(), func() (any, error) {
		// The entry may have been stored between the lookup and this call.
		if out, err := d.lookup(ctx, key); out != nil || err != nil {
			return out, err
		}
		if err, ok := d.failures.Load(key); ok {
			return nil, err.(error)
		}

		out, err := d.compile(ctx, bc, key)
		if err != nil && !isCancellation(err) {
			d.failures.Store(key, err)
		}
		return out, err
	})
	if err != nil {
		return nil, err
	}

	if shared {
		slog.Debug("dependency build shared", "platform", bc.Platform(), "key", key.Short())
	}
	return v.(*depsOutcome), nil
}

// Reads key from the store. Returns nil, nil on a miss.
//
// A corrupt entry counts as a miss; the compilation that follows rewrites it.
func (d *depsBuilder) lookup(ctx context.Context, key cache.Key) (*depsOutcome, error) {
	a, err := d.store.Read(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if errors.Is(err, cache.ErrCorrupt) {
		slog.Warn("ignoring corrupt cache entry", "key", key.Short(), "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &depsOutcome{Key: key, Artifact: a, Hit: true}, nil
}

// Compiles the dependencies for bc and stores the packed outputs.
func (d *depsBuilder) compile(ctx context.Context, bc *platform.BuildContext, key cache.Key) (*depsOutcome, error) {
	d.compiles.Add(1)
	p := bc.Platform()
	deps := d.manifest.Dependencies

	slog.Info("compiling dependencies", "platform", p, "key", key.Short())

	fail := func(output string, err error) error {
		return &DependencyBuildError{
			Platform:   p.String(),
			Key:        key,
			Dependency: deps.FailingDependency(output),
			Output:     output,
			Err:        err,
		}
	}

	dir := filepath.Join(d.workDir, p.Slug(), check.StageDeps)
	if err := prepareDir(dir); err != nil {
		return nil, fail("", err)
	}

	// Only lock files are present, so the command cannot build project code.
	if err := d.lock.Materialize(dir); err != nil {
		return nil, fail("", err)
	}

	args, err := deps.Command.Eval(manifest.NewScope(p, bc.Toolchain(), d.host))
	if err != nil {
		return nil, fail("", err)
	}

	state := newStageState(bc).resolve(dir, deps.Env)
	res, err := d.runner.Run(ctx, state.invocation(check.StageDeps, args))
	if err != nil {
		if isCancellation(err) {
			return nil, err
		}
		return nil, fail("", err)
	}
	if !res.OK() {
		return nil, fail(res.Log, nil)
	}

	blob, err := cache.Pack(dir, deps.Outputs)
	if err != nil {
		return nil, fail(res.Log, err)
	}

	if err := d.store.Write(ctx, cache.NewArtifact(key, blob)); err != nil {
		if isCancellation(err) {
			return nil, err
		}
		return nil, fail(res.Log, err)
	}

	// The first write wins, so serve whatever the store now holds.
	stored, err := d.store.Read(ctx, key)
	if err != nil {
		return nil, fail(res.Log, err)
	}

	slog.Info("dependencies cached", "platform", p, "key", key.Short(), "size", len(blob))
	return &depsOutcome{Key: key, Artifact: stored, Log: res.Log}, nil
}

// Reports whether err stems from cancellation rather than a build failure.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, toolchain.ErrCancelled)
}

// Records the outcome of the dependency stage.
func depsResult(p string, out *depsOutcome, err error) *check.StageResult {
	r := &check.StageResult{Stage: check.StageDeps, Platform: p}
	if err != nil {
		r.Status = check.Failed
		r.Reason = err.Error()
		var dbe *DependencyBuildError
		if errors.As(err, &dbe) {
			r.Log = dbe.Output
		}
		return r
	}

	r.Status = check.Passed
	r.Log = out.Log
	r.Artifact = out.Key.String()
	if out.Hit {
		r.Reason = "cache hit"
	} else {
		r.Reason = fmt.Sprintf("compiled, %d bytes", len(out.Artifact.Blob))
	}
	return r
}
