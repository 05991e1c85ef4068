package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cruciblehq/cruxmatrix/internal/cache"
	"github.com/cruciblehq/cruxmatrix/internal/library"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/cruciblehq/cruxmatrix/internal/paths"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/cruciblehq/cruxmatrix/internal/runtime"
	"github.com/cruciblehq/cruxmatrix/internal/snapshot"
	"github.com/cruciblehq/cruxmatrix/internal/toolchain"
)

// A loaded project: manifest, host platform and library overrides.
type project struct {
	manifest  *manifest.Manifest
	host      platform.Platform
	overrides map[string]string
}

// Loads the project named by the global flags.
func loadProject() (*project, error) {
	file := RootCmd.File
	if file == "" {
		file = filepath.Join(RootCmd.Dir, paths.ManifestFile)
	}

	m, err := manifest.Load(file)
	if err != nil {
		return nil, err
	}

	// The project .env sits next to the manifest, which may differ from the
	// working directory.
	loadEnvFiles(m.Root)

	host := platform.Host()
	if id := getenv("HOST_PLATFORM"); id != "" {
		if host, err = platform.Parse(id); err != nil {
			return nil, fmt.Errorf("CRUXMATRIX_HOST_PLATFORM: %w", err)
		}
	}

	overrides, err := library.ParseOverrides(getenv("LIBRARY_PATH"))
	if err != nil {
		return nil, err
	}

	return &project{manifest: m, host: host, overrides: overrides}, nil
}

// Resolves the build contexts for requested, falling back to the manifest
// platforms when requested is empty.
func (p *project) contexts(requested []string) ([]*platform.BuildContext, error) {
	if len(requested) == 0 {
		requested = p.manifest.Platforms
	}
	resolver := platform.NewResolver(p.manifest.Table(), p.manifest.Libraries, p.overrides, p.manifest.Env)
	return resolver.Resolve(requested, p.host)
}

// Backends a pipeline run needs, opened for one command.
type session struct {
	*project
	snapshot *snapshot.Snapshot
	store    cache.Store
	runner   toolchain.Runner
	workDir  string
	distDir  string
	closers  []func() error
}

// Takes the source snapshot and opens the cache store and toolchain runner.
//
// distDir receives packages; empty selects the project's dist directory.
// The session must be closed.
func openSession(p *project, distDir string) (*session, error) {
	s := &session{project: p, workDir: RootCmd.WorkDir, distDir: distDir}
	if err := s.open(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) open() (err error) {
	p := s.project

	root := p.manifest.Root
	if s.workDir == "" {
		s.workDir = paths.Work()
	}
	if s.distDir == "" {
		s.distDir = filepath.Join(root, paths.DistDir)
	}

	ignore := append([]string{}, p.manifest.Ignore...)
	ignore = append(ignore, ignoreWithin(root, s.distDir)...)
	ignore = append(ignore, ignoreWithin(root, s.workDir)...)
	if RootCmd.CacheDir != "" {
		ignore = append(ignore, ignoreWithin(root, RootCmd.CacheDir)...)
	}

	if s.snapshot, err = snapshot.Take(root, ignore); err != nil {
		return err
	}

	if s.store, err = openStore(); err != nil {
		return err
	}
	return s.openRunner()
}

// Opens the dependency cache store: S3 behind an LRU when configured,
// otherwise the local file store.
func openStore() (cache.Store, error) {
	cfg, ok, err := s3ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if ok {
		remote, err := cache.NewS3Store(cfg)
		if err != nil {
			return nil, err
		}
		slog.Debug("using remote cache", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
		return cache.NewLRU(remote, cache.DefaultLRUSize)
	}

	dir := RootCmd.CacheDir
	if dir == "" {
		dir = paths.Cache()
	}
	slog.Debug("using local cache", "path", dir)
	return cache.NewFileStore(dir)
}

func (s *session) openRunner() error {
	switch RootCmd.Runner {
	case "container":
		rt, err := runtime.New(RootCmd.ContainerdAddress, RootCmd.ContainerdNamespace)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, rt.Close)
		s.runner = toolchain.NewContainerRunner(rt)
	default:
		s.runner = toolchain.NewExecRunner(nil)
	}
	return nil
}

// Warns when source files changed while the run was in progress.
func (s *session) warnChanged() {
	changed, err := s.snapshot.Changed()
	if err != nil {
		slog.Warn("could not verify source snapshot", "error", err)
		return
	}
	if len(changed) > 0 {
		slog.Warn("source files changed during the run; results reflect the snapshot", "files", changed)
	}
}

// Releases the session's backends.
func (s *session) Close() {
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			slog.Debug("close failed", "error", err)
		}
	}
	s.closers = nil
}

// Returns an ignore pattern for dir when it lies inside root.
func ignoreWithin(root, dir string) []string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || !filepath.IsLocal(rel) {
		return nil
	}
	return []string{filepath.ToSlash(rel) + "/**"}
}
