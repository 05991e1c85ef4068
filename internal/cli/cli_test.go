package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cruciblehq/cruxmatrix/internal/build"
	"github.com/cruciblehq/cruxmatrix/internal/cache"
	"github.com/cruciblehq/cruxmatrix/internal/check"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/cruciblehq/cruxmatrix/internal/toolchain"
	"github.com/opencontainers/go-digest"
)

const testManifest = `
project "demo" {}

platforms = ["linux/amd64", "linux/arm64", "linux/amd64"]

dependencies {
  files   = ["go.sum"]
  outputs = ["target"]
  command = ["true"]
}

library "openssl" {
  version = "3"
  prefix  = "/usr"
}

develop {
  tools = ["sh"]
  env   = { DEV = "1" }
}
`

// Points the global flags at a fresh project for the duration of a test.
func withProject(t *testing.T) string {
	t.Helper()
	return withManifest(t, testManifest)
}

// Like withProject, with the given manifest source.
func withManifest(t *testing.T, src string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "cruxmatrix.hcl"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	saved := RootCmd
	t.Cleanup(func() { RootCmd = saved })
	RootCmd.Dir = root
	RootCmd.File = ""
	return root
}

func TestParseCheckFlags(t *testing.T) {
	var root = RootCmd
	parser, err := newParser(context.Background(), &root)
	if err != nil {
		t.Fatal(err)
	}

	ctx, err := parser.Parse([]string{"-j", "2", "check", "-p", "linux/amd64", "--platform", "linux/arm64", "--format", "yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if got := ctx.Command(); got != "check" {
		t.Fatalf("command = %q, want %q", got, "check")
	}
	if got := strings.Join(root.Check.Platforms, ","); got != "linux/amd64,linux/arm64" {
		t.Fatalf("platforms = %q, want %q", got, "linux/amd64,linux/arm64")
	}
	if root.Check.Format != "yaml" {
		t.Fatalf("format = %q, want %q", root.Check.Format, "yaml")
	}
	if root.Jobs != 2 {
		t.Fatalf("jobs = %d, want 2", root.Jobs)
	}
	if root.Runner != "exec" {
		t.Fatalf("runner = %q, want %q", root.Runner, "exec")
	}
	if root.ContainerdAddress != DefaultContainerdAddress {
		t.Fatalf("containerd address = %q, want %q", root.ContainerdAddress, DefaultContainerdAddress)
	}
}

func TestParsePlatformsFromEnv(t *testing.T) {
	t.Setenv("CRUXMATRIX_PLATFORMS", "linux/arm64,darwin/arm64")

	var root = RootCmd
	parser, err := newParser(context.Background(), &root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"build", "--deps-only"}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(root.Build.Platforms, ","); got != "linux/arm64,darwin/arm64" {
		t.Fatalf("platforms = %q, want %q", got, "linux/arm64,darwin/arm64")
	}
	if !root.Build.DepsOnly {
		t.Fatal("deps-only not set")
	}
}

func TestParseDevelopPassthrough(t *testing.T) {
	var root = RootCmd
	parser, err := newParser(context.Background(), &root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"develop", "cargo", "build", "--release"}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(root.Develop.Command, " "); got != "cargo build --release" {
		t.Fatalf("command = %q, want %q", got, "cargo build --release")
	}
}

func TestParseRejectsUnknownRunner(t *testing.T) {
	var root = RootCmd
	parser, err := newParser(context.Background(), &root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"--runner", "docker", "version"}); err == nil {
		t.Fatal("expected error for unknown runner")
	}
}

func TestLoadProject(t *testing.T) {
	root := withProject(t)
	t.Setenv("CRUXMATRIX_HOST_PLATFORM", "linux/arm64")
	t.Setenv("CRUXMATRIX_LIBRARY_PATH", "openssl=/opt/openssl")

	p, err := loadProject()
	if err != nil {
		t.Fatal(err)
	}
	if p.manifest.Root != root {
		t.Fatalf("root = %q, want %q", p.manifest.Root, root)
	}
	if got := p.host.String(); got != "linux/arm64" {
		t.Fatalf("host = %q, want %q", got, "linux/arm64")
	}
	if got := p.overrides["openssl"]; got != "/opt/openssl" {
		t.Fatalf("override = %q, want %q", got, "/opt/openssl")
	}

	contexts, err := p.contexts(nil)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, bc := range contexts {
		ids = append(ids, bc.Platform().String())
	}
	if got := strings.Join(ids, ","); got != "linux/amd64,linux/arm64" {
		t.Fatalf("contexts = %q, want %q", got, "linux/amd64,linux/arm64")
	}
}

func TestLoadProjectConfigErrors(t *testing.T) {
	withProject(t)
	t.Setenv("CRUXMATRIX_HOST_PLATFORM", "not a platform")

	_, err := loadProject()
	if !errors.Is(err, platform.ErrInvalidPlatform) {
		t.Fatalf("err = %v, want ErrInvalidPlatform", err)
	}

	var exitErr *ExitError
	if !errors.As(classify(err), &exitErr) || exitErr.Code != ExitUsage {
		t.Fatalf("classify(%v) = %v, want exit code %d", err, classify(err), ExitUsage)
	}
}

func TestLoadProjectMissingManifest(t *testing.T) {
	withProject(t)
	RootCmd.File = filepath.Join(t.TempDir(), "missing.hcl")

	_, err := loadProject()
	if !errors.Is(err, manifest.ErrManifest) {
		t.Fatalf("err = %v, want ErrManifest", err)
	}
}

func TestLoadEnvFilesKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	env := "CRUXMATRIX_TEST_PRESET=file\nCRUXMATRIX_TEST_LOADED=file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRUXMATRIX_TEST_PRESET", "process")
	t.Cleanup(func() { os.Unsetenv("CRUXMATRIX_TEST_LOADED") })

	loadEnvFiles(dir, filepath.Join(dir, "missing"))

	if got := os.Getenv("CRUXMATRIX_TEST_PRESET"); got != "process" {
		t.Fatalf("preset = %q, want %q", got, "process")
	}
	if got := os.Getenv("CRUXMATRIX_TEST_LOADED"); got != "file" {
		t.Fatalf("loaded = %q, want %q", got, "file")
	}
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("CRUXMATRIX_CACHE_S3_ENDPOINT", "")
	if _, ok, err := s3ConfigFromEnv(); ok || err != nil {
		t.Fatalf("s3ConfigFromEnv() = %v, %v, want false, nil", ok, err)
	}

	t.Setenv("CRUXMATRIX_CACHE_S3_ENDPOINT", "minio:9000")
	t.Setenv("CRUXMATRIX_CACHE_S3_BUCKET", "")
	if _, _, err := s3ConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}

	t.Setenv("CRUXMATRIX_CACHE_S3_BUCKET", "deps")
	t.Setenv("CRUXMATRIX_CACHE_S3_USE_SSL", "false")
	cfg, ok, err := s3ConfigFromEnv()
	if err != nil || !ok {
		t.Fatalf("s3ConfigFromEnv() = %v, %v", ok, err)
	}
	if cfg.Endpoint != "minio:9000" || cfg.Bucket != "deps" || cfg.UseSSL {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestIgnoreWithin(t *testing.T) {
	root := t.TempDir()
	if got := ignoreWithin(root, filepath.Join(root, "dist")); len(got) != 1 || got[0] != "dist/**" {
		t.Fatalf("ignoreWithin(dist) = %v, want [dist/**]", got)
	}
	if got := ignoreWithin(root, t.TempDir()); got != nil {
		t.Fatalf("ignoreWithin(outside) = %v, want nil", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code int // Zero means not an ExitError.
	}{
		{fmt.Errorf("wrapped: %w", manifest.ErrManifest), ExitUsage},
		{&platform.UnsupportedPlatformError{Platform: "plan9/amd64"}, ExitUsage},
		{build.ErrNoPackageStage, ExitUsage},
		{checksFailed([]string{"linux-amd64/lint"}), ExitFailed},
		{context.Canceled, 0},
	}
	for _, tt := range tests {
		var exitErr *ExitError
		got := errors.As(classify(tt.err), &exitErr)
		switch {
		case tt.code == 0 && got:
			t.Errorf("classify(%v) = exit %d, want plain error", tt.err, exitErr.Code)
		case tt.code != 0 && (!got || exitErr.Code != tt.code):
			t.Errorf("classify(%v) = %v, want exit %d", tt.err, classify(tt.err), tt.code)
		}
	}

	if checksFailed(nil) != nil {
		t.Fatal("checksFailed(nil) != nil")
	}
}

func TestPrintPackages(t *testing.T) {
	var b strings.Builder
	err := printPackages(&b, []*build.Package{{
		Platform: "linux/amd64",
		Path:     "dist/linux-amd64/app",
		Digest:   digest.FromString("app"),
		Size:     3,
	}})
	if err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "PLATFORM") || !strings.Contains(out, digest.FromString("app").String()) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPrintLogsOnlyFailed(t *testing.T) {
	set, err := check.Aggregate(
		&check.StageResult{Stage: check.StageDeps, Platform: "linux/amd64", Status: check.Passed, Log: "quiet\n"},
		&check.StageResult{Stage: check.StageLint, Platform: "linux/amd64", Status: check.Failed, Log: "warning: x"},
	)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	printLogs(&b, set)
	want := "==> linux-amd64/lint (failed)\nwarning: x\n"
	if b.String() != want {
		t.Fatalf("printLogs = %q, want %q", b.String(), want)
	}
}

func TestOpenSession(t *testing.T) {
	root := withProject(t)
	RootCmd.CacheDir = filepath.Join(t.TempDir(), "cache")
	RootCmd.WorkDir = filepath.Join(root, ".work")
	RootCmd.Runner = "exec"
	t.Setenv("CRUXMATRIX_CACHE_S3_ENDPOINT", "")

	for _, name := range []string{"go.sum", "dist/linux-amd64/app", ".work/run/file"} {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	p, err := loadProject()
	if err != nil {
		t.Fatal(err)
	}
	s, err := openSession(p, "")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, ok := s.snapshot.File("go.sum"); !ok {
		t.Fatal("go.sum missing from snapshot")
	}
	for _, name := range []string{"dist/linux-amd64/app", ".work/run/file"} {
		if _, ok := s.snapshot.File(name); ok {
			t.Fatalf("%s should be ignored", name)
		}
	}
	if got, want := s.distDir, filepath.Join(root, "dist"); got != want {
		t.Fatalf("distDir = %q, want %q", got, want)
	}
	if _, ok := s.store.(*cache.FileStore); !ok {
		t.Fatalf("store = %T, want *cache.FileStore", s.store)
	}
	if _, ok := s.runner.(*toolchain.ExecRunner); !ok {
		t.Fatalf("runner = %T, want *toolchain.ExecRunner", s.runner)
	}
}
