//go:build unix

package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Points the pipeline at a project with an exec runner and captures the
// command output.
func withPipeline(t *testing.T, src string) (stdoutBuf, stderrBuf *bytes.Buffer) {
	t.Helper()
	root := withManifest(t, src)
	if err := os.WriteFile(filepath.Join(root, "go.sum"), []byte("example.com/dep v1.0.0 h1:abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	RootCmd.CacheDir = filepath.Join(t.TempDir(), "cache")
	RootCmd.WorkDir = filepath.Join(t.TempDir(), "work")
	RootCmd.Runner = "exec"
	t.Setenv("CRUXMATRIX_CACHE_S3_ENDPOINT", "")

	stdoutBuf, stderrBuf = new(bytes.Buffer), new(bytes.Buffer)
	savedOut, savedErr := stdout, stderr
	t.Cleanup(func() { stdout, stderr = savedOut, savedErr })
	stdout, stderr = stdoutBuf, stderrBuf
	return stdoutBuf, stderrBuf
}

const failingTestManifest = `
project "demo" {}

dependencies {
  files   = ["go.sum"]
  outputs = ["target"]
  command = ["sh", "-c", "mkdir -p target && echo ok > target/lib"]
}

lint {
  command = ["sh", "-c", "exit 0"]
}

test {
  command = ["sh", "-c", "echo boom; exit 1"]
  format  = "none"
}
`

func TestCheckReportsFailingChecks(t *testing.T) {
	out, errOut := withPipeline(t, failingTestManifest)

	cmd := &CheckCmd{PlatformFlags: PlatformFlags{Platforms: []string{"linux/amd64", "linux/riscv64"}}}
	err := cmd.Run(context.Background())

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.Code != ExitFailed {
		t.Fatalf("exit code = %d, want %d", exitErr.Code, ExitFailed)
	}
	if !errors.Is(err, ErrChecksFailed) {
		t.Fatalf("error = %v, want ErrChecksFailed", err)
	}

	lines := strings.Split(errOut.String(), "\n")
	for _, name := range []string{
		"linux-amd64/test",
		"linux-riscv64/deps",
		"linux-riscv64/lint",
		"linux-riscv64/test",
	} {
		found := false
		for _, line := range lines {
			if line == name {
				found = true
			}
		}
		if !found {
			t.Errorf("failing check %s not printed to stderr:\n%s", name, errOut)
		}
	}
	if !strings.Contains(errOut.String(), "boom") {
		t.Errorf("test log not printed:\n%s", errOut)
	}

	// Passing checks of the supported platform still show in the table.
	for _, name := range []string{"linux-amd64/deps", "linux-amd64/lint"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("%s missing from table:\n%s", name, out)
		}
	}
}

func TestBuildPassesWithoutFailures(t *testing.T) {
	out, _ := withPipeline(t, `
project "demo" {}

dependencies {
  files   = ["go.sum"]
  outputs = ["target"]
  command = ["sh", "-c", "mkdir -p target && echo ok > target/lib"]
}
`)

	cmd := &BuildCmd{PlatformFlags: PlatformFlags{Platforms: []string{"linux/amd64"}}, DepsOnly: true}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "linux-amd64/deps") {
		t.Fatalf("deps check missing from table:\n%s", out)
	}
}

func TestBuildPrintsFinishedChecksOnCancel(t *testing.T) {
	out, _ := withPipeline(t, `
project "demo" {}

dependencies {
  files   = ["go.sum"]
  outputs = ["target"]
  command = ["sh", "-c", "case $0 in linux/arm64) sleep 30;; esac; mkdir -p target", platform.id]
}
`)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	cmd := &BuildCmd{PlatformFlags: PlatformFlags{Platforms: []string{"linux/amd64", "linux/arm64"}}, DepsOnly: true}
	err := cmd.Run(ctx)
	if err == nil {
		t.Fatal("Run succeeded, want cancellation")
	}

	if !strings.Contains(out.String(), "linux-amd64/deps") {
		t.Fatalf("finished check not printed:\n%s", out)
	}
	if strings.Contains(out.String(), "linux-arm64/deps") {
		t.Fatalf("cancelled check printed:\n%s", out)
	}
}
