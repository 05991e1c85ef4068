//go:build unix

package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestExecRunnerResult(t *testing.T) {
	r := NewExecRunner(nil)

	res, err := r.Run(context.Background(), Invocation{
		Stage: "test",
		Args:  []string{"sh", "-c", "echo out; echo err >&2; exit 3"},
		Dir:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.OK() {
		t.Fatal("OK() = true for a failing command")
	}
	if !strings.Contains(res.Log, "out") || !strings.Contains(res.Log, "err") {
		t.Fatalf("Log = %q, want both streams", res.Log)
	}
}

func TestExecRunnerEnvironment(t *testing.T) {
	r := NewExecRunner([]string{"PATH", "KEEP"})
	r.environ = func() []string {
		return []string{"PATH=/usr/bin:/bin", "KEEP=yes", "DROP=no"}
	}

	env := r.Environ(map[string]string{"PATH": "/opt/zlib/bin", "CC": "clang"})
	want := []string{"CC=clang", "KEEP=yes", "PATH=/opt/zlib/bin:/usr/bin:/bin"}
	if !slices.Equal(env, want) {
		t.Fatalf("Environ = %v, want %v", env, want)
	}

	res, err := r.Run(context.Background(), Invocation{
		Args: []string{"sh", "-c", `printf "%s|%s" "$CC" "$DROP"`},
		Dir:  t.TempDir(),
		Env:  map[string]string{"CC": "clang"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Log != "clang|" {
		t.Fatalf("Log = %q, want %q", res.Log, "clang|")
	}
}

func TestExecRunnerCancel(t *testing.T) {
	r := NewExecRunner(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, Invocation{
		Args: []string{"sh", "-c", "sleep 30 & sleep 30; wait"},
		Dir:  t.TempDir(),
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("error = %v, want ErrCancelled", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation took %s", elapsed)
	}
}

func TestExecRunnerInvocationErrors(t *testing.T) {
	r := NewExecRunner(nil)

	if _, err := r.Run(context.Background(), Invocation{}); !errors.Is(err, ErrInvocation) {
		t.Fatalf("empty command error = %v, want ErrInvocation", err)
	}

	_, err := r.Run(context.Background(), Invocation{
		Args: []string{"cruxmatrix-no-such-tool"},
		Dir:  t.TempDir(),
	})
	if !errors.Is(err, ErrInvocation) {
		t.Fatalf("missing tool error = %v, want ErrInvocation", err)
	}
}

func TestContainerEnvDropsHostSearchPaths(t *testing.T) {
	env := containerEnv(map[string]string{
		"PATH":            "/host/bin",
		"PKG_CONFIG_PATH": "/opt/openssl/lib/pkgconfig",
		"LD_LIBRARY_PATH": "/opt/openssl/lib",
		"OPENSSL_DIR":     "/opt/openssl",
		"B":               "2",
		"A":               "1",
	})
	if !slices.Equal(env, []string{"A=1", "B=2", "OPENSSL_DIR=/opt/openssl"}) {
		t.Fatalf("containerEnv = %v", env)
	}
}

func TestLookPathUsesOverlayPath(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "cargo")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := LookPath("cargo", []string{"HOME=/root", "PATH=" + dir + ":/usr/bin"})
	if err != nil {
		t.Fatal(err)
	}
	if got != tool {
		t.Fatalf("LookPath = %q, want %q", got, tool)
	}

	if got, _ := LookPath("./build.sh", nil); got != "./build.sh" {
		t.Fatalf("LookPath(./build.sh) = %q, want it unchanged", got)
	}
}
