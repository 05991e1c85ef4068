package runtime

import (
	"slices"
	"strings"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func TestOverlayEnv(t *testing.T) {
	tests := []struct {
		name    string
		image   []string
		overlay []string
		want    []string
	}{
		{
			name:    "toolchain overrides image",
			image:   []string{"PATH=/usr/local/cargo/bin:/usr/bin", "RUSTUP_HOME=/usr/local/rustup"},
			overlay: []string{"CARGO_BUILD_TARGET=aarch64-unknown-linux-gnu", "RUSTUP_HOME=/opt/rustup"},
			want:    []string{"CARGO_BUILD_TARGET=aarch64-unknown-linux-gnu", "PATH=/usr/local/cargo/bin:/usr/bin", "RUSTUP_HOME=/opt/rustup"},
		},
		{
			name:    "values keep equals signs",
			overlay: []string{"RUSTFLAGS=-C target-feature=+crt-static"},
			want:    []string{"RUSTFLAGS=-C target-feature=+crt-static"},
		},
		{
			name:    "malformed entries dropped",
			image:   []string{"NOEQUALS", "=empty", "HOME=/root"},
			overlay: []string{"ALSO_BAD"},
			want:    []string{"HOME=/root"},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overlayEnv(tt.image, tt.overlay)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("overlayEnv = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessSpec(t *testing.T) {
	base := &specs.Process{
		Terminal: true,
		Args:     []string{"sleep", "infinity"},
		Env:      []string{"PATH=/usr/bin"},
		Cwd:      "/",
	}

	got := processSpec(base, []string{"cargo", "test"}, []string{"CARGO_TERM_COLOR=never"}, "/work/test")
	if got.Terminal {
		t.Fatal("terminal should be disabled")
	}
	if got.Cwd != "/work/test" {
		t.Fatalf("cwd = %q, want %q", got.Cwd, "/work/test")
	}
	if strings.Join(got.Args, " ") != "cargo test" {
		t.Fatalf("args = %v", got.Args)
	}
	if !slices.Equal(got.Env, []string{"CARGO_TERM_COLOR=never", "PATH=/usr/bin"}) {
		t.Fatalf("env = %v", got.Env)
	}

	if base.Cwd != "/" || base.Args[0] != "sleep" || len(base.Env) != 1 {
		t.Fatalf("base process modified: %+v", base)
	}

	if keep := processSpec(base, []string{"true"}, nil, ""); keep.Cwd != "/" {
		t.Fatalf("empty workdir: cwd = %q, want %q", keep.Cwd, "/")
	}
}

func TestExecID(t *testing.T) {
	a, b := execID(), execID()
	if a == b {
		t.Fatalf("execID returned duplicate: %q", a)
	}
	if !strings.HasPrefix(a, "exec-") {
		t.Fatalf("execID = %q, want exec- prefix", a)
	}
}
