package build

import (
	"testing"

	"github.com/cruciblehq/cruxmatrix/internal/library"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
)

func TestStageStateResolveLayersEnv(t *testing.T) {
	p, err := platform.Parse("linux/arm64")
	if err != nil {
		t.Fatal(err)
	}
	tc := platform.Toolchain{Target: "aarch64-unknown-linux-gnu", Image: "rust.tar", Env: map[string]string{"CC": "gcc", "MODE": "toolchain"}}
	bc := platform.NewBuildContext(p, tc, library.List{}, nil, map[string]string{"MODE": "project"})

	base := newStageState(bc)
	resolved := base.resolve("/work/lint", map[string]string{"MODE": "stage"})

	if got := resolved.env["MODE"]; got != "stage" {
		t.Fatalf("MODE = %q, want %q", got, "stage")
	}
	if got := resolved.env["CC"]; got != "gcc" {
		t.Fatalf("CC = %q, want %q", got, "gcc")
	}
	if got := base.env["MODE"]; got != "project" {
		t.Fatalf("base MODE = %q, want %q", got, "project")
	}
	if base.dir != "" {
		t.Fatalf("base dir = %q, want empty", base.dir)
	}

	inv := resolved.invocation("lint", []string{"cargo", "clippy"})
	if inv.Platform != "linux/arm64" || inv.Image != "rust.tar" || inv.Dir != "/work/lint" || inv.Stage != "lint" {
		t.Fatalf("invocation = %+v", inv)
	}

	// The invocation owns its env.
	inv.Env["MODE"] = "changed"
	if got := resolved.env["MODE"]; got != "stage" {
		t.Fatalf("resolved MODE = %q after invocation change, want %q", got, "stage")
	}
}
