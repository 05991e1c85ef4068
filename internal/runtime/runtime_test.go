package runtime

import (
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
)

func TestImageTag(t *testing.T) {
	tag := imageTag("/toolchains/rust-1.80.tar")

	want := toolchainRepository + "/" + digest.FromString("/toolchains/rust-1.80.tar").Encoded() + ":latest"
	if tag != want {
		t.Fatalf("imageTag = %q, want %q", tag, want)
	}
	if imageTag("/toolchains/rust 1.81 (beta).tar") == tag {
		t.Fatal("different paths produced the same tag")
	}
	if strings.ContainsAny(imageTag("/toolchains/rust 1.81 (beta).tar"), " ()") {
		t.Fatal("tag contains characters from the path")
	}
}

func TestBindMounts(t *testing.T) {
	mounts := bindMounts([]string{"/work/run-1/linux-amd64/deps"})
	if len(mounts) != 1 {
		t.Fatalf("len = %d, want 1", len(mounts))
	}
	m := mounts[0]
	if m.Source != m.Destination || m.Type != "bind" {
		t.Fatalf("mount = %+v, want a bind mount at the same path", m)
	}
	if strings.Join(m.Options, ",") != "rbind,rw" {
		t.Fatalf("options = %v, want [rbind rw]", m.Options)
	}
	if len(bindMounts(nil)) != 0 {
		t.Fatal("expected no mounts for nil input")
	}
}

func TestOutputBufferInterleaves(t *testing.T) {
	var b outputBuffer
	b.Write([]byte("Compiling serde\n"))
	b.Write([]byte("warning: unused\n"))
	if got := b.String(); got != "Compiling serde\nwarning: unused\n" {
		t.Fatalf("String = %q", got)
	}
}
