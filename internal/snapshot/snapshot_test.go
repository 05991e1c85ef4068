package snapshot

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestTakeSkipsIgnoredAndVCS(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Cargo.toml":           "[package]",
		"src/main.rs":          "fn main() {}",
		"target/debug/app":     "binary",
		".git/HEAD":            "ref: refs/heads/main",
		"notes/scratch.tmp":    "x",
		"notes/keep/readme.md": "keep",
	})

	s, err := Take(dir, []string{"target", "**/*.tmp"})
	if err != nil {
		t.Fatalf("Take: %v", err)
	}

	var got []string
	for _, f := range s.Files() {
		got = append(got, f.Path)
	}
	want := []string{"Cargo.toml", "notes/keep/readme.md", "src/main.rs"}
	if !slices.Equal(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
}

func TestTakeUnreadableRoot(t *testing.T) {
	_, err := Take(filepath.Join(t.TempDir(), "missing"), nil)
	if !errors.Is(err, ErrSnapshot) {
		t.Fatalf("error = %v, want ErrSnapshot", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestTakeInvalidIgnorePattern(t *testing.T) {
	if _, err := Take(t.TempDir(), []string{"[unterminated"}); !errors.Is(err, ErrPattern) {
		t.Fatalf("error = %v, want ErrPattern", err)
	}
}

func TestDigestTracksContentAndExecBit(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "one", "run.sh": "#!/bin/sh"})

	first, err := Take(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Take(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Digest() != again.Digest() {
		t.Fatal("digest differs for an unchanged tree")
	}

	if err := os.Chmod(filepath.Join(dir, "run.sh"), 0755); err != nil {
		t.Fatal(err)
	}
	chmodded, err := Take(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if chmodded.Digest() == first.Digest() {
		t.Fatal("exec bit change did not change the digest")
	}

	writeTree(t, dir, map[string]string{"a.txt": "two"})
	edited, err := Take(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if edited.Digest() == chmodded.Digest() {
		t.Fatal("content change did not change the digest")
	}
}

func TestSubset(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Cargo.toml":  "[package]",
		"Cargo.lock":  "# lock",
		"src/main.rs": "fn main() {}",
	})
	s, err := Take(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	lock, err := s.Subset([]string{"Cargo.*"})
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if lock.Len() != 2 {
		t.Fatalf("Len = %d, want 2", lock.Len())
	}

	// Editing source outside the subset must not change its digest.
	writeTree(t, dir, map[string]string{"src/main.rs": "fn main() { println!() }"})
	s2, err := Take(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	lock2, err := s2.Subset([]string{"Cargo.*"})
	if err != nil {
		t.Fatal(err)
	}
	if lock.Digest() != lock2.Digest() {
		t.Fatal("subset digest changed with an unrelated edit")
	}

	if _, err := s.Subset([]string{"go.sum"}); !errors.Is(err, ErrMissing) {
		t.Fatalf("error = %v, want ErrMissing", err)
	}
}

func TestMaterialize(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a/b.txt": "hello", "c.txt": "world"})
	s, err := Take(src, nil)
	if err != nil {
		t.Fatal(err)
	}

	dst := t.TempDir()
	if err := s.Materialize(dst); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "a", "b.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("a/b.txt = %q, want hello", data)
	}
}

func TestMaterializeDetectsChange(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "before"})
	s, err := Take(src, nil)
	if err != nil {
		t.Fatal(err)
	}

	writeTree(t, src, map[string]string{"a.txt": "after"})

	changed, err := s.Changed()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(changed, []string{"a.txt"}) {
		t.Fatalf("Changed = %v, want [a.txt]", changed)
	}

	err = s.Materialize(t.TempDir())
	if !errors.Is(err, ErrChanged) {
		t.Fatalf("error = %v, want ErrChanged", err)
	}
	var serr *Error
	if !errors.As(err, &serr) || serr.Path != "a.txt" {
		t.Fatalf("error = %v, want *Error for a.txt", err)
	}
}

func TestDigestIndependentOfCreationOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25

	properties := gopter.NewProperties(parameters)

	properties.Property("creation order does not affect the digest", prop.ForAll(
		func(names []string) bool {
			files := make(map[string]string, len(names))
			for _, n := range names {
				files[n] = "content of " + n
			}

			forward := t.TempDir()
			backward := t.TempDir()
			ordered := slices.Sorted(maps.Keys(files))
			for _, n := range ordered {
				writeTree(t, forward, map[string]string{n: files[n]})
			}
			for _, n := range slices.Backward(ordered) {
				writeTree(t, backward, map[string]string{n: files[n]})
			}

			a, err := Take(forward, nil)
			if err != nil {
				return false
			}
			b, err := Take(backward, nil)
			if err != nil {
				return false
			}
			return a.Digest() == b.Digest()
		},
		gen.SliceOfN(8, gen.Identifier()),
	))

	properties.TestingRun(t)
}
