package snapshot

import (
	"cmp"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cruciblehq/cruxmatrix/internal/fingerprint"
	"github.com/opencontainers/go-digest"
)

// Version control directories never included in a snapshot.
var vcsDirs = []string{".git", ".hg", ".svn"}

// A file recorded in a snapshot.
type File struct {
	Path   string        // Slash path relative to the snapshot root.
	Mode   fs.FileMode   // Permission bits at capture time.
	Size   int64         // Size in bytes.
	Digest digest.Digest // Content digest.
}

// Reports whether the file has any executable bit set.
func (f File) Executable() bool {
	return f.Mode&0111 != 0
}

// An immutable, filtered view of a source tree.
type Snapshot struct {
	root   string
	files  []File
	index  map[string]int
	digest digest.Digest
}

// Captures the tree under root, skipping paths matching ignore.
//
// Ignore patterns are doublestar globs matched against slash paths relative
// to root. A pattern matching a directory prunes the whole directory.
// Symbolic links and other non-regular files are not recorded.
func Take(root string, ignore []string) (*Snapshot, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &Error{Root: root, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, &Error{Root: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Root: abs, Err: fmt.Errorf("not a directory")}
	}

	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, &Error{Root: abs, Err: fmt.Errorf("%w: %q", ErrPattern, pattern)}
		}
	}

	var files []File
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == abs {
			return nil
		}

		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if slices.Contains(vcsDirs, d.Name()) || ignored(rel, ignore) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignored(rel, ignore) {
			return nil
		}

		f, err := record(p, rel)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, &Error{Root: abs, Err: err}
	}

	s := newSnapshot(abs, files)
	slog.Debug("snapshot taken", "root", abs, "files", len(s.files), "digest", s.digest)
	return s, nil
}

// Builds a snapshot from already-recorded files.
func newSnapshot(root string, files []File) *Snapshot {
	files = slices.Clone(files)
	slices.SortFunc(files, func(a, b File) int {
		return cmp.Compare(a.Path, b.Path)
	})

	index := make(map[string]int, len(files))
	for i, f := range files {
		index[f.Path] = i
	}

	return &Snapshot{
		root:   root,
		files:  files,
		index:  index,
		digest: digestFiles(files),
	}
}

// Reads one file and returns its record.
func record(p, rel string) (File, error) {
	info, err := os.Stat(p)
	if err != nil {
		return File{}, err
	}

	f, err := os.Open(p)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", rel, err)
	}

	return File{
		Path:   rel,
		Mode:   info.Mode().Perm(),
		Size:   info.Size(),
		Digest: d,
	}, nil
}

// Reports whether rel matches any ignore pattern.
func ignored(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Computes the digest of a sorted file list.
//
// Only the path, executable bit and content digest contribute. Sizes are
// implied by the content digest and other permission bits vary across
// checkouts.
func digestFiles(files []File) digest.Digest {
	h := fingerprint.New().String("snapshot/v1").Count(len(files))
	for _, f := range files {
		exec := "0"
		if f.Executable() {
			exec = "1"
		}
		h.String(f.Path).String(exec).String(f.Digest.String())
	}
	return h.Digest()
}

// Returns the absolute root directory.
func (s *Snapshot) Root() string {
	return s.root
}

// Returns the content digest of the snapshot.
func (s *Snapshot) Digest() digest.Digest {
	return s.digest
}

// Returns the recorded files, sorted by path.
func (s *Snapshot) Files() []File {
	return slices.Clone(s.files)
}

// Returns the number of recorded files.
func (s *Snapshot) Len() int {
	return len(s.files)
}

// Returns the record for a slash path.
func (s *Snapshot) File(path string) (File, bool) {
	i, ok := s.index[path]
	if !ok {
		return File{}, false
	}
	return s.files[i], true
}

// Returns the snapshot restricted to files matching patterns.
//
// Each pattern is a doublestar glob or a literal slash path. A pattern that
// matches no recorded file is an error wrapping [ErrMissing], since a
// missing lock file would silently weaken the cache key.
func (s *Snapshot) Subset(patterns []string) (*Snapshot, error) {
	selected := make(map[string]bool)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, &Error{Root: s.root, Path: pattern, Err: ErrPattern}
		}

		matched := false
		for _, f := range s.files {
			if ok, _ := doublestar.Match(pattern, f.Path); ok {
				selected[f.Path] = true
				matched = true
			}
		}
		if !matched {
			return nil, &Error{Root: s.root, Path: pattern, Err: ErrMissing}
		}
	}

	files := make([]File, 0, len(selected))
	for _, f := range s.files {
		if selected[f.Path] {
			files = append(files, f)
		}
	}
	return newSnapshot(s.root, files), nil
}
