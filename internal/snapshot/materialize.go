package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cruciblehq/cruxmatrix/internal/paths"
	"github.com/opencontainers/go-digest"
)

// Copies every recorded file from the root into dir.
//
// Each file is digested while it is copied. If the content no longer
// matches the recorded digest, the copy fails with an [Error] wrapping
// [ErrChanged]. Directories are created as needed; dir itself may already
// exist.
func (s *Snapshot) Materialize(dir string) error {
	for _, f := range s.files {
		if err := s.copyFile(f, dir); err != nil {
			return &Error{Root: s.root, Path: f.Path, Err: err}
		}
	}
	return nil
}

// Copies a single file, verifying its digest.
func (s *Snapshot) copyFile(f File, dir string) error {
	src, err := os.Open(filepath.Join(s.root, filepath.FromSlash(f.Path)))
	if err != nil {
		return err
	}
	defer src.Close()

	target := filepath.Join(dir, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(target), paths.DefaultDirMode); err != nil {
		return err
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode)
	if err != nil {
		return err
	}

	verifier := f.Digest.Verifier()
	if _, err := io.Copy(io.MultiWriter(dst, verifier), src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	if !verifier.Verified() {
		return fmt.Errorf("%w: want %s", ErrChanged, f.Digest)
	}
	return nil
}

// Returns the digest of the file currently at path under the root.
func (s *Snapshot) current(path string) (digest.Digest, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.Canonical.FromReader(f)
}

// Reports the recorded files whose content differs from the live tree.
//
// Deleted files are reported as changed.
func (s *Snapshot) Changed() ([]string, error) {
	var changed []string
	for _, f := range s.files {
		d, err := s.current(f.Path)
		if os.IsNotExist(err) {
			changed = append(changed, f.Path)
			continue
		}
		if err != nil {
			return nil, &Error{Root: s.root, Path: f.Path, Err: err}
		}
		if d != f.Digest {
			changed = append(changed, f.Path)
		}
	}
	return changed, nil
}
