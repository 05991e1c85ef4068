package build

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cruciblehq/cruxmatrix/internal/cache"
	"github.com/cruciblehq/cruxmatrix/internal/paths"
	"github.com/cruciblehq/cruxmatrix/internal/snapshot"
	"github.com/opencontainers/go-digest"
)

// Creates an empty stage work directory.
//
// A leftover directory from an earlier attempt is removed first.
func prepareDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	return nil
}

// Prepares a gate or package work directory.
//
// The full snapshot is materialized and the dependency artifact unpacked on
// top, so the toolchain finds its compiled dependencies where the
// dependency stage left them.
func prepareWorkspace(dir string, snap *snapshot.Snapshot, artifact *cache.Artifact) error {
	if err := prepareDir(dir); err != nil {
		return err
	}
	if err := snap.Materialize(dir); err != nil {
		return err
	}
	if err := cache.Unpack(artifact.Blob, dir); err != nil {
		return err
	}
	return nil
}

// Copies a file to dest, returning its digest and size.
//
// The destination is written under a temporary name and renamed, so a
// failed copy never leaves a partial artifact at dest.
func copyArtifact(src, dest string) (digest.Digest, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", 0, err
	}
	if !info.Mode().IsRegular() {
		return "", 0, fmt.Errorf("%s is not a regular file", src)
	}

	if err := os.MkdirAll(filepath.Dir(dest), paths.DefaultDirMode); err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".artifact-*")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())

	digester := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(tmp, digester.Hash()), in)
	if err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", 0, err
	}

	return digester.Digest(), n, nil
}
