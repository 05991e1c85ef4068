package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cruciblehq/cruxmatrix/internal/paths"
	"github.com/opencontainers/go-digest"
)

const (
	blobFile = "blob.tar.zst"
	metaFile = "meta.json"
	tmpDir   = "tmp"
)

// Entry metadata written alongside each blob.
type meta struct {
	Key     Key           `json:"key"`
	Blob    digest.Digest `json:"blob"`
	Size    int64         `json:"size"`
	Created time.Time     `json:"created"`
}

// Local disk [Store].
//
// Entries live under root/<algorithm>/<hex[:2]>/<hex>/. An entry directory
// is assembled under root/tmp and renamed into place, so a directory at the
// final path is always complete. Leftover temporary directories from an
// interrupted run are never read.
type FileStore struct {
	root string
}

// Creates a file store rooted at root, creating the directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, tmpDir), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return &FileStore{root: root}, nil
}

// Returns the store root.
func (s *FileStore) Root() string {
	return s.root
}

// Returns the entry directory for key.
func (s *FileStore) entryDir(key Key) string {
	d := key.Digest()
	enc := d.Encoded()
	return filepath.Join(s.root, d.Algorithm().String(), enc[:2], enc)
}

func (s *FileStore) Exists(ctx context.Context, key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.entryDir(key), metaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return true, nil
}

func (s *FileStore) Read(ctx context.Context, key Key) (*Artifact, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	dir := s.entryDir(key)

	raw, err := os.ReadFile(filepath.Join(dir, metaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	if m.Key != key {
		return nil, fmt.Errorf("%w: %s: metadata names %s", ErrCorrupt, key, m.Key)
	}

	blob, err := os.ReadFile(filepath.Join(dir, blobFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	if err := m.Blob.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	if got := m.Blob.Algorithm().FromBytes(blob); got != m.Blob {
		return nil, fmt.Errorf("%w: %s: blob digest %s, want %s", ErrCorrupt, key, got, m.Blob)
	}

	return &Artifact{Key: key, Blob: blob, Created: m.Created}, nil
}

func (s *FileStore) Write(ctx context.Context, a *Artifact) error {
	if err := a.Key.Validate(); err != nil {
		return err
	}

	final := s.entryDir(a.Key)
	// Broken or incomplete entries are replaced.
	switch _, err := s.Read(ctx, a.Key); {
	case err == nil:
		return nil
	case errors.Is(err, ErrCorrupt):
		slog.Warn("replacing corrupt cache entry", "key", a.Key.Short(), "error", err)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	if err := s.discard(final); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(filepath.Join(s.root, tmpDir), a.Key.Short()+"-")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer os.RemoveAll(tmp)

	if err := s.stage(tmp, a); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	// A cancelled run must not publish anything, even a complete entry.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(final), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		// Lost a race with another writer for the same key.
		if ok, _ := s.Exists(ctx, a.Key); ok {
			slog.Debug("cache entry already written", "key", a.Key.Short())
			return nil
		}
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.Debug("cache entry written", "key", a.Key.Short(), "size", len(a.Blob))
	return nil
}

// Moves an existing entry directory out of place and removes it.
//
// The rename keeps readers from seeing a half-deleted entry.
func (s *FileStore) discard(dir string) error {
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	trash, err := os.MkdirTemp(filepath.Join(s.root, tmpDir), "discard-")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer os.RemoveAll(trash)

	if err := os.Rename(dir, filepath.Join(trash, "entry")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Writes blob and metadata into a temporary entry directory.
//
// Metadata goes last since its presence marks an entry as complete.
func (s *FileStore) stage(dir string, a *Artifact) error {
	if err := writeSynced(filepath.Join(dir, blobFile), a.Blob); err != nil {
		return err
	}

	created := a.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	raw, err := json.MarshalIndent(meta{
		Key:     a.Key,
		Blob:    digest.Canonical.FromBytes(a.Blob),
		Size:    int64(len(a.Blob)),
		Created: created,
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeSynced(filepath.Join(dir, metaFile), raw)
}

// Writes data to a new file and flushes it to disk.
func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, paths.DefaultFileMode)
	if err != nil {
		return err
	}
	if _, err := bytes.NewReader(data).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
