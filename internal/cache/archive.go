package cache

import (
	"archive/tar"
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cruciblehq/cruxmatrix/internal/paths"
	"github.com/klauspost/compress/zstd"
)

// Fixed modification time written to every archive entry.
var epoch = time.Unix(0, 0).UTC()

// A file system entry selected for archiving.
type entry struct {
	name string // Slash path inside the archive.
	path string // Host path.
	info fs.FileInfo
}

// Archives outputs under dir into a deterministic tar.zst blob.
//
// Outputs are slash paths relative to dir and may name files or
// directories. Entries are sorted by name and carry no timestamps, owners or
// device data, so identical trees always produce identical bytes. A missing
// output fails with [ErrOutputMissing].
func Pack(dir string, outputs []string) ([]byte, error) {
	entries, err := collect(dir, outputs)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	tw := tar.NewWriter(zw)
	for _, e := range entries {
		if err := writeEntry(tw, e); err != nil {
			zw.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrArchive, e.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		zw.Close()
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}
	return buf.Bytes(), nil
}

// Walks each output and returns the sorted, deduplicated entry list.
func collect(dir string, outputs []string) ([]entry, error) {
	seen := make(map[string]bool)
	var entries []entry

	for _, out := range outputs {
		clean := path.Clean(out)
		if !filepath.IsLocal(filepath.FromSlash(clean)) {
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, out)
		}

		root := filepath.Join(dir, filepath.FromSlash(clean))
		if _, err := os.Lstat(root); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrOutputMissing, out)
			}
			return nil, fmt.Errorf("%w: %w", ErrArchive, err)
		}

		err := filepath.Walk(root, func(p string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			if seen[name] {
				return nil
			}
			seen[name] = true
			entries = append(entries, entry{name: name, path: p, info: info})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrArchive, err)
		}
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.name, b.name)
	})
	return entries, nil
}

// Writes one normalized entry.
func writeEntry(tw *tar.Writer, e entry) error {
	hdr := &tar.Header{
		Name:    e.name,
		Mode:    int64(e.info.Mode().Perm()),
		ModTime: epoch,
		Format:  tar.FormatPAX,
	}

	switch {
	case e.info.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
	case e.info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(e.path)
		if err != nil {
			return err
		}
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = filepath.ToSlash(target)
	case e.info.Mode().IsRegular():
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.info.Size()
	default:
		return nil
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	f, err := os.Open(e.path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// Extracts a blob produced by [Pack] into dir.
//
// Entry names must stay within dir; an absolute or escaping name, or one that
// would be written through a symlink already under dir, fails with
// [ErrUnsafePath] before anything outside dir is touched.
func Unpack(blob []byte, dir string) error {
	zr, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchive, err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrArchive, err)
		}

		name := strings.TrimSuffix(hdr.Name, "/")
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("%w: %q", ErrUnsafePath, hdr.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := checkSymlinks(dir, name); err != nil {
			return err
		}

		if err := extract(tr, hdr, target); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrArchive, name, err)
		}
	}
}

// Fails with [ErrUnsafePath] if any existing component of name under dir is a
// symlink.
//
// Symlink entries are extracted as-is, so a later entry could otherwise
// reach outside dir through one of them.
func checkSymlinks(dir, name string) error {
	p := dir
	for _, part := range strings.Split(name, "/") {
		p = filepath.Join(p, part)
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrArchive, err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: %q passes through symlink %q", ErrUnsafePath, name, part)
		}
	}
	return nil
}

// Writes one archive entry to target.
func extract(r io.Reader, hdr *tar.Header, target string) error {
	mode := fs.FileMode(hdr.Mode).Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, mode|0700)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), paths.DefaultDirMode); err != nil {
			return err
		}
		return os.Symlink(filepath.FromSlash(hdr.Linkname), target)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), paths.DefaultDirMode); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return nil
	}
}
