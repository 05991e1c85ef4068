package build

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cruciblehq/cruxmatrix/internal/paths"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// Artifact type of package manifests.
	packageArtifactType = "application/vnd.cruxmatrix.package.v1"

	// Media type of the package layer: the artifact file as is.
	packageLayerMediaType = "application/vnd.cruxmatrix.package.layer.v1"
)

// Writes an OCI image layout describing a package artifact.
//
// The layout holds the artifact as its single layer, the empty JSON config
// and a manifest carrying the artifact filename. Nothing time-dependent is
// recorded, so the same artifact always yields the same manifest digest,
// which is returned.
func writeLayout(dir string, p platform.Platform, artifact, name string, d digest.Digest, size int64) (digest.Digest, error) {
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if err := os.MkdirAll(blobDir(dir), paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	if err := writeJSON(filepath.Join(dir, ocispec.ImageLayoutFile), ocispec.ImageLayout{
		Version: ocispec.ImageLayoutVersion,
	}); err != nil {
		return "", err
	}

	if err := copyBlob(dir, artifact, d); err != nil {
		return "", err
	}

	config := ocispec.DescriptorEmptyJSON
	if err := writeBlob(dir, config.Digest, config.Data); err != nil {
		return "", err
	}

	manifest := ocispec.Manifest{
		Versioned:    specs.Versioned{SchemaVersion: 2},
		MediaType:    ocispec.MediaTypeImageManifest,
		ArtifactType: packageArtifactType,
		Config:       config,
		Layers: []ocispec.Descriptor{{
			MediaType: packageLayerMediaType,
			Digest:    d,
			Size:      size,
			Annotations: map[string]string{
				ocispec.AnnotationTitle: name,
			},
		}},
	}
	raw, err := json.Marshal(manifest)
	if err != nil {
		return "", err
	}
	md := digest.Canonical.FromBytes(raw)
	if err := writeBlob(dir, md, raw); err != nil {
		return "", err
	}

	oci := p.Platform
	index := ocispec.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageIndex,
		Manifests: []ocispec.Descriptor{{
			MediaType:    ocispec.MediaTypeImageManifest,
			ArtifactType: packageArtifactType,
			Digest:       md,
			Size:         int64(len(raw)),
			Platform:     &oci,
		}},
	}
	if err := writeJSON(filepath.Join(dir, ocispec.ImageIndexFile), index); err != nil {
		return "", err
	}

	return md, nil
}

// Returns the sha256 blob directory of a layout.
func blobDir(dir string) string {
	return filepath.Join(dir, ocispec.ImageBlobsDir, digest.Canonical.String())
}

func writeBlob(dir string, d digest.Digest, data []byte) error {
	if err := os.WriteFile(filepath.Join(blobDir(dir), d.Encoded()), data, paths.DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	return nil
}

// Copies the artifact into the blob store, verifying its digest.
func copyBlob(dir, src string, d digest.Digest) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	defer in.Close()

	out, err := os.Create(filepath.Join(blobDir(dir), d.Encoded()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	verifier := d.Verifier()
	if _, err := io.Copy(io.MultiWriter(out, verifier), in); err != nil {
		out.Close()
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	if !verifier.Verified() {
		return fmt.Errorf("%w: artifact changed while writing layout", ErrFileSystemOperation)
	}
	return nil
}

func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, paths.DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}
	return nil
}
