package cache

import (
	"bytes"
	"time"

	"github.com/opencontainers/go-digest"
)

// A compiled dependency artifact.
//
// Artifacts are never mutated once created. Stores hand out copies, so a
// caller changing Blob affects only its own copy.
type Artifact struct {
	Key     Key       // Cache key the artifact is stored under.
	Blob    []byte    // Compiled dependency archive.
	Created time.Time // Creation time, UTC.
}

// Creates an artifact stamped with the current time.
func NewArtifact(key Key, blob []byte) *Artifact {
	return &Artifact{
		Key:     key,
		Blob:    bytes.Clone(blob),
		Created: time.Now().UTC().Truncate(time.Second),
	}
}

// Returns the digest of the blob.
func (a *Artifact) BlobDigest() digest.Digest {
	return digest.Canonical.FromBytes(a.Blob)
}

// Returns a deep copy.
func (a *Artifact) Clone() *Artifact {
	c := *a
	c.Blob = bytes.Clone(a.Blob)
	if c.Blob == nil {
		c.Blob = []byte{}
	}
	return &c
}
