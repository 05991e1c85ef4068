// Package fingerprint computes content digests over sequences of fields.
//
// Every field is written with an 8-byte big-endian length prefix, so the
// sequences ("ab", "c") and ("a", "bc") never collide. Callers are
// responsible for writing fields in a canonical order.
package fingerprint

import (
	"encoding/binary"
	"hash"

	"github.com/opencontainers/go-digest"
)

// Accumulates length-prefixed fields into a canonical digest.
type Hasher struct {
	digester digest.Digester
	hash     hash.Hash
}

// Creates a [Hasher] using the canonical digest algorithm (sha256).
func New() *Hasher {
	d := digest.Canonical.Digester()
	return &Hasher{digester: d, hash: d.Hash()}
}

// Writes a length-prefixed byte field.
func (h *Hasher) Bytes(b []byte) *Hasher {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(b)))
	h.hash.Write(prefix[:])
	h.hash.Write(b)
	return h
}

// Writes a length-prefixed string field.
func (h *Hasher) String(s string) *Hasher {
	return h.Bytes([]byte(s))
}

// Writes a count field, used ahead of variable-length groups.
func (h *Hasher) Count(n int) *Hasher {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	return h.Bytes(b[:])
}

// Returns the digest of all fields written so far.
func (h *Hasher) Digest() digest.Digest {
	return h.digester.Digest()
}
