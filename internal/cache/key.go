package cache

import (
	"fmt"

	"github.com/cruciblehq/cruxmatrix/internal/fingerprint"
	"github.com/opencontainers/go-digest"
)

// Schema tag mixed into every key. Bump when the artifact layout changes so
// old entries are no longer matched.
const keySchema = "cruxmatrix-deps/v1"

// Identifies a compiled dependency artifact.
type Key digest.Digest

// Derives the key for a lock state, platform and library set.
func NewKey(lock digest.Digest, platform string, libraries digest.Digest) Key {
	d := fingerprint.New().
		String(keySchema).
		String(lock.String()).
		String(platform).
		String(libraries.String()).
		Digest()
	return Key(d)
}

// Parses a key from its string form.
func ParseKey(s string) (Key, error) {
	d, err := digest.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return Key(d), nil
}

// Returns the key as "algorithm:hex".
func (k Key) String() string {
	return string(k)
}

// Returns the key as a digest.
func (k Key) Digest() digest.Digest {
	return digest.Digest(k)
}

// Returns a short form for logs.
func (k Key) Short() string {
	enc := digest.Digest(k).Encoded()
	if len(enc) > 12 {
		return enc[:12]
	}
	return enc
}

// Checks the key is a well-formed digest.
func (k Key) Validate() error {
	if err := digest.Digest(k).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return nil
}
