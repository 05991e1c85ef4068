package cache

import "context"

// A content-addressed artifact store.
//
// Implementations must be safe for concurrent use. Write is atomic: readers
// observe either no entry or the complete entry. The first write for a key
// wins and later writes for that key return nil without changing it.
type Store interface {

	// Reports whether an entry exists for key.
	Exists(ctx context.Context, key Key) (bool, error)

	// Returns the entry for key, or an error wrapping [ErrNotFound].
	Read(ctx context.Context, key Key) (*Artifact, error)

	// Stores an artifact under its key.
	Write(ctx context.Context, a *Artifact) error
}
