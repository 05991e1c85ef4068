package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default number of artifacts held by an [LRU].
const DefaultLRUSize = 64

// Read-through in-process cache in front of another [Store].
//
// Entries are immutable, so a cached artifact never goes stale. Only
// positive results are cached; a miss always reaches the backing store.
type LRU struct {
	store Store
	cache *lru.Cache[Key, *Artifact]
}

// Wraps store with an LRU holding up to size artifacts.
func NewLRU(store Store, size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	c, err := lru.New[Key, *Artifact](size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return &LRU{store: store, cache: c}, nil
}

func (l *LRU) Exists(ctx context.Context, key Key) (bool, error) {
	if l.cache.Contains(key) {
		return true, nil
	}
	return l.store.Exists(ctx, key)
}

func (l *LRU) Read(ctx context.Context, key Key) (*Artifact, error) {
	if a, ok := l.cache.Get(key); ok {
		return a.Clone(), nil
	}
	a, err := l.store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, a.Clone())
	return a, nil
}

func (l *LRU) Write(ctx context.Context, a *Artifact) error {
	if err := l.store.Write(ctx, a); err != nil {
		return err
	}
	// The first write wins, so the stored entry may differ from a.
	l.cache.Remove(a.Key)
	return nil
}

// Returns the number of cached artifacts.
func (l *LRU) Len() int {
	return l.cache.Len()
}
