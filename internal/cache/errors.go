package cache

import "errors"

var (
	ErrNotFound      = errors.New("cache entry not found")
	ErrCorrupt       = errors.New("cache entry corrupt")
	ErrInvalidKey    = errors.New("invalid cache key")
	ErrStore         = errors.New("cache store failed")
	ErrArchive       = errors.New("cache archive failed")
	ErrUnsafePath    = errors.New("unsafe archive path")
	ErrOutputMissing = errors.New("dependency output missing")
)
