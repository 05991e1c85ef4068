package library

import "errors"

var (
	ErrInvalidOverride = errors.New("invalid library path override")
)
