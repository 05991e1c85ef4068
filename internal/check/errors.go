package check

import "errors"

var (
	ErrDuplicateCheck = errors.New("duplicate check")
	ErrUnknownFormat  = errors.New("unknown report format")
)
