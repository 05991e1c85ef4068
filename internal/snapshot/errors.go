package snapshot

import (
	"errors"
	"fmt"
)

var (
	ErrSnapshot = errors.New("snapshot failed")
	ErrMissing  = errors.New("file not in snapshot")
	ErrChanged  = errors.New("file changed since snapshot")
	ErrPattern  = errors.New("invalid pattern")
)

// Returned when the source tree cannot be captured or reproduced.
//
// Matches [ErrSnapshot] and the wrapped cause with errors.Is.
type Error struct {
	Root string // Snapshot root.
	Path string // Slash path relative to Root, empty for root-level failures.
	Err  error  // Underlying cause.
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("snapshot %s: %v", e.Root, e.Err)
	}
	return fmt.Sprintf("snapshot %s: %s: %v", e.Root, e.Path, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrSnapshot, e.Err}
}
