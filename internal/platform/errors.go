package platform

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPlatform     = errors.New("invalid platform")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Returned when a requested platform has no toolchain mapping.
type UnsupportedPlatformError struct {
	Platform  string   // Normalized platform identifier.
	Supported []string // Platforms present in the table, sorted.
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %s (supported: %v)", e.Platform, e.Supported)
}

// Allows errors.Is(err, ErrUnsupportedPlatform).
func (e *UnsupportedPlatformError) Unwrap() error {
	return ErrUnsupportedPlatform
}

// Returns the unsupported platform errors held by err.
//
// err is typically the joined error from [Resolver.Resolve]. Returns nil if
// err is nil or holds anything other than [UnsupportedPlatformError] values.
func UnsupportedPlatforms(err error) []*UnsupportedPlatformError {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		errs = j.Unwrap()
	}

	out := make([]*UnsupportedPlatformError, 0, len(errs))
	for _, e := range errs {
		u, ok := e.(*UnsupportedPlatformError)
		if !ok {
			return nil
		}
		out = append(out, u)
	}
	return out
}
