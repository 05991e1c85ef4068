package toolchain

import "errors"

var (
	ErrInvocation = errors.New("toolchain invocation failed")
	ErrCancelled  = errors.New("toolchain invocation cancelled")
	ErrNoImage    = errors.New("no toolchain image for platform")
)
