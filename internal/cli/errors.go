package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cruciblehq/cruxmatrix/internal/build"
	"github.com/cruciblehq/cruxmatrix/internal/library"
	"github.com/cruciblehq/cruxmatrix/internal/manifest"
	"github.com/cruciblehq/cruxmatrix/internal/platform"
	"github.com/cruciblehq/cruxmatrix/internal/snapshot"
)

// Process exit codes.
const (
	ExitFailed = 1 // A check failed or the run could not complete.
	ExitUsage  = 2 // Invalid flags, environment or manifest.
)

var (
	ErrChecksFailed = errors.New("checks failed")
	ErrConfig       = errors.New("invalid configuration")
)

// Carries the exit status a command wants the process to end with.
//
// Err may be nil when the command already reported the failure, such as a
// develop command exiting nonzero.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Wraps a configuration error so the process exits with [ExitUsage].
func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: fmt.Errorf("%w: %w", ErrConfig, err)}
}

// Returns an error for failed checks, or nil when names is empty.
func checksFailed(names []string) error {
	if len(names) == 0 {
		return nil
	}
	return &ExitError{
		Code: ExitFailed,
		Err:  fmt.Errorf("%w: %s", ErrChecksFailed, strings.Join(names, ", ")),
	}
}

// Reports whether err comes from invalid input rather than a failed run.
func isConfigError(err error) bool {
	return errors.Is(err, manifest.ErrManifest) ||
		errors.Is(err, manifest.ErrEval) ||
		errors.Is(err, platform.ErrInvalidPlatform) ||
		errors.Is(err, platform.ErrUnsupportedPlatform) ||
		errors.Is(err, library.ErrInvalidOverride) ||
		errors.Is(err, snapshot.ErrMissing) ||
		errors.Is(err, snapshot.ErrPattern) ||
		errors.Is(err, build.ErrNoPackageStage)
}

// Maps err to an [ExitError] when it is a configuration error.
func classify(err error) error {
	var exitErr *ExitError
	if err == nil || errors.As(err, &exitErr) {
		return err
	}
	if isConfigError(err) {
		return usageError(err)
	}
	return err
}
