package build

import (
	"errors"
	"fmt"

	"github.com/cruciblehq/cruxmatrix/internal/cache"
)

var (
	ErrBuild               = errors.New("build failed")
	ErrFileSystemOperation = errors.New("file system operation failed")
	ErrDependencyBuild     = errors.New("dependency build failed")
	ErrPackageBuild        = errors.New("package build failed")
	ErrNoPackageStage      = errors.New("manifest declares no package stage")
)

// Returned when compiling the dependencies of a cache key fails.
//
// Fatal for every stage depending on the key.
type DependencyBuildError struct {
	Platform   string    // Target platform identifier.
	Key        cache.Key // Cache key being filled.
	Dependency string    // Failing dependency, empty when it could not be determined.
	Output     string    // Compiler output.
	Err        error     // Underlying cause, nil when the compiler exited nonzero.
}

func (e *DependencyBuildError) Error() string {
	what := "dependencies"
	if e.Dependency != "" {
		what = fmt.Sprintf("dependency %q", e.Dependency)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: building %s: %v", e.Platform, what, e.Err)
	}
	return fmt.Sprintf("%s: %s failed to compile", e.Platform, what)
}

func (e *DependencyBuildError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDependencyBuild, e.Err}
	}
	return []error{ErrDependencyBuild}
}

// Returned when compiling or collecting the project package fails.
//
// Fatal for the platform's package only.
type PackageBuildError struct {
	Platform string // Target platform identifier.
	Output   string // Compiler output.
	Err      error  // Underlying cause, nil when the compiler exited nonzero.
}

func (e *PackageBuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: package: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s: package failed to compile", e.Platform)
}

func (e *PackageBuildError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPackageBuild, e.Err}
	}
	return []error{ErrPackageBuild}
}
