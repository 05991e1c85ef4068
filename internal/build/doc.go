// Package build runs the per-platform build pipeline.
//
// For every resolved build context the pipeline first obtains the
// dependency cache artifact, then runs the lint, test and package stages
// against it. The dependency stage compiles only third-party dependencies,
// from a work directory holding nothing but the lock files, and stores the
// packed outputs under a content-derived cache key. A cache hit skips
// compilation entirely. Concurrent requests for the same missing key are
// coalesced so that each key is compiled at most once per run, and a key
// that failed is not retried within the run.
//
// Once the artifact is available, lint, test and package run concurrently,
// each in its own work directory holding the full source snapshot with the
// cached dependency outputs unpacked on top. Their outcomes are recorded as
// check results; a failing lint or test never stops a sibling stage. A
// dependency failure marks the remaining stages of that platform as
// skipped without running them. Platforms are independent of each other.
//
// Work directories live under <workdir>/<run-id>/<platform-slug>/<stage>
// and are removed when the run completes unless KeepWork is set.
//
// Example usage:
//
//	result, err := build.Run(ctx, build.Options{
//	    Manifest: m,
//	    Snapshot: snap,
//	    Contexts: contexts,
//	    Host:     platform.Host(),
//	    Store:    store,
//	    Runner:   toolchain.NewExecRunner(nil),
//	    Mode:     build.ModeCheck,
//	    WorkDir:  paths.Work(),
//	    DistDir:  "dist",
//	})
//	if err != nil {
//	    return err
//	}
//	if !result.Checks.Passed() {
//	    fmt.Println(result.Checks.Failed())
//	}
package build
