// Package devenv composes the interactive development environment.
//
// The environment exposes the same toolchain settings and external
// libraries the build stages use on the host, through the same library
// overlay, so a command that works in `cruxmatrix develop` behaves the same
// way in a build stage. Composition is a pure function of its inputs: no
// stage runs and nothing is cached or persisted.
package devenv
