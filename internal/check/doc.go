// Package check aggregates pipeline stage results into a verdict.
//
// Every pipeline stage (deps, lint, test, package) produces exactly one
// [StageResult] per target platform. Results are collected into a [Set]
// keyed by check name ("<platform-slug>/<stage>"). The set passes only when
// every result in it passed; a failed or skipped result fails the set but
// never hides the other results, which stay individually retrievable.
//
// A set is rendered for people as a text table, and for automation as JSON
// or YAML with [Encode].
package check
