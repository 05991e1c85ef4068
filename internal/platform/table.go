package platform

import (
	"maps"
	"slices"
)

// Toolchain settings for one target platform.
type Toolchain struct {
	Target string            // Toolchain target identifier, such as a compiler target triple.
	Image  string            // Toolchain image archive for container runners. Empty for host execution.
	Env    map[string]string // Environment the toolchain needs for this target.
}

// Maps normalized platform identifiers to toolchains.
type Table struct {
	entries map[string]Toolchain
}

// Built-in toolchain mapping.
//
// Targets are compiler target triples; projects using other toolchains
// override entries through the manifest.
var builtin = map[string]Toolchain{
	"linux/amd64":   {Target: "x86_64-unknown-linux-gnu"},
	"linux/arm64":   {Target: "aarch64-unknown-linux-gnu"},
	"linux/arm/v7":  {Target: "armv7-unknown-linux-gnueabihf"},
	"linux/386":     {Target: "i686-unknown-linux-gnu"},
	"darwin/amd64":  {Target: "x86_64-apple-darwin"},
	"darwin/arm64":  {Target: "aarch64-apple-darwin"},
	"windows/amd64": {Target: "x86_64-pc-windows-msvc"},
	"windows/arm64": {Target: "aarch64-pc-windows-msvc"},
}

// Returns a table holding the built-in mapping.
func DefaultTable() *Table {
	t, _ := NewTable(builtin)
	return t
}

// Creates a table from identifier keys, normalizing every key.
func NewTable(entries map[string]Toolchain) (*Table, error) {
	t := &Table{entries: make(map[string]Toolchain, len(entries))}
	for id, tc := range entries {
		if err := t.Set(id, tc); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Adds or replaces the toolchain for a platform.
func (t *Table) Set(id string, tc Toolchain) error {
	p, err := Parse(id)
	if err != nil {
		return err
	}
	tc.Env = maps.Clone(tc.Env)
	t.entries[p.String()] = tc
	return nil
}

// Returns the toolchain for a platform.
func (t *Table) Lookup(p Platform) (Toolchain, bool) {
	tc, ok := t.entries[p.String()]
	if !ok {
		return Toolchain{}, false
	}
	tc.Env = maps.Clone(tc.Env)
	return tc, true
}

// Returns the mapped platform identifiers, sorted.
func (t *Table) Platforms() []string {
	return slices.Sorted(maps.Keys(t.entries))
}
