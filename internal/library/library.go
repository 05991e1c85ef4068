package library

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cruciblehq/cruxmatrix/internal/fingerprint"
	"github.com/opencontainers/go-digest"
)

// An external library declared by the project.
type Library struct {
	Name    string // Library name, unique within a manifest.
	Version string // Declared version requirement.
	Prefix  string // Installation prefix. Empty when found on default search paths.
}

// A set of declared libraries.
type List []Library

// Returns a copy of the list ordered by name.
func (l List) Sorted() List {
	sorted := slices.Clone(l)
	slices.SortFunc(sorted, func(a, b Library) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return sorted
}

// Returns the library names in name order.
func (l List) Names() []string {
	names := make([]string, 0, len(l))
	for _, lib := range l.Sorted() {
		names = append(names, lib.Name)
	}
	return names
}

// Returns a digest identifying the declared library set.
//
// The digest covers names and versions in name order, so declaration order
// and installation prefixes do not affect it.
func (l List) Digest() digest.Digest {
	h := fingerprint.New().String("libraries/v1").Count(len(l))
	for _, lib := range l.Sorted() {
		h.String(lib.Name).String(lib.Version)
	}
	return h.Digest()
}

// Parses a list of "name=prefix" overrides.
//
// Entries are separated by the host's path list separator. Empty entries are
// ignored; an entry without "=" or with an empty name is an error.
func ParseOverrides(s string) (map[string]string, error) {
	overrides := make(map[string]string)
	for _, entry := range filepath.SplitList(s) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, prefix, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOverride, entry)
		}
		overrides[strings.TrimSpace(name)] = strings.TrimSpace(prefix)
	}
	return overrides, nil
}

// Returns the effective installation prefix of a library.
func (l Library) effectivePrefix(overrides map[string]string) string {
	if p, ok := overrides[l.Name]; ok {
		return p
	}
	return l.Prefix
}
