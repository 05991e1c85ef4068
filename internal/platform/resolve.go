package platform

import (
	"errors"
	"log/slog"
	"maps"

	"github.com/cruciblehq/cruxmatrix/internal/library"
)

// Expands requested platforms into build contexts.
type Resolver struct {
	table     *Table
	libraries library.List
	overrides map[string]string
	env       map[string]string
}

// Creates a resolver.
//
// libs and overrides feed the library overlay of every context; env holds
// project-wide environment variables.
func NewResolver(table *Table, libs library.List, overrides, env map[string]string) *Resolver {
	return &Resolver{
		table:     table,
		libraries: libs,
		overrides: maps.Clone(overrides),
		env:       maps.Clone(env),
	}
}

// Resolves the requested platforms into build contexts.
//
// An empty request resolves to the host platform only. Requests are
// normalized and duplicates collapse onto their first occurrence, so the
// result preserves request order. A malformed identifier fails the whole
// resolution. A platform without a toolchain mapping is left out of the
// result and reported as an [UnsupportedPlatformError]; the contexts for the
// other platforms are still returned alongside the joined error.
func (r *Resolver) Resolve(requested []string, host Platform) ([]*BuildContext, error) {
	targets, err := r.targets(requested, host)
	if err != nil {
		return nil, err
	}

	// Library prefixes are host paths, so the overlay follows the host.
	overlay := library.Overlay(r.libraries, r.overrides, host.OS)

	contexts := make([]*BuildContext, 0, len(targets))
	var errs []error
	for _, p := range targets {
		tc, ok := r.table.Lookup(p)
		if !ok {
			errs = append(errs, &UnsupportedPlatformError{
				Platform:  p.String(),
				Supported: r.table.Platforms(),
			})
			continue
		}
		contexts = append(contexts, NewBuildContext(p, tc, r.libraries, overlay, r.env))
	}

	slog.Debug("platforms resolved", "requested", requested, "count", len(contexts), "unsupported", len(errs))
	return contexts, errors.Join(errs...)
}

// Returns the normalized, deduplicated target list.
func (r *Resolver) targets(requested []string, host Platform) ([]Platform, error) {
	if len(requested) == 0 {
		return []Platform{host}, nil
	}

	seen := make(map[string]bool, len(requested))
	targets := make([]Platform, 0, len(requested))
	for _, id := range requested {
		p, err := Parse(id)
		if err != nil {
			return nil, err
		}
		if seen[p.String()] {
			continue
		}
		seen[p.String()] = true
		targets = append(targets, p)
	}
	return targets, nil
}
