package library

import (
	"maps"
	"path"
	"slices"
	"strings"
)

// Search path variables. Overlay values for these are prepended to any
// inherited value rather than replacing it.
var searchPathVars = map[string]bool{
	"PATH":               true,
	"PKG_CONFIG_PATH":    true,
	"LIBRARY_PATH":       true,
	"C_INCLUDE_PATH":     true,
	"CPLUS_INCLUDE_PATH": true,
	"LD_LIBRARY_PATH":    true,
	"DYLD_LIBRARY_PATH":  true,
}

// Reports whether name is a search path variable.
func IsSearchPath(name string) bool {
	return searchPathVars[name]
}

// Returns the path list separator for the given operating system.
func ListSeparator(goos string) string {
	if goos == "windows" {
		return ";"
	}
	return ":"
}

// Derives the environment overlay exposing libs on a host running goos.
//
// Each library with a non-empty prefix contributes its bin, lib, pkgconfig
// and include directories. Libraries are visited in name order so the
// result does not depend on declaration order. Prefixes are treated as
// slash paths so the overlay is identical no matter where it is computed.
func Overlay(libs List, overrides map[string]string, goos string) map[string]string {
	lists := make(map[string][]string)
	add := func(name, dir string) {
		lists[name] = append(lists[name], dir)
	}

	for _, lib := range libs.Sorted() {
		prefix := lib.effectivePrefix(overrides)
		if prefix == "" {
			continue
		}
		prefix = strings.TrimRight(prefix, "/")
		add("PATH", path.Join(prefix, "bin"))
		add("PKG_CONFIG_PATH", path.Join(prefix, "lib", "pkgconfig"))
		add("PKG_CONFIG_PATH", path.Join(prefix, "share", "pkgconfig"))
		add("LIBRARY_PATH", path.Join(prefix, "lib"))
		add("C_INCLUDE_PATH", path.Join(prefix, "include"))
		add("CPLUS_INCLUDE_PATH", path.Join(prefix, "include"))
		switch goos {
		case "darwin":
			add("DYLD_LIBRARY_PATH", path.Join(prefix, "lib"))
		case "windows":
			add("PATH", path.Join(prefix, "lib"))
		default:
			add("LD_LIBRARY_PATH", path.Join(prefix, "lib"))
		}
	}

	sep := ListSeparator(goos)
	overlay := make(map[string]string, len(lists))
	for name, dirs := range lists {
		overlay[name] = strings.Join(dirs, sep)
	}
	return overlay
}

// Applies an overlay on top of a base environment of "KEY=value" entries.
//
// Plain variables in the overlay replace inherited values. Search path
// variables are prepended to the inherited value using sep. The result is
// sorted by key.
func Apply(base []string, overlay map[string]string, sep string) []string {
	merged := make(map[string]string, len(base)+len(overlay))
	for _, entry := range base {
		if k, v, ok := strings.Cut(entry, "="); ok {
			merged[k] = v
		}
	}

	for k, v := range overlay {
		if inherited := merged[k]; IsSearchPath(k) && inherited != "" && v != "" {
			merged[k] = v + sep + inherited
			continue
		}
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		env = append(env, k+"="+merged[k])
	}
	return env
}
