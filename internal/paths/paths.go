package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Subdirectory used under each base directory.
	appName = "cruxmatrix"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Default manifest filename at the project root.
	ManifestFile = "cruxmatrix.hcl"

	// Default output directory for packages, relative to the project root.
	DistDir = "dist"
)

// Root of the local dependency cache store.
//
//	Linux:   $XDG_CACHE_HOME/cruxmatrix/cache
//	macOS:   ~/Library/Caches/cruxmatrix/cache
func Cache() string {
	return filepath.Join(xdg.CacheHome, appName, "cache")
}

// Root of per-run scratch work directories.
//
//	Linux:   $XDG_CACHE_HOME/cruxmatrix/work
//	macOS:   ~/Library/Caches/cruxmatrix/work
func Work() string {
	return filepath.Join(xdg.CacheHome, appName, "work")
}

// User-level environment file, loaded after the project's .env file.
//
//	Linux:   $XDG_CONFIG_HOME/cruxmatrix/env
//	macOS:   ~/Library/Application Support/cruxmatrix/env
func EnvFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "env")
}
