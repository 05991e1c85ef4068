package internal

import (
	"strconv"
	"sync/atomic"
)

// Name of the binary, used for logger groups and directory naming.
const Name = "cruxmatrix"

// Prefix shared by every environment variable the tool reads.
const EnvPrefix = "CRUXMATRIX_"

var (
	quietMode   atomic.Bool // Suppresses informational output.
	debugMode   atomic.Bool // Enables debug logging.
	verboseMode atomic.Bool // Echoes toolchain logs as stages finish.
)

// Seeds the runtime switches from the linker flags.
//
// rawQuiet, rawDebug and rawVerbose are set via ldflags for pipeline builds.
// Values that fail to parse leave the switch disabled.
func init() {
	if v, err := strconv.ParseBool(rawQuiet); err == nil {
		quietMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawDebug); err == nil {
		debugMode.Store(v)
	}
	if v, err := strconv.ParseBool(rawVerbose); err == nil {
		verboseMode.Store(v)
	}
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	quietMode.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return quietMode.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	debugMode.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return debugMode.Load()
}

// Enables or disables verbose output.
//
// In verbose mode the full toolchain log of every stage is written to stderr
// once the stage finishes, instead of only for failed stages.
func SetVerbose(enabled bool) {
	verboseMode.Store(enabled)
}

// Returns true if verbose output is enabled.
func IsVerbose() bool {
	return verboseMode.Load()
}
