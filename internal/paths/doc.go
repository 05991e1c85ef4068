// Provides platform-appropriate locations for cruxmatrix state.
//
// Locations follow XDG conventions on Linux and the platform-native
// equivalents on macOS and Windows, all under a "cruxmatrix" subdirectory.
// The dependency cache store is the only state that outlives a run; work
// directories are scratch space removed when a run ends.
package paths
