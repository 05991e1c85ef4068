// Package library describes the external libraries a project links against
// and derives the environment that exposes them to toolchains.
//
// The same overlay is applied to every build stage and to the development
// environment, so a local shell resolves headers, pkg-config files and
// shared objects exactly as the pipeline does. Installation prefixes come
// from the manifest and may be overridden per library through the
// CRUXMATRIX_LIBRARY_PATH environment variable, for example:
//
//	CRUXMATRIX_LIBRARY_PATH=openssl=/opt/openssl-3:zlib=/usr/local
//
// Only a library's name and version contribute to its cache identity;
// prefixes are machine specific and are deliberately left out of [List.Digest].
package library
