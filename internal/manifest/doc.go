// Package manifest loads the project's declarative build description.
//
// The manifest is an HCL file (cruxmatrix.hcl) at the project root. It
// names the project, the target platforms, the dependency lock files and
// dependency build command, the external libraries, the lint, test and
// package stages, toolchain table overrides and the development
// environment:
//
//	project "app" {
//	  ignore = ["target/**"]
//	}
//
//	platforms = ["linux/amd64", "linux/arm64"]
//
//	dependencies {
//	  files   = ["Cargo.toml", "Cargo.lock"]
//	  outputs = ["target"]
//	  command = ["cargo", "build", "--release", "--target", toolchain.target]
//	}
//
// Stage commands and the package artifact path are HCL expressions,
// evaluated separately for each target with the variables platform,
// toolchain and host in scope (see [NewScope]). The usual string functions
// (format, join, lower, upper, concat, replace) are available.
package manifest
