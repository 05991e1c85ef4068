// Package platform resolves declared target platforms into build contexts.
//
// A platform is an operating system and architecture pair (with an optional
// variant), written "os/arch[/variant]" and normalized with the containerd
// platform rules, so "linux/aarch64" and "linux/arm64/v8" name the same
// target. Each supported platform maps to a [Toolchain] through an explicit
// [Table]; the built-in table is plain data and may be extended or
// overridden by the project manifest.
//
// The [Resolver] expands an ordered list of requested platforms into
// immutable [BuildContext] values, one per distinct platform. An empty list
// resolves to the host platform alone.
//
// Example usage:
//
//	r := platform.NewResolver(platform.DefaultTable(), libs, overrides, env)
//	contexts, err := r.Resolve([]string{"linux/amd64", "linux/arm64"}, platform.Host())
//	if err != nil {
//	    return err
//	}
package platform
