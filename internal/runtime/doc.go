// Package runtime runs toolchain commands inside containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon. Toolchain images are OCI
// archives: each archive is imported, tagged with a deterministic name
// derived from its path, unpacked for the target platform, and used to
// create a container with a fresh snapshot. Host directories are bind
// mounted into the container at the same path, so a stage work directory
// means the same thing inside and outside.
//
// Each [Container] wraps a running containerd task. Commands are executed
// as additional processes attached to that task. When the container is no
// longer needed it should be destroyed to release its snapshot and task.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "cruxmatrix")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "rust.tar", "deps-1", "linux/arm64", []string{workdir})
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, []string{"cargo", "build"}, nil, workdir)
package runtime
