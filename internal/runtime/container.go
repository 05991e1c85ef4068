package runtime

import (
	"context"
	"errors"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// A running toolchain container.
type Container struct {
	client   *containerd.Client
	id       string
	platform string   // OCI platform, such as "linux/amd64".
	mounts   []string // Host directories bind mounted at the same path.
}

// Returns the container ID.
func (c *Container) ID() string {
	return c.id
}

// Kills the task and removes the container along with its snapshot.
//
// Failures are logged; the handle is invalid afterwards.
func (c *Container) Destroy(ctx context.Context) {
	if err := c.teardown(ctx); err != nil {
		slog.Warn("failed to destroy container", "id", c.id, "error", err)
	}
}

// Removes the container with this ID if it exists.
func (c *Container) teardown(ctx context.Context) error {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if errdefs.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
			slog.Debug("task delete failed", "id", c.id, "error", err)
		}
	}

	err = ctr.Delete(ctx, containerd.WithSnapshotCleanup)
	if err != nil && !errors.Is(err, errdefs.ErrNotFound) {
		return err
	}
	return nil
}

// Creates the containerd container from a toolchain image.
//
// The container shares the host network so toolchains can fetch
// dependencies, and sleeps until commands are executed in it.
func (c *Container) create(ctx context.Context, image containerd.Image) (containerd.Container, error) {
	return c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(c.platform),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithMounts(bindMounts(c.mounts)),
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
}

// Returns read-write bind mounts placing each host path at the same path.
func bindMounts(paths []string) []specs.Mount {
	mounts := make([]specs.Mount, 0, len(paths))
	for _, p := range paths {
		mounts = append(mounts, specs.Mount{
			Destination: p,
			Type:        "bind",
			Source:      p,
			Options:     []string{"rbind", "rw"},
		})
	}
	return mounts
}

// Starts the container's long-running task with no attached IO.
func (c *Container) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(context.WithoutCancel(ctx))
		return err
	}
	return nil
}
