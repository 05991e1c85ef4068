package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without mount(2), so containers can run rootless.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"

	// Repository under which imported toolchain archives are tagged.
	toolchainRepository = "toolchain.cruxmatrix.local"
)

// Identifies an unpacked toolchain image.
type imageRef struct {
	archive  string
	platform string
}

// Manages the containerd client and the toolchain images it has prepared.
//
// Each toolchain archive is imported and unpacked at most once per
// platform for the lifetime of the runtime, however many stages use it.
type Runtime struct {
	client *containerd.Client

	group  singleflight.Group
	mu     sync.Mutex
	images map[imageRef]containerd.Image
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return &Runtime{client: client, images: make(map[imageRef]containerd.Image)}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Starts a toolchain container for the target platform.
//
// Every path in mounts is bind mounted read-write at the same location
// inside the container. A long-running task (sleep infinity) keeps the
// container alive for Exec calls. Any leftover container with the same ID
// is removed first. Running a platform other than the host requires QEMU
// and binfmt_misc support in the kernel.
func (rt *Runtime) StartContainer(ctx context.Context, archive, id, platform string, mounts []string) (*Container, error) {
	image, err := rt.image(ctx, archive, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	c := &Container{
		client:   rt.client,
		id:       id,
		platform: platform,
		mounts:   mounts,
	}

	if err := c.teardown(ctx); err != nil {
		slog.Debug("stale container not removed", "id", id, "error", err)
	}

	ctr, err := c.create(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(context.WithoutCancel(ctx), containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container started", "id", id, "image", image.Name(), "platform", platform)
	return c, nil
}

// Returns the unpacked image for archive and platform, preparing it on
// first use. Concurrent first uses share one preparation.
func (rt *Runtime) image(ctx context.Context, archive, platform string) (containerd.Image, error) {
	ref := imageRef{archive: archive, platform: platform}

	rt.mu.Lock()
	image, ok := rt.images[ref]
	rt.mu.Unlock()
	if ok {
		return image, nil
	}

	v, err, _ := rt.group.Do(archive+"\x00"+platform, func() (any, error) {
		image, err := rt.prepare(ctx, ref)
		if err != nil {
			return nil, err
		}
		rt.mu.Lock()
		rt.images[ref] = image
		rt.mu.Unlock()
		return image, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(containerd.Image), nil
}

// Imports the archive, selects the platform manifest and unpacks it.
func (rt *Runtime) prepare(ctx context.Context, ref imageRef) (containerd.Image, error) {
	p, err := platforms.Parse(ref.platform)
	if err != nil {
		return nil, err
	}

	tag := imageTag(ref.archive)
	if err := rt.importArchive(ctx, ref.archive, tag); err != nil {
		return nil, err
	}

	record, err := rt.client.ImageService().Get(ctx, tag)
	if err != nil {
		return nil, err
	}
	image := containerd.NewImageWithPlatform(rt.client, record, platforms.Only(p))

	unpacked, err := image.IsUnpacked(ctx, snapshotter)
	if err != nil {
		return nil, err
	}
	if !unpacked {
		if err := image.Unpack(ctx, snapshotter); err != nil {
			return nil, err
		}
	}

	slog.Debug("toolchain image ready", "archive", ref.archive, "tag", tag, "platform", ref.platform)
	return image, nil
}

// Imports an OCI archive holding exactly one image and tags it.
//
// Multi-platform archives (one index with per-platform manifests) count as
// one image. An existing tag is moved to the imported target, and the
// import's own name is dropped when it differs from the tag.
func (rt *Runtime) importArchive(ctx context.Context, path, tag string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	imported, err := rt.client.Import(ctx, fh)
	if err != nil {
		return err
	}
	switch {
	case len(imported) == 0:
		return ErrEmptyArchive
	case len(imported) > 1:
		return ErrMultipleImages
	}
	source := imported[0]

	is := rt.client.ImageService()
	record := images.Image{Name: tag, Target: source.Target}
	if _, err := is.Create(ctx, record); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, record, "target"); err != nil {
			return err
		}
	}

	if source.Name != tag {
		_ = is.Delete(ctx, source.Name)
	}
	return nil
}

// Returns the image tag for a toolchain archive path.
//
// The path digest keeps the tag a valid reference whatever characters the
// path contains.
func imageTag(path string) string {
	return fmt.Sprintf("%s/%s:latest", toolchainRepository, digest.FromString(path).Encoded())
}
