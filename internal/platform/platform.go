package platform

import (
	"fmt"
	"strings"

	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// A normalized target platform.
type Platform struct {
	ocispec.Platform
}

// Parses and normalizes a platform identifier such as "linux/arm64".
func Parse(s string) (Platform, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Platform{}, fmt.Errorf("%w: empty identifier", ErrInvalidPlatform)
	}
	p, err := platforms.Parse(s)
	if err != nil {
		return Platform{}, fmt.Errorf("%w: %q: %w", ErrInvalidPlatform, s, err)
	}
	return Platform{Platform: platforms.Normalize(p)}, nil
}

// Returns the platform of the running host.
func Host() Platform {
	p := platforms.Normalize(platforms.DefaultSpec())
	p.OSVersion = ""
	p.OSFeatures = nil
	return Platform{Platform: p}
}

// Returns the canonical "os/arch[/variant]" identifier.
func (p Platform) String() string {
	return platforms.Format(ocispec.Platform{
		OS:           p.OS,
		Architecture: p.Architecture,
		Variant:      p.Variant,
	})
}

// Returns a filesystem-safe form of the identifier.
//
// Replaces slashes with dashes (e.g., "linux/arm/v7" becomes "linux-arm-v7").
func (p Platform) Slug() string {
	return Slug(p.String())
}

// Converts a platform identifier to a filesystem-safe slug.
func Slug(id string) string {
	return strings.ReplaceAll(id, "/", "-")
}

// Reports whether two platforms name the same target.
func (p Platform) Equal(other Platform) bool {
	return p.String() == other.String()
}
