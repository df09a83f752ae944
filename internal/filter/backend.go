package filter

import (
	"context"
	"image"
)

// Backend renders a descriptor onto a decoded image. Implementations must be
// deterministic and must not modify src.
type Backend interface {
	Name() string
	Render(ctx context.Context, src image.Image, d Descriptor) (image.Image, error)
}
