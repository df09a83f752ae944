package filter

import (
	"context"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
)

// bildBackend renders filters in pure Go with bild
type bildBackend struct{}

// NewBildBackend creates the default pure-Go backend
func NewBildBackend() Backend {
	return &bildBackend{}
}

func (b *bildBackend) Name() string {
	return "bild"
}

func (b *bildBackend) Render(ctx context.Context, src image.Image, d Descriptor) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	radius := float64(d.Radius())
	if radius == 0 {
		// A 1x1 window leaves every filter as the identity
		return clone.AsRGBA(src), nil
	}

	switch d.FilterType {
	case Gaussian:
		return blur.Gaussian(src, radius), nil
	case Median:
		return effect.Median(src, radius), nil
	case LowPass:
		return blur.Box(src, radius), nil
	case HighPass:
		return convolution.Convolve(src, highPassKernel(d.KernelSize), &convolution.Options{
			Bias:      0,
			Wrap:      false,
			KeepAlpha: true,
		}), nil
	default:
		return nil, fmt.Errorf("bild: unsupported filter type %q", d.FilterType)
	}
}

// highPassKernel builds src + g*(src - box(size)) with g = highPassGain(size).
// The weights sum to one so flat regions keep their level.
func highPassKernel(size int) *convolution.Kernel {
	k := convolution.NewKernel(size, size)
	gain := highPassGain(size)
	weight := gain / float64(size*size)
	for i := range k.Matrix {
		k.Matrix[i] = -weight
	}
	center := size / 2
	k.Matrix[center*k.Width+center] += 1 + gain
	return k
}
