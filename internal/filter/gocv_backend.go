//go:build gocv

package filter

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// gocvBackend renders filters with OpenCV. Build with -tags gocv.
type gocvBackend struct{}

// NewGoCVBackend creates the OpenCV backend
func NewGoCVBackend() (Backend, error) {
	return &gocvBackend{}, nil
}

func (g *gocvBackend) Name() string {
	return "gocv"
}

func (g *gocvBackend) Render(ctx context.Context, src image.Image, d Descriptor) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	srcMat, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return nil, fmt.Errorf("gocv: failed to convert image: %w", err)
	}
	defer srcMat.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	k := d.KernelSize
	window := image.Point{X: k, Y: k}

	switch d.FilterType {
	case Gaussian:
		gocv.GaussianBlur(srcMat, &dst, window, 0, 0, gocv.BorderReflect101)
	case Median:
		gocv.MedianBlur(srcMat, &dst, k)
	case LowPass:
		gocv.Blur(srcMat, &dst, window)
	case HighPass:
		box := gocv.NewMat()
		defer box.Close()
		gocv.Blur(srcMat, &box, window)
		gain := highPassGain(k)
		gocv.AddWeighted(srcMat, 1+gain, box, -gain, 0, &dst)
	default:
		return nil, fmt.Errorf("gocv: unsupported filter type %q", d.FilterType)
	}

	if dst.Empty() {
		return nil, fmt.Errorf("gocv: %s returned an empty result", d)
	}
	out, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("gocv: failed to convert result: %w", err)
	}
	return out, nil
}
