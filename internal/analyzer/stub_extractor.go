package analyzer

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"

	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/media"
	"go-image-enhancer/pkg/models"
)

// Ranges the stub draws from. They straddle every recommendation threshold.
const (
	stubBlurMin, stubBlurMax             = 50.0, 850.0
	stubBrightnessMin, stubBrightnessMax = 30.0, 230.0
	stubContrastMin, stubContrastMax     = 20.0, 100.0
)

// stubExtractor returns synthetic metrics seeded by the image digest, so the
// same upload always yields the same values
type stubExtractor struct{}

// NewStubExtractor creates the development extractor
func NewStubExtractor() Extractor {
	return &stubExtractor{}
}

func (s *stubExtractor) Name() string {
	return "stub"
}

func (s *stubExtractor) Extract(ctx context.Context, img *media.Image) (models.ImageMetrics, error) {
	if img == nil || img.Decoded == nil {
		return models.ImageMetrics{}, apperrors.NewExtractionError("no decoded image to analyze", nil)
	}
	if err := ctx.Err(); err != nil {
		return models.ImageMetrics{}, err
	}

	r := rand.New(rand.NewPCG(seedFor(img)))
	return models.ImageMetrics{
		Blur:       between(r, stubBlurMin, stubBlurMax),
		Brightness: between(r, stubBrightnessMin, stubBrightnessMax),
		Contrast:   between(r, stubContrastMin, stubContrastMax),
	}, nil
}

// between draws from [lo, hi)
func between(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func seedFor(img *media.Image) (uint64, uint64) {
	h := fnv.New128a()
	if img.Digest != "" {
		h.Write([]byte(img.Digest))
	} else {
		h.Write(img.Data)
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:])
}
