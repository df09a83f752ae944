package analyzer

import (
	"context"
	"image"

	"go-image-enhancer/internal/media"
	"go-image-enhancer/pkg/models"
)

// Extractor computes quality metrics for a loaded image. It fails with an
// ExtractionError rather than returning substitute metrics.
type Extractor interface {
	Extract(ctx context.Context, img *media.Image) (models.ImageMetrics, error)
	Name() string
}

// MetricsCalculator handles the per-metric pixel math
type MetricsCalculator interface {
	ToGray(img image.Image) *image.Gray
	CalculateLaplacianVariance(gray *image.Gray) float64
	CalculateBrightness(gray *image.Gray) float64
	CalculateContrast(gray *image.Gray) float64
}
