package analyzer

import (
	"context"
	"image"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/media"
	"go-image-enhancer/pkg/models"
	"go-image-enhancer/pkg/validation"
)

// ExtractorOptions tunes the pixel analyzer
type ExtractorOptions struct {
	// MaxDimension bounds the long side of the analyzed image; larger images
	// are downscaled first. Zero disables downscaling.
	MaxDimension int

	// BlurReference is the Laplacian variance that maps to half of BlurCeiling
	BlurReference float64
	BlurCeiling   float64
}

// DefaultExtractorOptions returns the options used in production
func DefaultExtractorOptions() ExtractorOptions {
	return ExtractorOptions{
		MaxDimension:  1024,
		BlurReference: 250,
		BlurCeiling:   1000,
	}
}

// WithMaxDimension returns options with a different analysis size
func (o ExtractorOptions) WithMaxDimension(n int) ExtractorOptions {
	o.MaxDimension = n
	return o
}

// pixelExtractor measures blur, brightness and contrast from pixels
type pixelExtractor struct {
	calc      MetricsCalculator
	validator *validation.MetricsValidator
	options   ExtractorOptions
}

// NewExtractor creates the pixel analyzer with default options
func NewExtractor() Extractor {
	return NewExtractorWithOptions(DefaultExtractorOptions())
}

// NewExtractorWithOptions creates the pixel analyzer with custom options
func NewExtractorWithOptions(options ExtractorOptions) Extractor {
	defaults := DefaultExtractorOptions()
	if options.BlurReference <= 0 {
		options.BlurReference = defaults.BlurReference
	}
	if options.BlurCeiling <= 0 {
		options.BlurCeiling = defaults.BlurCeiling
	}
	return &pixelExtractor{
		calc:      NewMetricsCalculator(),
		validator: validation.NewMetricsValidator(),
		options:   options,
	}
}

func (e *pixelExtractor) Name() string {
	return "analyzer"
}

func (e *pixelExtractor) Extract(ctx context.Context, img *media.Image) (models.ImageMetrics, error) {
	if img == nil || img.Decoded == nil {
		return models.ImageMetrics{}, apperrors.NewExtractionError("no decoded image to analyze", nil)
	}
	if err := ctx.Err(); err != nil {
		return models.ImageMetrics{}, err
	}

	gray := e.calc.ToGray(e.downscale(img.Decoded))

	var variance, brightness, contrast float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		variance = e.calc.CalculateLaplacianVariance(gray)
		return gctx.Err()
	})
	g.Go(func() error {
		brightness = e.calc.CalculateBrightness(gray)
		return gctx.Err()
	})
	g.Go(func() error {
		contrast = e.calc.CalculateContrast(gray)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return models.ImageMetrics{}, err
	}

	metrics := models.ImageMetrics{
		Blur:       e.blurScore(variance),
		Brightness: brightness,
		Contrast:   contrast,
	}
	if issues := e.validator.Validate(metrics); len(issues) > 0 {
		return models.ImageMetrics{}, apperrors.NewExtractionError("image metrics are out of range", nil).
			WithDetails(strings.Join(e.validator.ConvertIssuesToMessages(issues), "; "))
	}
	return metrics, nil
}

// blurScore maps Laplacian variance onto (0, BlurCeiling]: a flat image scores
// the ceiling and the score falls as edges get sharper
func (e *pixelExtractor) blurScore(variance float64) float64 {
	if variance < 0 || math.IsNaN(variance) {
		variance = 0
	}
	return e.options.BlurCeiling * e.options.BlurReference / (e.options.BlurReference + variance)
}

func (e *pixelExtractor) downscale(src image.Image) image.Image {
	limit := e.options.MaxDimension
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return src
	}

	scale := float64(limit) / float64(max(w, h))
	dw := max(1, int(math.Round(float64(w)*scale)))
	dh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}
