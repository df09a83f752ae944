package validation

import (
	"math"

	"go-image-enhancer/pkg/models"
)

// MetricsBounds defines the plausible range of each extracted metric
type MetricsBounds struct {
	MaxBlur       float64
	MaxBrightness float64
	MaxContrast   float64
}

// DefaultMetricsBounds returns the bounds any extractor must stay within.
// Brightness is a gray level and contrast a spread of gray levels, so both
// are capped by 255.
func DefaultMetricsBounds() MetricsBounds {
	return MetricsBounds{
		MaxBlur:       1000.0,
		MaxBrightness: 255.0,
		MaxContrast:   255.0,
	}
}

// MetricsIssue represents one rejected metric
type MetricsIssue struct {
	Metric      string  `json:"metric"`
	Message     string  `json:"message"`
	ActualValue float64 `json:"actual_value"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// MetricsValidator rejects metrics that must not reach the recommendation engine
type MetricsValidator struct {
	bounds MetricsBounds
}

// NewMetricsValidator creates a metrics validator with default bounds
func NewMetricsValidator() *MetricsValidator {
	return &MetricsValidator{bounds: DefaultMetricsBounds()}
}

// NewMetricsValidatorWithBounds creates a metrics validator with custom bounds
func NewMetricsValidatorWithBounds(bounds MetricsBounds) *MetricsValidator {
	return &MetricsValidator{bounds: bounds}
}

// Validate returns every issue found; an empty slice means the metrics are usable
func (mv *MetricsValidator) Validate(m models.ImageMetrics) []MetricsIssue {
	var issues []MetricsIssue
	issues = mv.check(issues, "blur", m.Blur, mv.bounds.MaxBlur)
	issues = mv.check(issues, "brightness", m.Brightness, mv.bounds.MaxBrightness)
	issues = mv.check(issues, "contrast", m.Contrast, mv.bounds.MaxContrast)
	return issues
}

func (mv *MetricsValidator) check(issues []MetricsIssue, name string, value, max float64) []MetricsIssue {
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		return append(issues, MetricsIssue{
			Metric:      name,
			Message:     name + " is not a finite number",
			ActualValue: value,
		})
	case value < 0:
		return append(issues, MetricsIssue{
			Metric:      name,
			Message:     name + " must not be negative",
			ActualValue: value,
		})
	case max > 0 && value > max:
		return append(issues, MetricsIssue{
			Metric:      name,
			Message:     name + " is above its plausible maximum",
			ActualValue: value,
			Threshold:   max,
		})
	}
	return issues
}

// ConvertIssuesToMessages converts metric issues to plain messages
func (mv *MetricsValidator) ConvertIssuesToMessages(issues []MetricsIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}
