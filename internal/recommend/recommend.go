// Package recommend maps image quality metrics to a filter suggestion.
package recommend

import (
	"fmt"

	"go-image-enhancer/internal/filter"
	"go-image-enhancer/pkg/models"
)

// RationaleClass selects the explanation template of a recommendation
type RationaleClass string

const (
	ClassLowBlur  RationaleClass = "low_blur"
	ClassHighBlur RationaleClass = "high_blur"
	ClassDark     RationaleClass = "dark"
	ClassBright   RationaleClass = "bright"
	ClassDefault  RationaleClass = "default"
)

var templates = map[RationaleClass]Rationale{
	ClassLowBlur:  "The image is already **sharp**. A **high-pass** filter will bring out fine detail even further.",
	ClassHighBlur: "The image looks **blurry**. A **median** filter reduces noise while keeping the edges that remain.",
	ClassDark:     "The image is **dark**. A **high-pass** filter boosts local contrast to reveal detail in the shadows.",
	ClassBright:   "The image is **well lit**. A **gaussian** filter softens it for a smooth look.",
	ClassDefault:  "The image is **balanced**. A light **gaussian** filter gives an even, gentle smoothing.",
}

// templateFor returns the fixed explanation for a class
func templateFor(c RationaleClass) Rationale {
	return templates[c]
}

// Recommendation is a suggested filter and why it was chosen.
// It is derived from one metrics snapshot and never modified.
type Recommendation struct {
	FilterType filter.FilterType
	Class      RationaleClass
	Rationale  Rationale
}

// ToModel converts the recommendation to its wire form
func (r Recommendation) ToModel() *models.Recommendation {
	return &models.Recommendation{
		FilterType: string(r.FilterType),
		Class:      string(r.Class),
		Rationale:  r.Rationale.Plain(),
		Segments:   r.Rationale.Segments(),
	}
}

// Advisor turns metrics into a recommendation. Implementations must be total
// over valid metrics.
type Advisor interface {
	Recommend(m models.ImageMetrics) Recommendation
}

// Thresholds are the rule boundaries. Comparisons are strict, so a value equal
// to a boundary falls through to the next rule.
type Thresholds struct {
	SharpBelow  float64
	BlurryAbove float64
	DarkBelow   float64
	BrightAbove float64
}

// DefaultThresholds returns the production boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{
		SharpBelow:  100,
		BlurryAbove: 500,
		DarkBelow:   80,
		BrightAbove: 180,
	}
}

// Validate checks that the bands are ordered
func (t Thresholds) Validate() error {
	if t.SharpBelow > t.BlurryAbove {
		return fmt.Errorf("sharp threshold %.2f above blurry threshold %.2f", t.SharpBelow, t.BlurryAbove)
	}
	if t.DarkBelow > t.BrightAbove {
		return fmt.Errorf("dark threshold %.2f above bright threshold %.2f", t.DarkBelow, t.BrightAbove)
	}
	return nil
}

// RuleEngine applies the rules in priority order; blur is always checked
// before brightness and the first match wins.
type RuleEngine struct {
	thresholds Thresholds
}

// NewRuleEngine creates an engine with the default thresholds
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{thresholds: DefaultThresholds()}
}

// NewRuleEngineWithThresholds creates an engine with custom thresholds
func NewRuleEngineWithThresholds(t Thresholds) (*RuleEngine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &RuleEngine{thresholds: t}, nil
}

// Thresholds returns the boundaries in use
func (e *RuleEngine) Thresholds() Thresholds {
	return e.thresholds
}

func (e *RuleEngine) Recommend(m models.ImageMetrics) Recommendation {
	t := e.thresholds
	switch {
	case m.Blur < t.SharpBelow:
		return build(filter.HighPass, ClassLowBlur)
	case m.Blur > t.BlurryAbove:
		return build(filter.Median, ClassHighBlur)
	case m.Brightness < t.DarkBelow:
		return build(filter.HighPass, ClassDark)
	case m.Brightness > t.BrightAbove:
		return build(filter.Gaussian, ClassBright)
	default:
		return build(filter.Gaussian, ClassDefault)
	}
}

func build(ft filter.FilterType, c RationaleClass) Recommendation {
	return Recommendation{FilterType: ft, Class: c, Rationale: templateFor(c)}
}
