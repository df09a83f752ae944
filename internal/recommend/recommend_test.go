package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-image-enhancer/internal/filter"
	"go-image-enhancer/pkg/models"
)

func TestRecommend_Scenarios(t *testing.T) {
	engine := NewRuleEngine()

	tests := []struct {
		name      string
		metrics   models.ImageMetrics
		wantType  filter.FilterType
		wantClass RationaleClass
	}{
		{"sharp image", models.ImageMetrics{Blur: 50, Brightness: 120, Contrast: 50}, filter.HighPass, ClassLowBlur},
		{"blurry image", models.ImageMetrics{Blur: 600, Brightness: 120, Contrast: 50}, filter.Median, ClassHighBlur},
		{"dark image", models.ImageMetrics{Blur: 300, Brightness: 60, Contrast: 50}, filter.HighPass, ClassDark},
		{"bright image", models.ImageMetrics{Blur: 300, Brightness: 200, Contrast: 50}, filter.Gaussian, ClassBright},
		{"balanced image", models.ImageMetrics{Blur: 300, Brightness: 120, Contrast: 50}, filter.Gaussian, ClassDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Recommend(tt.metrics)
			assert.Equal(t, tt.wantType, got.FilterType)
			assert.Equal(t, tt.wantClass, got.Class)
			assert.Equal(t, templateFor(tt.wantClass), got.Rationale)
		})
	}
}

func TestRecommend_Boundaries(t *testing.T) {
	engine := NewRuleEngine()

	tests := []struct {
		name      string
		metrics   models.ImageMetrics
		wantClass RationaleClass
	}{
		{"blur 100 is not low blur", models.ImageMetrics{Blur: 100, Brightness: 120}, ClassDefault},
		{"blur just below 100", models.ImageMetrics{Blur: 99.999, Brightness: 120}, ClassLowBlur},
		{"blur 500 is not high blur", models.ImageMetrics{Blur: 500, Brightness: 120}, ClassDefault},
		{"blur just above 500", models.ImageMetrics{Blur: 500.001, Brightness: 120}, ClassHighBlur},
		{"brightness 80 is not dark", models.ImageMetrics{Blur: 300, Brightness: 80}, ClassDefault},
		{"brightness 180 is not bright", models.ImageMetrics{Blur: 300, Brightness: 180}, ClassDefault},
		{"blur 100 and dark falls to dark", models.ImageMetrics{Blur: 100, Brightness: 10}, ClassDark},
		{"blur 500 and bright falls to bright", models.ImageMetrics{Blur: 500, Brightness: 250}, ClassBright},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantClass, engine.Recommend(tt.metrics).Class)
		})
	}
}

func TestRecommend_BlurTakesPriority(t *testing.T) {
	engine := NewRuleEngine()

	for _, brightness := range []float64{0, 40, 79.9, 80, 120, 180, 180.1, 255} {
		for _, contrast := range []float64{0, 20, 60, 99} {
			for _, blur := range []float64{0, 25, 50, 99.9} {
				got := engine.Recommend(models.ImageMetrics{Blur: blur, Brightness: brightness, Contrast: contrast})
				assert.Equal(t, filter.HighPass, got.FilterType)
				assert.Equal(t, ClassLowBlur, got.Class)
			}
			for _, blur := range []float64{500.1, 600, 849} {
				got := engine.Recommend(models.ImageMetrics{Blur: blur, Brightness: brightness, Contrast: contrast})
				assert.Equal(t, filter.Median, got.FilterType)
				assert.Equal(t, ClassHighBlur, got.Class)
			}
		}
	}
}

func TestRecommend_MidBlurBands(t *testing.T) {
	engine := NewRuleEngine()

	for blur := 100.0; blur <= 500; blur += 25 {
		for brightness := 30.0; brightness < 80; brightness += 7 {
			got := engine.Recommend(models.ImageMetrics{Blur: blur, Brightness: brightness, Contrast: 50})
			assert.Equal(t, ClassDark, got.Class, "blur=%v brightness=%v", blur, brightness)
			assert.Equal(t, filter.HighPass, got.FilterType)
		}
		for brightness := 80.0; brightness <= 180; brightness += 10 {
			got := engine.Recommend(models.ImageMetrics{Blur: blur, Brightness: brightness, Contrast: 50})
			assert.Equal(t, ClassDefault, got.Class, "blur=%v brightness=%v", blur, brightness)
			assert.Equal(t, filter.Gaussian, got.FilterType)
		}
	}
}

func TestRecommend_TotalOverStubRanges(t *testing.T) {
	engine := NewRuleEngine()
	seen := map[RationaleClass]bool{}

	for blur := 50.0; blur < 850; blur += 17 {
		for brightness := 30.0; brightness < 230; brightness += 13 {
			got := engine.Recommend(models.ImageMetrics{Blur: blur, Brightness: brightness, Contrast: 60})
			require.True(t, got.FilterType.Valid())
			require.NotEmpty(t, got.Rationale)
			seen[got.Class] = true
		}
	}

	for _, c := range []RationaleClass{ClassLowBlur, ClassHighBlur, ClassDark, ClassBright, ClassDefault} {
		assert.True(t, seen[c], "class %s never reached across the stub ranges", c)
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	engine := NewRuleEngine()
	m := models.ImageMetrics{Blur: 321.5, Brightness: 91, Contrast: 33}
	assert.Equal(t, engine.Recommend(m), engine.Recommend(m))
}

func TestNewRuleEngineWithThresholds(t *testing.T) {
	_, err := NewRuleEngineWithThresholds(Thresholds{SharpBelow: 600, BlurryAbove: 500, DarkBelow: 80, BrightAbove: 180})
	assert.Error(t, err)

	_, err = NewRuleEngineWithThresholds(Thresholds{SharpBelow: 100, BlurryAbove: 500, DarkBelow: 200, BrightAbove: 180})
	assert.Error(t, err)

	engine, err := NewRuleEngineWithThresholds(Thresholds{SharpBelow: 10, BlurryAbove: 900, DarkBelow: 80, BrightAbove: 180})
	require.NoError(t, err)
	assert.Equal(t, ClassDefault, engine.Recommend(models.ImageMetrics{Blur: 50, Brightness: 120}).Class)
	assert.Equal(t, DefaultThresholds(), NewRuleEngine().Thresholds())
}

func TestToModel(t *testing.T) {
	rec := NewRuleEngine().Recommend(models.ImageMetrics{Blur: 600, Brightness: 120, Contrast: 50})
	m := rec.ToModel()

	assert.Equal(t, "median", m.FilterType)
	assert.Equal(t, "high_blur", m.Class)
	assert.Equal(t, rec.Rationale.Plain(), m.Rationale)
	assert.NotContains(t, m.Rationale, "**")
	assert.NotEmpty(t, m.Segments)
}
