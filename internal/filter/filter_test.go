package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKernelSize(t *testing.T) {
	cases := map[int]int{1: 1, 2: 3, 6: 7, 7: 7, 30: 31, 31: 31, 0: 1, -4: -3, -3: -3}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeKernelSize(in), "NormalizeKernelSize(%d)", in)
	}
}

func TestNormalizeKernelSize_Idempotent(t *testing.T) {
	for n := -100; n <= 100; n++ {
		once := NormalizeKernelSize(n)
		assert.Equal(t, once, NormalizeKernelSize(once), "n=%d", n)
		assert.NotZero(t, once%2, "n=%d must normalize to an odd value", n)
	}
}

func TestSanitizeKernelSize_AlwaysOddInRange(t *testing.T) {
	for n := -50; n <= 80; n++ {
		got := SanitizeKernelSize(n)
		assert.GreaterOrEqual(t, got, MinKernelSize, "n=%d", n)
		assert.LessOrEqual(t, got, MaxKernelSize, "n=%d", n)
		assert.Equal(t, 1, got%2, "n=%d", n)
	}
	assert.Equal(t, 7, SanitizeKernelSize(6))
	assert.Equal(t, 31, SanitizeKernelSize(32))
	assert.Equal(t, 31, SanitizeKernelSize(30))
	assert.Equal(t, 1, SanitizeKernelSize(0))
}

func TestParseFilterType(t *testing.T) {
	for _, ft := range AllFilterTypes() {
		got, err := ParseFilterType(string(ft))
		require.NoError(t, err)
		assert.Equal(t, ft, got)
	}

	got, err := ParseFilterType("  HighPass ")
	require.NoError(t, err)
	assert.Equal(t, HighPass, got)

	_, err = ParseFilterType("sobel")
	assert.Error(t, err)
	_, err = ParseFilterType("")
	assert.Error(t, err)
}

func TestDescriptor_Validate(t *testing.T) {
	assert.NoError(t, DefaultDescriptor().Validate())
	assert.Equal(t, Descriptor{FilterType: Gaussian, KernelSize: 5}, DefaultDescriptor())

	assert.Error(t, Descriptor{FilterType: "sobel", KernelSize: 3}.Validate())
	assert.Error(t, Descriptor{FilterType: Median, KernelSize: 4}.Validate())
	assert.Error(t, Descriptor{FilterType: Median, KernelSize: 33}.Validate())
	assert.Error(t, Descriptor{FilterType: Median, KernelSize: -1}.Validate())

	assert.Equal(t, 0, Descriptor{FilterType: LowPass, KernelSize: 1}.Radius())
	assert.Equal(t, 15, Descriptor{FilterType: LowPass, KernelSize: 31}.Radius())
	assert.Equal(t, "median/7", Descriptor{FilterType: Median, KernelSize: 7}.String())
}
