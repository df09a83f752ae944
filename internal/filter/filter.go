// Package filter defines the closed set of convolution-style filters, the
// descriptor that parameterizes them and the pipeline that applies them.
package filter

import (
	"fmt"
	"strings"
)

// FilterType is one of the four supported filters
type FilterType string

const (
	Gaussian FilterType = "gaussian"
	Median   FilterType = "median"
	LowPass  FilterType = "lowpass"
	HighPass FilterType = "highpass"
)

const (
	MinKernelSize     = 1
	MaxKernelSize     = 31
	DefaultKernelSize = 5
)

// AllFilterTypes lists every filter in a stable order
func AllFilterTypes() []FilterType {
	return []FilterType{Gaussian, Median, LowPass, HighPass}
}

// Valid reports whether t belongs to the closed set
func (t FilterType) Valid() bool {
	switch t {
	case Gaussian, Median, LowPass, HighPass:
		return true
	}
	return false
}

func (t FilterType) String() string {
	return string(t)
}

// ParseFilterType accepts the canonical names case-insensitively
func ParseFilterType(s string) (FilterType, error) {
	t := FilterType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown filter type %q", s)
	}
	return t, nil
}

// Descriptor is a filter type plus an odd kernel size in [1,31]
type Descriptor struct {
	FilterType FilterType `json:"filter_type"`
	KernelSize int        `json:"kernel_size"`
}

// DefaultDescriptor is the state restored on reset
func DefaultDescriptor() Descriptor {
	return Descriptor{FilterType: Gaussian, KernelSize: DefaultKernelSize}
}

// Validate checks the descriptor invariants
func (d Descriptor) Validate() error {
	if !d.FilterType.Valid() {
		return fmt.Errorf("unknown filter type %q", d.FilterType)
	}
	if d.KernelSize < MinKernelSize || d.KernelSize > MaxKernelSize {
		return fmt.Errorf("kernel size %d outside [%d,%d]", d.KernelSize, MinKernelSize, MaxKernelSize)
	}
	if d.KernelSize%2 == 0 {
		return fmt.Errorf("kernel size %d must be odd", d.KernelSize)
	}
	return nil
}

// Radius is the half-width of the kernel window; kernel 1 has radius 0
func (d Descriptor) Radius() int {
	return d.KernelSize / 2
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s/%d", d.FilterType, d.KernelSize)
}

// NormalizeKernelSize makes n odd by adding one to even values.
// It is idempotent: NormalizeKernelSize(NormalizeKernelSize(n)) == NormalizeKernelSize(n).
func NormalizeKernelSize(n int) int {
	if n%2 == 0 {
		return n + 1
	}
	return n
}

// ClampKernelSize bounds n to [MinKernelSize, MaxKernelSize]
func ClampKernelSize(n int) int {
	return max(MinKernelSize, min(n, MaxKernelSize))
}

// SanitizeKernelSize clamps then normalizes. Since MaxKernelSize is odd the
// result never leaves [MinKernelSize, MaxKernelSize].
func SanitizeKernelSize(n int) int {
	return NormalizeKernelSize(ClampKernelSize(n))
}

// highPassGain is the detail gain of the highpass filter for a cutoff window.
// It falls as the window grows, so smaller windows sharpen harder.
func highPassGain(size int) float64 {
	if size < 3 {
		return 0
	}
	return 3 / float64(size)
}
