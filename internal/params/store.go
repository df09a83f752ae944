// Package params holds the filter parameters the user is currently working with.
package params

import (
	"go-image-enhancer/internal/filter"
	"go-image-enhancer/internal/recommend"
)

// Store holds the current descriptor. Every mutation bumps the revision so
// outputs rendered at an older revision can be recognized as stale.
// Store is not safe for concurrent use; the owning session serializes access.
type Store struct {
	descriptor filter.Descriptor
	revision   uint64
}

// NewStore creates a store holding the default descriptor
func NewStore() *Store {
	return &Store{descriptor: filter.DefaultDescriptor()}
}

// Descriptor returns the current descriptor
func (s *Store) Descriptor() filter.Descriptor {
	return s.descriptor
}

// Revision returns the mutation counter
func (s *Store) Revision() uint64 {
	return s.revision
}

// IsCurrent reports whether something rendered at rev still reflects the store
func (s *Store) IsCurrent(rev uint64) bool {
	return rev == s.revision
}

// SetFilterType replaces the filter type and keeps the kernel size
func (s *Store) SetFilterType(t filter.FilterType) error {
	ft, err := filter.ParseFilterType(string(t))
	if err != nil {
		return err
	}
	s.descriptor.FilterType = ft
	s.revision++
	return nil
}

// SetKernelSize clamps n to the supported range and makes it odd. It returns
// the value actually stored.
func (s *Store) SetKernelSize(n int) int {
	s.descriptor.KernelSize = filter.SanitizeKernelSize(n)
	s.revision++
	return s.descriptor.KernelSize
}

// AcceptRecommendation adopts the suggested filter type and keeps the kernel size
func (s *Store) AcceptRecommendation(r recommend.Recommendation) error {
	return s.SetFilterType(r.FilterType)
}

// Reset restores the default descriptor
func (s *Store) Reset() {
	s.descriptor = filter.DefaultDescriptor()
	s.revision++
}
