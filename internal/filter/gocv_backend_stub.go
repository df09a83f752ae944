//go:build !gocv

package filter

import "errors"

// ErrGoCVUnavailable is returned when the binary was built without OpenCV support
var ErrGoCVUnavailable = errors.New("gocv backend not compiled in (build with -tags gocv)")

// NewGoCVBackend reports that OpenCV support is missing from this build
func NewGoCVBackend() (Backend, error) {
	return nil, ErrGoCVUnavailable
}
