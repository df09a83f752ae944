// Package media turns raw uploads into decoded, fingerprinted images.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"

	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/pkg/validation"
)

// Raw is an upload as received: bytes plus the declared media type
type Raw struct {
	Data      []byte
	MediaType string
	Source    string
}

// Image is an accepted, decoded upload. It is never modified after Load.
type Image struct {
	Data        []byte
	MediaType   string
	Format      string
	Digest      string
	Fingerprint string
	Width       int
	Height      int
	Decoded     image.Image
	Source      string
}

// Loader validates and decodes uploads
type Loader struct {
	validator *validation.MediaValidator
}

// NewLoader creates a loader accepting JPEG and PNG
func NewLoader() *Loader {
	return &Loader{validator: validation.NewMediaValidator()}
}

// Load returns an UnsupportedMediaError when the media type is not accepted
// and an ExtractionError when the bytes do not decode as an image.
func (l *Loader) Load(raw Raw) (*Image, error) {
	mediaType, err := l.validator.ResolveMediaType(raw.MediaType, raw.Data)
	if err != nil {
		return nil, err
	}
	if len(raw.Data) == 0 {
		return nil, apperrors.NewExtractionError("image is empty", nil)
	}

	decoded, format, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, apperrors.NewExtractionError("image could not be decoded", err)
	}
	bounds := decoded.Bounds()
	if bounds.Empty() {
		return nil, apperrors.NewExtractionError("image has no pixels", nil)
	}

	sum := sha256.Sum256(raw.Data)
	img := &Image{
		Data:      raw.Data,
		MediaType: mediaType,
		Format:    format,
		Digest:    hex.EncodeToString(sum[:]),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Decoded:   decoded,
		Source:    raw.Source,
	}

	// The fingerprint is informational; an image it cannot hash is still usable
	if hash, err := goimagehash.DifferenceHash(decoded); err == nil {
		img.Fingerprint = hash.ToString()
	}
	return img, nil
}

// Distance returns the perceptual hamming distance between two loaded images,
// or -1 when either has no fingerprint
func Distance(a, b *Image) int {
	if a == nil || b == nil || a.Fingerprint == "" || b.Fingerprint == "" {
		return -1
	}
	ha, err := goimagehash.ImageHashFromString(a.Fingerprint)
	if err != nil {
		return -1
	}
	hb, err := goimagehash.ImageHashFromString(b.Fingerprint)
	if err != nil {
		return -1
	}
	d, err := ha.Distance(hb)
	if err != nil {
		return -1
	}
	return d
}
