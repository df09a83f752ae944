package validation

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "go-image-enhancer/internal/errors"
)

const (
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
)

// MediaValidator decides whether an upload is an accepted image type
type MediaValidator struct {
	allowed []string
}

// NewMediaValidator accepts JPEG and PNG
func NewMediaValidator() *MediaValidator {
	return &MediaValidator{allowed: []string{MediaTypeJPEG, MediaTypePNG}}
}

// ResolveMediaType returns the canonical media type for an upload.
// The declared type wins; when it is missing or generic the content is sniffed.
func (v *MediaValidator) ResolveMediaType(declared string, data []byte) (string, error) {
	mediaType := canonicalMediaType(declared)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = canonicalMediaType(mimetype.Detect(data).String())
	}

	if !v.isAllowed(mediaType) {
		return "", apperrors.NewUnsupportedMediaError(
			"only image/jpeg and image/png uploads are accepted", nil,
		).WithDetails("received " + describeMediaType(mediaType))
	}
	return mediaType, nil
}

func (v *MediaValidator) isAllowed(mediaType string) bool {
	for _, allowed := range v.allowed {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// canonicalMediaType strips parameters and folds the jpg alias
func canonicalMediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mediaType = strings.ToLower(strings.SplitN(raw, ";", 2)[0])
	}
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		return MediaTypeJPEG
	}
	return mediaType
}

func describeMediaType(mediaType string) string {
	if mediaType == "" {
		return "no media type"
	}
	return mediaType
}
