package recommend

import (
	"strings"

	"go-image-enhancer/pkg/models"
)

const emphasisMarker = "**"

// Rationale is explanation text where **...** marks emphasized spans
type Rationale string

// Plain returns the text without emphasis markers
func (r Rationale) Plain() string {
	return strings.ReplaceAll(string(r), emphasisMarker, "")
}

// Segments splits the text into alternating plain and emphasized spans.
// An unterminated marker is kept as literal text.
func (r Rationale) Segments() []models.RationaleSegment {
	var segments []models.RationaleSegment
	rest := string(r)
	for rest != "" {
		start := strings.Index(rest, emphasisMarker)
		if start < 0 {
			segments = append(segments, models.RationaleSegment{Text: rest})
			break
		}
		end := strings.Index(rest[start+len(emphasisMarker):], emphasisMarker)
		if end < 0 {
			segments = append(segments, models.RationaleSegment{Text: rest})
			break
		}
		end += start + len(emphasisMarker)

		if start > 0 {
			segments = append(segments, models.RationaleSegment{Text: rest[:start]})
		}
		if inner := rest[start+len(emphasisMarker) : end]; inner != "" {
			segments = append(segments, models.RationaleSegment{Text: inner, Emphasis: true})
		}
		rest = rest[end+len(emphasisMarker):]
	}
	return segments
}
