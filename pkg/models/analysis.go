package models

// ImageMetrics is the quality snapshot of one uploaded image.
// Blur grows as the image gets softer, Brightness is the mean gray level
// in [0,255] and Contrast is the RMS spread of gray levels.
type ImageMetrics struct {
	Blur       float64 `json:"blur"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
}

// ImageInfo describes the currently uploaded image
type ImageInfo struct {
	MediaType   string `json:"media_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SizeBytes   int    `json:"size_bytes"`
	Digest      string `json:"digest"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// FilterDescriptor is the wire form of the current filter parameters
type FilterDescriptor struct {
	FilterType string `json:"filter_type"`
	KernelSize int    `json:"kernel_size"`
}

// RationaleSegment is one span of a rationale, optionally emphasized
type RationaleSegment struct {
	Text     string `json:"text"`
	Emphasis bool   `json:"emphasis,omitempty"`
}

// Recommendation is the wire form of a filter suggestion
type Recommendation struct {
	FilterType string             `json:"filter_type"`
	Class      string             `json:"rationale_class"`
	Rationale  string             `json:"rationale"` // plain text; Segments carries the emphasis
	Segments   []RationaleSegment `json:"segments"`
}

// OutputInfo describes the applied output available for download
type OutputInfo struct {
	MediaType  string           `json:"media_type"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	SizeBytes  int              `json:"size_bytes"`
	Digest     string           `json:"digest"`
	Descriptor FilterDescriptor `json:"descriptor"`
}
