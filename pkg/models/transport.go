package models

// UploadURLRequest asks the service to fetch an image instead of receiving it inline
type UploadURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// FilterTypeRequest replaces the current filter type
type FilterTypeRequest struct {
	FilterType string `json:"filter_type" binding:"required,oneof=gaussian median lowpass highpass"`
}

// KernelSizeRequest replaces the current kernel size. Out of range values are
// clamped and even values normalized by the parameter store.
type KernelSizeRequest struct {
	KernelSize *int `json:"kernel_size" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// SessionResponse is the full observable state of one session
type SessionResponse struct {
	ID             string           `json:"id"`
	State          string           `json:"state"`
	Analyzing      bool             `json:"analyzing"`
	Image          *ImageInfo       `json:"image,omitempty"`
	Metrics        *ImageMetrics    `json:"metrics,omitempty"`
	Descriptor     FilterDescriptor `json:"descriptor"`
	Recommendation *Recommendation  `json:"recommendation,omitempty"`
	Output         *OutputInfo      `json:"output,omitempty"`
}
