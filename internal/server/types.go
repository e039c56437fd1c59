// Package server provides the HTTP surface consumed by the browser
// frontend: upload endpoints, artifact download, and health.
package server

// ProcessResponse is the response for a successful merge or conversion.
type ProcessResponse struct {
	// Success is true when the job finished and an artifact is available.
	Success bool `json:"success"`
	// Message is a human-readable completion message.
	Message string `json:"message"`
	// DownloadURL is the relative URL for fetching the artifact.
	DownloadURL string `json:"download_url"`
	// Filename is the artifact file name, which doubles as its token.
	Filename string `json:"filename"`
	// JobID is the identifier of the completed job.
	JobID string `json:"job_id,omitempty"`
	// S3URL is the mirrored artifact URL when S3 is configured.
	S3URL string `json:"s3_url,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Success is always false for errors.
	Success bool `json:"success"`
	// Error is the human-readable error message.
	Error string `json:"error"`
}

// convertForm carries the validated parameters of a conversion request.
type convertForm struct {
	Width      int    `validate:"required,min=1,max=7680"`
	Height     int    `validate:"required,min=1,max=4320"`
	FPS        int    `validate:"required,min=1,max=120"`
	ColorR     int    `validate:"min=0,max=255"`
	ColorG     int    `validate:"min=0,max=255"`
	ColorB     int    `validate:"min=0,max=255"`
	OutputName string `validate:"omitempty,max=255"`
}

// mergeForm carries the validated parameters of a merge request.
type mergeForm struct {
	Method     string `validate:"required,oneof=concatenate overlay"`
	OutputName string `validate:"omitempty,max=255"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// UptimeSec is the number of seconds the process has been running.
	UptimeSec int64 `json:"uptime_sec"`
	// DiskFree is the free space on the output volume, human readable.
	DiskFree string `json:"disk_free"`
	// DiskFreeBytes is the free space on the output volume in bytes.
	DiskFreeBytes uint64 `json:"disk_free_bytes"`
	// MemoryUsed is the Go heap in use, human readable.
	MemoryUsed string `json:"memory_used"`
	// MaxFileSize is the configured per-file upload limit, human readable.
	MaxFileSize string `json:"max_file_size"`
	// MaxTotalSize is the configured aggregate upload limit, human readable.
	MaxTotalSize string `json:"max_total_size"`
}
