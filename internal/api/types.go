package api

import "inkpost/internal/models"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// CategoryInfo describes the limits of one upload category.
type CategoryInfo struct {
	Name       string   `json:"name" yaml:"name"`
	MaxBytes   int64    `json:"max_bytes" yaml:"max_bytes"`
	Extensions []string `json:"extensions" yaml:"extensions"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	SchemaVersion  int            `json:"schema_version" yaml:"schema_version"`
	StorageBackend string         `json:"storage_backend" yaml:"storage_backend"`
	Categories     []CategoryInfo `json:"categories" yaml:"categories"`
	UploadCounts   map[string]int `json:"upload_counts" yaml:"upload_counts"`
	TotalUploads   int            `json:"total_uploads" yaml:"total_uploads"`
}

// UploadResponse is one stored upload.
type UploadResponse = models.Upload

// DeleteResponse is the response from DELETE /v1/uploads/{id}.
type DeleteResponse struct {
	ID      string `json:"id" yaml:"id"`
	Deleted bool   `json:"deleted" yaml:"deleted"`
}
