package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the upload destination a file is stored under.
type Category string

const (
	CategoryAvatar   Category = "avatar"
	CategoryPost     Category = "post"
	CategoryBranding Category = "branding"
)

var validCategories = map[Category]struct{}{
	CategoryAvatar:   {},
	CategoryPost:     {},
	CategoryBranding: {},
}

// Categories returns every known category in a stable order.
func Categories() []Category {
	return []Category{CategoryAvatar, CategoryPost, CategoryBranding}
}

func ParseCategory(raw string) (Category, error) {
	value := Category(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("category is required")
	}
	if _, ok := validCategories[value]; !ok {
		return "", fmt.Errorf("invalid category: %s", value)
	}
	return value, nil
}

// StorageBackend names where upload bytes live.
type StorageBackend string

const (
	StorageBackendLocal StorageBackend = "local"
	StorageBackendS3    StorageBackend = "s3"
)

// Upload is one stored file and the public URL it resolves to.
type Upload struct {
	ID             string    `json:"id" yaml:"id"`
	Category       string    `json:"category" yaml:"category"`
	Filename       string    `json:"filename" yaml:"filename"`
	MediaType      string    `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	SizeBytes      int64     `json:"size_bytes" yaml:"size_bytes"`
	SHA256         string    `json:"sha256" yaml:"sha256"`
	StorageBackend string    `json:"storage_backend" yaml:"storage_backend"`
	BlobKey        string    `json:"blob_key" yaml:"blob_key"`
	URL            string    `json:"url" yaml:"url"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}
