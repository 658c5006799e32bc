package server

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"inkpost/internal/upload"
)

// LocalTransport uploads editor files straight into an UploadService
// without going through HTTP.
type LocalTransport struct {
	service *UploadService
}

var _ upload.Transport = (*LocalTransport)(nil)

// NewLocalTransport adapts service to the editor upload pipeline.
func NewLocalTransport(service *UploadService) *LocalTransport {
	return &LocalTransport{service: service}
}

// Upload stores req and returns the public URL of the stored file.
func (t *LocalTransport) Upload(ctx context.Context, req upload.Request, progress upload.ProgressFunc) (string, error) {
	if t == nil || t.service == nil {
		return "", fmt.Errorf("local transport is not configured")
	}
	if req.File.Open == nil {
		return "", fmt.Errorf("file %s has no content", req.File.Name)
	}
	rc, err := req.File.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", req.File.Name, err)
	}
	defer rc.Close()

	reader := &countingReader{r: rc, total: req.File.Size, report: progress}
	stored, err := t.service.Store(ctx, string(req.Category), req.File.Name, req.File.MediaType, reader)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(stored.URL) == "" {
		return "", fmt.Errorf("upload %s has no url", stored.ID)
	}
	return stored.URL, nil
}

type countingReader struct {
	r      io.Reader
	total  int64
	loaded int64
	last   int
	report upload.ProgressFunc
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.report != nil && c.total > 0 {
		c.loaded += int64(n)
		percent := min(int(math.Round(float64(c.loaded)*100/float64(c.total))), 100)
		if percent > c.last {
			c.last = percent
			c.report(percent)
		}
	}
	return n, err
}
