package models

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// File is a user-selected blob waiting to be uploaded. Content is read
// through Open so the same File can be retried or streamed more than once.
type File struct {
	Name      string
	Size      int64
	MediaType string
	Open      func() (io.ReadCloser, error)
}

// Kind returns the top-level media type ("video" for "video/mp4").
func (f File) Kind() string {
	mediaType := strings.ToLower(strings.TrimSpace(f.MediaType))
	if mediaType == "" {
		return ""
	}
	kind, _, _ := strings.Cut(mediaType, "/")
	return kind
}

// FileFromPath describes a file on disk. The media type is inferred from
// the extension.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{
		Name:      filepath.Base(path),
		Size:      info.Size(),
		MediaType: MediaTypeFromName(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FileFromBytes describes an in-memory blob.
func FileFromBytes(name string, data []byte) File {
	return File{
		Name:      name,
		Size:      int64(len(data)),
		MediaType: MediaTypeFromName(name),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// MediaTypeFromName infers a media type from a file extension, without
// parameters. Unknown extensions yield "".
func MediaTypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if known, ok := extraMediaTypes[ext]; ok {
		return known
	}
	raw := mime.TypeByExtension(ext)
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return ""
	}
	return parsed
}

// Some hosts ship a sparse mime table; keep the post media types stable.
var extraMediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".ogv":  "video/ogg",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}
