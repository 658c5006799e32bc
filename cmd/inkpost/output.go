package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"inkpost/internal/format"
	"inkpost/internal/models"
	"inkpost/internal/upload"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeUploadList(uploads []models.Upload) error {
	for _, item := range uploads {
		if err := writePlain("%s\n", formatUploadLine(item)); err != nil {
			return err
		}
	}
	return nil
}

func writeUploadDetail(item models.Upload) error {
	return writePlain("%s\n", strings.Join(uploadDetailLines(item), "\n"))
}

func uploadDetailLines(item models.Upload) []string {
	lines := []string{
		fmt.Sprintf("id: %s", item.ID),
		fmt.Sprintf("category: %s", item.Category),
		fmt.Sprintf("filename: %s", item.Filename),
		fmt.Sprintf("size: %s (%d bytes)", humanize.IBytes(uint64(max(item.SizeBytes, 0))), item.SizeBytes),
		fmt.Sprintf("storage_backend: %s", item.StorageBackend),
		fmt.Sprintf("blob_key: %s", item.BlobKey),
		fmt.Sprintf("url: %s", item.URL),
		fmt.Sprintf("created_at: %s", formatTime(item.CreatedAt)),
	}
	if item.MediaType != "" {
		lines = append(lines, fmt.Sprintf("media_type: %s", item.MediaType))
	}
	if item.SHA256 != "" {
		lines = append(lines, fmt.Sprintf("sha256: %s", item.SHA256))
	}
	return lines
}

func formatUploadLine(item models.Upload) string {
	return fmt.Sprintf("○ %s [%s] %s (%s) - %s",
		item.ID, item.Category, item.Filename, humanize.IBytes(uint64(max(item.SizeBytes, 0))), item.URL)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// progressPrinter renders aggregate upload progress, one line per change.
type progressPrinter struct {
	w    io.Writer
	last upload.ProgressState
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, last: upload.ProgressState{Percent: -1}}
}

func (p *progressPrinter) observe(state upload.ProgressState) {
	if state == p.last {
		return
	}
	p.last = state
	fmt.Fprintf(p.w, "%s %3d%%\n", state.Status, state.Percent)
}
