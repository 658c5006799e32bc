package main

import (
	"context"
	"errors"
	"net"

	"inkpost/internal/api"
	"inkpost/internal/upload"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify INKPOST_API_TOKEN matches the server's api_token_hash.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly or upload fewer files at once.")
		case "too_large":
			lines = append(lines, "hint: the server rejected the file size; see `inkpost info` for per-category limits.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify INKPOST_API_URL points to an inkpost server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	var validationErr *upload.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Reason {
		case upload.ReasonSize:
			lines = append(lines, "hint: raise editor.max_file_bytes with: inkpost config set editor.max_file_bytes <bytes>")
		case upload.ReasonKind:
			lines = append(lines, "hint: accepted kinds come from editor.allowed_kinds.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase INKPOST_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure an inkpost server is running at INKPOST_API_URL.",
			"hint: start local server manually with: inkpost srv",
			"hint: you can increase INKPOST_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
