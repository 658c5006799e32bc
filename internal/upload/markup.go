package upload

import (
	"fmt"
	"strings"
)

// MarkupStyle selects how one uploaded file is written into the document.
type MarkupStyle string

const (
	// MarkupEmbed renders ![name](url), which the post renderer turns into
	// an inline player or image.
	MarkupEmbed MarkupStyle = "embed"
	// MarkupLink renders a plain [name](url) link.
	MarkupLink MarkupStyle = "link"
)

const DefaultPlaceholderLabel = "uploading"

func ParseMarkupStyle(raw string) (MarkupStyle, error) {
	switch MarkupStyle(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MarkupEmbed:
		return MarkupEmbed, nil
	case MarkupLink:
		return MarkupLink, nil
	default:
		return "", fmt.Errorf("invalid markup style %q (expected embed or link)", raw)
	}
}

// Line renders one markup line for a stored file.
func (s MarkupStyle) Line(name, url string) string {
	label := escapeLabel(name)
	if s == MarkupLink {
		return fmt.Sprintf("[%s](%s)", label, url)
	}
	return fmt.Sprintf("![%s](%s)", label, url)
}

// Placeholder renders the loading text shown while a batch is in flight.
func Placeholder(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultPlaceholderLabel
	}
	return fmt.Sprintf("![%s...]()", escapeLabel(label))
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`, "\n", " ", "\r", " ")

func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}
