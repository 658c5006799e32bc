package upload

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"inkpost/internal/editor"
)

// VideoSource says which construct a video reference was found in.
type VideoSource string

const (
	VideoFromEmbed  VideoSource = "embed"
	VideoFromLink   VideoSource = "link"
	VideoFromAnchor VideoSource = "anchor"
	VideoFromTag    VideoSource = "video_tag"
)

// videoURLExtensions are the URL suffixes the post viewer plays inline.
var videoURLExtensions = []string{".avi", ".m4v", ".mov", ".mp4", ".ogg", ".ogv", ".webm"}

// IsVideoURL reports whether raw points at a video file, judged by the
// extension of its path. Query and fragment are ignored.
func IsVideoURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	target := raw
	if parsed, err := url.Parse(raw); err == nil {
		target = parsed.Path
	}
	target = strings.ToLower(target)
	return slices.ContainsFunc(videoURLExtensions, func(ext string) bool {
		return strings.HasSuffix(target, ext)
	})
}

// VideoRef is one video reference in a document.
type VideoRef struct {
	Name   string      `json:"name,omitempty"`
	URL    string      `json:"url"`
	Pos    editor.Pos  `json:"pos"`
	Source VideoSource `json:"source"`
}

var (
	markdownLinkRe = regexp.MustCompile(`(!?)\[((?:\\.|[^\\\]])*)\]\(\s*<?([^\s<>()]+)>?(?:\s+"[^"]*")?\s*\)`)
	anchorTagRe    = regexp.MustCompile(`(?i)<a\b[^>]*?\bhref\s*=\s*["']([^"']+)["']`)
	videoTagRe     = regexp.MustCompile(`(?i)<video\b[^>]*?\bsrc\s*=\s*["']([^"']+)["']`)
)

var labelUnescaper = strings.NewReplacer(`\\`, `\`, `\[`, `[`, `\]`, `]`)

// FindVideos lists the video references in text in document order.
// Markdown links, embeds and <a> tags count when their URL is a video URL;
// every <video src> counts.
func FindVideos(text string) []VideoRef {
	var refs []VideoRef
	for lineNo, line := range strings.Split(text, "\n") {
		var found []VideoRef
		var starts []int
		add := func(start int, ref VideoRef) {
			ref.Pos = editor.Pos{Line: lineNo, Ch: utf8.RuneCountInString(line[:start])}
			found = append(found, ref)
			starts = append(starts, start)
		}

		for _, m := range markdownLinkRe.FindAllStringSubmatchIndex(line, -1) {
			target := line[m[6]:m[7]]
			if !IsVideoURL(target) {
				continue
			}
			source := VideoFromLink
			if m[3] > m[2] {
				source = VideoFromEmbed
			}
			add(m[0], VideoRef{Name: labelUnescaper.Replace(line[m[4]:m[5]]), URL: target, Source: source})
		}
		for _, m := range anchorTagRe.FindAllStringSubmatchIndex(line, -1) {
			if target := line[m[2]:m[3]]; IsVideoURL(target) {
				add(m[0], VideoRef{URL: target, Source: VideoFromAnchor})
			}
		}
		for _, m := range videoTagRe.FindAllStringSubmatchIndex(line, -1) {
			add(m[0], VideoRef{URL: line[m[2]:m[3]], Source: VideoFromTag})
		}

		order := make([]int, len(found))
		for i := range order {
			order[i] = i
		}
		slices.SortStableFunc(order, func(a, b int) int { return starts[a] - starts[b] })
		for _, i := range order {
			refs = append(refs, found[i])
		}
	}
	return refs
}
