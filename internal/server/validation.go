package server

import (
	"fmt"
	"mime"
	"path"
	"regexp"
	"slices"
	"strings"

	"inkpost/internal/models"
)

var uploadIDRegex = regexp.MustCompile(`^up-[0-9a-z]{8}$`)

func validateUploadID(id string) bool {
	return uploadIDRegex.MatchString(id)
}

var (
	imageExtensions = []string{".gif", ".jpeg", ".jpg", ".png", ".webp"}
	videoExtensions = []string{".m4v", ".mov", ".mp4", ".ogv", ".webm"}
	brandExtensions = []string{".ico", ".svg"}
)

// categoryExtensions lists the file extensions each category accepts.
var categoryExtensions = map[models.Category][]string{
	models.CategoryAvatar:   imageExtensions,
	models.CategoryPost:     concatSorted(imageExtensions, videoExtensions),
	models.CategoryBranding: concatSorted(imageExtensions, brandExtensions),
}

func concatSorted(groups ...[]string) []string {
	out := slices.Concat(groups...)
	slices.Sort(out)
	return out
}

func parseCategory(raw string) (models.Category, error) {
	category, err := models.ParseCategory(raw)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidCategory)
	}
	return category, nil
}

// normalizeExtension returns the lowercase extension of filename when the
// category accepts it.
func normalizeExtension(category models.Category, filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return "", badRequestCode(fmt.Errorf("file has no extension"), ErrCodeUnsupportedType)
	}
	if !slices.Contains(categoryExtensions[category], ext) {
		return "", badRequestCode(fmt.Errorf("%s files are not accepted for %s uploads", ext, category), ErrCodeUnsupportedType)
	}
	return ext, nil
}

// sanitizeFilename keeps only the final path element of a client filename.
func sanitizeFilename(raw string) string {
	name := strings.TrimSpace(strings.ReplaceAll(raw, `\`, "/"))
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func normalizeMediaType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", badRequestCode(fmt.Errorf("invalid media_type"), ErrCodeInvalidArgument)
	}
	return strings.ToLower(strings.TrimSpace(parsed)), nil
}

// isGenericSniff reports sniffed types too vague to contradict a declared type.
func isGenericSniff(mediaType string) bool {
	switch mediaType {
	case "", "application/octet-stream", "text/plain", "text/xml":
		return true
	default:
		return false
	}
}

// sniffAliases lists declared types that content sniffed as the key also satisfies.
var sniffAliases = map[string][]string{
	"application/ogg": {"video/ogg", "audio/ogg"},
	"video/mp4":       {"video/quicktime"},
}

// sniffMatches reports whether sniffed content is consistent with declared.
func sniffMatches(declared, sniffed string) bool {
	if isGenericSniff(sniffed) || sniffed == declared {
		return true
	}
	return slices.Contains(sniffAliases[sniffed], declared)
}
