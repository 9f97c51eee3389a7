package api

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"supportdesk/internal/models"
)

// Extension allow-lists. Matching is case-insensitive; a file with no
// extension matches nothing.
var allowedExtensions = map[string]struct{}{
	"txt": {}, "pdf": {}, "png": {}, "jpg": {}, "jpeg": {}, "gif": {},
	"doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "log": {}, "csv": {},
}

var imageExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "webp": {},
}

var textExtensions = map[string]struct{}{
	"txt": {}, "log": {}, "csv": {}, "conf": {}, "cfg": {}, "ini": {},
}

var imageMIMETypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

func fileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func isAllowedFile(name string) bool {
	_, ok := allowedExtensions[fileExt(name)]
	return ok
}

func isImageFile(name string) bool {
	_, ok := imageExtensions[fileExt(name)]
	return ok
}

func isTextFile(name string) bool {
	_, ok := textExtensions[fileExt(name)]
	return ok
}

// mimeTypeFor derives the content-type label from the file extension.
func mimeTypeFor(name string) string {
	if mime, ok := imageMIMETypes[fileExt(name)]; ok {
		return mime
	}
	return "application/octet-stream"
}

func classifyFile(name string) models.FileType {
	switch {
	case isImageFile(name):
		return models.FileTypeImage
	case isTextFile(name):
		return models.FileTypeText
	default:
		return models.FileTypeOther
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// sanitizeFilename strips path components and replaces anything outside
// [A-Za-z0-9_.-] so the result is safe to join under the upload
// directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		name = "file"
	}
	return name
}

// readTextFile reads a stored text attachment as UTF-8, falling back to
// a Latin-1 interpretation when the bytes are not valid UTF-8.
func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	// Latin-1: each byte maps to the code point of the same value.
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String(), nil
}
