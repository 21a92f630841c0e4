package component

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// mimeToExtension maps common media types to their canonical file extensions.
var mimeToExtension = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/bmp":                ".bmp",
	"image/tiff":               ".tiff",
	"image/svg+xml":            ".svg",
	"image/x-icon":             ".ico",
	"application/pdf":          ".pdf",
	"application/zip":          ".zip",
	"text/plain":               ".txt",
	"text/markdown":            ".md",
	"text/html":                ".html",
	"text/csv":                 ".csv",
	"application/json":         ".json",
	"application/yaml":         ".yaml",
	"application/xml":          ".xml",
	"audio/mpeg":               ".mp3",
	"audio/ogg":                ".ogg",
	"audio/wav":                ".wav",
	"audio/flac":               ".flac",
	"video/mp4":                ".mp4",
	"video/webm":               ".webm",
	"application/octet-stream": ".bin",
}

var extensionToMIME = func() map[string]string {
	m := make(map[string]string, len(mimeToExtension)+4)
	for t, ext := range mimeToExtension {
		m[ext] = t
	}
	m[".jpeg"] = "image/jpeg"
	m[".yml"] = "application/yaml"
	m[".markdown"] = "text/markdown"
	m[".wave"] = "audio/wav"
	return m
}()

// sniffAliases normalises types reported by http.DetectContentType.
var sniffAliases = map[string]string{
	"audio/wave":   "audio/wav",
	"audio/x-wav":  "audio/wav",
	"image/jpg":    "image/jpeg",
	"text/x-yaml":  "application/yaml",
	"audio/mp3":    "audio/mpeg",
	"audio/x-flac": "audio/flac",
	"image/x-png":  "image/png",
	"text/x-csv":   "text/csv",
	"text/x-json":  "application/json",
}

// NormalizeMediaType lowercases t, strips parameters and maps known aliases.
func NormalizeMediaType(t string) string {
	if t == "" {
		return ""
	}
	base, _, err := mime.ParseMediaType(t)
	if err != nil {
		base = strings.ToLower(strings.TrimSpace(strings.SplitN(t, ";", 2)[0]))
	}
	if alias, ok := sniffAliases[base]; ok {
		return alias
	}
	return base
}

// MediaTypeByExtension returns the media type for a file name's extension,
// or "" when unknown.
func MediaTypeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := extensionToMIME[ext]; ok {
		return t
	}
	return NormalizeMediaType(mime.TypeByExtension(ext))
}

// SniffMediaType detects the media type of content from its leading bytes.
func SniffMediaType(content []byte) string {
	return NormalizeMediaType(http.DetectContentType(content))
}

// ExtensionForMediaType returns a canonical extension for t, falling back to
// the standard library tables and finally ".bin".
func ExtensionForMediaType(t string) string {
	t = NormalizeMediaType(t)
	if ext, ok := mimeToExtension[t]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(t); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// MediaCategory returns the top-level part of a media type ("image", "audio").
func MediaCategory(t string) string {
	t = NormalizeMediaType(t)
	if i := strings.IndexByte(t, '/'); i > 0 {
		return t[:i]
	}
	return t
}
