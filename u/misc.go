package u

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// FormatSize formats a number in a human-readable form e.g. 1.24 kB
func FormatSize(n int64) string {
	sizes := []int64{1024 * 1024 * 1024, 1024 * 1024, 1024}
	suffixes := []string{"GB", "MB", "kB"}
	for i, size := range sizes {
		if n >= size {
			s := fmt.Sprintf("%.2f", float64(n)/float64(size))
			return strings.TrimSuffix(s, ".00") + " " + suffixes[i]
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

var mimeTypes = map[string]string{
	".dat":  "application/octet-stream",
	".zst":  "application/zstd",
	".br":   "application/x-brotli",
	".gz":   "application/gzip",
	".json": "application/json",
	".toon": "text/plain; charset=utf-8",
}

// MimeTypeFromFileName returns content type based on file extension
func MimeTypeFromFileName(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	ct := mimeTypes[ext]
	if ct == "" {
		ct = mime.TypeByExtension(ext)
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}
