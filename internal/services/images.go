package services

import (
	"context"
	"encoding/base64"
	"strings"
)

const embeddedPNGPrefix = "data:image/png;base64,"

// ImageHost stores raster bytes and returns a stable public URL.
type ImageHost interface {
	UploadImage(ctx context.Context, path string, data []byte) (string, error)
}

// EmbedPNG wraps raw PNG bytes into a data URL.
func EmbedPNG(data []byte) string {
	return embeddedPNGPrefix + base64.StdEncoding.EncodeToString(data)
}

// IsEmbeddedImage reports whether ref carries the raster inline instead of pointing at a hosted file.
func IsEmbeddedImage(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), "data:image/")
}

// UnwrapEmbeddedImage returns the base64 payload of a data URL.
func UnwrapEmbeddedImage(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if !IsEmbeddedImage(ref) {
		return "", false
	}
	idx := strings.Index(ref, ";base64,")
	if idx < 0 {
		return "", false
	}
	return ref[idx+len(";base64,"):], true
}
