// Package imagefile converts images between files, bytes and the data-URL
// Base64 strings exchanged with the web frontend and the vendor.
package imagefile

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMIMEType is used whenever the content is not recognisably an image.
const DefaultMIMEType = "image/jpeg"

var ErrEmptyImage = errors.New("image data is empty")

// ReadAsDataURL reads path and returns "data:<mime>;base64,<data>".
func ReadAsDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("read image %s: %w", path, ErrEmptyImage)
	}
	return EncodeDataURL(data, ""), nil
}

// EncodeDataURL builds a data URL for data. declaredType wins when it is an
// image type, otherwise the type is sniffed and falls back to image/jpeg.
func EncodeDataURL(data []byte, declaredType string) string {
	return "data:" + resolveMIMEType(data, declaredType) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StripDataURLPrefix returns the text after the first comma, or s unchanged
// when there is none.
func StripDataURLPrefix(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// DecodeBase64 strips an optional data-URL prefix and decodes the rest.
func DecodeBase64(s string) ([]byte, error) {
	raw := strings.TrimSpace(StripDataURLPrefix(s))
	if raw == "" {
		return nil, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}

// IsImageType reports whether a MIME type names an image.
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// IsImageExtension reports whether ext (".png", ".JPG") names a raster image
// type. SVG is excluded since it can carry script.
func IsImageExtension(ext string) bool {
	mimeType, _, _ := strings.Cut(mime.TypeByExtension(strings.ToLower(ext)), ";")
	return IsImageType(mimeType) && !strings.HasPrefix(mimeType, "image/svg")
}

func resolveMIMEType(data []byte, declaredType string) string {
	if IsImageType(declaredType) {
		return strings.TrimSpace(declaredType)
	}
	detected := mimetype.Detect(data)
	if IsImageType(detected.String()) {
		return detected.String()
	}
	return DefaultMIMEType
}

// Extension returns the file extension (with dot) of image data, or ".png"
// when the content is not a recognised image.
func Extension(data []byte) string {
	detected := mimetype.Detect(data)
	if IsImageType(detected.String()) && detected.Extension() != "" {
		return detected.Extension()
	}
	return ".png"
}
