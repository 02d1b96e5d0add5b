// Package imagemeta sniffs image metadata from raw bytes so the upstream
// request can declare an accurate media type instead of assuming JPEG.
package imagemeta

import (
	"bytes"
	"image"

	_ "image/gif"  // register gif
	_ "image/jpeg" // register jpeg
	_ "image/png"  // register png

	_ "golang.org/x/image/bmp"  // register bmp
	_ "golang.org/x/image/webp" // register webp
)

// FallbackMediaType is declared when the format cannot be identified.
// Vision providers tolerate a mismatched declaration better than a missing
// one, and JPEG is by far the most common capture format.
const FallbackMediaType = "image/jpeg"

// Meta describes a sniffed image.
type Meta struct {
	MediaType string
	Width     int
	Height    int
}

var mediaTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// Sniff decodes just enough of the image header to report its media type and
// dimensions. Unknown formats fall back to FallbackMediaType with zero
// dimensions; Sniff never fails.
func Sniff(data []byte) Meta {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Meta{MediaType: FallbackMediaType}
	}

	mediaType, ok := mediaTypes[format]
	if !ok {
		mediaType = FallbackMediaType
	}

	return Meta{
		MediaType: mediaType,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}
}
