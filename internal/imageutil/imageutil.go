// Package imageutil decodes, bounds and re-encodes product and candidate images.
package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// DefaultMaxDimension bounds the longest side of a product image sent to the backend.
const DefaultMaxDimension = 2048

// ErrUnsupportedFormat is returned for bytes that no registered decoder accepts.
var ErrUnsupportedFormat = errors.New("unsupported image format")

var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// SupportedExtension reports whether name has one of the accepted image extensions.
func SupportedExtension(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Decode decodes PNG, JPEG or WebP bytes and returns the image with its format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty data", ErrUnsupportedFormat)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// FitDimensions scales width and height down so neither exceeds maxDimension,
// preserving the aspect ratio. Sizes already within bounds are returned unchanged.
func FitDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}
	if width >= height {
		h := height * maxDimension / width
		return maxDimension, max(h, 1)
	}
	w := width * maxDimension / height
	return max(w, 1), maxDimension
}

// Normalize validates data as an image and returns PNG bytes whose longest side
// is at most maxDimension.
func Normalize(data []byte, maxDimension int) ([]byte, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	newWidth, newHeight := FitDimensions(bounds.Dx(), bounds.Dy(), maxDimension)
	if newWidth != bounds.Dx() || newHeight != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		log.Debug().
			Str("format", format).
			Int("orig_width", bounds.Dx()).
			Int("orig_height", bounds.Dy()).
			Int("new_width", newWidth).
			Int("new_height", newHeight).
			Msg("Image downscaled")
		img = resized
	}
	return encode(img)
}

// EncodePNG converts image bytes of any supported format to PNG.
// PNG input is returned as is.
func EncodePNG(data []byte) ([]byte, error) {
	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if format == "png" {
		return data, nil
	}
	return encode(img)
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
