// Package imaging validates uploaded drawings and normalizes them to PNG.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // recognized so it can be rejected by name
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Validation errors. Their messages are shown to API clients.
var (
	ErrInvalidBase64     = errors.New("base64 inválido")
	ErrImageTooLarge     = errors.New("Imagen demasiado grande")
	ErrInvalidImage      = errors.New("No es una imagen válida")
	ErrUnsupportedFormat = errors.New("Formato no soportado")
	ErrTooSmall          = errors.New("Imagen con dimensiones demasiado pequeñas")
)

// Limits bounds an upload. Images larger than MaxDimension on either side are
// shrunk to fit a ThumbnailSize square. MaxPixels caps the width×height a
// header may declare before any pixel is decoded; zero disables the cap.
type Limits struct {
	MaxBytes      int
	MaxPixels     int
	MinDimension  int
	MaxDimension  int
	ThumbnailSize int
}

// DefaultPixelLimit matches the decompression-bomb threshold of common
// imaging libraries, about 89.5 megapixels.
const DefaultPixelLimit = 89_478_485

// DefaultLimits returns the limits applied when the configuration sets none.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:      5 << 20,
		MaxPixels:     DefaultPixelLimit,
		MinDimension:  64,
		MaxDimension:  2048,
		ThumbnailSize: 1024,
	}
}

var allowedFormats = map[string]bool{"png": true, "jpeg": true}

// Image is a validated drawing re-encoded as PNG.
type Image struct {
	PNG     []byte
	Width   int
	Height  int
	Format  string // format of the upload
	Resized bool
}

// MimeType of the normalized bytes.
func (img *Image) MimeType() string {
	return "image/png"
}

// Decode validates a base64 upload (a data: URI prefix is allowed) and
// returns it as PNG.
func Decode(b64 string, limits Limits) (*Image, error) {
	raw, err := decodeBase64(b64)
	if err != nil {
		return nil, err
	}
	if len(raw) > limits.MaxBytes {
		return nil, ErrImageTooLarge
	}
	return Normalize(raw, limits)
}

// Normalize validates raw image bytes and re-encodes them as RGBA PNG.
func Normalize(raw []byte, limits Limits) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrInvalidImage
	}
	if !allowedFormats[format] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, strings.ToUpper(format))
	}
	if limits.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(limits.MaxPixels) {
		return nil, ErrImageTooLarge
	}
	if cfg.Width < limits.MinDimension || cfg.Height < limits.MinDimension {
		return nil, ErrTooSmall
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrInvalidImage
	}

	out := &Image{Format: format}
	var dst *image.RGBA
	if cfg.Width > limits.MaxDimension || cfg.Height > limits.MaxDimension {
		w, h := fit(cfg.Width, cfg.Height, limits.ThumbnailSize)
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		out.Resized = true
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	out.PNG = buf.Bytes()
	out.Width, out.Height = dst.Bounds().Dx(), dst.Bounds().Dy()
	return out, nil
}

// fit scales w×h down to fit a size×size box, keeping the aspect ratio.
func fit(w, h, size int) (int, int) {
	if w >= h {
		return size, max(1, h*size/w)
	}
	return max(1, w*size/h), size
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	if raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return raw, nil
	}
	return nil, ErrInvalidBase64
}
