// Package imaging provides the pixel-level atoms shared by the mask,
// regeneration, and restyle stages: decoding, encoding, resizing, rotation,
// blurring, and tone adjustments. Everything here is pure and deterministic.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"golang.org/x/image/draw"
)

// Imaging errors.
var (
	ErrEmptyImage   = errors.New("imaging: empty image data")
	ErrInvalidImage = errors.New("imaging: invalid image data")
)

// JPEG quality bounds for the re-encode round trip. Consumer phone JPEGs
// rarely fall outside this band.
const (
	MinJPEGQuality     = 60
	MaxJPEGQuality     = 96
	DefaultJPEGQuality = 88
)

// Decode decodes PNG, JPEG, or GIF data into an image.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// EncodePNG encodes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes an image as JPEG bytes at the given quality, clamped to
// the supported band.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < MinJPEGQuality {
		quality = MinJPEGQuality
	}
	if quality > MaxJPEGQuality {
		quality = MaxJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imaging: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// JPEGRoundTrip encodes and re-decodes an image through lossy JPEG. The
// compression artifacts this introduces are the point: they unify the texture
// of generated and preserved regions.
func JPEGRoundTrip(img image.Image, quality int) (*image.RGBA, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return nil, err
	}
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: jpeg decode: %w", err)
	}
	return ToRGBA(decoded), nil
}

// ToRGBA converts any image to RGBA, reusing the buffer when it already is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// ToGray converts any image to 8-bit grayscale.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Resize scales an image to width x height with Catmull-Rom interpolation.
// Non-positive dimensions are clamped to 1.
func Resize(img image.Image, width, height int) *image.RGBA {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ResizeGray scales a grayscale mask with nearest-neighbor sampling so binary
// masks stay binary. Non-positive dimensions are clamped to 1.
func ResizeGray(m *image.Gray, width, height int) *image.Gray {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	scaled := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), m, m.Bounds(), draw.Src, nil)
	return scaled
}

// Clone returns a deep copy of an RGBA image.
func Clone(img *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	copy(dst.Pix, img.Pix)
	return dst
}
