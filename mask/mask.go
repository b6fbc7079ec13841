// Package mask implements the mask algebra for background-only edits: a raw
// per-pixel foreground confidence map is turned into a strict core mask, a
// dilated protect mask, and their complement, the edit mask handed to the
// generative service. All functions are pure and deterministic.
//
// Mask convention: 255 marks the property the mask names. In an edit mask
// 255 means "editable background"; in core/protect masks 255 means "subject".
package mask

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
)

// Mask errors.
var (
	ErrEmptyForeground = errors.New("mask: foreground mask is empty")
	ErrSizeMismatch    = errors.New("mask: mask dimensions differ")
)

// Threshold returns a binary mask: 255 where the confidence is at or above
// cutoff, 0 elsewhere.
func Threshold(m *image.Gray, cutoff uint8) *image.Gray {
	out := image.NewGray(m.Bounds())
	for i, v := range m.Pix {
		if v >= cutoff {
			out.Pix[i] = 255
		}
	}
	return out
}

// Invert flips a mask: editable becomes protected and vice versa.
func Invert(m *image.Gray) *image.Gray {
	out := image.NewGray(m.Bounds())
	for i, v := range m.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// Union returns the per-pixel maximum of two masks of equal size.
func Union(a, b *image.Gray) (*image.Gray, error) {
	if a.Bounds() != b.Bounds() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrSizeMismatch, a.Bounds(), b.Bounds())
	}
	out := image.NewGray(a.Bounds())
	for i := range a.Pix {
		if a.Pix[i] >= b.Pix[i] {
			out.Pix[i] = a.Pix[i]
		} else {
			out.Pix[i] = b.Pix[i]
		}
	}
	return out, nil
}

// IsEmpty reports whether no pixel reaches the cutoff.
func IsEmpty(m *image.Gray, cutoff uint8) bool {
	for _, v := range m.Pix {
		if v >= cutoff {
			return false
		}
	}
	return true
}

// BBox returns the bounding box of pixels at or above cutoff, and whether
// any such pixel exists.
func BBox(m *image.Gray, cutoff uint8) (image.Rectangle, bool) {
	b := m.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := (y - b.Min.Y) * m.Stride
		for x := b.Min.X; x < b.Max.X; x++ {
			if m.Pix[row+(x-b.Min.X)] >= cutoff {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// DominanceRatio returns max(bbox width / image width, bbox height / image
// height) in [0,1] — the proxy for how large the subject appears.
func DominanceRatio(bbox image.Rectangle, width, height int) float64 {
	if bbox.Empty() || width <= 0 || height <= 0 {
		return 0
	}
	rw := float64(bbox.Dx()) / float64(width)
	rh := float64(bbox.Dy()) / float64(height)
	if rw > rh {
		return rw
	}
	return rh
}

// EncodePNG serializes a mask as a grayscale PNG for the edit service.
func EncodePNG(m *image.Gray) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, fmt.Errorf("mask: png encode: %w", err)
	}
	return buf.Bytes(), nil
}
