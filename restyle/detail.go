// Package restyle post-processes regenerated images: it restores subject
// detail, harmonizes pasted cut-outs, grounds them with shadows, and
// degrades the result toward casual phone-photo texture.
package restyle

import (
	"image"

	"restager/imaging"
	"restager/mask"
)

// DetailParams tunes high-frequency detail recovery.
type DetailParams struct {
	// Alpha scales how much detail is blended back. Zero disables.
	Alpha float64
	// BlurRadius separates high frequency from base color.
	BlurRadius float64
	// Threshold binarizes the subject mask.
	Threshold uint8
	// InnerErodePx shrinks the region so edges are left alone.
	InnerErodePx int
}

// DefaultDetailParams matches the pipeline defaults.
func DefaultDetailParams() DetailParams {
	return DetailParams{
		Alpha:        0.22,
		BlurRadius:   2.0,
		Threshold:    128,
		InnerErodePx: 4,
	}
}

// TransferDetails blends high-frequency detail from the source image into
// the regenerated one inside the subject region. Packaging text and edges
// come back while the regenerated lighting stays. Pixels outside the eroded
// subject region are returned byte-identical.
func TransferDetails(source image.Image, regenerated *image.RGBA, subjectMask *image.Gray, p DetailParams) *image.RGBA {
	out := imaging.Clone(regenerated)
	if p.Alpha <= 0 {
		return out
	}

	bounds := regenerated.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	src := imaging.ToRGBA(source)
	if src.Bounds().Dx() != w || src.Bounds().Dy() != h {
		src = imaging.Resize(src, w, h)
	}
	m := subjectMask
	if m.Bounds().Dx() != w || m.Bounds().Dy() != h {
		m = imaging.ResizeGray(m, w, h)
	}

	inner := mask.Erode(mask.Threshold(m, p.Threshold), p.InnerErodePx)
	if mask.IsEmpty(inner, 128) {
		return out
	}

	blurred := imaging.GaussianBlur(src, p.BlurRadius)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if inner.Pix[inner.PixOffset(x, y)] < 128 {
				continue
			}
			si := src.PixOffset(x, y)
			oi := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				detail := float64(src.Pix[si+c]) - float64(blurred.Pix[si+c])
				v := float64(out.Pix[oi+c]) + detail*p.Alpha
				out.Pix[oi+c] = clampByte(v)
			}
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
