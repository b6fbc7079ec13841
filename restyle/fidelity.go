package restyle

import (
	"image"

	"restager/imaging"
)

// PasteForegroundExact composites the original subject cut-out back onto
// the regenerated background. Where the mask is fully opaque the subject's
// original bytes win exactly; feathered edges alpha-blend.
func PasteForegroundExact(background *image.RGBA, subject *image.RGBA, alpha *image.Gray) *image.RGBA {
	bounds := background.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	fg := subject
	m := alpha
	if fg.Bounds().Dx() != w || fg.Bounds().Dy() != h {
		fg = imaging.Resize(fg, w, h)
	}
	if m.Bounds().Dx() != w || m.Bounds().Dy() != h {
		m = imaging.ResizeGray(m, w, h)
	}

	out := imaging.Clone(background)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := m.Pix[m.PixOffset(x, y)]
			if a == 0 {
				continue
			}
			oi := out.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			fi := fg.PixOffset(fg.Bounds().Min.X+x, fg.Bounds().Min.Y+y)
			if a == 255 {
				copy(out.Pix[oi:oi+3], fg.Pix[fi:fi+3])
				continue
			}
			af := float64(a) / 255.0
			for c := 0; c < 3; c++ {
				bg := float64(out.Pix[oi+c])
				sv := float64(fg.Pix[fi+c])
				out.Pix[oi+c] = clampByte(sv*af + bg*(1-af))
			}
		}
	}
	return out
}
