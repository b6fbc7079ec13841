package restyle

import (
	"image"

	"restager/imaging"
	"restager/mask"
)

// DropShadowParams shapes an offset drop shadow.
type DropShadowParams struct {
	OffsetX    int
	OffsetY    int
	BlurRadius float64
	Opacity    float64
	GrowPx     int
}

// DefaultDropShadowParams scales the soft drop shadow to the canvas. The
// offset grows with the frame (3% of each dimension) and the blur never
// drops below the contact shadow's; the opacity stays below the contact
// shadow so the drop reads as ambient rather than hard light.
func DefaultDropShadowParams(w, h int) DropShadowParams {
	blur := 0.03 * float64(minInt(w, h))
	if blur < 10 {
		blur = 10
	}
	return DropShadowParams{
		OffsetX:    int(0.03 * float64(w)),
		OffsetY:    int(0.03 * float64(h)),
		BlurRadius: blur,
		Opacity:    0.11,
		GrowPx:     2,
	}
}

// DropShadow renders a drop shadow from the subject mask: offset, grown,
// blurred, and scaled by opacity. The result is a grayscale shadow mask
// where 255 means full shadow darkness.
func DropShadow(subjectMask *image.Gray, p DropShadowParams) *image.Gray {
	bounds := subjectMask.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	shadow := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x-p.OffsetX, y-p.OffsetY
			if sx < 0 || sy < 0 || sx >= w || sy >= h {
				continue
			}
			shadow.Pix[shadow.PixOffset(x, y)] = subjectMask.Pix[subjectMask.PixOffset(bounds.Min.X+sx, bounds.Min.Y+sy)]
		}
	}

	if p.GrowPx > 0 {
		shadow = mask.Dilate(shadow, p.GrowPx)
	}
	if p.BlurRadius > 0 {
		shadow = imaging.GaussianBlurGray(shadow, p.BlurRadius)
	}
	return scaleShadow(shadow, p.Opacity)
}

// ContactShadowParams shapes the short shadow under the subject's bottom
// edge, where a pasted cut-out looks most detached.
type ContactShadowParams struct {
	// BandRatio is the fraction of the subject height used as the shadow
	// band above the bottom edge.
	BandRatio  float64
	BlurRadius float64
	Opacity    float64
	YOffset    int
}

// DefaultContactShadowParams matches the paste-back pipeline.
func DefaultContactShadowParams() ContactShadowParams {
	return ContactShadowParams{
		BandRatio:  0.10,
		BlurRadius: 10,
		Opacity:    0.18,
		YOffset:    2,
	}
}

// minContactPixels guards against masks too sparse to have a meaningful
// bottom edge.
const minContactPixels = 50

// ContactShadow renders a contact shadow from the subject mask placed on
// the full canvas. An empty or near-empty mask yields an all-zero shadow.
func ContactShadow(subjectMask *image.Gray, p ContactShadowParams) *image.Gray {
	bounds := subjectMask.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	// Vertical extent of the subject, counting coverage while we scan.
	minY, maxY, count := -1, -1, 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if subjectMask.Pix[subjectMask.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)] > 51 {
				if minY < 0 {
					minY = y
				}
				maxY = y
				count++
			}
		}
	}
	if count < minContactPixels {
		return out
	}

	bandH := int(float64(maxY-minY+1) * p.BandRatio)
	if bandH < 2 {
		bandH = 2
	}
	bandTop := maxY - bandH
	if bandTop < 0 {
		bandTop = 0
	}

	band := image.NewGray(image.Rect(0, 0, w, h))
	for y := bandTop; y <= maxY; y++ {
		ty := y + p.YOffset
		if ty < 0 || ty >= h {
			continue
		}
		for x := 0; x < w; x++ {
			band.Pix[band.PixOffset(x, ty)] = subjectMask.Pix[subjectMask.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)]
		}
	}

	if p.BlurRadius > 0 {
		band = imaging.GaussianBlurGray(band, p.BlurRadius)
	}
	return scaleShadow(band, p.Opacity)
}

// CombineShadows takes the per-pixel maximum darkness of two shadow masks.
func CombineShadows(a, b *image.Gray) *image.Gray {
	out := image.NewGray(a.Bounds())
	copy(out.Pix, a.Pix)
	for i := range out.Pix {
		if b.Pix[i] > out.Pix[i] {
			out.Pix[i] = b.Pix[i]
		}
	}
	return out
}

// ApplyShadow darkens the background by the shadow mask: each channel is
// multiplied by (1 - shadow/255).
func ApplyShadow(background *image.RGBA, shadow *image.Gray) *image.RGBA {
	out := imaging.Clone(background)
	bounds := background.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := shadow.GrayAt(x-bounds.Min.X, y-bounds.Min.Y).Y
			if s == 0 {
				continue
			}
			factor := float64(255-s) / 255.0
			i := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				out.Pix[i+c] = clampByte(float64(out.Pix[i+c]) * factor)
			}
		}
	}
	return out
}

func scaleShadow(shadow *image.Gray, opacity float64) *image.Gray {
	if opacity >= 1.0 {
		return shadow
	}
	for i, v := range shadow.Pix {
		shadow.Pix[i] = clampByte(float64(v) * opacity)
	}
	return shadow
}
