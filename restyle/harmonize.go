package restyle

import (
	"image"
	"math"

	"restager/imaging"
)

// FeatherAlpha softens mask edges so a pasted cut-out loses its hard
// outline. The interior stays essentially opaque.
func FeatherAlpha(alpha *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return alpha
	}
	return imaging.GaussianBlurGray(alpha, radius)
}

// Despill reduces green and white fringing on semi-transparent edge pixels.
// Fully opaque and fully transparent pixels are untouched.
func Despill(subject *image.RGBA, alpha *image.Gray, strength float64) *image.RGBA {
	out := imaging.Clone(subject)
	bounds := subject.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			a := float64(alpha.GrayAt(x, y).Y) / 255.0
			if a <= 0.02 || a >= 0.98 {
				continue
			}
			i := out.PixOffset(x, y)
			r := float64(out.Pix[i])
			g := float64(out.Pix[i+1])
			b := float64(out.Pix[i+2])

			maxRB := math.Max(r, b)
			excess := math.Max(0, g-maxRB)
			g2 := g - excess*(strength*1.5)

			mean := (r + g2 + b) / 3.0
			out.Pix[i] = clampByte(r*(1-strength) + mean*strength)
			out.Pix[i+1] = clampByte(g2)
			out.Pix[i+2] = clampByte(b*(1-strength) + mean*strength)
		}
	}
	return out
}

// MatchColors aligns the subject's tone to the background region around its
// placement using a per-channel mean/std match over a surrounding ring.
// Texture survives; only tone shifts, scaled by strength.
func MatchColors(subject *image.RGBA, alpha *image.Gray, background *image.RGBA, pos image.Point, strength float64) *image.RGBA {
	out := imaging.Clone(subject)
	if strength <= 0 {
		return out
	}

	sb := subject.Bounds()
	pw, ph := sb.Dx(), sb.Dy()
	bb := background.Bounds()

	pad := int(math.Max(8, 0.08*float64(maxInt(pw, ph))))
	x1 := maxInt(bb.Min.X, pos.X-pad)
	y1 := maxInt(bb.Min.Y, pos.Y-pad)
	x2 := minInt(bb.Max.X, pos.X+pw+pad)
	y2 := minInt(bb.Max.Y, pos.Y+ph+pad)
	if x2 <= x1 || y2 <= y1 {
		return out
	}

	// Ring statistics: padded box minus the subject rectangle.
	var bgMu, bgSig [3]float64
	var bgN int
	accumulate := func(stats *[3]float64, sq *[3]float64, img *image.RGBA, x, y int) {
		i := img.PixOffset(x, y)
		for c := 0; c < 3; c++ {
			v := float64(img.Pix[i+c])
			stats[c] += v
			sq[c] += v * v
		}
	}
	var bgSq [3]float64
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			if x >= pos.X && x < pos.X+pw && y >= pos.Y && y < pos.Y+ph {
				continue
			}
			accumulate(&bgMu, &bgSq, background, x, y)
			bgN++
		}
	}
	if bgN == 0 {
		return out
	}
	for c := 0; c < 3; c++ {
		bgMu[c] /= float64(bgN)
		bgSig[c] = math.Sqrt(math.Max(0, bgSq[c]/float64(bgN)-bgMu[c]*bgMu[c])) + 1e-6
	}

	// Subject statistics over opaque-ish pixels.
	var prodMu, prodSq, prodSig [3]float64
	var prodN int
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			if float64(alpha.GrayAt(x, y).Y)/255.0 <= 0.5 {
				continue
			}
			accumulate(&prodMu, &prodSq, subject, x, y)
			prodN++
		}
	}
	if prodN == 0 {
		return out
	}
	for c := 0; c < 3; c++ {
		prodMu[c] /= float64(prodN)
		prodSig[c] = math.Sqrt(math.Max(0, prodSq[c]/float64(prodN)-prodMu[c]*prodMu[c])) + 1e-6
	}

	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			i := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := float64(out.Pix[i+c])
				matched := (v-prodMu[c])/prodSig[c]*bgSig[c] + bgMu[c]
				out.Pix[i+c] = clampByte(v*(1-strength) + matched*strength)
			}
		}
	}
	return out
}

// EdgeOnlyBlend keeps fully opaque subject pixels from the original and
// uses the adjusted colors only near transparent edges. The weight toward
// the adjusted image is (1 - alpha)^power.
func EdgeOnlyBlend(original, adjusted *image.RGBA, alpha *image.Gray, power float64) *image.RGBA {
	out := imaging.Clone(original)
	bounds := original.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			a := float64(alpha.GrayAt(x, y).Y) / 255.0
			w := 1.0 - a
			if w <= 0 {
				continue
			}
			if power > 0 && math.Abs(power-1.0) > 1e-6 {
				w = math.Pow(w, power)
			}
			oi := out.PixOffset(x, y)
			ai := adjusted.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				base := float64(original.Pix[oi+c])
				adj := float64(adjusted.Pix[ai+c])
				out.Pix[oi+c] = clampByte(base*(1-w) + adj*w)
			}
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
