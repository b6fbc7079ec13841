package imaging

import (
	"image"
)

// Tone adjustments in the interpolation style of PIL's ImageEnhance: factor
// 1.0 is identity, 0.0 is the fully degenerate version, values in between
// blend linearly. Alpha is preserved.

// AdjustContrast blends toward the image's mean luminance.
func AdjustContrast(img *image.RGBA, factor float64) *image.RGBA {
	if factor == 1.0 {
		return Clone(img)
	}
	mean := meanLuminance(img)
	return mapPixels(img, func(r, g, b float64) (float64, float64, float64) {
		return mean + (r-mean)*factor,
			mean + (g-mean)*factor,
			mean + (b-mean)*factor
	})
}

// AdjustSaturation blends toward the per-pixel grayscale value.
func AdjustSaturation(img *image.RGBA, factor float64) *image.RGBA {
	if factor == 1.0 {
		return Clone(img)
	}
	return mapPixels(img, func(r, g, b float64) (float64, float64, float64) {
		gray := luma(r, g, b)
		return gray + (r-gray)*factor,
			gray + (g-gray)*factor,
			gray + (b-gray)*factor
	})
}

// AdjustBrightness scales toward black (factor < 1) or brightens (factor > 1).
func AdjustBrightness(img *image.RGBA, factor float64) *image.RGBA {
	if factor == 1.0 {
		return Clone(img)
	}
	return mapPixels(img, func(r, g, b float64) (float64, float64, float64) {
		return r * factor, g * factor, b * factor
	})
}

// AdjustSharpness blends between a softened copy (factor < 1) and an
// unsharp-masked copy (factor > 1) of the image.
func AdjustSharpness(img *image.RGBA, factor float64) *image.RGBA {
	if factor == 1.0 {
		return Clone(img)
	}
	blurred := GaussianBlur(img, 1.0)
	dst := image.NewRGBA(img.Bounds())
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			orig := float64(img.Pix[i+c])
			soft := float64(blurred.Pix[i+c])
			dst.Pix[i+c] = roundByte(soft + (orig-soft)*factor)
		}
		dst.Pix[i+3] = img.Pix[i+3]
	}
	return dst
}

// mapPixels applies fn to the RGB channels of every pixel, keeping alpha.
func mapPixels(img *image.RGBA, fn func(r, g, b float64) (float64, float64, float64)) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	for i := 0; i < len(img.Pix); i += 4 {
		r, g, b := fn(float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2]))
		dst.Pix[i] = roundByte(r)
		dst.Pix[i+1] = roundByte(g)
		dst.Pix[i+2] = roundByte(b)
		dst.Pix[i+3] = img.Pix[i+3]
	}
	return dst
}

func luma(r, g, b float64) float64 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func meanLuminance(img *image.RGBA) float64 {
	var sum float64
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		sum += luma(float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2]))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
