package imaging

import (
	"image"
	"math"
)

// gaussianKernel builds a normalized 1D kernel for the given radius. The
// radius acts as the standard deviation, with support out to 3 sigma.
func gaussianKernel(radius float64) []float64 {
	if radius <= 0 {
		return []float64{1}
	}
	half := int(math.Ceil(radius * 3))
	kernel := make([]float64, 2*half+1)
	sum := 0.0
	for i := -half; i <= half; i++ {
		v := math.Exp(-float64(i*i) / (2 * radius * radius))
		kernel[i+half] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlur blurs an RGBA image with a separable Gaussian of the given
// radius. Edges are clamped. Alpha is blurred along with color, which is what
// feathering relies on.
func GaussianBlur(img *image.RGBA, radius float64) *image.RGBA {
	if radius <= 0 {
		return Clone(img)
	}
	kernel := gaussianKernel(radius)
	half := len(kernel) / 2
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	tmp := image.NewRGBA(b)
	dst := image.NewRGBA(b)

	// Horizontal pass.
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			var r, g, bl, a float64
			for k, kv := range kernel {
				sx := clampIndex(x+k-half, w)
				o := row + sx*4
				r += kv * float64(img.Pix[o])
				g += kv * float64(img.Pix[o+1])
				bl += kv * float64(img.Pix[o+2])
				a += kv * float64(img.Pix[o+3])
			}
			o := y*tmp.Stride + x*4
			tmp.Pix[o] = roundByte(r)
			tmp.Pix[o+1] = roundByte(g)
			tmp.Pix[o+2] = roundByte(bl)
			tmp.Pix[o+3] = roundByte(a)
		}
	}

	// Vertical pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, bl, a float64
			for k, kv := range kernel {
				sy := clampIndex(y+k-half, h)
				o := sy*tmp.Stride + x*4
				r += kv * float64(tmp.Pix[o])
				g += kv * float64(tmp.Pix[o+1])
				bl += kv * float64(tmp.Pix[o+2])
				a += kv * float64(tmp.Pix[o+3])
			}
			o := y*dst.Stride + x*4
			dst.Pix[o] = roundByte(r)
			dst.Pix[o+1] = roundByte(g)
			dst.Pix[o+2] = roundByte(bl)
			dst.Pix[o+3] = roundByte(a)
		}
	}
	return dst
}

// GaussianBlurGray blurs a grayscale mask with a separable Gaussian.
func GaussianBlurGray(m *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		out := image.NewGray(m.Bounds())
		copy(out.Pix, m.Pix)
		return out
	}
	kernel := gaussianKernel(radius)
	half := len(kernel) / 2
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	tmp := image.NewGray(b)
	dst := image.NewGray(b)

	for y := 0; y < h; y++ {
		row := y * m.Stride
		for x := 0; x < w; x++ {
			var v float64
			for k, kv := range kernel {
				sx := clampIndex(x+k-half, w)
				v += kv * float64(m.Pix[row+sx])
			}
			tmp.Pix[y*tmp.Stride+x] = roundByte(v)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v float64
			for k, kv := range kernel {
				sy := clampIndex(y+k-half, h)
				v += kv * float64(tmp.Pix[sy*tmp.Stride+x])
			}
			dst.Pix[y*dst.Stride+x] = roundByte(v)
		}
	}
	return dst
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func roundByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
