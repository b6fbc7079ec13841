package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate rotates an image about its center by degrees (counter-clockwise),
// keeping the original dimensions. Corners uncovered by the rotated frame
// are filled with fill. Bilinear sampling keeps small handheld-style tilts
// free of stair-stepping.
func Rotate(img *image.RGBA, degrees float64, fill color.Color) *image.RGBA {
	if math.Abs(degrees) < 0.01 {
		return Clone(img)
	}

	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: fill}, image.Point{}, draw.Src)

	theta := degrees * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	cx := float64(b.Dx()) / 2
	cy := float64(b.Dy()) / 2

	// Rotation about the center: translate to origin, rotate, translate back.
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(dst, m, img, b, draw.Over, nil)
	return dst
}
