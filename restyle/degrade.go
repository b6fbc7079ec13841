package restyle

import (
	"image"
	"image/color"
	"math"
	"math/rand"

	"restager/imaging"
)

// CaptureProfile is the run-level baseline for casual-photo degradation.
// One profile per run keeps the "same person, same phone" feel; each image
// then jitters slightly around it.
type CaptureProfile struct {
	Noise      float64
	Contrast   float64
	Saturation float64
	Sharpness  float64
	BlurRadius float64
	WBShift    float64
	Exposure   float64
}

// NewCaptureProfile samples a mild baseline from the run RNG.
func NewCaptureProfile(rng *rand.Rand) CaptureProfile {
	uniform := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}
	return CaptureProfile{
		Noise:      uniform(0.018, 0.032),
		Contrast:   uniform(0.82, 0.90),
		Saturation: uniform(0.88, 0.96),
		Sharpness:  uniform(0.82, 0.92),
		BlurRadius: uniform(0.45, 0.90),
		WBShift:    uniform(-0.02, 0.06),
		Exposure:   uniform(0.96, 1.04),
	}
}

// DegradeParams are the fully-resolved settings for one image.
type DegradeParams struct {
	NoiseStrength    float64
	ChromaNoise      float64
	NoiseShadowBoost float64
	Contrast         float64
	Saturation       float64
	Sharpness        float64
	BlurRadius       float64
	WBShift          float64
	Exposure         float64
	RotateDeg        float64
	Vignette         float64
	// JPEGQuality of the compression round trip. Zero skips it.
	JPEGQuality int
}

// Jitter derives per-image parameters from the profile using the job RNG.
func (p CaptureProfile) Jitter(rng *rand.Rand) DegradeParams {
	j := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}
	clampF := func(v, lo, hi float64) float64 {
		return math.Min(hi, math.Max(lo, v))
	}
	return DegradeParams{
		NoiseStrength:    math.Max(0, p.Noise+j(-0.008, 0.014)),
		ChromaNoise:      0.012,
		NoiseShadowBoost: 0.75,
		Contrast:         clampF(p.Contrast+j(-0.04, 0.03), 0.65, 0.95),
		Saturation:       clampF(p.Saturation+j(-0.05, 0.05), 0.65, 1.05),
		Sharpness:        clampF(p.Sharpness+j(-0.08, 0.05), 0.55, 1.05),
		BlurRadius:       clampF(p.BlurRadius+j(-0.30, 0.35), 0.3, 2.0),
		WBShift:          clampF(p.WBShift+j(-0.04, 0.04), -0.12, 0.14),
		Exposure:         clampF(p.Exposure+j(-0.04, 0.04), 0.88, 1.12),
		RotateDeg:        j(-1.6, 1.6),
		Vignette:         0.06,
		JPEGQuality:      88,
	}
}

// rotateFill approximates the pale border a slightly rotated phone photo
// leaves at the frame edge.
var rotateFill = color.RGBA{R: 245, G: 245, B: 245, A: 255}

// Degrade pushes a polished render toward casual phone-photo texture:
// slight rotation, flattened tone, softness, white balance drift, vignette,
// shadow-weighted sensor noise, and a JPEG round trip. Conservative on
// purpose; the content must stay recognizable.
func Degrade(img *image.RGBA, p DegradeParams, rng *rand.Rand) (*image.RGBA, error) {
	out := img

	if math.Abs(p.RotateDeg) > 0.01 {
		out = imaging.Rotate(out, p.RotateDeg, rotateFill)
	}

	out = imaging.AdjustContrast(out, p.Contrast)
	out = imaging.AdjustSaturation(out, p.Saturation)
	out = imaging.AdjustSharpness(out, p.Sharpness)
	if math.Abs(p.Exposure-1.0) > 1e-3 {
		out = imaging.AdjustBrightness(out, p.Exposure)
	}

	if p.BlurRadius > 0 {
		out = imaging.GaussianBlur(out, p.BlurRadius)
	} else {
		out = imaging.Clone(out)
	}

	applyWhiteBalance(out, p.WBShift)
	applyVignette(out, p.Vignette)
	applyNoise(out, p, rng)

	if p.JPEGQuality > 0 {
		return imaging.JPEGRoundTrip(out, p.JPEGQuality)
	}
	return out, nil
}

// applyWhiteBalance scales red up and blue down for warm shifts, the
// opposite for cool ones.
func applyWhiteBalance(img *image.RGBA, shift float64) {
	if shift == 0 {
		return
	}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = clampByte(float64(img.Pix[i]) * (1 + shift))
		img.Pix[i+2] = clampByte(float64(img.Pix[i+2]) * (1 - shift))
	}
}

func applyVignette(img *image.RGBA, strength float64) {
	if strength <= 1e-6 {
		return
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cx := float64(w-1) / 2.0
	cy := float64(h-1) / 2.0
	dx := math.Max(1.0, cx)
	dy := math.Max(1.0, cy)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			nx := (float64(x) - cx) / dx
			ny := (float64(y) - cy) / dy
			rr := math.Min(1.5, nx*nx+ny*ny)
			v := 1.0 - strength*math.Pow(rr, 1.15)
			if v < 0.78 {
				v = 0.78
			}
			if v >= 1.0 {
				continue
			}
			i := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			for c := 0; c < 3; c++ {
				img.Pix[i+c] = clampByte(float64(img.Pix[i+c]) * v)
			}
		}
	}
}

// applyNoise adds gaussian luma noise plus a small chroma component, both
// boosted in the shadows where phone sensors are noisiest.
func applyNoise(img *image.RGBA, p DegradeParams, rng *rand.Rand) {
	if p.NoiseStrength <= 0 && p.ChromaNoise <= 0 {
		return
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := img.PixOffset(x, y)
			r := float64(img.Pix[i]) / 255.0
			g := float64(img.Pix[i+1]) / 255.0
			b := float64(img.Pix[i+2]) / 255.0

			luma := 0.2126*r + 0.7152*g + 0.0722*b
			shadowWeight := 1.0 + p.NoiseShadowBoost*math.Pow(1.0-luma, 2.2)

			var lumaNoise float64
			if p.NoiseStrength > 0 {
				lumaNoise = rng.NormFloat64() * p.NoiseStrength * shadowWeight
			}
			ch := [3]float64{r, g, b}
			for c := 0; c < 3; c++ {
				v := ch[c] + lumaNoise
				if p.ChromaNoise > 0 {
					v += rng.NormFloat64() * p.ChromaNoise * shadowWeight
				}
				img.Pix[i+c] = clampByte(v * 255.0)
			}
		}
	}
}
