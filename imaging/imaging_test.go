package imaging

import (
	"image"
	"image/color"
	"testing"
)

// checkerboard returns a w x h RGBA image with a hard vertical edge at x=w/2:
// left half dark, right half bright.
func halfAndHalf(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(40)
			if x >= w/2 {
				v = 220
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode(nil); err != ErrEmptyImage {
		t.Errorf("Decode(nil) = %v, want ErrEmptyImage", err)
	}
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Decode(garbage) should fail")
	}
}

func TestEncodeDecode_PNGRoundTrip(t *testing.T) {
	img := halfAndHalf(16, 8)
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rgba := ToRGBA(back)
	if rgba.Bounds() != img.Bounds() {
		t.Errorf("bounds changed: %v -> %v", img.Bounds(), rgba.Bounds())
	}
	for i := range img.Pix {
		if img.Pix[i] != rgba.Pix[i] {
			t.Fatalf("pixel %d changed after lossless round trip", i)
		}
	}
}

func TestJPEGRoundTrip_PreservesDimensions(t *testing.T) {
	img := halfAndHalf(32, 24)
	out, err := JPEGRoundTrip(img, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("JPEGRoundTrip: %v", err)
	}
	if out.Bounds() != img.Bounds() {
		t.Errorf("bounds changed: %v -> %v", img.Bounds(), out.Bounds())
	}
}

func TestGaussianBlur_SoftensEdge(t *testing.T) {
	img := halfAndHalf(32, 8)
	out := GaussianBlur(img, 2.0)

	// The hard step at the center should now be an intermediate value.
	mid := out.RGBAAt(16, 4)
	if mid.R <= 40 || mid.R >= 220 {
		t.Errorf("edge not softened, center value %d", mid.R)
	}
	// Far from the edge the image should be essentially unchanged.
	left := out.RGBAAt(1, 4)
	if left.R < 38 || left.R > 42 {
		t.Errorf("flat region disturbed: %d", left.R)
	}
}

func TestGaussianBlur_ZeroRadiusIsIdentity(t *testing.T) {
	img := halfAndHalf(8, 8)
	out := GaussianBlur(img, 0)
	for i := range img.Pix {
		if img.Pix[i] != out.Pix[i] {
			t.Fatal("zero-radius blur modified pixels")
		}
	}
}

func TestEnhance_FactorOneIsIdentity(t *testing.T) {
	img := halfAndHalf(16, 16)
	for name, fn := range map[string]func(*image.RGBA, float64) *image.RGBA{
		"contrast":   AdjustContrast,
		"saturation": AdjustSaturation,
		"brightness": AdjustBrightness,
		"sharpness":  AdjustSharpness,
	} {
		out := fn(img, 1.0)
		for i := range img.Pix {
			if img.Pix[i] != out.Pix[i] {
				t.Errorf("%s(1.0) modified pixels", name)
				break
			}
		}
	}
}

func TestAdjustContrast_ReducesRange(t *testing.T) {
	img := halfAndHalf(16, 16)
	out := AdjustContrast(img, 0.5)
	dark := out.RGBAAt(1, 1).R
	bright := out.RGBAAt(14, 1).R
	if int(bright)-int(dark) >= 180 {
		t.Errorf("contrast not reduced: dark=%d bright=%d", dark, bright)
	}
	if dark <= 40 {
		t.Errorf("dark side should move toward the mean, got %d", dark)
	}
}

func TestAdjustBrightness_Darkens(t *testing.T) {
	img := halfAndHalf(8, 8)
	out := AdjustBrightness(img, 0.5)
	if got := out.RGBAAt(6, 4).R; got > 115 || got < 105 {
		t.Errorf("brightness 0.5 of 220 = %d, want ~110", got)
	}
}

func TestRotate_KeepsDimensionsAndFills(t *testing.T) {
	img := halfAndHalf(40, 30)
	out := Rotate(img, 5.0, color.RGBA{245, 245, 245, 255})
	if out.Bounds() != img.Bounds() {
		t.Errorf("bounds changed: %v", out.Bounds())
	}
	// A corner swept out by the rotation should hold the fill color.
	corner := out.RGBAAt(0, 0)
	if corner.R != 245 {
		t.Errorf("corner not filled: %+v", corner)
	}
}

func TestRotate_TinyAngleIsIdentity(t *testing.T) {
	img := halfAndHalf(8, 8)
	out := Rotate(img, 0.001, color.White)
	for i := range img.Pix {
		if img.Pix[i] != out.Pix[i] {
			t.Fatal("sub-threshold rotation modified pixels")
		}
	}
}

func TestResize(t *testing.T) {
	img := halfAndHalf(32, 16)
	out := Resize(img, 16, 8)
	if out.Bounds().Dx() != 16 || out.Bounds().Dy() != 8 {
		t.Errorf("bad size %v", out.Bounds())
	}
	clamped := Resize(img, 0, 8)
	if clamped.Bounds().Dx() != 1 {
		t.Errorf("zero width should clamp to 1, got %d", clamped.Bounds().Dx())
	}
}
