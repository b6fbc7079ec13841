package assets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"

	"restager/mask"
	"restager/matting"
)

func testParams() mask.Params {
	return mask.Params{
		CoreThreshold:         200,
		ProtectThreshold:      128,
		CoreFallbackThreshold: 96,
		DilatePx:              4,
		OpenPx:                2,
	}
}

// fakeSegmenter returns a centered square subject and counts calls.
type fakeSegmenter struct {
	calls int32
	fail  int32 // fail the first N calls
}

func (f *fakeSegmenter) Segment(ctx context.Context, imageBytes []byte, filename string) (*matting.Result, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= atomic.LoadInt32(&f.fail) {
		return nil, errors.New("segmentation backend down")
	}
	subject := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fg := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 16; y < 48; y++ {
		for x := 16; x < 48; x++ {
			subject.SetRGBA(x, y, color.RGBA{R: 180, G: 60, B: 40, A: 255})
			fg.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return &matting.Result{Subject: subject, Foreground: fg}, nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

func TestGet_DerivesBundle(t *testing.T) {
	cache := NewCache(&fakeSegmenter{}, testParams())
	bundle, err := cache.Get(context.Background(), 0, testImage())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(bundle.BasePNG) == 0 {
		t.Error("missing base PNG")
	}
	if len(bundle.EditMaskPNG) == 0 {
		t.Error("missing edit mask PNG")
	}
	// 32x32 subject in a 64x64 frame: dominance 0.5 on both axes.
	if bundle.InputRatio != 0.5 {
		t.Errorf("InputRatio = %v, want 0.5", bundle.InputRatio)
	}
	if bundle.Masks.Edit.GrayAt(32, 32).Y != 0 {
		t.Error("subject center should not be editable")
	}
	if bundle.Masks.Edit.GrayAt(1, 1).Y != 255 {
		t.Error("far corner should be editable")
	}
}

// shadowSegmenter adds a mid-confidence shadow sliver to the right of the
// subject, widening the raw foreground bbox past the core.
type shadowSegmenter struct{}

func (shadowSegmenter) Segment(ctx context.Context, imageBytes []byte, filename string) (*matting.Result, error) {
	subject := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fg := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 16; y < 48; y++ {
		for x := 16; x < 48; x++ {
			subject.SetRGBA(x, y, color.RGBA{R: 180, G: 60, B: 40, A: 255})
			fg.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for y := 30; y < 40; y++ {
		for x := 48; x < 63; x++ {
			fg.SetGray(x, y, color.Gray{Y: 150})
		}
	}
	return &matting.Result{Subject: subject, Foreground: fg}, nil
}

func TestGet_RatioExcludesLowConfidenceSlivers(t *testing.T) {
	cache := NewCache(shadowSegmenter{}, testParams())
	bundle, err := cache.Get(context.Background(), 0, testImage())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// The sliver stretches the raw foreground bbox to 47px (0.734), but the
	// baseline must come from the core, which cuts at the strict threshold.
	if bundle.InputRatio != 0.5 {
		t.Errorf("InputRatio = %v, want 0.5", bundle.InputRatio)
	}
}

func TestGet_SingleDerivationUnderConcurrency(t *testing.T) {
	seg := &fakeSegmenter{}
	cache := NewCache(seg, testParams())
	img := testImage()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(context.Background(), 3, img); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&seg.calls); n != 1 {
		t.Errorf("segmentation calls = %d, want 1", n)
	}
}

func TestGet_DistinctIndexesDeriveSeparately(t *testing.T) {
	seg := &fakeSegmenter{}
	cache := NewCache(seg, testParams())
	img := testImage()

	for idx := 0; idx < 3; idx++ {
		if _, err := cache.Get(context.Background(), idx, img); err != nil {
			t.Fatalf("Get(%d): %v", idx, err)
		}
	}
	if n := atomic.LoadInt32(&seg.calls); n != 3 {
		t.Errorf("segmentation calls = %d, want 3", n)
	}
}

func TestGet_FailureNotCached(t *testing.T) {
	seg := &fakeSegmenter{fail: 1}
	cache := NewCache(seg, testParams())
	img := testImage()

	if _, err := cache.Get(context.Background(), 0, img); err == nil {
		t.Fatal("first Get should fail")
	}
	bundle, err := cache.Get(context.Background(), 0, img)
	if err != nil {
		t.Fatalf("retry Get: %v", err)
	}
	if bundle == nil {
		t.Fatal("retry should return a bundle")
	}
}
