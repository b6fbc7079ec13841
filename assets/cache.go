// Package assets derives and caches the per-image inputs every edit job
// needs: the encoded base image, the segmentation masks, and the subject's
// input dominance ratio. Jobs for different intensity levels share one
// image, so the derivation runs once per image per run.
package assets

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"restager/imaging"
	"restager/mask"
	"restager/matting"
)

// Segmenter is the slice of the matting client the cache needs.
type Segmenter interface {
	Segment(ctx context.Context, imageBytes []byte, filename string) (*matting.Result, error)
}

// Bundle holds everything derived from one source image.
type Bundle struct {
	// BasePNG is the source image re-encoded as PNG, the exact bytes sent
	// to the painter.
	BasePNG []byte
	// Subject is the segmented cut-out with transparency outside it.
	Subject *image.RGBA
	// Foreground is the raw segmentation confidence mask.
	Foreground *image.Gray
	// Masks are the core/protect/edit masks derived from Foreground.
	Masks mask.Set
	// EditMaskPNG is Masks.Edit encoded for the painter request.
	EditMaskPNG []byte
	// InputRatio is the core mask's bounding-box dominance in the source.
	// The core is used rather than the raw foreground so soft shadow or
	// reflection slivers do not inflate the baseline.
	InputRatio float64
}

// Cache derives bundles on demand and memoizes successes per image index.
// Failures are not cached: a flaky segmentation call on one level's job
// should not doom the sibling level.
type Cache struct {
	segmenter Segmenter
	params    mask.Params
	group     singleflight.Group

	mu      sync.Mutex
	bundles map[int]*Bundle
}

// NewCache returns a cache deriving masks with the given parameters.
func NewCache(segmenter Segmenter, params mask.Params) *Cache {
	return &Cache{
		segmenter: segmenter,
		params:    params,
		bundles:   make(map[int]*Bundle),
	}
}

// Get returns the bundle for image index, deriving it on first use.
// Concurrent callers for the same index share a single derivation.
func (c *Cache) Get(ctx context.Context, index int, img image.Image) (*Bundle, error) {
	c.mu.Lock()
	if bundle, ok := c.bundles[index]; ok {
		c.mu.Unlock()
		return bundle, nil
	}
	c.mu.Unlock()

	key := strconv.Itoa(index)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		bundle, err := c.derive(ctx, index, img)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.bundles[index] = bundle
		c.mu.Unlock()
		return bundle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

func (c *Cache) derive(ctx context.Context, index int, img image.Image) (*Bundle, error) {
	basePNG, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("assets: encode base image #%d: %w", index+1, err)
	}

	result, err := c.segmenter.Segment(ctx, basePNG, fmt.Sprintf("src_%02d.png", index+1))
	if err != nil {
		return nil, fmt.Errorf("assets: segmentation failed for image #%d: %w", index+1, err)
	}

	masks, err := mask.Derive(result.Foreground, c.params)
	if err != nil {
		return nil, fmt.Errorf("assets: mask derivation failed for image #%d: %w", index+1, err)
	}

	editPNG, err := mask.EncodePNG(masks.Edit)
	if err != nil {
		return nil, fmt.Errorf("assets: encode edit mask #%d: %w", index+1, err)
	}

	bounds := result.Foreground.Bounds()
	ratio := 0.0
	if bbox, ok := mask.BBox(masks.Core, 128); ok {
		ratio = mask.DominanceRatio(bbox, bounds.Dx(), bounds.Dy())
	}

	return &Bundle{
		BasePNG:     basePNG,
		Subject:     result.Subject,
		Foreground:  result.Foreground,
		Masks:       masks,
		EditMaskPNG: editPNG,
		InputRatio:  ratio,
	}, nil
}
