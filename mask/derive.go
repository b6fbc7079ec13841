package mask

import (
	"image"
)

// Params controls how the derived masks are cut from the foreground
// confidence map.
type Params struct {
	CoreThreshold         uint8 // strict interior cutoff
	ProtectThreshold      uint8 // looser cutoff for the protected region
	CoreFallbackThreshold uint8 // used when opening empties the core
	DilatePx              int   // protect margin
	OpenPx                int   // opening window applied to the core
}

// DefaultParams matches the pipeline's configuration defaults.
func DefaultParams() Params {
	return Params{
		CoreThreshold:         200,
		ProtectThreshold:      128,
		CoreFallbackThreshold: 96,
		DilatePx:              8,
		OpenPx:                2,
	}
}

// Set holds the three derived masks over the same grid as the foreground.
// Invariant: every core pixel is a protect pixel, and Edit is the exact
// complement of Protect.
type Set struct {
	Core    *image.Gray // strict subject interior (255 = subject)
	Protect *image.Gray // subject plus margin (255 = protected)
	Edit    *image.Gray // editable background (255 = editable)
}

// Derive turns a foreground confidence map into core, protect, and edit
// masks.
//
// The core is thresholded strictly and then opened to drop thin artifacts.
// If the opening leaves nothing while the foreground itself is non-empty,
// the core falls back to a plain lower-threshold cut — a non-empty
// foreground never produces an empty core. The protect mask is the looser
// threshold unioned with the core and dilated by the margin; the edit mask
// is its complement.
func Derive(foreground *image.Gray, p Params) (Set, error) {
	if IsEmpty(foreground, p.ProtectThreshold) {
		return Set{}, ErrEmptyForeground
	}

	core := Open(Threshold(foreground, p.CoreThreshold), p.OpenPx)
	if IsEmpty(core, 128) {
		core = Threshold(foreground, p.CoreFallbackThreshold)
	}

	protect, err := Union(Threshold(foreground, p.ProtectThreshold), core)
	if err != nil {
		return Set{}, err
	}
	protect = Dilate(protect, p.DilatePx)

	return Set{
		Core:    core,
		Protect: protect,
		Edit:    Invert(protect),
	}, nil
}
