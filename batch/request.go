// Package batch orchestrates a restaging run: it fans the image x level
// job grid out over a bounded worker pool, collects outputs and failures,
// and writes the run manifest. A failed job never fails the run; its slot
// falls back to the source image.
package batch

import (
	"errors"
	"image"
	"strings"
)

// ErrNoImages rejects a run with nothing to process.
var ErrNoImages = errors.New("batch: request contains no images")

// Levels processed when the request names none.
var defaultLevels = []string{"medium", "aggressive"}

// Request describes one restaging run.
type Request struct {
	// Images are the source photos, in output order.
	Images []image.Image
	// Title and Bullets describe the product for scene selection.
	Title   string
	Bullets []string
	// StyleOverride replaces the generated prompt verbatim when set.
	StyleOverride string
	// Preset is "ugc" (candid, default) or "glossy".
	Preset string
	// Levels selects the intensity variants; unknown names are dropped and
	// an empty result falls back to medium+aggressive.
	Levels []string
	// PasteBack keeps pixel fidelity in the full-frame engine. Ignored by
	// the mask-edit engine, which protects the subject by construction.
	PasteBack bool
}

// Normalize validates the request and fills defaults in place.
func (r *Request) Normalize() error {
	if len(r.Images) == 0 {
		return ErrNoImages
	}

	levels := make([]string, 0, len(r.Levels))
	for _, level := range r.Levels {
		level = strings.ToLower(strings.TrimSpace(level))
		if level == "medium" || level == "aggressive" {
			levels = append(levels, level)
		}
	}
	if len(levels) == 0 {
		levels = append(levels, defaultLevels...)
	}
	r.Levels = levels

	r.Preset = strings.ToLower(strings.TrimSpace(r.Preset))
	if r.Preset == "" {
		r.Preset = "ugc"
	}
	return nil
}
