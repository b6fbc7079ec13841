package regen

import (
	"context"
	"fmt"
	"image"
	"math/rand"

	"restager/assets"
	"restager/imaging"
	"restager/mask"
	"restager/restyle"
)

// Paste-back harmonization settings, shared by every full-frame job.
const (
	featherRadius   = 3.0
	despillStrength = 0.25
	matchStrength   = 0.55
	edgeBlendPower  = 1.6
)

// FullImageJob is a full-frame rewrite with subject paste-back.
type FullImageJob struct {
	Job
	// Degrade applies capture-texture degradation before paste-back.
	// Nil skips it (glossy preset).
	Degrade *restyle.DegradeParams
	// RNG drives the degradation noise; required when Degrade is set.
	RNG *rand.Rand
	// PasteBack restores the original subject pixels over the render.
	PasteBack bool
}

// RegenerateFullImage rewrites the whole frame, degrades it toward casual
// capture texture, and pastes the original subject back for pixel fidelity.
// The scale gate does not apply here: paste-back pins the subject exactly.
func (e *Engine) RegenerateFullImage(ctx context.Context, job FullImageJob) (*Result, error) {
	params := FullImageParams(job.Level)
	result := &Result{Outcome: OutcomeAccepted, PainterCalls: 1}

	out, err := e.painter.Edit(ctx, job.Bundle.BasePNG, params.editParams(job.Prompt, job.NegativePrompt, params.PromptStrength, nil))
	if err != nil {
		return nil, err
	}
	decoded, err := imaging.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("regen: decode painter output: %w", err)
	}
	img := imaging.ToRGBA(decoded)

	if job.Degrade != nil {
		img, err = restyle.Degrade(img, *job.Degrade, job.RNG)
		if err != nil {
			return nil, fmt.Errorf("regen: degrade: %w", err)
		}
	}

	if job.PasteBack && job.Bundle.Subject != nil {
		img = e.pasteBack(img, job.Bundle)
	}

	result.Image = img
	return result, nil
}

// pasteBack composites the original subject over the render: feathered
// edges, despilled fringe, tone-matched rim, and combined contact plus drop
// shadows so the subject reads as grounded rather than pasted.
func (e *Engine) pasteBack(background *image.RGBA, bundle *assets.Bundle) *image.RGBA {
	bounds := background.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	fg := bundle.Subject
	alpha := bundle.Foreground
	if fg.Bounds().Dx() != w || fg.Bounds().Dy() != h {
		fg = imaging.Resize(fg, w, h)
		alpha = imaging.ResizeGray(alpha, w, h)
	}

	feathered := restyle.FeatherAlpha(alpha, featherRadius)
	fg = restyle.Despill(fg, feathered, despillStrength)

	// The hard contact shadow grounds the subject; the softer offset drop
	// shadow fills in around it. Combined by per-pixel maximum darkness.
	contact := restyle.ContactShadow(alpha, restyle.DefaultContactShadowParams())
	drop := restyle.DropShadow(alpha, restyle.DefaultDropShadowParams(w, h))
	grounded := restyle.ApplyShadow(background, restyle.CombineShadows(drop, contact))

	// Tone-match the subject rim to its new surroundings; fully opaque
	// interior pixels keep their original bytes.
	if bbox, ok := mask.BBox(alpha, 128); ok {
		cropFG := cropRGBA(fg, bbox)
		cropAlpha := cropGray(feathered, bbox)
		matched := restyle.MatchColors(cropFG, cropAlpha, grounded, bbox.Min, matchStrength)
		blended := restyle.EdgeOnlyBlend(cropFG, matched, cropAlpha, edgeBlendPower)
		pasteRGBA(fg, blended, bbox)
	}

	return restyle.PasteForegroundExact(grounded, fg, feathered)
}

// cropRGBA copies a rectangle into a zero-origin image.
func cropRGBA(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		si := img.PixOffset(rect.Min.X, rect.Min.Y+y)
		di := out.PixOffset(0, y)
		copy(out.Pix[di:di+rect.Dx()*4], img.Pix[si:si+rect.Dx()*4])
	}
	return out
}

func cropGray(m *image.Gray, rect image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		si := m.PixOffset(rect.Min.X, rect.Min.Y+y)
		di := out.PixOffset(0, y)
		copy(out.Pix[di:di+rect.Dx()], m.Pix[si:si+rect.Dx()])
	}
	return out
}

// pasteRGBA writes a zero-origin patch back into dst at rect.
func pasteRGBA(dst *image.RGBA, patch *image.RGBA, rect image.Rectangle) {
	for y := 0; y < rect.Dy(); y++ {
		si := patch.PixOffset(0, y)
		di := dst.PixOffset(rect.Min.X, rect.Min.Y+y)
		copy(dst.Pix[di:di+rect.Dx()*4], patch.Pix[si:si+rect.Dx()*4])
	}
}
