package regen

import (
	"context"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"

	"restager/assets"
	"restager/imaging"
	"restager/logging"
	"restager/mask"
	"restager/matting"
	"restager/painter"
	"restager/restyle"
)

// Painter is the slice of the edit client the engine needs.
type Painter interface {
	Edit(ctx context.Context, imageBytes []byte, params painter.EditParams) ([]byte, error)
}

// Outcome reports how a regeneration concluded.
type Outcome string

const (
	// OutcomeAccepted means the render passed (or skipped) the scale gate.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeDegraded means every retry kept drifting and the fallback
	// render was accepted with a warning.
	OutcomeDegraded Outcome = "degraded"
)

// Result is a finished regeneration.
type Result struct {
	Image   *image.RGBA
	Outcome Outcome
	// Warning is set for degraded results, in the form
	// scale_gate_fallback(in=..., r1=..., r2=...) where r1 and r2 are the
	// measured ratios of the first render and the retry.
	Warning string
	// PainterCalls counts edit requests made for this job.
	PainterCalls int
}

// Job is one image at one level.
type Job struct {
	Index          int
	Level          string
	Prompt         string
	NegativePrompt string
	Bundle         *assets.Bundle
	// Source is the original image, used for detail recovery.
	Source image.Image
}

// Options tune the engine.
type Options struct {
	// MaxRatioDelta is the allowed drift of the subject's dominance ratio.
	// Zero disables the gate.
	MaxRatioDelta float64
	// GateAllLevels extends the scale gate to every level instead of only
	// aggressive renders.
	GateAllLevels bool
	// DetailTransfer enables high-frequency detail recovery.
	DetailTransfer bool
	// Detail tunes the recovery blend.
	Detail restyle.DetailParams
	// Masks re-derives the core from gate measurements so the output ratio
	// is computed over the same region as the input baseline. Zero means
	// mask.DefaultParams.
	Masks mask.Params
}

// Engine regenerates backgrounds with the mask-edit flow.
type Engine struct {
	painter   Painter
	segmenter assets.Segmenter
	log       *logging.Logger
	opts      Options
}

// NewEngine builds a mask-edit engine. The segmenter is only used to
// re-measure the subject after aggressive renders; it may be the same
// client the asset cache uses.
func NewEngine(p Painter, segmenter assets.Segmenter, log *logging.Logger, opts Options) *Engine {
	if opts.Masks == (mask.Params{}) {
		opts.Masks = mask.DefaultParams()
	}
	return &Engine{painter: p, segmenter: segmenter, log: log, opts: opts}
}

// Regenerate renders the job's background edit and applies the scale gate.
// The returned error means no usable image was produced; callers fall back
// to the source image.
func (e *Engine) Regenerate(ctx context.Context, job Job) (*Result, error) {
	params := MaskEditParams(job.Level)
	result := &Result{Outcome: OutcomeAccepted}

	render := func(strength float64) (*image.RGBA, error) {
		result.PainterCalls++
		out, err := e.painter.Edit(ctx, job.Bundle.BasePNG, params.editParams(job.Prompt, job.NegativePrompt, strength, job.Bundle.EditMaskPNG))
		if err != nil {
			return nil, err
		}
		decoded, err := imaging.Decode(out)
		if err != nil {
			return nil, fmt.Errorf("regen: decode painter output: %w", err)
		}
		img := imaging.ToRGBA(decoded)
		if e.opts.DetailTransfer && e.opts.Detail.Alpha > 0 {
			img = restyle.TransferDetails(job.Source, img, job.Bundle.Masks.Core, e.opts.Detail)
		}
		return img, nil
	}

	img, err := render(params.PromptStrength)
	if err != nil {
		return nil, err
	}
	result.Image = img

	if !e.gateApplies(job) {
		return result, nil
	}

	inputRatio := job.Bundle.InputRatio
	outRatio, ok := e.measureRatio(ctx, img, job.Index)
	if !ok || math.Abs(outRatio-inputRatio) <= e.opts.MaxRatioDelta {
		return result, nil
	}

	// First retry: pull prompt strength down.
	retryStrength := math.Max(gateStrengthFloor, params.PromptStrength-gateStrengthStep)
	e.log.Warn("subject scale drifted, retrying at lower strength",
		zap.Int("image", job.Index+1),
		zap.String("level", job.Level),
		zap.Float64("input_ratio", inputRatio),
		zap.Float64("output_ratio", outRatio),
		zap.Float64("retry_strength", retryStrength),
	)
	retry, err := render(retryStrength)
	if err != nil {
		return nil, err
	}
	retryRatio, ok := e.measureRatio(ctx, retry, job.Index)
	if !ok || math.Abs(retryRatio-inputRatio) <= e.opts.MaxRatioDelta {
		result.Image = retry
		return result, nil
	}

	// Last resort: re-render at the fallback strength and accept degraded.
	fallback, err := render(gateFallbackStrength)
	if err != nil {
		return nil, err
	}
	result.Image = fallback
	result.Outcome = OutcomeDegraded
	result.Warning = fmt.Sprintf("scale_gate_fallback(in=%.3f, r1=%.3f, r2=%.3f)", inputRatio, outRatio, retryRatio)
	e.log.Warn("scale gate exhausted, accepting fallback render",
		zap.Int("image", job.Index+1),
		zap.String("level", job.Level),
		zap.String("warning", result.Warning),
	)
	return result, nil
}

func (e *Engine) gateApplies(job Job) bool {
	if e.opts.MaxRatioDelta <= 0 || job.Bundle.InputRatio <= 0 {
		return false
	}
	return e.opts.GateAllLevels || job.Level == LevelAggressive
}

// measureRatio segments the rendered image, derives its core mask with the
// same parameters as the input baseline, and returns the core's dominance
// ratio. Measurement failures report ok=false so the gate stays best-effort.
func (e *Engine) measureRatio(ctx context.Context, img *image.RGBA, index int) (float64, bool) {
	png, err := imaging.EncodePNG(img)
	if err != nil {
		return 0, false
	}
	seg, err := e.segmenter.Segment(ctx, png, fmt.Sprintf("out_%02d.png", index+1))
	if err != nil {
		e.log.Warn("output segmentation failed, skipping scale gate",
			zap.Int("image", index+1), zap.Error(err))
		return 0, false
	}
	derived, err := mask.Derive(seg.Foreground, e.opts.Masks)
	if err != nil {
		e.log.Warn("output mask derivation failed, skipping scale gate",
			zap.Int("image", index+1), zap.Error(err))
		return 0, false
	}
	bounds := seg.Foreground.Bounds()
	bbox, ok := mask.BBox(derived.Core, 128)
	if !ok {
		return 0, false
	}
	return mask.DominanceRatio(bbox, bounds.Dx(), bounds.Dy()), true
}

var _ assets.Segmenter = (*matting.Client)(nil)
