// Package regen drives the generative edit for one image at one intensity
// level: it calls the painter, restores subject detail, and enforces the
// subject-scale gate with strength-reducing retries.
package regen

import "restager/painter"

// Intensity levels.
const (
	LevelMedium     = "medium"
	LevelAggressive = "aggressive"
)

// LevelParams are the painter settings for one level.
type LevelParams struct {
	GuidanceScale  float64
	InferenceSteps int
	PromptStrength float64
}

// MaskEditParams returns the background-edit settings for a level. Unknown
// levels get the medium settings.
func MaskEditParams(level string) LevelParams {
	if level == LevelAggressive {
		return LevelParams{GuidanceScale: 6.3, InferenceSteps: 34, PromptStrength: 0.70}
	}
	return LevelParams{GuidanceScale: 6.2, InferenceSteps: 30, PromptStrength: 0.58}
}

// FullImageParams returns the full-frame rewrite settings for a level.
// The full-frame variant leans harder on prompt strength because the
// subject is restored by paste-back afterwards.
func FullImageParams(level string) LevelParams {
	if level == LevelAggressive {
		return LevelParams{GuidanceScale: 6.4, InferenceSteps: 30, PromptStrength: 0.80}
	}
	return LevelParams{GuidanceScale: 6.2, InferenceSteps: 26, PromptStrength: 0.72}
}

// Scale-gate retry schedule: each retry lowers prompt strength by
// gateStrengthStep down to gateStrengthFloor; the last resort re-renders at
// gateFallbackStrength regardless.
const (
	gateStrengthStep     = 0.12
	gateStrengthFloor    = 0.35
	gateFallbackStrength = 0.58
)

func (p LevelParams) editParams(prompt, negative string, strength float64, maskPNG []byte) painter.EditParams {
	return painter.EditParams{
		Prompt:         prompt,
		NegativePrompt: negative,
		GuidanceScale:  p.GuidanceScale,
		InferenceSteps: p.InferenceSteps,
		PromptStrength: strength,
		OutputFormat:   "png",
		Mask:           maskPNG,
	}
}
