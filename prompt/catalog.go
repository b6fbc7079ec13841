// Package prompt builds the text instructions sent with each edit request.
// Prompts are assembled from a catalog of templates and scene pools; the
// catalog ships with built-in defaults and can be overridden from a YAML
// file for copy iteration without a rebuild.
package prompt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog holds every template the builder draws from. Fields left empty in
// a YAML override keep their built-in values.
type Catalog struct {
	// MaskEditTemplate rewrites only the background around a protected
	// subject. Placeholders: scene, strength hint.
	MaskEditTemplate string `yaml:"mask_edit_template"`
	// FullImageTemplate rewrites the whole frame. Placeholders: scene,
	// strength hint.
	FullImageTemplate string `yaml:"full_image_template"`
	// GlossyMaskEditPrompt is the polished backdrop variant; no placeholders.
	GlossyMaskEditPrompt string `yaml:"glossy_mask_edit_prompt"`
	// GlossyFullPrompt is the polished full-frame variant; no placeholders.
	GlossyFullPrompt string `yaml:"glossy_full_prompt"`
	// CandidNegative suppresses the studio look in candid renders.
	CandidNegative string `yaml:"candid_negative"`
	// StrengthHints maps a level name to its change-intensity phrase.
	StrengthHints map[string]string `yaml:"strength_hints"`
	// ScenePools maps a product category to its plausible everyday scenes.
	ScenePools map[Category][]string `yaml:"scene_pools"`
}

// DefaultCatalog returns the built-in templates.
func DefaultCatalog() *Catalog {
	return &Catalog{
		MaskEditTemplate: "Rewrite only the background of this image: change the backdrop and props, " +
			"do not alter the subject itself (keep its shape, size ratio, printed text, and logos). " +
			"Replace the background with a more lived-in, not overly tidy scene (%s), %s. " +
			"Keep the camera angle and perspective unchanged, keep the light direction consistent, " +
			"add natural contact shadows, avoid any floating or pasted-on look. " +
			"Do not add large objects covering the subject; no watermark; no overlaid text, subtitles, or stickers. " +
			"The subject must not grow larger in frame; keep it the same size or slightly smaller.",
		FullImageTemplate: "Rewrite this image in a candid, lived-in style: a quick phone snapshot in an " +
			"everyday scene (%s), %s. No studio lighting, no commercial retouching, no over-sharpening, no HDR. " +
			"Keep the core subject and its meaning, but change the background, color grading, and lighting " +
			"so it looks like the same person shot it somewhere else. " +
			"No watermark; no overlaid text, subtitles, stickers, title bars, or price tags " +
			"(text printed on the subject's own packaging may stay). " +
			"The subject must not be larger in frame than in the original; keep it the same size or slightly " +
			"smaller, never a close-up crop. " +
			"Obey real-world physics: correct perspective, consistent lighting, natural contact shadows, " +
			"no floating, clipping, or pasted-on artifacts.",
		GlossyMaskEditPrompt: "Rewrite only the background of this image: change the backdrop and props, " +
			"do not alter the subject itself (keep its shape, size ratio, printed text, and logos). " +
			"Make the result clean and polished yet still believable: consistent light direction, " +
			"natural contact shadows, correct perspective, no floating or pasted-on look. " +
			"No watermark; no overlaid text, subtitles, or stickers. " +
			"The subject must not grow larger in frame.",
		GlossyFullPrompt: "Recreate this as a fresh social-post image. Keep the core subject and its meaning, " +
			"but change composition, background, color grading, lighting, and texture so it reads as a new post. " +
			"No watermark, no extra text.",
		CandidNegative: "studio lighting, commercial, ultra polished, beauty retouch, DSLR, bokeh, " +
			"CGI, 3d render, perfect skin, over-sharpened, over-saturated, HDR, " +
			"watermark, text, caption, logo, subtitles, typography, sticker text, price tag, " +
			"collage, cutout, sticker, pasted, floating object, oversized subject, wrong scale, " +
			"wrong shadow, bad shadow, wrong perspective, floating, sticker-like edges",
		StrengthHints: map[string]string{
			"medium":     "with moderate changes",
			"aggressive": "with more pronounced changes",
		},
		ScenePools: map[Category][]string{
			CategoryAlcohol: {
				"dining table at home",
				"living room coffee table",
				"kitchen counter while prepping a meal",
				"corner of a dinner table at a friend's place",
				"home bar cart or sideboard",
			},
			CategoryBeauty: {
				"makeup vanity",
				"bathroom sink counter",
				"desk by a window in natural light",
				"bedroom nightstand",
				"desk corner with everyday clutter",
			},
			CategoryElectronics: {
				"desk",
				"desk by a window in natural light",
				"cafe table by the window",
				"living room shelf next to the TV stand",
				"bedroom nightstand",
			},
			CategoryFood: {
				"kitchen counter",
				"dining table",
				"desk by a window in natural light",
				"office pantry counter",
				"living room coffee table",
			},
			CategoryGeneric: {
				"desk by a window in natural light",
				"desk",
				"living room coffee table",
				"kitchen counter",
				"bedroom nightstand",
			},
		},
	}
}

// LoadCatalog reads a YAML override and merges it over the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read catalog: %w", err)
	}
	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("prompt: parse catalog: %w", err)
	}

	catalog := DefaultCatalog()
	if override.MaskEditTemplate != "" {
		catalog.MaskEditTemplate = override.MaskEditTemplate
	}
	if override.FullImageTemplate != "" {
		catalog.FullImageTemplate = override.FullImageTemplate
	}
	if override.GlossyMaskEditPrompt != "" {
		catalog.GlossyMaskEditPrompt = override.GlossyMaskEditPrompt
	}
	if override.GlossyFullPrompt != "" {
		catalog.GlossyFullPrompt = override.GlossyFullPrompt
	}
	if override.CandidNegative != "" {
		catalog.CandidNegative = override.CandidNegative
	}
	for level, hint := range override.StrengthHints {
		catalog.StrengthHints[level] = hint
	}
	for category, pool := range override.ScenePools {
		if len(pool) > 0 {
			catalog.ScenePools[category] = pool
		}
	}
	return catalog, nil
}
