package prompt

import (
	"fmt"
	"math/rand"
	"strings"
)

// Category groups products whose plausible scenes differ. Alcohol next to a
// bathroom sink reads wrong; a serum on a bar cart does too.
type Category string

const (
	CategoryAlcohol     Category = "alcohol"
	CategoryBeauty      Category = "beauty"
	CategoryElectronics Category = "electronics"
	CategoryFood        Category = "food"
	CategoryGeneric     Category = "generic"
)

// Presets select the overall look of the rewrite.
const (
	PresetCandid = "ugc"
	PresetGlossy = "glossy"
)

var categoryKeywords = map[Category][]string{
	CategoryAlcohol: {
		"wine", "beer", "whiskey", "whisky", "vodka", "champagne", "cocktail",
		"liquor", "sake", "gin", "rum",
	},
	CategoryBeauty: {
		"serum", "lotion", "sunscreen", "lipstick", "foundation", "skincare",
		"perfume", "cleanser", "makeup", "moisturizer", "face mask", "mascara",
	},
	CategoryElectronics: {
		"laptop", "keyboard", "mouse", "headphone", "earbud", "camera", "lens",
		"phone", "charger", "router", "tablet", "speaker", "monitor",
	},
	CategoryFood: {
		"snack", "drink", "coffee", "tea", "yogurt", "biscuit", "cookie",
		"chocolate", "noodle", "instant", "juice", "cereal", "candy",
	},
}

// InferCategory picks a product category from the listing title and bullet
// points by keyword match. More specific categories win over generic.
func InferCategory(title string, bullets []string) Category {
	text := strings.ToLower(title + " " + strings.Join(bullets, " "))
	for _, category := range []Category{CategoryAlcohol, CategoryBeauty, CategoryElectronics, CategoryFood} {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(text, keyword) {
				return category
			}
		}
	}
	return CategoryGeneric
}

// Builder assembles edit prompts from a catalog.
type Builder struct {
	catalog *Catalog
	scenes  []string
}

// NewBuilder derives the run's scene subset from the category pool using
// the provided RNG, so one run reuses a consistent set of scenes while
// rotating them per image.
func NewBuilder(catalog *Catalog, category Category, rng *rand.Rand) *Builder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	pool := catalog.ScenePools[category]
	if len(pool) == 0 {
		pool = catalog.ScenePools[CategoryGeneric]
	}
	k := 3
	if len(pool) < k {
		k = len(pool)
	}
	scenes := make([]string, 0, k)
	for _, i := range rng.Perm(len(pool))[:k] {
		scenes = append(scenes, pool[i])
	}
	return &Builder{catalog: catalog, scenes: scenes}
}

// Request describes one prompt to build.
type Request struct {
	// StyleOverride, when set, is used verbatim and everything else is
	// ignored.
	StyleOverride string
	// Preset is PresetCandid or PresetGlossy. Empty means candid.
	Preset string
	// MaskEdit selects the background-only template over the full-frame one.
	MaskEdit bool
	// Level names the change intensity ("medium", "aggressive").
	Level string
	// ImageIndex rotates the scene across images of one run.
	ImageIndex int
}

// Build returns the positive prompt for the request.
func (b *Builder) Build(req Request) string {
	if override := strings.TrimSpace(req.StyleOverride); override != "" {
		return override
	}

	preset := req.Preset
	if preset == "" {
		preset = PresetCandid
	}
	if preset == PresetGlossy {
		if req.MaskEdit {
			return b.catalog.GlossyMaskEditPrompt
		}
		return b.catalog.GlossyFullPrompt
	}

	scene := b.scenes[req.ImageIndex%len(b.scenes)]
	hint := b.catalog.StrengthHints[req.Level]
	if hint == "" {
		hint = b.catalog.StrengthHints["medium"]
	}

	if req.MaskEdit {
		return fmt.Sprintf(b.catalog.MaskEditTemplate, scene, hint)
	}
	return fmt.Sprintf(b.catalog.FullImageTemplate, scene, hint)
}

// Negative returns the negative prompt for the preset. Glossy renders send
// none and rely on the painter's default.
func (b *Builder) Negative(preset string) string {
	if preset == PresetGlossy {
		return ""
	}
	return b.catalog.CandidNegative
}

// Scenes exposes the run's chosen scene subset, mainly for the manifest.
func (b *Builder) Scenes() []string {
	return b.scenes
}
