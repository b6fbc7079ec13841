package prompt

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		bullets []string
		want    Category
	}{
		{"whiskey bottle", "Single Malt Whiskey 12yr", nil, CategoryAlcohol},
		{"serum in bullets", "Daily Glow Kit", []string{"vitamin C serum", "brightening"}, CategoryBeauty},
		{"mechanical keyboard", "RGB Mechanical Keyboard 87 keys", nil, CategoryElectronics},
		{"instant coffee", "Cold Brew Instant Coffee Sticks", nil, CategoryFood},
		{"no keywords", "Oak Bookend Set", []string{"solid wood"}, CategoryGeneric},
		{"case insensitive", "PREMIUM CHAMPAGNE", nil, CategoryAlcohol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferCategory(tt.title, tt.bullets); got != tt.want {
				t.Errorf("InferCategory() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	catalog := DefaultCatalog()
	b1 := NewBuilder(catalog, CategoryFood, rand.New(rand.NewSource(42)))
	b2 := NewBuilder(catalog, CategoryFood, rand.New(rand.NewSource(42)))

	req := Request{Level: "medium", MaskEdit: true, ImageIndex: 1}
	if b1.Build(req) != b2.Build(req) {
		t.Error("same seed should build identical prompts")
	}

	b3 := NewBuilder(catalog, CategoryFood, rand.New(rand.NewSource(43)))
	same := true
	for idx := 0; idx < 3; idx++ {
		r := Request{Level: "medium", MaskEdit: true, ImageIndex: idx}
		if b1.Build(r) != b3.Build(r) {
			same = false
		}
	}
	if same {
		t.Error("different seeds should eventually rotate different scenes")
	}
}

func TestBuild_OverrideWinsVerbatim(t *testing.T) {
	b := NewBuilder(nil, CategoryGeneric, rand.New(rand.NewSource(1)))
	got := b.Build(Request{StyleOverride: "  exact words  ", Preset: PresetGlossy, Level: "aggressive"})
	if got != "exact words" {
		t.Errorf("override = %q", got)
	}
}

func TestBuild_PresetAndEngineSelection(t *testing.T) {
	catalog := DefaultCatalog()
	b := NewBuilder(catalog, CategoryGeneric, rand.New(rand.NewSource(1)))

	if got := b.Build(Request{Preset: PresetGlossy, MaskEdit: true}); got != catalog.GlossyMaskEditPrompt {
		t.Error("glossy mask edit should use the glossy backdrop prompt")
	}
	if got := b.Build(Request{Preset: PresetGlossy}); got != catalog.GlossyFullPrompt {
		t.Error("glossy full frame should use the glossy full prompt")
	}

	candid := b.Build(Request{Level: "aggressive", MaskEdit: true})
	if !strings.Contains(candid, "with more pronounced changes") {
		t.Errorf("aggressive prompt missing strength hint: %q", candid)
	}
	medium := b.Build(Request{Level: "medium", MaskEdit: true})
	if !strings.Contains(medium, "with moderate changes") {
		t.Errorf("medium prompt missing strength hint: %q", medium)
	}
	if candid == medium {
		t.Error("levels should produce different prompts")
	}
}

func TestBuild_SceneRotation(t *testing.T) {
	b := NewBuilder(nil, CategoryElectronics, rand.New(rand.NewSource(9)))
	scenes := b.Scenes()
	if len(scenes) != 3 {
		t.Fatalf("scene subset size = %d, want 3", len(scenes))
	}
	for idx := 0; idx < 6; idx++ {
		got := b.Build(Request{Level: "medium", MaskEdit: true, ImageIndex: idx})
		if !strings.Contains(got, scenes[idx%3]) {
			t.Errorf("image %d should use scene %q", idx, scenes[idx%3])
		}
	}
}

func TestNegative(t *testing.T) {
	b := NewBuilder(nil, CategoryGeneric, rand.New(rand.NewSource(1)))
	if b.Negative(PresetCandid) == "" {
		t.Error("candid preset should carry a negative prompt")
	}
	if b.Negative(PresetGlossy) != "" {
		t.Error("glossy preset should send no negative prompt")
	}
}

func TestLoadCatalog_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `
glossy_full_prompt: "my glossy words"
strength_hints:
  medium: "softly"
scene_pools:
  food:
    - "picnic blanket"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if catalog.GlossyFullPrompt != "my glossy words" {
		t.Error("override should replace glossy full prompt")
	}
	if catalog.StrengthHints["medium"] != "softly" {
		t.Error("override should replace medium hint")
	}
	if catalog.StrengthHints["aggressive"] == "" {
		t.Error("untouched hints should keep defaults")
	}
	if len(catalog.ScenePools[CategoryFood]) != 1 || catalog.ScenePools[CategoryFood][0] != "picnic blanket" {
		t.Error("override should replace the food pool")
	}
	if len(catalog.ScenePools[CategoryGeneric]) == 0 {
		t.Error("untouched pools should keep defaults")
	}
	if catalog.MaskEditTemplate == "" {
		t.Error("untouched template should keep default")
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
