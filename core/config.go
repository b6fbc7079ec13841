package core

import (
	"strings"
	"time"
)

// Engine variants for the regeneration pipeline.
const (
	// EngineMaskEdit rewrites only the background through a masked edit call
	// and keeps subject pixels untouched.
	EngineMaskEdit = "mask_edit"
	// EngineFullImage regenerates the whole frame and pastes the original
	// foreground back at the end.
	EngineFullImage = "full_image_pasteback"
)

// Config holds all configuration values for a restaging run.
type Config struct {
	// Painter (generative edit service)
	PainterEditURL   string
	PainterToken     string
	PainterModel     string
	PainterTimeout   time.Duration
	PainterRetries   int     // attempt cap for retryable failures
	PainterRateRPS   float64 // requests per second across all jobs (0 = unlimited)
	PainterRateBurst int

	// Matting (segmentation service)
	MattingBaseURL string
	MattingTimeout time.Duration

	// Vision (optional category classifier, OpenAI-compatible endpoint)
	VisionAPIKey  string
	VisionBaseURL string
	VisionModel   string

	// Engine selection
	Engine string // EngineMaskEdit (default) or EngineFullImage

	// Mask derivation
	CoreThreshold         uint8 // strict interior cutoff
	ProtectThreshold      uint8 // looser cutoff for the protected region
	CoreFallbackThreshold uint8 // floor used when opening empties the core
	ProtectDilatePx       int   // margin added around the protected region
	CoreOpenPx            int   // opening radius applied to the core

	// Scale gate
	MaxRatioDelta float64 // tolerated drift of the subject dominance ratio
	GateAllLevels bool    // gate medium-strength jobs too (default off)

	// Detail transfer
	DetailTransfer     bool
	DetailAlpha        float64
	DetailBlurRadius   float64
	DetailInnerErodePx int

	// Degradation (capture-texture pass)
	Degrade bool

	// Orchestration
	MaxConcurrent int
	OutputDir     string
	HistoryDBPath string // empty disables the run history store

	// Logging
	LogFile string
	DevMode bool
}

// Default values. The mask and gate numbers are the tuned operating points;
// loosening them noticeably increases subject drift in aggressive runs.
const (
	DefaultCoreThreshold         = 200
	DefaultProtectThreshold      = 128
	DefaultCoreFallbackThreshold = 96
	DefaultProtectDilatePx       = 8
	DefaultCoreOpenPx            = 2
	DefaultMaxRatioDelta         = 0.08
	DefaultDetailAlpha           = 0.22
	DefaultDetailBlurRadius      = 2.0
	DefaultDetailInnerErodePx    = 4
	DefaultMaxConcurrent         = 2
	DefaultPainterRetries        = 3
)

// LoadConfig reads configuration from the environment and applies defaults.
// It returns a ConfigError for values that are present but unusable.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		PainterEditURL:   strings.TrimSpace(GetEnvOrDefault("PAINTER_EDIT_URL", "")),
		PainterToken:     strings.TrimSpace(GetEnvOrDefault("PAINTER_TOKEN", "")),
		PainterModel:     strings.TrimSpace(GetEnvOrDefault("PAINTER_MODEL", "google/nano-banana")),
		PainterTimeout:   ParseDurationEnv("PAINTER_TIMEOUT", 300),
		PainterRetries:   ParseIntEnv("PAINTER_RETRY_ATTEMPTS", DefaultPainterRetries),
		PainterRateRPS:   ParseFloat64Env("PAINTER_RATE_RPS", 0),
		PainterRateBurst: ParseIntEnv("PAINTER_RATE_BURST", 1),

		MattingBaseURL: strings.TrimSpace(GetEnvOrDefault("MATTING_BASE_URL", GetEnvOrDefault("MATTING_URL", "http://127.0.0.1:8911"))),
		MattingTimeout: ParseDurationEnv("MATTING_TIMEOUT", 180),

		VisionAPIKey:  strings.TrimSpace(GetEnvOrDefault("VISION_API_KEY", "")),
		VisionBaseURL: strings.TrimSpace(GetEnvOrDefault("VISION_BASE_URL", "")),
		VisionModel:   strings.TrimSpace(GetEnvOrDefault("VISION_MODEL", "gpt-4o-mini")),

		Engine: strings.ToLower(strings.TrimSpace(GetEnvOrDefault("RESTAGE_ENGINE", EngineMaskEdit))),

		CoreThreshold:         uint8(clampInt(ParseIntEnv("MASK_CORE_THRESHOLD", DefaultCoreThreshold), 1, 255)),
		ProtectThreshold:      uint8(clampInt(ParseIntEnv("MASK_PROTECT_THRESHOLD", DefaultProtectThreshold), 1, 255)),
		CoreFallbackThreshold: uint8(clampInt(ParseIntEnv("MASK_CORE_FALLBACK_THRESHOLD", DefaultCoreFallbackThreshold), 1, 255)),
		ProtectDilatePx:       clampInt(ParseIntEnv("MASK_PROTECT_DILATE_PX", DefaultProtectDilatePx), 0, 64),
		CoreOpenPx:            clampInt(ParseIntEnv("MASK_CORE_OPEN_PX", DefaultCoreOpenPx), 0, 16),

		MaxRatioDelta: clampFloat(ParseFloat64Env("MAX_BBOX_RATIO_DELTA", DefaultMaxRatioDelta), 0.0, 0.5),
		GateAllLevels: ParseBoolEnv("SCALE_GATE_ALL_LEVELS", false),

		DetailTransfer:     ParseBoolEnv("DETAIL_TRANSFER", true),
		DetailAlpha:        clampFloat(ParseFloat64Env("DETAIL_TRANSFER_ALPHA", DefaultDetailAlpha), 0.0, 0.6),
		DetailBlurRadius:   clampFloat(ParseFloat64Env("DETAIL_TRANSFER_BLUR_RADIUS", DefaultDetailBlurRadius), 0.2, 10.0),
		DetailInnerErodePx: clampInt(ParseIntEnv("DETAIL_TRANSFER_INNER_ERODE_PX", DefaultDetailInnerErodePx), 0, 32),

		Degrade: ParseBoolEnv("CAPTURE_DEGRADE", true),

		MaxConcurrent: clampInt(ParseIntEnv("MAX_CONCURRENT", DefaultMaxConcurrent), 1, 8),
		OutputDir:     GetEnvOrDefault("OUTPUT_DIR", "assets/runs"),
		HistoryDBPath: GetEnvOrDefault("HISTORY_DB_PATH", ""),

		LogFile: GetEnvOrDefault("LOG_FILE", "restager.log"),
		DevMode: ParseBoolEnv("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the pipeline depends on. An unconfigured painter
// is not an error here: it degrades to per-job failures, not a refusal to
// start.
func (c *Config) Validate() error {
	if c.Engine != EngineMaskEdit && c.Engine != EngineFullImage {
		return ErrInvalidEngine(c.Engine)
	}
	if c.PainterEditURL != "" && !isHTTPURL(c.PainterEditURL) {
		return ErrInvalidServiceURL("PAINTER_EDIT_URL", c.PainterEditURL)
	}
	if c.MattingBaseURL == "" {
		return ErrMissingConfig("MATTING_BASE_URL")
	}
	if !isHTTPURL(c.MattingBaseURL) {
		return ErrInvalidServiceURL("MATTING_BASE_URL", c.MattingBaseURL)
	}
	if c.CoreThreshold <= c.ProtectThreshold {
		// The core must be the stricter cutoff or containment breaks.
		return ErrInvalidThresholds(int(c.CoreThreshold), int(c.ProtectThreshold))
	}
	if c.PainterRetries < 1 {
		c.PainterRetries = 1
	}
	return nil
}

// PainterConfigured reports whether the generative edit service is usable.
func (c *Config) PainterConfigured() bool {
	return c.PainterEditURL != "" && c.PainterToken != ""
}

// Snapshot returns the configuration values recorded in the run manifest.
// Secrets are excluded.
func (c *Config) Snapshot() map[string]any {
	return map[string]any{
		"engine":             c.Engine,
		"painter_model":      c.PainterModel,
		"core_threshold":     c.CoreThreshold,
		"protect_threshold":  c.ProtectThreshold,
		"protect_dilate_px":  c.ProtectDilatePx,
		"core_open_px":       c.CoreOpenPx,
		"max_ratio_delta":    c.MaxRatioDelta,
		"gate_all_levels":    c.GateAllLevels,
		"detail_transfer":    c.DetailTransfer,
		"detail_alpha":       c.DetailAlpha,
		"detail_blur_radius": c.DetailBlurRadius,
		"degrade":            c.Degrade,
		"max_concurrent":     c.MaxConcurrent,
		"painter_retries":    c.PainterRetries,
	}
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
