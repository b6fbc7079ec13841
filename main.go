package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"restager/batch"
	"restager/core"
	"restager/db"
	"restager/imaging"
	"restager/logging"
	"restager/mask"
	"restager/matting"
	"restager/painter"
	"restager/prompt"
	"restager/regen"
	"restager/restyle"
	"restager/vision"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	var (
		title     = flag.String("title", "", "product title used for scene selection")
		bullets   = flag.String("bullets", "", "semicolon-separated product bullet points")
		style     = flag.String("style", "", "verbatim prompt override (skips prompt generation)")
		preset    = flag.String("preset", prompt.PresetCandid, "style preset: ugc or glossy")
		levels    = flag.String("levels", "", "comma-separated intensity levels (default medium,aggressive)")
		pasteBack = flag.Bool("pasteback", true, "restore the original subject pixels in full-frame mode")
		catalog   = flag.String("catalog", os.Getenv("PROMPT_CATALOG"), "YAML prompt catalog override")
		reqFile   = flag.String("request", "", "JSON request file (flags override its fields)")
	)
	flag.Parse()

	imagePaths := flag.Args()
	if *reqFile != "" {
		fileReq, err := loadRequestFile(*reqFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "request file: %v\n", err)
			return core.ExitCodeError
		}
		if *title == "" {
			*title = fileReq.Title
		}
		if *bullets == "" {
			*bullets = strings.Join(fileReq.Bullets, ";")
		}
		if *style == "" {
			*style = fileReq.Style
		}
		if fileReq.Preset != "" && !flagWasSet("preset") {
			*preset = fileReq.Preset
		}
		if *levels == "" {
			*levels = strings.Join(fileReq.Levels, ",")
		}
		if len(imagePaths) == 0 {
			imagePaths = fileReq.Images
		}
	}
	if len(imagePaths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: restager [flags] image.png [image2.png ...]")
		flag.PrintDefaults()
		return core.ExitCodeError
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"
	logFile := core.GetEnvOrDefault("LOG_FILE", "restager.log")

	logger, err := logging.NewLogger(isDevelopment, logFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	config, err := core.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return core.ExitCodeError
	}

	logger.Info("Configuration loaded",
		zap.String("engine", config.Engine),
		zap.String("matting_url", config.MattingBaseURL),
		zap.Bool("painter_configured", config.PainterConfigured()),
		zap.Int("max_concurrent", config.MaxConcurrent),
		zap.String("output_dir", config.OutputDir),
		zap.Bool("dev_mode", isDevelopment),
	)

	if !config.PainterConfigured() {
		logger.Warn("Painter endpoint not configured; jobs will fall back to source images")
	}

	images, err := loadImages(imagePaths)
	if err != nil {
		logger.Error("Failed to load input images", zap.Error(err))
		return core.ExitCodeError
	}

	promptCatalog := prompt.DefaultCatalog()
	if *catalog != "" {
		promptCatalog, err = prompt.LoadCatalog(*catalog)
		if err != nil {
			logger.Error("Failed to load prompt catalog", zap.String("path", *catalog), zap.Error(err))
			return core.ExitCodeError
		}
	}

	segmenter := matting.NewClient(config.MattingBaseURL, config.MattingTimeout)
	painterClient := painter.NewClient(config.PainterEditURL, config.PainterToken, config.PainterModel, painter.Options{
		MaxAttempts:       config.PainterRetries,
		Timeout:           config.PainterTimeout,
		RequestsPerSecond: config.PainterRateRPS,
		Burst:             config.PainterRateBurst,
	})
	classifier := vision.NewClassifier(config.VisionAPIKey, config.VisionBaseURL, config.VisionModel)

	detail := restyle.DefaultDetailParams()
	detail.Alpha = config.DetailAlpha
	detail.BlurRadius = config.DetailBlurRadius
	detail.InnerErodePx = config.DetailInnerErodePx

	engine := regen.NewEngine(painterClient, segmenter, logger, regen.Options{
		MaxRatioDelta:  config.MaxRatioDelta,
		GateAllLevels:  config.GateAllLevels,
		DetailTransfer: config.DetailTransfer,
		Detail:         detail,
		Masks: mask.Params{
			CoreThreshold:         config.CoreThreshold,
			ProtectThreshold:      config.ProtectThreshold,
			CoreFallbackThreshold: config.CoreFallbackThreshold,
			DilatePx:              config.ProtectDilatePx,
			OpenPx:                config.CoreOpenPx,
		},
	})

	store := batch.NewLocalStore(config.OutputDir)

	var history batch.History
	if config.HistoryDBPath != "" {
		conn, err := db.Open(db.DefaultConnectionConfig(config.HistoryDBPath))
		if err != nil {
			logger.Error("Failed to open history database", zap.Error(err))
			return core.ExitCodeError
		}
		defer conn.Close()
		if err := db.MigrateUp(conn); err != nil {
			logger.Error("Failed to migrate history database", zap.Error(err))
			return core.ExitCodeError
		}
		history = db.NewHistory(conn)
	}

	orchestrator := batch.NewOrchestrator(config, logger, engine, segmenter, classifier, promptCatalog, store, history)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manifest, err := orchestrator.Run(ctx, batch.Request{
		Images:        images,
		Title:         *title,
		Bullets:       splitBullets(*bullets),
		StyleOverride: *style,
		Preset:        *preset,
		Levels:        splitLevels(*levels),
		PasteBack:     *pasteBack,
	})
	if ctx.Err() != nil {
		logger.Warn("Run interrupted")
		return core.ExitCodeSIGINT
	}
	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		return core.ExitCodeError
	}

	printSummary(manifest, store.RunDir(manifest.RunID))
	if len(manifest.Errors) > 0 {
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

// requestFile mirrors the flag surface for batch submissions.
type requestFile struct {
	Images  []string `json:"images"`
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
	Style   string   `json:"style"`
	Preset  string   `json:"preset"`
	Levels  []string `json:"levels"`
}

func loadRequestFile(path string) (*requestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req requestFile
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &req, nil
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// loadImages decodes every input path, in argument order.
func loadImages(paths []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		img, err := imaging.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func splitBullets(s string) []string {
	return splitAndTrim(s, ";")
}

func splitLevels(s string) []string {
	return splitAndTrim(s, ",")
}

// splitAndTrim splits by separator and drops empty entries.
func splitAndTrim(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// printSummary writes a colorized per-output report to stdout.
func printSummary(m *batch.Manifest, runDir string) {
	header := color.New(color.FgCyan, color.Bold)
	header.Printf("\nRun %s (%s, %s)\n", m.RunID, m.Engine, m.Category)
	color.New(color.FgHiBlack).Printf("outputs in %s\n", runDir)

	accepted, degraded, failed := 0, 0, 0
	for _, out := range m.Outputs {
		var clr *color.Color
		switch out.Outcome {
		case "accepted":
			clr = color.New(color.FgGreen)
			accepted++
		case "degraded":
			clr = color.New(color.FgYellow)
			degraded++
		default:
			clr = color.New(color.FgRed)
			failed++
		}
		clr.Printf("  %-10s %s", out.Outcome, out.File)
		if out.Warning != "" {
			color.New(color.FgHiBlack).Printf("  %s", out.Warning)
		}
		if out.Error != "" {
			color.New(color.FgHiBlack).Printf("  %s", out.Error)
		}
		fmt.Println()
	}

	if failed == 0 {
		color.New(color.FgGreen, color.Bold).Printf("\n✓ %d outputs", len(m.Outputs))
	} else {
		color.New(color.FgRed, color.Bold).Printf("\n✗ %d outputs", len(m.Outputs))
	}
	color.New(color.FgHiBlack).Printf(" (%d accepted, %d degraded, %d failed)\n", accepted, degraded, failed)
}
