package batch

import (
	"context"
	"image"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"restager/assets"
	"restager/core"
	"restager/imaging"
	"restager/logging"
	"restager/mask"
	"restager/prompt"
	"restager/regen"
	"restager/restyle"
	"restager/vision"
)

// History persists finished runs. Nil disables persistence.
type History interface {
	SaveRun(ctx context.Context, m *Manifest) error
}

// Orchestrator runs the image x level job grid.
type Orchestrator struct {
	cfg        *core.Config
	log        *logging.Logger
	engine     *regen.Engine
	segmenter  assets.Segmenter
	classifier *vision.Classifier
	catalog    *prompt.Catalog
	store      Store
	history    History
}

// NewOrchestrator wires a run orchestrator. catalog may be nil for the
// built-in prompt catalog; history may be nil.
func NewOrchestrator(cfg *core.Config, log *logging.Logger, engine *regen.Engine, segmenter assets.Segmenter, classifier *vision.Classifier, catalog *prompt.Catalog, store Store, history History) *Orchestrator {
	if catalog == nil {
		catalog = prompt.DefaultCatalog()
	}
	return &Orchestrator{
		cfg:        cfg,
		log:        log,
		engine:     engine,
		segmenter:  segmenter,
		classifier: classifier,
		catalog:    catalog,
		store:      store,
		history:    history,
	}
}

// Run processes the request and returns its manifest. Job-level failures
// are recorded in the manifest, not returned: the corresponding output
// falls back to the source image so every slot is filled.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Manifest, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	runRNG := rand.New(rand.NewSource(core.RunSeed(runID)))

	category := o.classify(ctx, req)
	builder := prompt.NewBuilder(o.catalog, category, runRNG)
	profile := restyle.NewCaptureProfile(runRNG)
	cache := assets.NewCache(o.segmenter, o.maskParams())

	manifest := &Manifest{
		RunID:      runID,
		Engine:     o.cfg.Engine,
		Preset:     req.Preset,
		Category:   string(category),
		Scenes:     builder.Scenes(),
		Levels:     req.Levels,
		ImageCount: len(req.Images),
		Config:     o.cfg.Snapshot(),
	}

	o.log.Info("restaging run started",
		zap.String("run_id", runID),
		zap.String("engine", o.cfg.Engine),
		zap.String("category", string(category)),
		zap.Int("images", len(req.Images)),
		zap.Strings("levels", req.Levels),
		zap.Int("max_concurrent", o.cfg.MaxConcurrent),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.cfg.MaxConcurrent)
	for idx := range req.Images {
		for _, level := range req.Levels {
			idx, level := idx, level
			eg.Go(func() error {
				o.runJob(egCtx, runID, idx, level, req, builder, profile, cache, manifest)
				return nil
			})
		}
	}
	// Workers never return errors; Wait only orders the joins.
	_ = eg.Wait()

	manifest.Finish()
	if err := o.store.SaveManifest(runID, manifest); err != nil {
		return nil, err
	}
	if o.history != nil {
		if err := o.history.SaveRun(ctx, manifest); err != nil {
			o.log.Warn("run history write failed", zap.String("run_id", runID), zap.Error(err))
		}
	}

	o.log.Info("restaging run finished",
		zap.String("run_id", runID),
		zap.Int("outputs", len(manifest.Outputs)),
		zap.Int("errors", len(manifest.Errors)),
	)
	return manifest, nil
}

func (o *Orchestrator) runJob(ctx context.Context, runID string, idx int, level string, req Request, builder *prompt.Builder, profile restyle.CaptureProfile, cache *assets.Cache, manifest *Manifest) {
	out := Output{Index: idx, Level: level, Outcome: "accepted"}
	source := req.Images[idx]
	final := image.Image(source)

	jobRNG := rand.New(rand.NewSource(core.JobSeed(runID, idx, level)))

	result, err := o.renderJob(ctx, idx, level, req, builder, cache, profile, jobRNG, source)
	if err != nil {
		out.Outcome = "failed"
		out.Error = err.Error()
		o.log.Warn("job failed, falling back to source image",
			zap.String("run_id", runID),
			zap.Int("image", idx+1),
			zap.String("level", level),
			zap.Error(err),
		)
	} else {
		final = result.Image
		out.Outcome = string(result.Outcome)
		out.Warning = result.Warning
		out.PainterCalls = result.PainterCalls
	}

	file, saveErr := o.store.SaveOutput(runID, level, idx, final)
	if saveErr != nil {
		out.Outcome = "failed"
		if out.Error == "" {
			out.Error = saveErr.Error()
		}
	}
	out.File = file
	manifest.Record(out)
}

func (o *Orchestrator) renderJob(ctx context.Context, idx int, level string, req Request, builder *prompt.Builder, cache *assets.Cache, profile restyle.CaptureProfile, jobRNG *rand.Rand, source image.Image) (*regen.Result, error) {
	bundle, err := cache.Get(ctx, idx, source)
	if err != nil {
		return nil, err
	}

	maskEdit := o.cfg.Engine == core.EngineMaskEdit
	job := regen.Job{
		Index: idx,
		Level: level,
		Prompt: builder.Build(prompt.Request{
			StyleOverride: req.StyleOverride,
			Preset:        req.Preset,
			MaskEdit:      maskEdit,
			Level:         level,
			ImageIndex:    idx,
		}),
		NegativePrompt: builder.Negative(req.Preset),
		Bundle:         bundle,
		Source:         source,
	}

	if maskEdit {
		return o.engine.Regenerate(ctx, job)
	}

	fullJob := regen.FullImageJob{Job: job, RNG: jobRNG, PasteBack: req.PasteBack}
	if req.Preset == prompt.PresetCandid && o.cfg.Degrade {
		params := profile.Jitter(jobRNG)
		fullJob.Degrade = &params
	}
	return o.engine.RegenerateFullImage(ctx, fullJob)
}

func (o *Orchestrator) classify(ctx context.Context, req Request) prompt.Category {
	var firstPNG []byte
	if len(req.Images) > 0 {
		if data, err := imaging.EncodePNG(req.Images[0]); err == nil {
			firstPNG = data
		}
	}
	return o.classifier.Classify(ctx, req.Title, req.Bullets, firstPNG)
}

func (o *Orchestrator) maskParams() mask.Params {
	return mask.Params{
		CoreThreshold:         o.cfg.CoreThreshold,
		ProtectThreshold:      o.cfg.ProtectThreshold,
		CoreFallbackThreshold: o.cfg.CoreFallbackThreshold,
		DilatePx:              o.cfg.ProtectDilatePx,
		OpenPx:                o.cfg.CoreOpenPx,
	}
}
