package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
	cberrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cmsbuild/internal/hyphen"
	"git.home.luguber.info/inful/cmsbuild/internal/library"
	"git.home.luguber.info/inful/cmsbuild/internal/markdown"
	"git.home.luguber.info/inful/cmsbuild/internal/metrics"
	"git.home.luguber.info/inful/cmsbuild/internal/observability"
	"git.home.luguber.info/inful/cmsbuild/internal/picture"
	"git.home.luguber.info/inful/cmsbuild/internal/reduce"
	"git.home.luguber.info/inful/cmsbuild/internal/transform"
)

// DefaultBuildService wires the image engine and the content library builder.
type DefaultBuildService struct {
	recorder      metrics.Recorder
	logger        *slog.Logger
	reducers      *reduce.Registry
	engineOptions []picture.Option
}

// NewBuildService creates a build service with the default reducers and no metrics.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		reducers: reduce.DefaultRegistry(),
	}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithLogger sets the base logger.
func (s *DefaultBuildService) WithLogger(l *slog.Logger) *DefaultBuildService {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithReducers replaces the reducer registry.
func (s *DefaultBuildService) WithReducers(r *reduce.Registry) *DefaultBuildService {
	if r != nil {
		s.reducers = r
	}
	return s
}

// WithEngineOptions passes extra options to the image engine.
func (s *DefaultBuildService) WithEngineOptions(opts ...picture.Option) *DefaultBuildService {
	s.engineOptions = append(s.engineOptions, opts...)
	return s
}

// Run executes the build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()
	buildID := req.BuildID
	if buildID == "" {
		buildID = uuid.NewString()
	}
	result := &BuildResult{StartTime: startTime, BuildID: buildID}
	ctx = observability.WithBuildID(ctx, buildID)

	if req.Config == nil {
		return s.fail(result, cberrors.ConfigError("config required").Build())
	}
	cfg := req.Config
	store := picture.NewRecordStore(cfg.Picture.DataDir)

	// Stage 1: images
	if !req.SkipImages {
		stageStart := time.Now()
		sctx := observability.WithStage(ctx, StageImages)
		observability.InfoContext(sctx, "Processing images", slog.String("upload_dir", cfg.Picture.UploadDir))

		opts := append([]picture.Option{
			picture.WithRecorder(s.recorder),
			picture.WithLogger(observability.Logger(sctx, s.logger)),
		}, s.engineOptions...)
		engine, err := picture.NewEngine(cfg.Picture, store, opts...)
		if err != nil {
			s.recorder.IncStageResult(StageImages, metrics.ResultFatal)
			return s.fail(result, err)
		}
		report, err := engine.ProcessAll(sctx)
		s.recorder.ObserveStageDuration(StageImages, time.Since(stageStart))
		if err != nil {
			s.recorder.IncStageResult(StageImages, metrics.ResultFatal)
			observability.ErrorContext(sctx, "Image stage failed", slog.String("error", err.Error()))
			return s.fail(result, err)
		}
		s.recorder.IncStageResult(StageImages, metrics.ResultSuccess)
		result.Images = report
	}

	// Stage 2: content
	if !req.SkipContent {
		stageStart := time.Now()
		sctx := observability.WithStage(ctx, StageContent)
		logger := observability.Logger(sctx, s.logger)
		observability.InfoContext(sctx, "Building content library", slog.String("schema", cfg.SchemaPath))

		hyph, err := loadHyphenator(cfg.Hyphenation)
		if err != nil {
			s.recorder.IncStageResult(StageContent, metrics.ResultFatal)
			return s.fail(result, cberrors.ConfigError("failed to load hyphenation patterns").WithCause(err).Build())
		}
		resolver := picture.NewResolver(cfg, store, logger)
		tr := transform.New(transform.Options{
			Markdown: markdown.New(markdown.Options{
				BaseAliases: cfg.BaseAliases,
				BasePath:    cfg.BasePath,
				Resolver:    resolver,
				Hyphenator:  hyph,
				Logger:      logger,
			}),
			Resolver:   resolver,
			Hyphenator: hyph,
			Logger:     logger,
		})
		builder := library.NewBuilder(cfg, tr,
			library.WithReducers(s.reducers),
			library.WithRecorder(s.recorder),
			library.WithLogger(logger))

		report, err := builder.Build(sctx)
		result.Library = report
		s.recorder.ObserveStageDuration(StageContent, time.Since(stageStart))
		if err != nil {
			s.recorder.IncStageResult(StageContent, metrics.ResultFatal)
			observability.ErrorContext(sctx, "Content stage failed", slog.String("error", err.Error()))
			return s.fail(result, err)
		}
		s.recorder.IncStageResult(StageContent, metrics.ResultSuccess)
	}

	result.Status = BuildStatusSuccess
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	s.recorder.ObserveBuildDuration(result.Duration)
	observability.InfoContext(ctx, "Build complete", slog.Duration("duration", result.Duration))
	return result, nil
}

func loadHyphenator(hc config.HyphenationConfig) (*hyphen.Hyphenator, error) {
	if !hc.Enabled {
		return hyphen.Disabled(), nil
	}
	return hyphen.Load(hc.Patterns, hc.MinWordLength)
}

func (s *DefaultBuildService) fail(result *BuildResult, err error) (*BuildResult, error) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if errors.Is(err, context.Canceled) {
		result.Status = BuildStatusCancelled
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
		return result, err
	}
	result.Status = BuildStatusFailed
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	return result, err
}
