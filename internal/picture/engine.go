package picture

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cmsbuild/internal/logfields"
	"git.home.luguber.info/inful/cmsbuild/internal/metrics"
)

// Report summarizes one image pass.
type Report struct {
	Images    int
	Generated int
	Skipped   int
	Duration  time.Duration
}

// Engine generates placeholder records and derivatives for the upload root.
type Engine struct {
	cfg      config.PictureConfig
	store    *RecordStore
	cache    DerivativeCache
	encoders map[string]Encoder
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache replaces the filesystem derivative cache.
func WithCache(c DerivativeCache) Option { return func(e *Engine) { e.cache = c } }

// WithEncoder registers or replaces the encoder for a format.
func WithEncoder(format string, enc Encoder) Option {
	return func(e *Engine) { e.encoders[strings.ToLower(format)] = enc }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine builds an engine for pc persisting records through store. Every
// configured format must have an encoder.
func NewEngine(pc config.PictureConfig, store *RecordStore, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      pc,
		store:    store,
		cache:    FSCache{},
		encoders: DefaultEncoders(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, f := range pc.Formats {
		if _, err := lookupEncoder(e.encoders, f.Type); err != nil {
			return nil, foundationerrors.ConfigError("unsupported image format").
				WithCause(err).
				WithContext("format", f.Type).
				Build()
		}
	}
	return e, nil
}

// ProcessAll runs the image pass over every file below the upload root. The
// first failure cancels the remaining work and is returned.
func (e *Engine) ProcessAll(ctx context.Context) (*Report, error) {
	start := time.Now()
	assets, err := e.discover()
	if err != nil {
		return nil, err
	}

	var generated, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Workers, 1))
	for _, a := range assets {
		g.Go(func() error {
			gen, skip, err := e.process(gctx, a)
			generated.Add(int64(gen))
			skipped.Add(int64(skip))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Images:    len(assets),
		Generated: int(generated.Load()),
		Skipped:   int(skipped.Load()),
		Duration:  time.Since(start),
	}
	e.logger.Info("Image pass complete",
		slog.Int("images", report.Images),
		slog.Int("generated", report.Generated),
		slog.Int("skipped", report.Skipped),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

// discover lists regular, non-hidden files below the upload root in lexical order.
func (e *Engine) discover() ([]Asset, error) {
	root := e.cfg.UploadDir
	var assets []Asset
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != filepath.Clean(root) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, ok := relPath(root, p)
		if !ok {
			return nil
		}
		assets = append(assets, Asset{Rel: rel, Abs: p})
		return nil
	})
	if err != nil {
		return nil, foundationerrors.FileSystemError("failed to list upload directory").
			WithCause(err).
			WithContext("path", root).
			Fatal().
			Build()
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Rel < assets[j].Rel })
	return assets, nil
}

func (e *Engine) process(ctx context.Context, a Asset) (generated, skipped int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	img, err := imaging.Open(a.Abs, imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, imageFailure("failed to decode image", a, err)
	}

	if err := e.writeRecord(img, a); err != nil {
		return 0, 0, err
	}

	for _, d := range DerivativesFor(e.cfg, a.Rel) {
		if err := ctx.Err(); err != nil {
			return generated, skipped, err
		}
		exists, err := e.cache.Exists(d.Dest)
		if err != nil {
			return generated, skipped, imageFailure("failed to check derivative", a, err)
		}
		if exists {
			e.logger.Debug("Derivative exists, skipping",
				logfields.Image(a.Rel), logfields.Dest(d.Dest))
			e.recorder.IncDerivative(d.Format, metrics.DerivativeSkipped)
			skipped++
			continue
		}
		if err := e.writeDerivative(img, d); err != nil {
			return generated, skipped, imageFailure("failed to write derivative", a, err)
		}
		e.logger.Debug("Derivative written",
			logfields.Image(a.Rel), logfields.Format(d.Format), logfields.Width(d.Width))
		e.recorder.IncDerivative(d.Format, metrics.DerivativeGenerated)
		generated++
	}
	return generated, skipped, nil
}

func (e *Engine) writeRecord(img image.Image, a Asset) error {
	b := img.Bounds()
	preview, err := Preview(img)
	if err != nil {
		return imageFailure("failed to build preview", a, err)
	}
	markup, err := BuildMarkup(e.cfg, a.Rel, b.Dx(), b.Dy(), preview)
	if err != nil {
		return imageFailure("failed to build markup", a, err)
	}
	rec := &PlaceholderRecord{
		Path:          a.Rel,
		NaturalWidth:  b.Dx(),
		NaturalHeight: b.Dy(),
		Preview:       preview,
		Markup:        markup,
	}
	if err := e.store.Put(rec); err != nil {
		return imageFailure("failed to persist placeholder record", a, err)
	}
	return nil
}

func (e *Engine) writeDerivative(img image.Image, d Derivative) error {
	enc, err := lookupEncoder(e.encoders, d.Format)
	if err != nil {
		return err
	}
	resized := resize(img, d.Width)
	return e.cache.Write(d.Dest, func(w io.Writer) error {
		if err := enc(w, resized); err != nil {
			return fmt.Errorf("encode %s: %w", d.Format, err)
		}
		return nil
	})
}

func imageFailure(msg string, a Asset, err error) error {
	return foundationerrors.ImageError(msg).
		WithCause(err).
		WithContext("image", a.Rel).
		Build()
}
