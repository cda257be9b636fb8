// Package library builds the content library: one artifact per CMS item, a
// typed sample per folder collection and the datasets of its reducers.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/cmsbuild/internal/artifact"
	"git.home.luguber.info/inful/cmsbuild/internal/cms"
	"git.home.luguber.info/inful/cmsbuild/internal/config"
	"git.home.luguber.info/inful/cmsbuild/internal/content"
	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cmsbuild/internal/logfields"
	"git.home.luguber.info/inful/cmsbuild/internal/metrics"
	"git.home.luguber.info/inful/cmsbuild/internal/reduce"
	"git.home.luguber.info/inful/cmsbuild/internal/transform"
)

// FailurePolicy decides what a per-item failure does to the build.
type FailurePolicy int

const (
	// AbortOnError fails the build on the first item error.
	AbortOnError FailurePolicy = iota
	// ContinueOnError logs the item error and moves on.
	ContinueOnError
)

// PolicyFor returns the failure policy of a collection's storage mode.
func PolicyFor(m cms.Mode) FailurePolicy {
	if m == cms.ModeFiles {
		return ContinueOnError
	}
	return AbortOnError
}

// SampleName is the file name of a folder collection's sample artifact.
const SampleName = "sample"

// ItemTransformer transforms a raw content item.
type ItemTransformer interface {
	Transform(ctx context.Context, raw content.RawItem, fields []cms.Field) (*transform.Item, error)
}

// Report summarizes a library build.
type Report struct {
	Collections []CollectionReport
	Duration    time.Duration
}

// CollectionReport summarizes one collection.
type CollectionReport struct {
	Name     string
	Mode     cms.Mode
	Items    int
	Failed   int
	Datasets []string
}

// Totals returns the item, failure and dataset counts across collections.
func (r *Report) Totals() (items, failed, datasets int) {
	for _, c := range r.Collections {
		items += c.Items
		failed += c.Failed
		datasets += len(c.Datasets)
	}
	return items, failed, datasets
}

// Builder builds the content library for one configuration.
type Builder struct {
	cfg         *config.Config
	transformer ItemTransformer
	reducers    *reduce.Registry
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithReducers replaces the default reducer registry.
func WithReducers(r *reduce.Registry) Option { return func(b *Builder) { b.reducers = r } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// NewBuilder returns a Builder using t for per-item transformation.
func NewBuilder(cfg *config.Config, t ItemTransformer, opts ...Option) *Builder {
	b := &Builder{
		cfg:         cfg,
		transformer: t,
		reducers:    reduce.DefaultRegistry(),
		recorder:    metrics.NoopRecorder{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reads the CMS schema and builds every collection in document order.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	doc, err := cms.Load(b.cfg.SchemaPath)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, c := range doc.Collections {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		cr, err := b.BuildCollection(ctx, c)
		if cr != nil {
			report.Collections = append(report.Collections, *cr)
		}
		if err != nil {
			return report, err
		}
	}
	report.Duration = time.Since(start)

	items, failed, datasets := report.Totals()
	b.logger.Info("Content library built",
		slog.Int("collections", len(report.Collections)),
		slog.Int("items", items),
		slog.Int("failed", failed),
		slog.Int("datasets", datasets),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

// BuildCollection builds a single collection.
func (b *Builder) BuildCollection(ctx context.Context, c cms.Collection) (*CollectionReport, error) {
	if c.Mode() == cms.ModeFiles {
		return b.buildFiles(ctx, c)
	}
	return b.buildFolder(ctx, c)
}

func (b *Builder) buildFiles(ctx context.Context, c cms.Collection) (*CollectionReport, error) {
	cr := &CollectionReport{Name: c.Name, Mode: cms.ModeFiles}
	policy := PolicyFor(cms.ModeFiles)
	if names := b.cfg.ReducersFor(c.Name); len(names) > 0 {
		b.logger.Warn("Reducers ignored for files collection",
			logfields.Collection(c.Name), slog.Any("reducers", names))
	}
	for _, f := range c.Files {
		if err := ctx.Err(); err != nil {
			return cr, err
		}
		src := b.sourcePath(f.File)
		_, err := b.buildItem(ctx, c.Name, src, f.Fields)
		if err != nil {
			if errors.Is(err, context.Canceled) || policy == AbortOnError {
				return cr, err
			}
			cr.Failed++
			b.recorder.IncItem(c.Name, metrics.ResultFailed)
			b.logger.Error("Suppressed content item failure",
				logfields.Collection(c.Name), logfields.Item(src), logfields.Error(err))
			continue
		}
		cr.Items++
		b.recorder.IncItem(c.Name, metrics.ResultSuccess)
	}
	return cr, nil
}

func (b *Builder) buildFolder(ctx context.Context, c cms.Collection) (*CollectionReport, error) {
	cr := &CollectionReport{Name: c.Name, Mode: cms.ModeFolder}
	dir := b.sourcePath(c.Folder)
	if err := checkOutput(c.Name, dir, b.outputPath(dir, "")); err != nil {
		return cr, err
	}
	files, err := listFolder(dir, c.Extension)
	if err != nil {
		return cr, foundationerrors.FileSystemError("failed to list collection folder").
			WithCause(err).
			Fatal().
			WithContext("collection", c.Name).
			WithContext("path", dir).
			Build()
	}
	if len(files) == 0 {
		b.logger.Info("Collection folder empty or missing", logfields.Collection(c.Name), logfields.Path(dir))
	}

	var (
		built []artifact.Artifact
		shape *artifact.Shape
	)
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return cr, err
		}
		a, err := b.buildItem(ctx, c.Name, src, c.Fields)
		if err != nil {
			b.recorder.IncItem(c.Name, metrics.ResultFatal)
			return cr, err
		}
		cr.Items++
		b.recorder.IncItem(c.Name, metrics.ResultSuccess)

		if len(built) == 0 {
			shape, err = b.writeSample(c, a)
			if err != nil {
				return cr, err
			}
		} else if shape != nil {
			for _, issue := range shape.Validate(a.Value) {
				b.logger.Warn("Item deviates from collection sample",
					logfields.Collection(c.Name), logfields.Item(src), slog.String("issue", issue))
			}
		}
		built = append(built, a)
	}

	names, err := b.writeDatasets(c, dir, built)
	cr.Datasets = names
	return cr, err
}

// buildItem loads, transforms, encodes and writes one item.
func (b *Builder) buildItem(ctx context.Context, collection, src string, fields []cms.Field) (artifact.Artifact, error) {
	raw, err := content.Load(src)
	if err != nil {
		return artifact.Artifact{}, itemFailure(err, collection, src)
	}
	item, err := b.transformer.Transform(ctx, raw, fields)
	if err != nil {
		return artifact.Artifact{}, itemFailure(err, collection, src)
	}

	out := b.outputPath(src, ".json")
	if err := checkOutput(collection, src, out); err != nil {
		return artifact.Artifact{}, err
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	a, err := artifact.New(out, artifact.ItemBinding(name), item)
	if err != nil {
		return artifact.Artifact{}, itemFailure(err, collection, src)
	}
	if err := artifact.Write(a); err != nil {
		return artifact.Artifact{}, writeFailure(err, collection, a.Path)
	}
	b.logger.Debug("Wrote content artifact",
		logfields.Collection(collection), logfields.Item(src), logfields.Dest(a.Path))
	return a, nil
}

// writeSample writes the collection sample next to the first artifact and
// returns the compiled shape used to check later items.
func (b *Builder) writeSample(c cms.Collection, first artifact.Artifact) (*artifact.Shape, error) {
	schema := artifact.InferShape(first.Value)
	path := filepath.Join(filepath.Dir(first.Path), SampleName+".json")
	sample, err := artifact.NewSample(path, first.Binding, first.Value, artifact.ShapeName(c.Name), schema)
	if err != nil {
		return nil, itemFailure(err, c.Name, first.Path)
	}
	if err := artifact.Write(sample); err != nil {
		return nil, writeFailure(err, c.Name, path)
	}

	shape, err := artifact.CompileShape(schema)
	if err != nil {
		b.logger.Warn("Sample shape not usable for validation",
			logfields.Collection(c.Name), logfields.Error(err))
		return nil, nil
	}
	return shape, nil
}

// writeDatasets runs the collection's reducers and writes their datasets.
// Nothing is written unless every dataset is valid.
func (b *Builder) writeDatasets(c cms.Collection, dir string, items []artifact.Artifact) ([]string, error) {
	names := b.cfg.ReducersFor(c.Name)
	if len(names) == 0 {
		return nil, nil
	}
	datasets, err := b.reducers.Run(c.Name, names, items)
	if err != nil {
		return nil, err
	}

	outDir := b.outputPath(dir, "")
	order := reduce.SortedNames(datasets)
	encoded := make([]artifact.Artifact, 0, len(order))
	for _, name := range order {
		a, err := artifact.New(filepath.Join(outDir, name+".json"),
			artifact.DatasetBinding(c.Name, name), datasets[name].Data)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryReducer, "failed to encode dataset").
				Fatal().
				WithContext("collection", c.Name).
				WithContext("dataset", name).
				Build()
		}
		encoded = append(encoded, a)
	}
	for i, a := range encoded {
		if err := artifact.Write(a); err != nil {
			return nil, writeFailure(err, c.Name, a.Path)
		}
		b.recorder.IncDataset(c.Name)
		b.logger.Info("Wrote dataset",
			logfields.Collection(c.Name), logfields.Dataset(order[i]), logfields.Dest(a.Path))
	}
	return order, nil
}

// sourcePath resolves a CMS path against the working root.
func (b *Builder) sourcePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(b.cfg.WorkDir, filepath.FromSlash(p))
}

// outputPath mirrors src from the content source root into the library root.
// ext replaces the file extension when non-empty. Sources outside the source
// root are mirrored by their path relative to the working root.
func (b *Builder) outputPath(src, ext string) string {
	root := b.cfg.Content.LibraryRoot
	rel, ok := within(b.cfg.Content.SourceRoot, src)
	if !ok {
		if rel, ok = within(b.cfg.WorkDir, src); !ok {
			rel = filepath.Base(src)
		}
	}
	out := filepath.Join(root, rel)
	if ext != "" {
		out = strings.TrimSuffix(out, filepath.Ext(out)) + ext
	}
	return out
}

// checkOutput refuses to write an artifact over its own source.
func checkOutput(collection, src, out string) error {
	if filepath.Clean(src) != filepath.Clean(out) {
		return nil
	}
	return foundationerrors.FileSystemError("artifact would overwrite its source").
		Fatal().
		WithContext("collection", collection).
		WithContext("path", src).
		Build()
}

func within(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// listFolder returns the loadable files directly inside dir in lexical
// order. A missing directory is an empty collection.
func listFolder(dir, extension string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	want := ""
	if extension != "" {
		want = "." + strings.TrimPrefix(strings.ToLower(extension), ".")
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || !content.Supported(name) {
			continue
		}
		if want != "" && strings.ToLower(filepath.Ext(name)) != want {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

func itemFailure(err error, collection, src string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	msg := fmt.Sprintf("failed to build item %s", filepath.Base(src))
	b := foundationerrors.ContentError(msg)
	if ce, ok := foundationerrors.AsClassified(err); ok {
		// keep link and image classifications visible to the CLI exit code
		b = foundationerrors.NewError(ce.Category(), msg).WithSeverity(ce.Severity())
	}
	return b.WithCause(err).
		WithContext("collection", collection).
		WithContext("item", src).
		Build()
}

func writeFailure(err error, collection, path string) error {
	return foundationerrors.FileSystemError("failed to write artifact").
		WithCause(err).
		Fatal().
		WithContext("collection", collection).
		WithContext("path", path).
		Build()
}
