// Package transform applies per-widget transformations to raw CMS items.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/cmsbuild/internal/cms"
	"git.home.luguber.info/inful/cmsbuild/internal/content"
	"git.home.luguber.info/inful/cmsbuild/internal/hyphen"
	"git.home.luguber.info/inful/cmsbuild/internal/logfields"
	"git.home.luguber.info/inful/cmsbuild/internal/picture"
)

// MarkdownProcessor renders a Markdown field.
type MarkdownProcessor interface {
	Process(ctx context.Context, src string) (string, error)
}

// ImageResolver maps an image field value to markup.
type ImageResolver interface {
	Resolve(src string) picture.Resolution
}

// Handler transforms the value of one field. value is never nil.
type Handler func(ctx context.Context, field cms.Field, value any) (any, error)

// Options configures a Transformer. Nil collaborators disable the matching
// widget handler, whose values then pass through.
type Options struct {
	Markdown   MarkdownProcessor
	Resolver   ImageResolver
	Hyphenator *hyphen.Hyphenator
	Logger     *slog.Logger
}

// Transformer dispatches field values to widget handlers. Widgets without a
// handler pass their value through unchanged.
type Transformer struct {
	handlers map[cms.Widget]Handler
	opts     Options
	logger   *slog.Logger
}

// New returns a Transformer with the built-in handlers registered.
func New(opts Options) *Transformer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transformer{handlers: make(map[cms.Widget]Handler), opts: opts, logger: logger}
	t.Register(cms.WidgetText, t.text)
	t.Register(cms.WidgetMarkdown, t.markdown)
	t.Register(cms.WidgetImage, t.image)
	t.Register(cms.WidgetList, t.list)
	t.Register(cms.WidgetObject, t.object)
	return t
}

// Register sets the handler for a widget, replacing any existing one.
func (t *Transformer) Register(w cms.Widget, h Handler) {
	t.handlers[w] = h
}

// Transform builds an Item from raw following fields. Only schema fields
// present in raw are emitted, in schema order.
func (t *Transformer) Transform(ctx context.Context, raw content.RawItem, fields []cms.Field) (*Item, error) {
	return t.transformObject(ctx, raw, fields)
}

func (t *Transformer) transformObject(ctx context.Context, raw map[string]any, fields []cms.Field) (*Item, error) {
	item := NewItem()
	for _, f := range fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			continue
		}
		out, err := t.value(ctx, f, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		item.Set(f.Name, out)
	}
	return item, nil
}

func (t *Transformer) value(ctx context.Context, f cms.Field, v any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, ok := t.handlers[f.Widget]
	if !ok {
		return v, nil
	}
	return h(ctx, f, v)
}

func (t *Transformer) text(_ context.Context, _ cms.Field, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	return t.opts.Hyphenator.Text(s), nil
}

func (t *Transformer) markdown(ctx context.Context, _ cms.Field, v any) (any, error) {
	s, ok := v.(string)
	if !ok || s == "" || t.opts.Markdown == nil {
		return v, nil
	}
	return t.opts.Markdown.Process(ctx, s)
}

func (t *Transformer) image(_ context.Context, f cms.Field, v any) (any, error) {
	s, ok := v.(string)
	if !ok || s == "" || t.opts.Resolver == nil {
		return v, nil
	}
	res := t.opts.Resolver.Resolve(s)
	if res.Kind != picture.Resolved {
		t.logger.Debug("Image field not resolved to picture markup",
			logfields.Field(f.Name), logfields.Src(s), slog.String("resolution", res.Kind.String()))
	}
	return res.Markup, nil
}

func (t *Transformer) object(ctx context.Context, f cms.Field, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok || len(f.Fields) == 0 {
		return v, nil
	}
	return t.transformObject(ctx, m, f.Fields)
}

// list transforms elements concurrently. The result has the input's length
// and order.
func (t *Transformer) list(ctx context.Context, f cms.Field, v any) (any, error) {
	elems, ok := v.([]any)
	if !ok || (f.Field == nil && len(f.Fields) == 0) {
		return v, nil
	}

	out := make([]any, len(elems))
	g, gctx := errgroup.WithContext(ctx)
	for i, elem := range elems {
		g.Go(func() error {
			res, err := t.element(gctx, f, elem)
			if err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Transformer) element(ctx context.Context, f cms.Field, elem any) (any, error) {
	if elem == nil {
		return nil, nil
	}
	if f.Field != nil {
		return t.value(ctx, *f.Field, elem)
	}
	m, ok := elem.(map[string]any)
	if !ok {
		return elem, nil
	}
	return t.transformObject(ctx, m, f.Fields)
}
