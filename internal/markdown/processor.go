// Package markdown renders CMS Markdown fields to HTML and post-processes the
// result: uploaded images become <picture> markup, links to the site's own
// domains become base-path relative, and prose is hyphenated.
//
// Only links with a host are matched against the base aliases. Relative
// hrefs, fragments and mailto: links are left as written.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cmsbuild/internal/hyphen"
	"git.home.luguber.info/inful/cmsbuild/internal/picture"
)

// ImageResolver maps an image reference to replacement markup.
type ImageResolver interface {
	Resolve(src string) picture.Resolution
}

// Options configures a Processor.
type Options struct {
	BaseAliases []string
	BasePath    string
	Resolver    ImageResolver
	Hyphenator  *hyphen.Hyphenator
	Logger      *slog.Logger
}

// Processor is safe for concurrent use.
type Processor struct {
	md         goldmark.Markdown
	links      *LinkRewriter
	resolver   ImageResolver
	hyphenator *hyphen.Hyphenator
	logger     *slog.Logger
}

// New builds a Processor. Raw HTML in the source is passed through.
func New(opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		links:      NewLinkRewriter(opts.BaseAliases, opts.BasePath),
		resolver:   opts.Resolver,
		hyphenator: opts.Hyphenator,
		logger:     logger,
	}
}

// Process renders src and post-processes the HTML. An unparsable link href
// fails the call with a link error.
func (p *Processor) Process(ctx context.Context, src string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var rendered bytes.Buffer
	if err := p.md.Convert([]byte(src), &rendered); err != nil {
		return "", foundationerrors.ContentError("failed to render markdown").WithCause(err).Build()
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(&rendered, body)
	if err != nil {
		return "", foundationerrors.ContentError("failed to parse rendered markdown").WithCause(err).Build()
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	var images, anchors []*html.Node
	walk(body, func(n *html.Node) {
		switch n.DataAtom {
		case atom.Img:
			images = append(images, n)
		case atom.A:
			anchors = append(anchors, n)
		}
	})

	for _, a := range anchors {
		if err := p.rewriteAnchor(a); err != nil {
			return "", err
		}
	}
	if p.resolver != nil {
		for _, img := range images {
			if err := p.replaceImage(img); err != nil {
				return "", err
			}
		}
	}
	p.hyphenator.Node(body)

	var out bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&out, c); err != nil {
			return "", foundationerrors.InternalError("failed to render html").WithCause(err).Build()
		}
	}
	return out.String(), nil
}

func (p *Processor) rewriteAnchor(a *html.Node) error {
	for i, attr := range a.Attr {
		if attr.Namespace != "" || attr.Key != "href" {
			continue
		}
		href, changed, err := p.links.Rewrite(attr.Val)
		if err != nil {
			return foundationerrors.LinkError("failed to parse link").
				WithCause(err).
				WithContext("href", attr.Val).
				Build()
		}
		if changed {
			p.logger.Debug("Rewrote internal link", slog.String("from", attr.Val), slog.String("to", href))
			a.Attr[i].Val = href
		}
	}
	return nil
}

func (p *Processor) replaceImage(img *html.Node) error {
	src, ok := attr(img, "src")
	if !ok || src == "" {
		return nil
	}
	res := p.resolver.Resolve(src)

	parent := img.Parent
	ctxNode := parent
	if ctxNode == nil || ctxNode.Type != html.ElementNode {
		ctxNode = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	replacement, err := html.ParseFragment(strings.NewReader(res.Markup), ctxNode)
	if err != nil {
		return fmt.Errorf("parse markup for %s: %w", src, err)
	}
	for _, n := range replacement {
		parent.InsertBefore(n, img)
	}
	parent.RemoveChild(img)
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
