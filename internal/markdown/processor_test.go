package markdown

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cmsbuild/internal/hyphen"
	"git.home.luguber.info/inful/cmsbuild/internal/picture"
)

type fakeResolver map[string]string

func (f fakeResolver) Resolve(src string) picture.Resolution {
	if m, ok := f[src]; ok {
		return picture.Resolution{Kind: picture.Resolved, Markup: m}
	}
	return picture.Resolution{Kind: picture.External, Markup: picture.FallbackImage(src)}
}

// halves allows a single break in the middle of a word.
type halves struct{}

func (halves) Hyphenate(word string) []int { return []int{utf8.RuneCountInString(word) / 2} }

func TestProcessor_ReplacesImages(t *testing.T) {
	p := New(Options{Resolver: fakeResolver{
		"/src/lib/images/uploads/x.jpg": `<picture><img src="/processed-images/uploads/x.jpg-1444.jpg" alt="" class="##imgClass##"/></picture>`,
	}})

	out, err := p.Process(context.Background(), "Look:\n\n![a cat](/src/lib/images/uploads/x.jpg)\n\n![ext](https://cdn.example.com/y.png)\n")
	require.NoError(t, err)
	require.Contains(t, out, `<p><picture><img src="/processed-images/uploads/x.jpg-1444.jpg" alt="" class="##imgClass##"/></picture></p>`)
	require.Contains(t, out, `<img src="https://cdn.example.com/y.png" alt=""/>`)
	require.NotContains(t, out, "/src/lib/images/uploads/x.jpg\"")
	require.NotContains(t, out, "a cat")
}

func TestProcessor_RewritesLinks(t *testing.T) {
	p := New(Options{BaseAliases: []string{"tamashalasi.com"}, BasePath: "/app"})

	out, err := p.Process(context.Background(), "[about](https://tamashalasi.com/about?x=1#team) and [elsewhere](https://example.com/)")
	require.NoError(t, err)
	require.Equal(t, `<p><a href="/app/about?x=1#team">about</a> and <a href="https://example.com/">elsewhere</a></p>`+"\n", out)
}

func TestProcessor_RawHTMLAnchorsRewritten(t *testing.T) {
	p := New(Options{BaseAliases: []string{"tamashalasi.com"}, BasePath: "/app"})

	out, err := p.Process(context.Background(), `<div><a href="https://tamashalasi.com/raw">raw</a></div>`)
	require.NoError(t, err)
	require.Contains(t, out, `<a href="/app/raw">raw</a>`)
}

func TestProcessor_InvalidLinkFails(t *testing.T) {
	p := New(Options{BaseAliases: []string{"tamashalasi.com"}, BasePath: "/app"})

	_, err := p.Process(context.Background(), `<a href="http://[::1">bad</a>`)
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryLink))
}

func TestProcessor_HyphenatesProseOnly(t *testing.T) {
	p := New(Options{Hyphenator: hyphen.New(halves{}, 8)})

	out, err := p.Process(context.Background(), "Kommunikation `Kommunikation`\n\n```\nKommunikation\n```\n")
	require.NoError(t, err)
	out = strings.ReplaceAll(out, hyphen.SoftHyphen, "-")
	require.Contains(t, out, "<p>Kommun-ikation <code>Kommunikation</code></p>")
	require.Contains(t, out, "<pre><code>Kommunikation\n</code></pre>")
}

func TestProcessor_GFM(t *testing.T) {
	p := New(Options{})

	out, err := p.Process(context.Background(), "| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n")
	require.NoError(t, err)
	require.Contains(t, out, "<table>")
	require.Contains(t, out, "<del>gone</del>")
}

func TestProcessor_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Process(ctx, "text")
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_ResolvesEncodedImagePaths(t *testing.T) {
	cfg := config.Resolve(nil, t.TempDir())
	store := picture.NewRecordStore(cfg.Picture.DataDir)
	for _, name := range []string{"kép.jpg", "my photo.jpg"} {
		require.NoError(t, store.Put(&picture.PlaceholderRecord{
			Path:   name,
			Markup: picture.NewMarkupTemplate(`<picture><img src="/processed-images/uploads/` + name + `-1444.jpg" alt=""/></picture>`),
		}))
	}
	p := New(Options{Resolver: picture.NewResolver(cfg, store, nil)})

	out, err := p.Process(context.Background(),
		"![](/src/lib/images/uploads/kép.jpg)\n\n![](</src/lib/images/uploads/my photo.jpg>)\n")
	require.NoError(t, err)
	require.Contains(t, out, `<p><picture><img src="/processed-images/uploads/kép.jpg-1444.jpg" alt=""/></picture></p>`)
	require.Contains(t, out, `<p><picture><img src="/processed-images/uploads/my photo.jpg-1444.jpg" alt=""/></picture></p>`)
	require.NotContains(t, out, "/src/lib/images/uploads/")
}
