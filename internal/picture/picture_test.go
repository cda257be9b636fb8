package picture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
)

func testConfig(t *testing.T, formats ...config.ImageFormat) *config.Config {
	t.Helper()
	return config.Resolve(&config.Options{
		Picture: &config.PictureOptions{Formats: formats, Workers: 2},
	}, t.TempDir())
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()
	require.NoError(t, png.Encode(f, img))
}

// countingEncoder writes a fixed payload and counts invocations.
type countingEncoder struct{ calls atomic.Int64 }

func (c *countingEncoder) encode(w io.Writer, _ image.Image) error {
	c.calls.Add(1)
	_, err := w.Write([]byte("encoded"))
	return err
}

func TestDerivativesFor(t *testing.T) {
	cfg := testConfig(t,
		config.ImageFormat{Type: "avif", Widths: []int{360, 420}},
		config.ImageFormat{Type: "jpg", Widths: []int{1440}},
	)
	got := DerivativesFor(cfg.Picture, "team/portrait.jpg")

	bin := cfg.Picture.BinaryDir
	require.Equal(t, []Derivative{
		{Source: "team/portrait.jpg", Format: "avif", Width: 360, Dest: filepath.Join(bin, "team", "portrait.jpg-360.avif")},
		{Source: "team/portrait.jpg", Format: "avif", Width: 420, Dest: filepath.Join(bin, "team", "portrait.jpg-420.avif")},
		{Source: "team/portrait.jpg", Format: "jpg", Width: 1440, Dest: filepath.Join(bin, "team", "portrait.jpg-1440.jpg")},
	}, got)
}

func TestBuildMarkup(t *testing.T) {
	cfg := testConfig(t,
		config.ImageFormat{Type: "avif", Widths: []int{360, 420}},
		config.ImageFormat{Type: "jpg", Widths: []int{1440}},
	)

	m, err := BuildMarkup(cfg.Picture, "a.jpg", 800, 600, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	out := m.String()
	require.True(t, strings.HasPrefix(out, "<picture>"))
	require.Contains(t, out, `srcset="/processed-images/uploads/a.jpg-360.avif 360w, /processed-images/uploads/a.jpg-420.avif 420w"`)
	require.Contains(t, out, `type="image/avif"`)
	require.Contains(t, out, `sizes="##imgSizes##"`)
	require.Contains(t, out, `src="/processed-images/uploads/a.jpg-1440.jpg"`)
	require.Contains(t, out, `class="##imgClass##"`)

	nodes, err := nethtml.ParseFragment(strings.NewReader(out), &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	var sources int
	var img *nethtml.Node
	for c := nodes[0].FirstChild; c != nil; c = c.NextSibling {
		switch c.Data {
		case "source":
			sources++
		case "img":
			img = c
		}
	}
	require.Equal(t, 2, sources)
	require.NotNil(t, img)
	attrs := map[string]string{}
	for _, a := range img.Attr {
		attrs[a.Key] = a.Val
	}
	require.Equal(t, "", attrs["alt"])
	require.Equal(t, "800", attrs["width"])
	require.Equal(t, "600", attrs["height"])
	require.Equal(t, "background-image: url('data:image/jpeg;base64,AAAA')", attrs["style"])
}

func TestMarkupTemplate_Fill(t *testing.T) {
	m := NewMarkupTemplate(`<img sizes="##imgSizes##" class="##imgClass##"/>`)
	require.Equal(t, `<img sizes="100vw" class="hero"/>`, m.Fill("100vw", "hero"))
	require.Equal(t, `<img sizes="##imgSizes##" class="##imgClass##"/>`, m.String())
}

func TestEngine_ProcessAllIsIdempotent(t *testing.T) {
	cfg := testConfig(t,
		config.ImageFormat{Type: "avif", Widths: []int{8, 16}},
		config.ImageFormat{Type: "jpg", Widths: []int{24}},
	)
	writePNG(t, filepath.Join(cfg.Picture.UploadDir, "a.png"), 32, 20)
	writePNG(t, filepath.Join(cfg.Picture.UploadDir, "nested", "b.png"), 12, 12)
	writePNG(t, filepath.Join(cfg.Picture.UploadDir, ".hidden.png"), 4, 4)

	enc := &countingEncoder{}
	store := NewRecordStore(cfg.Picture.DataDir)
	engine, err := NewEngine(cfg.Picture, store,
		WithEncoder("avif", enc.encode),
		WithEncoder("jpg", enc.encode),
	)
	require.NoError(t, err)

	report, err := engine.ProcessAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Images)
	require.Equal(t, 6, report.Generated)
	require.Equal(t, 0, report.Skipped)
	require.EqualValues(t, 6, enc.calls.Load())

	for _, d := range append(DerivativesFor(cfg.Picture, "a.png"), DerivativesFor(cfg.Picture, "nested/b.png")...) {
		require.FileExists(t, d.Dest)
	}
	require.NoFileExists(t, DerivativePath(cfg.Picture.BinaryDir, ".hidden.png", "jpg", 24))

	rec, err := NewRecordStore(cfg.Picture.DataDir).Get("nested/b.png")
	require.NoError(t, err)
	require.Equal(t, 12, rec.NaturalWidth)
	require.Equal(t, 12, rec.NaturalHeight)
	require.True(t, strings.HasPrefix(rec.Preview, "data:image/jpeg;base64,"))
	require.Contains(t, rec.Markup.String(), "nested/b.png-24.jpg")

	enc.calls.Store(0)
	report, err = engine.ProcessAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Generated)
	require.Equal(t, 6, report.Skipped)
	require.Zero(t, enc.calls.Load())
}

func TestEngine_NeverEnlarges(t *testing.T) {
	cfg := testConfig(t, config.ImageFormat{Type: "png", Widths: []int{10, 64}})
	writePNG(t, filepath.Join(cfg.Picture.UploadDir, "small.png"), 20, 10)

	engine, err := NewEngine(cfg.Picture, NewRecordStore(cfg.Picture.DataDir))
	require.NoError(t, err)
	_, err = engine.ProcessAll(context.Background())
	require.NoError(t, err)

	check := func(width, wantW, wantH int) {
		f, err := os.Open(DerivativePath(cfg.Picture.BinaryDir, "small.png", "png", width))
		require.NoError(t, err)
		defer f.Close()
		c, err := png.DecodeConfig(f)
		require.NoError(t, err)
		require.Equal(t, wantW, c.Width)
		require.Equal(t, wantH, c.Height)
	}
	check(10, 10, 5)
	check(64, 20, 10)
}

func TestEngine_EncodeFailureIsFatal(t *testing.T) {
	cfg := testConfig(t, config.ImageFormat{Type: "jpg", Widths: []int{8}})
	writePNG(t, filepath.Join(cfg.Picture.UploadDir, "a.png"), 16, 16)

	engine, err := NewEngine(cfg.Picture, NewRecordStore(cfg.Picture.DataDir),
		WithEncoder("jpg", func(io.Writer, image.Image) error { return errors.New("boom") }))
	require.NoError(t, err)

	_, err = engine.ProcessAll(context.Background())
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryImage))
	require.True(t, foundationerrors.HasSeverity(err, foundationerrors.SeverityFatal))
	require.NoFileExists(t, DerivativePath(cfg.Picture.BinaryDir, "a.png", "jpg", 8))
}

func TestEngine_UndecodableFileIsFatal(t *testing.T) {
	cfg := testConfig(t, config.ImageFormat{Type: "jpg", Widths: []int{8}})
	require.NoError(t, os.MkdirAll(cfg.Picture.UploadDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Picture.UploadDir, "notes.txt"), []byte("hello"), 0o600))

	engine, err := NewEngine(cfg.Picture, NewRecordStore(cfg.Picture.DataDir))
	require.NoError(t, err)
	_, err = engine.ProcessAll(context.Background())
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryImage))
}

func TestEngine_MissingUploadDir(t *testing.T) {
	cfg := testConfig(t)
	engine, err := NewEngine(cfg.Picture, NewRecordStore(cfg.Picture.DataDir))
	require.NoError(t, err)
	report, err := engine.ProcessAll(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.Images)
}

func TestNewEngine_UnknownFormat(t *testing.T) {
	cfg := testConfig(t, config.ImageFormat{Type: "jxl", Widths: []int{8}})
	_, err := NewEngine(cfg.Picture, NewRecordStore(cfg.Picture.DataDir))
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestFSCache(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "deep", "dir", "file.bin")
	var c FSCache

	ok, err := c.Exists(dest)
	require.NoError(t, err)
	require.False(t, ok)

	err = c.Write(dest, func(io.Writer) error { return errors.New("nope") })
	require.Error(t, err)
	ok, err = c.Exists(dest)
	require.NoError(t, err)
	require.False(t, ok)
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, c.Write(dest, func(w io.Writer) error {
		_, err := w.Write([]byte("ok"))
		return err
	}))
	ok, err = c.Exists(dest)
	require.NoError(t, err)
	require.True(t, ok)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "ok", string(data))
}
