package config

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// Named defaults. They match the layout of a SvelteKit project managed with Decap CMS.
const (
	DefaultSchemaPath    = "static/admin/config.yml"
	DefaultUploadDir     = "src/lib/images/uploads/"
	DefaultDataDir       = "src/lib/images/data/"
	DefaultBinaryDir     = "static/processed-images/uploads/"
	DefaultPublicURL     = "/processed-images/uploads/"
	DefaultSourceRoot    = "_content-src"
	DefaultLibraryRoot   = "src/lib/content"
	DefaultMinWordLength = 8
	DefaultFormatType    = "jpg"
)

// DefaultWidths are used for the default format and for formats that list no widths.
var DefaultWidths = []int{360, 420, 1444}

// DefaultApplier fills one configuration domain from the options.
type DefaultApplier interface {
	Domain() string
	Apply(opts *Options, cfg *Config)
}

// Resolve turns possibly partial options into a fully populated Config.
// It never fails: every omission falls back to a named default. cwd is the
// root relative directories are resolved against; empty means os.Getwd.
func Resolve(opts *Options, cwd string) *Config {
	if opts == nil {
		opts = &Options{}
	}
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}

	cfg := &Config{WorkDir: dirPath(cwd, "")}
	for _, a := range defaultAppliers() {
		a.Apply(opts, cfg)
	}
	return cfg
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&SchemaDefaultApplier{},
		&LinkDefaultApplier{},
		&PictureDefaultApplier{},
		&ContentDefaultApplier{},
		&HyphenationDefaultApplier{},
		&ReducerDefaultApplier{},
	}
}

// SchemaDefaultApplier resolves the CMS schema document path.
type SchemaDefaultApplier struct{}

func (SchemaDefaultApplier) Domain() string { return "schema" }

func (SchemaDefaultApplier) Apply(opts *Options, cfg *Config) {
	p := strings.TrimSpace(opts.ConfigPath)
	if p == "" {
		p = DefaultSchemaPath
	}
	cfg.SchemaPath = absPath(cfg.WorkDir, p)
}

// LinkDefaultApplier handles base aliases and the presentation base path.
type LinkDefaultApplier struct{}

func (LinkDefaultApplier) Domain() string { return "links" }

func (LinkDefaultApplier) Apply(opts *Options, cfg *Config) {
	cfg.BaseAliases = make([]string, 0, len(opts.BaseAliases))
	for _, alias := range opts.BaseAliases {
		if alias = strings.TrimSpace(alias); alias != "" {
			cfg.BaseAliases = append(cfg.BaseAliases, alias)
		}
	}
	cfg.BasePath = strings.TrimRight(strings.TrimSpace(opts.BasePath), "/")
}

// PictureDefaultApplier handles image directories and the format matrix.
type PictureDefaultApplier struct{}

func (PictureDefaultApplier) Domain() string { return "picture" }

func (PictureDefaultApplier) Apply(opts *Options, cfg *Config) {
	p := opts.Picture
	if p == nil {
		p = &PictureOptions{}
	}
	cfg.Picture.UploadDir = dirPath(cfg.WorkDir, orDefault(p.ImageUploadDirectory, DefaultUploadDir))
	cfg.Picture.DataDir = dirPath(cfg.WorkDir, orDefault(p.ImageDataDest, DefaultDataDir))
	cfg.Picture.BinaryDir = dirPath(cfg.WorkDir, orDefault(p.ImageDest, DefaultBinaryDir))

	publicURL := orDefault(p.ImageDestURL, DefaultPublicURL)
	if !strings.HasSuffix(publicURL, "/") {
		publicURL += "/"
	}
	cfg.Picture.PublicURL = publicURL

	cfg.Picture.Formats = normalizeFormats(p.Formats)
	last := cfg.Picture.Formats[len(cfg.Picture.Formats)-1]
	cfg.Picture.DefaultFormat = DefaultFormat{Type: last.Type, Width: last.Widths[len(last.Widths)-1]}

	cfg.Picture.Workers = p.Workers
	if cfg.Picture.Workers <= 0 {
		cfg.Picture.Workers = runtime.GOMAXPROCS(0)
	}
}

// ContentDefaultApplier handles the content source and library roots.
type ContentDefaultApplier struct{}

func (ContentDefaultApplier) Domain() string { return "content" }

func (ContentDefaultApplier) Apply(opts *Options, cfg *Config) {
	c := opts.Content
	if c == nil {
		c = &ContentOptions{}
	}
	cfg.Content.SourceRoot = dirPath(cfg.WorkDir, orDefault(c.SourceRoot, DefaultSourceRoot))
	cfg.Content.LibraryRoot = dirPath(cfg.WorkDir, orDefault(c.LibraryRoot, DefaultLibraryRoot))
}

// HyphenationDefaultApplier handles the pattern file and word length threshold.
type HyphenationDefaultApplier struct{}

func (HyphenationDefaultApplier) Domain() string { return "hyphenation" }

func (HyphenationDefaultApplier) Apply(opts *Options, cfg *Config) {
	h := opts.Hyphenation
	if h == nil {
		h = &HyphenationOptions{}
	}
	cfg.Hyphenation.Enabled = !h.Disabled
	if strings.TrimSpace(h.Patterns) != "" {
		cfg.Hyphenation.Patterns = absPath(cfg.WorkDir, h.Patterns)
	}
	cfg.Hyphenation.MinWordLength = h.MinWordLength
	if cfg.Hyphenation.MinWordLength <= 0 {
		cfg.Hyphenation.MinWordLength = DefaultMinWordLength
	}
}

// ReducerDefaultApplier copies the collection to reducer mapping.
type ReducerDefaultApplier struct{}

func (ReducerDefaultApplier) Domain() string { return "reducers" }

func (ReducerDefaultApplier) Apply(opts *Options, cfg *Config) {
	cfg.Reducers = make(map[string][]string, len(opts.ReducerByCollection))
	for collection, names := range opts.ReducerByCollection {
		var cleaned []string
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				cleaned = append(cleaned, n)
			}
		}
		if len(cleaned) > 0 {
			cfg.Reducers[collection] = cleaned
		}
	}
}

func normalizeFormats(in []ImageFormat) []ImageFormat {
	out := make([]ImageFormat, 0, len(in))
	for _, f := range in {
		t := normalizeFormatType(f.Type)
		if t == "" {
			continue
		}
		widths := make([]int, 0, len(f.Widths))
		for _, w := range f.Widths {
			if w > 0 {
				widths = append(widths, w)
			}
		}
		if len(widths) == 0 {
			widths = slices.Clone(DefaultWidths)
		}
		out = append(out, ImageFormat{Type: t, Widths: widths})
	}
	if len(out) == 0 {
		out = append(out, ImageFormat{Type: DefaultFormatType, Widths: slices.Clone(DefaultWidths)})
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// absPath joins p onto root unless p is already absolute.
func absPath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// dirPath is absPath with a trailing separator so prefix checks and
// relative joins against the directory are unambiguous.
func dirPath(root, p string) string {
	d := absPath(root, p)
	if !strings.HasSuffix(d, string(filepath.Separator)) {
		d += string(filepath.Separator)
	}
	return d
}
