package picture

import (
	"path/filepath"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
)

// Asset identifies a source image by its slash-separated path relative to the
// upload root.
type Asset struct {
	Rel string
	Abs string
}

// PlaceholderRecord is the persisted description of one source image.
type PlaceholderRecord struct {
	Path          string         `json:"path"`
	NaturalWidth  int            `json:"width"`
	NaturalHeight int            `json:"height"`
	Preview       string         `json:"preview"`
	Markup        MarkupTemplate `json:"markup"`
}

// Derivative is one resized and re-encoded rendition of a source image.
type Derivative struct {
	Source string
	Format string
	Width  int
	Dest   string
}

// DerivativesFor lists the derivatives of rel in configuration order.
// Dest is <BinaryDir>/<rel>-<width>.<format>.
func DerivativesFor(pc config.PictureConfig, rel string) []Derivative {
	renditions := pc.Renditions()
	out := make([]Derivative, 0, len(renditions))
	for _, r := range renditions {
		out = append(out, Derivative{
			Source: rel,
			Format: r.Format,
			Width:  r.Width,
			Dest:   DerivativePath(pc.BinaryDir, rel, r.Format, r.Width),
		})
	}
	return out
}

// DerivativePath returns the destination of a single rendition.
func DerivativePath(binaryDir, rel, format string, width int) string {
	name := rel + "-" + strconv.Itoa(width) + "." + format
	return filepath.Join(binaryDir, filepath.FromSlash(name))
}

// relPath returns the slash-separated path of abs relative to root, or false
// when abs is not below root.
func relPath(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
