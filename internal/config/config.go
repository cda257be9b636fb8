// Package config resolves user options into the immutable configuration used
// by every pipeline stage.
package config

import "strings"

// Config is the resolved, read-only configuration for one run. Directory
// fields are absolute and end with a path separator.
type Config struct {
	// WorkDir is the root that relative paths (and CMS media paths) resolve against.
	WorkDir     string
	SchemaPath  string
	BaseAliases []string
	BasePath    string
	Picture     PictureConfig
	Content     ContentConfig
	Hyphenation HyphenationConfig
	// Reducers maps a collection name to the reducer names run over it.
	Reducers map[string][]string
}

// PictureConfig is the resolved image derivative configuration.
type PictureConfig struct {
	UploadDir     string
	DataDir       string
	BinaryDir     string
	PublicURL     string
	Formats       []ImageFormat
	DefaultFormat DefaultFormat
	Workers       int
}

// DefaultFormat is the fallback rendition used for the <img> element.
type DefaultFormat struct {
	Type  string
	Width int
}

// ContentConfig is the resolved content source and library layout.
type ContentConfig struct {
	SourceRoot  string
	LibraryRoot string
}

// HyphenationConfig is the resolved hyphenation configuration.
type HyphenationConfig struct {
	Enabled bool
	// Patterns is empty for the embedded default pattern set.
	Patterns      string
	MinWordLength int
}

// Rendition is a single (format, width) pair.
type Rendition struct {
	Format string
	Width  int
}

// Renditions returns every (format, width) pair in configuration order.
func (p PictureConfig) Renditions() []Rendition {
	var out []Rendition
	for _, f := range p.Formats {
		for _, w := range f.Widths {
			out = append(out, Rendition{Format: f.Type, Width: w})
		}
	}
	return out
}

// ReducersFor returns the reducer names registered for a collection.
func (c *Config) ReducersFor(collection string) []string {
	if c == nil || c.Reducers == nil {
		return nil
	}
	return c.Reducers[collection]
}

// normalizeFormatType lowercases a format name and strips a leading dot.
func normalizeFormatType(t string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(t)), ".")
}
