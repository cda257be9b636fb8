package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Options is the user-supplied configuration document. Every field is
// optional; Resolve fills the gaps.
type Options struct {
	// ConfigPath points at the CMS schema document (Decap config.yml).
	ConfigPath string `yaml:"configPath,omitempty"`
	// BaseAliases are host/path prefixes (no protocol) treated as internal links.
	BaseAliases []string `yaml:"baseAliases,omitempty"`
	// BasePath is the presentation layer's base path that replaces a matched alias.
	BasePath            string                 `yaml:"basePath,omitempty"`
	Picture             *PictureOptions        `yaml:"picture,omitempty"`
	Content             *ContentOptions        `yaml:"content,omitempty"`
	Hyphenation         *HyphenationOptions    `yaml:"hyphenation,omitempty"`
	ReducerByCollection map[string]ReducerList `yaml:"reducerByCollection,omitempty"`
}

// PictureOptions configures the image derivative engine.
type PictureOptions struct {
	ImageUploadDirectory string `yaml:"imageUploadDirectory,omitempty"`
	ImageDataDest        string `yaml:"imageDataDest,omitempty"`
	ImageDest            string `yaml:"imageDest,omitempty"`
	ImageDestURL         string `yaml:"imageDestUrl,omitempty"`
	// Formats are ordered; the last format's last width is the fallback rendition.
	Formats []ImageFormat `yaml:"formats,omitempty"`
	Workers int           `yaml:"workers,omitempty"`
}

// ContentOptions configures where raw content lives and where artifacts go.
type ContentOptions struct {
	SourceRoot  string `yaml:"sourceRoot,omitempty"`
	LibraryRoot string `yaml:"libraryRoot,omitempty"`
}

// HyphenationOptions configures prose hyphenation.
type HyphenationOptions struct {
	// Disabled turns hyphenation off.
	Disabled bool `yaml:"disabled,omitempty"`
	// Patterns is a TeX hyphenation pattern file. Empty uses the embedded
	// Hungarian patterns.
	Patterns      string `yaml:"patterns,omitempty"`
	MinWordLength int    `yaml:"minWordLength,omitempty"`
}

// ImageFormat is one output encoding and the widths rendered in it.
type ImageFormat struct {
	Type   string `yaml:"type"`
	Widths []int  `yaml:"widths"`
}

// ReducerList accepts either a single reducer name or a list of names.
type ReducerList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *ReducerList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = ReducerList{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*r = names
		return nil
	default:
		return fmt.Errorf("reducer list: line %d: expected a name or a list of names", node.Line)
	}
}
