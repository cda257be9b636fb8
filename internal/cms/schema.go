// Package cms models the subset of a Decap CMS configuration document the
// content build reads: collections and their field trees.
package cms

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
)

// Widget names a field editor. Unknown widgets are carried verbatim and
// passed through by the transformer.
type Widget string

const (
	WidgetString   Widget = "string"
	WidgetText     Widget = "text"
	WidgetMarkdown Widget = "markdown"
	WidgetImage    Widget = "image"
	WidgetList     Widget = "list"
	WidgetObject   Widget = "object"
)

// Mode is how a collection stores its items.
type Mode int

const (
	// ModeFolder collections hold one file per item under Folder.
	ModeFolder Mode = iota
	// ModeFiles collections enumerate a fixed set of files.
	ModeFiles
)

func (m Mode) String() string {
	if m == ModeFiles {
		return "files"
	}
	return "folder"
}

// Document is a parsed CMS configuration.
type Document struct {
	MediaFolder  string       `yaml:"media_folder"`
	PublicFolder string       `yaml:"public_folder"`
	Collections  []Collection `yaml:"collections"`
}

// Collection is a named group of items sharing a field schema.
type Collection struct {
	Name      string  `yaml:"name"`
	Label     string  `yaml:"label"`
	Folder    string  `yaml:"folder"`
	Extension string  `yaml:"extension"`
	Format    string  `yaml:"format"`
	Files     []File  `yaml:"files"`
	Fields    []Field `yaml:"fields"`
}

// File is one entry of a files-mode collection.
type File struct {
	Name   string  `yaml:"name"`
	Label  string  `yaml:"label"`
	File   string  `yaml:"file"`
	Fields []Field `yaml:"fields"`
}

// Field is one node of a field tree. Lists use either Fields (items are
// objects) or Field (items are single values).
type Field struct {
	Name   string  `yaml:"name"`
	Label  string  `yaml:"label"`
	Widget Widget  `yaml:"widget"`
	Fields []Field `yaml:"fields"`
	Field  *Field  `yaml:"field"`
}

// Mode reports whether the collection is folder- or files-based.
func (c Collection) Mode() Mode {
	if len(c.Files) > 0 {
		return ModeFiles
	}
	return ModeFolder
}

// Collection returns the collection with the given name.
func (d *Document) Collection(name string) (Collection, bool) {
	for _, c := range d.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// Load reads and validates the CMS configuration at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, foundationerrors.SchemaError("failed to read CMS configuration").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, foundationerrors.SchemaError("invalid CMS configuration").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return doc, nil
}

// Parse decodes and validates a CMS configuration document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for i := range doc.Collections {
		normalizeFields(doc.Collections[i].Fields)
		for j := range doc.Collections[i].Files {
			normalizeFields(doc.Collections[i].Files[j].Fields)
		}
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	seen := make(map[string]bool, len(d.Collections))
	for i, c := range d.Collections {
		if c.Name == "" {
			return fmt.Errorf("collection %d: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("collection %q: duplicate name", c.Name)
		}
		seen[c.Name] = true
		if c.Folder == "" && len(c.Files) == 0 {
			return fmt.Errorf("collection %q: one of folder or files is required", c.Name)
		}
		for _, f := range c.Files {
			if f.File == "" {
				return fmt.Errorf("collection %q: file entry %q has no file path", c.Name, f.Name)
			}
		}
	}
	return nil
}

// normalizeFields applies the CMS default widget to fields that omit one.
func normalizeFields(fields []Field) {
	for i := range fields {
		f := &fields[i]
		if f.Widget == "" {
			f.Widget = WidgetString
		}
		normalizeFields(f.Fields)
		if f.Field != nil {
			single := []Field{*f.Field}
			normalizeFields(single)
			f.Field = &single[0]
		}
	}
}
