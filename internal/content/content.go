// Package content loads raw CMS items from disk.
//
// Supported encodings are JSON (comments and trailing commas tolerated),
// YAML, and Markdown with YAML frontmatter, whose body is stored under the
// "body" key.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
)

// BodyKey holds the Markdown body of a frontmatter document.
const BodyKey = "body"

// RawItem is an untransformed item: field name to raw value.
type RawItem map[string]any

// Extensions lists the file extensions Load understands.
var Extensions = []string{".json", ".yml", ".yaml", ".md", ".markdown"}

// Supported reports whether Load can decode path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads and decodes the item at path. Failures are content errors.
func Load(path string) (RawItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, foundationerrors.ContentError("failed to read content item").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	item, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, foundationerrors.ContentError("failed to decode content item").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return item, nil
}

// Decode parses data according to the file extension ext.
func Decode(ext string, data []byte) (RawItem, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return decodeJSON(data)
	case ".yml", ".yaml":
		return decodeYAML(data)
	case ".md", ".markdown":
		return decodeMarkdown(data)
	default:
		return nil, fmt.Errorf("unsupported content extension %q", ext)
	}
}

func decodeJSON(data []byte) (RawItem, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var item RawItem
	if err := dec.Decode(&item); err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("content item is not an object")
	}
	return item, nil
}

func decodeYAML(data []byte) (RawItem, error) {
	var item RawItem
	if err := yaml.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	if item == nil {
		item = RawItem{}
	}
	return item, nil
}

func decodeMarkdown(data []byte) (RawItem, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	item, err := decodeYAML(fm)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}
	item[BodyKey] = string(body)
	return item, nil
}
