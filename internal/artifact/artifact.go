// Package artifact encodes and writes the typed data files consumed by the
// presentation layer.
//
// Every artifact is a JSON envelope:
//
//	{"binding": "data_<id>", "alias": "data", "data": <value>}
//
// The sample artifact of a collection also carries "types", a map from a
// shape name to a JSON Schema describing the collection's items.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// KindJSON is the only dataset kind the writer accepts.
const KindJSON = "json"

// Alias is the secondary name every artifact's data is exported under.
const Alias = "data"

// Artifact is one encoded output file.
type Artifact struct {
	// Path is the absolute destination.
	Path    string
	Binding string
	// Content is the encoded envelope.
	Content []byte
	// Value is the data in generic JSON form (maps, slices, json.Number).
	Value any
}

// Envelope is the on-disk layout of an artifact.
type Envelope struct {
	Binding string          `json:"binding"`
	Alias   string          `json:"alias"`
	Types   map[string]any  `json:"types,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// New encodes value into an artifact bound to binding at path.
func New(path, binding string, value any) (Artifact, error) {
	return encode(path, binding, value, nil)
}

// NewSample encodes a sample artifact that also exports shape under typeName.
func NewSample(path, binding string, value any, typeName string, shape map[string]any) (Artifact, error) {
	return encode(path, binding, value, map[string]any{typeName: shape})
}

func encode(path, binding string, value any, types map[string]any) (Artifact, error) {
	data, err := marshal(value)
	if err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", binding, err)
	}
	generic, err := decodeGeneric(data)
	if err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", binding, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Envelope{Binding: binding, Alias: Alias, Types: types, Data: data}); err != nil {
		return Artifact{}, fmt.Errorf("encode %s: %w", binding, err)
	}
	return Artifact{Path: path, Binding: binding, Content: buf.Bytes(), Value: generic}, nil
}

// Decode parses an encoded envelope.
func Decode(content []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Write stores a's content at a.Path, creating parent directories.
func Write(a Artifact) error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(a.Path, a.Content, 0o644)
}

func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
