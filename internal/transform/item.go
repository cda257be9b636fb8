package transform

import (
	"bytes"
	"encoding/json"
)

// Item is a transformed content item. Keys keeps schema field order, which is
// also the order MarshalJSON writes.
type Item struct {
	Keys   []string
	Values map[string]any
}

// NewItem returns an empty item.
func NewItem() *Item {
	return &Item{Values: make(map[string]any)}
}

// Set stores v under k, appending k on first use.
func (it *Item) Set(k string, v any) {
	if _, ok := it.Values[k]; !ok {
		it.Keys = append(it.Keys, k)
	}
	it.Values[k] = v
}

// Get returns the value stored under k.
func (it *Item) Get(k string) (any, bool) {
	v, ok := it.Values[k]
	return v, ok
}

// Len returns the number of keys.
func (it *Item) Len() int { return len(it.Keys) }

// MarshalJSON writes the item as an object in key order. HTML in string
// values is not escaped.
func (it *Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range it.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := MarshalJSON(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalJSON(it.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes v without HTML escaping and without a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
