package artifact

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Identifier turns a name into a valid binding identifier: diacritics are
// folded, hyphens become underscores and every other character outside
// [A-Za-z0-9_] is dropped.
func Identifier(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '-':
			b.WriteByte('_')
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ItemBinding is the binding of an item artifact.
func ItemBinding(name string) string { return "data_" + Identifier(name) }

// DatasetBinding is the binding of a reducer dataset.
func DatasetBinding(collection, dataset string) string {
	return "data_" + Identifier(collection) + "_" + Identifier(dataset)
}

// ShapeName is the type name a collection's sample exports.
func ShapeName(collection string) string { return "InstanceOf_" + Identifier(collection) }
