// Package hyphen inserts soft hyphens into long words of prose.
package hyphen

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/speedata/hyphenation"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SoftHyphen is U+00AD, invisible unless the browser breaks the line there.
const SoftHyphen = "\u00ad"

// Breaker returns the rune offsets inside word where a break is allowed.
type Breaker interface {
	Hyphenate(word string) []int
}

// Hyphenator applies a Breaker to words of at least MinWordLength runes.
// A Hyphenator without a Breaker returns its input unchanged.
type Hyphenator struct {
	breaker       Breaker
	minWordLength int
}

// New wraps breaker. minWordLength below 1 hyphenates every word.
func New(breaker Breaker, minWordLength int) *Hyphenator {
	return &Hyphenator{breaker: breaker, minWordLength: minWordLength}
}

// hungarianPatterns are Liang patterns for Hungarian syllabification: a
// break before the last consonant (or digraph) of a cluster and between
// vowels.
//
//go:embed patterns/hyph-hu.pat.txt
var hungarianPatterns []byte

// Edge limits: breaks leave at least two runes on both sides.
const (
	leftMin  = 1
	rightMin = 2
)

// Disabled returns a Hyphenator that leaves text untouched.
func Disabled() *Hyphenator { return New(nil, 0) }

// Load reads TeX hyphenation patterns from path. An empty path loads the
// embedded Hungarian patterns.
func Load(path string, minWordLength int) (*Hyphenator, error) {
	if path == "" {
		return parse(bytes.NewReader(hungarianPatterns), "embedded hu", minWordLength)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hyphenation patterns: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parse(f, path, minWordLength)
}

func parse(r io.Reader, name string, minWordLength int) (*Hyphenator, error) {
	lang, err := hyphenation.New(r)
	if err != nil {
		return nil, fmt.Errorf("parse hyphenation patterns %s: %w", name, err)
	}
	lang.Leftmin = leftMin
	lang.Rightmin = rightMin
	return New(lang, minWordLength), nil
}

// Enabled reports whether a pattern set is loaded.
func (h *Hyphenator) Enabled() bool { return h != nil && h.breaker != nil }

// Text hyphenates every qualifying word in s.
func (h *Hyphenator) Text(s string) string {
	if !h.Enabled() || s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	start := -1
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			h.writeWord(&b, s[start:i])
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		h.writeWord(&b, s[start:])
	}
	return b.String()
}

func (h *Hyphenator) writeWord(b *strings.Builder, word string) {
	n := utf8.RuneCountInString(word)
	if n < h.minWordLength || strings.Contains(word, SoftHyphen) {
		b.WriteString(word)
		return
	}
	breaks := make(map[int]bool)
	for _, p := range h.breaker.Hyphenate(word) {
		if p > 0 && p < n {
			breaks[p] = true
		}
	}
	idx := 0
	for _, r := range word {
		if breaks[idx] {
			b.WriteString(SoftHyphen)
		}
		b.WriteRune(r)
		idx++
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.Is(unicode.Mn, r)
}

// skipped elements keep their text verbatim.
var skipped = map[atom.Atom]bool{
	atom.Code:     true,
	atom.Pre:      true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Textarea: true,
}

// Node hyphenates the text nodes below n in place. Markup is not changed.
func (h *Hyphenator) Node(n *html.Node) {
	if !h.Enabled() || n == nil {
		return
	}
	if n.Type == html.ElementNode && skipped[n.DataAtom] {
		return
	}
	if n.Type == html.TextNode {
		n.Data = h.Text(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		h.Node(c)
	}
}
