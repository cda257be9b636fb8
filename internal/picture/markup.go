package picture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
)

// Slot tokens left unresolved in generated markup. The presentation layer
// substitutes them at render time; the pipeline never does.
const (
	SlotSizes = "##imgSizes##"
	SlotClass = "##imgClass##"
)

// MarkupTemplate is <picture> markup with two named slots, sizes and class.
// String returns the template with the slot tokens in place; Fill resolves
// them. The serialized form is always the unresolved template.
type MarkupTemplate struct {
	source string
}

// NewMarkupTemplate wraps existing template markup.
func NewMarkupTemplate(s string) MarkupTemplate { return MarkupTemplate{source: s} }

// String returns the unresolved template.
func (m MarkupTemplate) String() string { return m.source }

// IsZero reports whether the template is empty.
func (m MarkupTemplate) IsZero() bool { return m.source == "" }

// Fill substitutes the sizes and class slots. Values are attribute-escaped.
func (m MarkupTemplate) Fill(sizes, class string) string {
	r := strings.NewReplacer(
		SlotSizes, html.EscapeString(sizes),
		SlotClass, html.EscapeString(class),
	)
	return r.Replace(m.source)
}

// MarshalJSON encodes the template as a JSON string.
func (m MarkupTemplate) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.source)
}

// UnmarshalJSON decodes a JSON string into the template.
func (m *MarkupTemplate) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.source)
}

// BuildMarkup renders the <picture> template for an image at rel (slash
// separated, relative to the upload root).
func BuildMarkup(pc config.PictureConfig, rel string, width, height int, preview string) (MarkupTemplate, error) {
	base := publicBase(pc.PublicURL, rel)

	picture := element(atom.Picture)
	for _, f := range pc.Formats {
		candidates := make([]string, 0, len(f.Widths))
		for _, w := range f.Widths {
			candidates = append(candidates, fmt.Sprintf("%s-%d.%s %dw", base, w, f.Type, w))
		}
		picture.AppendChild(element(atom.Source,
			nethtml.Attribute{Key: "srcset", Val: strings.Join(candidates, ", ")},
			nethtml.Attribute{Key: "type", Val: "image/" + f.Type},
			nethtml.Attribute{Key: "sizes", Val: SlotSizes},
		))
	}

	df := pc.DefaultFormat
	picture.AppendChild(element(atom.Img,
		nethtml.Attribute{Key: "src", Val: fmt.Sprintf("%s-%d.%s", base, df.Width, df.Type)},
		nethtml.Attribute{Key: "alt", Val: ""},
		nethtml.Attribute{Key: "width", Val: strconv.Itoa(width)},
		nethtml.Attribute{Key: "height", Val: strconv.Itoa(height)},
		nethtml.Attribute{Key: "style", Val: fmt.Sprintf("background-image: url('%s')", preview)},
		nethtml.Attribute{Key: "class", Val: SlotClass},
	))

	var buf bytes.Buffer
	if err := nethtml.Render(&buf, picture); err != nil {
		return MarkupTemplate{}, err
	}
	return NewMarkupTemplate(buf.String()), nil
}

// FallbackImage renders a bare <img> bound to src with empty alt text. It is
// used for external images and images without a placeholder record.
func FallbackImage(src string) string {
	var buf bytes.Buffer
	_ = nethtml.Render(&buf, element(atom.Img,
		nethtml.Attribute{Key: "src", Val: src},
		nethtml.Attribute{Key: "alt", Val: ""},
	))
	return buf.String()
}

func publicBase(publicURL, rel string) string {
	return strings.TrimSuffix(publicURL, "/") + "/" + strings.TrimPrefix(rel, "/")
}

func element(a atom.Atom, attrs ...nethtml.Attribute) *nethtml.Node {
	return &nethtml.Node{
		Type:     nethtml.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}
