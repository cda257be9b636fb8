package markdown

import (
	"net/url"
	"strings"
)

// LinkRewriter maps absolute links on the site's own domains onto the
// presentation layer's base path.
type LinkRewriter struct {
	aliases  []string
	basePath string
}

// NewLinkRewriter returns a rewriter for the given host/path aliases (no
// protocol, for example "example.com" or "www.example.com/blog").
func NewLinkRewriter(aliases []string, basePath string) *LinkRewriter {
	cleaned := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.TrimRight(strings.TrimSpace(a), "/")
		if a != "" {
			cleaned = append(cleaned, a)
		}
	}
	return &LinkRewriter{aliases: cleaned, basePath: strings.TrimRight(basePath, "/")}
}

// Rewrite returns the rewritten href and whether it changed. Links without a
// host (relative paths, mailto:, fragments) and links not matching an alias
// are returned unchanged. The query and fragment are preserved.
func (r *LinkRewriter) Rewrite(href string) (string, bool, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href, false, err
	}
	if u.Host == "" {
		return href, false, nil
	}

	hostPath := u.Host + u.EscapedPath()
	for _, alias := range r.aliases {
		rest, ok := strings.CutPrefix(hostPath, alias)
		if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
			continue
		}
		out := r.basePath + rest
		if out == "" {
			out = "/"
		}
		if u.RawQuery != "" || u.ForceQuery {
			out += "?" + u.RawQuery
		}
		if u.Fragment != "" {
			out += "#" + u.EscapedFragment()
		}
		return out, true, nil
	}
	return href, false, nil
}
