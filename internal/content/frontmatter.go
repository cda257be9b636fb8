package content

import (
	"bytes"
	"errors"
)

var errUnterminatedFrontmatter = errors.New("frontmatter opened with --- but never closed")

// splitFrontmatter separates a leading ----delimited YAML block from the
// body. Documents without one have an empty frontmatter. CRLF line endings
// are normalized first.
func splitFrontmatter(data []byte) (fm, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, data, nil
	}
	rest := data[len("---\n"):]
	if bytes.HasPrefix(rest, []byte("---\n")) {
		return nil, rest[len("---\n"):], nil
	}
	idx := bytes.Index(rest, []byte("\n---"))
	for idx >= 0 {
		end := idx + len("\n---")
		if end == len(rest) {
			return rest[:idx+1], nil, nil
		}
		if rest[end] == '\n' {
			return rest[:idx+1], rest[end+1:], nil
		}
		next := bytes.Index(rest[end:], []byte("\n---"))
		if next < 0 {
			break
		}
		idx = end + next
	}
	return nil, nil, errUnterminatedFrontmatter
}
