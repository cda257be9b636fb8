package reduce

import (
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/cmsbuild/internal/artifact"
)

// Summary is one entry of the summaries dataset.
type Summary struct {
	Title       any    `json:"title,omitempty"`
	Date        any    `json:"date,omitempty"`
	Slug        string `json:"slug"`
	Description any    `json:"description,omitempty"`
	Image       any    `json:"image,omitempty"`
	Tags        any    `json:"tags,omitempty"`
}

// Summaries lists title, date, slug, description, image and tags of every
// item in input order. The slug is the artifact file name without extension.
func Summaries(_ string, items []artifact.Artifact) (map[string]Dataset, error) {
	out := make([]Summary, 0, len(items))
	for _, it := range items {
		v, _ := it.Value.(map[string]any)
		get := func(k string) any {
			if v == nil {
				return nil
			}
			return v[k]
		}
		out = append(out, Summary{
			Title:       get("title"),
			Date:        get("date"),
			Slug:        Slug(it.Path),
			Description: get("description"),
			Image:       get("image"),
			Tags:        get("tags"),
		})
	}
	return map[string]Dataset{"summaries": {Kind: artifact.KindJSON, Data: out}}, nil
}

// Tags maps each tag to the sorted slugs of the items carrying it.
func Tags(_ string, items []artifact.Artifact) (map[string]Dataset, error) {
	index := make(map[string][]string)
	for _, it := range items {
		v, _ := it.Value.(map[string]any)
		tags, _ := v["tags"].([]any)
		slug := Slug(it.Path)
		for _, t := range tags {
			s, ok := t.(string)
			if !ok || s == "" {
				continue
			}
			index[s] = append(index[s], slug)
		}
	}
	for tag := range index {
		sort.Strings(index[tag])
	}
	return map[string]Dataset{"tags": {Kind: artifact.KindJSON, Data: index}}, nil
}

// Slug returns the base name of path without its extension.
func Slug(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
