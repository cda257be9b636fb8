package reduce

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cmsbuild/internal/artifact"
	foundationerrors "git.home.luguber.info/inful/cmsbuild/internal/foundation/errors"
)

func items() []artifact.Artifact {
	return []artifact.Artifact{
		{Path: "/lib/posts/b.json", Value: map[string]any{"title": "B", "date": "2024-02-01", "tags": []any{"go", "cms"}, "body": "x"}},
		{Path: "/lib/posts/a.json", Value: map[string]any{"title": "A", "tags": []any{"go"}}},
	}
}

func TestSummaries(t *testing.T) {
	ds, err := Summaries("posts", items())
	require.NoError(t, err)
	require.Equal(t, artifact.KindJSON, ds["summaries"].Kind)

	data, err := json.Marshal(ds["summaries"].Data)
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"title":"B","date":"2024-02-01","slug":"b","tags":["go","cms"]},
		{"title":"A","slug":"a","tags":["go"]}
	]`, string(data))
}

func TestTags(t *testing.T) {
	ds, err := Tags("posts", items())
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"go": {"a", "b"}, "cms": {"b"}}, ds["tags"].Data)
}

func TestRegistry_Run(t *testing.T) {
	r := DefaultRegistry()
	require.Equal(t, []string{"summaries", "tags"}, r.Names())

	ds, err := r.Run("posts", []string{"summaries", "tags"}, items())
	require.NoError(t, err)
	require.Equal(t, []string{"summaries", "tags"}, SortedNames(ds))
}

func TestRegistry_RunRejectsNonJSONKind(t *testing.T) {
	r := DefaultRegistry()
	require.NoError(t, r.Register("broken", func(string, []artifact.Artifact) (map[string]Dataset, error) {
		return map[string]Dataset{
			"good": {Kind: artifact.KindJSON, Data: 1},
			"bad":  {Kind: "ts", Data: 2},
		}, nil
	}))

	_, err := r.Run("posts", []string{"summaries", "broken"}, items())
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryReducer))
	require.True(t, foundationerrors.HasSeverity(err, foundationerrors.SeverityFatal))
	require.Contains(t, err.Error(), "posts")
	require.Contains(t, err.Error(), "bad")
}

func TestRegistry_Errors(t *testing.T) {
	r := DefaultRegistry()
	require.Error(t, r.Register("summaries", Summaries))
	require.Error(t, r.Register("", Summaries))

	_, err := r.Run("posts", []string{"nope"}, nil)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryReducer))

	require.NoError(t, r.Register("fails", func(string, []artifact.Artifact) (map[string]Dataset, error) {
		return nil, errors.New("boom")
	}))
	_, err = r.Run("posts", []string{"fails"}, nil)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryReducer))

	require.NoError(t, r.Register("summaries2", Summaries))
	_, err = r.Run("posts", []string{"summaries", "summaries2"}, nil)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryReducer))
}

func TestSlug(t *testing.T) {
	require.Equal(t, "my-post", Slug("/x/y/my-post.json"))
	require.Equal(t, "noext", Slug("noext"))
}
