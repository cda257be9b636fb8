package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentifier(t *testing.T) {
	tests := map[string]string{
		"posts":            "posts",
		"my-first-post":    "my_first_post",
		"Ärger über Öl":    "ArgeruberOl",
		"hello.world!":     "helloworld",
		"snake_case-mixed": "snake_case_mixed",
		"":                 "",
	}
	for in, want := range tests {
		require.Equal(t, want, Identifier(in), in)
	}
	require.Equal(t, "data_blog_post", ItemBinding("blog-post"))
	require.Equal(t, "data_posts_summaries", DatasetBinding("posts", "summaries"))
	require.Equal(t, "InstanceOf_posts", ShapeName("posts"))
}

func TestNew_Envelope(t *testing.T) {
	a, err := New("/out/a.json", "data_a", map[string]any{"html": "<p>x</p>", "n": json.Number("2")})
	require.NoError(t, err)
	require.Equal(t, "data_a", a.Binding)
	require.Contains(t, string(a.Content), `"html": "<p>x</p>"`)

	env, err := Decode(a.Content)
	require.NoError(t, err)
	require.Equal(t, "data_a", env.Binding)
	require.Equal(t, Alias, env.Alias)
	require.Nil(t, env.Types)
	require.JSONEq(t, `{"html":"<p>x</p>","n":2}`, string(env.Data))
	require.Equal(t, map[string]any{"html": "<p>x</p>", "n": json.Number("2")}, a.Value)
}

func TestNewSample_CarriesShape(t *testing.T) {
	value := map[string]any{"title": "A"}
	a, err := NewSample("/out/sample.json", "sample", value, ShapeName("posts"), InferShape(value))
	require.NoError(t, err)

	env, err := Decode(a.Content)
	require.NoError(t, err)
	require.Equal(t, "sample", env.Binding)
	require.Contains(t, env.Types, "InstanceOf_posts")
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "a.json")
	a, err := New(path, "data_a", []any{"x"})
	require.NoError(t, err)
	require.NoError(t, Write(a))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, a.Content, data)
}

func TestShape_InferAndValidate(t *testing.T) {
	sample := map[string]any{
		"title": "A",
		"count": json.Number("1"),
		"draft": false,
		"tags":  []any{"x"},
		"meta":  map[string]any{"k": "v"},
	}
	schema := InferShape(sample)
	require.Equal(t, "object", schema["type"])

	shape, err := CompileShape(schema)
	require.NoError(t, err)

	require.Empty(t, shape.Validate(map[string]any{"title": "B", "tags": []any{"y", "z"}}))
	require.Empty(t, shape.Validate(map[string]any{"title": "C", "extra": 1}))

	issues := shape.Validate(map[string]any{"title": json.Number("3"), "tags": []any{json.Number("1")}})
	require.Len(t, issues, 2)
	require.Contains(t, issues[0], "/tags/0")
	require.Contains(t, issues[1], "/title")
}
