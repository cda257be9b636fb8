package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// InferShape derives a JSON Schema from a generic JSON value. Object keys
// become properties; none are required. Arrays take the shape of their first
// element.
func InferShape(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		props := make(map[string]any, len(val))
		for k, pv := range val {
			props[k] = InferShape(pv)
		}
		return map[string]any{"type": "object", "properties": props}
	case []any:
		s := map[string]any{"type": "array"}
		if len(val) > 0 {
			s["items"] = InferShape(val[0])
		}
		return s
	case string:
		return map[string]any{"type": "string"}
	case json.Number, float64, int, int64:
		return map[string]any{"type": "number"}
	case bool:
		return map[string]any{"type": "boolean"}
	case nil:
		return map[string]any{"type": "null"}
	default:
		return map[string]any{}
	}
}

// Shape validates values against an inferred schema.
type Shape struct {
	schema *jsonschema.Schema
}

// CompileShape compiles a schema produced by InferShape.
func CompileShape(schema map[string]any) (*Shape, error) {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("shape.json", bytes.NewReader(encoded)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile("shape.json")
	if err != nil {
		return nil, err
	}
	return &Shape{schema: compiled}, nil
}

// Validate reports how v deviates from the shape. It returns nil when v conforms.
func (s *Shape) Validate(v any) []string {
	err := s.schema.Validate(v)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var issues []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			loc := strings.TrimSpace(node.InstanceLocation)
			if loc == "" {
				loc = "/"
			}
			issues = append(issues, fmt.Sprintf("%s: %s", loc, strings.TrimSpace(node.Message)))
			return
		}
		for _, c := range node.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(issues)
	return issues
}
