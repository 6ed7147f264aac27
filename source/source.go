// Package source parses raw JSON and YAML documents into the generic value
// form the decode engine consumes: map[string]any objects, []any arrays,
// json.Number numerics, string, bool, and nil.
package source

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// JSON parses one JSON document. Numbers are kept as json.Number so integer
// precision is not lost to float64. Trailing non-whitespace data is an error.
func JSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("source: invalid JSON: %w", err)
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, fmt.Errorf("source: trailing data after JSON document")
	}
	return v, nil
}

// MarshalJSON renders an encoded wire value back to JSON bytes.
func MarshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// YAML parses one YAML document into the same generic value form as JSON.
func YAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("source: invalid YAML: %w", err)
	}
	return normalize(v), nil
}

// MarshalYAML renders an encoded wire value to YAML bytes. json.Number
// values are widened to native numerics first so they render unquoted.
func MarshalYAML(v any) ([]byte, error) {
	return yaml.Marshal(denormalize(v))
}

// normalize rewrites decoder-specific container and key types into the
// generic form. yaml.v3 produces map[string]any for string-keyed mappings
// already; non-string keys are stringified rather than rejected.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

func denormalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = denormalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = denormalize(e)
		}
		return out
	}
	return v
}
