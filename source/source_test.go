package source

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestJSONKeepsNumbersExact(t *testing.T) {
	v, err := JSON([]byte(`{"big": 9007199254740993, "frac": 0.1}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m := v.(map[string]any)
	if m["big"] != json.Number("9007199254740993") {
		t.Fatalf("big: %#v", m["big"])
	}
	if m["frac"] != json.Number("0.1") {
		t.Fatalf("frac: %#v", m["frac"])
	}
}

func TestJSONRejectsInvalidAndTrailing(t *testing.T) {
	if _, err := JSON([]byte(`{`)); err == nil {
		t.Fatalf("want error for truncated JSON")
	}
	if _, err := JSON([]byte(`{} {}`)); err == nil {
		t.Fatalf("want error for trailing data")
	}
	if _, err := JSON([]byte(` {"a": 1} ` + "\n")); err != nil {
		t.Fatalf("trailing whitespace must parse: %v", err)
	}
}

func TestMarshalJSONRoundTrip(t *testing.T) {
	in := map[string]any{"a": json.Number("1"), "b": []any{"x", nil}}
	data, err := MarshalJSON(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := JSON(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if diff := cmp.Diff(in, back); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLProducesGenericValues(t *testing.T) {
	v, err := YAML([]byte("name: alice\ntags:\n  - a\n  - b\nnested:\n  k: 1\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m := v.(map[string]any)
	if m["name"] != "alice" {
		t.Fatalf("name: %#v", m["name"])
	}
	if _, ok := m["tags"].([]any); !ok {
		t.Fatalf("tags: %#v", m["tags"])
	}
	nested, ok := m["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested: %#v", m["nested"])
	}
	if nested["k"] != 1 {
		t.Fatalf("nested value: %#v", nested["k"])
	}
}

func TestYAMLInvalid(t *testing.T) {
	if _, err := YAML([]byte(":\n  - ]")); err == nil {
		t.Fatalf("want error for invalid YAML")
	}
}

func TestMarshalYAMLWidensNumbers(t *testing.T) {
	data, err := MarshalYAML(map[string]any{"n": json.Number("42")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := YAML(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if back.(map[string]any)["n"] != 42 {
		t.Fatalf("number rendered as %#v", back.(map[string]any)["n"])
	}
}
