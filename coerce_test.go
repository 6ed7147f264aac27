package goshape

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/goshape/goshape/modeltype"
)

func TestDefaultCoercerTable(t *testing.T) {
	cases := []struct {
		kind modeltype.ScalarKind
		in   any
		want any
		ok   bool
	}{
		{modeltype.ScalarBool, "true", true, true},
		{modeltype.ScalarBool, "YES", true, true},
		{modeltype.ScalarBool, "off", false, true},
		{modeltype.ScalarBool, json.Number("1"), true, true},
		{modeltype.ScalarBool, json.Number("0"), false, true},
		{modeltype.ScalarBool, "maybe", nil, false},
		{modeltype.ScalarBool, json.Number("2"), nil, false},

		{modeltype.ScalarInt, "42", int64(42), true},
		{modeltype.ScalarInt, "-7", int64(-7), true},
		{modeltype.ScalarInt, float64(3), int64(3), true},
		{modeltype.ScalarInt, float64(3.5), nil, false},
		{modeltype.ScalarInt, "3.5", nil, false},

		{modeltype.ScalarFloat, "1.25", 1.25, true},
		{modeltype.ScalarFloat, "nope", nil, false},

		{modeltype.ScalarString, true, "true", true},
		{modeltype.ScalarString, int64(9), "9", true},
		{modeltype.ScalarString, json.Number("1.5"), "1.5", true},
		{modeltype.ScalarString, float64(2), "2", true},
	}
	for _, tc := range cases {
		got, ok := DefaultCoercer(tc.kind, tc.in)
		if ok != tc.ok {
			t.Fatalf("%v from %#v: ok=%v, want %v", tc.kind, tc.in, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("%v from %#v: got %#v, want %#v", tc.kind, tc.in, got, tc.want)
		}
	}
}

func TestDefaultCoercerLeavesMatchingTypesAlone(t *testing.T) {
	// The coercer only sees mismatches, but it must not invent conversions
	// for shapes it does not understand.
	if _, ok := DefaultCoercer(modeltype.ScalarInt, []any{}); ok {
		t.Fatalf("coerced a container")
	}
	if _, ok := DefaultCoercer(modeltype.ScalarAny, "x"); ok {
		t.Fatalf("coerced for any kind")
	}
}
