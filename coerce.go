package goshape

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goshape/goshape/modeltype"
)

// DefaultCoercer implements the standard scalar coercion table: strings
// parse into numbers and booleans, integers widen to floats, and numbers and
// booleans render into strings. Anything else is left to fail the type
// check.
func DefaultCoercer(kind modeltype.ScalarKind, v any) (any, bool) {
	switch kind {
	case modeltype.ScalarBool:
		switch t := v.(type) {
		case string:
			switch strings.ToLower(t) {
			case "true", "1", "yes", "on":
				return true, true
			case "false", "0", "no", "off":
				return false, true
			}
		case int, int64, float64, json.Number:
			if f, ok := numAsFloat(v); ok && (f == 0 || f == 1) {
				return f == 1, true
			}
		}
	case modeltype.ScalarInt:
		if s, ok := v.(string); ok {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, true
			}
		}
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			return int64(f), true
		}
	case modeltype.ScalarFloat:
		if s, ok := v.(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	case modeltype.ScalarString:
		switch t := v.(type) {
		case bool:
			return strconv.FormatBool(t), true
		case json.Number:
			return t.String(), true
		case int:
			return strconv.Itoa(t), true
		case int64:
			return strconv.FormatInt(t, 10), true
		case float64:
			return strconv.FormatFloat(t, 'g', -1, 64), true
		}
	}
	return nil, false
}

func numAsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
