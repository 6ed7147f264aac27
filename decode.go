package goshape

import (
	"math"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/goshape/goshape/constraint"
	"github.com/goshape/goshape/convert"
	"github.com/goshape/goshape/i18n"
	"github.com/goshape/goshape/modeltype"
	"github.com/goshape/goshape/validation"
)

// compileDecodeBody dispatches on the model type shape. Registered
// conversions take precedence over the intrinsic shape. The switch is total:
// an unhandled shape can only mean a new variant was added without a
// handler, which is a configuration error, not a data error.
func (c *compiler) compileDecodeBody(core modeltype.Type, ov *convert.Override) (decodeMethod, error) {
	if convs := decodeConversions(c.reg.Resolve(core, ov)); len(convs) > 0 {
		return c.compileConversionDecode(core, convs, ov)
	}
	switch t := core.(type) {
	case modeltype.Scalar:
		return scalarDecode(t.Kind), nil
	case modeltype.Nullable:
		elem, err := c.decodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return func(dc *decodeContext, v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return elem(dc, v)
		}, nil
	case modeltype.Alternatives:
		return c.compileAlternativesDecode(t, ov)
	case modeltype.List:
		elem, err := c.decodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return sequenceDecode(elem, false), nil
	case modeltype.Set:
		elem, err := c.decodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return sequenceDecode(elem, true), nil
	case modeltype.Map:
		return c.compileMapDecode(t, ov)
	case modeltype.Tuple:
		return c.compileTupleDecode(t, ov)
	case modeltype.Variadic:
		elem, err := c.decodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return sequenceDecode(elem, false), nil
	case *modeltype.Enum:
		return valueSetDecode(t.Values, CodeInvalidEnum), nil
	case modeltype.Literal:
		return valueSetDecode(t.Values, CodeInvalidLiteral), nil
	case modeltype.Param:
		return nil, configErrf(core, nil, "unbound type parameter %q; specialize the record first", t.Name)
	case *modeltype.Alias:
		return c.decodeMethodFor(t.Elem, ov)
	case *modeltype.Record:
		return c.compileRecordDecode(t, ov)
	}
	return nil, configErrf(core, nil, "no decode handler for this shape")
}

func decodeConversions(convs []convert.Conversion) []convert.Conversion {
	out := convs[:0:0]
	for _, cv := range convs {
		if cv.Decode != nil {
			out = append(out, cv)
		}
	}
	return out
}

// compileConversionDecode builds the alternative chain for a converted type:
// each alternate target compiles to a sub-node, optionally under the
// conversion's nested override; decoding tries them in registration order
// and merges the errors when all fail.
func (c *compiler) compileConversionDecode(core modeltype.Type, convs []convert.Conversion, ov *convert.Override) (decodeMethod, error) {
	type altNode struct {
		m         decodeMethod
		transform func(any) (any, error)
	}
	alts := make([]altNode, 0, len(convs))
	for _, cv := range convs {
		if cv.Target == nil {
			return nil, configErrf(core, nil, "conversion has no target type")
		}
		sub := ov
		if cv.Context != nil {
			sub = cv.Context
		}
		m, err := c.decodeMethodFor(cv.Target, sub)
		if err != nil {
			return nil, err
		}
		alts = append(alts, altNode{m: m, transform: cv.Decode})
	}
	return func(dc *decodeContext, v any) (any, error) {
		var merged *validation.Error
		for _, alt := range alts {
			out, err := alt.m(dc, v)
			if err != nil {
				merged = validation.Merge(merged, validation.FromErr(err))
				continue
			}
			res, terr := alt.transform(out)
			if terr != nil {
				merged = validation.Merge(merged, validation.FromErr(terr))
				continue
			}
			return res, nil
		}
		return nil, merged
	}, nil
}

func (c *compiler) compileAlternativesDecode(t modeltype.Alternatives, ov *convert.Override) (decodeMethod, error) {
	if len(t.Options) == 0 {
		return nil, configErrf(t, nil, "alternatives need at least one option")
	}
	methods := make([]decodeMethod, len(t.Options))
	for i, o := range t.Options {
		m, err := c.decodeMethodFor(o, ov)
		if err != nil {
			return nil, err
		}
		methods[i] = m
	}
	return func(dc *decodeContext, v any) (any, error) {
		var merged *validation.Error
		for _, m := range methods {
			out, err := m(dc, v)
			if err != nil {
				merged = validation.Merge(merged, validation.FromErr(err))
				continue
			}
			return out, nil
		}
		return nil, validation.Merge(validation.NewError(i18n.T(CodeInvalidUnion, nil)), merged)
	}, nil
}

func scalarDecode(kind modeltype.ScalarKind) decodeMethod {
	return func(dc *decodeContext, v any) (any, error) {
		out, ok := scalarValue(kind, v)
		if !ok && dc.coerce != nil {
			if cv, cok := dc.coerce(kind, v); cok {
				out, ok = scalarValue(kind, cv)
			}
		}
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": kind.String()}))
		}
		return out, nil
	}
}

// scalarValue maps a generic wire value onto the native scalar
// representation: bool, int64, float64, or string.
func scalarValue(kind modeltype.ScalarKind, v any) (any, bool) {
	switch kind {
	case modeltype.ScalarAny:
		return v, true
	case modeltype.ScalarBool:
		b, ok := v.(bool)
		return b, ok
	case modeltype.ScalarString:
		s, ok := v.(string)
		return s, ok
	case modeltype.ScalarInt:
		switch n := v.(type) {
		case int:
			return int64(n), true
		case int64:
			return n, true
		case json.Number:
			i, err := n.Int64()
			return i, err == nil
		case float64:
			if n == math.Trunc(n) {
				return int64(n), true
			}
		}
	case modeltype.ScalarFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		}
	}
	return nil, false
}

// sequenceDecode walks every element even after one fails, keying child
// errors by index, and raises once after the whole node is walked.
func sequenceDecode(elem decodeMethod, unique bool) decodeMethod {
	uniqueCheck := constraint.UniqueItems()
	return func(dc *decodeContext, v any) (any, error) {
		items, ok := v.([]any)
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": "array"}))
		}
		out := make([]any, len(items))
		var verr *validation.Error
		for i, it := range items {
			d, err := elem(dc, it)
			if err != nil {
				verr = validation.Merge(verr, validation.NewChildError(strconv.Itoa(i), validation.FromErr(err)))
				continue
			}
			out[i] = d
		}
		if unique {
			if msgs := uniqueCheck.Check(items); len(msgs) > 0 {
				verr = validation.Merge(verr, validation.NewError(msgs...))
			}
		}
		if verr != nil {
			return nil, verr
		}
		return out, nil
	}
}

func (c *compiler) compileMapDecode(t modeltype.Map, ov *convert.Override) (decodeMethod, error) {
	if !keyRendersString(t.Key) {
		return nil, configErrf(t, nil, "map key type must decode from string keys")
	}
	key, err := c.decodeMethodFor(t.Key, ov)
	if err != nil {
		return nil, err
	}
	value, err := c.decodeMethodFor(t.Value, ov)
	if err != nil {
		return nil, err
	}
	return func(dc *decodeContext, v any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": "object"}))
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(m))
		var verr *validation.Error
		for _, k := range keys {
			dk, kerr := key(dc, k)
			if kerr != nil {
				verr = validation.Merge(verr, validation.NewChildError(k, validation.FromErr(kerr)))
				continue
			}
			dv, derr := value(dc, m[k])
			if derr != nil {
				verr = validation.Merge(verr, validation.NewChildError(k, validation.FromErr(derr)))
				continue
			}
			ks, _ := dk.(string)
			out[ks] = dv
		}
		if verr != nil {
			return nil, verr
		}
		return out, nil
	}, nil
}

// keyRendersString reports whether a map key type decodes wire object keys
// into native strings.
func keyRendersString(t modeltype.Type) bool {
	switch tt := t.(type) {
	case modeltype.Scalar:
		return tt.Kind == modeltype.ScalarString
	case *modeltype.Alias:
		return keyRendersString(tt.Elem)
	case modeltype.Annotated:
		return keyRendersString(tt.Elem)
	case *modeltype.Enum:
		for _, v := range tt.Values {
			if _, ok := v.(string); !ok {
				return false
			}
		}
		return len(tt.Values) > 0
	case modeltype.Literal:
		for _, v := range tt.Values {
			if _, ok := v.(string); !ok {
				return false
			}
		}
		return len(tt.Values) > 0
	}
	return false
}

func (c *compiler) compileTupleDecode(t modeltype.Tuple, ov *convert.Override) (decodeMethod, error) {
	methods := make([]decodeMethod, len(t.Items))
	for i, it := range t.Items {
		m, err := c.decodeMethodFor(it, ov)
		if err != nil {
			return nil, err
		}
		methods[i] = m
	}
	n := len(t.Items)
	length := &constraint.Items{MinItems: &n, MaxItems: &n}
	return func(dc *decodeContext, v any) (any, error) {
		items, ok := v.([]any)
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": "array"}))
		}
		var verr *validation.Error
		if msgs := length.Check(items); len(msgs) > 0 {
			verr = validation.NewError(msgs...)
		}
		out := make([]any, n)
		for i := 0; i < n && i < len(items); i++ {
			d, err := methods[i](dc, items[i])
			if err != nil {
				verr = validation.Merge(verr, validation.NewChildError(strconv.Itoa(i), validation.FromErr(err)))
				continue
			}
			out[i] = d
		}
		if verr != nil {
			return nil, verr
		}
		return out, nil
	}, nil
}

// valueSetDecode matches the wire value against a closed value set,
// returning the canonical member on success.
func valueSetDecode(values []any, code string) decodeMethod {
	return func(dc *decodeContext, v any) (any, error) {
		for _, allowed := range values {
			if looseEqual(allowed, v) {
				return allowed, nil
			}
		}
		return nil, validation.NewError(i18n.T(code, nil))
	}
}

// looseEqual compares a canonical member value with a wire value, treating
// all numeric representations as equal when their values match.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := numAsFloat(a); aok {
		bf, bok := numAsFloat(b)
		return bok && af == bf
	}
	switch at := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && at == bs
	case bool:
		bb, ok := b.(bool)
		return ok && at == bb
	}
	return a == b
}
