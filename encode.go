package goshape

import (
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/goshape/goshape/constraint"
	"github.com/goshape/goshape/convert"
	"github.com/goshape/goshape/i18n"
	"github.com/goshape/goshape/modeltype"
	"github.com/goshape/goshape/validation"
)

func (c *compiler) compileEncodeBody(core modeltype.Type, ov *convert.Override) (encodeMethod, error) {
	if convs := encodeConversions(c.reg.Resolve(core, ov)); len(convs) > 0 {
		return c.compileConversionEncode(core, convs, ov)
	}
	switch t := core.(type) {
	case modeltype.Scalar:
		return scalarEncode(t.Kind), nil
	case modeltype.Nullable:
		elem, err := c.encodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return func(ec *encodeContext, v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			return elem(ec, v)
		}, nil
	case modeltype.Alternatives:
		return c.compileAlternativesEncode(t, ov)
	case modeltype.List:
		elem, err := c.encodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return sequenceEncode(elem, false), nil
	case modeltype.Set:
		elem, err := c.encodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return sequenceEncode(elem, true), nil
	case modeltype.Map:
		return c.compileMapEncode(t, ov)
	case modeltype.Tuple:
		return c.compileTupleEncode(t, ov)
	case modeltype.Variadic:
		elem, err := c.encodeMethodFor(t.Elem, ov)
		if err != nil {
			return nil, err
		}
		return sequenceEncode(elem, false), nil
	case *modeltype.Enum:
		return valueSetEncode(t.Values, CodeInvalidEnum), nil
	case modeltype.Literal:
		return valueSetEncode(t.Values, CodeInvalidLiteral), nil
	case modeltype.Param:
		return nil, configErrf(core, nil, "unbound type parameter %q; specialize the record first", t.Name)
	case *modeltype.Alias:
		return c.encodeMethodFor(t.Elem, ov)
	case *modeltype.Record:
		return c.compileRecordEncode(t, ov)
	}
	return nil, configErrf(core, nil, "no encode handler for this shape")
}

func encodeConversions(convs []convert.Conversion) []convert.Conversion {
	out := convs[:0:0]
	for _, cv := range convs {
		if cv.Encode != nil {
			out = append(out, cv)
		}
	}
	return out
}

// compileConversionEncode selects among registered conversions by their
// Matches predicate at encode time: the first conversion claiming the value
// transforms it and hands the result to its target's encode node. A nil
// predicate claims everything, so it terminates the chain.
func (c *compiler) compileConversionEncode(core modeltype.Type, convs []convert.Conversion, ov *convert.Override) (encodeMethod, error) {
	type altNode struct {
		m         encodeMethod
		transform func(any) (any, error)
		matches   func(any) bool
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
		m, err := c.encodeMethodFor(cv.Target, sub)
		if err != nil {
			return nil, err
		}
		alts = append(alts, altNode{m: m, transform: cv.Encode, matches: cv.Matches})
	}
	return func(ec *encodeContext, v any) (any, error) {
		for _, alt := range alts {
			if alt.matches != nil && !alt.matches(v) {
				continue
			}
			out, err := alt.transform(v)
			if err != nil {
				return nil, validation.FromErr(err)
			}
			return alt.m(ec, out)
		}
		return nil, validation.NewError(i18n.T(CodeConversionFailed, nil))
	}, nil
}

func (c *compiler) compileAlternativesEncode(t modeltype.Alternatives, ov *convert.Override) (encodeMethod, error) {
	if len(t.Options) == 0 {
		return nil, configErrf(t, nil, "alternatives need at least one option")
	}
	methods := make([]encodeMethod, len(t.Options))
	for i, o := range t.Options {
		m, err := c.encodeMethodFor(o, ov)
		if err != nil {
			return nil, err
		}
		methods[i] = m
	}
	return func(ec *encodeContext, v any) (any, error) {
		var merged *validation.Error
		for _, m := range methods {
			out, err := m(ec, v)
			if err != nil {
				merged = validation.Merge(merged, validation.FromErr(err))
				continue
			}
			return out, nil
		}
		return nil, validation.Merge(validation.NewError(i18n.T(CodeInvalidUnion, nil)), merged)
	}, nil
}

func scalarEncode(kind modeltype.ScalarKind) encodeMethod {
	return func(ec *encodeContext, v any) (any, error) {
		out, ok := scalarValue(kind, v)
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": kind.String()}))
		}
		return renderScalar(out), nil
	}
}

// renderScalar converts a native scalar to its wire form. Numbers render as
// json.Number so integer precision survives a round trip through float64.
func renderScalar(v any) any {
	switch n := v.(type) {
	case int64:
		return json.Number(strconv.FormatInt(n, 10))
	case float64:
		return json.Number(strconv.FormatFloat(n, 'g', -1, 64))
	}
	return v
}

func sequenceEncode(elem encodeMethod, unique bool) encodeMethod {
	uniqueCheck := constraint.UniqueItems()
	return func(ec *encodeContext, v any) (any, error) {
		items, ok := v.([]any)
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": "array"}))
		}
		out := make([]any, len(items))
		var verr *validation.Error
		for i, it := range items {
			e, err := elem(ec, it)
			if err != nil {
				verr = validation.Merge(verr, validation.NewChildError(strconv.Itoa(i), validation.FromErr(err)))
				continue
			}
			out[i] = e
		}
		if unique {
			if msgs := uniqueCheck.Check(out); len(msgs) > 0 {
				verr = validation.Merge(verr, validation.NewError(msgs...))
			}
		}
		if verr != nil {
			return nil, verr
		}
		return out, nil
	}
}

func (c *compiler) compileMapEncode(t modeltype.Map, ov *convert.Override) (encodeMethod, error) {
	if !keyRendersString(t.Key) {
		return nil, configErrf(t, nil, "map key type must encode to string keys")
	}
	key, err := c.encodeMethodFor(t.Key, ov)
	if err != nil {
		return nil, err
	}
	value, err := c.encodeMethodFor(t.Value, ov)
	if err != nil {
		return nil, err
	}
	return func(ec *encodeContext, v any) (any, error) {
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
			ek, kerr := key(ec, k)
			if kerr != nil {
				verr = validation.Merge(verr, validation.NewChildError(k, validation.FromErr(kerr)))
				continue
			}
			ev, derr := value(ec, m[k])
			if derr != nil {
				verr = validation.Merge(verr, validation.NewChildError(k, validation.FromErr(derr)))
				continue
			}
			ks, _ := ek.(string)
			out[ks] = ev
		}
		if verr != nil {
			return nil, verr
		}
		return out, nil
	}, nil
}

func (c *compiler) compileTupleEncode(t modeltype.Tuple, ov *convert.Override) (encodeMethod, error) {
	methods := make([]encodeMethod, len(t.Items))
	for i, it := range t.Items {
		m, err := c.encodeMethodFor(it, ov)
		if err != nil {
			return nil, err
		}
		methods[i] = m
	}
	n := len(t.Items)
	length := &constraint.Items{MinItems: &n, MaxItems: &n}
	return func(ec *encodeContext, v any) (any, error) {
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
			e, err := methods[i](ec, items[i])
			if err != nil {
				verr = validation.Merge(verr, validation.NewChildError(strconv.Itoa(i), validation.FromErr(err)))
				continue
			}
			out[i] = e
		}
		if verr != nil {
			return nil, verr
		}
		return out, nil
	}, nil
}

func valueSetEncode(values []any, code string) encodeMethod {
	return func(ec *encodeContext, v any) (any, error) {
		for _, allowed := range values {
			if looseEqual(allowed, v) {
				return renderScalar(normalizeNative(allowed)), nil
			}
		}
		return nil, validation.NewError(i18n.T(code, nil))
	}
}

// normalizeNative widens small integer representations so enum members
// declared as int render the same way as decoded int64 values.
func normalizeNative(v any) any {
	if n, ok := v.(int); ok {
		return int64(n)
	}
	return v
}
