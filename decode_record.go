package goshape

import (
	"sort"

	"github.com/goshape/goshape/convert"
	"github.com/goshape/goshape/i18n"
	"github.com/goshape/goshape/modeltype"
	"github.com/goshape/goshape/validation"
)

// fieldPlan is the compiled form of one record field: its decode node plus
// the wire-mapping metadata the record walk needs at runtime.
type fieldPlan struct {
	field  modeltype.Field
	alias  string
	method decodeMethod

	// flattened-only: the wire properties the sub-record consumes. open
	// means the sub-record has a pattern or catch-all member and takes
	// every property still unconsumed.
	flatAliases map[string]struct{}
	flatOpen    bool
}

type recordDecodePlan struct {
	plain      []*fieldPlan
	flattened  []*fieldPlan
	pattern    []*fieldPlan
	catchAll   *fieldPlan
	validators []*validation.Validator
	defaults   map[string]func() any
	aliaser    validation.Aliaser
}

func (c *compiler) compileRecordDecode(rec *modeltype.Record, ov *convert.Override) (decodeMethod, error) {
	plan, err := c.planRecordDecode(rec, ov)
	if err != nil {
		return nil, err
	}
	return func(dc *decodeContext, v any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": "object"}))
		}
		return plan.decode(dc, m)
	}, nil
}

func (c *compiler) planRecordDecode(rec *modeltype.Record, ov *convert.Override) (*recordDecodePlan, error) {
	plan := &recordDecodePlan{
		defaults: map[string]func() any{},
		aliaser:  recordAliaser(rec),
	}
	seen := map[string]string{} // alias -> field name
	claim := func(alias, field string) error {
		if prev, dup := seen[alias]; dup {
			return configErrf(rec, nil, "fields %s and %s map to the same property %q", prev, field, alias)
		}
		seen[alias] = field
		return nil
	}
	for _, f := range rec.Fields() {
		ft := f.Type
		if f.Constraint != nil {
			ft = modeltype.Annotated{Elem: ft, Constraint: f.Constraint}
		}
		fp := &fieldPlan{field: f, alias: f.EffectiveAlias()}
		if f.Default != nil {
			plan.defaults[f.Name] = f.Default
		}
		for _, va := range f.Validators {
			plan.validators = append(plan.validators, scopeValidator(va, f.Name))
		}
		switch f.Role {
		case modeltype.RolePlain:
			m, err := c.decodeMethodFor(ft, ov)
			if err != nil {
				return nil, err
			}
			if err := claim(fp.alias, f.Name); err != nil {
				return nil, err
			}
			fp.method = m
			plan.plain = append(plan.plain, fp)
		case modeltype.RoleFlattened:
			sub := resolveRecord(f.Type)
			if sub == nil {
				return nil, configErrf(rec, nil, "flattened field %s must be a record", f.Name)
			}
			aliases, open, err := flattenedAliases(sub, map[*modeltype.Record]bool{rec: true})
			if err != nil {
				return nil, err
			}
			for a := range aliases {
				if err := claim(a, f.Name); err != nil {
					return nil, err
				}
			}
			m, err := c.decodeMethodFor(f.Type, ov)
			if err != nil {
				return nil, err
			}
			fp.method = m
			fp.flatAliases = aliases
			fp.flatOpen = open
			plan.flattened = append(plan.flattened, fp)
		case modeltype.RolePatternKeyed:
			if f.Pattern == nil {
				return nil, configErrf(rec, nil, "pattern field %s has no key pattern", f.Name)
			}
			if !resolvesToMap(f.Type) {
				return nil, configErrf(rec, nil, "pattern field %s must be a string-keyed map", f.Name)
			}
			m, err := c.decodeMethodFor(ft, ov)
			if err != nil {
				return nil, err
			}
			fp.method = m
			plan.pattern = append(plan.pattern, fp)
		case modeltype.RoleCatchAll:
			if plan.catchAll != nil {
				return nil, configErrf(rec, nil, "fields %s and %s both collect remaining properties", plan.catchAll.field.Name, f.Name)
			}
			if !resolvesToMap(f.Type) {
				return nil, configErrf(rec, nil, "catch-all field %s must be a string-keyed map", f.Name)
			}
			m, err := c.decodeMethodFor(ft, ov)
			if err != nil {
				return nil, err
			}
			fp.method = m
			plan.catchAll = fp
		}
	}
	// Field-scoped validators run first so their discards suppress
	// record-level rules that depend on the discarded field.
	plan.validators = append(plan.validators, rec.Validators()...)
	return plan, nil
}

// decode assembles the record from a wire object: plain fields first, then
// flattened sub-records, then pattern and catch-all collectors over the
// remaining properties, then validators against the fields that survived.
func (p *recordDecodePlan) decode(dc *decodeContext, m map[string]any) (any, error) {
	values := make(map[string]any, len(p.plain))
	unavailable := map[string]struct{}{}
	consumed := make(map[string]struct{}, len(m))
	var verr *validation.Error

	fail := func(name string, err *validation.Error) {
		verr = validation.Merge(verr, err)
		unavailable[name] = struct{}{}
	}

	for _, fp := range p.plain {
		raw, present := m[fp.alias]
		if !present {
			if fp.field.Default != nil {
				values[fp.field.Name] = fp.field.Default()
			} else if fp.field.Required {
				fail(fp.field.Name, validation.NewChildError(fp.alias,
					validation.NewError(i18n.T(CodeMissingProperty, nil))))
			} else {
				unavailable[fp.field.Name] = struct{}{}
			}
			continue
		}
		consumed[fp.alias] = struct{}{}
		out, err := fp.method(dc, raw)
		if err != nil {
			if dc.fallbackDefault && fp.field.Default != nil {
				values[fp.field.Name] = fp.field.Default()
				continue
			}
			fail(fp.field.Name, validation.NewChildError(fp.alias, validation.FromErr(err)))
			continue
		}
		values[fp.field.Name] = out
	}

	for _, fp := range p.flattened {
		sub := make(map[string]any)
		if fp.flatOpen {
			for k, v := range m {
				if _, done := consumed[k]; done {
					continue
				}
				sub[k] = v
				consumed[k] = struct{}{}
			}
		} else {
			for a := range fp.flatAliases {
				if v, ok := m[a]; ok {
					sub[a] = v
					consumed[a] = struct{}{}
				}
			}
		}
		out, err := fp.method(dc, sub)
		if err != nil {
			// The sub-record's properties live at this level of the wire
			// object, so its errors merge in unnested.
			fail(fp.field.Name, validation.FromErr(err))
			continue
		}
		values[fp.field.Name] = out
	}

	remaining := func() []string {
		keys := make([]string, 0, len(m))
		for k := range m {
			if _, done := consumed[k]; !done {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return keys
	}

	for _, fp := range p.pattern {
		sub := make(map[string]any)
		for _, k := range remaining() {
			if fp.field.Pattern.MatchString(k) {
				sub[k] = m[k]
				consumed[k] = struct{}{}
			}
		}
		out, err := fp.method(dc, sub)
		if err != nil {
			fail(fp.field.Name, validation.FromErr(err))
			continue
		}
		values[fp.field.Name] = out
	}

	if p.catchAll != nil {
		sub := make(map[string]any)
		for _, k := range remaining() {
			sub[k] = m[k]
			consumed[k] = struct{}{}
		}
		out, err := p.catchAll.method(dc, sub)
		if err != nil {
			fail(p.catchAll.field.Name, validation.FromErr(err))
		} else {
			values[p.catchAll.field.Name] = out
		}
	}

	if !dc.allowUnknown {
		for _, k := range remaining() {
			verr = validation.Merge(verr, validation.NewChildError(k,
				validation.NewError(i18n.T(CodeUnexpectedProperty, nil))))
		}
	}

	view := validation.NewView(values, p.defaults)
	if err := validation.RunPartial(view, p.validators, unavailable, p.aliaser); err != nil {
		verr = validation.Merge(verr, validation.FromErr(err))
	}

	if verr != nil {
		return nil, verr
	}
	return values, nil
}

// scopeValidator binds a field-attached validator to its field: errors nest
// under the field alias and a failure discards the field for later rules.
func scopeValidator(va *validation.Validator, field string) *validation.Validator {
	out := *va
	if out.Field == "" {
		out.Field = field
	}
	if len(out.Deps) == 0 {
		out.Deps = []string{field}
	}
	return &out
}

// flattenedAliases computes the wire properties a flattened record consumes,
// following nested flattened members. visited guards against flattening
// cycles, which cannot terminate.
func flattenedAliases(rec *modeltype.Record, visited map[*modeltype.Record]bool) (map[string]struct{}, bool, error) {
	if visited[rec] {
		return nil, false, configErrf(rec, nil, "flattening cycle through record %s", rec.Name)
	}
	visited[rec] = true
	defer delete(visited, rec)
	aliases := map[string]struct{}{}
	open := false
	for _, f := range rec.Fields() {
		switch f.Role {
		case modeltype.RolePlain:
			aliases[f.EffectiveAlias()] = struct{}{}
		case modeltype.RoleFlattened:
			sub := resolveRecord(f.Type)
			if sub == nil {
				return nil, false, configErrf(rec, nil, "flattened field %s must be a record", f.Name)
			}
			nested, nestedOpen, err := flattenedAliases(sub, visited)
			if err != nil {
				return nil, false, err
			}
			for a := range nested {
				aliases[a] = struct{}{}
			}
			open = open || nestedOpen
		case modeltype.RolePatternKeyed, modeltype.RoleCatchAll:
			open = true
		}
	}
	return aliases, open, nil
}

func resolvesToMap(t modeltype.Type) bool {
	for {
		switch tt := t.(type) {
		case modeltype.Map:
			return true
		case *modeltype.Alias:
			t = tt.Elem
		case modeltype.Annotated:
			t = tt.Elem
		default:
			return false
		}
	}
}
