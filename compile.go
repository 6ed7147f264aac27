package goshape

import (
	"sync"

	"github.com/goshape/goshape/constraint"
	"github.com/goshape/goshape/convert"
	"github.com/goshape/goshape/modeltype"
	"github.com/goshape/goshape/validation"
)

// decodeMethod is a compiled decode node: a self-contained invokable closed
// over whatever sub-nodes, constraints, and converters it needs. Once
// published it is immutable and safe for concurrent invocation.
type decodeMethod func(dc *decodeContext, v any) (any, error)

// encodeMethod is the encode counterpart of decodeMethod.
type encodeMethod func(ec *encodeContext, v any) (any, error)

// decodeContext carries the per-call options through the walk. Cancellation
// is checked once at the entry point; the walk itself never blocks.
type decodeContext struct {
	allowUnknown    bool
	coerce          Coercer
	fallbackDefault bool
}

type encodeContext struct{}

type direction int

const (
	dirDecode direction = iota
	dirEncode
)

// nodeKey identifies one compiled node: the fully specialized type plus the
// identity of the active conversion override. The same type compiled under
// different overrides yields distinct, independently cached nodes.
type nodeKey struct {
	sig      string
	override uint64
	dir      direction
}

// engine is the process-wide node cache. Compilation is serialized under mu;
// published nodes are pure functions of their key and never change.
var engine = struct {
	mu         sync.Mutex
	generation uint64
	decode     map[nodeKey]decodeMethod
	encode     map[nodeKey]encodeMethod
}{}

// InvalidateCache drops every compiled node. Conversion registration does
// this implicitly via the registry generation; explicit invalidation exists
// for callers that mutate record definitions in place.
func InvalidateCache() {
	engine.mu.Lock()
	engine.decode = nil
	engine.encode = nil
	engine.mu.Unlock()
}

// syncGenerationLocked resets the cache when the conversion registry has
// changed since the last compilation. Conversion visibility is ambient, so
// invalidation is conservative: the whole cache goes.
func syncGenerationLocked(reg *convert.Registry) {
	gen := reg.Generation()
	if engine.decode == nil || engine.encode == nil || engine.generation != gen {
		engine.decode = make(map[nodeKey]decodeMethod)
		engine.encode = make(map[nodeKey]encodeMethod)
		engine.generation = gen
	}
}

// decodeSlot is one compilation arena entry: pending while its body
// compiles, then updated in place to the finished method. Placeholders hold
// the slot, not the method, so cycles resolve without owned pointers.
type decodeSlot struct{ m decodeMethod }

type encodeSlot struct{ m encodeMethod }

// compiler is one compilation run. It is single-threaded; the engine mutex
// is held for its whole lifetime. Finished methods are staged in done maps
// and only published to the shared cache when the run succeeds, so failed
// runs never leak methods capturing unresolved slots.
type compiler struct {
	reg        *convert.Registry
	pendingDec map[nodeKey]*decodeSlot
	pendingEnc map[nodeKey]*encodeSlot
	doneDec    map[nodeKey]decodeMethod
	doneEnc    map[nodeKey]encodeMethod
}

func newCompiler(reg *convert.Registry) *compiler {
	return &compiler{
		reg:        reg,
		pendingDec: map[nodeKey]*decodeSlot{},
		pendingEnc: map[nodeKey]*encodeSlot{},
		doneDec:    map[nodeKey]decodeMethod{},
		doneEnc:    map[nodeKey]encodeMethod{},
	}
}

func compileTopDecode(t modeltype.Type, ov *convert.Override) (decodeMethod, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	reg := convert.Default()
	syncGenerationLocked(reg)
	c := newCompiler(reg)
	m, err := c.decodeMethodFor(t, ov)
	if err != nil {
		return nil, err
	}
	for k, dm := range c.doneDec {
		engine.decode[k] = dm
	}
	for k, em := range c.doneEnc {
		engine.encode[k] = em
	}
	return m, nil
}

func compileTopEncode(t modeltype.Type, ov *convert.Override) (encodeMethod, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	reg := convert.Default()
	syncGenerationLocked(reg)
	c := newCompiler(reg)
	m, err := c.encodeMethodFor(t, ov)
	if err != nil {
		return nil, err
	}
	for k, dm := range c.doneDec {
		engine.decode[k] = dm
	}
	for k, em := range c.doneEnc {
		engine.encode[k] = em
	}
	return m, nil
}

// unwrapAnnotations peels Annotated wrappers, merging their facets and
// collecting their validators. Unmergeable facets abort compilation.
func unwrapAnnotations(t modeltype.Type) (modeltype.Type, constraint.Constraint, []*validation.Validator, error) {
	var cons constraint.Constraint
	var validators []*validation.Validator
	for {
		a, ok := t.(modeltype.Annotated)
		if !ok {
			return t, cons, validators, nil
		}
		merged, err := constraint.Merge(cons, a.Constraint)
		if err != nil {
			return nil, nil, nil, configErrf(a.Elem, err, "unmergeable constraints: %v", err)
		}
		cons = merged
		validators = append(validators, a.Validators...)
		t = a.Elem
	}
}

// decodeMethodFor resolves the decode node for t under the active override:
// unwrap annotations, fetch or compile the core node, then wrap the
// annotation facets and validators around it.
func (c *compiler) decodeMethodFor(t modeltype.Type, ov *convert.Override) (decodeMethod, error) {
	core, cons, validators, err := unwrapAnnotations(t)
	if err != nil {
		return nil, err
	}
	if cons != nil {
		if err := checkFacetKind(core, cons); err != nil {
			return nil, err
		}
	}
	m, err := c.coreDecode(core, ov)
	if err != nil {
		return nil, err
	}
	if cons != nil {
		m = wrapDecodeConstraint(m, cons)
	}
	if len(validators) > 0 {
		m, err = c.wrapDecodeValidators(m, core, validators)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// coreDecode memoizes compilation by (type, override) and breaks recursion
// with the slot protocol: re-entrant compiles of a pending key get a
// placeholder that resolves through the slot on every call. The slot is
// written exactly once, before any node is published, so the placeholder is
// a plain pointer indirection with no state of its own and stays safe under
// concurrent invocation.
func (c *compiler) coreDecode(core modeltype.Type, ov *convert.Override) (decodeMethod, error) {
	key := nodeKey{sig: core.Signature(), override: ov.ID(), dir: dirDecode}
	if m, ok := engine.decode[key]; ok {
		return m, nil
	}
	if m, ok := c.doneDec[key]; ok {
		return m, nil
	}
	if s, ok := c.pendingDec[key]; ok {
		return func(dc *decodeContext, v any) (any, error) {
			return s.m(dc, v)
		}, nil
	}
	s := &decodeSlot{}
	c.pendingDec[key] = s
	m, err := c.compileDecodeBody(core, ov)
	delete(c.pendingDec, key)
	if err != nil {
		return nil, err
	}
	s.m = m
	c.doneDec[key] = m
	return m, nil
}

func (c *compiler) encodeMethodFor(t modeltype.Type, ov *convert.Override) (encodeMethod, error) {
	core, cons, _, err := unwrapAnnotations(t)
	if err != nil {
		return nil, err
	}
	if cons != nil {
		if err := checkFacetKind(core, cons); err != nil {
			return nil, err
		}
	}
	m, err := c.coreEncode(core, ov)
	if err != nil {
		return nil, err
	}
	if cons != nil {
		m = wrapEncodeConstraint(m, cons)
	}
	return m, nil
}

func (c *compiler) coreEncode(core modeltype.Type, ov *convert.Override) (encodeMethod, error) {
	key := nodeKey{sig: core.Signature(), override: ov.ID(), dir: dirEncode}
	if m, ok := engine.encode[key]; ok {
		return m, nil
	}
	if m, ok := c.doneEnc[key]; ok {
		return m, nil
	}
	if s, ok := c.pendingEnc[key]; ok {
		return func(ec *encodeContext, v any) (any, error) {
			return s.m(ec, v)
		}, nil
	}
	s := &encodeSlot{}
	c.pendingEnc[key] = s
	m, err := c.compileEncodeBody(core, ov)
	delete(c.pendingEnc, key)
	if err != nil {
		return nil, err
	}
	s.m = m
	c.doneEnc[key] = m
	return m, nil
}

// wrapDecodeConstraint merges facet violations into the node result: checked
// against the decoded value on success, against the wire value when the walk
// below already failed, so constraint failures and child errors surface
// together.
func wrapDecodeConstraint(base decodeMethod, cons constraint.Constraint) decodeMethod {
	return func(dc *decodeContext, v any) (any, error) {
		out, err := base(dc, v)
		if err != nil {
			verr := validation.FromErr(err)
			if msgs := cons.Check(v); len(msgs) > 0 {
				verr = validation.Merge(verr, validation.NewError(msgs...))
			}
			return nil, verr
		}
		if msgs := cons.Check(out); len(msgs) > 0 {
			return nil, validation.NewError(msgs...)
		}
		return out, nil
	}
}

func wrapEncodeConstraint(base encodeMethod, cons constraint.Constraint) encodeMethod {
	return func(ec *encodeContext, v any) (any, error) {
		out, err := base(ec, v)
		if err != nil {
			verr := validation.FromErr(err)
			if msgs := cons.Check(v); len(msgs) > 0 {
				verr = validation.Merge(verr, validation.NewError(msgs...))
			}
			return nil, verr
		}
		if msgs := cons.Check(out); len(msgs) > 0 {
			return nil, validation.NewError(msgs...)
		}
		return out, nil
	}
}

// wrapDecodeValidators runs annotation-level validators against the decoded
// record value. Validators only attach to record shapes; the record supplies
// the alias mapping for error paths.
func (c *compiler) wrapDecodeValidators(base decodeMethod, core modeltype.Type, validators []*validation.Validator) (decodeMethod, error) {
	rec := resolveRecord(core)
	if rec == nil {
		return nil, configErrf(core, nil, "validators require a record type")
	}
	aliaser := recordAliaser(rec)
	return func(dc *decodeContext, v any) (any, error) {
		out, err := base(dc, v)
		if err != nil {
			return nil, err
		}
		m, ok := out.(map[string]any)
		if !ok {
			return out, nil
		}
		view := validation.NewView(m, nil)
		if verr := validation.Run(view, validators, aliaser); verr != nil {
			return nil, validation.FromErr(verr)
		}
		return out, nil
	}, nil
}

// resolveRecord statically resolves t to its record, looking through
// aliases, annotations, and nullable wrappers. Nil when t is not a record.
func resolveRecord(t modeltype.Type) *modeltype.Record {
	for {
		switch tt := t.(type) {
		case *modeltype.Record:
			return tt
		case *modeltype.Alias:
			t = tt.Elem
		case modeltype.Annotated:
			t = tt.Elem
		case modeltype.Nullable:
			t = tt.Elem
		default:
			return nil
		}
	}
}

func recordAliaser(rec *modeltype.Record) validation.Aliaser {
	aliases := make(map[string]string, len(rec.Fields()))
	for _, f := range rec.Fields() {
		aliases[f.Name] = f.EffectiveAlias()
	}
	return func(field string) string {
		if a, ok := aliases[field]; ok {
			return a
		}
		return field
	}
}

// checkFacetKind verifies at compile time that a facet set can apply to the
// shape it annotates. Mismatches are configuration errors, never decode
// errors.
func checkFacetKind(core modeltype.Type, cons constraint.Constraint) error {
	if facetCompatible(core, cons.Kind()) {
		return nil
	}
	return configErrf(core, nil, "%s constraint cannot apply to this shape", cons.Kind())
}

func facetCompatible(t modeltype.Type, kind string) bool {
	switch tt := t.(type) {
	case modeltype.Scalar:
		switch tt.Kind {
		case modeltype.ScalarInt, modeltype.ScalarFloat:
			return kind == "number"
		case modeltype.ScalarString:
			return kind == "string"
		case modeltype.ScalarAny:
			return true
		default:
			return false
		}
	case modeltype.Nullable:
		return facetCompatible(tt.Elem, kind)
	case *modeltype.Alias:
		return facetCompatible(tt.Elem, kind)
	case modeltype.Annotated:
		return facetCompatible(tt.Elem, kind)
	case modeltype.Alternatives:
		return true
	case modeltype.List, modeltype.Set, modeltype.Tuple, modeltype.Variadic:
		return kind == "items"
	case modeltype.Map, *modeltype.Record:
		return kind == "properties"
	case *modeltype.Enum, modeltype.Literal:
		return kind == "number" || kind == "string"
	}
	return false
}
