package modeltype

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/goshape/goshape/constraint"
	"github.com/goshape/goshape/validation"
)

// FieldRole determines how a field maps onto the wire object.
type FieldRole int

const (
	// RolePlain maps the field to a single aliased property.
	RolePlain FieldRole = iota
	// RoleFlattened splices a sub-record's properties into the parent object.
	RoleFlattened
	// RolePatternKeyed collects remaining properties whose keys match the
	// field pattern into a string-keyed map.
	RolePatternKeyed
	// RoleCatchAll collects all remaining properties into a string-keyed map.
	RoleCatchAll
)

// Field describes one member of a record.
type Field struct {
	// Name is the native field name, the key of the decoded record map.
	Name string
	// Alias is the wire property name; empty means same as Name.
	Alias string
	// Type is the declared field type.
	Type Type
	// Required rejects a missing property; ignored when Default is set.
	Required bool
	// Default produces the value applied when the property is missing.
	// A nil producer means the field has no default.
	Default func() any
	// Constraint is merged with the field type's own declared facets.
	Constraint constraint.Constraint
	// Validators run against the assembled record, scoped to this field.
	Validators []*validation.Validator
	// Role selects the wire mapping; see FieldRole.
	Role FieldRole
	// Pattern is the key pattern for RolePatternKeyed fields.
	Pattern *regexp.Regexp
}

// EffectiveAlias returns the wire property name for the field.
func (f Field) EffectiveAlias() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Record is a named structured-record type with an ordered field list.
// Records are compared by pointer, which is what makes self-referential
// types expressible: create the record first, then set its fields.
type Record struct {
	Name string
	// TypeParams names the generic parameters referenced by Param fields.
	TypeParams []string

	fields     []Field
	validators []*validation.Validator

	id uint64

	mu    sync.Mutex
	insts map[string]*Record
}

// NewRecord creates an empty named record. Fields are attached afterwards
// with SetFields so a field type may reference the record itself.
func NewRecord(name string, params ...string) *Record {
	return &Record{Name: name, TypeParams: params, id: nextID.Add(1)}
}

// SetFields installs the ordered field list. It may be called once, before
// the record is first compiled.
func (r *Record) SetFields(fields ...Field) *Record {
	r.fields = fields
	return r
}

// AddValidators attaches record-level validators.
func (r *Record) AddValidators(validators ...*validation.Validator) *Record {
	r.validators = append(r.validators, validators...)
	return r
}

// Fields returns the ordered field list.
func (r *Record) Fields() []Field { return r.fields }

// Validators returns the record-level validators.
func (r *Record) Validators() []*validation.Validator { return r.validators }

func (r *Record) Signature() string {
	return fmt.Sprintf("record:%s@%d", r.Name, r.id)
}

// Specialize substitutes the record's type parameters with concrete types.
// Identical argument lists return the same *Record, so cache keys and
// recursion placeholders for a specialization stay stable.
func (r *Record) Specialize(args map[string]Type) (*Record, error) {
	if len(r.TypeParams) == 0 {
		if len(args) > 0 {
			return nil, fmt.Errorf("record %s takes no type parameters", r.Name)
		}
		return r, nil
	}
	sig := make([]string, 0, len(r.TypeParams))
	for _, p := range r.TypeParams {
		a, ok := args[p]
		if !ok {
			return nil, fmt.Errorf("record %s: missing type argument %q", r.Name, p)
		}
		sig = append(sig, p+"="+a.Signature())
	}
	key := strings.Join(sig, ";")

	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.insts[key]; ok {
		return inst, nil
	}
	inst := &Record{
		Name:       r.Name + "[" + key + "]",
		id:         nextID.Add(1),
		validators: r.validators,
	}
	if r.insts == nil {
		r.insts = make(map[string]*Record)
	}
	// Publish before substituting so a self-referential generic record maps
	// onto its own specialization instead of recursing forever.
	r.insts[key] = inst
	fields := make([]Field, len(r.fields))
	for i, f := range r.fields {
		sub, err := substitute(f.Type, r, inst, args)
		if err != nil {
			delete(r.insts, key)
			return nil, fmt.Errorf("record %s, field %s: %w", r.Name, f.Name, err)
		}
		f.Type = sub
		fields[i] = f
	}
	inst.fields = fields
	return inst, nil
}

// substitute rewrites t, replacing Param types by their arguments and
// self-references to the generic record by its specialization.
func substitute(t Type, from, to *Record, args map[string]Type) (Type, error) {
	switch tt := t.(type) {
	case Param:
		a, ok := args[tt.Name]
		if !ok {
			return nil, fmt.Errorf("unbound type parameter %q", tt.Name)
		}
		return a, nil
	case Scalar, *Enum, Literal, *Alias:
		return t, nil
	case Nullable:
		e, err := substitute(tt.Elem, from, to, args)
		if err != nil {
			return nil, err
		}
		return Nullable{Elem: e}, nil
	case Alternatives:
		opts := make([]Type, len(tt.Options))
		for i, o := range tt.Options {
			e, err := substitute(o, from, to, args)
			if err != nil {
				return nil, err
			}
			opts[i] = e
		}
		return Alternatives{Options: opts}, nil
	case List:
		e, err := substitute(tt.Elem, from, to, args)
		if err != nil {
			return nil, err
		}
		return List{Elem: e}, nil
	case Set:
		e, err := substitute(tt.Elem, from, to, args)
		if err != nil {
			return nil, err
		}
		return Set{Elem: e}, nil
	case Map:
		k, err := substitute(tt.Key, from, to, args)
		if err != nil {
			return nil, err
		}
		v, err := substitute(tt.Value, from, to, args)
		if err != nil {
			return nil, err
		}
		return Map{Key: k, Value: v}, nil
	case Tuple:
		items := make([]Type, len(tt.Items))
		for i, it := range tt.Items {
			e, err := substitute(it, from, to, args)
			if err != nil {
				return nil, err
			}
			items[i] = e
		}
		return Tuple{Items: items}, nil
	case Variadic:
		e, err := substitute(tt.Elem, from, to, args)
		if err != nil {
			return nil, err
		}
		return Variadic{Elem: e}, nil
	case Annotated:
		e, err := substitute(tt.Elem, from, to, args)
		if err != nil {
			return nil, err
		}
		return Annotated{Elem: e, Constraint: tt.Constraint, Validators: tt.Validators}, nil
	case *Record:
		if tt == from {
			return to, nil
		}
		return tt, nil
	}
	return nil, fmt.Errorf("cannot substitute into %T", t)
}
