// Package modeltype defines the closed set of type shapes the codec engine
// understands. Model types form a DAG that may be cyclic through record
// fields; records are identified by pointer so cycles are expressed
// naturally. The compiler pattern-matches on the concrete Type variants, so
// the set is sealed: only this package can add shapes.
package modeltype

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/goshape/goshape/constraint"
	"github.com/goshape/goshape/validation"
)

// Type is one model type shape. Implementations are exactly the variants in
// this package; the sealed method keeps the switch in the compiler total.
type Type interface {
	sealed()
	// Signature returns a canonical key for the type, stable for the process
	// lifetime. Named types embed a process-unique id so two distinct types
	// sharing a name never collide.
	Signature() string
}

// ScalarKind enumerates the scalar shapes of the generic value universe.
type ScalarKind int

const (
	ScalarBool ScalarKind = iota
	ScalarInt
	ScalarFloat
	ScalarString
	ScalarAny // accepts any generic value unchanged
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarBool:
		return "bool"
	case ScalarInt:
		return "int"
	case ScalarFloat:
		return "float"
	case ScalarString:
		return "string"
	default:
		return "any"
	}
}

// Scalar is a primitive shape.
type Scalar struct{ Kind ScalarKind }

// Nullable accepts null in addition to its element shape.
type Nullable struct{ Elem Type }

// Alternatives tries each option in order; the first success wins and
// exhausting all options raises the merged error.
type Alternatives struct{ Options []Type }

// List is an ordered homogeneous container.
type List struct{ Elem Type }

// Set is a homogeneous container whose elements must be unique.
type Set struct{ Elem Type }

// Map is a string-keyed homogeneous mapping. Key must decode from the wire
// object keys, i.e. from strings.
type Map struct {
	Key   Type
	Value Type
}

// Tuple is a heterogeneous fixed-length sequence.
type Tuple struct{ Items []Type }

// Variadic is a homogeneous tuple of arbitrary length.
type Variadic struct{ Elem Type }

// Enum is a named closed set of values.
type Enum struct {
	Name   string
	Values []any

	id uint64
}

// Literal accepts exactly one of its values.
type Literal struct{ Values []any }

// Param is an unbound type parameter of a generic record. Compiling a Param
// directly is a configuration error; Specialize substitutes it first.
type Param struct{ Name string }

// Alias is a transparent named wrapper around another type.
type Alias struct {
	Name string
	Elem Type

	id uint64
}

// Annotated attaches constraint facets and validators to a type without
// changing its shape.
type Annotated struct {
	Elem       Type
	Constraint constraint.Constraint
	Validators []*validation.Validator
}

func (Scalar) sealed()        {}
func (Nullable) sealed()      {}
func (Alternatives) sealed()  {}
func (List) sealed()          {}
func (Set) sealed()           {}
func (Map) sealed()           {}
func (Tuple) sealed()         {}
func (Variadic) sealed()      {}
func (*Enum) sealed()         {}
func (Literal) sealed()       {}
func (Param) sealed()         {}
func (*Alias) sealed()        {}
func (Annotated) sealed()     {}
func (*Record) sealed()       {}

var nextID atomic.Uint64

func (s Scalar) Signature() string { return s.Kind.String() }

func (n Nullable) Signature() string { return "nullable(" + n.Elem.Signature() + ")" }

func (a Alternatives) Signature() string {
	parts := make([]string, len(a.Options))
	for i, o := range a.Options {
		parts[i] = o.Signature()
	}
	return "alt(" + strings.Join(parts, "|") + ")"
}

func (l List) Signature() string { return "list(" + l.Elem.Signature() + ")" }

func (s Set) Signature() string { return "set(" + s.Elem.Signature() + ")" }

func (m Map) Signature() string {
	return "map(" + m.Key.Signature() + "," + m.Value.Signature() + ")"
}

func (t Tuple) Signature() string {
	parts := make([]string, len(t.Items))
	for i, it := range t.Items {
		parts[i] = it.Signature()
	}
	return "tuple(" + strings.Join(parts, ",") + ")"
}

func (v Variadic) Signature() string { return "variadic(" + v.Elem.Signature() + ")" }

func (e *Enum) Signature() string {
	return fmt.Sprintf("enum:%s@%d", e.Name, e.id)
}

func (l Literal) Signature() string {
	parts := make([]string, len(l.Values))
	for i, v := range l.Values {
		parts[i] = fmt.Sprintf("%T:%v", v, v)
	}
	return "literal(" + strings.Join(parts, "|") + ")"
}

func (p Param) Signature() string { return "param(" + p.Name + ")" }

func (a *Alias) Signature() string {
	return fmt.Sprintf("alias:%s@%d", a.Name, a.id)
}

func (a Annotated) Signature() string {
	// Annotated wrappers share the element identity; facets are folded into
	// the compiled method, not the cache key, by the compiler unwrapping them
	// before memoization.
	return "annotated(" + a.Elem.Signature() + ")"
}

// NewEnum builds a named enumeration over the given values.
func NewEnum(name string, values ...any) *Enum {
	return &Enum{Name: name, Values: values, id: nextID.Add(1)}
}

// NewAlias names a type without changing its behavior.
func NewAlias(name string, elem Type) *Alias {
	return &Alias{Name: name, Elem: elem, id: nextID.Add(1)}
}

// Annotate wraps t with a constraint and validators. A nil constraint and
// empty validators return t unchanged.
func Annotate(t Type, c constraint.Constraint, validators ...*validation.Validator) Type {
	if c == nil && len(validators) == 0 {
		return t
	}
	return Annotated{Elem: t, Constraint: c, Validators: validators}
}

// Convenience constructors mirroring the variant names.

func Bool() Type   { return Scalar{Kind: ScalarBool} }
func Int() Type    { return Scalar{Kind: ScalarInt} }
func Float() Type  { return Scalar{Kind: ScalarFloat} }
func String() Type { return Scalar{Kind: ScalarString} }
func Any() Type    { return Scalar{Kind: ScalarAny} }

func NullableOf(t Type) Type       { return Nullable{Elem: t} }
func AltOf(options ...Type) Type   { return Alternatives{Options: options} }
func ListOf(t Type) Type           { return List{Elem: t} }
func SetOf(t Type) Type            { return Set{Elem: t} }
func MapOf(k, v Type) Type         { return Map{Key: k, Value: v} }
func TupleOf(items ...Type) Type   { return Tuple{Items: items} }
func VariadicOf(t Type) Type       { return Variadic{Elem: t} }
func LiteralOf(values ...any) Type { return Literal{Values: values} }
func ParamOf(name string) Type     { return Param{Name: name} }

// PatternRole compiles the regexp for a pattern-keyed field, panicking on an
// invalid expression the way regexp.MustCompile does.
func PatternRole(expr string) *regexp.Regexp { return regexp.MustCompile(expr) }
