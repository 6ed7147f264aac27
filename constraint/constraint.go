// Package constraint implements immutable, mergeable validation facets.
// A facet set is checked against an already shape-valid value and yields
// zero or more messages; it never aborts the walk by itself. Merging two
// facet sets of the same kind is associative and commutative per facet;
// merging different kinds is a configuration error.
package constraint

import (
	"fmt"
	"math"
	"regexp"

	"github.com/goccy/go-json"
)

// Constraint is one shape-specific facet set.
type Constraint interface {
	// Check validates v and returns violation messages. v is assumed to have
	// already passed the shape's type check.
	Check(v any) []string
	Kind() string
}

// ErrIncompatible reports an attempt to merge facet sets of different kinds.
type ErrIncompatible struct {
	A, B string
}

func (e *ErrIncompatible) Error() string {
	return fmt.Sprintf("cannot merge %s constraint with %s constraint", e.A, e.B)
}

// ErrConflict reports two facet sets of the same kind carrying different
// values for a facet that admits exactly one, such as two patterns.
type ErrConflict struct {
	Facet string
	A, B  string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("conflicting %s facets: %s vs %s", e.Facet, e.A, e.B)
}

// Merge combines two facet sets of the same kind. Either side may be nil.
// Lower bounds merge to their max, upper bounds to their min, so the result
// is at least as strict as both inputs regardless of order. Single-valued
// facets (pattern, multipleOf) must agree; a disagreement errors rather than
// silently dropping one side.
func Merge(a, b Constraint) (Constraint, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	if a.Kind() != b.Kind() {
		return nil, &ErrIncompatible{A: a.Kind(), B: b.Kind()}
	}
	switch ac := a.(type) {
	case *Number:
		return ac.merge(b.(*Number))
	case *String:
		return ac.merge(b.(*String))
	case *Items:
		return ac.merge(b.(*Items)), nil
	case *Properties:
		return ac.merge(b.(*Properties)), nil
	}
	return nil, &ErrIncompatible{A: a.Kind(), B: b.Kind()}
}

// ---- numeric facets ----

// Number constrains numeric scalars.
type Number struct {
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64
}

func (*Number) Kind() string { return "number" }

func (c *Number) merge(o *Number) (Constraint, error) {
	mo, err := sameFloat(c.MultipleOf, o.MultipleOf, "multipleOf")
	if err != nil {
		return nil, err
	}
	return &Number{
		Minimum:          maxBound(c.Minimum, o.Minimum),
		Maximum:          minBound(c.Maximum, o.Maximum),
		ExclusiveMinimum: maxBound(c.ExclusiveMinimum, o.ExclusiveMinimum),
		ExclusiveMaximum: minBound(c.ExclusiveMaximum, o.ExclusiveMaximum),
		MultipleOf:       mo,
	}, nil
}

func (c *Number) Check(v any) []string {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	var msgs []string
	if c.Minimum != nil && f < *c.Minimum {
		msgs = append(msgs, fmt.Sprintf("%v < %v (minimum)", format(f), format(*c.Minimum)))
	}
	if c.Maximum != nil && f > *c.Maximum {
		msgs = append(msgs, fmt.Sprintf("%v > %v (maximum)", format(f), format(*c.Maximum)))
	}
	if c.ExclusiveMinimum != nil && f <= *c.ExclusiveMinimum {
		msgs = append(msgs, fmt.Sprintf("%v <= %v (exclusiveMinimum)", format(f), format(*c.ExclusiveMinimum)))
	}
	if c.ExclusiveMaximum != nil && f >= *c.ExclusiveMaximum {
		msgs = append(msgs, fmt.Sprintf("%v >= %v (exclusiveMaximum)", format(f), format(*c.ExclusiveMaximum)))
	}
	if c.MultipleOf != nil && *c.MultipleOf != 0 && math.Mod(f, *c.MultipleOf) != 0 {
		msgs = append(msgs, fmt.Sprintf("%v is not a multiple of %v (multipleOf)", format(f), format(*c.MultipleOf)))
	}
	return msgs
}

// ---- string facets ----

// String constrains string scalars. Pattern is compiled once at construction.
type String struct {
	MinLength *int
	MaxLength *int
	Pattern   *regexp.Regexp
}

func (*String) Kind() string { return "string" }

func (c *String) merge(o *String) (Constraint, error) {
	p, err := samePattern(c.Pattern, o.Pattern)
	if err != nil {
		return nil, err
	}
	return &String{
		MinLength: maxInt(c.MinLength, o.MinLength),
		MaxLength: minInt(c.MaxLength, o.MaxLength),
		Pattern:   p,
	}, nil
}

func (c *String) Check(v any) []string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	var msgs []string
	n := len([]rune(s))
	if c.MinLength != nil && n < *c.MinLength {
		msgs = append(msgs, fmt.Sprintf("%q.length < %d (minLength)", s, *c.MinLength))
	}
	if c.MaxLength != nil && n > *c.MaxLength {
		msgs = append(msgs, fmt.Sprintf("%q.length > %d (maxLength)", s, *c.MaxLength))
	}
	if c.Pattern != nil && !c.Pattern.MatchString(s) {
		msgs = append(msgs, fmt.Sprintf("%q does not match %q (pattern)", s, c.Pattern.String()))
	}
	return msgs
}

// ---- collection facets ----

// Items constrains sequences.
type Items struct {
	MinItems *int
	MaxItems *int
	Unique   bool
}

func (*Items) Kind() string { return "items" }

func (c *Items) merge(o *Items) *Items {
	return &Items{
		MinItems: maxInt(c.MinItems, o.MinItems),
		MaxItems: minInt(c.MaxItems, o.MaxItems),
		Unique:   c.Unique || o.Unique,
	}
}

func (c *Items) Check(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var msgs []string
	if c.MinItems != nil && len(items) < *c.MinItems {
		msgs = append(msgs, fmt.Sprintf("not enough items, %d is lower than %d (minItems)", len(items), *c.MinItems))
	}
	if c.MaxItems != nil && len(items) > *c.MaxItems {
		msgs = append(msgs, fmt.Sprintf("too many items, %d is greater than %d (maxItems)", len(items), *c.MaxItems))
	}
	if c.Unique && hasDuplicates(items) {
		msgs = append(msgs, "duplicate items (uniqueItems)")
	}
	return msgs
}

// ---- record facets ----

// Properties constrains the property count of objects.
type Properties struct {
	MinProperties *int
	MaxProperties *int
}

func (*Properties) Kind() string { return "properties" }

func (c *Properties) merge(o *Properties) *Properties {
	return &Properties{
		MinProperties: maxInt(c.MinProperties, o.MinProperties),
		MaxProperties: minInt(c.MaxProperties, o.MaxProperties),
	}
}

func (c *Properties) Check(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	var msgs []string
	if c.MinProperties != nil && len(m) < *c.MinProperties {
		msgs = append(msgs, fmt.Sprintf("not enough properties, %d is lower than %d (minProperties)", len(m), *c.MinProperties))
	}
	if c.MaxProperties != nil && len(m) > *c.MaxProperties {
		msgs = append(msgs, fmt.Sprintf("too many properties, %d is greater than %d (maxProperties)", len(m), *c.MaxProperties))
	}
	return msgs
}

// ---- helpers ----

// Min returns a Number facet set with an inclusive minimum.
func Min(n float64) *Number { return &Number{Minimum: &n} }

// Max returns a Number facet set with an inclusive maximum.
func Max(n float64) *Number { return &Number{Maximum: &n} }

// MinLen returns a String facet set with a minimum rune length.
func MinLen(n int) *String { return &String{MinLength: &n} }

// MaxLen returns a String facet set with a maximum rune length.
func MaxLen(n int) *String { return &String{MaxLength: &n} }

// Pattern returns a String facet set matching against the compiled regexp.
func Pattern(re *regexp.Regexp) *String { return &String{Pattern: re} }

// MinItems returns an Items facet set with a minimum length.
func MinItems(n int) *Items { return &Items{MinItems: &n} }

// MaxItems returns an Items facet set with a maximum length.
func MaxItems(n int) *Items { return &Items{MaxItems: &n} }

// UniqueItems returns an Items facet set requiring element uniqueness.
func UniqueItems() *Items { return &Items{Unique: true} }

func maxBound(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil || *a >= *b {
		return a
	}
	return b
}

func minBound(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil || *a <= *b {
		return a
	}
	return b
}

func maxInt(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil || *a >= *b {
		return a
	}
	return b
}

func minInt(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil || *a <= *b {
		return a
	}
	return b
}

func sameFloat(a, b *float64, facet string) (*float64, error) {
	if a == nil {
		return b, nil
	}
	if b == nil || *a == *b {
		return a, nil
	}
	return nil, &ErrConflict{Facet: facet, A: format(*a), B: format(*b)}
}

func samePattern(a, b *regexp.Regexp) (*regexp.Regexp, error) {
	if a == nil {
		return b, nil
	}
	if b == nil || a.String() == b.String() {
		return a, nil
	}
	return nil, &ErrConflict{Facet: "pattern", A: a.String(), B: b.String()}
}

func asFloat(v any) (float64, bool) {
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

func format(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// hasDuplicates compares elements by canonical JSON rendering so nested
// containers participate in uniqueness checks.
func hasDuplicates(items []any) bool {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			continue
		}
		if _, dup := seen[string(b)]; dup {
			return true
		}
		seen[string(b)] = struct{}{}
	}
	return false
}
