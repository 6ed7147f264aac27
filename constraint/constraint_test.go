package constraint

import (
	"regexp"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestNumberMessages(t *testing.T) {
	c := &Number{Minimum: f(5)}
	require.Equal(t, []string{"3 < 5 (minimum)"}, c.Check(int64(3)))
	require.Empty(t, c.Check(int64(5)))

	c = &Number{ExclusiveMaximum: f(10)}
	require.Equal(t, []string{"10 >= 10 (exclusiveMaximum)"}, c.Check(int64(10)))

	c = &Number{MultipleOf: f(3)}
	require.Equal(t, []string{"7 is not a multiple of 3 (multipleOf)"}, c.Check(int64(7)))
}

func TestNumberAcceptsJSONNumber(t *testing.T) {
	c := &Number{Maximum: f(2)}
	require.NotEmpty(t, c.Check(json.Number("2.5")))
	require.Empty(t, c.Check(json.Number("2")))
}

func TestStringMessages(t *testing.T) {
	c := &String{MinLength: i(3)}
	require.Equal(t, []string{`"ab".length < 3 (minLength)`}, c.Check("ab"))

	c = &String{Pattern: regexp.MustCompile(`^\d+$`)}
	require.Equal(t, []string{`"abc" does not match "^\\d+$" (pattern)`}, c.Check("abc"))
	require.Empty(t, c.Check("123"))
}

func TestStringLengthCountsRunes(t *testing.T) {
	c := &String{MaxLength: i(2)}
	require.Empty(t, c.Check("日本"))
	require.NotEmpty(t, c.Check("日本語"))
}

func TestItemsMessages(t *testing.T) {
	c := &Items{MinItems: i(2)}
	require.Equal(t, []string{"not enough items, 1 is lower than 2 (minItems)"}, c.Check([]any{int64(1)}))

	c = &Items{Unique: true}
	require.Equal(t, []string{"duplicate items (uniqueItems)"}, c.Check([]any{int64(1), int64(1)}))
	require.Empty(t, c.Check([]any{int64(1), int64(2)}))
}

func TestUniqueComparesNestedContainers(t *testing.T) {
	c := &Items{Unique: true}
	dup := []any{
		map[string]any{"a": int64(1)},
		map[string]any{"a": int64(1)},
	}
	require.NotEmpty(t, c.Check(dup))
}

func TestMergeTightensBounds(t *testing.T) {
	a := &Number{Minimum: f(1), Maximum: f(10)}
	b := &Number{Minimum: f(5), Maximum: f(7)}
	ab, err := Merge(a, b)
	require.NoError(t, err)
	ba, err := Merge(b, a)
	require.NoError(t, err)

	// Merge order must not change strictness.
	for _, m := range []Constraint{ab, ba} {
		n := m.(*Number)
		require.Equal(t, 5.0, *n.Minimum)
		require.Equal(t, 7.0, *n.Maximum)
	}
}

func TestMergeNilSides(t *testing.T) {
	c := Min(1)
	m, err := Merge(nil, c)
	require.NoError(t, err)
	require.Same(t, Constraint(c), m)
	m, err = Merge(c, nil)
	require.NoError(t, err)
	require.Same(t, Constraint(c), m)
}

func TestMergeUnionsItemFlags(t *testing.T) {
	a := &Items{MinItems: i(1)}
	b := &Items{Unique: true}
	m, err := Merge(a, b)
	require.NoError(t, err)
	it := m.(*Items)
	require.Equal(t, 1, *it.MinItems)
	require.True(t, it.Unique)
}

func TestMergeAgreeingSingletonFacets(t *testing.T) {
	pa := &String{Pattern: regexp.MustCompile(`^\d+$`)}
	pb := &String{Pattern: regexp.MustCompile(`^\d+$`), MinLength: i(1)}
	m, err := Merge(pa, pb)
	require.NoError(t, err)
	require.Equal(t, `^\d+$`, m.(*String).Pattern.String())

	na := &Number{MultipleOf: f(3)}
	nb := &Number{MultipleOf: f(3), Minimum: f(0)}
	mn, err := Merge(na, nb)
	require.NoError(t, err)
	require.Equal(t, 3.0, *mn.(*Number).MultipleOf)
}

func TestMergeConflictingPatterns(t *testing.T) {
	a := &String{Pattern: regexp.MustCompile(`^\d+$`)}
	b := &String{Pattern: regexp.MustCompile(`^[a-z]+$`)}
	var conflict *ErrConflict
	// The conflict surfaces in either merge order.
	_, err := Merge(a, b)
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "pattern", conflict.Facet)
	_, err = Merge(b, a)
	require.ErrorAs(t, err, &conflict)
}

func TestMergeConflictingMultipleOf(t *testing.T) {
	a := &Number{MultipleOf: f(2)}
	b := &Number{MultipleOf: f(3)}
	var conflict *ErrConflict
	_, err := Merge(a, b)
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "multipleOf", conflict.Facet)
	_, err = Merge(b, a)
	require.ErrorAs(t, err, &conflict)
}

func TestMergeIncompatibleKinds(t *testing.T) {
	_, err := Merge(Min(1), MinLen(1))
	var inc *ErrIncompatible
	require.ErrorAs(t, err, &inc)
	require.Equal(t, "number", inc.A)
	require.Equal(t, "string", inc.B)
}

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }
