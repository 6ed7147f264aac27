package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestViewGetFallsBackToDefault(t *testing.T) {
	v := NewView(
		map[string]any{"a": int64(1)},
		map[string]func() any{"b": func() any { return "dflt" }},
	)
	got, err := v.Get("a")
	require.NoError(t, err)
	require.Equal(t, int64(1), got)

	got, err = v.Get("b")
	require.NoError(t, err)
	require.Equal(t, "dflt", got)

	_, err = v.Get("c")
	var missing *ErrMissingField
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "c", missing.Field)

	require.True(t, v.Has("a"))
	require.True(t, v.Has("b"))
	require.False(t, v.Has("c"))
}

func TestRunMergesAllFailures(t *testing.T) {
	view := NewView(map[string]any{"a": int64(1)}, nil)
	validators := []*Validator{
		{Name: "one", Check: func(*View) error { return errors.New("first") }},
		{Name: "two", Check: func(*View) error { return NewError("second") }},
	}
	err := Run(view, validators, nil)
	require.Error(t, err)
	ve, ok := AsError(err)
	require.True(t, ok)
	require.Len(t, ve.Flatten(), 2)
}

func TestRunDiscardSuppressesDependents(t *testing.T) {
	view := NewView(map[string]any{"a": int64(1), "b": int64(2)}, nil)
	ran := map[string]bool{}
	validators := []*Validator{
		{
			Name:    "breaks-a",
			Discard: []string{"a"},
			Check: func(*View) error {
				ran["breaks-a"] = true
				return errors.New("a is broken")
			},
		},
		{
			Name: "needs-a",
			Deps: []string{"a"},
			Check: func(*View) error {
				ran["needs-a"] = true
				return errors.New("should not run")
			},
		},
		{
			Name: "needs-b",
			Deps: []string{"b"},
			Check: func(*View) error {
				ran["needs-b"] = true
				return nil
			},
		},
	}
	err := Run(view, validators, nil)
	require.Error(t, err)
	require.True(t, ran["breaks-a"])
	require.False(t, ran["needs-a"])
	require.True(t, ran["needs-b"])

	ve, _ := AsError(err)
	require.Len(t, ve.Flatten(), 1)
}

func TestFieldScopedErrorsNestUnderAlias(t *testing.T) {
	view := NewView(map[string]any{"userName": "x"}, nil)
	validators := []*Validator{
		{
			Field: "userName",
			Deps:  []string{"userName"},
			Check: func(*View) error { return errors.New("too short") },
		},
	}
	alias := func(f string) string {
		if f == "userName" {
			return "user_name"
		}
		return f
	}
	err := Run(view, validators, alias)
	ve, ok := AsError(err)
	require.True(t, ok)
	flat := ve.Flatten()
	require.Len(t, flat, 1)
	require.Equal(t, []string{"user_name"}, flat[0].Path)
}

func TestFieldScopeImpliesDiscard(t *testing.T) {
	va := &Validator{Field: "a"}
	require.Equal(t, []string{"a"}, va.discardSet())

	va = &Validator{Field: "a", Discard: []string{"b"}}
	require.Equal(t, []string{"b"}, va.discardSet())
}

func TestRunPartialSkipsValidatorsOnInvalidFields(t *testing.T) {
	view := NewView(map[string]any{"b": int64(2)}, nil)
	ran := map[string]bool{}
	validators := []*Validator{
		{Name: "needs-a", Deps: []string{"a"}, Check: func(*View) error {
			ran["needs-a"] = true
			return errors.New("never")
		}},
		{Name: "needs-b", Deps: []string{"b"}, Check: func(*View) error {
			ran["needs-b"] = true
			return nil
		}},
	}
	err := RunPartial(view, validators, map[string]struct{}{"a": {}}, nil)
	require.NoError(t, err)
	require.False(t, ran["needs-a"])
	require.True(t, ran["needs-b"])
}
