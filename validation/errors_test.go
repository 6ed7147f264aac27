package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenOrdersMessagesBeforeChildren(t *testing.T) {
	e := Merge(
		NewError("root problem"),
		Merge(
			NewChildError("b", NewError("b problem")),
			NewChildError("a", NewError("a problem")),
		),
	)
	flat := e.Flatten()
	require.Len(t, flat, 3)
	require.Equal(t, "root problem", flat[0].Message)
	require.Empty(t, flat[0].Path)
	require.Equal(t, []string{"a"}, flat[1].Path)
	require.Equal(t, "a problem", flat[1].Message)
	require.Equal(t, []string{"b"}, flat[2].Path)
}

func TestMergeAccumulatesIndependentFailures(t *testing.T) {
	a := NewChildError("x", NewError("first"))
	b := NewChildError("x", NewError("second"))
	m := Merge(a, b)
	require.Equal(t, []string{"first", "second"}, m.Children["x"].Messages)
}

func TestMergeNilSides(t *testing.T) {
	e := NewError("only")
	require.Same(t, e, Merge(nil, e))
	require.Same(t, e, Merge(e, nil))
	require.Nil(t, Merge(nil, nil))
}

func TestAtPathBuildsNestedChildren(t *testing.T) {
	e := AtPath([]string{"a", "0"}, "deep")
	flat := e.Flatten()
	require.Len(t, flat, 1)
	require.Equal(t, []string{"a", "0"}, flat[0].Path)
	require.Equal(t, "deep", flat[0].Message)
}

func TestFromErrCapturesForeignErrors(t *testing.T) {
	err := errors.New("boom")
	ve := FromErr(err)
	require.Equal(t, []string{"[*errors.errorString] boom"}, ve.Messages)

	// A validation error passes through unchanged.
	orig := NewError("kept")
	require.Same(t, orig, FromErr(orig))
}

func TestErrorSummaryTruncates(t *testing.T) {
	e := Merge(
		Merge(NewChildError("a", NewError("m1")), NewChildError("b", NewError("m2"))),
		Merge(NewChildError("c", NewError("m3")), NewChildError("d", NewError("m4"))),
	)
	require.Contains(t, e.Error(), "m1 at /a")
	require.Contains(t, e.Error(), "(total 4)")
}
