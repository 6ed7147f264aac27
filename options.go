package goshape

import (
	"github.com/goshape/goshape/convert"
	"github.com/goshape/goshape/modeltype"
)

// Coercer optionally converts a mismatched wire value into one acceptable
// for the target scalar kind. Returning false leaves the original type error
// in place.
type Coercer func(kind modeltype.ScalarKind, v any) (any, bool)

// Options configures decoding and encoding behavior. Options affect the
// runtime walk only; the compiled node is shared across option sets, except
// for Conversions, which participate in the cache key.
type Options struct {
	// AllowUnknown accepts wire properties that no record field consumes
	// instead of reporting unexpected_property.
	AllowUnknown bool
	// Coerce enables scalar type coercion. Nil disables coercion; use
	// DefaultCoercer for the standard table.
	Coerce Coercer
	// FallbackToDefaultOnError replaces a failed field decode with the field
	// default when one exists, swallowing that field's error.
	FallbackToDefaultOnError bool
	// Conversions overrides the visible conversion registry for this
	// compilation. Distinct overrides yield distinct cached nodes.
	Conversions *convert.Override
}
