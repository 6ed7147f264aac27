// Package goshape compiles declarative type models into reusable decode and
// encode functions for generic wire values.
//
// A model is built from the shapes in package modeltype (scalars, nullables,
// alternatives, containers, enums, records), optionally annotated with
// constraint facets and business-rule validators. CompileDecoder and
// CompileEncoder walk the model once, resolve registered conversions, merge
// constraints, and return closures that validate and transform values
// without any further type analysis. Compiled nodes are cached process-wide
// and shared across goroutines.
//
// Decode failures are reported as *validation.Error trees that address every
// violation by its path in the input; configuration mistakes (unmergeable
// constraints, duplicate wire properties, unbound type parameters) are
// *ConfigError values raised at compile time.
package goshape
