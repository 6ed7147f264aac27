package goshape

import (
	"fmt"

	"github.com/goshape/goshape/modeltype"
)

// Decode error codes passed to the i18n message table.
const (
	CodeInvalidType        = "invalid_type"
	CodeMissingProperty    = "missing_property"
	CodeUnexpectedProperty = "unexpected_property"
	CodeInvalidEnum        = "invalid_enum"
	CodeInvalidLiteral     = "invalid_literal"
	CodeInvalidUnion       = "invalid_union"
	CodeConversionFailed   = "conversion_failed"
)

// ConfigError reports a programmer-facing configuration failure: unmergeable
// constraints, duplicate aliases, an unusable conversion, an unbound type
// parameter. It is raised once at compile time, never during decode or
// encode, and is not recoverable; eagerly compiling all known types at
// startup surfaces every ConfigError before traffic arrives.
type ConfigError struct {
	Type   string // signature of the offending type, may be empty
	Reason string
	Cause  error
}

func (e *ConfigError) Error() string {
	if e.Type == "" {
		return "goshape: " + e.Reason
	}
	return fmt.Sprintf("goshape: %s: %s", e.Type, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

func configErrf(t modeltype.Type, cause error, format string, args ...any) *ConfigError {
	e := &ConfigError{Reason: fmt.Sprintf(format, args...), Cause: cause}
	if t != nil {
		e.Type = t.Signature()
	}
	return e
}
