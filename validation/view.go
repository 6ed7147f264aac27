package validation

import "fmt"

// ErrMissingField reports a read of a field that is absent from a View,
// either because it was never decoded or because its decode failed. Checks
// that depend on such a field should not have been scheduled; a direct read
// surfaces the condition explicitly instead of guessing a zero value.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("field %q is not available on this view", e.Field)
}

// View is the value a validator runs against: a key-value mapping of the
// fields that decoded successfully so far. During partial validation some
// fields may be absent; Get makes absence an explicit checked case.
type View struct {
	values   map[string]any
	defaults map[string]func() any
}

// NewView builds a View over decoded field values. defaults supplies lazy
// default producers consulted when a field was not decoded but has one.
func NewView(values map[string]any, defaults map[string]func() any) *View {
	return &View{values: values, defaults: defaults}
}

// Get returns the field value, falling back to the field default when the
// field is absent but defaulted. Reading an unavailable field returns
// *ErrMissingField.
func (v *View) Get(name string) (any, error) {
	if val, ok := v.values[name]; ok {
		return val, nil
	}
	if d, ok := v.defaults[name]; ok && d != nil {
		return d(), nil
	}
	return nil, &ErrMissingField{Field: name}
}

// Has reports whether the field can be read without error.
func (v *View) Has(name string) bool {
	if _, ok := v.values[name]; ok {
		return true
	}
	d, ok := v.defaults[name]
	return ok && d != nil
}

// Values exposes the decoded fields as a plain map. The map is shared, not
// copied; validators must treat it as read-only.
func (v *View) Values() map[string]any { return v.values }
