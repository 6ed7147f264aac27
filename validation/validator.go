package validation

// Validator is a business-rule predicate attached to a record type or to one
// of its fields. It runs after structural decoding, against a View of the
// decoded field values.
type Validator struct {
	// Name optionally identifies the rule in error output and debugging.
	Name string
	// Deps lists the field names the check reads. A validator is only
	// scheduled when every dependency decoded successfully.
	Deps []string
	// Field, when non-empty, scopes the validator to one field: its errors
	// are nested under the field's alias, and Discard defaults to the field
	// itself.
	Field string
	// Discard names sibling fields to consider invalid once this validator
	// has reported, suppressing later validators that depend on them.
	Discard []string
	// Check runs the rule. A returned *Error is merged as-is; any other
	// error is captured as a "[T] message" entry rather than propagated.
	Check func(v *View) error
}

// discardSet resolves the effective discard set: explicit Discard, or the
// scoped field when one is set.
func (va *Validator) discardSet() []string {
	if len(va.Discard) > 0 {
		return va.Discard
	}
	if va.Field != "" {
		return []string{va.Field}
	}
	return nil
}

func (va *Validator) dependsOnAny(fields map[string]struct{}) bool {
	for _, d := range va.Deps {
		if _, ok := fields[d]; ok {
			return true
		}
	}
	return false
}

// Runnable reports whether the validator can run when the given fields are
// invalid or missing: every dependency must be outside that set.
func (va *Validator) Runnable(invalid map[string]struct{}) bool {
	return !va.dependsOnAny(invalid)
}

// Aliaser maps a field name to its external alias for error paths.
type Aliaser func(field string) string

// Run executes validators in order against view, merging every failure into
// one Error. When a failing validator discards fields, the remaining
// validators that depend on any discarded field are skipped for this call;
// independent validators still run and may still report.
func Run(view *View, validators []*Validator, alias Aliaser) error {
	if alias == nil {
		alias = func(f string) string { return f }
	}
	err := run(view, validators, alias, nil)
	if err != nil {
		return err
	}
	return nil
}

func run(view *View, validators []*Validator, alias Aliaser, acc *Error) *Error {
	for i, va := range validators {
		if va.Check == nil {
			continue
		}
		cerr := va.Check(view)
		if cerr == nil {
			continue
		}
		verr := FromErr(cerr)
		if va.Field != "" {
			verr = NewChildError(alias(va.Field), verr)
		}
		acc = Merge(acc, verr)
		if discarded := va.discardSet(); len(discarded) > 0 {
			dset := make(map[string]struct{}, len(discarded))
			for _, f := range discarded {
				dset[f] = struct{}{}
			}
			rest := make([]*Validator, 0, len(validators)-i-1)
			for _, v2 := range validators[i+1:] {
				if !v2.dependsOnAny(dset) {
					rest = append(rest, v2)
				}
			}
			return run(view, rest, alias, acc)
		}
	}
	return acc
}

// RunPartial executes only the validators whose dependencies are all outside
// the invalid set, against a partial view. Dependents of an invalid field are
// skipped; the rest still produce a verdict.
func RunPartial(view *View, validators []*Validator, invalid map[string]struct{}, alias Aliaser) error {
	runnable := make([]*Validator, 0, len(validators))
	for _, va := range validators {
		if va.Runnable(invalid) {
			runnable = append(runnable, va)
		}
	}
	return Run(view, runnable, alias)
}
