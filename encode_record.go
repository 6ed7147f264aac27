package goshape

import (
	"github.com/goshape/goshape/convert"
	"github.com/goshape/goshape/i18n"
	"github.com/goshape/goshape/modeltype"
	"github.com/goshape/goshape/validation"
)

type encodeFieldPlan struct {
	field  modeltype.Field
	alias  string
	method encodeMethod
}

// compileRecordEncode builds the record encode node: plain fields emit one
// aliased property each, flattened and collector fields splice their encoded
// sub-objects into the parent. Validators do not run on encode; the native
// value is trusted to have been assembled by decoding or by the caller.
func (c *compiler) compileRecordEncode(rec *modeltype.Record, ov *convert.Override) (encodeMethod, error) {
	var plain, splice []*encodeFieldPlan
	for _, f := range rec.Fields() {
		ft := f.Type
		if f.Constraint != nil {
			ft = modeltype.Annotated{Elem: ft, Constraint: f.Constraint}
		}
		m, err := c.encodeMethodFor(ft, ov)
		if err != nil {
			return nil, err
		}
		fp := &encodeFieldPlan{field: f, alias: f.EffectiveAlias(), method: m}
		if f.Role == modeltype.RolePlain {
			plain = append(plain, fp)
		} else {
			splice = append(splice, fp)
		}
	}
	return func(ec *encodeContext, v any) (any, error) {
		values, ok := v.(map[string]any)
		if !ok {
			return nil, validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": "object"}))
		}
		out := make(map[string]any, len(plain))
		var verr *validation.Error
		for _, fp := range plain {
			nv, present := values[fp.field.Name]
			if !present {
				if fp.field.Default != nil {
					nv = fp.field.Default()
				} else if fp.field.Required {
					verr = validation.Merge(verr, validation.NewChildError(fp.alias,
						validation.NewError(i18n.T(CodeMissingProperty, nil))))
					continue
				} else {
					continue
				}
			}
			ev, err := fp.method(ec, nv)
			if err != nil {
				verr = validation.Merge(verr, validation.NewChildError(fp.alias, validation.FromErr(err)))
				continue
			}
			out[fp.alias] = ev
		}
		for _, fp := range splice {
			nv, present := values[fp.field.Name]
			if !present {
				continue
			}
			ev, err := fp.method(ec, nv)
			if err != nil {
				// Spliced properties live at this level of the wire object,
				// so the sub-node's errors merge in unnested.
				verr = validation.Merge(verr, validation.FromErr(err))
				continue
			}
			sub, ok := ev.(map[string]any)
			if !ok {
				verr = validation.Merge(verr, validation.NewChildError(fp.alias,
					validation.NewError(i18n.T(CodeInvalidType, map[string]string{"expected": "object"}))))
				continue
			}
			for k, sv := range sub {
				out[k] = sv
			}
		}
		if verr != nil {
			return nil, verr
		}
		return out, nil
	}, nil
}
