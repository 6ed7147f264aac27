package modeltype

import (
	"testing"
)

func TestSignaturesDistinguishShapes(t *testing.T) {
	sigs := map[string]bool{}
	for _, ty := range []Type{
		Bool(), Int(), Float(), String(), Any(),
		NullableOf(Int()),
		ListOf(Int()), SetOf(Int()), VariadicOf(Int()),
		MapOf(String(), Int()),
		TupleOf(Int(), String()),
		AltOf(Int(), String()),
		LiteralOf(int64(1), "a"),
	} {
		sig := ty.Signature()
		if sigs[sig] {
			t.Fatalf("duplicate signature %q", sig)
		}
		sigs[sig] = true
	}
}

func TestNamedTypesNeverCollide(t *testing.T) {
	a := NewEnum("Color", "red", "green")
	b := NewEnum("Color", "red", "green")
	if a.Signature() == b.Signature() {
		t.Fatalf("distinct enums share signature %q", a.Signature())
	}
	x := NewAlias("ID", String())
	y := NewAlias("ID", String())
	if x.Signature() == y.Signature() {
		t.Fatalf("distinct aliases share signature %q", x.Signature())
	}
}

func TestAnnotatedSharesElementIdentity(t *testing.T) {
	base := ListOf(Int())
	ann := Annotated{Elem: base}
	if ann.Signature() != "annotated("+base.Signature()+")" {
		t.Fatalf("unexpected signature %q", ann.Signature())
	}
}

func TestSpecializeMemoizesInstances(t *testing.T) {
	box := NewRecord("Box", "T")
	box.SetFields(Field{Name: "Value", Type: ParamOf("T"), Required: true})

	a, err := box.Specialize(map[string]Type{"T": Int()})
	if err != nil {
		t.Fatalf("specialize: %v", err)
	}
	b, err := box.Specialize(map[string]Type{"T": Int()})
	if err != nil {
		t.Fatalf("specialize: %v", err)
	}
	if a != b {
		t.Fatalf("same arguments produced distinct instances")
	}
	c, err := box.Specialize(map[string]Type{"T": String()})
	if err != nil {
		t.Fatalf("specialize: %v", err)
	}
	if a == c {
		t.Fatalf("different arguments share an instance")
	}
	if a.Fields()[0].Type.Signature() != Int().Signature() {
		t.Fatalf("parameter not substituted: %q", a.Fields()[0].Type.Signature())
	}
}

func TestSpecializeSelfReferentialGeneric(t *testing.T) {
	// Node[T] { Value T; Next Node[T]? } must terminate and map the
	// self-reference onto its own specialization.
	node := NewRecord("Node", "T")
	node.SetFields(
		Field{Name: "Value", Type: ParamOf("T"), Required: true},
		Field{Name: "Next", Type: NullableOf(node)},
	)
	inst, err := node.Specialize(map[string]Type{"T": Int()})
	if err != nil {
		t.Fatalf("specialize: %v", err)
	}
	next := inst.Fields()[1].Type.(Nullable).Elem
	if next != Type(inst) {
		t.Fatalf("self-reference does not point at the specialization")
	}
}

func TestSpecializeErrors(t *testing.T) {
	plain := NewRecord("Plain")
	plain.SetFields(Field{Name: "A", Type: Int()})
	if _, err := plain.Specialize(map[string]Type{"T": Int()}); err == nil {
		t.Fatalf("expected error for arguments to a non-generic record")
	}

	box := NewRecord("Box", "T")
	box.SetFields(Field{Name: "Value", Type: ParamOf("T")})
	if _, err := box.Specialize(nil); err == nil {
		t.Fatalf("expected error for a missing type argument")
	}
}

func TestEffectiveAlias(t *testing.T) {
	f := Field{Name: "UserName"}
	if f.EffectiveAlias() != "UserName" {
		t.Fatalf("want field name fallback, got %q", f.EffectiveAlias())
	}
	f.Alias = "user_name"
	if f.EffectiveAlias() != "user_name" {
		t.Fatalf("want alias, got %q", f.EffectiveAlias())
	}
}
