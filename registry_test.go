package recwire_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/recwire/recwire"
)

func TestCompileResolvesForwardReferences(t *testing.T) {
	reg := recwire.NewRegistry()
	// "Node" is referenced before it is registered.
	reg.Register("Tree", recwire.Fields(
		recwire.Field("root", recwire.Ref("Node")),
	))
	reg.Register("Node", recwire.Fields(
		recwire.Field("label", recwire.String()),
		recwire.Field("children", recwire.SeqOf(recwire.Ref("Node"))),
	))
	if err := reg.Compile(); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	node, ok := reg.Schema("Node")
	if !ok {
		t.Fatalf("Node schema not found")
	}
	if got := node.Field(1).Type().String(); got != "[]Node" {
		t.Fatalf("expected self-referential field type []Node, got %s", got)
	}
}

func TestCompileUnresolvedReference(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("A", recwire.Fields(
		recwire.Field("b", recwire.Ref("B")),
	))
	err := reg.Compile()
	var se *recwire.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if !strings.Contains(se.Error(), `"B"`) {
		t.Fatalf("error should name the unresolved reference: %v", se)
	}
}

func TestCompileDiscriminantCollision(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("First", nil, recwire.TagValue("same"))
	reg.Register("Second", nil, recwire.TagValue("same"))
	reg.RegisterUnion("U", "First", "Second")
	err := reg.Compile()
	var se *recwire.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if !strings.Contains(se.Error(), `"same"`) {
		t.Fatalf("error should name the colliding value: %v", se)
	}
}

func TestCompileDiscriminantFieldCollision(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Shape", recwire.Fields(
		recwire.Field("type", recwire.String()),
	), recwire.Tagged())
	err := reg.Compile()
	var se *recwire.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
}

func TestCompileUntaggedUnionMember(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Plain", recwire.Fields(
		recwire.Field("x", recwire.Int()),
	))
	reg.RegisterUnion("U", "Plain")
	if err := reg.Compile(); err == nil {
		t.Fatalf("expected compile to reject an untagged union member")
	}
}

func TestCompileTagFieldDisagreement(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("A", nil, recwire.Tagged())
	reg.Register("B", nil, recwire.TagField("kind"))
	reg.RegisterUnion("U", "A", "B")
	if err := reg.Compile(); err == nil {
		t.Fatalf("expected compile to reject disagreeing discriminant fields")
	}
}

func TestCompileInvalidDefault(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Cfg", recwire.Fields(
		recwire.Field("retries", recwire.Int(), recwire.Default("three")),
	))
	err := reg.Compile()
	var se *recwire.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if !strings.Contains(se.Error(), "retries") {
		t.Fatalf("error should name the field: %v", se)
	}
}

func TestCompileDefaultViolatesConstraints(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Cfg", recwire.Fields(
		recwire.Field("level", recwire.Int(), recwire.Min(1), recwire.Max(5), recwire.Default(9)),
	))
	if err := reg.Compile(); err == nil {
		t.Fatalf("expected compile to reject a default outside its bounds")
	}
}

func TestCompileConstraintOnWrongKind(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("Cfg", recwire.Fields(
		recwire.Field("flag", recwire.Bool(), recwire.Min(0)),
	))
	if err := reg.Compile(); err == nil {
		t.Fatalf("expected compile to reject numeric bounds on a bool field")
	}
}

func TestCompileDuplicateSchemaName(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("X", nil)
	reg.Register("X", nil)
	if err := reg.Compile(); err == nil {
		t.Fatalf("expected compile to reject duplicate registrations")
	}
}

func TestCompileDuplicateFieldName(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("X", recwire.Fields(
		recwire.Field("a", recwire.Int()),
		recwire.Field("a", recwire.String()),
	))
	if err := reg.Compile(); err == nil {
		t.Fatalf("expected compile to reject duplicate field names")
	}
}

func TestRegisterAfterCompilePanics(t *testing.T) {
	reg := recwire.NewRegistry().MustCompile()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Register after Compile to panic")
		}
	}()
	reg.Register("Late", nil)
}

func TestUnionFlattensNestedUnions(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("A", nil, recwire.Tagged())
	reg.Register("B", nil, recwire.Tagged())
	reg.Register("C", nil, recwire.Tagged())
	reg.RegisterUnion("Inner", "A", "B")
	reg.RegisterUnion("Outer", "Inner", "C")
	if err := reg.Compile(); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	outer, _ := reg.Union("Outer")
	if got := len(outer.Members()); got != 3 {
		t.Fatalf("expected 3 flattened members, got %d", got)
	}
	if _, ok := outer.Member("B"); !ok {
		t.Fatalf("nested member B not reachable through Outer")
	}
}

func TestUnionDiamondIsNotACycle(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("A", nil, recwire.Tagged())
	reg.Register("B", nil, recwire.Tagged())
	reg.RegisterUnion("Shared", "A", "B")
	// Two siblings both reach Shared; its schemas dedupe, no cycle.
	reg.RegisterUnion("Left", "Shared")
	reg.RegisterUnion("Right", "Shared")
	reg.RegisterUnion("Top", "Left", "Right")
	if err := reg.Compile(); err != nil {
		t.Fatalf("diamond-shaped union graph should compile: %v", err)
	}
	top, _ := reg.Union("Top")
	if got := len(top.Members()); got != 2 {
		t.Fatalf("expected 2 deduped members, got %d", got)
	}
}

func TestUnionSelfCycleRejected(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.RegisterUnion("U", "U")
	err := reg.Compile()
	var se *recwire.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if !strings.Contains(se.Error(), "includes itself") {
		t.Fatalf("error should report the cycle: %v", se)
	}
}

func TestFingerprintIgnoresRegistrationOrder(t *testing.T) {
	build := func(reverse bool) string {
		reg := recwire.NewRegistry()
		if reverse {
			reg.Register("B", recwire.Fields(recwire.Field("n", recwire.Int())))
			reg.Register("A", recwire.Fields(recwire.Field("s", recwire.String())))
		} else {
			reg.Register("A", recwire.Fields(recwire.Field("s", recwire.String())))
			reg.Register("B", recwire.Fields(recwire.Field("n", recwire.Int())))
		}
		return reg.MustCompile().Fingerprint()
	}
	if build(false) != build(true) {
		t.Fatalf("fingerprint should not depend on registration order")
	}
}

func TestFingerprintSensitiveToDeclarationChange(t *testing.T) {
	build := func(max float64) string {
		reg := recwire.NewRegistry()
		reg.Register("A", recwire.Fields(
			recwire.Field("n", recwire.Int(), recwire.Max(max)),
		))
		return reg.MustCompile().Fingerprint()
	}
	if build(10) == build(11) {
		t.Fatalf("fingerprint should change with constraint bounds")
	}
}

func TestTypeOfLooksUpRecordsAndUnions(t *testing.T) {
	reg := recwire.NewRegistry()
	reg.Register("R", nil, recwire.Tagged())
	reg.RegisterUnion("U", "R")
	reg.MustCompile()
	if typ, ok := reg.TypeOf("R"); !ok || typ.Kind() != recwire.KindRecord {
		t.Fatalf("expected record type for R, got %v (ok=%v)", typ, ok)
	}
	if typ, ok := reg.TypeOf("U"); !ok || typ.Kind() != recwire.KindUnion {
		t.Fatalf("expected union type for U, got %v (ok=%v)", typ, ok)
	}
	if _, ok := reg.TypeOf("missing"); ok {
		t.Fatalf("expected lookup miss for unregistered name")
	}
}
