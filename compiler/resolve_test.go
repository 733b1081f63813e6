package compiler

import (
	"strings"
	"testing"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/vm"
)

// testScope is a Scope backed by a symbol table and a fixed state layout.
type testScope struct {
	consts *SymbolTable
	labels map[string]actor.StateRef
	states int
}

func newTestScope() *testScope {
	consts := NewSymbolTable(nil)
	consts.Add(&ConstSymbol{Name: "TICRATE", Type: TypeInt, Value: vm.IntValue(35)})
	consts.Add(&ConstSymbol{Name: "HALF", Type: TypeFloat, Value: vm.FloatValue(0.5)})
	return &testScope{
		consts: consts,
		labels: map[string]actor.StateRef{"spawn": {Class: 7, Index: 0}},
		states: 4,
	}
}

func (s *testScope) LookupConstant(name string) (*ConstSymbol, bool) {
	return s.consts.LookupConstant(name)
}

func (s *testScope) LookupState(label string) (actor.StateRef, bool) {
	ref, ok := s.labels[strings.ToLower(label)]
	return ref, ok
}

func (s *testScope) StateAt(index int) (actor.StateRef, bool) {
	if index < 0 || index >= s.states {
		return actor.NullState, false
	}
	return actor.StateRef{Class: 7, Index: index}, true
}

func parseExpr(t *testing.T, input string) Expr {
	t.Helper()
	diag := NewDiagnostics(nil)
	e := NewParser(Source{Name: "expr", Text: input}, diag).ParseExpression()
	if diag.ErrorCount() > 0 {
		t.Fatalf("parse %q: %v", input, diag.Records())
	}
	return e
}

func TestResolveConstantFolding(t *testing.T) {
	tests := []struct {
		input string
		typ   ValueType
		i     int
		f     float64
	}{
		{"1 + 2 * 3", TypeInt, 7, 0},
		{"(1 + 2) * 3", TypeInt, 9, 0},
		{"-4 / 2", TypeInt, -2, 0},
		{"7 % 3", TypeInt, 1, 0},
		{"TICRATE * 2", TypeInt, 70, 0},
		{"1 + 0.5", TypeFloat, 0, 1.5},
		{"HALF * 4", TypeFloat, 0, 2},
	}

	for _, tc := range tests {
		diag := NewDiagnostics(nil)
		r := NewResolver(newTestScope(), diag)
		got := r.Resolve(parseExpr(t, tc.input))
		c, ok := got.(*Constant)
		if !ok {
			t.Errorf("Resolve(%q) = %T, want *Constant (%v)", tc.input, got, diag.Records())
			continue
		}
		if c.Type != tc.typ {
			t.Errorf("Resolve(%q) type = %v, want %v", tc.input, c.Type, tc.typ)
		}
		if tc.typ == TypeInt && c.Value.Int != tc.i {
			t.Errorf("Resolve(%q) = %d, want %d", tc.input, c.Value.Int, tc.i)
		}
		if tc.typ == TypeFloat && c.Value.Float != tc.f {
			t.Errorf("Resolve(%q) = %g, want %g", tc.input, c.Value.Float, tc.f)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"nosuch + 1", "Unknown identifier 'nosuch'"},
		{"4 / 0", "Division by zero"},
		{"4 % 0", "Division by zero"},
		{"1.5 % 2", "Integer operands expected for '%'"},
		{"random(1, 4) / 0", "Division by zero"},
	}

	for _, tc := range tests {
		diag := NewDiagnostics(nil)
		r := NewResolver(newTestScope(), diag)
		if got := r.Resolve(parseExpr(t, tc.input)); got != nil {
			t.Errorf("Resolve(%q) = %#v, want nil", tc.input, got)
		}
		errs := diag.Errors()
		if len(errs) != 1 || errs[0].Message != tc.msg {
			t.Errorf("Resolve(%q) errors = %v, want %q", tc.input, errs, tc.msg)
		}
	}
}

func TestResolveAsCasts(t *testing.T) {
	diag := NewDiagnostics(nil)
	r := NewResolver(newTestScope(), diag)

	f := r.ResolveAs(parseExpr(t, "3"), TypeFloat).(*Constant)
	if f.Type != TypeFloat || f.Value.Float != 3 {
		t.Errorf("int as float = %v %v", f.Type, f.Value.Float)
	}

	i := r.ResolveAs(parseExpr(t, "2.75"), TypeInt).(*Constant)
	if i.Type != TypeInt || i.Value.Int != 2 {
		t.Errorf("float as int = %v %v", i.Type, i.Value.Int)
	}

	b := r.ResolveAs(parseExpr(t, "5"), TypeBool).(*Constant)
	if b.Type != TypeBool || b.Value.Int != 1 {
		t.Errorf("int as bool = %v %v", b.Type, b.Value.Int)
	}

	n := r.ResolveAs(&StringLiteral{Value: "Fire"}, TypeName).(*Constant)
	if n.Type != TypeName || n.Value.String != "Fire" {
		t.Errorf("string as name = %v %q", n.Type, n.Value.String)
	}

	cast, ok := r.ResolveAs(parseExpr(t, "random(1, 3)"), TypeFloat).(*Cast)
	if !ok || cast.To != TypeFloat {
		t.Errorf("random as float = %#v, want *Cast", cast)
	}

	if diag.ErrorCount() != 0 {
		t.Errorf("unexpected errors: %v", diag.Records())
	}

	if got := r.ResolveAs(&StringLiteral{Value: "x"}, TypeInt); got != nil {
		t.Errorf("string as int = %#v, want nil", got)
	}
	if diag.ErrorCount() != 1 {
		t.Errorf("ErrorCount = %d, want 1", diag.ErrorCount())
	}
}

func TestResolveStateRefs(t *testing.T) {
	diag := NewDiagnostics(nil)
	r := NewResolver(newTestScope(), diag)

	c := r.Resolve(&StateLabelRef{Label: "Spawn"}).(*Constant)
	if ref := c.Value.Pointer.(actor.StateRef); ref.Class != 7 || ref.Index != 0 {
		t.Errorf("label ref = %v", ref)
	}

	c = r.Resolve(&StateIndexRef{Index: 3}).(*Constant)
	if ref := c.Value.Pointer.(actor.StateRef); ref.Index != 3 {
		t.Errorf("index ref = %v", ref)
	}

	c = r.Resolve(&StateIndexRef{Null: true}).(*Constant)
	if c.Type != TypeState || c.Value.Pointer != nil {
		t.Errorf("null ref = %#v", c.Value)
	}

	if r.Resolve(&StateLabelRef{Label: "Missile"}) != nil {
		t.Error("unknown label resolved")
	}
	if r.Resolve(&StateIndexRef{Index: 9}) != nil {
		t.Error("out of range index resolved")
	}
	if diag.ErrorCount() != 2 {
		t.Errorf("ErrorCount = %d, want 2: %v", diag.ErrorCount(), diag.Records())
	}
}

func TestResolveUnboundClassRef(t *testing.T) {
	diag := NewDiagnostics(nil)
	r := NewResolver(newTestScope(), diag)

	if r.Resolve(&ClassRef{Name: "Missing"}) != nil {
		t.Error("unbound class ref resolved")
	}
	if diag.ErrorCount() != 0 {
		t.Errorf("unbound class ref reported again: %v", diag.Records())
	}
	null := &ClassRef{Null: true}
	if r.Resolve(null) != null {
		t.Error("null class ref not kept")
	}
}
