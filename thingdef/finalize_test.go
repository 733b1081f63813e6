package thingdef

import (
	"errors"
	"testing"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
	"github.com/chazu/thingdef/vm"
)

// recorder replaces a native action with one that records its arguments.
func recorder(c *Context, name string) *[][]vm.Value {
	calls := new([][]vm.Value)
	c.Actions.Register(name, func(args []vm.Value) ([]vm.Value, error) {
		*calls = append(*calls, append([]vm.Value(nil), args...))
		return nil, nil
	})
	return calls
}

func compile(t *testing.T, c *Context, texts ...string) {
	t.Helper()
	var sources []compiler.Source
	for i, text := range texts {
		sources = append(sources, compiler.Source{Name: string(rune('a'+i)) + ".txt", Text: text})
	}
	if err := c.RunCompilation(sources); err != nil {
		t.Fatalf("RunCompilation: %v\n%v", err, c.Diag.Records())
	}
}

func fatal(t *testing.T, c *Context, text string) *FatalError {
	t.Helper()
	err := c.RunCompilation([]compiler.Source{{Name: "test", Text: text}})
	var fe *FatalError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FatalError", err)
	}
	return fe
}

func callAction(t *testing.T, fn vm.Function) []vm.Value {
	t.Helper()
	if fn == nil {
		t.Fatal("state has no action")
	}
	self := vm.PointerValue(nil)
	results, err := vm.NewInterpreter(1).Call(fn, []vm.Value{self, self, self})
	if err != nil {
		t.Fatalf("call %s: %v", fn.Name(), err)
	}
	return results
}

func TestFinalizeZeroArgumentAction(t *testing.T) {
	c := NewContext()
	compile(t, c, `actor Imp { States { Spawn: TROO AB 10 A_Look
		Loop } }`)
	imp := c.Registry.FindClass("Imp")
	look := c.Actions.Find("A_Look")
	for i, s := range imp.OwnedStates {
		if s.Action != vm.Function(look) {
			t.Errorf("state %d action = %v, want the native A_Look", i, s.Action)
		}
	}
}

func TestFinalizeSharedThunk(t *testing.T) {
	c := NewContext()
	calls := recorder(c, "A_Explode")
	compile(t, c, `
actor Barrel
{
	States
	{
	Death:
		BEXP ABC 4 A_Explode(64, 32)
		Stop
	}
}`)
	barrel := c.Registry.FindClass("Barrel")
	fn, ok := barrel.OwnedStates[0].Action.(*vm.ScriptFunction)
	if !ok {
		t.Fatalf("action = %T, want *vm.ScriptFunction", barrel.OwnedStates[0].Action)
	}
	for i := 1; i < 3; i++ {
		if barrel.OwnedStates[i].Action != vm.Function(fn) {
			t.Errorf("state %d does not share the generated function", i)
		}
	}
	if fn.Name() != "Barrel.States[0]" || fn.NumArgs != 3 {
		t.Errorf("function = %s/%d", fn.Name(), fn.NumArgs)
	}
	if fn.MaxParam != 6 {
		t.Errorf("MaxParam = %d, want 6", fn.MaxParam)
	}
	last := fn.Code[len(fn.Code)-1]
	if last.Op() != vm.OpTailK || last.B() != 6 {
		t.Errorf("last instruction = %s, want a 6-parameter TAIL_K", vm.DisassembleInstruction(fn, len(fn.Code)-1))
	}
	if fn.KonstA[last.A()] != any(c.Actions.Find("A_Explode")) {
		t.Error("tail call does not target the native")
	}

	callAction(t, fn)
	if len(*calls) != 1 {
		t.Fatalf("native called %d times", len(*calls))
	}
	args := (*calls)[0]
	if len(args) != 6 {
		t.Fatalf("got %d args, want 6: %#v", len(args), args)
	}
	if args[3].Int != 64 || args[4].Int != 32 || args[5].Int != 1 {
		t.Errorf("args = %#v, want 64 32 1 after the pointers", args[3:])
	}
}

func TestFinalizeDamage(t *testing.T) {
	c := NewContext()
	compile(t, c, `
actor Ball { Damage (random(2, 2) * 4) }
actor BigBall : Ball {}
actor OtherBall : Ball { Damage (3) }
actor Rock { Damage 5 }
actor Feather { Damage 0 }
`)
	ball := c.Registry.FindClass("Ball").Defaults
	big := c.Registry.FindClass("BigBall").Defaults
	other := c.Registry.FindClass("OtherBall").Defaults

	if ball.Damage == nil || ball.Damage != big.Damage {
		t.Error("inherited damage formula not shared")
	}
	if other.Damage == nil || other.Damage == ball.Damage {
		t.Error("overridden damage formula shares the parent's function")
	}
	if r := callAction(t, ball.Damage); len(r) != 2 || r[0].Int != 8 || r[1].Int != 1 {
		t.Errorf("Ball damage = %#v, want [8 1]", r)
	}
	if r := callAction(t, other.Damage); r[0].Int != 3 {
		t.Errorf("OtherBall damage = %#v", r)
	}

	rock := c.Registry.FindClass("Rock").Defaults
	if r := callAction(t, rock.Damage); len(r) != 2 || r[0].Int != 5 || r[1].Int != 0 {
		t.Errorf("Rock damage = %#v, want [5 0]", r)
	}
	if f := c.Registry.FindClass("Feather").Defaults; f.Damage != nil || f.DamageExpr != nil {
		t.Error("zero damage produced a function")
	}
}

func TestFinalizeCrossSourceClassArgument(t *testing.T) {
	c := NewContext()
	calls := recorder(c, "A_SpawnItem")
	compile(t, c, `
actor Spawner
{
	States
	{
	Spawn:
		SPWN A 1 A_SpawnItem("Spawned", 8)
		Stop
	}
}`, `actor Spawned {}`)

	callAction(t, c.Registry.FindClass("Spawner").OwnedStates[0].Action)
	args := (*calls)[0]
	if args[3].Pointer != c.Registry.FindClass("Spawned") {
		t.Errorf("class argument = %v, want Spawned", args[3].Pointer)
	}
	if args[4].Float != 8 || args[5].Float != 0 {
		t.Errorf("float arguments = %v %v", args[4].Float, args[5].Float)
	}
}

func TestFinalizeStateArguments(t *testing.T) {
	c := NewContext()
	calls := recorder(c, "A_Jump")
	compile(t, c, `
actor Jumper
{
	States
	{
	Spawn:
		JUMP A 1 A_Jump(128, "Missile")
		JUMP B 1 A_Jump(64, 1)
		JUMP C 1 A_Jump(32, 0)
		Stop
	Missile:
		JUMP D 1
		Stop
	}
}`)
	j := c.Registry.FindClass("Jumper")
	for i := 0; i < 3; i++ {
		callAction(t, j.OwnedStates[i].Action)
	}
	want := []any{
		actor.StateRef{Class: j.ID, Index: 3},
		actor.StateRef{Class: j.ID, Index: 2},
		nil,
	}
	for i, w := range want {
		if got := (*calls)[i][4].Pointer; got != w {
			t.Errorf("call %d state = %v, want %v", i, got, w)
		}
	}
}

func TestFinalizeUndefinedReference(t *testing.T) {
	c := NewContext()
	fe := fatal(t, c, `actor Zombie { DropItem "Ghost" }`)
	if fe.Phase != PhaseFinalize || fe.Count != 1 {
		t.Errorf("err = %+v", fe)
	}
	if !hasMessage(c, "Class Ghost referenced but not defined") {
		t.Errorf("messages = %v", c.Diag.Records())
	}
	if fe.Error() != "1 errors during actor postprocessing" {
		t.Errorf("Error() = %q", fe.Error())
	}
}

func TestFinalizeUndefinedReferencePosition(t *testing.T) {
	c := NewContext()
	fatal(t, c, `actor Zombie
{
	DropItem "Ghost"
}`)
	var found bool
	for _, d := range c.Diag.Records() {
		if d.Message != "Class Ghost referenced but not defined" {
			continue
		}
		found = true
		if d.Pos.File != "test" || d.Pos.Line != 3 {
			t.Errorf("pos = %v, want the DropItem line", d.Pos)
		}
	}
	if !found {
		t.Errorf("messages = %v", c.Diag.Records())
	}
}

func TestFinalizeMissingDefaults(t *testing.T) {
	c := newDeclContext(t)
	c.Registry.RegisterNative("Orphan", "Actor", 512, nil)
	if n := c.FinalizeAll(); n != 1 {
		t.Fatalf("FinalizeAll = %d, want 1: %v", n, c.Diag.Records())
	}
	if !hasMessage(c, "No ActorInfo defined for class 'Orphan'") {
		t.Errorf("messages = %v", c.Diag.Records())
	}
	d := c.Diag.Records()[len(c.Diag.Records())-1]
	if got := d.String(); got != "error: No ActorInfo defined for class 'Orphan'" {
		t.Errorf("String() = %q", got)
	}
}

func TestFinalizeClassArgumentErrors(t *testing.T) {
	tests := []struct {
		call string
		want string
	}{
		{`A_SpawnItem("Nope")`, "Unknown class name 'Nope'"},
		{`A_GiveInventory("Imp")`, "'Imp' does not inherit from 'Inventory'"},
	}
	for _, tc := range tests {
		c := NewContext()
		fe := fatal(t, c, `actor Imp { States { Spawn: TROO A 1 `+tc.call+`
			Stop } }`)
		if fe.Phase != PhaseFinalize {
			t.Errorf("%s: phase = %v", tc.call, fe.Phase)
		}
		if !hasMessage(c, tc.want) {
			t.Errorf("%s: messages = %v", tc.call, c.Diag.Records())
		}
	}
}

func TestDeclarationCallErrors(t *testing.T) {
	tests := []struct {
		call string
		want string
	}{
		{`A_Look(1)`, "Too many arguments to A_Look"},
		{`A_CustomMissile()`, "Too few arguments to A_CustomMissile"},
		{`A_Dance`, "Unknown action function 'A_Dance'"},
		{`A_GiveInventory(5)`, "Class name expected for parameter 'itemtype'"},
	}
	for _, tc := range tests {
		c := NewContext()
		fe := fatal(t, c, `actor Imp { States { Spawn: TROO A 1 `+tc.call+`
			Stop } }`)
		if fe.Phase != PhaseParse || fe.Count != 1 {
			t.Errorf("%s: err = %+v", tc.call, fe)
		}
		if !hasMessage(c, tc.want) {
			t.Errorf("%s: messages = %v", tc.call, c.Diag.Records())
		}
	}
}

func TestRunCompilationParseError(t *testing.T) {
	c := NewContext()
	fe := fatal(t, c, `actor { }`)
	if fe.Phase != PhaseParse {
		t.Errorf("phase = %v, want parse", fe.Phase)
	}
}

func TestQuestItems(t *testing.T) {
	c := NewContext()
	compile(t, c, `
actor QuestItem1 : Inventory {}
actor QuestItem31 : Inventory {}
`)
	if q := c.QuestItem(1); q == nil || q.Name != "QuestItem1" {
		t.Errorf("QuestItem(1) = %v", q)
	}
	if q := c.QuestItem(31); q == nil || q.Name != "QuestItem31" {
		t.Errorf("QuestItem(31) = %v", q)
	}
	for _, n := range []int{0, 2, 32} {
		if q := c.QuestItem(n); q != nil {
			t.Errorf("QuestItem(%d) = %v, want nil", n, q)
		}
	}
}

func TestRunCompilationResets(t *testing.T) {
	c := NewContext()
	compile(t, c, `actor Imp {}`)
	first := c.RunID
	compile(t, c, `actor Zombie {}`)
	if c.Registry.FindClass("Imp") != nil {
		t.Error("class survived the reset")
	}
	if c.Registry.FindClass("Zombie") == nil {
		t.Error("second run lost its class")
	}
	if c.RunID == first {
		t.Error("run ID not renewed")
	}
}

func TestConstants(t *testing.T) {
	c := NewContext()
	compile(t, c, `
const int BASEHP = 10;
actor Grunt
{
	const int Hp = BASEHP * 2;
	Health Hp
	Speed TICRATE / 5
}
actor Sergeant : Grunt { Health Hp + 1 }
`)
	if h := c.Registry.FindClass("Grunt").Defaults.Health; h != 20 {
		t.Errorf("Grunt health = %d, want 20", h)
	}
	if s := c.Registry.FindClass("Grunt").Defaults.Speed; s != 7 {
		t.Errorf("Grunt speed = %v, want 7", s)
	}
	if h := c.Registry.FindClass("Sergeant").Defaults.Health; h != 21 {
		t.Errorf("Sergeant health = %d, want 21", h)
	}
}

func TestConstantErrors(t *testing.T) {
	c := NewContext()
	fe := fatal(t, c, `
const int A = 1;
const int A = 2;
actor T { Health random(1, 2) }
`)
	if fe.Phase != PhaseParse || fe.Count != 2 {
		t.Errorf("err = %+v: %v", fe, c.Diag.Records())
	}
	if !hasMessage(c, "Symbol 'A' is already defined") {
		t.Errorf("messages = %v", c.Diag.Records())
	}
	if !hasMessage(c, `Constant value expected for "Health"`) {
		t.Errorf("messages = %v", c.Diag.Records())
	}
}
