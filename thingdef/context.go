// Package thingdef compiles DECORATE actor definitions into the actor class
// universe and the register VM.
//
// A compilation runs in two phases. The declaration pass parses every
// source, creating classes, defaults and state tables while action
// parameters stay unresolved. FinalizeAll then binds and emits everything
// that was deferred, once every class of every source exists.
package thingdef

import (
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
	"github.com/chazu/thingdef/vm"
)

var log = commonlog.GetLogger("thingdef")

// Context holds everything one compilation run owns. It is not safe for
// concurrent use; RunCompilation resets it before each run.
type Context struct {
	// RunID identifies the current run in logs and dumps.
	RunID uuid.UUID

	Registry *actor.Registry
	Diag     *compiler.Diagnostics
	Globals  *compiler.SymbolTable

	// Actions maps native action names to engine callables. It survives
	// Reset.
	Actions *ActionTable

	// Dump receives every generated function when set. It survives Reset.
	Dump DumpSink

	Pending []*DeferredCall
	Params  *ParamList

	tables     map[actor.ClassID]*compiler.SymbolTable
	classPos   map[actor.ClassID]compiler.Position // declaration or first reference
	questItems [NumQuestItems]*actor.Class
}

// NewContext creates a context with the standard action table.
func NewContext() *Context {
	c := &Context{
		Actions: StandardActions(),
		Diag:    compiler.NewDiagnostics(commonlog.GetLogger("thingdef.diag")),
	}
	c.Reset()
	return c
}

// Reset discards the class universe, symbols, pending work and diagnostics
// of the previous run.
func (c *Context) Reset() {
	c.RunID = uuid.New()
	c.Registry = actor.NewRegistry()
	c.Diag.Reset()
	if c.Globals != nil {
		c.Globals.Release()
	}
	c.Globals = builtinConstants()
	c.Pending = nil
	c.Params = NewParamList()
	c.tables = make(map[actor.ClassID]*compiler.SymbolTable)
	c.classPos = make(map[actor.ClassID]compiler.Position)
	c.questItems = [NumQuestItems]*actor.Class{}
}

// ClassPos returns where cls was declared, or where it was first referenced
// when it never was. Engine shells have no position.
func (c *Context) ClassPos(cls *actor.Class) compiler.Position {
	return c.classPos[cls.ID]
}

// noteReference records pos as the first reference to cls.
func (c *Context) noteReference(cls *actor.Class, pos compiler.Position) {
	if _, ok := c.classPos[cls.ID]; !ok {
		c.classPos[cls.ID] = pos
	}
}

// ClassTable returns the symbol table of cls. Tables chain to the parent
// class and end at the global table. A nil class yields the globals.
func (c *Context) ClassTable(cls *actor.Class) *compiler.SymbolTable {
	if cls == nil {
		return c.Globals
	}
	if t, ok := c.tables[cls.ID]; ok {
		return t
	}
	t := compiler.NewSymbolTable(c.ClassTable(c.Registry.Parent(cls)))
	c.tables[cls.ID] = t
	return t
}

func (c *Context) scope(cls *actor.Class) *classScope {
	return &classScope{reg: c.Registry, cls: cls, table: c.ClassTable(cls)}
}

func (c *Context) resolver(cls *actor.Class) *compiler.Resolver {
	return compiler.NewResolver(c.scope(cls), c.Diag)
}

// classScope is the compiler.Scope seen by expressions inside an actor.
type classScope struct {
	reg   *actor.Registry
	cls   *actor.Class
	table *compiler.SymbolTable
}

func (s *classScope) LookupConstant(name string) (*compiler.ConstSymbol, bool) {
	return s.table.LookupConstant(name)
}

func (s *classScope) LookupState(label string) (actor.StateRef, bool) {
	if s.cls == nil {
		return actor.NullState, false
	}
	return lookupState(s.reg, s.cls, label)
}

func (s *classScope) StateAt(index int) (actor.StateRef, bool) {
	if s.cls == nil || index < 0 || index >= len(s.cls.OwnedStates) {
		return actor.NullState, false
	}
	return actor.StateRef{Class: s.cls.ID, Index: index}, true
}

func builtinConstants() *compiler.SymbolTable {
	t := compiler.NewSymbolTable(nil)
	ints := []struct {
		name string
		v    int
	}{
		{"TICRATE", 35},
		{"CHAN_AUTO", 0},
		{"CHAN_WEAPON", 1},
		{"CHAN_VOICE", 2},
		{"CHAN_ITEM", 3},
		{"CHAN_BODY", 4},
		{"STYLE_Normal", 1},
		{"STYLE_Translucent", 2},
		{"STYLE_Add", 3},
	}
	for _, k := range ints {
		t.Add(&compiler.ConstSymbol{Name: k.name, Type: compiler.TypeInt, Value: vm.IntValue(k.v)})
	}
	floats := []struct {
		name string
		v    float64
	}{
		{"ATTN_NONE", 0},
		{"ATTN_NORM", 1},
		{"ATTN_IDLE", 1.001},
		{"ATTN_STATIC", 3},
	}
	for _, k := range floats {
		t.Add(&compiler.ConstSymbol{Name: k.name, Type: compiler.TypeFloat, Value: vm.FloatValue(k.v)})
	}
	t.Add(&compiler.ConstSymbol{Name: "true", Type: compiler.TypeBool, Value: vm.IntValue(1)})
	t.Add(&compiler.ConstSymbol{Name: "false", Type: compiler.TypeBool, Value: vm.IntValue(0)})
	return t
}
