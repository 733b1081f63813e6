package thingdef

import (
	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
)

// baggage carries the parse-time state of one actor declaration.
type baggage struct {
	cls    *actor.Class
	pos    compiler.Position
	table  *compiler.SymbolTable
	states *StateDefinitions

	dropItems   []actor.DropItem
	dropItemSet bool
}

// ParseSource runs the declaration pass over one source.
func (c *Context) ParseSource(src compiler.Source) {
	log.Debugf("parsing %s", src.Name)
	c.Declare(compiler.Parse(src, c.Diag))
}

// Declare runs the declaration pass over a parsed source.
func (c *Context) Declare(file *compiler.SourceFile) {
	for _, d := range file.Decls {
		switch n := d.(type) {
		case *compiler.ConstDef:
			c.defineConst(c.Globals, nil, n)
		case *compiler.ActorDef:
			c.declareActor(n)
		}
	}
}

func (c *Context) declareActor(def *compiler.ActorDef) *actor.Class {
	pos := def.Span().Start
	cls := c.DeclareClass(pos, def.Name, def.Parent, def.Native)
	c.SetReplacement(pos, cls, def.Replaces)
	cls.DoomEdNum = def.DoomEdNum

	b := &baggage{
		cls:    cls,
		pos:    pos,
		table:  c.ClassTable(cls),
		states: NewStateDefinitions(c.Registry, cls),
	}
	for _, item := range def.Body {
		switch n := item.(type) {
		case *compiler.FlagItem:
			c.setFlag(b, n)
		case *compiler.PropertyItem:
			c.setProperty(b, n)
		case *compiler.ConstDef:
			c.defineConst(b.table, cls, n)
		case *compiler.ActionDecl:
			c.declareAction(b, n)
		case *compiler.StatesBlock:
			c.declareStates(b, n)
		}
	}
	c.FinishActor(b)
	return cls
}

func (c *Context) defineConst(table *compiler.SymbolTable, cls *actor.Class, def *compiler.ConstDef) {
	pos := def.Span().Start
	x := c.resolver(cls).ResolveAs(def.Value, def.Type)
	if x == nil {
		return
	}
	k, ok := x.(*compiler.Constant)
	if !ok {
		c.Diag.Errorf(pos, "Constant '%s' does not have a constant value", def.Name)
		return
	}
	if !table.Add(&compiler.ConstSymbol{Name: def.Name, Type: k.Type, Value: k.Value}) {
		c.Diag.Errorf(pos, "Symbol '%s' is already defined", def.Name)
	}
}

func (c *Context) setFlag(b *baggage, item *compiler.FlagItem) {
	f, ok := actor.FlagByName(item.Name)
	if !ok {
		c.Diag.Errorf(item.Span().Start, "\"%s\" is an unknown flag", item.Name)
		return
	}
	if item.Set {
		b.cls.Defaults.Flags |= f
	} else {
		b.cls.Defaults.Flags &^= f
	}
}

func (c *Context) declareAction(b *baggage, decl *compiler.ActionDecl) {
	pos := decl.Span().Start
	fn := c.Actions.Find(decl.Name)
	if fn == nil {
		c.Diag.Errorf(pos, "Unknown native function '%s'", decl.Name)
		return
	}
	sym := &compiler.ActionSymbol{
		Name:     decl.Name,
		Function: fn,
		Params:   decl.Params,
		Variadic: decl.Variadic,
	}
	if !b.table.Add(sym) {
		c.Diag.Errorf(pos, "Symbol '%s' is already defined", decl.Name)
	}
}

func (c *Context) declareStates(b *baggage, block *compiler.StatesBlock) {
	for _, item := range block.Items {
		switch n := item.(type) {
		case *compiler.StateLabel:
			b.states.AddLabel(n.Name)
		case *compiler.StateFrames:
			first := b.states.AddFrames(n)
			if n.Action != nil {
				c.deferCall(b, n.Action, first, len(n.Frames))
			}
		case *compiler.StateFlow:
			if err := b.states.AddFlow(n.Span().Start, n); err != nil {
				c.Diag.Errorf(n.Span().Start, "%s", err)
			}
		}
	}
}

// FinishActor completes a declaration: the state table is resolved and
// installed, drop items are set, and the inventory and weapon rules are
// applied. A state table that cannot be finished is one error and
// discards the class's pending calls.
func (c *Context) FinishActor(b *baggage) {
	cls := b.cls
	if err := b.states.FinishStates(); err != nil {
		c.Diag.Errorf(b.pos, "%s", err)
		c.dropPending(cls)
		return
	}
	b.states.InstallStates()
	if b.dropItemSet {
		cls.DropItems = b.dropItems
	}

	reg := c.Registry
	if reg.IsDescendantOf(cls, reg.FindClass("Inventory")) {
		cls.Defaults.Flags |= actor.FlagSpecial
	}

	if reg.IsDescendantOf(cls, reg.FindClass("Weapon")) {
		required := []struct{ label, name string }{
			{"Ready", "ready"},
			{"Select", "select"},
			{"Deselect", "deselect"},
			{"Fire", "fire"},
		}
		var missing []string
		for _, r := range required {
			if ref, ok := cls.FindState(r.label); !ok || ref.IsNull() {
				missing = append(missing, r.name)
			}
		}
		// A weapon with none of them is an abstract base.
		if len(missing) < len(required) {
			for _, m := range missing {
				c.Diag.Errorf(b.pos, "Weapon %s doesn't define a %s state.", cls.Name, m)
			}
		}
	}
}

func (c *Context) dropPending(cls *actor.Class) {
	kept := c.Pending[:0]
	for _, dc := range c.Pending {
		if dc.Class != cls {
			kept = append(kept, dc)
		}
	}
	c.Pending = kept
	c.Params.Drop(cls)
}
