package thingdef

import (
	"fmt"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
	"github.com/chazu/thingdef/vm"
)

// numImplicitParams counts the pointers every action receives ahead of its
// declared parameters: self, the state owner and the calling state.
const numImplicitParams = 3

// FinalizeAll binds and emits everything the declaration pass deferred and
// returns the number of errors it found.
//
// Class arguments are bound first. Each pending call then gets its action:
// the native itself when the call has no arguments, otherwise a generated
// function that pushes the implicit pointers and the arguments and
// tail-calls the native. The result is shared by every state of the call's
// run. Finally every actor class is checked, and damage formulas are
// compiled once per formula and stored in each class using it.
func (c *Context) FinalizeAll() int {
	before := c.Diag.ErrorCount()
	c.Params.BindAll(c.Registry, c.Diag)

	codeSize := 0
	for _, call := range c.Pending {
		fn := c.emitCall(call, &codeSize)
		if fn == nil {
			continue
		}
		for k := 0; k < call.NumStates; k++ {
			call.Class.OwnedStates[call.FirstState+k].SetAction(fn)
		}
	}
	c.Pending = nil

	for _, cls := range c.Registry.Actors() {
		if !cls.IsDefined() {
			c.Diag.Errorf(c.ClassPos(cls), "Class %s referenced but not defined", cls.Name)
			continue
		}
		if cls.Defaults == nil {
			c.Diag.Errorf(c.ClassPos(cls), "No ActorInfo defined for class '%s'", cls.Name)
			continue
		}
		c.finishDamage(cls, &codeSize)
	}

	if c.Dump != nil {
		if err := c.Dump.Finish(codeSize * vm.InstructionSize); err != nil {
			log.Warningf("dump: %s", err)
		}
	}

	errors := c.Diag.ErrorCount() - before
	log.Infof("finalized %d classes with %d errors", c.Registry.Len(), errors)
	return errors
}

// emitCall returns the action for one deferred call, or nil when an
// argument does not resolve.
func (c *Context) emitCall(call *DeferredCall, codeSize *int) vm.Function {
	if len(call.Params) == 0 {
		return call.Function
	}

	r := c.resolver(call.Class)
	args := make([]compiler.Expr, len(call.Params))
	ok := true
	for i, p := range call.Params {
		if p.Type == compiler.TypeVoid {
			args[i] = r.Resolve(p.Expr)
		} else {
			args[i] = r.ResolveAs(p.Expr, p.Type)
		}
		if args[i] == nil {
			ok = false
		}
	}
	if !ok {
		return nil
	}

	b := vm.NewFunctionBuilder()
	b.Registers[vm.RegPointer].Get(numImplicitParams)
	for i := 0; i < numImplicitParams; i++ {
		b.Emit(vm.OpParam, 0, int(vm.RegPointer), i)
	}
	g := compiler.NewCodeGen(b)
	for _, x := range args {
		g.EmitParam(x)
	}
	b.Emit(vm.OpTailK, b.GetConstantAddress(call.Function), numImplicitParams+len(args), 0)

	label := fmt.Sprintf("%s.States[%d]", call.Class.Name, call.FirstState)
	fn := b.MakeFunction(label, numImplicitParams)
	c.dumpFunction(fmt.Sprintf("Function %s (*%d)", label, call.NumStates), fn, codeSize)
	return fn
}

func (c *Context) finishDamage(cls *actor.Class, codeSize *int) {
	d := cls.Defaults
	if d.DamageExpr == nil {
		return
	}
	fn := d.DamageExpr.Function()
	if fn == nil {
		dv, ok := d.DamageExpr.(*compiler.DamageValue)
		if !ok || !dv.Resolve(c.resolver(cls)) {
			return
		}
		b := vm.NewFunctionBuilder()
		b.Registers[vm.RegPointer].Get(1)
		dv.Emit(compiler.NewCodeGen(b))
		fn = b.MakeFunction(cls.Name+".Damage", 1)
		dv.SetFunction(fn)
	}
	d.Damage = fn
	c.dumpFunction(fmt.Sprintf("Function %s.Damage", cls.Name), fn, codeSize)
}

func (c *Context) dumpFunction(label string, fn *vm.ScriptFunction, codeSize *int) {
	log.Debugf("%s: %d instructions", label, fn.CodeSize())
	*codeSize += fn.CodeSize()
	if c.Dump == nil {
		return
	}
	if err := c.Dump.DumpFunction(label, fn); err != nil {
		log.Warningf("dump %s: %s", label, err)
	}
}
