package compiler

import (
	"fmt"

	"github.com/chazu/thingdef/vm"
)

// ---------------------------------------------------------------------------
// Damage functions
// ---------------------------------------------------------------------------

// DamageValue is a damage formula attached to an actor's defaults. Classes
// that inherit the formula share the same DamageValue, so the compiled
// function is cached here and built once.
type DamageValue struct {
	Expr       Expr
	Calculated bool // the value came from a parenthesized expression
	fn         *vm.ScriptFunction
	resolved   bool
}

// NewDamageValue wraps an unresolved damage expression.
func NewDamageValue(expr Expr, calculated bool) *DamageValue {
	return &DamageValue{Expr: expr, Calculated: calculated}
}

// Function returns the cached function, or nil before compilation.
func (d *DamageValue) Function() *vm.ScriptFunction { return d.fn }

// SetFunction caches the compiled function.
func (d *DamageValue) SetFunction(fn *vm.ScriptFunction) { d.fn = fn }

// Resolve resolves the formula as an integer. It reports false when the
// expression could not be resolved.
func (d *DamageValue) Resolve(r *Resolver) bool {
	if d.resolved {
		return d.Expr != nil
	}
	d.resolved = true
	d.Expr = r.ResolveAs(d.Expr, TypeInt)
	return d.Expr != nil
}

// Emit emits the function body: the damage in return slot 0 and the
// calculated flag in the final slot 1. The caller owns the self register.
func (d *DamageValue) Emit(g *CodeGen) {
	g.EmitReturn(0, false, d.Expr)
	calc := 0
	if d.Calculated {
		calc = 1
	}
	g.Builder.EmitRetInt(1, true, calc)
}

// CreateDamageFunction builds the function for a constant damage value.
// Zero damage yields nil: callers treat "no function" as a distinct case.
func CreateDamageFunction(dmg int) *vm.ScriptFunction {
	if dmg == 0 {
		return nil
	}
	b := vm.NewFunctionBuilder()
	b.Registers[vm.RegPointer].Get(1) // self
	b.EmitRetInt(0, false, dmg)
	b.EmitRetInt(1, true, 0)
	return b.MakeFunction(fmt.Sprintf("damage(%d)", dmg), 1)
}
