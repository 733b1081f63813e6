package compiler

import (
	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/vm"
)

// ---------------------------------------------------------------------------
// Resolver: name and type resolution of deferred expressions
// ---------------------------------------------------------------------------

// Scope supplies the names an expression can see. It is only consulted
// after every source has been declared.
type Scope interface {
	LookupConstant(name string) (*ConstSymbol, bool)
	LookupState(label string) (actor.StateRef, bool)
	StateAt(index int) (actor.StateRef, bool)
}

// Resolver types and folds expressions. Failures are reported to the
// diagnostics sink and yield a nil expression.
type Resolver struct {
	scope Scope
	diag  *Diagnostics
}

// NewResolver creates a resolver over scope.
func NewResolver(scope Scope, diag *Diagnostics) *Resolver {
	return &Resolver{scope: scope, diag: diag}
}

func (r *Resolver) errorf(e Node, format string, args ...any) {
	r.diag.Errorf(e.Span().Start, format, args...)
}

// Resolve resolves e to a typed expression.
func (r *Resolver) Resolve(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil

	case *Constant, *Cast:
		return n

	case *ParenExpr:
		return r.Resolve(n.X)

	case *IntLiteral:
		return &Constant{SpanVal: n.SpanVal, Type: TypeInt, Value: vm.IntValue(n.Value)}
	case *FloatLiteral:
		return &Constant{SpanVal: n.SpanVal, Type: TypeFloat, Value: vm.FloatValue(n.Value)}
	case *StringLiteral:
		return &Constant{SpanVal: n.SpanVal, Type: TypeString, Value: vm.StringValue(n.Value)}
	case *NameLiteral:
		return &Constant{SpanVal: n.SpanVal, Type: TypeName, Value: vm.StringValue(n.Value)}

	case *Identifier:
		sym, ok := r.scope.LookupConstant(n.Name)
		if !ok {
			r.errorf(n, "Unknown identifier '%s'", n.Name)
			return nil
		}
		return &Constant{SpanVal: n.SpanVal, Type: sym.Type, Value: sym.Value}

	case *UnaryExpr:
		return r.resolveUnary(n)

	case *BinaryExpr:
		return r.resolveBinary(n)

	case *RandomCall:
		lo := r.ResolveAs(n.Min, TypeInt)
		hi := r.ResolveAs(n.Max, TypeInt)
		if lo == nil || hi == nil {
			return nil
		}
		return &RandomCall{SpanVal: n.SpanVal, Min: lo, Max: hi}

	case *ClassRef:
		if !n.Null && n.Class == nil {
			// Binding failed and was already reported.
			return nil
		}
		return n

	case *StateLabelRef:
		ref, ok := r.scope.LookupState(n.Label)
		if !ok {
			r.errorf(n, "Unknown state label '%s'", n.Label)
			return nil
		}
		return &Constant{SpanVal: n.SpanVal, Type: TypeState, Value: vm.PointerValue(ref)}

	case *StateIndexRef:
		if n.Null {
			return &Constant{SpanVal: n.SpanVal, Type: TypeState, Value: vm.PointerValue(nil)}
		}
		ref, ok := r.scope.StateAt(n.Index)
		if !ok {
			r.errorf(n, "Attempt to get invalid state %d", n.Index)
			return nil
		}
		return &Constant{SpanVal: n.SpanVal, Type: TypeState, Value: vm.PointerValue(ref)}
	}

	r.errorf(e, "Unsupported expression")
	return nil
}

// ResolveAs resolves e and coerces it to want.
func (r *Resolver) ResolveAs(e Expr, want ValueType) Expr {
	x := r.Resolve(e)
	if x == nil {
		return nil
	}
	have := TypeOf(x)
	if have == want {
		return x
	}

	switch {
	case want == TypeFloat && (have == TypeInt || have == TypeBool):
		return castExpr(x, TypeFloat)

	case (want == TypeInt || want == TypeBool) && have == TypeFloat:
		return retype(castExpr(x, TypeInt), want)

	case (want == TypeInt || want == TypeBool) && (have == TypeInt || have == TypeBool):
		return retype(x, want)

	case want.IsStringLike() && have.IsStringLike():
		return retype(x, want)
	}

	r.errorf(e, "Type mismatch: expected %s, got %s", want, have)
	return nil
}

func (r *Resolver) resolveUnary(n *UnaryExpr) Expr {
	x := r.Resolve(n.X)
	if x == nil {
		return nil
	}
	t := TypeOf(x)
	if !t.IsNumeric() {
		r.errorf(n, "Numeric type expected for unary '-'")
		return nil
	}
	if t == TypeBool {
		t = TypeInt
	}
	if c, ok := x.(*Constant); ok {
		if t == TypeFloat {
			return &Constant{SpanVal: n.SpanVal, Type: TypeFloat, Value: vm.FloatValue(-c.Value.Float)}
		}
		return &Constant{SpanVal: n.SpanVal, Type: TypeInt, Value: vm.IntValue(-c.Value.Int)}
	}
	return &UnaryExpr{SpanVal: n.SpanVal, Op: n.Op, X: x, Type: t}
}

func (r *Resolver) resolveBinary(n *BinaryExpr) Expr {
	x := r.Resolve(n.X)
	y := r.Resolve(n.Y)
	if x == nil || y == nil {
		return nil
	}
	tx, ty := TypeOf(x), TypeOf(y)
	if !tx.IsNumeric() || !ty.IsNumeric() {
		r.errorf(n, "Numeric types expected for '%s'", n.Op)
		return nil
	}

	t := TypeInt
	if tx == TypeFloat || ty == TypeFloat {
		t = TypeFloat
		if n.Op == TokenPercent {
			r.errorf(n, "Integer operands expected for '%%'")
			return nil
		}
		if tx != TypeFloat {
			x = castExpr(x, TypeFloat)
		}
		if ty != TypeFloat {
			y = castExpr(y, TypeFloat)
		}
	}

	cx, okx := x.(*Constant)
	cy, oky := y.(*Constant)
	if okx && oky {
		return r.fold(n, t, cx.Value, cy.Value)
	}
	if oky && t == TypeInt && cy.Value.Int == 0 && (n.Op == TokenSlash || n.Op == TokenPercent) {
		r.errorf(n, "Division by zero")
		return nil
	}
	return &BinaryExpr{SpanVal: n.SpanVal, Op: n.Op, X: x, Y: y, Type: t}
}

func (r *Resolver) fold(n *BinaryExpr, t ValueType, a, b vm.Value) Expr {
	if t == TypeFloat {
		var v float64
		switch n.Op {
		case TokenPlus:
			v = a.Float + b.Float
		case TokenMinus:
			v = a.Float - b.Float
		case TokenStar:
			v = a.Float * b.Float
		case TokenSlash:
			if b.Float == 0 {
				r.errorf(n, "Division by zero")
				return nil
			}
			v = a.Float / b.Float
		}
		return &Constant{SpanVal: n.SpanVal, Type: TypeFloat, Value: vm.FloatValue(v)}
	}

	var v int
	switch n.Op {
	case TokenPlus:
		v = a.Int + b.Int
	case TokenMinus:
		v = a.Int - b.Int
	case TokenStar:
		v = a.Int * b.Int
	case TokenSlash, TokenPercent:
		if b.Int == 0 {
			r.errorf(n, "Division by zero")
			return nil
		}
		if n.Op == TokenSlash {
			v = a.Int / b.Int
		} else {
			v = a.Int % b.Int
		}
	}
	return &Constant{SpanVal: n.SpanVal, Type: TypeInt, Value: vm.IntValue(v)}
}

// castExpr converts between int and float, folding constants.
func castExpr(x Expr, to ValueType) Expr {
	if c, ok := x.(*Constant); ok {
		if to == TypeFloat {
			return &Constant{SpanVal: c.SpanVal, Type: TypeFloat, Value: vm.FloatValue(float64(c.Value.Int))}
		}
		return &Constant{SpanVal: c.SpanVal, Type: TypeInt, Value: vm.IntValue(int(c.Value.Float))}
	}
	return &Cast{SpanVal: x.Span(), To: to, X: x}
}

// retype relabels an expression that already lives in the right register
// file.
func retype(x Expr, to ValueType) Expr {
	switch n := x.(type) {
	case *Constant:
		v := n.Value
		if to == TypeBool && v.Int != 0 {
			v = vm.IntValue(1)
		}
		return &Constant{SpanVal: n.SpanVal, Type: to, Value: v}
	case *Cast:
		return &Cast{SpanVal: n.SpanVal, To: to, X: n.X}
	}
	return x
}
