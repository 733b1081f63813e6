package compiler

import (
	"fmt"

	"github.com/chazu/thingdef/vm"
)

// ---------------------------------------------------------------------------
// CodeGen: emits register code for resolved expressions
// ---------------------------------------------------------------------------

// ExpEmit describes where an emitted expression's value lives.
type ExpEmit struct {
	RegNum  int
	RegType vm.RegType
	Konst   bool // RegNum is a constant pool index
	Fixed   bool // register belongs to someone else and must not be freed
}

// Flags returns the operand flags for PARAM and RET.
func (e ExpEmit) Flags() int {
	f := e.RegType
	if e.Konst {
		f |= vm.RegKonst
	}
	return int(f)
}

// Free releases a temporary register.
func (e ExpEmit) Free(b *vm.FunctionBuilder) {
	if !e.Konst && !e.Fixed {
		b.Registers[e.RegType].Return(e.RegNum, 1)
	}
}

// CodeGen emits resolved expressions into a FunctionBuilder.
type CodeGen struct {
	Builder *vm.FunctionBuilder
}

// NewCodeGen wraps b.
func NewCodeGen(b *vm.FunctionBuilder) *CodeGen {
	return &CodeGen{Builder: b}
}

// Emit emits e and returns the location of its value. Constants stay in the
// constant pool.
func (g *CodeGen) Emit(e Expr) ExpEmit {
	b := g.Builder
	switch n := e.(type) {
	case *Constant:
		return g.constant(n)

	case *ClassRef:
		var p any
		if !n.Null {
			p = n.Class
		}
		return ExpEmit{RegNum: b.GetConstantAddress(p), RegType: vm.RegPointer, Konst: true}

	case *Cast:
		src := g.EmitRegister(n.X)
		to := n.To.RegType()
		if src.RegType == to {
			return src
		}
		dst := ExpEmit{RegNum: b.Registers[to].Get(1), RegType: to}
		kind := vm.CastIntToFloat
		if to == vm.RegInt {
			kind = vm.CastFloatToInt
		}
		b.Emit(vm.OpCast, dst.RegNum, src.RegNum, kind)
		src.Free(b)
		return dst

	case *UnaryExpr:
		x := g.writable(g.EmitRegister(n.X))
		op := vm.OpNeg
		if x.RegType == vm.RegFloat {
			op = vm.OpNegF
		}
		b.Emit(op, x.RegNum, x.RegNum, 0)
		return x

	case *BinaryExpr:
		x := g.writable(g.EmitRegister(n.X))
		y := g.EmitRegister(n.Y)
		b.Emit(binaryOp(n.Op, x.RegType == vm.RegFloat), x.RegNum, x.RegNum, y.RegNum)
		y.Free(b)
		return x

	case *RandomCall:
		lo := g.writable(g.EmitRegister(n.Min))
		hi := g.EmitRegister(n.Max)
		b.Emit(vm.OpRandom, lo.RegNum, lo.RegNum, hi.RegNum)
		hi.Free(b)
		return lo
	}
	panic(fmt.Sprintf("cannot emit unresolved %T", e))
}

func (g *CodeGen) constant(c *Constant) ExpEmit {
	b := g.Builder
	t := c.Type.RegType()
	var idx int
	switch t {
	case vm.RegInt:
		idx = b.GetConstantInt(c.Value.Int)
	case vm.RegFloat:
		idx = b.GetConstantFloat(c.Value.Float)
	case vm.RegString:
		idx = b.GetConstantString(c.Value.String)
	default:
		idx = b.GetConstantAddress(c.Value.Pointer)
	}
	return ExpEmit{RegNum: idx, RegType: t, Konst: true}
}

// EmitRegister emits e and makes sure the value is in a register.
func (g *CodeGen) EmitRegister(e Expr) ExpEmit {
	b := g.Builder
	if c, ok := e.(*Constant); ok && c.Type.RegType() == vm.RegInt {
		reg := b.Registers[vm.RegInt].Get(1)
		b.EmitLoadInt(reg, c.Value.Int)
		return ExpEmit{RegNum: reg, RegType: vm.RegInt}
	}
	x := g.Emit(e)
	if !x.Konst {
		return x
	}
	reg := b.Registers[x.RegType].Get(1)
	var op vm.Opcode
	switch x.RegType {
	case vm.RegInt:
		op = vm.OpLK
	case vm.RegFloat:
		op = vm.OpLKF
	case vm.RegString:
		op = vm.OpLKS
	default:
		op = vm.OpLKP
	}
	b.EmitABx(op, reg, x.RegNum)
	return ExpEmit{RegNum: reg, RegType: x.RegType}
}

// writable copies a fixed register into a temporary so it can be
// overwritten.
func (g *CodeGen) writable(x ExpEmit) ExpEmit {
	if !x.Fixed {
		return x
	}
	b := g.Builder
	reg := b.Registers[x.RegType].Get(1)
	var op vm.Opcode
	switch x.RegType {
	case vm.RegInt:
		op = vm.OpMove
	case vm.RegFloat:
		op = vm.OpMovF
	case vm.RegString:
		op = vm.OpMovS
	default:
		op = vm.OpMovA
	}
	b.Emit(op, reg, x.RegNum, 0)
	return ExpEmit{RegNum: reg, RegType: x.RegType}
}

func binaryOp(op TokenType, float bool) vm.Opcode {
	if float {
		switch op {
		case TokenPlus:
			return vm.OpAddF
		case TokenMinus:
			return vm.OpSubF
		case TokenStar:
			return vm.OpMulF
		default:
			return vm.OpDivF
		}
	}
	switch op {
	case TokenPlus:
		return vm.OpAdd
	case TokenMinus:
		return vm.OpSub
	case TokenStar:
		return vm.OpMul
	case TokenSlash:
		return vm.OpDiv
	default:
		return vm.OpMod
	}
}

// EmitParam pushes e as the next call parameter.
func (g *CodeGen) EmitParam(e Expr) {
	b := g.Builder
	if c, ok := e.(*Constant); ok && c.Type.RegType() == vm.RegInt {
		b.EmitParamInt(c.Value.Int)
		return
	}
	x := g.Emit(e)
	b.Emit(vm.OpParam, 0, x.Flags(), x.RegNum)
	x.Free(b)
}

// EmitReturn stores e in return slot retnum.
func (g *CodeGen) EmitReturn(retnum int, final bool, e Expr) {
	b := g.Builder
	if c, ok := e.(*Constant); ok && c.Type.RegType() == vm.RegInt {
		b.EmitRetInt(retnum, final, c.Value.Int)
		return
	}
	x := g.Emit(e)
	a := retnum
	if final {
		a |= vm.RetFinal
	}
	b.Emit(vm.OpRet, a, x.Flags(), x.RegNum)
	x.Free(b)
}
