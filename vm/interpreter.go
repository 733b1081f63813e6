package vm

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ---------------------------------------------------------------------------
// Interpreter: executes ScriptFunctions
// ---------------------------------------------------------------------------

// ErrNoImplementation is returned when a native function without an
// implementation is called.
var ErrNoImplementation = errors.New("native function has no implementation")

// ErrCallDepth is returned when calls nest deeper than MaxDepth.
var ErrCallDepth = errors.New("call depth exceeded")

// Interpreter runs compiled functions. It is not safe for concurrent use.
type Interpreter struct {
	rng      *rand.Rand
	MaxDepth int
}

// NewInterpreter creates an interpreter whose random numbers come from seed.
func NewInterpreter(seed uint64) *Interpreter {
	return &Interpreter{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		MaxDepth: 64,
	}
}

// Call invokes fn with args and returns its return slots.
func (in *Interpreter) Call(fn Function, args []Value) ([]Value, error) {
	return in.call(fn, args, 0)
}

func (in *Interpreter) call(fn Function, args []Value, depth int) ([]Value, error) {
	if depth > in.MaxDepth {
		return nil, ErrCallDepth
	}
	switch f := fn.(type) {
	case *NativeFunction:
		if f.Impl == nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), ErrNoImplementation)
		}
		return f.Impl(args)
	case *ScriptFunction:
		return in.exec(f, args, depth)
	case nil:
		return nil, errors.New("call of nil function")
	default:
		return nil, fmt.Errorf("cannot call %T", fn)
	}
}

// frame holds the register files of one activation.
type frame struct {
	d []int
	f []float64
	s []string
	a []any
}

func newFrame(fn *ScriptFunction, args []Value) (*frame, error) {
	fr := &frame{
		d: make([]int, fn.NumRegD),
		f: make([]float64, fn.NumRegF),
		s: make([]string, fn.NumRegS),
		a: make([]any, fn.NumRegA),
	}
	if len(args) < fn.NumArgs {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", fn.Name(), fn.NumArgs, len(args))
	}
	// Arguments fill each register file in order of appearance.
	var next [NumRegTypes]int
	for _, arg := range args[:fn.NumArgs] {
		t := arg.Type & RegTypeMask
		reg := next[t]
		next[t]++
		switch t {
		case RegInt:
			if reg < len(fr.d) {
				fr.d[reg] = arg.Int
			}
		case RegFloat:
			if reg < len(fr.f) {
				fr.f[reg] = arg.Float
			}
		case RegString:
			if reg < len(fr.s) {
				fr.s[reg] = arg.String
			}
		case RegPointer:
			if reg < len(fr.a) {
				fr.a[reg] = arg.Pointer
			}
		}
	}
	return fr, nil
}

// operand reads a register or constant described by a RegType|RegKonst
// flag and an index.
func (fr *frame) operand(fn *ScriptFunction, flags RegType, idx int) Value {
	t := flags & RegTypeMask
	konst := flags&RegKonst != 0
	switch t {
	case RegInt:
		if konst {
			return IntValue(fn.KonstD[idx])
		}
		return IntValue(fr.d[idx])
	case RegFloat:
		if konst {
			return FloatValue(fn.KonstF[idx])
		}
		return FloatValue(fr.f[idx])
	case RegString:
		if konst {
			return StringValue(fn.KonstS[idx])
		}
		return StringValue(fr.s[idx])
	default:
		if konst {
			return PointerValue(fn.KonstA[idx])
		}
		return PointerValue(fr.a[idx])
	}
}

func setResult(results []Value, slot int, v Value) []Value {
	for len(results) <= slot {
		results = append(results, Value{})
	}
	results[slot] = v
	return results
}

func (in *Interpreter) exec(fn *ScriptFunction, args []Value, depth int) ([]Value, error) {
	fr, err := newFrame(fn, args)
	if err != nil {
		return nil, err
	}
	var params []Value
	var results []Value

	for pc := 0; pc < len(fn.Code); pc++ {
		ins := fn.Code[pc]
		a, b, c := ins.A(), ins.B(), ins.C()

		switch ins.Op() {
		case OpNOP:
		case OpLI:
			fr.d[a] = ins.SBx()
		case OpLK:
			fr.d[a] = fn.KonstD[ins.Bx()]
		case OpLKF:
			fr.f[a] = fn.KonstF[ins.Bx()]
		case OpLKS:
			fr.s[a] = fn.KonstS[ins.Bx()]
		case OpLKP:
			fr.a[a] = fn.KonstA[ins.Bx()]
		case OpMove:
			fr.d[a] = fr.d[b]
		case OpMovF:
			fr.f[a] = fr.f[b]
		case OpMovS:
			fr.s[a] = fr.s[b]
		case OpMovA:
			fr.a[a] = fr.a[b]

		case OpAdd:
			fr.d[a] = fr.d[b] + fr.d[c]
		case OpSub:
			fr.d[a] = fr.d[b] - fr.d[c]
		case OpMul:
			fr.d[a] = fr.d[b] * fr.d[c]
		case OpDiv:
			if fr.d[c] == 0 {
				return nil, fmt.Errorf("%s: integer division by zero at %04d", fn.Name(), pc)
			}
			fr.d[a] = fr.d[b] / fr.d[c]
		case OpMod:
			if fr.d[c] == 0 {
				return nil, fmt.Errorf("%s: integer modulo by zero at %04d", fn.Name(), pc)
			}
			fr.d[a] = fr.d[b] % fr.d[c]
		case OpNeg:
			fr.d[a] = -fr.d[b]

		case OpAddF:
			fr.f[a] = fr.f[b] + fr.f[c]
		case OpSubF:
			fr.f[a] = fr.f[b] - fr.f[c]
		case OpMulF:
			fr.f[a] = fr.f[b] * fr.f[c]
		case OpDivF:
			fr.f[a] = fr.f[b] / fr.f[c]
		case OpNegF:
			fr.f[a] = -fr.f[b]

		case OpCast:
			switch c {
			case CastIntToFloat:
				fr.f[a] = float64(fr.d[b])
			case CastFloatToInt:
				fr.d[a] = int(fr.f[b])
			default:
				return nil, fmt.Errorf("%s: unknown cast %d at %04d", fn.Name(), c, pc)
			}
		case OpRandom:
			lo, hi := fr.d[b], fr.d[c]
			if hi < lo {
				lo, hi = hi, lo
			}
			fr.d[a] = lo + in.rng.IntN(hi-lo+1)

		case OpParam:
			params = append(params, fr.operand(fn, RegType(b), c))
		case OpParamI:
			params = append(params, IntValue(ins.SBx()))
		case OpTailK:
			target, ok := fn.KonstA[a].(Function)
			if !ok {
				return nil, fmt.Errorf("%s: tail call target %d is not a function", fn.Name(), a)
			}
			if b > len(params) {
				return nil, fmt.Errorf("%s: tail call wants %d parameters, have %d", fn.Name(), b, len(params))
			}
			return in.call(target, params[len(params)-b:], depth+1)

		case OpRet:
			results = setResult(results, a&^RetFinal, fr.operand(fn, RegType(b), c))
			if a&RetFinal != 0 {
				return results, nil
			}
		case OpRetI:
			results = setResult(results, a&^RetFinal, IntValue(ins.SBx()))
			if a&RetFinal != 0 {
				return results, nil
			}

		default:
			return nil, fmt.Errorf("%s: unknown opcode %s at %04d", fn.Name(), ins.Op(), pc)
		}
	}
	return results, nil
}
