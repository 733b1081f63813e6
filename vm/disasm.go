package vm

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders the instruction at pc.
func DisassembleInstruction(fn *ScriptFunction, pc int) string {
	ins := fn.Code[pc]
	op := ins.Op()
	info := op.Info()
	a, b, c := ins.A(), ins.B(), ins.C()

	switch op {
	case OpNOP:
		return fmt.Sprintf("%04d  %s", pc, info.Name)

	case OpLI:
		return fmt.Sprintf("%04d  %-8s d%d, %d", pc, info.Name, a, ins.SBx())
	case OpLK:
		idx := ins.Bx()
		return fmt.Sprintf("%04d  %-8s d%d, kd%d  ; %d", pc, info.Name, a, idx, fn.KonstD[idx])
	case OpLKF:
		idx := ins.Bx()
		return fmt.Sprintf("%04d  %-8s f%d, kf%d  ; %g", pc, info.Name, a, idx, fn.KonstF[idx])
	case OpLKS:
		idx := ins.Bx()
		return fmt.Sprintf("%04d  %-8s s%d, ks%d  ; %q", pc, info.Name, a, idx, fn.KonstS[idx])
	case OpLKP:
		idx := ins.Bx()
		return fmt.Sprintf("%04d  %-8s a%d, ka%d  ; %s", pc, info.Name, a, idx, describeAddress(fn.KonstA[idx]))

	case OpMove, OpNeg:
		return fmt.Sprintf("%04d  %-8s d%d, d%d", pc, info.Name, a, b)
	case OpMovF, OpNegF:
		return fmt.Sprintf("%04d  %-8s f%d, f%d", pc, info.Name, a, b)
	case OpMovS:
		return fmt.Sprintf("%04d  %-8s s%d, s%d", pc, info.Name, a, b)
	case OpMovA:
		return fmt.Sprintf("%04d  %-8s a%d, a%d", pc, info.Name, a, b)

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpRandom:
		return fmt.Sprintf("%04d  %-8s d%d, d%d, d%d", pc, info.Name, a, b, c)
	case OpAddF, OpSubF, OpMulF, OpDivF:
		return fmt.Sprintf("%04d  %-8s f%d, f%d, f%d", pc, info.Name, a, b, c)

	case OpCast:
		if c == CastIntToFloat {
			return fmt.Sprintf("%04d  %-8s f%d, d%d  ; int->float", pc, info.Name, a, b)
		}
		return fmt.Sprintf("%04d  %-8s d%d, f%d  ; float->int", pc, info.Name, a, b)

	case OpParam:
		return fmt.Sprintf("%04d  %-8s %s", pc, info.Name, operandName(fn, RegType(b), c))
	case OpParamI:
		return fmt.Sprintf("%04d  %-8s %d", pc, info.Name, ins.SBx())
	case OpTailK:
		return fmt.Sprintf("%04d  %-8s ka%d, %d, %d  ; %s", pc, info.Name, a, b, c, describeAddress(fn.KonstA[a]))

	case OpRet:
		return fmt.Sprintf("%04d  %-8s %d, %s%s", pc, info.Name, a&^RetFinal, operandName(fn, RegType(b), c), finalMark(a))
	case OpRetI:
		return fmt.Sprintf("%04d  %-8s %d, %d%s", pc, info.Name, a&^RetFinal, ins.SBx(), finalMark(a))

	default:
		return fmt.Sprintf("%04d  %-8s %d, %d, %d", pc, info.Name, a, b, c)
	}
}

func finalMark(a int) string {
	if a&RetFinal != 0 {
		return "  ; final"
	}
	return ""
}

var regPrefix = [NumRegTypes]string{"d", "f", "s", "a"}

func operandName(fn *ScriptFunction, flags RegType, idx int) string {
	t := flags & RegTypeMask
	if flags&RegKonst == 0 {
		return fmt.Sprintf("%s%d", regPrefix[t], idx)
	}
	name := fmt.Sprintf("k%s%d", regPrefix[t], idx)
	switch t {
	case RegInt:
		return fmt.Sprintf("%s(%d)", name, fn.KonstD[idx])
	case RegFloat:
		return fmt.Sprintf("%s(%g)", name, fn.KonstF[idx])
	case RegString:
		return fmt.Sprintf("%s(%q)", name, fn.KonstS[idx])
	default:
		return fmt.Sprintf("%s(%s)", name, describeAddress(fn.KonstA[idx]))
	}
}

func describeAddress(p any) string {
	switch v := p.(type) {
	case nil:
		return "null"
	case Function:
		return v.Name()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Disassemble returns a full disassembly of fn.
func Disassemble(fn *ScriptFunction) string {
	var sb strings.Builder
	for pc := range fn.Code {
		if pc > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(DisassembleInstruction(fn, pc))
	}
	return sb.String()
}

// DumpConstants writes fn's constant pools to w.
func DumpConstants(w io.Writer, fn *ScriptFunction) {
	if len(fn.KonstD) > 0 {
		fmt.Fprintf(w, "\nConstant integers:\n")
		for i, v := range fn.KonstD {
			fmt.Fprintf(w, "%3d. %d\n", i, v)
		}
	}
	if len(fn.KonstF) > 0 {
		fmt.Fprintf(w, "\nConstant floats:\n")
		for i, v := range fn.KonstF {
			fmt.Fprintf(w, "%3d. %g\n", i, v)
		}
	}
	if len(fn.KonstS) > 0 {
		fmt.Fprintf(w, "\nConstant strings:\n")
		for i, v := range fn.KonstS {
			fmt.Fprintf(w, "%3d. %q\n", i, v)
		}
	}
	if len(fn.KonstA) > 0 {
		fmt.Fprintf(w, "\nConstant addresses:\n")
		for i, v := range fn.KonstA {
			fmt.Fprintf(w, "%3d. %s\n", i, describeAddress(v))
		}
	}
}
