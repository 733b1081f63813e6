package vm

import "fmt"

// ---------------------------------------------------------------------------
// Register types
// ---------------------------------------------------------------------------

// RegType identifies one of the VM's typed register files.
type RegType uint8

const (
	RegInt     RegType = 0 // integer (and boolean) registers
	RegFloat   RegType = 1 // float registers
	RegString  RegType = 2 // string registers
	RegPointer RegType = 3 // address registers

	NumRegTypes = 4
)

// Operand flags combined with a RegType in PARAM and RET instructions.
const (
	RegTypeMask RegType = 0x03
	RegKonst    RegType = 0x04 // operand is a constant pool index, not a register
)

// RetFinal is or'ed into the A operand of RET/RETI to mark the last return.
const RetFinal = 0x80

var regTypeNames = [NumRegTypes]string{"int", "float", "string", "pointer"}

func (t RegType) String() string {
	base := t & RegTypeMask
	name := regTypeNames[base]
	if t&RegKonst != 0 {
		return name + "|k"
	}
	return name
}

// Cast kinds for OpCast.
const (
	CastIntToFloat = 1
	CastFloatToInt = 2
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single VM instruction.
type Opcode byte

// Loads
const (
	OpNOP  Opcode = 0x00 // no operation
	OpLI   Opcode = 0x01 // dA = sBx
	OpLK   Opcode = 0x02 // dA = KonstD[Bx]
	OpLKF  Opcode = 0x03 // fA = KonstF[Bx]
	OpLKS  Opcode = 0x04 // sA = KonstS[Bx]
	OpLKP  Opcode = 0x05 // aA = KonstA[Bx]
	OpMove Opcode = 0x06 // dA = dB
	OpMovF Opcode = 0x07 // fA = fB
	OpMovS Opcode = 0x08 // sA = sB
	OpMovA Opcode = 0x09 // aA = aB
)

// Integer arithmetic
const (
	OpAdd Opcode = 0x10 // dA = dB + dC
	OpSub Opcode = 0x11 // dA = dB - dC
	OpMul Opcode = 0x12 // dA = dB * dC
	OpDiv Opcode = 0x13 // dA = dB / dC
	OpMod Opcode = 0x14 // dA = dB % dC
	OpNeg Opcode = 0x15 // dA = -dB
)

// Float arithmetic
const (
	OpAddF Opcode = 0x20 // fA = fB + fC
	OpSubF Opcode = 0x21 // fA = fB - fC
	OpMulF Opcode = 0x22 // fA = fB * fC
	OpDivF Opcode = 0x23 // fA = fB / fC
	OpNegF Opcode = 0x24 // fA = -fB
)

// Conversion and builtins
const (
	OpCast   Opcode = 0x30 // A = cast(B), C selects the conversion
	OpRandom Opcode = 0x31 // dA = random integer in [dB, dC]
)

// Calls
const (
	OpParam  Opcode = 0x40 // push parameter: B = RegType|RegKonst, C = register or constant
	OpParamI Opcode = 0x41 // push integer immediate sBx
	OpTailK  Opcode = 0x42 // tail call KonstA[A] with B arguments
)

// Returns
const (
	OpRet  Opcode = 0x50 // return slot A&0x7F: B = RegType|RegKonst, C = register or constant
	OpRetI Opcode = 0x51 // return slot A&0x7F: integer immediate sBx
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandFormat describes how an instruction's 24 operand bits are split.
type OperandFormat int

const (
	FormatNone OperandFormat = iota
	FormatABC                // a:8 b:8 c:8
	FormatABx                // a:8 bx:16 (signed where noted)
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name   string        // human-readable name
	Format OperandFormat // operand layout
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpNOP:  {"nop", FormatNone},
	OpLI:   {"li", FormatABx},
	OpLK:   {"lk", FormatABx},
	OpLKF:  {"lkf", FormatABx},
	OpLKS:  {"lks", FormatABx},
	OpLKP:  {"lkp", FormatABx},
	OpMove: {"move", FormatABC},
	OpMovF: {"movef", FormatABC},
	OpMovS: {"moves", FormatABC},
	OpMovA: {"movea", FormatABC},

	OpAdd: {"add", FormatABC},
	OpSub: {"sub", FormatABC},
	OpMul: {"mul", FormatABC},
	OpDiv: {"div", FormatABC},
	OpMod: {"mod", FormatABC},
	OpNeg: {"neg", FormatABC},

	OpAddF: {"addf", FormatABC},
	OpSubF: {"subf", FormatABC},
	OpMulF: {"mulf", FormatABC},
	OpDivF: {"divf", FormatABC},
	OpNegF: {"negf", FormatABC},

	OpCast:   {"cast", FormatABC},
	OpRandom: {"random", FormatABC},

	OpParam:  {"param", FormatABC},
	OpParamI: {"parami", FormatABx},
	OpTailK:  {"tail_k", FormatABC},

	OpRet:  {"ret", FormatABC},
	OpRetI: {"reti", FormatABx},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("unknown_%02x", byte(op)), Format: FormatABC}
}

// String returns the opcode name.
func (op Opcode) String() string {
	return op.Info().Name
}

// ---------------------------------------------------------------------------
// Instruction encoding
// ---------------------------------------------------------------------------

// Instruction is one 32-bit VM instruction: op in the low byte, then A, B, C
// (or A and a 16-bit Bx).
type Instruction uint32

// InstructionSize is the encoded size of one instruction in bytes.
const InstructionSize = 4

// MakeABC encodes an instruction with three 8-bit operands.
func MakeABC(op Opcode, a, b, c int) Instruction {
	return Instruction(uint32(op) | uint32(a&0xFF)<<8 | uint32(b&0xFF)<<16 | uint32(c&0xFF)<<24)
}

// MakeABx encodes an instruction with an 8-bit A and a 16-bit Bx.
func MakeABx(op Opcode, a, bx int) Instruction {
	return Instruction(uint32(op) | uint32(a&0xFF)<<8 | uint32(bx&0xFFFF)<<16)
}

// Op returns the opcode.
func (i Instruction) Op() Opcode { return Opcode(i & 0xFF) }

// A returns the first operand.
func (i Instruction) A() int { return int(i >> 8 & 0xFF) }

// B returns the second operand.
func (i Instruction) B() int { return int(i >> 16 & 0xFF) }

// C returns the third operand.
func (i Instruction) C() int { return int(i >> 24 & 0xFF) }

// Bx returns the unsigned 16-bit operand.
func (i Instruction) Bx() int { return int(i >> 16 & 0xFFFF) }

// SBx returns the signed 16-bit operand.
func (i Instruction) SBx() int { return int(int16(i >> 16)) }
