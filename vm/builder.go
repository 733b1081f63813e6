package vm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// RegisterAllocator: per-type register bookkeeping
// ---------------------------------------------------------------------------

// MaxRegisters is the size of each register file addressable by an 8-bit
// operand.
const MaxRegisters = 256

// RegisterAllocator hands out registers of one type for a single function.
type RegisterAllocator struct {
	used     [MaxRegisters]bool
	mostUsed int
}

// Get allocates count contiguous registers and returns the first one.
func (r *RegisterAllocator) Get(count int) int {
	if count <= 0 {
		return -1
	}
	for start := 0; start+count <= MaxRegisters; start++ {
		free := true
		for i := start; i < start+count; i++ {
			if r.used[i] {
				free = false
				start = i
				break
			}
		}
		if !free {
			continue
		}
		for i := start; i < start+count; i++ {
			r.used[i] = true
		}
		if start+count > r.mostUsed {
			r.mostUsed = start + count
		}
		return start
	}
	panic("register file exhausted")
}

// Return releases count registers starting at reg.
func (r *RegisterAllocator) Return(reg, count int) {
	for i := reg; i < reg+count && i < MaxRegisters; i++ {
		if !r.used[i] {
			panic(fmt.Sprintf("register %d returned twice", i))
		}
		r.used[i] = false
	}
}

// MostUsed returns the high-water mark of allocated registers.
func (r *RegisterAllocator) MostUsed() int {
	return r.mostUsed
}

// ---------------------------------------------------------------------------
// FunctionBuilder: assembles a ScriptFunction
// ---------------------------------------------------------------------------

// FunctionBuilder accumulates instructions, constants and register usage for
// one function. Call MakeFunction once to obtain the immutable result.
type FunctionBuilder struct {
	Registers [NumRegTypes]RegisterAllocator

	code []Instruction

	konstD []int
	konstF []float64
	konstS []string
	konstA []any

	// dedup constants
	mapD map[int]int
	mapF map[uint64]int
	mapS map[string]int
	mapA map[any]int

	activeParam int
	maxParam    int
}

// NewFunctionBuilder creates an empty builder.
func NewFunctionBuilder() *FunctionBuilder {
	return &FunctionBuilder{
		mapD: make(map[int]int),
		mapF: make(map[uint64]int),
		mapS: make(map[string]int),
		mapA: make(map[any]int),
	}
}

// Emit appends an ABC-format instruction and returns its address.
func (b *FunctionBuilder) Emit(op Opcode, a, bb, c int) int {
	switch op {
	case OpParam:
		b.pushParam()
	case OpTailK:
		b.activeParam -= bb
	}
	b.code = append(b.code, MakeABC(op, a, bb, c))
	return len(b.code) - 1
}

// EmitABx appends an ABx-format instruction and returns its address.
func (b *FunctionBuilder) EmitABx(op Opcode, a, bx int) int {
	if op == OpParamI {
		b.pushParam()
	}
	b.code = append(b.code, MakeABx(op, a, bx))
	return len(b.code) - 1
}

func (b *FunctionBuilder) pushParam() {
	b.activeParam++
	if b.activeParam > b.maxParam {
		b.maxParam = b.activeParam
	}
}

// fitsSBx reports whether v can be encoded as a signed 16-bit immediate.
func fitsSBx(v int) bool {
	return v >= math.MinInt16 && v <= math.MaxInt16
}

// EmitLoadInt loads an integer into register reg, using an immediate when
// the value is small enough.
func (b *FunctionBuilder) EmitLoadInt(reg, value int) int {
	if fitsSBx(value) {
		return b.EmitABx(OpLI, reg, value)
	}
	return b.EmitABx(OpLK, reg, b.GetConstantInt(value))
}

// EmitParamInt pushes an integer parameter, using an immediate when
// possible.
func (b *FunctionBuilder) EmitParamInt(value int) int {
	if fitsSBx(value) {
		return b.EmitABx(OpParamI, 0, value)
	}
	return b.Emit(OpParam, 0, int(RegInt|RegKonst), b.GetConstantInt(value))
}

// EmitRetInt returns an integer constant in slot retnum.
func (b *FunctionBuilder) EmitRetInt(retnum int, final bool, value int) int {
	a := retnum
	if final {
		a |= RetFinal
	}
	if fitsSBx(value) {
		return b.EmitABx(OpRetI, a, value)
	}
	return b.Emit(OpRet, a, int(RegInt|RegKonst), b.GetConstantInt(value))
}

// GetConstantInt returns the constant pool index for an integer.
func (b *FunctionBuilder) GetConstantInt(v int) int {
	if idx, ok := b.mapD[v]; ok {
		return idx
	}
	idx := len(b.konstD)
	checkConstantIndex(idx)
	b.konstD = append(b.konstD, v)
	b.mapD[v] = idx
	return idx
}

// GetConstantFloat returns the constant pool index for a float.
func (b *FunctionBuilder) GetConstantFloat(v float64) int {
	key := math.Float64bits(v)
	if idx, ok := b.mapF[key]; ok {
		return idx
	}
	idx := len(b.konstF)
	checkConstantIndex(idx)
	b.konstF = append(b.konstF, v)
	b.mapF[key] = idx
	return idx
}

// GetConstantString returns the constant pool index for a string.
func (b *FunctionBuilder) GetConstantString(v string) int {
	if idx, ok := b.mapS[v]; ok {
		return idx
	}
	idx := len(b.konstS)
	checkConstantIndex(idx)
	b.konstS = append(b.konstS, v)
	b.mapS[v] = idx
	return idx
}

// GetConstantAddress returns the constant pool index for an address.
// p must be comparable.
func (b *FunctionBuilder) GetConstantAddress(p any) int {
	if idx, ok := b.mapA[p]; ok {
		return idx
	}
	idx := len(b.konstA)
	checkConstantIndex(idx)
	b.konstA = append(b.konstA, p)
	b.mapA[p] = idx
	return idx
}

func checkConstantIndex(idx int) {
	if idx > 0xFFFF {
		panic("constant pool overflow")
	}
}

// CodeSize returns the number of instructions emitted so far.
func (b *FunctionBuilder) CodeSize() int {
	return len(b.code)
}

// MakeFunction builds the immutable function.
func (b *FunctionBuilder) MakeFunction(name string, numArgs int) *ScriptFunction {
	f := &ScriptFunction{
		name:     name,
		Code:     append([]Instruction(nil), b.code...),
		KonstD:   append([]int(nil), b.konstD...),
		KonstF:   append([]float64(nil), b.konstF...),
		KonstS:   append([]string(nil), b.konstS...),
		KonstA:   append([]any(nil), b.konstA...),
		NumRegD:  b.Registers[RegInt].MostUsed(),
		NumRegF:  b.Registers[RegFloat].MostUsed(),
		NumRegS:  b.Registers[RegString].MostUsed(),
		NumRegA:  b.Registers[RegPointer].MostUsed(),
		MaxParam: b.maxParam,
		NumArgs:  numArgs,
	}
	return f
}
