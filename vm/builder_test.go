package vm

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Opcode metadata and encoding
// ---------------------------------------------------------------------------

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op     Opcode
		name   string
		format OperandFormat
	}{
		{OpNOP, "nop", FormatNone},
		{OpLI, "li", FormatABx},
		{OpLKP, "lkp", FormatABx},
		{OpAdd, "add", FormatABC},
		{OpCast, "cast", FormatABC},
		{OpParam, "param", FormatABC},
		{OpParamI, "parami", FormatABx},
		{OpTailK, "tail_k", FormatABC},
		{OpRet, "ret", FormatABC},
		{OpRetI, "reti", FormatABx},
	}

	for _, tt := range tests {
		info := tt.op.Info()
		if info.Name != tt.name {
			t.Errorf("%02x: Name = %q, want %q", byte(tt.op), info.Name, tt.name)
		}
		if info.Format != tt.format {
			t.Errorf("%s: Format = %d, want %d", tt.op, info.Format, tt.format)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	info := Opcode(0xFF).Info()
	if !strings.HasPrefix(info.Name, "unknown_") {
		t.Errorf("unknown opcode should have unknown_ prefix, got %q", info.Name)
	}
}

func TestInstructionEncoding(t *testing.T) {
	ins := MakeABC(OpAdd, 1, 2, 3)
	if ins.Op() != OpAdd || ins.A() != 1 || ins.B() != 2 || ins.C() != 3 {
		t.Errorf("ABC decode = %s %d %d %d", ins.Op(), ins.A(), ins.B(), ins.C())
	}

	ins = MakeABx(OpLI, 7, -5)
	if ins.Op() != OpLI || ins.A() != 7 {
		t.Errorf("ABx decode = %s %d", ins.Op(), ins.A())
	}
	if ins.SBx() != -5 {
		t.Errorf("SBx = %d, want -5", ins.SBx())
	}

	ins = MakeABx(OpLK, 0, 0xFFFF)
	if ins.Bx() != 0xFFFF {
		t.Errorf("Bx = %d, want 65535", ins.Bx())
	}
}

// ---------------------------------------------------------------------------
// RegisterAllocator
// ---------------------------------------------------------------------------

func TestRegisterAllocatorContiguous(t *testing.T) {
	var r RegisterAllocator
	a := r.Get(3)
	if a != 0 {
		t.Fatalf("first Get(3) = %d, want 0", a)
	}
	b := r.Get(1)
	if b != 3 {
		t.Fatalf("Get(1) = %d, want 3", b)
	}
	r.Return(1, 1)
	// The freed hole is too small for two registers.
	c := r.Get(2)
	if c != 4 {
		t.Errorf("Get(2) = %d, want 4", c)
	}
	d := r.Get(1)
	if d != 1 {
		t.Errorf("Get(1) after return = %d, want 1", d)
	}
	if r.MostUsed() != 6 {
		t.Errorf("MostUsed = %d, want 6", r.MostUsed())
	}
}

func TestRegisterAllocatorDoubleReturn(t *testing.T) {
	var r RegisterAllocator
	reg := r.Get(1)
	r.Return(reg, 1)

	defer func() {
		if recover() == nil {
			t.Error("returning a free register should panic")
		}
	}()
	r.Return(reg, 1)
}

func TestRegisterAllocatorExhausted(t *testing.T) {
	var r RegisterAllocator
	r.Get(MaxRegisters)

	defer func() {
		if recover() == nil {
			t.Error("allocating past the register file should panic")
		}
	}()
	r.Get(1)
}

// ---------------------------------------------------------------------------
// FunctionBuilder
// ---------------------------------------------------------------------------

func TestFunctionBuilderConstantDedup(t *testing.T) {
	b := NewFunctionBuilder()
	if b.GetConstantInt(100000) != 0 || b.GetConstantInt(7) != 1 || b.GetConstantInt(100000) != 0 {
		t.Error("integer constants not deduplicated")
	}
	if b.GetConstantFloat(1.5) != 0 || b.GetConstantFloat(1.5) != 0 {
		t.Error("float constants not deduplicated")
	}
	if b.GetConstantString("x") != 0 || b.GetConstantString("y") != 1 || b.GetConstantString("x") != 0 {
		t.Error("string constants not deduplicated")
	}
	fn := NewNativeFunction("A_Look", nil)
	if b.GetConstantAddress(fn) != 0 || b.GetConstantAddress(nil) != 1 || b.GetConstantAddress(fn) != 0 {
		t.Error("address constants not deduplicated")
	}
}

func TestFunctionBuilderImmediates(t *testing.T) {
	b := NewFunctionBuilder()
	b.EmitParamInt(12)
	b.EmitParamInt(1 << 20)
	b.EmitRetInt(0, false, 5)
	b.EmitRetInt(1, true, 1<<20)

	fn := b.MakeFunction("imm", 0)
	want := []Opcode{OpParamI, OpParam, OpRetI, OpRet}
	if len(fn.Code) != len(want) {
		t.Fatalf("code length = %d, want %d", len(fn.Code), len(want))
	}
	for i, op := range want {
		if fn.Code[i].Op() != op {
			t.Errorf("code[%d] = %s, want %s", i, fn.Code[i].Op(), op)
		}
	}
	if len(fn.KonstD) != 1 || fn.KonstD[0] != 1<<20 {
		t.Errorf("KonstD = %v, want [%d]", fn.KonstD, 1<<20)
	}
	if fn.Code[3].A() != 1|RetFinal {
		t.Errorf("final ret A = %#x, want %#x", fn.Code[3].A(), 1|RetFinal)
	}
}

func TestFunctionBuilderParamTracking(t *testing.T) {
	b := NewFunctionBuilder()
	regs := b.Registers[RegPointer].Get(3)
	for i := 0; i < 3; i++ {
		b.Emit(OpParam, 0, int(RegPointer), regs+i)
	}
	b.EmitParamInt(4)
	target := NewNativeFunction("A_Chase", nil)
	b.Emit(OpTailK, b.GetConstantAddress(target), 4, 0)

	fn := b.MakeFunction("thunk", 3)
	if fn.MaxParam != 4 {
		t.Errorf("MaxParam = %d, want 4", fn.MaxParam)
	}
	if fn.NumRegA != 3 {
		t.Errorf("NumRegA = %d, want 3", fn.NumRegA)
	}
	if fn.NumRegD != 0 {
		t.Errorf("NumRegD = %d, want 0", fn.NumRegD)
	}
	if fn.NumArgs != 3 {
		t.Errorf("NumArgs = %d, want 3", fn.NumArgs)
	}
	if fn.Name() != "thunk" {
		t.Errorf("Name = %q", fn.Name())
	}
}

func TestMakeFunctionIsolated(t *testing.T) {
	b := NewFunctionBuilder()
	b.EmitRetInt(0, true, 1)
	fn := b.MakeFunction("a", 0)
	b.EmitRetInt(1, true, 2)
	if fn.CodeSize() != 1 {
		t.Errorf("function changed after further emission: size %d", fn.CodeSize())
	}
}
