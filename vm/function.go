package vm

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// Function is anything the VM can call: a native action implemented by the
// engine or a script function produced by a FunctionBuilder.
type Function interface {
	Name() string
}

// NativeFunc is the Go implementation behind a NativeFunction.
type NativeFunc func(args []Value) ([]Value, error)

// NativeFunction is an engine-provided callable. Impl may be nil when the
// implementation is bound later by the runtime; the compiler only needs the
// function's identity.
type NativeFunction struct {
	name string
	Impl NativeFunc
}

// NewNativeFunction creates a native function.
func NewNativeFunction(name string, impl NativeFunc) *NativeFunction {
	return &NativeFunction{name: name, Impl: impl}
}

// Name returns the function name.
func (f *NativeFunction) Name() string { return f.name }

// ScriptFunction is an immutable compiled function. It is produced by
// FunctionBuilder.MakeFunction and must not be modified afterwards.
type ScriptFunction struct {
	name string

	// Code
	Code []Instruction

	// Constant pools
	KonstD []int
	KonstF []float64
	KonstS []string
	KonstA []any

	// Frame layout
	NumRegD  int
	NumRegF  int
	NumRegS  int
	NumRegA  int
	MaxParam int // deepest parameter stack use
	NumArgs  int // number of incoming arguments
}

// Name returns the function name (for debugging).
func (f *ScriptFunction) Name() string { return f.name }

// CodeSize returns the number of instructions.
func (f *ScriptFunction) CodeSize() int { return len(f.Code) }

// NumRegs returns the register count for a register file.
func (f *ScriptFunction) NumRegs(t RegType) int {
	switch t & RegTypeMask {
	case RegInt:
		return f.NumRegD
	case RegFloat:
		return f.NumRegF
	case RegString:
		return f.NumRegS
	default:
		return f.NumRegA
	}
}
