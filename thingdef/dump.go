package thingdef

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/chazu/thingdef/vm"
)

// DumpSink receives every function FinalizeAll generates. It is a
// debugging side channel; nothing written to it is read back.
type DumpSink interface {
	// Begin is called by RunCompilation once the run ID is known.
	Begin(runID uuid.UUID) error
	DumpFunction(label string, fn *vm.ScriptFunction) error
	// Finish is called once per run with the total size of the dumped code.
	Finish(codeBytes int) error
}

const (
	dumpMarks    = "======================================================="
	dumpTrailer  = "*************************************************************************"
	dumpHalfLine = 38
)

// TextDump writes a human-readable listing in the disasm.txt layout.
type TextDump struct {
	w   io.Writer
	err error
}

// NewTextDump creates a text dump writing to w.
func NewTextDump(w io.Writer) *TextDump {
	return &TextDump{w: w}
}

func (d *TextDump) printf(format string, args ...any) {
	if d.err == nil {
		_, d.err = fmt.Fprintf(d.w, format, args...)
	}
}

// Begin does nothing; the text layout has no run header.
func (d *TextDump) Begin(uuid.UUID) error {
	return d.err
}

// DumpFunction writes the banner, register counts, constants and
// disassembly of fn.
func (d *TextDump) DumpFunction(label string, fn *vm.ScriptFunction) error {
	n := max(3, dumpHalfLine-len(label)/2)
	d.printf("\n%.*s %s %.*s", n, dumpMarks, label, n, dumpMarks)
	d.printf("\nInteger regs: %-3d  Float regs: %-3d  Address regs: %-3d  String regs: %-3d\nStack size: %d\n",
		fn.NumRegD, fn.NumRegF, fn.NumRegA, fn.NumRegS, fn.MaxParam)
	if d.err == nil {
		vm.DumpConstants(d.w, fn)
	}
	d.printf("\nDisassembly of %s:\n%s\n", fn.Name(), vm.Disassemble(fn))
	return d.err
}

// Finish writes the code size trailer.
func (d *TextDump) Finish(codeBytes int) error {
	d.printf("\n%s\n%d code bytes\n", dumpTrailer, codeBytes)
	return d.err
}

// MultiDump fans out to several sinks.
type MultiDump []DumpSink

func (m MultiDump) Begin(runID uuid.UUID) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Begin(runID))
	}
	return errors.Join(errs...)
}

func (m MultiDump) DumpFunction(label string, fn *vm.ScriptFunction) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.DumpFunction(label, fn))
	}
	return errors.Join(errs...)
}

func (m MultiDump) Finish(codeBytes int) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Finish(codeBytes))
	}
	return errors.Join(errs...)
}
