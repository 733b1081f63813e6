package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Diagnostics: accumulated compiler messages
// ---------------------------------------------------------------------------

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one compiler message.
type Diagnostic struct {
	Severity Severity
	Pos      Position
	Message  string
}

func (d Diagnostic) String() string {
	if !d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Diagnostics collects every message of a compilation run. Only errors count
// toward the failure tally.
type Diagnostics struct {
	records []Diagnostic
	errors  int
	log     commonlog.Logger
}

// NewDiagnostics creates an empty sink that mirrors messages to log.
func NewDiagnostics(log commonlog.Logger) *Diagnostics {
	return &Diagnostics{log: log}
}

// Errorf records an error at pos.
func (d *Diagnostics) Errorf(pos Position, format string, args ...any) {
	rec := Diagnostic{Severity: SeverityError, Pos: pos, Message: fmt.Sprintf(format, args...)}
	d.records = append(d.records, rec)
	d.errors++
	if d.log != nil {
		d.log.Errorf("%s", rec)
	}
}

// Warningf records a warning at pos.
func (d *Diagnostics) Warningf(pos Position, format string, args ...any) {
	rec := Diagnostic{Severity: SeverityWarning, Pos: pos, Message: fmt.Sprintf(format, args...)}
	d.records = append(d.records, rec)
	if d.log != nil {
		d.log.Warningf("%s", rec)
	}
}

// ErrorCount returns the number of errors recorded since the last Reset.
func (d *Diagnostics) ErrorCount() int {
	return d.errors
}

// Records returns every diagnostic in the order reported.
func (d *Diagnostics) Records() []Diagnostic {
	return d.records
}

// Errors returns only the error diagnostics.
func (d *Diagnostics) Errors() []Diagnostic {
	var out []Diagnostic
	for _, r := range d.records {
		if r.Severity == SeverityError {
			out = append(out, r)
		}
	}
	return out
}

// Reset clears all messages and the error tally.
func (d *Diagnostics) Reset() {
	d.records = nil
	d.errors = 0
}
