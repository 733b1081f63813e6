package thingdef

import (
	"strings"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
	"github.com/chazu/thingdef/vm"
)

// ---------------------------------------------------------------------------
// Deferred action calls
// ---------------------------------------------------------------------------

// CallParam is one argument of a deferred call. Type is the declared
// parameter type, or TypeVoid for variadic extras.
type CallParam struct {
	Expr compiler.Expr
	Type compiler.ValueType
}

// DeferredCall is an action call waiting for FinalizeAll. Its function is
// shared by the NumStates states starting at FirstState.
type DeferredCall struct {
	Pos        compiler.Position
	Class      *actor.Class
	FirstState int
	NumStates  int
	Function   *vm.NativeFunction
	Params     []CallParam
}

// ---------------------------------------------------------------------------
// ParamList: class names waiting for the complete universe
// ---------------------------------------------------------------------------

type pendingClassRef struct {
	ref   *compiler.ClassRef
	owner *actor.Class
	pos   compiler.Position
}

// ParamList collects the class-name arguments of every action call. They
// are bound together once every source has been declared.
type ParamList struct {
	refs []pendingClassRef
}

// NewParamList creates an empty list.
func NewParamList() *ParamList {
	return &ParamList{}
}

// Add queues ref for binding.
func (l *ParamList) Add(pos compiler.Position, owner *actor.Class, ref *compiler.ClassRef) {
	l.refs = append(l.refs, pendingClassRef{ref: ref, owner: owner, pos: pos})
}

// Len returns the number of queued references.
func (l *ParamList) Len() int {
	return len(l.refs)
}

// Drop removes the references made from owner.
func (l *ParamList) Drop(owner *actor.Class) {
	kept := l.refs[:0]
	for _, p := range l.refs {
		if p.owner != owner {
			kept = append(kept, p)
		}
	}
	l.refs = kept
}

// BindAll binds every queued reference. Failures are reported to diag and
// leave the reference unbound.
func (l *ParamList) BindAll(reg *actor.Registry, diag *compiler.Diagnostics) {
	for _, p := range l.refs {
		cls := reg.FindClass(p.ref.Name)
		if cls == nil {
			diag.Errorf(p.pos, "Unknown class name '%s'", p.ref.Name)
			continue
		}
		base := reg.Base()
		if p.ref.Base != "" {
			base = reg.FindClass(p.ref.Base)
		}
		if cls.IsDefined() && !reg.IsDescendantOf(cls, base) {
			diag.Errorf(p.pos, "'%s' does not inherit from '%s'", p.ref.Name, baseName(p.ref.Base))
			continue
		}
		p.ref.Class = cls
	}
	l.refs = nil
}

// ---------------------------------------------------------------------------
// Call conversion
// ---------------------------------------------------------------------------

// deferCall checks an action call against its declaration and queues it.
// first and count give the states the call is attached to.
func (c *Context) deferCall(b *baggage, call *compiler.ActionCall, first, count int) {
	pos := call.Span().Start
	sym, ok := b.table.LookupAction(call.Name)
	if !ok {
		c.Diag.Errorf(pos, "Unknown action function '%s'", call.Name)
		return
	}
	if len(call.Args) < sym.MinArgs() {
		c.Diag.Errorf(pos, "Too few arguments to %s", sym.Name)
		return
	}
	if len(call.Args) > len(sym.Params) && !sym.Variadic {
		c.Diag.Errorf(pos, "Too many arguments to %s", sym.Name)
		return
	}

	dc := &DeferredCall{
		Pos:        pos,
		Class:      b.cls,
		FirstState: first,
		NumStates:  count,
		Function:   sym.Function,
	}
	for i, prm := range sym.Params {
		arg := prm.Default
		if i < len(call.Args) {
			arg = call.Args[i]
		}
		x := c.convertParam(b, prm, arg, first)
		if x == nil {
			return
		}
		dc.Params = append(dc.Params, CallParam{Expr: x, Type: prm.Type})
	}
	for _, arg := range call.Args[min(len(call.Args), len(sym.Params)):] {
		dc.Params = append(dc.Params, CallParam{Expr: arg, Type: compiler.TypeVoid})
	}
	c.Pending = append(c.Pending, dc)
}

// convertParam turns the class and state arguments into references that
// can be bound later. Everything else is kept as written.
func (c *Context) convertParam(b *baggage, prm *compiler.ParamDecl, arg compiler.Expr, first int) compiler.Expr {
	switch prm.Type {
	case compiler.TypeClass:
		name, ok := literalString(arg)
		if !ok {
			c.Diag.Errorf(arg.Span().Start, "Class name expected for parameter '%s'", prm.Name)
			return nil
		}
		if name == "" || strings.EqualFold(name, "None") {
			return &compiler.ClassRef{SpanVal: arg.Span(), Null: true}
		}
		ref := &compiler.ClassRef{SpanVal: arg.Span(), Name: name, Base: prm.ClassBase}
		c.Params.Add(arg.Span().Start, b.cls, ref)
		return ref

	case compiler.TypeState:
		if name, ok := literalString(arg); ok {
			if name == "" {
				return &compiler.StateIndexRef{SpanVal: arg.Span(), Null: true}
			}
			return &compiler.StateLabelRef{SpanVal: arg.Span(), Label: name}
		}
		if lit, ok := arg.(*compiler.IntLiteral); ok {
			return &compiler.StateIndexRef{SpanVal: arg.Span(), Index: first + lit.Value, Null: lit.Value == 0}
		}
		c.Diag.Errorf(arg.Span().Start, "State label or offset expected for parameter '%s'", prm.Name)
		return nil
	}
	return arg
}

func baseName(name string) string {
	if name == "" {
		return actor.BaseClassName
	}
	return name
}

func literalString(e compiler.Expr) (string, bool) {
	switch n := e.(type) {
	case *compiler.StringLiteral:
		return n.Value, true
	case *compiler.NameLiteral:
		return n.Value, true
	}
	return "", false
}
