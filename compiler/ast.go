package compiler

import (
	"fmt"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/vm"
)

// ---------------------------------------------------------------------------
// AST: syntax tree for DECORATE
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	File   string // source name
	Offset int    // byte offset
	Line   int    // 1-based line number
	Column int    // 1-based column number
}

// IsValid reports whether p points into a source.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// MakeSpan creates a span from two positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a "string" literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// NameLiteral represents a 'name' literal.
type NameLiteral struct {
	SpanVal Span
	Value   string
}

func (n *NameLiteral) Span() Span { return n.SpanVal }
func (n *NameLiteral) node()      {}
func (n *NameLiteral) expr()      {}

// Identifier references a constant by name.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// UnaryExpr represents -x. Type is set by the resolver.
type UnaryExpr struct {
	SpanVal Span
	Op      TokenType
	X       Expr
	Type    ValueType
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// BinaryExpr represents x op y. Type is set by the resolver.
type BinaryExpr struct {
	SpanVal Span
	Op      TokenType
	X       Expr
	Y       Expr
	Type    ValueType
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// ParenExpr is a parenthesized expression. Property arguments keep it so a
// computed value can be told apart from a plain literal.
type ParenExpr struct {
	SpanVal Span
	X       Expr
}

func (n *ParenExpr) Span() Span { return n.SpanVal }
func (n *ParenExpr) node()      {}
func (n *ParenExpr) expr()      {}

// RandomCall represents random(min, max), an integer in [min, max].
type RandomCall struct {
	SpanVal Span
	Min     Expr
	Max     Expr
}

func (n *RandomCall) Span() Span { return n.SpanVal }
func (n *RandomCall) node()      {}
func (n *RandomCall) expr()      {}

// ---------------------------------------------------------------------------
// Resolved expression nodes
// ---------------------------------------------------------------------------

// Constant is a fully folded value.
type Constant struct {
	SpanVal Span
	Type    ValueType
	Value   vm.Value
}

func (n *Constant) Span() Span { return n.SpanVal }
func (n *Constant) node()      {}
func (n *Constant) expr()      {}

// Cast converts X between int and float.
type Cast struct {
	SpanVal Span
	To      ValueType
	X       Expr
}

func (n *Cast) Span() Span { return n.SpanVal }
func (n *Cast) node()      {}
func (n *Cast) expr()      {}

// ClassRef names a class whose binding waits until every source has been
// declared. Base restricts the acceptable classes; empty means any actor.
// A null reference ("None" or "") has Null set and is never bound.
type ClassRef struct {
	SpanVal Span
	Name    string
	Base    string
	Null    bool
	Class   *actor.Class
}

func (n *ClassRef) Span() Span { return n.SpanVal }
func (n *ClassRef) node()      {}
func (n *ClassRef) expr()      {}

// StateLabelRef names a state label of the calling actor, optionally with a
// Super:: or Class:: qualifier.
type StateLabelRef struct {
	SpanVal Span
	Label   string
}

func (n *StateLabelRef) Span() Span { return n.SpanVal }
func (n *StateLabelRef) node()      {}
func (n *StateLabelRef) expr()      {}

// StateIndexRef addresses a state of the calling actor by absolute index.
// A zero jump offset produces a Null reference.
type StateIndexRef struct {
	SpanVal Span
	Index   int
	Null    bool
}

func (n *StateIndexRef) Span() Span { return n.SpanVal }
func (n *StateIndexRef) node()      {}
func (n *StateIndexRef) expr()      {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// SourceFile is the root of one parsed source.
type SourceFile struct {
	SpanVal Span
	Name    string
	Decls   []Decl
}

func (n *SourceFile) Span() Span { return n.SpanVal }
func (n *SourceFile) node()      {}

// Decl is a top-level declaration.
type Decl interface {
	Node
	decl()
}

// ConstDef declares a named constant: const int NAME = expr;
type ConstDef struct {
	SpanVal Span
	Type    ValueType
	Name    string
	Value   Expr
}

func (n *ConstDef) Span() Span { return n.SpanVal }
func (n *ConstDef) node()      {}
func (n *ConstDef) decl()      {}
func (n *ConstDef) bodyItem()  {}

// ActorDef declares one actor class.
type ActorDef struct {
	SpanVal   Span
	Name      string
	Parent    string // empty for the default base
	Replaces  string
	DoomEdNum int // -1 when absent
	Native    bool
	Body      []BodyItem
}

func (n *ActorDef) Span() Span { return n.SpanVal }
func (n *ActorDef) node()      {}
func (n *ActorDef) decl()      {}

// BodyItem is one entry of an actor body.
type BodyItem interface {
	Node
	bodyItem()
}

// FlagItem sets (+) or clears (-) a flag.
type FlagItem struct {
	SpanVal Span
	Name    string
	Set     bool
}

func (n *FlagItem) Span() Span { return n.SpanVal }
func (n *FlagItem) node()      {}
func (n *FlagItem) bodyItem()  {}

// PropertyItem assigns a property. Args are literals or parenthesized
// expressions.
type PropertyItem struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *PropertyItem) Span() Span { return n.SpanVal }
func (n *PropertyItem) node()      {}
func (n *PropertyItem) bodyItem()  {}

// ParamDecl is one parameter of an action declaration.
type ParamDecl struct {
	SpanVal   Span
	Type      ValueType
	ClassBase string // class<Base> restriction
	Name      string
	Default   Expr // nil when required
}

// ActionDecl declares a native action function.
type ActionDecl struct {
	SpanVal  Span
	Name     string
	Params   []*ParamDecl
	Variadic bool
}

func (n *ActionDecl) Span() Span { return n.SpanVal }
func (n *ActionDecl) node()      {}
func (n *ActionDecl) bodyItem()  {}

// StatesBlock holds a states { ... } section.
type StatesBlock struct {
	SpanVal Span
	Items   []StateItem
}

func (n *StatesBlock) Span() Span { return n.SpanVal }
func (n *StatesBlock) node()      {}
func (n *StatesBlock) bodyItem()  {}

// StateItem is a label, a frame line, or a flow statement.
type StateItem interface {
	Node
	stateItem()
}

// StateLabel starts a labelled sequence.
type StateLabel struct {
	SpanVal Span
	Name    string
}

func (n *StateLabel) Span() Span { return n.SpanVal }
func (n *StateLabel) node()      {}
func (n *StateLabel) stateItem() {}

// ActionCall is an action invoked from a frame line.
type ActionCall struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *ActionCall) Span() Span { return n.SpanVal }

// StateFrames is one frame line; it defines one state per frame letter.
type StateFrames struct {
	SpanVal Span
	Sprite  string
	Frames  string
	Tics    int
	Bright  bool
	Fast    bool
	Action  *ActionCall // nil when the line calls nothing
}

func (n *StateFrames) Span() Span { return n.SpanVal }
func (n *StateFrames) node()      {}
func (n *StateFrames) stateItem() {}

// FlowKind selects a flow statement.
type FlowKind int

const (
	FlowGoto FlowKind = iota
	FlowLoop
	FlowStop
	FlowWait
	FlowFail
)

var flowNames = [...]string{"goto", "loop", "stop", "wait", "fail"}

func (k FlowKind) String() string {
	return flowNames[k]
}

// StateFlow ends a sequence.
type StateFlow struct {
	SpanVal Span
	Kind    FlowKind
	Label   string // goto target
	Offset  int    // goto target + offset
}

func (n *StateFlow) Span() Span { return n.SpanVal }
func (n *StateFlow) node()      {}
func (n *StateFlow) stateItem() {}
