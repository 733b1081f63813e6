package compiler

import (
	"strings"

	"github.com/chazu/thingdef/vm"
)

// ---------------------------------------------------------------------------
// Symbol tables
// ---------------------------------------------------------------------------

// Symbol is an entry of a SymbolTable.
type Symbol interface {
	SymbolName() string
}

// ConstSymbol is a named compile-time constant.
type ConstSymbol struct {
	Name  string
	Type  ValueType
	Value vm.Value
}

func (s *ConstSymbol) SymbolName() string { return s.Name }

// ActionSymbol binds an action name to its native function and signature.
type ActionSymbol struct {
	Name     string
	Function *vm.NativeFunction
	Params   []*ParamDecl
	Variadic bool
}

func (s *ActionSymbol) SymbolName() string { return s.Name }

// MinArgs returns the number of parameters without a default.
func (s *ActionSymbol) MinArgs() int {
	n := 0
	for _, p := range s.Params {
		if p.Default != nil {
			break
		}
		n++
	}
	return n
}

// SymbolTable maps case-insensitive names to symbols. Lookups fall back to
// the parent table, which is how actor scopes see inherited actions and
// global constants.
type SymbolTable struct {
	Parent  *SymbolTable
	symbols map[string]Symbol
}

// NewSymbolTable creates a table chained to parent (may be nil).
func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{Parent: parent, symbols: make(map[string]Symbol)}
}

// Add inserts sym. It returns false if the name is already taken in this
// table; parents are not consulted.
func (t *SymbolTable) Add(sym Symbol) bool {
	key := strings.ToLower(sym.SymbolName())
	if _, exists := t.symbols[key]; exists {
		return false
	}
	t.symbols[key] = sym
	return true
}

// Lookup finds name in this table or its ancestors.
func (t *SymbolTable) Lookup(name string) Symbol {
	key := strings.ToLower(name)
	for cur := t; cur != nil; cur = cur.Parent {
		if sym, ok := cur.symbols[key]; ok {
			return sym
		}
	}
	return nil
}

// LookupConstant finds a constant named name.
func (t *SymbolTable) LookupConstant(name string) (*ConstSymbol, bool) {
	sym, ok := t.Lookup(name).(*ConstSymbol)
	return sym, ok
}

// LookupAction finds an action named name.
func (t *SymbolTable) LookupAction(name string) (*ActionSymbol, bool) {
	sym, ok := t.Lookup(name).(*ActionSymbol)
	return sym, ok
}

// Len returns the number of symbols defined directly in t.
func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// Release drops every symbol.
func (t *SymbolTable) Release() {
	t.symbols = make(map[string]Symbol)
}
