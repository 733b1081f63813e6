package compiler

import (
	"strings"

	"github.com/chazu/thingdef/vm"
)

// ValueType is the static type of an expression or action parameter.
type ValueType int

const (
	TypeVoid ValueType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeName
	TypeSound
	TypeClass
	TypeState
)

var valueTypeNames = [...]string{"void", "int", "float", "bool", "string", "name", "sound", "class", "state"}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "invalid"
}

// RegType returns the register file that holds values of type t.
func (t ValueType) RegType() vm.RegType {
	switch t {
	case TypeFloat:
		return vm.RegFloat
	case TypeString, TypeName, TypeSound:
		return vm.RegString
	case TypeClass, TypeState:
		return vm.RegPointer
	default:
		return vm.RegInt
	}
}

// IsNumeric reports whether t takes part in arithmetic.
func (t ValueType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat || t == TypeBool
}

// IsStringLike reports whether t is carried as a string.
func (t ValueType) IsStringLike() bool {
	return t == TypeString || t == TypeName || t == TypeSound
}

// ParseValueType maps a DECORATE parameter type name to a ValueType.
// "color" is accepted as an int, "angle" and "fixed" as floats.
func ParseValueType(name string) (ValueType, bool) {
	switch strings.ToLower(name) {
	case "int", "color":
		return TypeInt, true
	case "float", "angle", "fixed":
		return TypeFloat, true
	case "bool":
		return TypeBool, true
	case "string":
		return TypeString, true
	case "name":
		return TypeName, true
	case "sound":
		return TypeSound, true
	case "class":
		return TypeClass, true
	case "state":
		return TypeState, true
	}
	return TypeVoid, false
}

// TypeOf returns the type of a resolved expression.
func TypeOf(e Expr) ValueType {
	switch n := e.(type) {
	case *Constant:
		return n.Type
	case *Cast:
		return n.To
	case *UnaryExpr:
		return n.Type
	case *BinaryExpr:
		return n.Type
	case *RandomCall:
		return TypeInt
	case *ClassRef:
		return TypeClass
	case *StateLabelRef, *StateIndexRef:
		return TypeState
	case *IntLiteral:
		return TypeInt
	case *FloatLiteral:
		return TypeFloat
	case *StringLiteral:
		return TypeString
	case *NameLiteral:
		return TypeName
	}
	return TypeVoid
}
