package vm

import "fmt"

// Value is a typed register value passed between functions.
type Value struct {
	Type    RegType
	Int     int
	Float   float64
	String  string
	Pointer any
}

// IntValue wraps an integer.
func IntValue(v int) Value { return Value{Type: RegInt, Int: v} }

// FloatValue wraps a float.
func FloatValue(v float64) Value { return Value{Type: RegFloat, Float: v} }

// StringValue wraps a string.
func StringValue(v string) Value { return Value{Type: RegString, String: v} }

// PointerValue wraps an address. A nil pointer is a valid value.
func PointerValue(p any) Value { return Value{Type: RegPointer, Pointer: p} }

func (v Value) GoString() string {
	switch v.Type {
	case RegInt:
		return fmt.Sprintf("%d", v.Int)
	case RegFloat:
		return fmt.Sprintf("%g", v.Float)
	case RegString:
		return fmt.Sprintf("%q", v.String)
	default:
		if v.Pointer == nil {
			return "null"
		}
		return fmt.Sprintf("%v", v.Pointer)
	}
}
