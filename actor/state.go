package actor

import (
	"fmt"

	"github.com/chazu/thingdef/vm"
)

// StateRef addresses one state: the owning class and an index into its
// OwnedStates. States are never referenced through independent handles.
type StateRef struct {
	Class ClassID
	Index int
}

// NullState is the "stop" target.
var NullState = StateRef{Class: NoClass, Index: -1}

// IsNull reports whether r is the stop target.
func (r StateRef) IsNull() bool {
	return r.Class == NoClass
}

func (r StateRef) String() string {
	if r.IsNull() {
		return "null"
	}
	return fmt.Sprintf("state(%d:%d)", r.Class, r.Index)
}

// State is one timed step of an actor's behavior.
type State struct {
	Sprite string
	Frame  byte
	Tics   int
	Bright bool
	Fast   bool
	Next   StateRef

	// Action is nil when the state calls nothing, a NativeFunction when the
	// call takes no arguments, or a generated ScriptFunction that forwards
	// the arguments.
	Action vm.Function
}

// SetAction installs the state's action.
func (s *State) SetAction(fn vm.Function) {
	s.Action = fn
}
