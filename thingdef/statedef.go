package thingdef

import (
	"fmt"
	"strings"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
)

// StateError reports a state table that cannot be finished. The class
// keeps no states when it occurs.
type StateError struct {
	Class string
	Msg   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s in actor %s", e.Msg, e.Class)
}

type stateJump struct {
	pos    compiler.Position
	label  string
	offset int
	state  int    // state whose Next is patched, or -1 for an alias
	alias  string // label defined by the jump when state is -1
}

// StateDefinitions collects the states of one actor declaration. Jumps are
// recorded as written and resolved by FinishStates once the whole
// declaration has been read.
type StateDefinitions struct {
	reg *actor.Registry
	cls *actor.Class

	states    []actor.State
	labels    map[string]actor.StateRef
	pending   []string // labels waiting for their first state
	loopStart int
	jumps     []stateJump
	finished  bool
}

// NewStateDefinitions starts an empty state table for cls.
func NewStateDefinitions(reg *actor.Registry, cls *actor.Class) *StateDefinitions {
	return &StateDefinitions{
		reg:    reg,
		cls:    cls,
		labels: make(map[string]actor.StateRef),
	}
}

// Len returns the number of states added so far.
func (sd *StateDefinitions) Len() int {
	return len(sd.states)
}

// AddLabel names the next state.
func (sd *StateDefinitions) AddLabel(name string) {
	sd.pending = append(sd.pending, strings.ToLower(name))
}

// AddFrames appends one state per frame letter and returns the index of
// the first one. Each state falls through to the next.
func (sd *StateDefinitions) AddFrames(f *compiler.StateFrames) int {
	first := len(sd.states)
	for i := 0; i < len(f.Frames); i++ {
		idx := len(sd.states)
		sd.states = append(sd.states, actor.State{
			Sprite: f.Sprite,
			Frame:  f.Frames[i],
			Tics:   f.Tics,
			Bright: f.Bright,
			Fast:   f.Fast,
			Next:   actor.StateRef{Class: sd.cls.ID, Index: idx + 1},
		})
	}
	if len(sd.pending) > 0 {
		for _, name := range sd.pending {
			sd.labels[name] = actor.StateRef{Class: sd.cls.ID, Index: first}
		}
		sd.pending = sd.pending[:0]
		sd.loopStart = first
	}
	return first
}

// AddFlow applies a flow keyword to the most recent state. A goto right
// after a label makes the label an alias of the goto target.
func (sd *StateDefinitions) AddFlow(pos compiler.Position, flow *compiler.StateFlow) error {
	if len(sd.pending) > 0 {
		switch flow.Kind {
		case compiler.FlowGoto:
			for _, name := range sd.pending {
				sd.jumps = append(sd.jumps, stateJump{pos: pos, label: flow.Label, offset: flow.Offset, state: -1, alias: name})
			}
		case compiler.FlowStop, compiler.FlowFail:
			for _, name := range sd.pending {
				sd.labels[name] = actor.NullState
			}
		default:
			return fmt.Errorf("'%s' before any state", flow.Kind)
		}
		sd.pending = sd.pending[:0]
		return nil
	}

	last := len(sd.states) - 1
	if last < 0 {
		return fmt.Errorf("'%s' before any state", flow.Kind)
	}
	switch flow.Kind {
	case compiler.FlowStop, compiler.FlowFail:
		sd.states[last].Next = actor.NullState
	case compiler.FlowWait:
		sd.states[last].Next = actor.StateRef{Class: sd.cls.ID, Index: last}
	case compiler.FlowLoop:
		sd.states[last].Next = actor.StateRef{Class: sd.cls.ID, Index: sd.loopStart}
	case compiler.FlowGoto:
		sd.jumps = append(sd.jumps, stateJump{pos: pos, label: flow.Label, offset: flow.Offset, state: last})
	}
	return nil
}

// FinishStates terminates the table and resolves every goto and alias.
func (sd *StateDefinitions) FinishStates() error {
	for _, name := range sd.pending {
		sd.labels[name] = actor.NullState
	}
	sd.pending = nil

	end := actor.StateRef{Class: sd.cls.ID, Index: len(sd.states)}
	for i := range sd.states {
		if sd.states[i].Next == end {
			sd.states[i].Next = actor.NullState
		}
	}

	for _, j := range sd.jumps {
		ref, err := sd.resolveJump(j)
		if err != nil {
			return err
		}
		if j.state < 0 {
			sd.labels[j.alias] = ref
		} else {
			sd.states[j.state].Next = ref
		}
	}
	sd.finished = true
	return nil
}

func (sd *StateDefinitions) resolveJump(j stateJump) (actor.StateRef, error) {
	var (
		ref actor.StateRef
		ok  bool
	)
	if strings.Contains(j.label, "::") {
		ref, ok = lookupState(sd.reg, sd.cls, j.label)
	} else {
		ref, ok = sd.labels[strings.ToLower(j.label)]
		if !ok {
			ref, ok = sd.cls.FindState(j.label)
		}
	}
	if !ok {
		return actor.NullState, &StateError{Class: sd.cls.Name, Msg: fmt.Sprintf("Unknown state label '%s'", j.label)}
	}
	if j.offset == 0 {
		return ref, nil
	}
	if ref.IsNull() {
		return actor.NullState, &StateError{Class: sd.cls.Name, Msg: fmt.Sprintf("Offset from empty state '%s'", j.label)}
	}

	limit := len(sd.states)
	if ref.Class != sd.cls.ID {
		limit = len(sd.reg.Class(ref.Class).OwnedStates)
	}
	if ref.Index+j.offset >= limit {
		return actor.NullState, &StateError{Class: sd.cls.Name, Msg: fmt.Sprintf("Attempt to get invalid state %s+%d", j.label, j.offset)}
	}
	ref.Index += j.offset
	return ref, nil
}

// InstallStates moves the finished table into the class. Own labels are
// merged over the inherited ones.
func (sd *StateDefinitions) InstallStates() {
	if !sd.finished {
		panic("InstallStates before FinishStates")
	}
	sd.cls.OwnedStates = sd.states
	if sd.cls.StateLabels == nil {
		sd.cls.StateLabels = make(map[string]actor.StateRef, len(sd.labels))
	}
	for name, ref := range sd.labels {
		sd.cls.StateLabels[name] = ref
	}
}

// lookupState finds label as seen from cls. "Super::Label" starts at the
// parent and "Class::Label" at the named ancestor.
func lookupState(reg *actor.Registry, cls *actor.Class, label string) (actor.StateRef, bool) {
	qual, rest, qualified := strings.Cut(label, "::")
	if !qualified {
		return cls.FindState(label)
	}
	var target *actor.Class
	if strings.EqualFold(qual, "super") {
		target = reg.Parent(cls)
	} else if t := reg.FindClass(qual); t != nil && reg.IsDescendantOf(cls, t) {
		target = t
	}
	if target == nil {
		return actor.NullState, false
	}
	return target.FindState(rest)
}
