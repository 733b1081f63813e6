package actor

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Class: one node of the actor type universe
// ---------------------------------------------------------------------------

// ClassID indexes a class in its Registry. Links between classes (parent,
// replacement) are ClassIDs rather than pointers so that mutually replacing
// classes never own each other.
type ClassID int

// NoClass is the zero link.
const NoClass ClassID = -1

// SizeUndefined marks a class that has only been referenced by name.
const SizeUndefined = -1

// Class describes one actor type.
type Class struct {
	ID     ClassID
	Name   string
	Parent ClassID

	// Native is set for classes registered by the engine. NativeInit fills
	// the engine-side defaults when a declaration binds the shell.
	Native     bool
	NativeInit func(*Defaults)

	Size     int
	Defaults *Defaults

	Replacee    ClassID
	Replacement ClassID
	DoomEdNum   int

	DamageFactors map[string]float64
	PainChances   map[string]int

	ForbiddenToPlayerClass  []string
	RestrictedToPlayerClass []string
	VisibleToPlayerClass    []string

	OwnedStates []State
	StateLabels map[string]StateRef
	DropItems   []DropItem

	// detached classes are kept for error recovery only and cannot be found
	// by name.
	detached bool
}

// IsDefined reports whether the class has been declared, not merely
// referenced.
func (c *Class) IsDefined() bool {
	return c.Size != SizeUndefined
}

// Detached reports whether the class was created to recover from a
// duplicate declaration.
func (c *Class) Detached() bool {
	return c.detached
}

// FindState looks up a state label. Labels are case-insensitive; dotted
// sublabels such as "Death.Fire" are matched whole.
func (c *Class) FindState(label string) (StateRef, bool) {
	ref, ok := c.StateLabels[strings.ToLower(label)]
	return ref, ok
}

// State returns the state owned by c at index.
func (c *Class) State(index int) (*State, bool) {
	if index < 0 || index >= len(c.OwnedStates) {
		return nil, false
	}
	return &c.OwnedStates[index], true
}

func (c *Class) String() string {
	return c.Name
}

// ---------------------------------------------------------------------------
// Registry: the class universe
// ---------------------------------------------------------------------------

// Registry owns every class. Classes are kept in declaration order.
type Registry struct {
	classes []*Class
	byName  map[string]ClassID
	base    ClassID
}

// NewRegistry creates a registry holding the standard engine classes.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]ClassID),
		base:   NoClass,
	}
	registerStandardNatives(r)
	return r
}

// RegisterNative adds an engine class shell. The shell has no defaults until
// a declaration binds it. parent may be empty for a root class.
func (r *Registry) RegisterNative(name, parent string, size int, init func(*Defaults)) *Class {
	parentID := NoClass
	if parent != "" {
		p := r.FindClass(parent)
		if p == nil {
			panic(fmt.Sprintf("native class %s registered before its parent %s", name, parent))
		}
		parentID = p.ID
	}
	c := r.add(name, parentID, size)
	c.Native = true
	c.NativeInit = init
	if strings.EqualFold(name, BaseClassName) {
		r.base = c.ID
	}
	return c
}

func (r *Registry) add(name string, parent ClassID, size int) *Class {
	c := &Class{
		ID:          ClassID(len(r.classes)),
		Name:        name,
		Parent:      parent,
		Size:        size,
		Replacee:    NoClass,
		Replacement: NoClass,
		DoomEdNum:   -1,
	}
	r.classes = append(r.classes, c)
	r.byName[strings.ToLower(name)] = c.ID
	return c
}

// Base returns the universal actor base class.
func (r *Registry) Base() *Class {
	return r.classes[r.base]
}

// Class returns the class with the given id, or nil.
func (r *Registry) Class(id ClassID) *Class {
	if id < 0 || int(id) >= len(r.classes) {
		return nil
	}
	return r.classes[id]
}

// Parent returns c's parent class, or nil for a root.
func (r *Registry) Parent(c *Class) *Class {
	return r.Class(c.Parent)
}

// FindClass returns the class registered under name (case-insensitive).
func (r *Registry) FindClass(name string) *Class {
	if id, ok := r.byName[strings.ToLower(name)]; ok {
		return r.classes[id]
	}
	return nil
}

// FindActor returns the class registered under name if it is an actor.
func (r *Registry) FindActor(name string) *Class {
	c := r.FindClass(name)
	if c == nil || !r.IsDescendantOf(c, r.Base()) {
		return nil
	}
	return c
}

// FindClassTentative returns the named class, creating an undefined
// placeholder derived from the base when it does not exist yet.
func (r *Registry) FindClassTentative(name string) *Class {
	if c := r.FindClass(name); c != nil {
		return c
	}
	return r.add(name, r.base, SizeUndefined)
}

// CreateDerivedClass creates a class named name under parent. A placeholder
// of the same name is filled in place so earlier references stay valid. If a
// defined class already owns the name the new class is detached and the
// second return value is false.
func (r *Registry) CreateDerivedClass(parent *Class, name string, size int) (*Class, bool) {
	if existing := r.FindClass(name); existing != nil {
		if existing.IsDefined() {
			c := &Class{
				ID:          ClassID(len(r.classes)),
				Name:        name,
				Replacee:    NoClass,
				Replacement: NoClass,
				DoomEdNum:   -1,
				detached:    true,
			}
			r.classes = append(r.classes, c)
			r.derive(c, parent, size)
			return c, false
		}
		r.derive(existing, parent, size)
		return existing, true
	}
	c := r.add(name, NoClass, size)
	r.derive(c, parent, size)
	return c, true
}

func (r *Registry) derive(c, parent *Class, size int) {
	c.Parent = parent.ID
	c.Size = size
	if parent.Defaults != nil {
		c.Defaults = parent.Defaults.Clone()
	} else {
		c.Defaults = &Defaults{}
	}
	if len(parent.StateLabels) > 0 {
		c.StateLabels = make(map[string]StateRef, len(parent.StateLabels))
		for k, v := range parent.StateLabels {
			c.StateLabels[k] = v
		}
	}
	c.DropItems = parent.DropItems
}

// InitializeNativeDefaults gives a native shell its engine defaults,
// starting from its parent's.
func (r *Registry) InitializeNativeDefaults(c *Class) {
	d := &Defaults{}
	if p := r.Parent(c); p != nil && p.Defaults != nil {
		d = p.Defaults.Clone()
		if len(p.StateLabels) > 0 && c.StateLabels == nil {
			c.StateLabels = make(map[string]StateRef, len(p.StateLabels))
			for k, v := range p.StateLabels {
				c.StateLabels[k] = v
			}
		}
	}
	if c.NativeInit != nil {
		c.NativeInit(d)
	}
	c.Defaults = d
}

// NativeClass returns the closest native class in c's chain, c included.
func (r *Registry) NativeClass(c *Class) *Class {
	for cur := c; cur != nil; cur = r.Parent(cur) {
		if cur.Native {
			return cur
		}
	}
	return nil
}

// IsDescendantOf reports whether c is other or inherits from it.
func (r *Registry) IsDescendantOf(c, other *Class) bool {
	if other == nil {
		return false
	}
	for cur := c; cur != nil; cur = r.Parent(cur) {
		if cur.ID == other.ID {
			return true
		}
	}
	return false
}

// Ancestors returns c's parent chain, nearest first.
func (r *Registry) Ancestors(c *Class) []*Class {
	var out []*Class
	for p := r.Parent(c); p != nil; p = r.Parent(p) {
		out = append(out, p)
	}
	return out
}

// All returns every class in declaration order.
func (r *Registry) All() []*Class {
	out := make([]*Class, len(r.classes))
	copy(out, r.classes)
	return out
}

// Actors returns every actor class (descendants of the base) in declaration
// order, including undefined placeholders.
func (r *Registry) Actors() []*Class {
	base := r.Base()
	var out []*Class
	for _, c := range r.classes {
		if r.IsDescendantOf(c, base) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of classes.
func (r *Registry) Len() int {
	return len(r.classes)
}
