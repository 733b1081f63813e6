package thingdef

import (
	"sort"
	"strings"

	"github.com/chazu/thingdef/vm"
)

// ActionTable holds the engine's native action functions. An "action
// native" declaration can only name a function registered here.
type ActionTable struct {
	funcs map[string]*vm.NativeFunction
}

// NewActionTable creates an empty table.
func NewActionTable() *ActionTable {
	return &ActionTable{funcs: make(map[string]*vm.NativeFunction)}
}

// Register adds or replaces the function called name. impl may be nil when
// the implementation is bound by the runtime.
func (t *ActionTable) Register(name string, impl vm.NativeFunc) *vm.NativeFunction {
	fn := vm.NewNativeFunction(name, impl)
	t.funcs[strings.ToLower(name)] = fn
	return fn
}

// Find returns the function called name (case-insensitive), or nil.
func (t *ActionTable) Find(name string) *vm.NativeFunction {
	return t.funcs[strings.ToLower(name)]
}

// Names returns the registered names in sorted order.
func (t *ActionTable) Names() []string {
	names := make([]string, 0, len(t.funcs))
	for _, fn := range t.funcs {
		names = append(names, fn.Name())
	}
	sort.Strings(names)
	return names
}

var standardActionNames = []string{
	"A_Look",
	"A_Chase",
	"A_FaceTarget",
	"A_Pain",
	"A_Scream",
	"A_XScream",
	"A_NoBlocking",
	"A_Fall",
	"A_Stop",
	"A_Explode",
	"A_CustomMissile",
	"A_CustomMeleeAttack",
	"A_SpawnItem",
	"A_PlaySound",
	"A_Jump",
	"A_GiveInventory",
	"A_TakeInventory",
	"A_JumpIfInventory",
	"A_SetTranslucent",
	"A_Print",
	"A_WeaponReady",
	"A_Lower",
	"A_Raise",
	"A_ReFire",
	"A_FireBullets",
	"A_Light",
}

// StandardActions returns a table with every action the prelude declares.
// Implementations are left unbound.
func StandardActions() *ActionTable {
	t := NewActionTable()
	for _, name := range standardActionNames {
		t.Register(name, nil)
	}
	return t
}
