package actor

import (
	"strings"

	"github.com/chazu/thingdef/vm"
)

// BaseClassName is the universal actor base.
const BaseClassName = "Actor"

// DamageExpr is a damage formula attached to a defaults record. Children
// that inherit a formula share the same DamageExpr, so the compiled function
// is cached on the expression and built once.
type DamageExpr interface {
	Function() *vm.ScriptFunction
	SetFunction(*vm.ScriptFunction)
}

// Defaults is the per-class default instance. Children start from a copy of
// their parent's record.
type Defaults struct {
	Health       int
	Speed        float64
	Radius       float64
	Height       float64
	Mass         int
	Gravity      float64
	ReactionTime int
	PainChance   int
	Flags        Flags

	Obituary string
	Tag      string
	SpawnID  int

	// Inventory
	Amount    int
	MaxAmount int

	// Damage is the compiled damage function. A nil Damage with a nil
	// DamageExpr means the actor deals no impact damage.
	Damage     *vm.ScriptFunction
	DamageExpr DamageExpr
}

// Clone returns a copy of d. The damage expression is shared, not copied.
func (d *Defaults) Clone() *Defaults {
	cp := *d
	return &cp
}

// DropItem is one entry of an actor's drop list.
type DropItem struct {
	Name        string
	Probability int
	Amount      int
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

// Flags is the actor flag word.
type Flags uint64

const (
	FlagSpecial Flags = 1 << iota
	FlagSolid
	FlagShootable
	FlagNoSector
	FlagNoBlockmap
	FlagNoGravity
	FlagDropOff
	FlagFloat
	FlagMissile
	FlagCountKill
	FlagCountItem
	FlagNoTeleport
	FlagIsMonster
	FlagDropped
	FlagNoClip
	FlagFloorClip
	FlagActivateImpact
	FlagCanPushWalls
	FlagActivatePCross
	FlagNoDamageThrust
	FlagCanPass
	FlagBright
)

var flagNames = map[string]Flags{
	"special":        FlagSpecial,
	"solid":          FlagSolid,
	"shootable":      FlagShootable,
	"nosector":       FlagNoSector,
	"noblockmap":     FlagNoBlockmap,
	"nogravity":      FlagNoGravity,
	"dropoff":        FlagDropOff,
	"float":          FlagFloat,
	"missile":        FlagMissile,
	"countkill":      FlagCountKill,
	"countitem":      FlagCountItem,
	"noteleport":     FlagNoTeleport,
	"ismonster":      FlagIsMonster,
	"dropped":        FlagDropped,
	"noclip":         FlagNoClip,
	"floorclip":      FlagFloorClip,
	"activateimpact": FlagActivateImpact,
	"canpushwalls":   FlagCanPushWalls,
	"activatepcross": FlagActivatePCross,
	"nodamagethrust": FlagNoDamageThrust,
	"canpass":        FlagCanPass,
	"bright":         FlagBright,
}

// FlagByName looks up a flag. A leading "actor." qualifier is accepted.
func FlagByName(name string) (Flags, bool) {
	key := strings.ToLower(name)
	key = strings.TrimPrefix(key, "actor.")
	f, ok := flagNames[key]
	return f, ok
}

// Combos set several flags and properties at once.
const (
	MonsterFlags    = FlagShootable | FlagCountKill | FlagSolid | FlagCanPushWalls | FlagCanPass | FlagActivateImpact | FlagIsMonster
	ProjectileFlags = FlagNoBlockmap | FlagNoGravity | FlagDropOff | FlagMissile | FlagActivateImpact | FlagActivatePCross | FlagNoTeleport
)

// Has reports whether all bits of f are set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}
