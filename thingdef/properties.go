package thingdef

import (
	"strings"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
)

// propertyFunc applies one property to the actor being declared.
type propertyFunc func(c *Context, b *baggage, p *compiler.PropertyItem)

// propertyDef is an entry of the property table. Class restricts the
// property to descendants of that class.
type propertyDef struct {
	class string
	fn    propertyFunc
}

var properties map[string]propertyDef

func init() {
	properties = map[string]propertyDef{
		"health":       {fn: intProperty(func(d *actor.Defaults, v int) { d.Health = v })},
		"mass":         {fn: intProperty(func(d *actor.Defaults, v int) { d.Mass = v })},
		"reactiontime": {fn: intProperty(func(d *actor.Defaults, v int) { d.ReactionTime = v })},
		"spawnid":      {fn: intProperty(func(d *actor.Defaults, v int) { d.SpawnID = v })},
		"speed":        {fn: floatProperty(func(d *actor.Defaults, v float64) { d.Speed = v })},
		"radius":       {fn: floatProperty(func(d *actor.Defaults, v float64) { d.Radius = v })},
		"height":       {fn: floatProperty(func(d *actor.Defaults, v float64) { d.Height = v })},
		"gravity":      {fn: floatProperty(func(d *actor.Defaults, v float64) { d.Gravity = v })},
		"obituary":     {fn: stringProperty(func(d *actor.Defaults, v string) { d.Obituary = v })},
		"tag":          {fn: stringProperty(func(d *actor.Defaults, v string) { d.Tag = v })},
		"painchance":   {fn: painChanceProperty},
		"damagefactor": {fn: damageFactorProperty},
		"damage":       {fn: damageProperty},
		"dropitem":     {fn: dropItemProperty},
		"monster":      {fn: comboProperty(actor.MonsterFlags)},
		"projectile":   {fn: comboProperty(actor.ProjectileFlags)},

		"visibletoplayerclass": {fn: classListProperty(func(cls *actor.Class, v []string) { cls.VisibleToPlayerClass = v })},

		"inventory.amount":       {class: "Inventory", fn: intProperty(func(d *actor.Defaults, v int) { d.Amount = v })},
		"inventory.maxamount":    {class: "Inventory", fn: intProperty(func(d *actor.Defaults, v int) { d.MaxAmount = v })},
		"inventory.forbiddento":  {class: "Inventory", fn: classListProperty(func(cls *actor.Class, v []string) { cls.ForbiddenToPlayerClass = v })},
		"inventory.restrictedto": {class: "Inventory", fn: classListProperty(func(cls *actor.Class, v []string) { cls.RestrictedToPlayerClass = v })},
	}
}

func (c *Context) setProperty(b *baggage, p *compiler.PropertyItem) {
	def, ok := properties[strings.ToLower(p.Name)]
	if !ok {
		c.Diag.Errorf(p.Span().Start, "\"%s\" is an unknown actor property", p.Name)
		return
	}
	if def.class != "" && !c.Registry.IsDescendantOf(b.cls, c.Registry.FindClass(def.class)) {
		c.Diag.Errorf(p.Span().Start, "\"%s\" requires an actor of type \"%s\"", p.Name, def.class)
		return
	}
	def.fn(c, b, p)
}

// argCount checks that p has between lo and hi arguments.
func (c *Context) argCount(p *compiler.PropertyItem, lo, hi int) bool {
	if n := len(p.Args); n < lo || n > hi {
		c.Diag.Errorf(p.Span().Start, "Wrong number of arguments for \"%s\"", p.Name)
		return false
	}
	return true
}

// constArg resolves argument i of p to a constant of type t.
func (c *Context) constArg(b *baggage, p *compiler.PropertyItem, i int, t compiler.ValueType) (*compiler.Constant, bool) {
	x := c.resolver(b.cls).ResolveAs(p.Args[i], t)
	if x == nil {
		return nil, false
	}
	k, ok := x.(*compiler.Constant)
	if !ok {
		c.Diag.Errorf(p.Args[i].Span().Start, "Constant value expected for \"%s\"", p.Name)
		return nil, false
	}
	return k, true
}

func intProperty(set func(*actor.Defaults, int)) propertyFunc {
	return func(c *Context, b *baggage, p *compiler.PropertyItem) {
		if !c.argCount(p, 1, 1) {
			return
		}
		if k, ok := c.constArg(b, p, 0, compiler.TypeInt); ok {
			set(b.cls.Defaults, k.Value.Int)
		}
	}
}

func floatProperty(set func(*actor.Defaults, float64)) propertyFunc {
	return func(c *Context, b *baggage, p *compiler.PropertyItem) {
		if !c.argCount(p, 1, 1) {
			return
		}
		if k, ok := c.constArg(b, p, 0, compiler.TypeFloat); ok {
			set(b.cls.Defaults, k.Value.Float)
		}
	}
}

func stringProperty(set func(*actor.Defaults, string)) propertyFunc {
	return func(c *Context, b *baggage, p *compiler.PropertyItem) {
		if !c.argCount(p, 1, 1) {
			return
		}
		if k, ok := c.constArg(b, p, 0, compiler.TypeString); ok {
			set(b.cls.Defaults, k.Value.String)
		}
	}
}

func comboProperty(flags actor.Flags) propertyFunc {
	return func(c *Context, b *baggage, p *compiler.PropertyItem) {
		if c.argCount(p, 0, 0) {
			b.cls.Defaults.Flags |= flags
		}
	}
}

// classListProperty replaces a player-class list. The inherited slice is
// shared with the parent, so a new one is always built.
func classListProperty(set func(*actor.Class, []string)) propertyFunc {
	return func(c *Context, b *baggage, p *compiler.PropertyItem) {
		if !c.argCount(p, 1, len(p.Args)) {
			return
		}
		list := make([]string, 0, len(p.Args))
		for i := range p.Args {
			k, ok := c.constArg(b, p, i, compiler.TypeString)
			if !ok {
				return
			}
			list = append(list, k.Value.String)
		}
		set(b.cls, list)
	}
}

// painChanceProperty handles "PainChance value" and "PainChance type, value".
func painChanceProperty(c *Context, b *baggage, p *compiler.PropertyItem) {
	if !c.argCount(p, 1, 2) {
		return
	}
	if len(p.Args) == 1 {
		if k, ok := c.constArg(b, p, 0, compiler.TypeInt); ok {
			b.cls.Defaults.PainChance = k.Value.Int
		}
		return
	}
	typ, ok := c.constArg(b, p, 0, compiler.TypeName)
	if !ok {
		return
	}
	k, ok := c.constArg(b, p, 1, compiler.TypeInt)
	if !ok {
		return
	}
	if b.cls.PainChances == nil {
		b.cls.PainChances = make(map[string]int)
	}
	b.cls.PainChances[strings.ToLower(typ.Value.String)] = k.Value.Int
}

// damageFactorProperty handles "DamageFactor factor" and
// "DamageFactor type, factor". The one-argument form sets the "normal"
// factor.
func damageFactorProperty(c *Context, b *baggage, p *compiler.PropertyItem) {
	if !c.argCount(p, 1, 2) {
		return
	}
	typ := "normal"
	vi := 0
	if len(p.Args) == 2 {
		k, ok := c.constArg(b, p, 0, compiler.TypeName)
		if !ok {
			return
		}
		typ = strings.ToLower(k.Value.String)
		vi = 1
	}
	k, ok := c.constArg(b, p, vi, compiler.TypeFloat)
	if !ok {
		return
	}
	if b.cls.DamageFactors == nil {
		b.cls.DamageFactors = make(map[string]float64)
	}
	b.cls.DamageFactors[typ] = k.Value.Float
}

// damageProperty stores a literal damage as a finished function and a
// parenthesized formula as an expression compiled by FinalizeAll.
func damageProperty(c *Context, b *baggage, p *compiler.PropertyItem) {
	if !c.argCount(p, 1, 1) {
		return
	}
	d := b.cls.Defaults
	if paren, ok := p.Args[0].(*compiler.ParenExpr); ok {
		d.DamageExpr = compiler.NewDamageValue(paren, true)
		d.Damage = nil
		return
	}
	k, ok := c.constArg(b, p, 0, compiler.TypeInt)
	if !ok {
		return
	}
	d.DamageExpr = nil
	d.Damage = compiler.CreateDamageFunction(k.Value.Int)
}

// dropItemProperty handles: DropItem "Class" [probability [amount]]. The
// first DropItem of a declaration replaces the inherited list.
func dropItemProperty(c *Context, b *baggage, p *compiler.PropertyItem) {
	if !c.argCount(p, 1, 3) {
		return
	}
	name, ok := c.constArg(b, p, 0, compiler.TypeName)
	if !ok {
		return
	}
	item := actor.DropItem{Name: name.Value.String, Probability: 255, Amount: -1}
	if len(p.Args) > 1 {
		k, ok := c.constArg(b, p, 1, compiler.TypeInt)
		if !ok {
			return
		}
		item.Probability = k.Value.Int
	}
	if len(p.Args) > 2 {
		k, ok := c.constArg(b, p, 2, compiler.TypeInt)
		if !ok {
			return
		}
		item.Amount = k.Value.Int
	}
	if !b.dropItemSet {
		b.dropItems = nil
		b.dropItemSet = true
	}
	if !strings.EqualFold(item.Name, "None") {
		c.noteReference(c.Registry.FindClassTentative(item.Name), p.Args[0].Span().Start)
	}
	b.dropItems = append(b.dropItems, item)
}
