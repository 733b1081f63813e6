package thingdef

import (
	"maps"
	"strings"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/compiler"
)

// DeclareClass creates the class for an actor declaration, or binds the
// engine shell of the same name when native is set.
//
// Problems with the parent or the native binding are reported and replaced
// by a safe fallback so the rest of the declaration can still be parsed: a
// bad parent becomes Actor, a failed native binding creates an ordinary
// class instead.
func (c *Context) DeclareClass(pos compiler.Position, typeName, parentName string, native bool) *actor.Class {
	reg := c.Registry
	base := reg.Base()
	parent := base

	if parentName != "" {
		p := reg.FindClass(parentName)
		for cur := p; cur != nil; cur = reg.Parent(cur) {
			if strings.EqualFold(cur.Name, typeName) {
				c.Diag.Errorf(pos, "'%s' inherits from a class with the same name", typeName)
				p = base
				break
			}
		}
		if p != nil && !p.IsDefined() {
			p = nil
		}

		switch {
		case p == nil:
			c.Diag.Errorf(pos, "Parent type '%s' not found in %s", parentName, typeName)
		case !reg.IsDescendantOf(p, base):
			c.Diag.Errorf(pos, "Parent type '%s' is not an actor in %s", parentName, typeName)
		default:
			parent = p
		}
	}

	var cls *actor.Class
	if native {
		cls = c.bindNative(pos, typeName, parentName, &parent)
	}
	if cls == nil {
		created, ok := reg.CreateDerivedClass(parent, typeName, parent.Size)
		if !ok && !native {
			c.Diag.Errorf(pos, "Actor '%s' is already defined", typeName)
		}
		cls = created
	}

	cls.ForbiddenToPlayerClass = parent.ForbiddenToPlayerClass
	cls.RestrictedToPlayerClass = parent.RestrictedToPlayerClass
	cls.VisibleToPlayerClass = parent.VisibleToPlayerClass
	if len(parent.DamageFactors) > 0 {
		cls.DamageFactors = maps.Clone(parent.DamageFactors)
	}
	if len(parent.PainChances) > 0 {
		cls.PainChances = maps.Clone(parent.PainChances)
	}
	cls.Replacee = actor.NoClass
	cls.Replacement = actor.NoClass
	cls.DoomEdNum = -1
	c.classPos[cls.ID] = pos
	return cls
}

// bindNative gives an engine shell its defaults. It returns nil after
// reporting why the shell cannot be bound.
func (c *Context) bindNative(pos compiler.Position, typeName, parentName string, parent **actor.Class) *actor.Class {
	reg := c.Registry
	shell := reg.FindActor(typeName)
	switch {
	case shell == nil || !shell.Native:
		c.Diag.Errorf(pos, "Unknown native actor '%s'", typeName)
		return nil

	case shell != reg.Base() && reg.NativeClass(reg.Parent(shell)) != reg.NativeClass(*parent):
		c.Diag.Errorf(pos, "Native class '%s' does not inherit from '%s'", typeName, parentName)
		*parent = reg.Base()
		return nil

	case shell.Defaults != nil:
		c.Diag.Errorf(pos, "Redefinition of internal class '%s'", typeName)
		return nil
	}
	reg.InitializeNativeDefaults(shell)
	log.Debugf("bound native class %s", shell.Name)
	return shell
}

// SetReplacement makes cls replace the actor named replaceName. An unknown
// name is reported as a warning and leaves both classes unlinked.
func (c *Context) SetReplacement(pos compiler.Position, cls *actor.Class, replaceName string) {
	if replaceName == "" {
		return
	}
	replacee := c.Registry.FindActor(replaceName)
	if replacee == nil {
		c.Diag.Warningf(pos, "Replaced type '%s' not found for %s", replaceName, cls.Name)
		return
	}
	replacee.Replacement = cls.ID
	cls.Replacee = replacee.ID
}
