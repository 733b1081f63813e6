package actor

// Sizes of the engine-side instance layouts.
const (
	sizeObject    = 16
	sizeThinker   = 48
	sizeActor     = 512
	sizeInventory = 600
	sizeWeapon    = 720
	sizePawn      = 800
)

// registerStandardNatives installs the engine classes every registry starts
// with. Only Object and Thinker arrive with defaults; actor shells are bound
// by "native" declarations.
func registerStandardNatives(r *Registry) {
	obj := r.RegisterNative("Object", "", sizeObject, nil)
	obj.Defaults = &Defaults{}
	th := r.RegisterNative("Thinker", "Object", sizeThinker, nil)
	th.Defaults = &Defaults{}

	r.RegisterNative(BaseClassName, "Thinker", sizeActor, func(d *Defaults) {
		d.Health = 1000
		d.Radius = 20
		d.Height = 16
		d.Mass = 100
		d.Gravity = 1
		d.ReactionTime = 8
	})
	r.RegisterNative("Inventory", BaseClassName, sizeInventory, func(d *Defaults) {
		d.Amount = 1
		d.MaxAmount = 1
	})
	r.RegisterNative("CustomInventory", "Inventory", sizeInventory, nil)
	r.RegisterNative("Ammo", "Inventory", sizeInventory, nil)
	r.RegisterNative("Health", "Inventory", sizeInventory, nil)
	r.RegisterNative("Key", "Inventory", sizeInventory, nil)
	r.RegisterNative("PuzzleItem", "Inventory", sizeInventory, nil)
	r.RegisterNative("Weapon", "Inventory", sizeWeapon, nil)
	r.RegisterNative("PlayerPawn", BaseClassName, sizePawn, func(d *Defaults) {
		d.Health = 100
		d.Radius = 16
		d.Height = 56
		d.Mass = 100
	})
}
