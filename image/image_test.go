package image

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/thingdef/compiler"
	"github.com/chazu/thingdef/thingdef"
)

const testSource = `
actor Barrel
{
	Health 20
	DropItem "Clip", 128
	States
	{
	Spawn:
		BAR1 AB 6
		Loop
	Death:
		BEXP ABC 4 A_Explode(64, 32)
		Stop
	}
}
actor Crate
{
	States
	{
	Death:
		CRAT A 4 A_Explode(64, 32)
		CRAT B 4 A_SpawnItem("Clip")
		Stop
	}
}
actor Clip : Ammo { Inventory.Amount 10 }
actor Ball { Damage (random(1, 8)) }
actor BigBall : Ball {}
actor FastBarrel : Barrel replaces Barrel {}
`

func build(t *testing.T) (*thingdef.Context, *Image) {
	t.Helper()
	c := thingdef.NewContext()
	if err := c.RunCompilation([]compiler.Source{{Name: "test", Text: testSource}}); err != nil {
		t.Fatalf("RunCompilation: %v\n%v", err, c.Diag.Records())
	}
	img, err := Build(c.Registry, c.RunID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c, img
}

func TestBuildClasses(t *testing.T) {
	c, img := build(t)
	if img.Version != Version || img.RunID != c.RunID {
		t.Errorf("header = %d/%s", img.Version, img.RunID)
	}

	barrel := img.FindClass("Barrel")
	if barrel == nil {
		t.Fatal("Barrel missing")
	}
	if barrel.Parent != "Actor" || barrel.Defaults.Health != 20 {
		t.Errorf("Barrel = parent %q health %d", barrel.Parent, barrel.Defaults.Health)
	}
	if barrel.Replacement != "FastBarrel" {
		t.Errorf("replacement = %q", barrel.Replacement)
	}
	if len(barrel.States) != 5 {
		t.Fatalf("Barrel states = %d, want 5", len(barrel.States))
	}
	if next := barrel.States[1].Next; next.Class != "Barrel" || next.Index != 0 {
		t.Errorf("loop next = %+v", next)
	}
	if !barrel.States[4].Next.IsNull() {
		t.Errorf("stop next = %+v", barrel.States[4].Next)
	}
	if death := barrel.Labels["death"]; death.Index != 2 {
		t.Errorf("death label = %+v", death)
	}
	if len(barrel.DropItems) != 1 || barrel.DropItems[0].Probability != 128 || barrel.DropItems[0].Amount != -1 {
		t.Errorf("drop items = %+v", barrel.DropItems)
	}

	if actor := img.FindClass("Actor"); actor == nil || !actor.Native {
		t.Error("native base missing")
	}
}

func TestBuildDeduplicatesFunctions(t *testing.T) {
	_, img := build(t)
	barrel := img.FindClass("Barrel")
	crate := img.FindClass("Crate")

	bAction := barrel.States[2].Action
	cAction := crate.States[0].Action
	if bAction == nil || cAction == nil {
		t.Fatal("death states have no action")
	}
	if bAction.Hash != cAction.Hash {
		t.Error("identical thunks got different hashes")
	}

	count := 0
	for _, fn := range img.Functions {
		if fn.Hash == bAction.Hash {
			count++
		}
	}
	if count != 1 {
		t.Errorf("thunk stored %d times, want once", count)
	}

	fn := img.Function(bAction.Hash)
	if fn == nil || fn.NumArgs != 3 || fn.MaxParam != 6 {
		t.Fatalf("thunk = %+v", fn)
	}
	last := fn.KonstA[len(fn.KonstA)-1]
	if last.Kind != AddrFunction || last.Func.Native != "A_Explode" {
		t.Errorf("tail call target = %+v", last)
	}

	ball := img.FindClass("Ball").Defaults.Damage
	big := img.FindClass("BigBall").Defaults.Damage
	if ball == nil || big == nil || ball.Hash != big.Hash {
		t.Error("shared damage function not shared in the image")
	}
}

func TestBuildClassConstant(t *testing.T) {
	_, img := build(t)
	spawn := img.FindClass("Crate").States[1].Action
	fn := img.Function(spawn.Hash)
	if fn == nil {
		t.Fatal("A_SpawnItem thunk missing")
	}
	found := false
	for _, a := range fn.KonstA {
		if a.Kind == AddrClass && a.Class == "Clip" {
			found = true
		}
	}
	if !found {
		t.Errorf("class constant missing: %+v", fn.KonstA)
	}
}

func TestZeroArgumentActionIsNative(t *testing.T) {
	c := thingdef.NewContext()
	err := c.RunCompilation([]compiler.Source{{Name: "test", Text: `actor Imp { States { Spawn: TROO A 10 A_Look
		Loop } }`}})
	if err != nil {
		t.Fatalf("RunCompilation: %v", err)
	}
	img, err := Build(c.Registry, c.RunID)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if a := img.FindClass("Imp").States[0].Action; a == nil || a.Native != "A_Look" {
		t.Errorf("action = %+v", a)
	}
}

func TestWriteReadFile(t *testing.T) {
	_, img := build(t)
	path := filepath.Join(t.TempDir(), "actors.img")
	if err := WriteFile(path, img); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if loaded.RunID != img.RunID || len(loaded.Classes) != len(img.Classes) || len(loaded.Functions) != len(img.Functions) {
		t.Fatalf("loaded %d classes / %d functions, want %d / %d",
			len(loaded.Classes), len(loaded.Functions), len(img.Classes), len(img.Functions))
	}
	barrel := loaded.FindClass("Barrel")
	fn := loaded.Function(barrel.States[2].Action.Hash)
	if fn == nil {
		t.Fatal("function lost in round trip")
	}
	orig := img.Function(barrel.States[2].Action.Hash)
	if len(fn.Code) != len(orig.Code) || fn.Name != orig.Name {
		t.Errorf("function = %s/%d, want %s/%d", fn.Name, len(fn.Code), orig.Name, len(orig.Code))
	}
}

func TestEncodeDeterministic(t *testing.T) {
	_, img := build(t)
	a, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	b, err := Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0x00}); err == nil {
		t.Error("expected an error for corrupt data")
	}

	data, err := Encode(&Image{Version: Version + 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(data); !errors.Is(err, ErrVersion) {
		t.Errorf("err = %v, want ErrVersion", err)
	}
}
