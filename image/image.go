// Package image snapshots a compiled actor universe as canonical CBOR.
//
// Classes refer to each other by name. Script functions are stored once per
// distinct content, keyed by the SHA-256 of their canonical encoding, so the
// thunks of identical calls in different actors share one record.
package image

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/thingdef/actor"
	"github.com/chazu/thingdef/vm"
)

var log = commonlog.GetLogger("thingdef.image")

// Version is the image format version.
const Version = 1

// ErrVersion is returned when reading an image of another format version.
var ErrVersion = errors.New("unsupported image version")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Image is the snapshot of one compilation run.
type Image struct {
	Version   int        `cbor:"1,keyasint"`
	RunID     uuid.UUID  `cbor:"2,keyasint"`
	Classes   []Class    `cbor:"3,keyasint"`
	Functions []Function `cbor:"4,keyasint,omitempty"`
}

// Class is one class of the universe.
type Class struct {
	Name        string    `cbor:"1,keyasint"`
	Parent      string    `cbor:"2,keyasint,omitempty"`
	Native      bool      `cbor:"3,keyasint,omitempty"`
	Size        int       `cbor:"4,keyasint"`
	DoomEdNum   int       `cbor:"5,keyasint"`
	Replacee    string    `cbor:"6,keyasint,omitempty"`
	Replacement string    `cbor:"7,keyasint,omitempty"`
	Defaults    *Defaults `cbor:"8,keyasint,omitempty"`

	States    []State             `cbor:"9,keyasint,omitempty"`
	Labels    map[string]StateRef `cbor:"10,keyasint,omitempty"`
	DropItems []DropItem          `cbor:"11,keyasint,omitempty"`

	DamageFactors map[string]float64 `cbor:"12,keyasint,omitempty"`
	PainChances   map[string]int     `cbor:"13,keyasint,omitempty"`

	ForbiddenTo  []string `cbor:"14,keyasint,omitempty"`
	RestrictedTo []string `cbor:"15,keyasint,omitempty"`
	VisibleTo    []string `cbor:"16,keyasint,omitempty"`
}

// Defaults mirrors actor.Defaults.
type Defaults struct {
	Health       int      `cbor:"1,keyasint"`
	Speed        float64  `cbor:"2,keyasint"`
	Radius       float64  `cbor:"3,keyasint"`
	Height       float64  `cbor:"4,keyasint"`
	Mass         int      `cbor:"5,keyasint"`
	Gravity      float64  `cbor:"6,keyasint"`
	ReactionTime int      `cbor:"7,keyasint"`
	PainChance   int      `cbor:"8,keyasint"`
	Flags        uint64   `cbor:"9,keyasint"`
	Obituary     string   `cbor:"10,keyasint,omitempty"`
	Tag          string   `cbor:"11,keyasint,omitempty"`
	SpawnID      int      `cbor:"12,keyasint,omitempty"`
	Amount       int      `cbor:"13,keyasint,omitempty"`
	MaxAmount    int      `cbor:"14,keyasint,omitempty"`
	Damage       *FuncRef `cbor:"15,keyasint,omitempty"`
}

// State mirrors actor.State.
type State struct {
	Sprite string   `cbor:"1,keyasint"`
	Frame  byte     `cbor:"2,keyasint"`
	Tics   int      `cbor:"3,keyasint"`
	Bright bool     `cbor:"4,keyasint,omitempty"`
	Fast   bool     `cbor:"5,keyasint,omitempty"`
	Next   StateRef `cbor:"6,keyasint"`
	Action *FuncRef `cbor:"7,keyasint,omitempty"`
}

// StateRef names a state by owning class and index. The null state has an
// empty class.
type StateRef struct {
	Class string `cbor:"1,keyasint,omitempty"`
	Index int    `cbor:"2,keyasint"`
}

// IsNull reports whether r is the stop target.
func (r StateRef) IsNull() bool {
	return r.Class == ""
}

// DropItem mirrors actor.DropItem.
type DropItem struct {
	Name        string `cbor:"1,keyasint"`
	Probability int    `cbor:"2,keyasint"`
	Amount      int    `cbor:"3,keyasint"`
}

// FuncRef points at a native action by name or a script function by hash.
type FuncRef struct {
	Native string   `cbor:"1,keyasint,omitempty"`
	Hash   [32]byte `cbor:"2,keyasint"`
}

// Function is a script function record.
type Function struct {
	Hash     [32]byte  `cbor:"1,keyasint"`
	Name     string    `cbor:"2,keyasint"`
	Code     []uint32  `cbor:"3,keyasint"`
	KonstD   []int     `cbor:"4,keyasint,omitempty"`
	KonstF   []float64 `cbor:"5,keyasint,omitempty"`
	KonstS   []string  `cbor:"6,keyasint,omitempty"`
	KonstA   []Address `cbor:"7,keyasint,omitempty"`
	NumRegD  int       `cbor:"8,keyasint"`
	NumRegF  int       `cbor:"9,keyasint"`
	NumRegS  int       `cbor:"10,keyasint"`
	NumRegA  int       `cbor:"11,keyasint"`
	MaxParam int       `cbor:"12,keyasint"`
	NumArgs  int       `cbor:"13,keyasint"`
}

// AddressKind tags an entry of a function's address constant pool.
type AddressKind uint8

const (
	AddrNull AddressKind = iota
	AddrClass
	AddrState
	AddrFunction
)

// Address is one address constant.
type Address struct {
	Kind  AddressKind `cbor:"1,keyasint"`
	Class string      `cbor:"2,keyasint,omitempty"`
	State *StateRef   `cbor:"3,keyasint,omitempty"`
	Func  *FuncRef    `cbor:"4,keyasint,omitempty"`
}

// FindClass returns the class called name, or nil.
func (img *Image) FindClass(name string) *Class {
	for i := range img.Classes {
		if img.Classes[i].Name == name {
			return &img.Classes[i]
		}
	}
	return nil
}

// Function returns the script function with the given hash, or nil.
func (img *Image) Function(hash [32]byte) *Function {
	for i := range img.Functions {
		if img.Functions[i].Hash == hash {
			return &img.Functions[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

type builder struct {
	reg   *actor.Registry
	img   *Image
	refs  map[*vm.ScriptFunction]FuncRef
	known map[[32]byte]bool
}

// Build snapshots every class of reg. Detached classes are left out since
// nothing can refer to them by name.
func Build(reg *actor.Registry, runID uuid.UUID) (*Image, error) {
	b := &builder{
		reg:   reg,
		img:   &Image{Version: Version, RunID: runID},
		refs:  make(map[*vm.ScriptFunction]FuncRef),
		known: make(map[[32]byte]bool),
	}
	for _, cls := range reg.All() {
		if cls.Detached() {
			continue
		}
		c, err := b.class(cls)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", cls.Name, err)
		}
		b.img.Classes = append(b.img.Classes, c)
	}
	log.Infof("image: %d classes, %d functions", len(b.img.Classes), len(b.img.Functions))
	return b.img, nil
}

func (b *builder) className(id actor.ClassID) string {
	if c := b.reg.Class(id); c != nil {
		return c.Name
	}
	return ""
}

func (b *builder) stateRef(r actor.StateRef) StateRef {
	if r.IsNull() {
		return StateRef{Index: -1}
	}
	return StateRef{Class: b.className(r.Class), Index: r.Index}
}

func (b *builder) class(cls *actor.Class) (Class, error) {
	c := Class{
		Name:          cls.Name,
		Parent:        b.className(cls.Parent),
		Native:        cls.Native,
		Size:          cls.Size,
		DoomEdNum:     cls.DoomEdNum,
		Replacee:      b.className(cls.Replacee),
		Replacement:   b.className(cls.Replacement),
		DamageFactors: cls.DamageFactors,
		PainChances:   cls.PainChances,
		ForbiddenTo:   cls.ForbiddenToPlayerClass,
		RestrictedTo:  cls.RestrictedToPlayerClass,
		VisibleTo:     cls.VisibleToPlayerClass,
	}

	if d := cls.Defaults; d != nil {
		dmg, err := b.scriptRef(d.Damage)
		if err != nil {
			return c, err
		}
		c.Defaults = &Defaults{
			Health:       d.Health,
			Speed:        d.Speed,
			Radius:       d.Radius,
			Height:       d.Height,
			Mass:         d.Mass,
			Gravity:      d.Gravity,
			ReactionTime: d.ReactionTime,
			PainChance:   d.PainChance,
			Flags:        uint64(d.Flags),
			Obituary:     d.Obituary,
			Tag:          d.Tag,
			SpawnID:      d.SpawnID,
			Amount:       d.Amount,
			MaxAmount:    d.MaxAmount,
			Damage:       dmg,
		}
	}

	for i := range cls.OwnedStates {
		s := &cls.OwnedStates[i]
		action, err := b.funcRef(s.Action)
		if err != nil {
			return c, fmt.Errorf("state %d: %w", i, err)
		}
		c.States = append(c.States, State{
			Sprite: s.Sprite,
			Frame:  s.Frame,
			Tics:   s.Tics,
			Bright: s.Bright,
			Fast:   s.Fast,
			Next:   b.stateRef(s.Next),
			Action: action,
		})
	}

	if len(cls.StateLabels) > 0 {
		c.Labels = make(map[string]StateRef, len(cls.StateLabels))
		for name, ref := range cls.StateLabels {
			c.Labels[name] = b.stateRef(ref)
		}
	}
	for _, di := range cls.DropItems {
		c.DropItems = append(c.DropItems, DropItem{Name: di.Name, Probability: di.Probability, Amount: di.Amount})
	}
	return c, nil
}

func (b *builder) scriptRef(fn *vm.ScriptFunction) (*FuncRef, error) {
	if fn == nil {
		return nil, nil
	}
	return b.funcRef(fn)
}

func (b *builder) funcRef(fn vm.Function) (*FuncRef, error) {
	switch f := fn.(type) {
	case nil:
		return nil, nil
	case *vm.NativeFunction:
		return &FuncRef{Native: f.Name()}, nil
	case *vm.ScriptFunction:
		if ref, ok := b.refs[f]; ok {
			return &ref, nil
		}
		rec, err := b.function(f)
		if err != nil {
			return nil, err
		}
		if !b.known[rec.Hash] {
			b.known[rec.Hash] = true
			b.img.Functions = append(b.img.Functions, rec)
		}
		ref := FuncRef{Hash: rec.Hash}
		b.refs[f] = ref
		return &ref, nil
	}
	return nil, fmt.Errorf("unsupported function %T", fn)
}

func (b *builder) function(fn *vm.ScriptFunction) (Function, error) {
	rec := Function{
		KonstD:   fn.KonstD,
		KonstF:   fn.KonstF,
		KonstS:   fn.KonstS,
		NumRegD:  fn.NumRegD,
		NumRegF:  fn.NumRegF,
		NumRegS:  fn.NumRegS,
		NumRegA:  fn.NumRegA,
		MaxParam: fn.MaxParam,
		NumArgs:  fn.NumArgs,
	}
	rec.Code = make([]uint32, len(fn.Code))
	for i, ins := range fn.Code {
		rec.Code[i] = uint32(ins)
	}
	for _, p := range fn.KonstA {
		a, err := b.address(p)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		rec.KonstA = append(rec.KonstA, a)
	}

	// The hash covers content only, so it is taken before the name is set.
	data, err := encMode.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("%s: encoding: %w", fn.Name(), err)
	}
	rec.Hash = sha256.Sum256(data)
	rec.Name = fn.Name()
	return rec, nil
}

func (b *builder) address(p any) (Address, error) {
	switch v := p.(type) {
	case nil:
		return Address{Kind: AddrNull}, nil
	case *actor.Class:
		return Address{Kind: AddrClass, Class: v.Name}, nil
	case actor.StateRef:
		if v.IsNull() {
			return Address{Kind: AddrNull}, nil
		}
		ref := b.stateRef(v)
		return Address{Kind: AddrState, State: &ref}, nil
	case vm.Function:
		ref, err := b.funcRef(v)
		if err != nil {
			return Address{}, err
		}
		return Address{Kind: AddrFunction, Func: ref}, nil
	}
	return Address{}, fmt.Errorf("unsupported address constant %T", p)
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Encode serializes img. Equal images encode to equal bytes.
func Encode(img *Image) ([]byte, error) {
	return encMode.Marshal(img)
}

// Decode deserializes an image and checks its version.
func Decode(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if img.Version != Version {
		return nil, fmt.Errorf("image: version %d: %w", img.Version, ErrVersion)
	}
	return &img, nil
}

// WriteFile encodes img to path.
func WriteFile(path string, img *Image) error {
	data, err := Encode(img)
	if err != nil {
		return fmt.Errorf("image: encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("image: writing %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes the image stored at path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: reading %s: %w", path, err)
	}
	return Decode(data)
}
