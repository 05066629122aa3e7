package baseline

import (
	"fmt"
	"math/bits"

	"flint/pkg/bytecode"
)

// Reg identifies a physical register within its class. The numeric space
// is per-class: integer register 3 and float register 3 are different
// registers distinguished by class.
type Reg uint8

// NoReg marks an absent register (e.g. no index register in an
// addressing mode).
const NoReg Reg = 0xFF

// RegSet is a bitset of physical registers of one class.
type RegSet uint32

func (s RegSet) Has(r Reg) bool      { return r != NoReg && s&(1<<r) != 0 }
func (s RegSet) With(r Reg) RegSet   { return s | 1<<r }
func (s RegSet) Without(r Reg) RegSet { return s &^ (1 << r) }
func (s RegSet) Count() int          { return bits.OnesCount32(uint32(s)) }

// Lowest returns the lowest-numbered register in the set, or NoReg when
// empty.
func (s RegSet) Lowest() Reg {
	if s == 0 {
		return NoReg
	}
	return Reg(bits.TrailingZeros32(uint32(s)))
}

// SetOf builds a RegSet from registers.
func SetOf(regs ...Reg) RegSet {
	var s RegSet
	for _, r := range regs {
		s = s.With(r)
	}
	return s
}

// LocKind tags a Location variant.
type LocKind uint8

const (
	LocRegister LocKind = iota
	LocStackSlot
	LocConstant
)

// Location describes where a live value currently resides: a physical
// register, a numbered spill slot, or an immediate constant. It is a
// pure description and owns no hardware.
type Location struct {
	Kind  LocKind
	Reg   Reg               // LocRegister
	Class bytecode.RegClass // LocRegister
	Slot  int               // LocStackSlot
	Bits  uint64            // LocConstant raw bits
}

// RegisterLoc describes a value held in r of the given class.
func RegisterLoc(r Reg, class bytecode.RegClass) Location {
	return Location{Kind: LocRegister, Reg: r, Class: class}
}

// SlotLoc describes a value held in spill slot index.
func SlotLoc(index int) Location {
	return Location{Kind: LocStackSlot, Slot: index}
}

// ConstLoc describes an unmaterialized constant with the given raw bits.
func ConstLoc(bits uint64) Location {
	return Location{Kind: LocConstant, Bits: bits}
}

func (l Location) OnReg() bool   { return l.Kind == LocRegister }
func (l Location) OnSlot() bool  { return l.Kind == LocStackSlot }
func (l Location) IsConst() bool { return l.Kind == LocConstant }

func (l Location) String() string {
	switch l.Kind {
	case LocRegister:
		return fmt.Sprintf("%s-reg%d", l.Class, l.Reg)
	case LocStackSlot:
		return fmt.Sprintf("slot%d", l.Slot)
	case LocConstant:
		return fmt.Sprintf("const(%#x)", l.Bits)
	}
	return "invalid"
}

// Operand pairs a value kind with its current location; the unit tracked
// on the driver's operand stack. A register location's class always
// matches the kind's class.
type Operand struct {
	Kind bytecode.ValueKind
	Loc  Location
}

func regOperand(k bytecode.ValueKind, r Reg) Operand {
	return Operand{Kind: k, Loc: RegisterLoc(r, k.Class())}
}

func (o Operand) String() string {
	return fmt.Sprintf("%s@%s", o.Kind, o.Loc)
}
