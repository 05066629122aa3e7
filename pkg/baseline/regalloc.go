package baseline

import (
	"fmt"

	"flint/pkg/bytecode"
)

// maxRegsPerClass bounds the per-class register file (RegSet is 32 wide).
const maxRegsPerClass = 32

// SpillHandler stores the value currently held in r to a stack slot and
// updates its owner's location. Installed by the driver; called by the
// allocator when it must steal a register.
type SpillHandler func(r Reg, class bytecode.RegClass)

// Allocator hands out physical registers and spill slots for one
// function compilation. Registers are reclaimed on demand: when a class
// runs dry the least-recently-used unpinned register is spilled, so
// acquisition never fails. A single linear pass has no liveness
// information; spill-on-demand keeps compilation linear in bytecode
// size at the cost of possibly-suboptimal code.
type Allocator struct {
	allocatable [2]RegSet
	used        [2]RegSet
	pins        [2][maxRegsPerClass]uint8
	ticks       [2][maxRegsPerClass]uint64
	clock       uint64
	slotCount   int
	spill       SpillHandler
}

// NewAllocator creates an allocator over the backend's allocatable sets.
func NewAllocator(ints, floats RegSet) *Allocator {
	return &Allocator{allocatable: [2]RegSet{ints, floats}}
}

// SetSpillHandler installs the spill callback. Must be set before the
// first acquisition that can run out of free registers.
func (a *Allocator) SetSpillHandler(fn SpillHandler) {
	a.spill = fn
}

func ci(class bytecode.RegClass) int {
	return int(class)
}

// Used returns the currently-live register set of a class.
func (a *Allocator) Used(class bytecode.RegClass) RegSet {
	return a.used[ci(class)]
}

// Free returns the currently-available register set of a class.
func (a *Allocator) Free(class bytecode.RegClass) RegSet {
	return a.allocatable[ci(class)] &^ a.used[ci(class)]
}

func (a *Allocator) pinnedSet(class bytecode.RegClass) RegSet {
	var s RegSet
	for r := 0; r < maxRegsPerClass; r++ {
		if a.pins[ci(class)][r] > 0 {
			s = s.With(Reg(r))
		}
	}
	return s
}

func (a *Allocator) touch(class bytecode.RegClass, r Reg) {
	a.clock++
	a.ticks[ci(class)][r] = a.clock
}

// AcquireRegister returns a register of the class outside excluding,
// spilling the least-recently-used unpinned candidate when none is
// free. Never fails while any unpinned candidate exists.
func (a *Allocator) AcquireRegister(class bytecode.RegClass, excluding RegSet) Reg {
	c := ci(class)
	candidates := a.allocatable[c] &^ excluding
	if free := candidates &^ a.used[c]; free != 0 {
		r := free.Lowest()
		a.used[c] = a.used[c].With(r)
		a.touch(class, r)
		return r
	}

	victim := NoReg
	var oldest uint64
	stealable := candidates & a.used[c] &^ a.pinnedSet(class)
	for r := 0; r < maxRegsPerClass; r++ {
		if !stealable.Has(Reg(r)) {
			continue
		}
		if victim == NoReg || a.ticks[c][r] < oldest {
			victim = Reg(r)
			oldest = a.ticks[c][r]
		}
	}
	if victim == NoReg {
		panic(fmt.Sprintf("baseline: no spillable %s register (used=%#x pinned=%#x excluding=%#x)",
			class, a.used[c], a.pinnedSet(class), excluding))
	}
	if a.spill == nil {
		panic("baseline: register pressure with no spill handler installed")
	}
	a.spill(victim, class)
	a.touch(class, victim)
	return victim
}

// AcquireFixed takes one specific register, spilling its current holder
// if live. Acquiring a pinned register is an invariant violation.
func (a *Allocator) AcquireFixed(class bytecode.RegClass, r Reg) {
	c := ci(class)
	if !a.allocatable[c].Has(r) {
		panic(fmt.Sprintf("baseline: %s reg%d is not allocatable", class, r))
	}
	if a.pins[c][r] > 0 {
		panic(fmt.Sprintf("baseline: AcquireFixed of pinned %s reg%d", class, r))
	}
	if a.used[c].Has(r) {
		if a.spill == nil {
			panic("baseline: register pressure with no spill handler installed")
		}
		a.spill(r, class)
	} else {
		a.used[c] = a.used[c].With(r)
	}
	a.touch(class, r)
}

// Release returns a register to the free pool.
func (a *Allocator) Release(class bytecode.RegClass, r Reg) {
	c := ci(class)
	if !a.used[c].Has(r) {
		panic(fmt.Sprintf("baseline: release of free %s reg%d", class, r))
	}
	if a.pins[c][r] > 0 {
		panic(fmt.Sprintf("baseline: release of pinned %s reg%d", class, r))
	}
	a.used[c] = a.used[c].Without(r)
}

// Pin marks a register location temporarily unavailable for reuse while
// a multi-step emission is in progress. Pins nest; non-register
// locations are ignored.
func (a *Allocator) Pin(loc Location) {
	if !loc.OnReg() {
		return
	}
	a.pins[ci(loc.Class)][loc.Reg]++
}

// Unpin undoes one Pin. The register becomes stealable again when its
// pin count returns to zero.
func (a *Allocator) Unpin(loc Location) {
	if !loc.OnReg() {
		return
	}
	c := ci(loc.Class)
	if a.pins[c][loc.Reg] == 0 {
		panic(fmt.Sprintf("baseline: unpin of unpinned %s reg%d", loc.Class, loc.Reg))
	}
	a.pins[c][loc.Reg]--
}

// Pinned reports whether the register currently has a nonzero pin count.
func (a *Allocator) Pinned(class bytecode.RegClass, r Reg) bool {
	return a.pins[ci(class)][r] > 0
}

// Touch refreshes LRU recency for a register whose value was just used.
func (a *Allocator) Touch(class bytecode.RegClass, r Reg) {
	a.touch(class, r)
}

// RecordUsedSpillSlot extends the frame to cover slot index. Monotonic;
// recording a smaller index later never shrinks the frame.
func (a *Allocator) RecordUsedSpillSlot(index int) {
	if index+1 > a.slotCount {
		a.slotCount = index + 1
	}
}

// SlotCount returns the spill-slot high-water mark.
func (a *Allocator) SlotCount() int {
	return a.slotCount
}
