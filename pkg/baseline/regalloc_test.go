package baseline

import (
	"strings"
	"testing"

	"flint/pkg/bytecode"
)

type spillRecord struct {
	reg   Reg
	class bytecode.RegClass
}

// recordingAllocator wires an allocator over small register files to a
// handler that logs every spill.
func recordingAllocator(ints, floats RegSet) (*Allocator, *[]spillRecord) {
	a := NewAllocator(ints, floats)
	spills := &[]spillRecord{}
	a.SetSpillHandler(func(r Reg, class bytecode.RegClass) {
		*spills = append(*spills, spillRecord{r, class})
	})
	return a, spills
}

func TestAcquireLowestFreeFirst(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0, 1, 5), SetOf(0))

	if r := a.AcquireRegister(bytecode.ClassInt, 0); r != 0 {
		t.Errorf("first acquire = reg%d, want reg0", r)
	}
	if r := a.AcquireRegister(bytecode.ClassInt, 0); r != 1 {
		t.Errorf("second acquire = reg%d, want reg1", r)
	}
	if r := a.AcquireRegister(bytecode.ClassInt, 0); r != 5 {
		t.Errorf("third acquire = reg%d, want reg5", r)
	}
	if got := a.Used(bytecode.ClassInt); got != SetOf(0, 1, 5) {
		t.Errorf("Used = %#x, want %#x", got, SetOf(0, 1, 5))
	}
	if got := a.Free(bytecode.ClassInt); got != 0 {
		t.Errorf("Free = %#x, want empty", got)
	}
}

func TestAcquireRespectsExcluding(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0, 1, 2), 0)

	if r := a.AcquireRegister(bytecode.ClassInt, SetOf(0, 1)); r != 2 {
		t.Errorf("acquire excluding {0,1} = reg%d, want reg2", r)
	}
}

func TestAcquireClassesAreIndependent(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0, 1), SetOf(0, 1))

	ri := a.AcquireRegister(bytecode.ClassInt, 0)
	rf := a.AcquireRegister(bytecode.ClassFloat, 0)
	if ri != 0 || rf != 0 {
		t.Fatalf("acquired int reg%d, float reg%d, want reg0 in both classes", ri, rf)
	}
	if a.Used(bytecode.ClassInt) != SetOf(0) || a.Used(bytecode.ClassFloat) != SetOf(0) {
		t.Error("acquisition in one class leaked into the other")
	}
}

func TestAcquireSpillsLeastRecentlyUsed(t *testing.T) {
	a, spills := recordingAllocator(SetOf(0, 1), 0)

	a.AcquireRegister(bytecode.ClassInt, 0) // reg0, oldest
	a.AcquireRegister(bytecode.ClassInt, 0) // reg1

	r := a.AcquireRegister(bytecode.ClassInt, 0)
	if r != 0 {
		t.Errorf("steal acquired reg%d, want LRU reg0", r)
	}
	if len(*spills) != 1 || (*spills)[0] != (spillRecord{0, bytecode.ClassInt}) {
		t.Errorf("spills = %v, want one spill of int reg0", *spills)
	}
	// The victim stays live under its new owner.
	if got := a.Used(bytecode.ClassInt); got != SetOf(0, 1) {
		t.Errorf("Used after steal = %#x, want %#x", got, SetOf(0, 1))
	}
}

func TestTouchRefreshesRecency(t *testing.T) {
	a, spills := recordingAllocator(SetOf(0, 1), 0)

	a.AcquireRegister(bytecode.ClassInt, 0) // reg0
	a.AcquireRegister(bytecode.ClassInt, 0) // reg1
	a.Touch(bytecode.ClassInt, 0)           // reg1 is now oldest

	if r := a.AcquireRegister(bytecode.ClassInt, 0); r != 1 {
		t.Errorf("steal after Touch acquired reg%d, want reg1", r)
	}
	if len(*spills) != 1 || (*spills)[0].reg != 1 {
		t.Errorf("spills = %v, want one spill of reg1", *spills)
	}
}

func TestPinProtectsFromSteal(t *testing.T) {
	a, spills := recordingAllocator(SetOf(0, 1), 0)

	a.AcquireRegister(bytecode.ClassInt, 0) // reg0, oldest
	a.AcquireRegister(bytecode.ClassInt, 0) // reg1
	a.Pin(RegisterLoc(0, bytecode.ClassInt))

	if r := a.AcquireRegister(bytecode.ClassInt, 0); r != 1 {
		t.Errorf("steal with reg0 pinned acquired reg%d, want reg1", r)
	}
	if len(*spills) != 1 || (*spills)[0].reg != 1 {
		t.Errorf("spills = %v, want one spill of reg1", *spills)
	}
	if !a.Pinned(bytecode.ClassInt, 0) {
		t.Error("Pinned(reg0) = false after Pin")
	}
}

func TestPinNesting(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0), 0)
	loc := RegisterLoc(0, bytecode.ClassInt)

	a.AcquireRegister(bytecode.ClassInt, 0)
	a.Pin(loc)
	a.Pin(loc)
	a.Unpin(loc)
	if !a.Pinned(bytecode.ClassInt, 0) {
		t.Error("register unpinned after one of two Unpins")
	}
	a.Unpin(loc)
	if a.Pinned(bytecode.ClassInt, 0) {
		t.Error("register still pinned after matching Unpins")
	}
}

func TestPinIgnoresNonRegisterLocations(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0), 0)
	// Neither slot nor constant locations own hardware; pinning them is
	// a silent no-op so the driver can pin operands uniformly.
	a.Pin(SlotLoc(3))
	a.Unpin(SlotLoc(3))
	a.Pin(ConstLoc(42))
	a.Unpin(ConstLoc(42))
}

func TestUnpinOfUnpinnedPanics(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0), 0)
	defer func() {
		if recover() == nil {
			t.Error("Unpin of unpinned register did not panic")
		}
	}()
	a.Unpin(RegisterLoc(0, bytecode.ClassInt))
}

func TestAcquireAllPinnedPanics(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0, 1), 0)
	a.AcquireRegister(bytecode.ClassInt, 0)
	a.AcquireRegister(bytecode.ClassInt, 0)
	a.Pin(RegisterLoc(0, bytecode.ClassInt))
	a.Pin(RegisterLoc(1, bytecode.ClassInt))

	defer func() {
		msg, ok := recover().(string)
		if !ok {
			t.Fatal("acquire with every register pinned did not panic")
		}
		if !strings.Contains(msg, "no spillable") {
			t.Errorf("panic = %q, want mention of no spillable register", msg)
		}
	}()
	a.AcquireRegister(bytecode.ClassInt, 0)
}

func TestAcquireWithoutSpillHandlerPanics(t *testing.T) {
	a := NewAllocator(SetOf(0), 0)
	a.AcquireRegister(bytecode.ClassInt, 0)

	defer func() {
		msg, ok := recover().(string)
		if !ok {
			t.Fatal("steal without a spill handler did not panic")
		}
		if !strings.Contains(msg, "no spill handler") {
			t.Errorf("panic = %q, want mention of missing spill handler", msg)
		}
	}()
	a.AcquireRegister(bytecode.ClassInt, 0)
}

func TestAcquireFixedFreeRegister(t *testing.T) {
	a, spills := recordingAllocator(SetOf(0, 1), 0)

	a.AcquireFixed(bytecode.ClassInt, 1)
	if len(*spills) != 0 {
		t.Errorf("AcquireFixed of free register spilled %v", *spills)
	}
	if got := a.Used(bytecode.ClassInt); got != SetOf(1) {
		t.Errorf("Used = %#x, want %#x", got, SetOf(1))
	}
}

func TestAcquireFixedEvictsHolder(t *testing.T) {
	a, spills := recordingAllocator(SetOf(0, 1), 0)

	a.AcquireRegister(bytecode.ClassInt, 0) // reg0
	a.AcquireFixed(bytecode.ClassInt, 0)

	if len(*spills) != 1 || (*spills)[0].reg != 0 {
		t.Errorf("spills = %v, want one spill of reg0", *spills)
	}
	if got := a.Used(bytecode.ClassInt); got != SetOf(0) {
		t.Errorf("Used = %#x, want %#x", got, SetOf(0))
	}
}

func TestAcquireFixedNotAllocatablePanics(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0), 0)
	defer func() {
		if recover() == nil {
			t.Error("AcquireFixed of non-allocatable register did not panic")
		}
	}()
	a.AcquireFixed(bytecode.ClassInt, 7)
}

func TestAcquireFixedPinnedPanics(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0), 0)
	a.AcquireRegister(bytecode.ClassInt, 0)
	a.Pin(RegisterLoc(0, bytecode.ClassInt))

	defer func() {
		if recover() == nil {
			t.Error("AcquireFixed of pinned register did not panic")
		}
	}()
	a.AcquireFixed(bytecode.ClassInt, 0)
}

func TestRelease(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0, 1), 0)

	a.AcquireRegister(bytecode.ClassInt, 0)
	a.AcquireRegister(bytecode.ClassInt, 0)
	a.Release(bytecode.ClassInt, 0)

	if got := a.Free(bytecode.ClassInt); got != SetOf(0) {
		t.Errorf("Free after release = %#x, want %#x", got, SetOf(0))
	}
	if r := a.AcquireRegister(bytecode.ClassInt, 0); r != 0 {
		t.Errorf("reacquire = reg%d, want released reg0", r)
	}
}

func TestReleaseOfFreePanics(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0), 0)
	defer func() {
		if recover() == nil {
			t.Error("release of free register did not panic")
		}
	}()
	a.Release(bytecode.ClassInt, 0)
}

func TestReleaseOfPinnedPanics(t *testing.T) {
	a, _ := recordingAllocator(SetOf(0), 0)
	a.AcquireRegister(bytecode.ClassInt, 0)
	a.Pin(RegisterLoc(0, bytecode.ClassInt))

	defer func() {
		if recover() == nil {
			t.Error("release of pinned register did not panic")
		}
	}()
	a.Release(bytecode.ClassInt, 0)
}

func TestRecordUsedSpillSlotMonotonic(t *testing.T) {
	a := NewAllocator(SetOf(0), 0)
	if a.SlotCount() != 0 {
		t.Fatalf("fresh SlotCount = %d, want 0", a.SlotCount())
	}

	a.RecordUsedSpillSlot(5)
	if a.SlotCount() != 6 {
		t.Errorf("SlotCount after slot 5 = %d, want 6", a.SlotCount())
	}
	a.RecordUsedSpillSlot(2)
	if a.SlotCount() != 6 {
		t.Errorf("SlotCount shrank to %d after recording slot 2, want 6", a.SlotCount())
	}
	a.RecordUsedSpillSlot(9)
	if a.SlotCount() != 10 {
		t.Errorf("SlotCount after slot 9 = %d, want 10", a.SlotCount())
	}
}

func TestRegSet(t *testing.T) {
	s := SetOf(0, 3, 31)
	if !s.Has(0) || !s.Has(3) || !s.Has(31) {
		t.Errorf("SetOf(0,3,31) = %#x missing a member", s)
	}
	if s.Has(1) {
		t.Errorf("SetOf(0,3,31) = %#x contains reg1", s)
	}
	if s.Has(NoReg) {
		t.Error("Has(NoReg) = true")
	}
	if s.Count() != 3 {
		t.Errorf("Count = %d, want 3", s.Count())
	}
	if s.Lowest() != 0 {
		t.Errorf("Lowest = reg%d, want reg0", s.Lowest())
	}
	if s.Without(0).Lowest() != 3 {
		t.Errorf("Lowest after Without(0) = reg%d, want reg3", s.Without(0).Lowest())
	}
	if RegSet(0).Lowest() != NoReg {
		t.Error("Lowest of empty set != NoReg")
	}
}
