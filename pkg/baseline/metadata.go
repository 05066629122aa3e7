package baseline

import "flint/pkg/bytecode"

// Reloc marks a call-site displacement that must be patched against the
// target function's final address once absolute code layout is known.
// Offset addresses the 32-bit displacement inside Code.
type Reloc struct {
	Offset int
	Func   uint32
}

// TrapSite marks an instruction that can fault at run time. Offset is
// the first byte of the faulting instruction; Recovery is the offset of
// the out-of-line stub a fault handler should resume at.
type TrapSite struct {
	Offset   int
	Kind     TrapKind
	Recovery int
}

// SlotRef reports one live abstract value slot and where its value
// currently resides, for GC root scanning and stack walking.
type SlotRef struct {
	Slot int
	Kind bytecode.ValueKind
	Loc  Location
}

// Safepoint is the liveness snapshot at one instruction boundary.
// Offset is the code offset of the boundary (for call sites, the return
// address).
type Safepoint struct {
	Offset int
	Live   []SlotRef
}

// Artifact is the complete output of one successful compilation: the
// instruction bytes plus the side tables external collaborators need to
// link, unwind, and scan it. The buffer is plain bytes; making it
// executable is the loader's concern.
type Artifact struct {
	FuncIndex  uint32
	Target     string
	Code       []byte
	Frame      FrameLayout
	Relocs     []Reloc
	Traps      []TrapSite
	Safepoints []Safepoint
}
