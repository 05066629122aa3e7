package baseline

// Spill slots are uniformly pointer-width regardless of value kind.
const SlotSize = 8

// BaseFrameBytes is the fixed portion of every frame below the saved
// frame pointer: the instance slot.
const BaseFrameBytes = 8

// FrameCeiling is the hard safety limit on one frame's stack
// adjustment. Exceeding it bails out rather than emitting a frame the
// stack check cannot reasonably guard.
const FrameCeiling = 1 << 20

// PageRound is the boundary frame sizes are rounded to when the exact
// size cannot be encoded as an immediate.
const PageRound = 4096

// FrameLayout is the fixed frame geometry of one compiled function,
// published for stack walkers and GC root scanning. Offsets are relative
// to the frame pointer and grow downward; slot i lives at
// FirstSlotOffset - i*SlotSize.
type FrameLayout struct {
	InstanceOffset  int32
	FirstSlotOffset int32
	SlotSize        int
	SlotCount       int
}

// SlotOffset returns the frame-pointer-relative offset of slot index.
func (f FrameLayout) SlotOffset(index int) int32 {
	return f.FirstSlotOffset - int32(index*f.SlotSize)
}

// AlignUp rounds n up to the next multiple of align (a power of two).
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// FrameBytes computes the prologue stack adjustment for a slot count:
// the base frame plus the spill area, rounded up to the architecture's
// stack alignment quantum.
func FrameBytes(slotCount, stackAlign int) int {
	return AlignUp(BaseFrameBytes+slotCount*SlotSize, stackAlign)
}
