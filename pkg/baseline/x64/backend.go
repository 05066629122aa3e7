package x64

import (
	"fmt"

	"flint/pkg/baseline"
	"flint/pkg/bytecode"
)

// Instance field offsets. The runtime structure starts with the fields
// the generated code touches directly.
const (
	instStackLimit  = 0
	instMemoryBase  = 8
	instMemorySize  = 16
	instTableBase   = 24
	instTableLen    = 32
	instTrapHandler = 40
	instHostTable   = 48
)

// Call table entries are 16 bytes: the code address followed by the
// callee's signature id for the indirect-call check.
const tableEntryShift = 4

const labelNone = baseline.Label(-1)

// Backend emits x86-64 code. One instance serves one Compile call at a
// time; Bind resets it for the next function.
type Backend struct {
	feats Features
	ctx   *baseline.EmitContext
	asm   *Asm

	labels     []labelState
	trapLabels [baseline.NumTrapKinds]baseline.Label
	memTraps   []int // indices into Meta.Traps awaiting the OOB stub offset
}

type labelState struct {
	bound  bool
	offset int
	pends  []int // offsets of rel32 immediates to patch at bind
}

// New returns a backend restricted to the given feature set.
func New(feats Features) *Backend {
	return &Backend{feats: feats}
}

// NewBackend returns a backend for the host CPU.
func NewBackend() *Backend {
	return New(DetectFeatures())
}

func (b *Backend) Bind(ctx *baseline.EmitContext) {
	b.ctx = ctx
	b.asm = NewAsm(ctx.Buf)
	b.labels = b.labels[:0]
	for i := range b.trapLabels {
		b.trapLabels[i] = labelNone
	}
	b.memTraps = b.memTraps[:0]
}

func (b *Backend) ABI() baseline.ABI {
	return baseline.ABI{
		InstanceReg:    R14,
		MemBaseReg:     R15,
		InstanceArgReg: RDI,
		IntArgs:        []baseline.Reg{RSI, RDX, RCX, R8, R9},
		FloatArgs:      []baseline.Reg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7},
		IntResult:      RAX,
		FloatResult:    XMM0,
		ShiftCount:     RCX,
		DivLo:          RAX,
		DivHi:          RDX,
		CallScratch:    R10,
		StackAlign:     16,
	}
}

func (b *Backend) Allocatable() (ints, floats baseline.RegSet) {
	ints = baseline.SetOf(RAX, RCX, RDX, RBX, RSI, RDI, R8, R9, R10, R11, R12, R13)
	floats = baseline.SetOf(XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7,
		XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15)
	return ints, floats
}

func (b *Backend) Offset() int {
	return b.ctx.Buf.Len()
}

func (b *Backend) Target() string {
	return "amd64"
}

// ---- frame ----

// frameDisp is the rbp displacement of a spill slot.
func frameDisp(slot int) int32 {
	return -int32(baseline.BaseFrameBytes + (slot+1)*baseline.SlotSize)
}

// stackArgDisp is the rbp displacement of an incoming stack argument.
func stackArgDisp(slot int) int32 {
	return int32(16 + slot*baseline.SlotSize)
}

// PrepareStackFrame emits the prologue with a placeholder frame size.
// The sub immediate is forced to its 32-bit form so the final size can
// be patched in place.
func (b *Backend) PrepareStackFrame() baseline.PatchToken {
	b.asm.Push(RBP)
	b.asm.MovRegReg(RBP, RSP)
	b.asm.emit(0x48, 0x81, 0xEC) // sub rsp, imm32
	tok := baseline.PatchToken{Offset: b.asm.Offset()}
	b.asm.emitUint32(0)
	return tok
}

// PatchPrepareStackFrame fills in the prologue's frame size once the
// spill-slot high-water mark is known. Frames beyond a page are rounded
// up to whole pages; past the ceiling the function is abandoned rather
// than risk an unprotected stack overflow.
func (b *Backend) PatchPrepareStackFrame(tok baseline.PatchToken, slotCount int) {
	frame := baseline.FrameBytes(slotCount, 16)
	if frame > baseline.PageRound {
		frame = baseline.AlignUp(frame, baseline.PageRound)
	}
	if frame > baseline.FrameCeiling {
		b.ctx.Bailout.Trip("", "stack frame too large")
		return
	}
	b.ctx.Buf.PatchI32(tok.Offset, int32(frame))
}

// EmitStackCheck compares the adjusted stack pointer against the
// instance's limit. It runs before anything is written to the frame;
// once the check passes the instance pointer is parked in its frame
// slot so calls and trap stubs can reload it.
func (b *Backend) EmitStackCheck() {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.CmpRegMem64(RSP, R14, instStackLimit)
	b.jccNear(0x82, b.trapLabel(baseline.TrapStackOverflow)) // jb
	b.asm.MovMemReg64(RBP, -int32(baseline.BaseFrameBytes), R14)
}

func (b *Backend) EmitEpilogue() {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.MovRegReg(RSP, RBP)
	b.asm.Pop(RBP)
	b.asm.Ret()
}

// ---- labels ----

func (b *Backend) NewLabel() baseline.Label {
	b.labels = append(b.labels, labelState{})
	return baseline.Label(len(b.labels) - 1)
}

func (b *Backend) BindLabel(l baseline.Label) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.bindLabel(l)
}

func (b *Backend) bindLabel(l baseline.Label) {
	ls := &b.labels[l]
	if ls.bound {
		panic(fmt.Sprintf("x64: label %d bound twice", l))
	}
	ls.bound = true
	ls.offset = b.asm.Offset()
	for _, p := range ls.pends {
		b.ctx.Buf.PatchI32(p, int32(ls.offset-(p+4)))
	}
	ls.pends = nil
}

// emitLabelRel32 emits the rel32 for a jump to l, pending it when the
// label is not bound yet.
func (b *Backend) emitLabelRel32(l baseline.Label) {
	immOff := b.asm.Offset()
	ls := &b.labels[l]
	if ls.bound {
		b.ctx.Buf.EmitI32(int32(ls.offset - (immOff + 4)))
	} else {
		ls.pends = append(ls.pends, immOff)
		b.ctx.Buf.EmitI32(0)
	}
}

// jccNear emits a near conditional jump to a label. cc is the second
// opcode byte (0F cc).
func (b *Backend) jccNear(cc byte, l baseline.Label) {
	b.asm.emit(0x0F, cc)
	b.emitLabelRel32(l)
}

func (b *Backend) EmitBr(l baseline.Label) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.emit(0xE9)
	b.emitLabelRel32(l)
}

func (b *Backend) EmitBrIf(cond baseline.Reg, l baseline.Label) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.TestRegReg32(cond, cond)
	b.jccNear(0x85, l) // jne
}

// ---- short forward jumps ----

// jcc8 emits a rel8 conditional jump with a placeholder displacement and
// returns the patch position. cc is the single opcode byte (74, 75, ...).
func (b *Backend) jcc8(cc byte) int {
	b.asm.emit(cc, 0)
	return b.asm.Offset() - 1
}

// jmp8 emits an unconditional rel8 jump with a placeholder.
func (b *Backend) jmp8() int {
	b.asm.emit(0xEB, 0)
	return b.asm.Offset() - 1
}

// patch8 lands a pending rel8 jump at the current offset.
func (b *Backend) patch8(pos int) {
	rel := b.asm.Offset() - (pos + 1)
	if rel < -128 || rel > 127 {
		panic(fmt.Sprintf("x64: rel8 jump distance %d out of range", rel))
	}
	b.ctx.Buf.PatchU8(pos, byte(rel))
}

// ---- traps ----

// trapLabel returns the label of the out-of-line stub for kind, creating
// it on first use. The stub itself is emitted at Finalize.
func (b *Backend) trapLabel(kind baseline.TrapKind) baseline.Label {
	if b.trapLabels[kind] == labelNone {
		b.trapLabels[kind] = b.NewLabel()
	}
	return b.trapLabels[kind]
}

func (b *Backend) EmitTrap(kind baseline.TrapKind) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.emit(0xE9)
	b.emitLabelRel32(b.trapLabel(kind))
}

// Finalize emits the out-of-line trap stubs and resolves the recovery
// offsets of implicit-fault sites. The pinned instance register is
// valid at every trap site, including the entry stack check, so the
// stubs take the instance from it rather than the frame slot. The
// handler does not return.
func (b *Backend) Finalize() {
	if b.ctx.Bailout.Bailed() {
		return
	}
	oobStub := -1
	for kind := range b.trapLabels {
		l := b.trapLabels[kind]
		if l == labelNone {
			continue
		}
		b.bindLabel(l)
		off := b.asm.Offset()
		tk := baseline.TrapKind(kind)
		if tk == baseline.TrapMemoryOutOfBounds {
			oobStub = off
		}
		b.ctx.Meta.Traps = append(b.ctx.Meta.Traps, baseline.TrapSite{
			Offset:   off,
			Kind:     tk,
			Recovery: -1,
		})
		b.asm.MovRegReg(RDI, R14)
		b.asm.MovRegImm32(RSI, uint32(kind))
		b.asm.MovRegMem64(R10, R14, instTrapHandler)
		b.asm.CallReg(R10)
		b.asm.Int3()
	}
	for _, ti := range b.memTraps {
		b.ctx.Meta.Traps[ti].Recovery = oobStub
	}
}

// ---- moves, spills, fills ----

func (b *Backend) EmitMove(k bytecode.ValueKind, dst, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() || dst == src {
		return
	}
	switch k {
	case bytecode.I32:
		b.asm.MovRegReg32(dst, src)
	case bytecode.I64:
		b.asm.MovRegReg(dst, src)
	default:
		b.asm.MovapsRegReg(dst, src)
	}
}

func (b *Backend) EmitConst(k bytecode.ValueKind, r baseline.Reg, bits uint64) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	switch k {
	case bytecode.I32:
		if uint32(bits) == 0 {
			b.asm.XorRegReg32(r, r)
		} else {
			b.asm.MovRegImm32(r, uint32(bits))
		}
	case bytecode.I64:
		switch {
		case bits == 0:
			b.asm.XorRegReg32(r, r)
		case int64(bits) == int64(int32(bits)):
			b.asm.MovRegImm32SignExt(r, int32(bits))
		case bits == uint64(uint32(bits)):
			b.asm.MovRegImm32(r, uint32(bits))
		default:
			b.asm.MovRegImm64(r, bits)
		}
	case bytecode.F32:
		if uint32(bits) == 0 {
			b.asm.Xorps(r, r)
			return
		}
		s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
		b.asm.MovRegImm32(s, uint32(bits))
		b.asm.MovdXmmReg(r, s)
		b.ctx.Alloc.Release(bytecode.ClassInt, s)
	case bytecode.F64:
		if bits == 0 {
			b.asm.Xorps(r, r)
			return
		}
		s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
		b.asm.MovRegImm64(s, bits)
		b.asm.MovqXmmReg(r, s)
		b.ctx.Alloc.Release(bytecode.ClassInt, s)
	}
}

func (b *Backend) EmitSpill(k bytecode.ValueKind, slot int, r baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	disp := frameDisp(slot)
	switch k {
	case bytecode.I32:
		b.asm.MovMem32Reg(RBP, disp, r)
	case bytecode.I64:
		b.asm.MovMemReg64(RBP, disp, r)
	case bytecode.F32:
		b.asm.MovssMemReg(RBP, disp, r)
	case bytecode.F64:
		b.asm.MovsdMemReg(RBP, disp, r)
	}
}

func (b *Backend) EmitFill(k bytecode.ValueKind, r baseline.Reg, slot int) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	disp := frameDisp(slot)
	switch k {
	case bytecode.I32:
		b.asm.MovRegMem32(r, RBP, disp)
	case bytecode.I64:
		b.asm.MovRegMem64(r, RBP, disp)
	case bytecode.F32:
		b.asm.MovssRegMem(r, RBP, disp)
	case bytecode.F64:
		b.asm.MovsdRegMem(r, RBP, disp)
	}
}

func (b *Backend) EmitSlotConst(k bytecode.ValueKind, slot int, bits uint64) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	disp := frameDisp(slot)
	switch k {
	case bytecode.I32, bytecode.F32:
		b.asm.MovMem32Imm32(RBP, disp, int32(bits))
	case bytecode.I64, bytecode.F64:
		if int64(bits) == int64(int32(bits)) {
			b.asm.MovMemImm32(RBP, disp, int32(bits))
			return
		}
		s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
		b.asm.MovRegImm64(s, bits)
		b.asm.MovMemReg64(RBP, disp, s)
		b.ctx.Alloc.Release(bytecode.ClassInt, s)
	}
}

func (b *Backend) EmitLoadStackArg(k bytecode.ValueKind, r baseline.Reg, slot int) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	disp := stackArgDisp(slot)
	switch k {
	case bytecode.I32:
		b.asm.MovRegMem32(r, RBP, disp)
	case bytecode.I64:
		b.asm.MovRegMem64(r, RBP, disp)
	case bytecode.F32:
		b.asm.MovssRegMem(r, RBP, disp)
	case bytecode.F64:
		b.asm.MovsdRegMem(r, RBP, disp)
	}
}
