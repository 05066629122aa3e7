package x64

import (
	"flint/pkg/baseline"
	"flint/pkg/bytecode"
)

// Calls clobber every allocatable register, so the driver flushes the
// operand stack before asking for any of these. Outgoing stack
// arguments live below RSP for the duration of the call; EmitCallBegin
// and EmitCallEnd bracket the adjustment.

func (b *Backend) EmitCallBegin(outBytes int) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if outBytes > 0 {
		b.asm.SubRegImm32(RSP, int32(outBytes))
	}
}

func (b *Backend) EmitCallEnd(outBytes int) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if outBytes > 0 {
		b.asm.AddRegImm32(RSP, int32(outBytes))
	}
}

// EmitOutgoingStackArg stores src into the outgoing argument area
// reserved by EmitCallBegin. Slots are 8 bytes wide regardless of kind.
func (b *Backend) EmitOutgoingStackArg(k bytecode.ValueKind, slot int, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	disp := int32(slot) * 8
	switch k {
	case bytecode.I32:
		b.asm.MovMem32Reg(RSP, disp, src)
	case bytecode.I64:
		b.asm.MovMemReg64(RSP, disp, src)
	case bytecode.F32:
		b.asm.MovssMemReg(RSP, disp, src)
	case bytecode.F64:
		b.asm.MovsdMemReg(RSP, disp, src)
	}
}

// EmitCallDirect emits a relative call to another function in the same
// module. The callee's address is not known yet, so the displacement is
// left zero and a relocation records where the loader must patch.
func (b *Backend) EmitCallDirect(fn uint32) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.ctx.Meta.Relocs = append(b.ctx.Meta.Relocs, baseline.Reloc{
		Offset: b.asm.Offset() + 1,
		Func:   fn,
	})
	b.asm.CallRel32(0)
}

// EmitCallHost calls through the host function table hanging off the
// instance. R10 is reserved by the driver for the duration of the call
// sequence and is free to clobber here.
func (b *Backend) EmitCallHost(host uint32) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.MovRegMem64(R10, R14, instHostTable)
	b.asm.MovRegMem64(R10, R10, int32(host)*8)
	b.asm.CallReg(R10)
}

// EmitIndirectTarget checks index against the dispatch table, verifies
// the stored signature id, and loads the code address into dst. The
// index register is clobbered. Vacant table entries carry a signature
// id no module can produce, so the signature compare also rejects them.
func (b *Backend) EmitIndirectTarget(dst, index baseline.Reg, expectedSig uint32) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	bad := b.trapLabel(baseline.TrapBadIndirectCall)
	b.asm.CmpRegMem64(index, R14, instTableLen)
	b.jccNear(0x83, bad) // jae, index is unsigned
	b.asm.MovRegMem64(dst, R14, instTableBase)
	b.asm.ShlRegImm8(index, tableEntryShift)
	b.asm.AddRegReg(dst, index)
	b.asm.CmpMem32Imm32(dst, 8, int32(expectedSig))
	b.jccNear(0x85, bad) // jne
	b.asm.MovRegMem64(dst, dst, 0)
}

// EmitCallIndirect calls the code address produced by EmitIndirectTarget.
func (b *Backend) EmitCallIndirect(target baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.CallReg(target)
}

// EmitLoadInstance loads the instance pointer from its frame slot,
// typically to pass it as the callee's hidden first argument.
func (b *Backend) EmitLoadInstance(r baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.MovRegMem64(r, RBP, -int32(baseline.BaseFrameBytes))
}

// EmitInstanceRestore reloads the pinned instance and memory base
// registers after a call may have switched instances or grown memory.
func (b *Backend) EmitInstanceRestore() {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.MovRegMem64(R14, RBP, -int32(baseline.BaseFrameBytes))
	b.asm.MovRegMem64(R15, R14, instMemoryBase)
}
