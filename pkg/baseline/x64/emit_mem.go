package x64

import (
	"fmt"

	"flint/pkg/baseline"
	"flint/pkg/bytecode"
)

// Linear-memory access leans on the runtime's guard region: no bounds
// compare is emitted; instead every access records a trap site so the
// fault handler can map the faulting PC to the out-of-bounds stub. The
// index register always holds a zero-extended 32-bit address, so adding
// a displacement of at most 2^31-1 cannot escape the guarded span.
// Larger static offsets fold into a scratch register first.

// recordMemTrap marks the next emitted instruction as a faulting access.
func (b *Backend) recordMemTrap() {
	b.trapLabel(baseline.TrapMemoryOutOfBounds) // make sure the stub exists
	b.memTraps = append(b.memTraps, len(b.ctx.Meta.Traps))
	b.ctx.Meta.Traps = append(b.ctx.Meta.Traps, baseline.TrapSite{
		Offset:   b.asm.Offset(),
		Kind:     baseline.TrapMemoryOutOfBounds,
		Recovery: -1,
	})
}

// EmitLoad loads from [base + index + offset]. The destination and the
// index are held by the caller; scratch is taken from the allocator
// when the offset does not fit an addressing-mode displacement.
func (b *Backend) EmitLoad(lk baseline.LoadKind, dst, base, index baseline.Reg, offset uint32) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if offset <= 0x7FFFFFFF {
		b.recordMemTrap()
		b.emitLoadIdx(lk, dst, base, index, int32(offset))
		return
	}
	s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
	b.asm.MovRegImm32(s, offset)
	b.asm.AddRegReg(s, index)
	b.recordMemTrap()
	b.emitLoadIdx(lk, dst, base, s, 0)
	b.ctx.Alloc.Release(bytecode.ClassInt, s)
}

func (b *Backend) emitLoadIdx(lk baseline.LoadKind, dst, base, index baseline.Reg, disp int32) {
	switch lk {
	case baseline.Load32, baseline.Load32U64:
		b.asm.MovRegMemIdx32(dst, base, index, disp)
	case baseline.Load64:
		b.asm.MovRegMemIdx64(dst, base, index, disp)
	case baseline.LoadF32:
		b.asm.MovssRegMemIdx(dst, base, index, disp)
	case baseline.LoadF64:
		b.asm.MovsdRegMemIdx(dst, base, index, disp)
	case baseline.Load8S32:
		b.asm.MovsxRegMemIdx8_32(dst, base, index, disp)
	case baseline.Load8U32, baseline.Load8U64:
		b.asm.MovzxRegMemIdx8(dst, base, index, disp)
	case baseline.Load16S32:
		b.asm.MovsxRegMemIdx16_32(dst, base, index, disp)
	case baseline.Load16U32, baseline.Load16U64:
		b.asm.MovzxRegMemIdx16(dst, base, index, disp)
	case baseline.Load8S64:
		b.asm.MovsxRegMemIdx8_64(dst, base, index, disp)
	case baseline.Load16S64:
		b.asm.MovsxRegMemIdx16_64(dst, base, index, disp)
	case baseline.Load32S64:
		b.asm.MovsxdRegMemIdx(dst, base, index, disp)
	default:
		panic(fmt.Sprintf("x64: unknown load kind %d", lk))
	}
}

// EmitStore stores src to [base + index + offset].
func (b *Backend) EmitStore(sk baseline.StoreKind, base, index baseline.Reg, offset uint32, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if offset <= 0x7FFFFFFF {
		b.recordMemTrap()
		b.emitStoreIdx(sk, base, index, int32(offset), src)
		return
	}
	s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
	b.asm.MovRegImm32(s, offset)
	b.asm.AddRegReg(s, index)
	b.recordMemTrap()
	b.emitStoreIdx(sk, base, s, 0, src)
	b.ctx.Alloc.Release(bytecode.ClassInt, s)
}

func (b *Backend) emitStoreIdx(sk baseline.StoreKind, base, index baseline.Reg, disp int32, src baseline.Reg) {
	switch sk {
	case baseline.Store32:
		b.asm.MovMemIdxReg32(base, index, disp, src)
	case baseline.Store64:
		b.asm.MovMemIdxReg64(base, index, disp, src)
	case baseline.StoreF32:
		b.asm.MovssMemIdxReg(base, index, disp, src)
	case baseline.StoreF64:
		b.asm.MovsdMemIdxReg(base, index, disp, src)
	case baseline.Store8:
		b.asm.MovMemIdxReg8(base, index, disp, src)
	case baseline.Store16:
		b.asm.MovMemIdxReg16(base, index, disp, src)
	default:
		panic(fmt.Sprintf("x64: unknown store kind %d", sk))
	}
}
