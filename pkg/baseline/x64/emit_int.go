package x64

import (
	"fmt"

	"flint/pkg/baseline"
	"flint/pkg/bytecode"
)

// EmitIntBinop lowers the plain ALU forms. The destination aliases the
// left operand; shift and rotate counts must already sit in CL.
func (b *Backend) EmitIntBinop(op baseline.IntBinOp, k bytecode.ValueKind, dst, lhs, rhs baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if dst != lhs {
		panic("x64: integer binop destination must alias the left operand")
	}
	w := k.Is64()
	switch op {
	case baseline.IntAdd:
		if w {
			b.asm.AddRegReg(dst, rhs)
		} else {
			b.asm.AddRegReg32(dst, rhs)
		}
	case baseline.IntSub:
		if w {
			b.asm.SubRegReg(dst, rhs)
		} else {
			b.asm.SubRegReg32(dst, rhs)
		}
	case baseline.IntMul:
		if w {
			b.asm.IMulRegReg(dst, rhs)
		} else {
			b.asm.IMulRegReg32(dst, rhs)
		}
	case baseline.IntAnd:
		if w {
			b.asm.AndRegReg(dst, rhs)
		} else {
			b.asm.AndRegReg32(dst, rhs)
		}
	case baseline.IntOr:
		if w {
			b.asm.OrRegReg(dst, rhs)
		} else {
			b.asm.OrRegReg32(dst, rhs)
		}
	case baseline.IntXor:
		if w {
			b.asm.XorRegReg(dst, rhs)
		} else {
			b.asm.XorRegReg32(dst, rhs)
		}
	case baseline.IntShl, baseline.IntShrS, baseline.IntShrU, baseline.IntRotl, baseline.IntRotr:
		b.emitShift(op, w, dst, rhs)
	default:
		panic(fmt.Sprintf("x64: unknown integer binop %d", op))
	}
}

// emitShift relies on the hardware masking the count to the operand
// width, which matches the bytecode's modulo semantics.
func (b *Backend) emitShift(op baseline.IntBinOp, w bool, dst, count baseline.Reg) {
	if count != RCX {
		panic("x64: shift count must be in RCX")
	}
	switch op {
	case baseline.IntShl:
		if w {
			b.asm.ShlRegCL(dst)
		} else {
			b.asm.Shl32RegCL(dst)
		}
	case baseline.IntShrS:
		if w {
			b.asm.SarRegCL(dst)
		} else {
			b.asm.Sar32RegCL(dst)
		}
	case baseline.IntShrU:
		if w {
			b.asm.ShrRegCL(dst)
		} else {
			b.asm.Shr32RegCL(dst)
		}
	case baseline.IntRotl:
		if w {
			b.asm.RolRegCL(dst)
		} else {
			b.asm.Rol32RegCL(dst)
		}
	case baseline.IntRotr:
		if w {
			b.asm.RorRegCL(dst)
		} else {
			b.asm.Ror32RegCL(dst)
		}
	}
}

// EmitIntDiv lowers division and remainder. The dividend must be in RAX
// and RDX must be reserved; quotients land in RAX, remainders in RDX.
// Division by zero traps, as does INT_MIN/-1 for signed division;
// INT_MIN%-1 short-circuits to zero because idiv would fault on it.
func (b *Backend) EmitIntDiv(op baseline.IntDivOp, k bytecode.ValueKind, lhs, rhs baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if lhs != RAX {
		panic("x64: dividend must be in RAX")
	}
	w := k.Is64()

	var minScratch baseline.Reg
	if op == baseline.DivS && w {
		// Claimed ahead of the flag-setting sequence; spilling later
		// would not clobber flags, but the watermark store would land
		// mid-sequence.
		minScratch = b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, baseline.SetOf(RAX, RDX, rhs))
		defer b.ctx.Alloc.Release(bytecode.ClassInt, minScratch)
	}

	if w {
		b.asm.TestRegReg(rhs, rhs)
	} else {
		b.asm.TestRegReg32(rhs, rhs)
	}
	b.jccNear(0x84, b.trapLabel(baseline.TrapDivideByZero)) // je

	switch op {
	case baseline.DivS:
		if w {
			b.asm.CmpRegImm32(rhs, -1)
			skip := b.jcc8(0x75) // jne
			b.asm.MovRegImm64(minScratch, 0x8000000000000000)
			b.asm.CmpRegReg(RAX, minScratch)
			b.jccNear(0x84, b.trapLabel(baseline.TrapIntegerOverflow))
			b.patch8(skip)
			b.asm.Cqo()
			b.asm.IDiv(rhs)
		} else {
			b.asm.Cmp32RegImm32(rhs, -1)
			skip := b.jcc8(0x75)
			b.asm.Cmp32RegImm32(RAX, -0x80000000)
			b.jccNear(0x84, b.trapLabel(baseline.TrapIntegerOverflow))
			b.patch8(skip)
			b.asm.Cdq()
			b.asm.IDiv32(rhs)
		}
	case baseline.DivU:
		b.asm.XorRegReg32(RDX, RDX)
		if w {
			b.asm.Div(rhs)
		} else {
			b.asm.Div32(rhs)
		}
	case baseline.RemS:
		if w {
			b.asm.CmpRegImm32(rhs, -1)
		} else {
			b.asm.Cmp32RegImm32(rhs, -1)
		}
		hard := b.jcc8(0x75) // jne
		b.asm.XorRegReg32(RDX, RDX)
		done := b.jmp8()
		b.patch8(hard)
		if w {
			b.asm.Cqo()
			b.asm.IDiv(rhs)
		} else {
			b.asm.Cdq()
			b.asm.IDiv32(rhs)
		}
		b.patch8(done)
	case baseline.RemU:
		b.asm.XorRegReg32(RDX, RDX)
		if w {
			b.asm.Div(rhs)
		} else {
			b.asm.Div32(rhs)
		}
	}
}

// EmitIntUnop lowers clz, ctz, and popcnt in place. The bit scans use
// the BSR/BSF + cmov form, which is correct on every x86-64; popcnt has
// no compact fallback and trips a bailout when the CPU lacks it.
func (b *Backend) EmitIntUnop(op baseline.IntUnOp, k bytecode.ValueKind, dst, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if dst != src {
		panic("x64: integer unop operates in place")
	}
	w := k.Is64()
	switch op {
	case baseline.IntClz:
		s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, baseline.SetOf(dst))
		if w {
			b.asm.BsrRegReg(s, src)
			b.asm.MovRegImm32(dst, 127)
			b.asm.Cmovne(dst, s)
			b.asm.Xor32RegImm32(dst, 63)
		} else {
			b.asm.Bsr32RegReg(s, src)
			b.asm.MovRegImm32(dst, 63)
			b.asm.Cmovne(dst, s)
			b.asm.Xor32RegImm32(dst, 31)
		}
		b.ctx.Alloc.Release(bytecode.ClassInt, s)
	case baseline.IntCtz:
		s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, baseline.SetOf(dst))
		if w {
			b.asm.BsfRegReg(s, src)
			b.asm.MovRegImm32(dst, 64)
		} else {
			b.asm.Bsf32RegReg(s, src)
			b.asm.MovRegImm32(dst, 32)
		}
		b.asm.Cmovne(dst, s)
		b.ctx.Alloc.Release(bytecode.ClassInt, s)
	case baseline.IntPopcnt:
		if !b.feats.POPCNT {
			b.ctx.Bailout.Trip("popcnt", "not supported on this CPU")
			return
		}
		if w {
			b.asm.Popcnt(dst, src)
		} else {
			b.asm.Popcnt32(dst, src)
		}
	}
}

// EmitIntCmp materializes a comparison as 0 or 1. The destination
// aliases the left operand.
func (b *Backend) EmitIntCmp(cond baseline.Cond, k bytecode.ValueKind, dst, lhs, rhs baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if dst != lhs {
		panic("x64: integer compare destination must alias the left operand")
	}
	if k.Is64() {
		b.asm.CmpRegReg(lhs, rhs)
	} else {
		b.asm.CmpRegReg32(lhs, rhs)
	}
	b.emitSetcc(cond, dst)
	b.asm.MovzxRegReg8(dst, dst)
}

func (b *Backend) emitSetcc(cond baseline.Cond, dst baseline.Reg) {
	switch cond {
	case baseline.CondEq:
		b.asm.Sete(dst)
	case baseline.CondNe:
		b.asm.Setne(dst)
	case baseline.CondLt:
		b.asm.Setl(dst)
	case baseline.CondLtU:
		b.asm.Setb(dst)
	case baseline.CondGt:
		b.asm.Setg(dst)
	case baseline.CondGtU:
		b.asm.Seta(dst)
	case baseline.CondLe:
		b.asm.Setle(dst)
	case baseline.CondLeU:
		b.asm.Setbe(dst)
	case baseline.CondGe:
		b.asm.Setge(dst)
	case baseline.CondGeU:
		b.asm.Setae(dst)
	default:
		panic(fmt.Sprintf("x64: unknown condition %d", cond))
	}
}

// EmitEqz materializes src == 0 in place.
func (b *Backend) EmitEqz(k bytecode.ValueKind, dst, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if k.Is64() {
		b.asm.TestRegReg(src, src)
	} else {
		b.asm.TestRegReg32(src, src)
	}
	b.asm.Sete(dst)
	b.asm.MovzxRegReg8(dst, dst)
}

// EmitSelect keeps dst when cond is nonzero and takes other when it is
// zero. Integer selects compile to cmov; floats use a short branch.
func (b *Backend) EmitSelect(k bytecode.ValueKind, dst, cond, other baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	b.asm.TestRegReg32(cond, cond)
	if k.Class() == bytecode.ClassInt {
		b.asm.Cmove(dst, other)
		return
	}
	skip := b.jcc8(0x75) // jne
	b.asm.MovapsRegReg(dst, other)
	b.patch8(skip)
}

// EmitExtend lowers the width changes. Wrapping re-emits the 32-bit
// move even when dst == src because it must clear the upper half.
func (b *Backend) EmitExtend(op baseline.ExtendOp, dst, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	switch op {
	case baseline.ExtWrap64To32, baseline.ExtU32To64:
		b.asm.MovRegReg32(dst, src)
	case baseline.ExtS8To32:
		b.asm.MovsxRegReg8_32(dst, src)
	case baseline.ExtS16To32:
		b.asm.MovsxRegReg16_32(dst, src)
	case baseline.ExtS8To64:
		b.asm.MovsxRegReg8_64(dst, src)
	case baseline.ExtS16To64:
		b.asm.MovsxRegReg16_64(dst, src)
	case baseline.ExtS32To64:
		b.asm.MovsxdRegReg(dst, src)
	default:
		panic(fmt.Sprintf("x64: unknown extension %d", op))
	}
}
