package x64

import (
	"fmt"

	"flint/pkg/baseline"
	"flint/pkg/bytecode"
)

// IEEE bit patterns of the exact float representations of the integer
// minimums, used to tell a genuine INT_MIN truncation apart from an
// out-of-range one.
const (
	f32BitsMinI32 = 0xCF000000         // (float)-2^31
	f64BitsMinI32 = 0xC1E0000000000000 // (double)-2^31
	f32BitsMinI64 = 0xDF000000         // (float)-2^63
	f64BitsMinI64 = 0xC3E0000000000000 // (double)-2^63
)

// EmitFloatBinop lowers the two-operand float forms in place on the
// left operand. Min and max branch on the compare outcome so NaN
// propagates and the signed-zero cases come out right; the hardware
// minss/maxss pick whichever operand is second, which is neither.
func (b *Backend) EmitFloatBinop(op baseline.FloatBinOp, k bytecode.ValueKind, dst, lhs, rhs baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if dst != lhs {
		panic("x64: float binop destination must alias the left operand")
	}
	w := k == bytecode.F64
	switch op {
	case baseline.FloatAdd:
		if w {
			b.asm.Addsd(dst, rhs)
		} else {
			b.asm.Addss(dst, rhs)
		}
	case baseline.FloatSub:
		if w {
			b.asm.Subsd(dst, rhs)
		} else {
			b.asm.Subss(dst, rhs)
		}
	case baseline.FloatMul:
		if w {
			b.asm.Mulsd(dst, rhs)
		} else {
			b.asm.Mulss(dst, rhs)
		}
	case baseline.FloatDiv:
		if w {
			b.asm.Divsd(dst, rhs)
		} else {
			b.asm.Divss(dst, rhs)
		}
	case baseline.FloatMin:
		b.emitMinMax(w, dst, rhs, true)
	case baseline.FloatMax:
		b.emitMinMax(w, dst, rhs, false)
	case baseline.FloatCopysign:
		b.emitCopysign(w, dst, rhs)
	default:
		panic(fmt.Sprintf("x64: unknown float binop %d", op))
	}
}

func (b *Backend) ucomis(w bool, left, right baseline.Reg) {
	if w {
		b.asm.Ucomisd(left, right)
	} else {
		b.asm.Ucomiss(left, right)
	}
}

func (b *Backend) emitMinMax(w bool, dst, rhs baseline.Reg, isMin bool) {
	b.ucomis(w, dst, rhs)
	nan := b.jcc8(0x7A) // jp: either side NaN
	var keep, take int
	if isMin {
		take = b.jcc8(0x77) // ja: dst > rhs
		keep = b.jcc8(0x72) // jb: dst < rhs
	} else {
		keep = b.jcc8(0x77)
		take = b.jcc8(0x72)
	}
	// Equal, possibly -0 against +0. OR keeps a negative zero for min,
	// AND drops it for max.
	if isMin {
		b.asm.Orps(dst, rhs)
	} else {
		b.asm.Andps(dst, rhs)
	}
	done1 := b.jmp8()
	b.patch8(take)
	b.asm.MovapsRegReg(dst, rhs)
	done2 := b.jmp8()
	b.patch8(nan)
	// Arithmetic on a NaN operand yields a quiet NaN result.
	if w {
		b.asm.Addsd(dst, rhs)
	} else {
		b.asm.Addss(dst, rhs)
	}
	b.patch8(keep)
	b.patch8(done1)
	b.patch8(done2)
}

func (b *Backend) emitCopysign(w bool, dst, rhs baseline.Reg) {
	s1 := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
	s2 := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, baseline.SetOf(s1))
	if w {
		b.asm.MovqRegXmm(s1, dst)
		b.asm.MovqRegXmm(s2, rhs)
		b.asm.ShlRegImm8(s1, 1)
		b.asm.ShrRegImm8(s1, 1)
		b.asm.ShrRegImm8(s2, 63)
		b.asm.ShlRegImm8(s2, 63)
		b.asm.OrRegReg(s1, s2)
		b.asm.MovqXmmReg(dst, s1)
	} else {
		b.asm.MovdRegXmm(s1, dst)
		b.asm.MovdRegXmm(s2, rhs)
		b.asm.And32RegImm32(s1, 0x7FFFFFFF)
		b.asm.And32RegImm32(s2, -0x80000000)
		b.asm.OrRegReg32(s1, s2)
		b.asm.MovdXmmReg(dst, s1)
	}
	b.ctx.Alloc.Release(bytecode.ClassInt, s2)
	b.ctx.Alloc.Release(bytecode.ClassInt, s1)
}

// EmitFloatUnop lowers the single-operand float forms in place. The
// rounding family needs SSE4.1 and trips a bailout without it.
func (b *Backend) EmitFloatUnop(op baseline.FloatUnOp, k bytecode.ValueKind, dst, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if dst != src {
		panic("x64: float unop operates in place")
	}
	w := k == bytecode.F64
	switch op {
	case baseline.FloatAbs:
		s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
		if w {
			b.asm.MovqRegXmm(s, src)
			b.asm.ShlRegImm8(s, 1)
			b.asm.ShrRegImm8(s, 1)
			b.asm.MovqXmmReg(dst, s)
		} else {
			b.asm.MovdRegXmm(s, src)
			b.asm.And32RegImm32(s, 0x7FFFFFFF)
			b.asm.MovdXmmReg(dst, s)
		}
		b.ctx.Alloc.Release(bytecode.ClassInt, s)
	case baseline.FloatNeg:
		s := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, 0)
		if w {
			s2 := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, baseline.SetOf(s))
			b.asm.MovqRegXmm(s, src)
			b.asm.MovRegImm64(s2, 0x8000000000000000)
			b.asm.XorRegReg(s, s2)
			b.asm.MovqXmmReg(dst, s)
			b.ctx.Alloc.Release(bytecode.ClassInt, s2)
		} else {
			b.asm.MovdRegXmm(s, src)
			b.asm.Xor32RegImm32(s, -0x80000000)
			b.asm.MovdXmmReg(dst, s)
		}
		b.ctx.Alloc.Release(bytecode.ClassInt, s)
	case baseline.FloatSqrt:
		if w {
			b.asm.Sqrtsd(dst, src)
		} else {
			b.asm.Sqrtss(dst, src)
		}
	case baseline.FloatCeil:
		b.emitRound(w, dst, src, 2)
	case baseline.FloatFloor:
		b.emitRound(w, dst, src, 1)
	case baseline.FloatTrunc:
		b.emitRound(w, dst, src, 3)
	case baseline.FloatNearest:
		b.emitRound(w, dst, src, 0)
	default:
		panic(fmt.Sprintf("x64: unknown float unop %d", op))
	}
}

func (b *Backend) emitRound(w bool, dst, src baseline.Reg, mode byte) {
	if !b.feats.SSE41 {
		b.ctx.Bailout.Trip("float rounding", "SSE4.1 not supported on this CPU")
		return
	}
	if w {
		b.asm.Roundsd(dst, src, mode)
	} else {
		b.asm.Roundss(dst, src, mode)
	}
}

// EmitFloatCmp materializes an ordered comparison as 0 or 1 in a GP
// register. Unordered operands produce 0 except for ne, where they
// produce 1. Strict and non-strict less-than swap the operands so the
// condition reads off CF alone, which NaN forces to the false side.
func (b *Backend) EmitFloatCmp(cond baseline.Cond, k bytecode.ValueKind, dst, lhs, rhs baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	w := k == bytecode.F64
	switch cond {
	case baseline.CondEq:
		b.ucomis(w, lhs, rhs)
		b.asm.MovRegImm32(dst, 0)
		skip := b.jcc8(0x7A) // jp: NaN compares false
		b.asm.Sete(dst)
		b.patch8(skip)
	case baseline.CondNe:
		b.ucomis(w, lhs, rhs)
		b.asm.MovRegImm32(dst, 1)
		skip := b.jcc8(0x7A) // jp: NaN compares true
		b.asm.Setne(dst)
		b.patch8(skip)
	case baseline.CondGt:
		b.ucomis(w, lhs, rhs)
		b.asm.MovRegImm32(dst, 0)
		b.asm.Seta(dst)
	case baseline.CondGe:
		b.ucomis(w, lhs, rhs)
		b.asm.MovRegImm32(dst, 0)
		b.asm.Setae(dst)
	case baseline.CondLt:
		b.ucomis(w, rhs, lhs)
		b.asm.MovRegImm32(dst, 0)
		b.asm.Seta(dst)
	case baseline.CondLe:
		b.ucomis(w, rhs, lhs)
		b.asm.MovRegImm32(dst, 0)
		b.asm.Setae(dst)
	default:
		panic(fmt.Sprintf("x64: unordered condition %d on floats", cond))
	}
}

// EmitFloatFromInt converts a signed integer to float.
func (b *Backend) EmitFloatFromInt(dstK bytecode.ValueKind, dst baseline.Reg, srcK bytecode.ValueKind, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	switch {
	case dstK == bytecode.F32 && srcK == bytecode.I32:
		b.asm.Cvtsi2ss32(dst, src)
	case dstK == bytecode.F32 && srcK == bytecode.I64:
		b.asm.Cvtsi2ss64(dst, src)
	case dstK == bytecode.F64 && srcK == bytecode.I32:
		b.asm.Cvtsi2sd32(dst, src)
	case dstK == bytecode.F64 && srcK == bytecode.I64:
		b.asm.Cvtsi2sd64(dst, src)
	default:
		panic(fmt.Sprintf("x64: bad conversion %s from %s", dstK, srcK))
	}
}

// EmitIntFromFloat truncates toward zero with overflow and NaN traps.
// The cvtt instructions report every failure as the integer minimum, so
// that sentinel forces a second look: only an operand exactly equal to
// the minimum's float image may produce it.
func (b *Backend) EmitIntFromFloat(dstK bytecode.ValueKind, dst baseline.Reg, srcK bytecode.ValueKind, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	gp := b.ctx.Alloc.AcquireRegister(bytecode.ClassInt, baseline.SetOf(dst))
	xs := b.ctx.Alloc.AcquireRegister(bytecode.ClassFloat, baseline.SetOf(src))
	overflow := b.trapLabel(baseline.TrapIntegerOverflow)
	wSrc := srcK == bytecode.F64

	if dstK == bytecode.I32 {
		if wSrc {
			b.asm.Cvttsd2si32(dst, src)
		} else {
			b.asm.Cvttss2si32(dst, src)
		}
		b.asm.Cmp32RegImm32(dst, -0x80000000)
		ok := b.jcc8(0x75) // jne: ordinary result
		if wSrc {
			b.asm.MovRegImm64(gp, f64BitsMinI32)
			b.asm.MovqXmmReg(xs, gp)
		} else {
			b.asm.MovRegImm32(gp, f32BitsMinI32)
			b.asm.MovdXmmReg(xs, gp)
		}
		b.ucomis(wSrc, src, xs)
		b.jccNear(0x8A, overflow) // jp: NaN
		b.jccNear(0x85, overflow) // jne: out of range
		b.patch8(ok)
	} else {
		if wSrc {
			b.asm.Cvttsd2si64(dst, src)
		} else {
			b.asm.Cvttss2si64(dst, src)
		}
		b.asm.MovRegImm64(gp, 0x8000000000000000)
		b.asm.CmpRegReg(dst, gp)
		ok := b.jcc8(0x75)
		if wSrc {
			b.asm.MovRegImm64(gp, f64BitsMinI64)
			b.asm.MovqXmmReg(xs, gp)
		} else {
			b.asm.MovRegImm32(gp, f32BitsMinI64)
			b.asm.MovdXmmReg(xs, gp)
		}
		b.ucomis(wSrc, src, xs)
		b.jccNear(0x8A, overflow)
		b.jccNear(0x85, overflow)
		b.patch8(ok)
	}

	b.ctx.Alloc.Release(bytecode.ClassFloat, xs)
	b.ctx.Alloc.Release(bytecode.ClassInt, gp)
}

// EmitFloatConvert changes float precision; dstK names the target.
func (b *Backend) EmitFloatConvert(dstK bytecode.ValueKind, dst, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	if dstK == bytecode.F64 {
		b.asm.Cvtss2sd(dst, src)
	} else {
		b.asm.Cvtsd2ss(dst, src)
	}
}

// EmitReinterpret moves raw bits between register classes.
func (b *Backend) EmitReinterpret(dstK bytecode.ValueKind, dst, src baseline.Reg) {
	if b.ctx.Bailout.Bailed() {
		return
	}
	switch dstK {
	case bytecode.I32:
		b.asm.MovdRegXmm(dst, src)
	case bytecode.I64:
		b.asm.MovqRegXmm(dst, src)
	case bytecode.F32:
		b.asm.MovdXmmReg(dst, src)
	case bytecode.F64:
		b.asm.MovqXmmReg(dst, src)
	}
}
