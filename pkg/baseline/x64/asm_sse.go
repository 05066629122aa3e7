package x64

import "flint/pkg/baseline"

// SSE scalar encodings. The mandatory prefix (F3/F2/66) always precedes
// the REX byte.

// sseRR emits prefix + REX(opt) + 0F + opc for an xmm,xmm pair.
func (a *Asm) sseRR(prefix byte, opc byte, dst, src baseline.Reg) {
	if prefix != 0 {
		a.emit(prefix)
	}
	a.rexOpt(dst, src)
	a.emit(0x0F, opc, modRM(0xC0, dst, src))
}

// MovapsRegReg: movaps dst, src (full-register xmm move)
func (a *Asm) MovapsRegReg(dst, src baseline.Reg) {
	a.sseRR(0, 0x28, dst, src)
}

// MovssRegMem: movss xmm, [base + disp]
func (a *Asm) MovssRegMem(reg, base baseline.Reg, disp int32) {
	a.emit(0xF3)
	a.rexOpt(reg, base)
	a.emit(0x0F, 0x10)
	a.emitMemOperand(reg, base, disp)
}

// MovssMemReg: movss [base + disp], xmm
func (a *Asm) MovssMemReg(base baseline.Reg, disp int32, reg baseline.Reg) {
	a.emit(0xF3)
	a.rexOpt(reg, base)
	a.emit(0x0F, 0x11)
	a.emitMemOperand(reg, base, disp)
}

// MovsdRegMem: movsd xmm, [base + disp]
func (a *Asm) MovsdRegMem(reg, base baseline.Reg, disp int32) {
	a.emit(0xF2)
	a.rexOpt(reg, base)
	a.emit(0x0F, 0x10)
	a.emitMemOperand(reg, base, disp)
}

// MovsdMemReg: movsd [base + disp], xmm
func (a *Asm) MovsdMemReg(base baseline.Reg, disp int32, reg baseline.Reg) {
	a.emit(0xF2)
	a.rexOpt(reg, base)
	a.emit(0x0F, 0x11)
	a.emitMemOperand(reg, base, disp)
}

// MovssRegMemIdx: movss xmm, [base + index + disp]
func (a *Asm) MovssRegMemIdx(reg, base, index baseline.Reg, disp int32) {
	a.emit(0xF3)
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0x10)
	a.emitMemIndex(reg, base, index, disp)
}

// MovssMemIdxReg: movss [base + index + disp], xmm
func (a *Asm) MovssMemIdxReg(base, index baseline.Reg, disp int32, reg baseline.Reg) {
	a.emit(0xF3)
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0x11)
	a.emitMemIndex(reg, base, index, disp)
}

// MovsdRegMemIdx: movsd xmm, [base + index + disp]
func (a *Asm) MovsdRegMemIdx(reg, base, index baseline.Reg, disp int32) {
	a.emit(0xF2)
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0x10)
	a.emitMemIndex(reg, base, index, disp)
}

// MovsdMemIdxReg: movsd [base + index + disp], xmm
func (a *Asm) MovsdMemIdxReg(base, index baseline.Reg, disp int32, reg baseline.Reg) {
	a.emit(0xF2)
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0x11)
	a.emitMemIndex(reg, base, index, disp)
}

// MovdXmmReg: movd xmm, reg32
func (a *Asm) MovdXmmReg(dst, src baseline.Reg) {
	a.emit(0x66)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0x6E, modRM(0xC0, dst, src))
}

// MovdRegXmm: movd reg32, xmm (zero-extends to 64-bit)
func (a *Asm) MovdRegXmm(dst, src baseline.Reg) {
	a.emit(0x66)
	a.rexOpt(src, dst)
	a.emit(0x0F, 0x7E, modRM(0xC0, src, dst))
}

// MovqXmmReg: movq xmm, reg64
func (a *Asm) MovqXmmReg(dst, src baseline.Reg) {
	a.emit(0x66, rexW(dst, src), 0x0F, 0x6E, modRM(0xC0, dst, src))
}

// MovqRegXmm: movq reg64, xmm
func (a *Asm) MovqRegXmm(dst, src baseline.Reg) {
	a.emit(0x66, rexW(src, dst), 0x0F, 0x7E, modRM(0xC0, src, dst))
}

// ---- scalar arithmetic ----

func (a *Asm) Addss(dst, src baseline.Reg) { a.sseRR(0xF3, 0x58, dst, src) }
func (a *Asm) Addsd(dst, src baseline.Reg) { a.sseRR(0xF2, 0x58, dst, src) }
func (a *Asm) Subss(dst, src baseline.Reg) { a.sseRR(0xF3, 0x5C, dst, src) }
func (a *Asm) Subsd(dst, src baseline.Reg) { a.sseRR(0xF2, 0x5C, dst, src) }
func (a *Asm) Mulss(dst, src baseline.Reg) { a.sseRR(0xF3, 0x59, dst, src) }
func (a *Asm) Mulsd(dst, src baseline.Reg) { a.sseRR(0xF2, 0x59, dst, src) }
func (a *Asm) Divss(dst, src baseline.Reg) { a.sseRR(0xF3, 0x5E, dst, src) }
func (a *Asm) Divsd(dst, src baseline.Reg) { a.sseRR(0xF2, 0x5E, dst, src) }

// Sqrtss: sqrtss dst, src
func (a *Asm) Sqrtss(dst, src baseline.Reg) { a.sseRR(0xF3, 0x51, dst, src) }

// Sqrtsd: sqrtsd dst, src
func (a *Asm) Sqrtsd(dst, src baseline.Reg) { a.sseRR(0xF2, 0x51, dst, src) }

// ---- comparisons ----

// Ucomiss: ucomiss left, right (sets ZF/PF/CF)
func (a *Asm) Ucomiss(left, right baseline.Reg) { a.sseRR(0, 0x2E, left, right) }

// Ucomisd: ucomisd left, right
func (a *Asm) Ucomisd(left, right baseline.Reg) { a.sseRR(0x66, 0x2E, left, right) }

// ---- conversions ----

// Cvtsi2ss32: cvtsi2ss xmm, reg32
func (a *Asm) Cvtsi2ss32(dst, src baseline.Reg) {
	a.emit(0xF3)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0x2A, modRM(0xC0, dst, src))
}

// Cvtsi2ss64: cvtsi2ss xmm, reg64
func (a *Asm) Cvtsi2ss64(dst, src baseline.Reg) {
	a.emit(0xF3, rexW(dst, src), 0x0F, 0x2A, modRM(0xC0, dst, src))
}

// Cvtsi2sd32: cvtsi2sd xmm, reg32
func (a *Asm) Cvtsi2sd32(dst, src baseline.Reg) {
	a.emit(0xF2)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0x2A, modRM(0xC0, dst, src))
}

// Cvtsi2sd64: cvtsi2sd xmm, reg64
func (a *Asm) Cvtsi2sd64(dst, src baseline.Reg) {
	a.emit(0xF2, rexW(dst, src), 0x0F, 0x2A, modRM(0xC0, dst, src))
}

// Cvttss2si32: cvttss2si reg32, xmm (truncating)
func (a *Asm) Cvttss2si32(dst, src baseline.Reg) {
	a.emit(0xF3)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0x2C, modRM(0xC0, dst, src))
}

// Cvttss2si64: cvttss2si reg64, xmm
func (a *Asm) Cvttss2si64(dst, src baseline.Reg) {
	a.emit(0xF3, rexW(dst, src), 0x0F, 0x2C, modRM(0xC0, dst, src))
}

// Cvttsd2si32: cvttsd2si reg32, xmm
func (a *Asm) Cvttsd2si32(dst, src baseline.Reg) {
	a.emit(0xF2)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0x2C, modRM(0xC0, dst, src))
}

// Cvttsd2si64: cvttsd2si reg64, xmm
func (a *Asm) Cvttsd2si64(dst, src baseline.Reg) {
	a.emit(0xF2, rexW(dst, src), 0x0F, 0x2C, modRM(0xC0, dst, src))
}

// Cvtss2sd: cvtss2sd dst, src
func (a *Asm) Cvtss2sd(dst, src baseline.Reg) { a.sseRR(0xF3, 0x5A, dst, src) }

// Cvtsd2ss: cvtsd2ss dst, src
func (a *Asm) Cvtsd2ss(dst, src baseline.Reg) { a.sseRR(0xF2, 0x5A, dst, src) }

// ---- SSE4.1 rounding ----

// Roundss: roundss dst, src, mode (0=nearest 1=floor 2=ceil 3=trunc)
func (a *Asm) Roundss(dst, src baseline.Reg, mode byte) {
	a.emit(0x66)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0x3A, 0x0A, modRM(0xC0, dst, src), mode)
}

// Roundsd: roundsd dst, src, mode
func (a *Asm) Roundsd(dst, src baseline.Reg, mode byte) {
	a.emit(0x66)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0x3A, 0x0B, modRM(0xC0, dst, src), mode)
}

// ---- packed bitwise (used on scalars) ----

func (a *Asm) Andps(dst, src baseline.Reg) { a.sseRR(0, 0x54, dst, src) }
func (a *Asm) Orps(dst, src baseline.Reg)  { a.sseRR(0, 0x56, dst, src) }
func (a *Asm) Xorps(dst, src baseline.Reg) { a.sseRR(0, 0x57, dst, src) }
