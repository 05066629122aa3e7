// Package x64 emits x86-64 machine code for the baseline compiler.
//
// Register convention: R14 holds the instance pointer and R15 the linear
// memory base; both are reloaded after calls and never allocated. 32-bit
// values are kept zero-extended in their 64-bit registers, which every
// 32-bit instruction form preserves.
package x64

import "flint/pkg/baseline"

// GP register encodings.
const (
	RAX baseline.Reg = 0
	RCX baseline.Reg = 1
	RDX baseline.Reg = 2
	RBX baseline.Reg = 3
	RSP baseline.Reg = 4
	RBP baseline.Reg = 5
	RSI baseline.Reg = 6
	RDI baseline.Reg = 7
	R8  baseline.Reg = 8
	R9  baseline.Reg = 9
	R10 baseline.Reg = 10
	R11 baseline.Reg = 11
	R12 baseline.Reg = 12
	R13 baseline.Reg = 13
	R14 baseline.Reg = 14
	R15 baseline.Reg = 15
)

// XMM register encodings. They share the 0..15 space with the GP names;
// the register class keeps them apart.
const (
	XMM0  baseline.Reg = 0
	XMM1  baseline.Reg = 1
	XMM2  baseline.Reg = 2
	XMM3  baseline.Reg = 3
	XMM4  baseline.Reg = 4
	XMM5  baseline.Reg = 5
	XMM6  baseline.Reg = 6
	XMM7  baseline.Reg = 7
	XMM8  baseline.Reg = 8
	XMM9  baseline.Reg = 9
	XMM10 baseline.Reg = 10
	XMM11 baseline.Reg = 11
	XMM12 baseline.Reg = 12
	XMM13 baseline.Reg = 13
	XMM14 baseline.Reg = 14
	XMM15 baseline.Reg = 15
)

// Asm emits x86-64 machine code into a growable buffer.
type Asm struct {
	buf *baseline.Buffer
}

func NewAsm(buf *baseline.Buffer) *Asm {
	return &Asm{buf: buf}
}

// Offset returns the current write position.
func (a *Asm) Offset() int {
	return a.buf.Len()
}

func (a *Asm) emit(bytes ...byte) {
	a.buf.Emit(bytes...)
}

func (a *Asm) emitUint32(v uint32) {
	a.buf.EmitU32(v)
}

func (a *Asm) emitUint64(v uint64) {
	a.buf.EmitU64(v)
}

func (a *Asm) emitInt32(v int32) {
	a.buf.EmitI32(v)
}

// rex builds a REX prefix: 0100WRXB.
// W=1 for 64-bit operand size
// R=1 if reg field uses R8-R15
// X=1 if SIB index uses R8-R15
// B=1 if rm field uses R8-R15
func rex(w, r, x, b bool) byte {
	var prefix byte = 0x40
	if w {
		prefix |= 0x08
	}
	if r {
		prefix |= 0x04
	}
	if x {
		prefix |= 0x02
	}
	if b {
		prefix |= 0x01
	}
	return prefix
}

// rexW returns the REX.W prefix for 64-bit operations.
func rexW(reg, rm baseline.Reg) byte {
	return rex(true, reg >= 8, false, rm >= 8)
}

// rexOpt emits a REX prefix for 32-bit operations only when an extended
// register forces one.
func (a *Asm) rexOpt(reg, rm baseline.Reg) {
	if reg >= 8 || rm >= 8 {
		a.emit(rex(false, reg >= 8, false, rm >= 8))
	}
}

// modRM builds a ModR/M byte: [mod:2][reg:3][rm:3].
// mod is pre-shifted: 0x00=no disp, 0x40=disp8, 0x80=disp32, 0xC0=register
func modRM(mod byte, reg, rm baseline.Reg) byte {
	return mod | ((byte(reg) & 7) << 3) | (byte(rm) & 7)
}

// emitMemOperand emits ModR/M and displacement for [base + disp].
func (a *Asm) emitMemOperand(reg, base baseline.Reg, disp int32) {
	if base&7 == 4 { // RSP/R12 need a SIB byte
		if disp == 0 {
			a.emit(modRM(0x00, reg, RSP), 0x24)
		} else if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, RSP), 0x24, byte(disp))
		} else {
			a.emit(modRM(0x80, reg, RSP), 0x24)
			a.emitInt32(disp)
		}
	} else if base&7 == 5 { // RBP/R13 have no disp-free form
		if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, base), byte(disp))
		} else {
			a.emit(modRM(0x80, reg, base))
			a.emitInt32(disp)
		}
	} else if disp == 0 {
		a.emit(modRM(0x00, reg, base))
	} else if disp >= -128 && disp <= 127 {
		a.emit(modRM(0x40, reg, base), byte(disp))
	} else {
		a.emit(modRM(0x80, reg, base))
		a.emitInt32(disp)
	}
}

// emitMemIndex emits ModR/M, SIB, and displacement for [base + index + disp].
// The index register must not be RSP.
func (a *Asm) emitMemIndex(reg, base, index baseline.Reg, disp int32) {
	sib := byte(0x00) | ((byte(index) & 7) << 3) | (byte(base) & 7)
	if disp == 0 && base&7 != 5 { // RBP/R13 base still needs a disp byte
		a.emit(modRM(0x00, reg, RSP), sib)
	} else if disp >= -128 && disp <= 127 {
		a.emit(modRM(0x40, reg, RSP), sib, byte(disp))
	} else {
		a.emit(modRM(0x80, reg, RSP), sib)
		a.emitInt32(disp)
	}
}

// rexIdx builds the REX prefix for an indexed memory operand.
func rexIdx(w bool, reg, base, index baseline.Reg) byte {
	return rex(w, reg >= 8, index >= 8, base >= 8)
}

// rexIdxOpt emits the prefix only when required.
func (a *Asm) rexIdxOpt(reg, base, index baseline.Reg) {
	if reg >= 8 || base >= 8 || index >= 8 {
		a.emit(rex(false, reg >= 8, index >= 8, base >= 8))
	}
}

// ---- moves ----

// MovRegReg: mov dst, src (64-bit)
func (a *Asm) MovRegReg(dst, src baseline.Reg) {
	a.emit(rexW(src, dst), 0x89, modRM(0xC0, src, dst))
}

// MovRegReg32: mov dst32, src32 (zero-extends to 64-bit)
func (a *Asm) MovRegReg32(dst, src baseline.Reg) {
	a.rexOpt(src, dst)
	a.emit(0x89, modRM(0xC0, src, dst))
}

// MovRegImm64: mov reg, imm64
func (a *Asm) MovRegImm64(reg baseline.Reg, imm uint64) {
	a.emit(rex(true, false, false, reg >= 8), 0xB8|byte(reg&7))
	a.emitUint64(imm)
}

// MovRegImm32: mov reg32, imm32 (zero-extends to 64-bit)
func (a *Asm) MovRegImm32(reg baseline.Reg, imm uint32) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0xB8 | byte(reg&7))
	a.emitUint32(imm)
}

// MovRegImm32SignExt: mov reg, imm32 (sign-extended to 64-bit)
func (a *Asm) MovRegImm32SignExt(reg baseline.Reg, imm int32) {
	a.emit(rex(true, false, false, reg >= 8), 0xC7, modRM(0xC0, 0, reg))
	a.emitInt32(imm)
}

// MovRegMem64: mov reg, [base + disp] (64-bit load)
func (a *Asm) MovRegMem64(reg, base baseline.Reg, disp int32) {
	a.emit(rexW(reg, base), 0x8B)
	a.emitMemOperand(reg, base, disp)
}

// MovMemReg64: mov [base + disp], reg (64-bit store)
func (a *Asm) MovMemReg64(base baseline.Reg, disp int32, reg baseline.Reg) {
	a.emit(rexW(reg, base), 0x89)
	a.emitMemOperand(reg, base, disp)
}

// MovRegMem32: mov reg32, [base + disp] (zero-extends to 64-bit)
func (a *Asm) MovRegMem32(reg, base baseline.Reg, disp int32) {
	a.rexOpt(reg, base)
	a.emit(0x8B)
	a.emitMemOperand(reg, base, disp)
}

// MovMem32Reg: mov dword [base + disp], reg
func (a *Asm) MovMem32Reg(base baseline.Reg, disp int32, reg baseline.Reg) {
	a.rexOpt(reg, base)
	a.emit(0x89)
	a.emitMemOperand(reg, base, disp)
}

// MovMemImm32: mov qword [base + disp], imm32 (sign-extended)
func (a *Asm) MovMemImm32(base baseline.Reg, disp int32, imm int32) {
	a.emit(rexW(0, base), 0xC7)
	a.emitMemOperand(0, base, disp)
	a.emitInt32(imm)
}

// MovMem32Imm32: mov dword [base + disp], imm32
func (a *Asm) MovMem32Imm32(base baseline.Reg, disp int32, imm int32) {
	a.rexOpt(0, base)
	a.emit(0xC7)
	a.emitMemOperand(0, base, disp)
	a.emitInt32(imm)
}

// ---- indexed loads and stores, [base + index + disp] ----

// MovRegMemIdx64: mov reg, [base + index + disp]
func (a *Asm) MovRegMemIdx64(reg, base, index baseline.Reg, disp int32) {
	a.emit(rexIdx(true, reg, base, index), 0x8B)
	a.emitMemIndex(reg, base, index, disp)
}

// MovRegMemIdx32: mov reg32, [base + index + disp] (zero-extends)
func (a *Asm) MovRegMemIdx32(reg, base, index baseline.Reg, disp int32) {
	a.rexIdxOpt(reg, base, index)
	a.emit(0x8B)
	a.emitMemIndex(reg, base, index, disp)
}

// MovzxRegMemIdx8: movzx reg32, byte [base + index + disp]
func (a *Asm) MovzxRegMemIdx8(reg, base, index baseline.Reg, disp int32) {
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0xB6)
	a.emitMemIndex(reg, base, index, disp)
}

// MovzxRegMemIdx16: movzx reg32, word [base + index + disp]
func (a *Asm) MovzxRegMemIdx16(reg, base, index baseline.Reg, disp int32) {
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0xB7)
	a.emitMemIndex(reg, base, index, disp)
}

// MovsxRegMemIdx8_32: movsx reg32, byte [base + index + disp]
func (a *Asm) MovsxRegMemIdx8_32(reg, base, index baseline.Reg, disp int32) {
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0xBE)
	a.emitMemIndex(reg, base, index, disp)
}

// MovsxRegMemIdx16_32: movsx reg32, word [base + index + disp]
func (a *Asm) MovsxRegMemIdx16_32(reg, base, index baseline.Reg, disp int32) {
	a.rexIdxOpt(reg, base, index)
	a.emit(0x0F, 0xBF)
	a.emitMemIndex(reg, base, index, disp)
}

// MovsxRegMemIdx8_64: movsx reg64, byte [base + index + disp]
func (a *Asm) MovsxRegMemIdx8_64(reg, base, index baseline.Reg, disp int32) {
	a.emit(rexIdx(true, reg, base, index), 0x0F, 0xBE)
	a.emitMemIndex(reg, base, index, disp)
}

// MovsxRegMemIdx16_64: movsx reg64, word [base + index + disp]
func (a *Asm) MovsxRegMemIdx16_64(reg, base, index baseline.Reg, disp int32) {
	a.emit(rexIdx(true, reg, base, index), 0x0F, 0xBF)
	a.emitMemIndex(reg, base, index, disp)
}

// MovsxdRegMemIdx: movsxd reg64, dword [base + index + disp]
func (a *Asm) MovsxdRegMemIdx(reg, base, index baseline.Reg, disp int32) {
	a.emit(rexIdx(true, reg, base, index), 0x63)
	a.emitMemIndex(reg, base, index, disp)
}

// MovMemIdxReg64: mov [base + index + disp], reg
func (a *Asm) MovMemIdxReg64(base, index baseline.Reg, disp int32, reg baseline.Reg) {
	a.emit(rexIdx(true, reg, base, index), 0x89)
	a.emitMemIndex(reg, base, index, disp)
}

// MovMemIdxReg32: mov dword [base + index + disp], reg32
func (a *Asm) MovMemIdxReg32(base, index baseline.Reg, disp int32, reg baseline.Reg) {
	a.rexIdxOpt(reg, base, index)
	a.emit(0x89)
	a.emitMemIndex(reg, base, index, disp)
}

// MovMemIdxReg16: mov word [base + index + disp], reg16
func (a *Asm) MovMemIdxReg16(base, index baseline.Reg, disp int32, reg baseline.Reg) {
	a.emit(0x66)
	a.rexIdxOpt(reg, base, index)
	a.emit(0x89)
	a.emitMemIndex(reg, base, index, disp)
}

// MovMemIdxReg8: mov byte [base + index + disp], reg8
func (a *Asm) MovMemIdxReg8(base, index baseline.Reg, disp int32, reg baseline.Reg) {
	// SPL/BPL/SIL/DIL need a REX prefix even without extended registers.
	if reg >= 8 || base >= 8 || index >= 8 || reg >= RSP {
		a.emit(rex(false, reg >= 8, index >= 8, base >= 8))
	}
	a.emit(0x88)
	a.emitMemIndex(reg, base, index, disp)
}

// ---- ALU, register-register ----

// AddRegReg: add dst, src (64-bit)
func (a *Asm) AddRegReg(dst, src baseline.Reg) {
	a.emit(rexW(src, dst), 0x01, modRM(0xC0, src, dst))
}

// AddRegReg32: add dst32, src32
func (a *Asm) AddRegReg32(dst, src baseline.Reg) {
	a.rexOpt(src, dst)
	a.emit(0x01, modRM(0xC0, src, dst))
}

// SubRegReg: sub dst, src (64-bit)
func (a *Asm) SubRegReg(dst, src baseline.Reg) {
	a.emit(rexW(src, dst), 0x29, modRM(0xC0, src, dst))
}

// SubRegReg32: sub dst32, src32
func (a *Asm) SubRegReg32(dst, src baseline.Reg) {
	a.rexOpt(src, dst)
	a.emit(0x29, modRM(0xC0, src, dst))
}

// IMulRegReg: imul dst, src (64-bit signed multiply)
func (a *Asm) IMulRegReg(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xAF, modRM(0xC0, dst, src))
}

// IMulRegReg32: imul dst32, src32
func (a *Asm) IMulRegReg32(dst, src baseline.Reg) {
	a.rexOpt(dst, src)
	a.emit(0x0F, 0xAF, modRM(0xC0, dst, src))
}

// AndRegReg: and dst, src (64-bit)
func (a *Asm) AndRegReg(dst, src baseline.Reg) {
	a.emit(rexW(src, dst), 0x21, modRM(0xC0, src, dst))
}

// AndRegReg32: and dst32, src32
func (a *Asm) AndRegReg32(dst, src baseline.Reg) {
	a.rexOpt(src, dst)
	a.emit(0x21, modRM(0xC0, src, dst))
}

// OrRegReg: or dst, src (64-bit)
func (a *Asm) OrRegReg(dst, src baseline.Reg) {
	a.emit(rexW(src, dst), 0x09, modRM(0xC0, src, dst))
}

// OrRegReg32: or dst32, src32
func (a *Asm) OrRegReg32(dst, src baseline.Reg) {
	a.rexOpt(src, dst)
	a.emit(0x09, modRM(0xC0, src, dst))
}

// XorRegReg: xor dst, src (64-bit)
func (a *Asm) XorRegReg(dst, src baseline.Reg) {
	a.emit(rexW(src, dst), 0x31, modRM(0xC0, src, dst))
}

// XorRegReg32: xor dst32, src32
func (a *Asm) XorRegReg32(dst, src baseline.Reg) {
	a.rexOpt(src, dst)
	a.emit(0x31, modRM(0xC0, src, dst))
}

// CmpRegReg: cmp left, right (64-bit)
func (a *Asm) CmpRegReg(left, right baseline.Reg) {
	a.emit(rexW(right, left), 0x39, modRM(0xC0, right, left))
}

// CmpRegReg32: cmp left32, right32
func (a *Asm) CmpRegReg32(left, right baseline.Reg) {
	a.rexOpt(right, left)
	a.emit(0x39, modRM(0xC0, right, left))
}

// CmpRegMem64: cmp reg, [base + disp] (64-bit)
func (a *Asm) CmpRegMem64(reg, base baseline.Reg, disp int32) {
	a.emit(rexW(reg, base), 0x3B)
	a.emitMemOperand(reg, base, disp)
}

// TestRegReg: test left, right (64-bit)
func (a *Asm) TestRegReg(left, right baseline.Reg) {
	a.emit(rexW(right, left), 0x85, modRM(0xC0, right, left))
}

// TestRegReg32: test left32, right32
func (a *Asm) TestRegReg32(left, right baseline.Reg) {
	a.rexOpt(right, left)
	a.emit(0x85, modRM(0xC0, right, left))
}

// ---- ALU, register-immediate ----

// aluRegImm32 emits the 81/83 group with extension ext (64-bit form).
func (a *Asm) aluRegImm32(ext byte, reg baseline.Reg, imm int32) {
	if imm >= -128 && imm <= 127 {
		a.emit(rexW(0, reg), 0x83, modRM(0xC0, baseline.Reg(ext), reg), byte(imm))
	} else {
		a.emit(rexW(0, reg), 0x81, modRM(0xC0, baseline.Reg(ext), reg))
		a.emitInt32(imm)
	}
}

// aluRegImm32W32 emits the 81/83 group with extension ext (32-bit form).
func (a *Asm) aluRegImm32W32(ext byte, reg baseline.Reg, imm int32) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	if imm >= -128 && imm <= 127 {
		a.emit(0x83, modRM(0xC0, baseline.Reg(ext), reg), byte(imm))
	} else {
		a.emit(0x81, modRM(0xC0, baseline.Reg(ext), reg))
		a.emitInt32(imm)
	}
}

// AddRegImm32: add reg, imm32 (64-bit, sign-extended)
func (a *Asm) AddRegImm32(reg baseline.Reg, imm int32) {
	a.aluRegImm32(0, reg, imm)
}

// SubRegImm32: sub reg, imm32 (64-bit, sign-extended)
func (a *Asm) SubRegImm32(reg baseline.Reg, imm int32) {
	a.aluRegImm32(5, reg, imm)
}

// CmpRegImm32: cmp reg, imm32 (64-bit, sign-extended)
func (a *Asm) CmpRegImm32(reg baseline.Reg, imm int32) {
	a.aluRegImm32(7, reg, imm)
}

// Cmp32RegImm32: cmp reg32, imm32
func (a *Asm) Cmp32RegImm32(reg baseline.Reg, imm int32) {
	a.aluRegImm32W32(7, reg, imm)
}

// And32RegImm32: and reg32, imm32
func (a *Asm) And32RegImm32(reg baseline.Reg, imm int32) {
	a.aluRegImm32W32(4, reg, imm)
}

// Or32RegImm32: or reg32, imm32
func (a *Asm) Or32RegImm32(reg baseline.Reg, imm int32) {
	a.aluRegImm32W32(1, reg, imm)
}

// Xor32RegImm32: xor reg32, imm32
func (a *Asm) Xor32RegImm32(reg baseline.Reg, imm int32) {
	a.aluRegImm32W32(6, reg, imm)
}

// CmpMem32Imm32: cmp dword [base + disp], imm32
func (a *Asm) CmpMem32Imm32(base baseline.Reg, disp int32, imm int32) {
	a.rexOpt(0, base)
	a.emit(0x81)
	a.emitMemOperand(7, base, disp)
	a.emitInt32(imm)
}

// ---- shifts and rotates (count in CL) ----

// ShlRegCL: shl reg, cl (64-bit)
func (a *Asm) ShlRegCL(reg baseline.Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 4, reg))
}

// Shl32RegCL: shl reg32, cl
func (a *Asm) Shl32RegCL(reg baseline.Reg) {
	a.rexOpt(0, reg)
	a.emit(0xD3, modRM(0xC0, 4, reg))
}

// ShrRegCL: shr reg, cl (64-bit logical)
func (a *Asm) ShrRegCL(reg baseline.Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 5, reg))
}

// Shr32RegCL: shr reg32, cl
func (a *Asm) Shr32RegCL(reg baseline.Reg) {
	a.rexOpt(0, reg)
	a.emit(0xD3, modRM(0xC0, 5, reg))
}

// SarRegCL: sar reg, cl (64-bit arithmetic)
func (a *Asm) SarRegCL(reg baseline.Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 7, reg))
}

// Sar32RegCL: sar reg32, cl
func (a *Asm) Sar32RegCL(reg baseline.Reg) {
	a.rexOpt(0, reg)
	a.emit(0xD3, modRM(0xC0, 7, reg))
}

// RolRegCL: rol reg, cl (64-bit)
func (a *Asm) RolRegCL(reg baseline.Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 0, reg))
}

// Rol32RegCL: rol reg32, cl
func (a *Asm) Rol32RegCL(reg baseline.Reg) {
	a.rexOpt(0, reg)
	a.emit(0xD3, modRM(0xC0, 0, reg))
}

// RorRegCL: ror reg, cl (64-bit)
func (a *Asm) RorRegCL(reg baseline.Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 1, reg))
}

// Ror32RegCL: ror reg32, cl
func (a *Asm) Ror32RegCL(reg baseline.Reg) {
	a.rexOpt(0, reg)
	a.emit(0xD3, modRM(0xC0, 1, reg))
}

// ShlRegImm8: shl reg, imm8 (64-bit)
func (a *Asm) ShlRegImm8(reg baseline.Reg, imm byte) {
	if imm == 1 {
		a.emit(rexW(0, reg), 0xD1, modRM(0xC0, 4, reg))
	} else {
		a.emit(rexW(0, reg), 0xC1, modRM(0xC0, 4, reg), imm)
	}
}

// ShrRegImm8: shr reg, imm8 (64-bit logical)
func (a *Asm) ShrRegImm8(reg baseline.Reg, imm byte) {
	if imm == 1 {
		a.emit(rexW(0, reg), 0xD1, modRM(0xC0, 5, reg))
	} else {
		a.emit(rexW(0, reg), 0xC1, modRM(0xC0, 5, reg), imm)
	}
}

// ---- division ----

// Cdq: sign-extend EAX into EDX:EAX
func (a *Asm) Cdq() {
	a.emit(0x99)
}

// Cqo: sign-extend RAX into RDX:RAX
func (a *Asm) Cqo() {
	a.emit(0x48, 0x99)
}

// IDiv: idiv reg (signed divide RDX:RAX by reg, 64-bit)
func (a *Asm) IDiv(reg baseline.Reg) {
	a.emit(rexW(0, reg), 0xF7, modRM(0xC0, 7, reg))
}

// IDiv32: idiv reg32 (signed divide EDX:EAX by reg32)
func (a *Asm) IDiv32(reg baseline.Reg) {
	a.rexOpt(0, reg)
	a.emit(0xF7, modRM(0xC0, 7, reg))
}

// Div: div reg (unsigned divide RDX:RAX by reg, 64-bit)
func (a *Asm) Div(reg baseline.Reg) {
	a.emit(rexW(0, reg), 0xF7, modRM(0xC0, 6, reg))
}

// Div32: div reg32 (unsigned divide EDX:EAX by reg32)
func (a *Asm) Div32(reg baseline.Reg) {
	a.rexOpt(0, reg)
	a.emit(0xF7, modRM(0xC0, 6, reg))
}

// ---- bit scans and counts ----

// BsrRegReg: bsr dst, src (64-bit; ZF=1 and dst undefined when src==0)
func (a *Asm) BsrRegReg(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xBD, modRM(0xC0, dst, src))
}

// Bsr32RegReg: bsr dst32, src32
func (a *Asm) Bsr32RegReg(dst, src baseline.Reg) {
	a.rexOpt(dst, src)
	a.emit(0x0F, 0xBD, modRM(0xC0, dst, src))
}

// BsfRegReg: bsf dst, src (64-bit)
func (a *Asm) BsfRegReg(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xBC, modRM(0xC0, dst, src))
}

// Bsf32RegReg: bsf dst32, src32
func (a *Asm) Bsf32RegReg(dst, src baseline.Reg) {
	a.rexOpt(dst, src)
	a.emit(0x0F, 0xBC, modRM(0xC0, dst, src))
}

// Popcnt: popcnt dst, src (64-bit)
func (a *Asm) Popcnt(dst, src baseline.Reg) {
	a.emit(0xF3, rexW(dst, src), 0x0F, 0xB8, modRM(0xC0, dst, src))
}

// Popcnt32: popcnt dst32, src32
func (a *Asm) Popcnt32(dst, src baseline.Reg) {
	a.emit(0xF3)
	a.rexOpt(dst, src)
	a.emit(0x0F, 0xB8, modRM(0xC0, dst, src))
}

// ---- condition materialization ----

// setcc emits 0F 9x /0 on the low byte of reg.
func (a *Asm) setcc(opc byte, reg baseline.Reg) {
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, opc, modRM(0xC0, 0, reg))
}

func (a *Asm) Sete(reg baseline.Reg)  { a.setcc(0x94, reg) } // equal
func (a *Asm) Setne(reg baseline.Reg) { a.setcc(0x95, reg) } // not equal
func (a *Asm) Setb(reg baseline.Reg)  { a.setcc(0x92, reg) } // below (unsigned)
func (a *Asm) Setae(reg baseline.Reg) { a.setcc(0x93, reg) } // above or equal (unsigned)
func (a *Asm) Seta(reg baseline.Reg)  { a.setcc(0x97, reg) } // above (unsigned)
func (a *Asm) Setbe(reg baseline.Reg) { a.setcc(0x96, reg) } // below or equal (unsigned)
func (a *Asm) Setl(reg baseline.Reg)  { a.setcc(0x9C, reg) } // less (signed)
func (a *Asm) Setge(reg baseline.Reg) { a.setcc(0x9D, reg) } // greater or equal (signed)
func (a *Asm) Setg(reg baseline.Reg)  { a.setcc(0x9F, reg) } // greater (signed)
func (a *Asm) Setle(reg baseline.Reg) { a.setcc(0x9E, reg) } // less or equal (signed)

// MovzxRegReg8: movzx dst, src8 (zero-extend byte to 64-bit)
func (a *Asm) MovzxRegReg8(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xB6, modRM(0xC0, dst, src))
}

// ---- sign extensions ----

// MovsxRegReg8_32: movsx dst32, src8
func (a *Asm) MovsxRegReg8_32(dst, src baseline.Reg) {
	if dst >= 8 || src >= 8 || src >= RSP {
		a.emit(rex(false, dst >= 8, false, src >= 8))
	}
	a.emit(0x0F, 0xBE, modRM(0xC0, dst, src))
}

// MovsxRegReg16_32: movsx dst32, src16
func (a *Asm) MovsxRegReg16_32(dst, src baseline.Reg) {
	a.rexOpt(dst, src)
	a.emit(0x0F, 0xBF, modRM(0xC0, dst, src))
}

// MovsxRegReg8_64: movsx dst64, src8
func (a *Asm) MovsxRegReg8_64(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xBE, modRM(0xC0, dst, src))
}

// MovsxRegReg16_64: movsx dst64, src16
func (a *Asm) MovsxRegReg16_64(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xBF, modRM(0xC0, dst, src))
}

// MovsxdRegReg: movsxd dst64, src32
func (a *Asm) MovsxdRegReg(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x63, modRM(0xC0, dst, src))
}

// ---- conditional moves ----

// Cmove: cmove dst, src (64-bit, move if equal)
func (a *Asm) Cmove(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0x44, modRM(0xC0, dst, src))
}

// Cmovne: cmovne dst, src (64-bit, move if not equal)
func (a *Asm) Cmovne(dst, src baseline.Reg) {
	a.emit(rexW(dst, src), 0x0F, 0x45, modRM(0xC0, dst, src))
}

// ---- jumps and calls ----

// Short conditional jumps (rel8).
func (a *Asm) Je(rel8 int8)  { a.emit(0x74, byte(rel8)) }
func (a *Asm) Jne(rel8 int8) { a.emit(0x75, byte(rel8)) }
func (a *Asm) Jb(rel8 int8)  { a.emit(0x72, byte(rel8)) }
func (a *Asm) Jae(rel8 int8) { a.emit(0x73, byte(rel8)) }
func (a *Asm) Ja(rel8 int8)  { a.emit(0x77, byte(rel8)) }
func (a *Asm) Jbe(rel8 int8) { a.emit(0x76, byte(rel8)) }
func (a *Asm) Jp(rel8 int8)  { a.emit(0x7A, byte(rel8)) }

// JmpRel8: jmp rel8
func (a *Asm) JmpRel8(rel8 int8) {
	a.emit(0xEB, byte(rel8))
}

// Near conditional jumps (rel32).
func (a *Asm) JeNear(rel32 int32)  { a.emit(0x0F, 0x84); a.emitInt32(rel32) }
func (a *Asm) JneNear(rel32 int32) { a.emit(0x0F, 0x85); a.emitInt32(rel32) }
func (a *Asm) JbNear(rel32 int32)  { a.emit(0x0F, 0x82); a.emitInt32(rel32) }
func (a *Asm) JaeNear(rel32 int32) { a.emit(0x0F, 0x83); a.emitInt32(rel32) }
func (a *Asm) JpNear(rel32 int32)  { a.emit(0x0F, 0x8A); a.emitInt32(rel32) }

// JmpRel32: jmp rel32
func (a *Asm) JmpRel32(rel32 int32) {
	a.emit(0xE9)
	a.emitInt32(rel32)
}

// CallRel32: call rel32
func (a *Asm) CallRel32(rel32 int32) {
	a.emit(0xE8)
	a.emitInt32(rel32)
}

// CallReg: call reg
func (a *Asm) CallReg(reg baseline.Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0xFF, modRM(0xC0, 2, reg))
}

// Ret: ret
func (a *Asm) Ret() {
	a.emit(0xC3)
}

// Push: push reg
func (a *Asm) Push(reg baseline.Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x50 | byte(reg&7))
}

// Pop: pop reg
func (a *Asm) Pop(reg baseline.Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x58 | byte(reg&7))
}

// Nop: nop
func (a *Asm) Nop() {
	a.emit(0x90)
}

// Int3: int3 (breakpoint)
func (a *Asm) Int3() {
	a.emit(0xCC)
}
