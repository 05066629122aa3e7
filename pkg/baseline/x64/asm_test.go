package x64

import (
	"bytes"
	"testing"

	"flint/pkg/baseline"
)

// Encodings below were checked against an external assembler; each case
// exercises one instruction form or addressing-mode corner.
func TestInstructionEncodings(t *testing.T) {
	cases := []struct {
		name string
		emit func(a *Asm)
		want []byte
	}{
		{"push rbp", func(a *Asm) { a.Push(RBP) }, []byte{0x55}},
		{"push r12", func(a *Asm) { a.Push(R12) }, []byte{0x41, 0x54}},
		{"pop rbp", func(a *Asm) { a.Pop(RBP) }, []byte{0x5D}},
		{"ret", func(a *Asm) { a.Ret() }, []byte{0xC3}},
		{"nop", func(a *Asm) { a.Nop() }, []byte{0x90}},
		{"int3", func(a *Asm) { a.Int3() }, []byte{0xCC}},

		{"mov rbp, rsp", func(a *Asm) { a.MovRegReg(RBP, RSP) }, []byte{0x48, 0x89, 0xE5}},
		{"mov rax, r15", func(a *Asm) { a.MovRegReg(RAX, R15) }, []byte{0x4C, 0x89, 0xF8}},
		{"mov r9d, edx", func(a *Asm) { a.MovRegReg32(R9, RDX) }, []byte{0x41, 0x89, 0xD1}},
		{"mov eax, ecx", func(a *Asm) { a.MovRegReg32(RAX, RCX) }, []byte{0x89, 0xC8}},

		{"mov eax, 42", func(a *Asm) { a.MovRegImm32(RAX, 42) }, []byte{0xB8, 0x2A, 0x00, 0x00, 0x00}},
		{"mov r10d, 7", func(a *Asm) { a.MovRegImm32(R10, 7) }, []byte{0x41, 0xBA, 0x07, 0x00, 0x00, 0x00}},
		{"mov rax, -1 (sign-extended)", func(a *Asm) { a.MovRegImm32SignExt(RAX, -1) },
			[]byte{0x48, 0xC7, 0xC0, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"mov rax, imm64", func(a *Asm) { a.MovRegImm64(RAX, 0x1122334455667788) },
			[]byte{0x48, 0xB8, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}},

		// Memory operands: RBP/R13 bases force a displacement byte,
		// RSP/R12 bases force a SIB byte.
		{"mov rax, [rbp-8]", func(a *Asm) { a.MovRegMem64(RAX, RBP, -8) }, []byte{0x48, 0x8B, 0x45, 0xF8}},
		{"mov [rbp-8], r14", func(a *Asm) { a.MovMemReg64(RBP, -8, R14) }, []byte{0x4C, 0x89, 0x75, 0xF8}},
		{"mov rax, [rsp+8]", func(a *Asm) { a.MovRegMem64(RAX, RSP, 8) }, []byte{0x48, 0x8B, 0x44, 0x24, 0x08}},
		{"mov rbx, [r12]", func(a *Asm) { a.MovRegMem64(RBX, R12, 0) }, []byte{0x49, 0x8B, 0x1C, 0x24}},
		{"mov rax, [r13]", func(a *Asm) { a.MovRegMem64(RAX, R13, 0) }, []byte{0x49, 0x8B, 0x45, 0x00}},
		{"mov rcx, [rbx+300]", func(a *Asm) { a.MovRegMem64(RCX, RBX, 300) },
			[]byte{0x48, 0x8B, 0x8B, 0x2C, 0x01, 0x00, 0x00}},
		{"mov rdi, [r14+48]", func(a *Asm) { a.MovRegMem64(RDI, R14, 48) }, []byte{0x49, 0x8B, 0x7E, 0x30}},
		{"mov dword [rbp-24], 7", func(a *Asm) { a.MovMem32Imm32(RBP, -24, 7) },
			[]byte{0xC7, 0x45, 0xE8, 0x07, 0x00, 0x00, 0x00}},
		{"mov qword [rbp-16], 0", func(a *Asm) { a.MovMemImm32(RBP, -16, 0) },
			[]byte{0x48, 0xC7, 0x45, 0xF0, 0x00, 0x00, 0x00, 0x00}},

		// Indexed forms.
		{"mov eax, [r15+rcx]", func(a *Asm) { a.MovRegMemIdx32(RAX, R15, RCX, 0) },
			[]byte{0x41, 0x8B, 0x04, 0x0F}},
		{"mov rax, [r15+rcx]", func(a *Asm) { a.MovRegMemIdx64(RAX, R15, RCX, 0) },
			[]byte{0x49, 0x8B, 0x04, 0x0F}},
		{"mov rax, [r13+rcx]", func(a *Asm) { a.MovRegMemIdx64(RAX, R13, RCX, 0) },
			[]byte{0x49, 0x8B, 0x44, 0x0D, 0x00}},
		{"movsx rbx, byte [r15+rax+16]", func(a *Asm) { a.MovsxRegMemIdx8_64(RBX, R15, RAX, 16) },
			[]byte{0x49, 0x0F, 0xBE, 0x5C, 0x07, 0x10}},
		{"movsxd rcx, dword [r15+rdx]", func(a *Asm) { a.MovsxdRegMemIdx(RCX, R15, RDX, 0) },
			[]byte{0x49, 0x63, 0x0C, 0x17}},
		{"mov [r15+rcx], sil", func(a *Asm) { a.MovMemIdxReg8(R15, RCX, 0, RSI) },
			[]byte{0x41, 0x88, 0x34, 0x0F}},
		{"mov word [r15+rdx+4], ax", func(a *Asm) { a.MovMemIdxReg16(R15, RDX, 4, RAX) },
			[]byte{0x66, 0x41, 0x89, 0x44, 0x17, 0x04}},

		// ALU.
		{"add ecx, eax", func(a *Asm) { a.AddRegReg32(RCX, RAX) }, []byte{0x01, 0xC1}},
		{"add r8, rax", func(a *Asm) { a.AddRegReg(R8, RAX) }, []byte{0x49, 0x01, 0xC0}},
		{"sub ebx, edi", func(a *Asm) { a.SubRegReg32(RBX, RDI) }, []byte{0x29, 0xFB}},
		{"imul ebx, esi", func(a *Asm) { a.IMulRegReg32(RBX, RSI) }, []byte{0x0F, 0xAF, 0xDE}},
		{"imul rbx, rsi", func(a *Asm) { a.IMulRegReg(RBX, RSI) }, []byte{0x48, 0x0F, 0xAF, 0xDE}},
		{"xor eax, eax", func(a *Asm) { a.XorRegReg32(RAX, RAX) }, []byte{0x31, 0xC0}},
		{"xor r10d, r10d", func(a *Asm) { a.XorRegReg32(R10, R10) }, []byte{0x45, 0x31, 0xD2}},
		{"test eax, eax", func(a *Asm) { a.TestRegReg32(RAX, RAX) }, []byte{0x85, 0xC0}},
		{"test rcx, rcx", func(a *Asm) { a.TestRegReg(RCX, RCX) }, []byte{0x48, 0x85, 0xC9}},
		{"cmp eax, ecx", func(a *Asm) { a.CmpRegReg32(RAX, RCX) }, []byte{0x39, 0xC8}},
		{"cmp rsp, [r14]", func(a *Asm) { a.CmpRegMem64(RSP, R14, 0) }, []byte{0x49, 0x3B, 0x26}},

		// Immediate forms pick the short encoding when imm fits a byte.
		{"add rsp, 32", func(a *Asm) { a.AddRegImm32(RSP, 32) }, []byte{0x48, 0x83, 0xC4, 0x20}},
		{"sub rsp, 200", func(a *Asm) { a.SubRegImm32(RSP, 200) },
			[]byte{0x48, 0x81, 0xEC, 0xC8, 0x00, 0x00, 0x00}},
		{"cmp rbx, -1", func(a *Asm) { a.CmpRegImm32(RBX, -1) }, []byte{0x48, 0x83, 0xFB, 0xFF}},
		{"cmp eax, int32 min", func(a *Asm) { a.Cmp32RegImm32(RAX, -0x80000000) },
			[]byte{0x81, 0xF8, 0x00, 0x00, 0x00, 0x80}},
		{"and esi, 0x7fffffff", func(a *Asm) { a.And32RegImm32(RSI, 0x7FFFFFFF) },
			[]byte{0x81, 0xE6, 0xFF, 0xFF, 0xFF, 0x7F}},
		{"cmp dword [r10+8], 5", func(a *Asm) { a.CmpMem32Imm32(R10, 8, 5) },
			[]byte{0x41, 0x81, 0x7A, 0x08, 0x05, 0x00, 0x00, 0x00}},

		// Shifts and rotates.
		{"shl ebx, cl", func(a *Asm) { a.Shl32RegCL(RBX) }, []byte{0xD3, 0xE3}},
		{"sar rdx, cl", func(a *Asm) { a.SarRegCL(RDX) }, []byte{0x48, 0xD3, 0xFA}},
		{"ror r9, cl", func(a *Asm) { a.RorRegCL(R9) }, []byte{0x49, 0xD3, 0xC9}},
		{"shl rax, 1", func(a *Asm) { a.ShlRegImm8(RAX, 1) }, []byte{0x48, 0xD1, 0xE0}},
		{"shl rax, 63", func(a *Asm) { a.ShlRegImm8(RAX, 63) }, []byte{0x48, 0xC1, 0xE0, 0x3F}},
		{"shr rax, 4", func(a *Asm) { a.ShrRegImm8(RAX, 4) }, []byte{0x48, 0xC1, 0xE8, 0x04}},

		// Division helpers.
		{"cdq", func(a *Asm) { a.Cdq() }, []byte{0x99}},
		{"cqo", func(a *Asm) { a.Cqo() }, []byte{0x48, 0x99}},
		{"idiv edi", func(a *Asm) { a.IDiv32(RDI) }, []byte{0xF7, 0xFF}},
		{"div r11", func(a *Asm) { a.Div(R11) }, []byte{0x49, 0xF7, 0xF3}},

		// Bit scans and counts.
		{"bsr rax, rcx", func(a *Asm) { a.BsrRegReg(RAX, RCX) }, []byte{0x48, 0x0F, 0xBD, 0xC1}},
		{"bsf edx, edi", func(a *Asm) { a.Bsf32RegReg(RDX, RDI) }, []byte{0x0F, 0xBC, 0xD7}},
		{"popcnt rax, rcx", func(a *Asm) { a.Popcnt(RAX, RCX) }, []byte{0xF3, 0x48, 0x0F, 0xB8, 0xC1}},
		{"popcnt r8d, r9d", func(a *Asm) { a.Popcnt32(R8, R9) }, []byte{0xF3, 0x45, 0x0F, 0xB8, 0xC1}},

		// setcc needs a REX for sil/dil even without extended registers.
		{"sete al", func(a *Asm) { a.Sete(RAX) }, []byte{0x0F, 0x94, 0xC0}},
		{"sete sil", func(a *Asm) { a.Sete(RSI) }, []byte{0x40, 0x0F, 0x94, 0xC6}},
		{"sete r9b", func(a *Asm) { a.Sete(R9) }, []byte{0x41, 0x0F, 0x94, 0xC1}},
		{"setb cl", func(a *Asm) { a.Setb(RCX) }, []byte{0x0F, 0x92, 0xC1}},
		{"movzx rax, al", func(a *Asm) { a.MovzxRegReg8(RAX, RAX) }, []byte{0x48, 0x0F, 0xB6, 0xC0}},

		// Extensions and conditional moves.
		{"movsxd rax, ecx", func(a *Asm) { a.MovsxdRegReg(RAX, RCX) }, []byte{0x48, 0x63, 0xC1}},
		{"cmove rax, rcx", func(a *Asm) { a.Cmove(RAX, RCX) }, []byte{0x48, 0x0F, 0x44, 0xC1}},
		{"cmovne rbx, r8", func(a *Asm) { a.Cmovne(RBX, R8) }, []byte{0x49, 0x0F, 0x45, 0xD8}},

		// Control transfer.
		{"je +5", func(a *Asm) { a.Je(5) }, []byte{0x74, 0x05}},
		{"jmp -2", func(a *Asm) { a.JmpRel8(-2) }, []byte{0xEB, 0xFE}},
		{"je near +16", func(a *Asm) { a.JeNear(16) }, []byte{0x0F, 0x84, 0x10, 0x00, 0x00, 0x00}},
		{"jmp near 0", func(a *Asm) { a.JmpRel32(0) }, []byte{0xE9, 0x00, 0x00, 0x00, 0x00}},
		{"call rel32 0", func(a *Asm) { a.CallRel32(0) }, []byte{0xE8, 0x00, 0x00, 0x00, 0x00}},
		{"call rax", func(a *Asm) { a.CallReg(RAX) }, []byte{0xFF, 0xD0}},
		{"call r10", func(a *Asm) { a.CallReg(R10) }, []byte{0x41, 0xFF, 0xD2}},
	}

	for _, c := range cases {
		buf := baseline.NewBuffer()
		c.emit(NewAsm(buf))
		if !bytes.Equal(buf.Bytes(), c.want) {
			t.Errorf("%s = % X, want % X", c.name, buf.Bytes(), c.want)
		}
	}
}

func TestSSEEncodings(t *testing.T) {
	cases := []struct {
		name string
		emit func(a *Asm)
		want []byte
	}{
		{"movaps xmm1, xmm2", func(a *Asm) { a.MovapsRegReg(XMM1, XMM2) }, []byte{0x0F, 0x28, 0xCA}},
		{"xorps xmm3, xmm3", func(a *Asm) { a.Xorps(XMM3, XMM3) }, []byte{0x0F, 0x57, 0xDB}},
		{"addsd xmm0, xmm1", func(a *Asm) { a.Addsd(XMM0, XMM1) }, []byte{0xF2, 0x0F, 0x58, 0xC1}},
		{"addss xmm0, xmm1", func(a *Asm) { a.Addss(XMM0, XMM1) }, []byte{0xF3, 0x0F, 0x58, 0xC1}},
		{"sqrtsd xmm0, xmm5", func(a *Asm) { a.Sqrtsd(XMM0, XMM5) }, []byte{0xF2, 0x0F, 0x51, 0xC5}},
		{"ucomiss xmm1, xmm4", func(a *Asm) { a.Ucomiss(XMM1, XMM4) }, []byte{0x0F, 0x2E, 0xCC}},
		{"ucomisd xmm1, xmm4", func(a *Asm) { a.Ucomisd(XMM1, XMM4) }, []byte{0x66, 0x0F, 0x2E, 0xCC}},

		{"movss xmm2, [rbp-24]", func(a *Asm) { a.MovssRegMem(XMM2, RBP, -24) },
			[]byte{0xF3, 0x0F, 0x10, 0x55, 0xE8}},
		{"movss [rbp-24], xmm2", func(a *Asm) { a.MovssMemReg(RBP, -24, XMM2) },
			[]byte{0xF3, 0x0F, 0x11, 0x55, 0xE8}},
		{"movsd xmm9, [rbp-32]", func(a *Asm) { a.MovsdRegMem(XMM9, RBP, -32) },
			[]byte{0xF2, 0x44, 0x0F, 0x10, 0x4D, 0xE0}},
		{"movss xmm1, [r15+rax+32]", func(a *Asm) { a.MovssRegMemIdx(XMM1, R15, RAX, 32) },
			[]byte{0xF3, 0x41, 0x0F, 0x10, 0x4C, 0x07, 0x20}},
		{"movsd [r15+rbx], xmm8", func(a *Asm) { a.MovsdMemIdxReg(R15, RBX, 0, XMM8) },
			[]byte{0xF2, 0x45, 0x0F, 0x11, 0x04, 0x1F}},

		{"movd xmm3, edi", func(a *Asm) { a.MovdXmmReg(XMM3, RDI) }, []byte{0x66, 0x0F, 0x6E, 0xDF}},
		{"movq xmm0, rax", func(a *Asm) { a.MovqXmmReg(XMM0, RAX) }, []byte{0x66, 0x48, 0x0F, 0x6E, 0xC0}},
		{"movq rax, xmm2", func(a *Asm) { a.MovqRegXmm(RAX, XMM2) }, []byte{0x66, 0x48, 0x0F, 0x7E, 0xD0}},

		{"cvtsi2sd xmm0, rax", func(a *Asm) { a.Cvtsi2sd64(XMM0, RAX) },
			[]byte{0xF2, 0x48, 0x0F, 0x2A, 0xC0}},
		{"cvttsd2si eax, xmm5", func(a *Asm) { a.Cvttsd2si32(RAX, XMM5) },
			[]byte{0xF2, 0x0F, 0x2C, 0xC5}},
		{"cvtss2sd xmm2, xmm3", func(a *Asm) { a.Cvtss2sd(XMM2, XMM3) }, []byte{0xF3, 0x0F, 0x5A, 0xD3}},

		{"roundsd xmm2, xmm3, trunc", func(a *Asm) { a.Roundsd(XMM2, XMM3, 3) },
			[]byte{0x66, 0x0F, 0x3A, 0x0B, 0xD3, 0x03}},
		{"roundss xmm0, xmm0, nearest", func(a *Asm) { a.Roundss(XMM0, XMM0, 0) },
			[]byte{0x66, 0x0F, 0x3A, 0x0A, 0xC0, 0x00}},
	}

	for _, c := range cases {
		buf := baseline.NewBuffer()
		c.emit(NewAsm(buf))
		if !bytes.Equal(buf.Bytes(), c.want) {
			t.Errorf("%s = % X, want % X", c.name, buf.Bytes(), c.want)
		}
	}
}

func TestRexPrefix(t *testing.T) {
	cases := []struct {
		w, r, x, b bool
		want       byte
	}{
		{false, false, false, false, 0x40},
		{true, false, false, false, 0x48},
		{false, true, false, false, 0x44},
		{false, false, true, false, 0x42},
		{false, false, false, true, 0x41},
		{true, true, true, true, 0x4F},
	}
	for _, c := range cases {
		if got := rex(c.w, c.r, c.x, c.b); got != c.want {
			t.Errorf("rex(%v,%v,%v,%v) = %#x, want %#x", c.w, c.r, c.x, c.b, got, c.want)
		}
	}
}
