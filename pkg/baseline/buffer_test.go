package baseline

import (
	"bytes"
	"testing"
)

func TestBufferEmit(t *testing.T) {
	b := NewBuffer()
	if b.Len() != 0 {
		t.Fatalf("new buffer Len = %d, want 0", b.Len())
	}

	b.Emit(0x90)
	b.Emit(0x48, 0x89, 0xE5)
	if got, want := b.Bytes(), []byte{0x90, 0x48, 0x89, 0xE5}; !bytes.Equal(got, want) {
		t.Errorf("Bytes = %x, want %x", got, want)
	}
	if b.Len() != 4 {
		t.Errorf("Len = %d, want 4", b.Len())
	}
}

func TestBufferEmitU32(t *testing.T) {
	b := NewBuffer()
	b.EmitU32(0x11223344)
	if got, want := b.Bytes(), []byte{0x44, 0x33, 0x22, 0x11}; !bytes.Equal(got, want) {
		t.Errorf("EmitU32 bytes = %x, want %x", got, want)
	}

	b = NewBuffer()
	b.EmitI32(-2)
	if got, want := b.Bytes(), []byte{0xFE, 0xFF, 0xFF, 0xFF}; !bytes.Equal(got, want) {
		t.Errorf("EmitI32(-2) bytes = %x, want %x", got, want)
	}
}

func TestBufferEmitU64(t *testing.T) {
	b := NewBuffer()
	b.EmitU64(0x1122334455667788)
	want := []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}
	if got := b.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("EmitU64 bytes = %x, want %x", got, want)
	}
}

func TestBufferPatch(t *testing.T) {
	b := NewBuffer()
	b.Emit(0xE9)
	off := b.Len()
	b.EmitU32(0)
	b.Emit(0xC3)

	b.PatchU32(off, 0xCAFEBABE)
	want := []byte{0xE9, 0xBE, 0xBA, 0xFE, 0xCA, 0xC3}
	if got := b.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("after PatchU32 bytes = %x, want %x", got, want)
	}

	b.PatchI32(off, -16)
	want = []byte{0xE9, 0xF0, 0xFF, 0xFF, 0xFF, 0xC3}
	if got := b.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("after PatchI32 bytes = %x, want %x", got, want)
	}

	b.PatchU8(0, 0xEB)
	if b.Bytes()[0] != 0xEB {
		t.Errorf("after PatchU8 byte 0 = %#x, want 0xEB", b.Bytes()[0])
	}
	if b.Len() != 6 {
		t.Errorf("patching changed Len to %d, want 6", b.Len())
	}
}
