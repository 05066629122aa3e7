package baseline

import "encoding/binary"

// Buffer is the private staging area code is emitted into. It is plain
// writable memory; an external component copies the finished bytes into
// executable pages. Patching already-emitted bytes is allowed because
// nothing can observe the buffer before compilation finishes.
type Buffer struct {
	code []byte
}

func NewBuffer() *Buffer {
	return &Buffer{code: make([]byte, 0, 4096)}
}

func (b *Buffer) Len() int      { return len(b.code) }
func (b *Buffer) Bytes() []byte { return b.code }

func (b *Buffer) Emit(bytes ...byte) {
	b.code = append(b.code, bytes...)
}

func (b *Buffer) EmitU32(v uint32) {
	b.code = append(b.code, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (b *Buffer) EmitI32(v int32) {
	b.EmitU32(uint32(v))
}

func (b *Buffer) EmitU64(v uint64) {
	b.code = append(b.code,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// PatchU8 overwrites one byte at offset.
func (b *Buffer) PatchU8(offset int, v byte) {
	b.code[offset] = v
}

// PatchU32 overwrites four little-endian bytes at offset.
func (b *Buffer) PatchU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.code[offset:], v)
}

// PatchI32 overwrites four little-endian bytes at offset.
func (b *Buffer) PatchI32(offset int, v int32) {
	b.PatchU32(offset, uint32(v))
}
