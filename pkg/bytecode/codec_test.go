package bytecode

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := &Module{
		Types: []FuncType{
			{Params: []ValueKind{I32, I64, F32, F64}, Results: []ValueKind{I64}},
			{},
			{Params: []ValueKind{I32}},
		},
		Hosts: []HostFunc{
			{Name: "env.clock", TypeIndex: 1},
			{Name: "env.print", TypeIndex: 2},
		},
		Funcs: []Function{
			{
				TypeIndex: 0,
				Locals:    []ValueKind{I32, F64},
				Body: []Instr{
					{Op: OpLocalGet, Imm: 0},
					{Op: OpI64Const, Imm: 0xDEADBEEFDEADBEEF},
					{Op: OpI64Add},
					{Op: OpReturn},
				},
			},
			{TypeIndex: 1, Body: []Instr{{Op: OpNop}, {Op: OpReturn}}},
		},
		TableSize: 16,
	}

	got, err := Decode(Encode(m))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEmptyModule(t *testing.T) {
	got, err := Decode(Encode(&Module{}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Types) != 0 || len(got.Funcs) != 0 || len(got.Hosts) != 0 || got.TableSize != 0 {
		t.Errorf("empty module decoded as %+v", got)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	enc := Encode(&Module{})
	enc[0] = 'X'
	if _, err := Decode(enc); err == nil || !strings.Contains(err.Error(), "bad magic") {
		t.Errorf("Decode with bad magic: err = %v, want bad magic error", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	enc := Encode(testModule())
	// Every proper prefix must fail cleanly, never panic.
	for n := 0; n < len(enc); n++ {
		if _, err := Decode(enc[:n]); err == nil {
			t.Errorf("Decode of %d-byte prefix succeeded", n)
		}
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	enc := append(Encode(&Module{}), 0x00)
	if _, err := Decode(enc); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Errorf("Decode with trailing byte: err = %v, want trailing bytes error", err)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	m := &Module{
		Types: []FuncType{{}},
		Funcs: []Function{{TypeIndex: 0, Body: []Instr{{Op: OpNop}}}},
	}
	enc := Encode(m)
	// The single immediate-free op byte sits just before the trailing
	// 4-byte table size.
	enc[len(enc)-5] = 0xFF
	if _, err := Decode(enc); err == nil || !strings.Contains(err.Error(), "unknown opcode") {
		t.Errorf("Decode with opcode 255: err = %v, want unknown opcode error", err)
	}
}

func TestDecodeRejectsMultipleResults(t *testing.T) {
	m := &Module{Types: []FuncType{{Results: []ValueKind{I32, I32}}}}
	if _, err := Decode(Encode(m)); err == nil || !strings.Contains(err.Error(), "at most 1") {
		t.Errorf("Decode with 2 results: err = %v, want result-count error", err)
	}
}

func TestDecodeFuncTypeIndexOutOfRange(t *testing.T) {
	m := &Module{Funcs: []Function{{TypeIndex: 3}}}
	if _, err := Decode(Encode(m)); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("Decode with dangling type index: err = %v, want out-of-range error", err)
	}
}

func TestDecodeHostTypeIndexOutOfRange(t *testing.T) {
	m := &Module{Hosts: []HostFunc{{Name: "env.bad", TypeIndex: 1}}}
	if _, err := Decode(Encode(m)); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("Decode with dangling host type: err = %v, want out-of-range error", err)
	}
}

func TestDecodeInvalidValueKind(t *testing.T) {
	m := &Module{Types: []FuncType{{Params: []ValueKind{I32}}}}
	enc := Encode(m)
	// The lone param kind byte follows magic(4), type count(4) and the
	// param length prefix(4).
	enc[12] = 0x09
	if _, err := Decode(enc); err == nil || !strings.Contains(err.Error(), "invalid value kind") {
		t.Errorf("Decode with kind 9: err = %v, want invalid kind error", err)
	}
}

func TestFloatConstantBitsSurviveRoundTrip(t *testing.T) {
	m := &Module{
		Types: []FuncType{{Results: []ValueKind{F64}}},
		Funcs: []Function{{
			TypeIndex: 0,
			Body: []Instr{
				{Op: OpF64Const, Imm: 0x400921FB54442D18}, // pi
				{Op: OpReturn},
			},
		}},
	}
	got, err := Decode(Encode(m))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if imm := got.Funcs[0].Body[0].Imm; imm != 0x400921FB54442D18 {
		t.Errorf("f64 bits = %#x, want %#x", imm, uint64(0x400921FB54442D18))
	}
}
