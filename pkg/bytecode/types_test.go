package bytecode

import "testing"

func TestValueKindClass(t *testing.T) {
	cases := []struct {
		kind ValueKind
		want RegClass
	}{
		{I32, ClassInt},
		{I64, ClassInt},
		{F32, ClassFloat},
		{F64, ClassFloat},
	}
	for _, c := range cases {
		if got := c.kind.Class(); got != c.want {
			t.Errorf("%s.Class() = %s, want %s", c.kind, got, c.want)
		}
	}
}

func TestValueKindSize(t *testing.T) {
	cases := []struct {
		kind ValueKind
		want int
	}{
		{I32, 4},
		{I64, 8},
		{F32, 4},
		{F64, 8},
	}
	for _, c := range cases {
		if got := c.kind.Size(); got != c.want {
			t.Errorf("%s.Size() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestValueKindIs64(t *testing.T) {
	if I32.Is64() {
		t.Error("I32.Is64() = true, want false")
	}
	if !I64.Is64() {
		t.Error("I64.Is64() = false, want true")
	}
	if F32.Is64() {
		t.Error("F32.Is64() = true, want false")
	}
	if !F64.Is64() {
		t.Error("F64.Is64() = false, want true")
	}
}

func TestInvalidValueKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Class of kind 99 did not panic")
		}
	}()
	_ = ValueKind(99).Class()
}

func TestFuncTypeEqual(t *testing.T) {
	base := FuncType{Params: []ValueKind{I32, I64}, Results: []ValueKind{F64}}

	cases := []struct {
		name  string
		other FuncType
		want  bool
	}{
		{"identical", FuncType{Params: []ValueKind{I32, I64}, Results: []ValueKind{F64}}, true},
		{"fewer params", FuncType{Params: []ValueKind{I32}, Results: []ValueKind{F64}}, false},
		{"different param kind", FuncType{Params: []ValueKind{I32, F64}, Results: []ValueKind{F64}}, false},
		{"different result kind", FuncType{Params: []ValueKind{I32, I64}, Results: []ValueKind{I32}}, false},
		{"no results", FuncType{Params: []ValueKind{I32, I64}}, false},
	}
	for _, c := range cases {
		if got := base.Equal(c.other); got != c.want {
			t.Errorf("%s: Equal(%s) = %v, want %v", c.name, c.other, got, c.want)
		}
	}

	empty := FuncType{}
	if !empty.Equal(FuncType{}) {
		t.Error("empty signatures compare unequal")
	}
}

func TestFuncTypeString(t *testing.T) {
	ft := FuncType{Params: []ValueKind{I32, F64}, Results: []ValueKind{I64}}
	if got, want := ft.String(), "(i32,f64)->(i64)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (FuncType{}).String(), "()->()"; got != want {
		t.Errorf("empty String() = %q, want %q", got, want)
	}
}

func TestOpcodeHasImm(t *testing.T) {
	withImm := []Opcode{
		OpI32Const, OpI64Const, OpF32Const, OpF64Const,
		OpLocalGet, OpLocalSet, OpLocalTee,
		OpLabel, OpBr, OpBrIf,
		OpCall, OpCallHost, OpCallIndirect,
		OpI32Load, OpF64Load, OpI64Load32U, OpI32Store, OpI64Store32,
	}
	for _, op := range withImm {
		if !op.HasImm() {
			t.Errorf("%s.HasImm() = false, want true", op)
		}
	}

	withoutImm := []Opcode{OpNop, OpReturn, OpI32Add, OpF64Sqrt, OpI32WrapI64, OpSelect}
	for _, op := range withoutImm {
		if op.HasImm() {
			t.Errorf("%s.HasImm() = true, want false", op)
		}
	}
}

func TestOpcodeIsMemAccess(t *testing.T) {
	if !OpI32Load.IsMemAccess() {
		t.Error("i32.load not classified as a memory access")
	}
	if !OpI64Store32.IsMemAccess() {
		t.Error("i64.store32 not classified as a memory access")
	}
	if OpI32Const.IsMemAccess() {
		t.Error("i32.const classified as a memory access")
	}
	if OpCall.IsMemAccess() {
		t.Error("call classified as a memory access")
	}
}

func TestInstrString(t *testing.T) {
	if got, want := (Instr{Op: OpI32Const, Imm: 42}).String(), "i32.const 42"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := (Instr{Op: OpI32Add}).String(), "i32.add"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEveryOpcodeNamed(t *testing.T) {
	for op := 0; op < NumOpcodes; op++ {
		name := Opcode(op).String()
		if name == "" {
			t.Errorf("opcode %d has an empty name", op)
		}
		if len(name) > 7 && name[:7] == "opcode(" {
			t.Errorf("opcode %d has no entry in the name table", op)
		}
	}
}
