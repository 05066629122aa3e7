package bytecode

import "fmt"

// Opcode identifies one bytecode operation.
type Opcode uint8

// Instr is one decoded bytecode instruction. Imm carries the opcode's
// immediate when it has one: constant bits (float constants store their
// IEEE bit pattern), a local/function/host/type index, a label id, or a
// static memory offset.
type Instr struct {
	Op  Opcode
	Imm uint64
}

const (
	OpNop Opcode = iota
	OpUnreachable
	OpDrop
	OpSelect
	OpReturn

	// Constants. Imm holds the value bits.
	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	// Locals. Imm is the local index (params first).
	OpLocalGet
	OpLocalSet
	OpLocalTee

	// Control. Imm is the label id for OpLabel/OpBr/OpBrIf.
	OpLabel
	OpBr
	OpBrIf

	// Calls. Imm is a function, host, or type index respectively.
	OpCall
	OpCallHost
	OpCallIndirect

	// 32-bit integer.
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr
	OpI32Clz
	OpI32Ctz
	OpI32Popcnt
	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU

	// 64-bit integer.
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr
	OpI64Clz
	OpI64Ctz
	OpI64Popcnt
	OpI64Eqz
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU

	// 32-bit float.
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Abs
	OpF32Neg
	OpF32Sqrt
	OpF32Ceil
	OpF32Floor
	OpF32Trunc
	OpF32Nearest
	OpF32Copysign
	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge

	// 64-bit float.
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Abs
	OpF64Neg
	OpF64Sqrt
	OpF64Ceil
	OpF64Floor
	OpF64Trunc
	OpF64Nearest
	OpF64Copysign
	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge

	// Conversions.
	OpI32WrapI64
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpI32Extend8S
	OpI32Extend16S
	OpI64Extend8S
	OpI64Extend16S
	OpI64Extend32S
	OpF32DemoteF64
	OpF64PromoteF32
	OpF32ConvertI32S
	OpF32ConvertI64S
	OpF64ConvertI32S
	OpF64ConvertI64S
	OpI32TruncF32S
	OpI32TruncF64S
	OpI64TruncF32S
	OpI64TruncF64S
	OpI32ReinterpretF32
	OpI64ReinterpretF64
	OpF32ReinterpretI32
	OpF64ReinterpretI64

	// Memory loads. Imm is the static byte offset; the address operand
	// is an i32 index into linear memory.
	OpI32Load
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Load8S
	OpI32Load8U
	OpI32Load16S
	OpI32Load16U
	OpI64Load8S
	OpI64Load8U
	OpI64Load16S
	OpI64Load16U
	OpI64Load32S
	OpI64Load32U

	// Memory stores. Imm is the static byte offset.
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpI32Store8
	OpI32Store16
	OpI64Store8
	OpI64Store16
	OpI64Store32

	opSentinel
)

// NumOpcodes is the count of defined opcodes, for table sizing.
const NumOpcodes = int(opSentinel)

var opNames = map[Opcode]string{
	OpNop: "nop", OpUnreachable: "unreachable", OpDrop: "drop",
	OpSelect: "select", OpReturn: "return",
	OpI32Const: "i32.const", OpI64Const: "i64.const",
	OpF32Const: "f32.const", OpF64Const: "f64.const",
	OpLocalGet: "local.get", OpLocalSet: "local.set", OpLocalTee: "local.tee",
	OpLabel: "label", OpBr: "br", OpBrIf: "br_if",
	OpCall: "call", OpCallHost: "call_host", OpCallIndirect: "call_indirect",

	OpI32Add: "i32.add", OpI32Sub: "i32.sub", OpI32Mul: "i32.mul",
	OpI32DivS: "i32.div_s", OpI32DivU: "i32.div_u",
	OpI32RemS: "i32.rem_s", OpI32RemU: "i32.rem_u",
	OpI32And: "i32.and", OpI32Or: "i32.or", OpI32Xor: "i32.xor",
	OpI32Shl: "i32.shl", OpI32ShrS: "i32.shr_s", OpI32ShrU: "i32.shr_u",
	OpI32Rotl: "i32.rotl", OpI32Rotr: "i32.rotr",
	OpI32Clz: "i32.clz", OpI32Ctz: "i32.ctz", OpI32Popcnt: "i32.popcnt",
	OpI32Eqz: "i32.eqz", OpI32Eq: "i32.eq", OpI32Ne: "i32.ne",
	OpI32LtS: "i32.lt_s", OpI32LtU: "i32.lt_u",
	OpI32GtS: "i32.gt_s", OpI32GtU: "i32.gt_u",
	OpI32LeS: "i32.le_s", OpI32LeU: "i32.le_u",
	OpI32GeS: "i32.ge_s", OpI32GeU: "i32.ge_u",

	OpI64Add: "i64.add", OpI64Sub: "i64.sub", OpI64Mul: "i64.mul",
	OpI64DivS: "i64.div_s", OpI64DivU: "i64.div_u",
	OpI64RemS: "i64.rem_s", OpI64RemU: "i64.rem_u",
	OpI64And: "i64.and", OpI64Or: "i64.or", OpI64Xor: "i64.xor",
	OpI64Shl: "i64.shl", OpI64ShrS: "i64.shr_s", OpI64ShrU: "i64.shr_u",
	OpI64Rotl: "i64.rotl", OpI64Rotr: "i64.rotr",
	OpI64Clz: "i64.clz", OpI64Ctz: "i64.ctz", OpI64Popcnt: "i64.popcnt",
	OpI64Eqz: "i64.eqz", OpI64Eq: "i64.eq", OpI64Ne: "i64.ne",
	OpI64LtS: "i64.lt_s", OpI64LtU: "i64.lt_u",
	OpI64GtS: "i64.gt_s", OpI64GtU: "i64.gt_u",
	OpI64LeS: "i64.le_s", OpI64LeU: "i64.le_u",
	OpI64GeS: "i64.ge_s", OpI64GeU: "i64.ge_u",

	OpF32Add: "f32.add", OpF32Sub: "f32.sub", OpF32Mul: "f32.mul",
	OpF32Div: "f32.div", OpF32Min: "f32.min", OpF32Max: "f32.max",
	OpF32Abs: "f32.abs", OpF32Neg: "f32.neg", OpF32Sqrt: "f32.sqrt",
	OpF32Ceil: "f32.ceil", OpF32Floor: "f32.floor", OpF32Trunc: "f32.trunc",
	OpF32Nearest: "f32.nearest", OpF32Copysign: "f32.copysign",
	OpF32Eq: "f32.eq", OpF32Ne: "f32.ne", OpF32Lt: "f32.lt",
	OpF32Gt: "f32.gt", OpF32Le: "f32.le", OpF32Ge: "f32.ge",

	OpF64Add: "f64.add", OpF64Sub: "f64.sub", OpF64Mul: "f64.mul",
	OpF64Div: "f64.div", OpF64Min: "f64.min", OpF64Max: "f64.max",
	OpF64Abs: "f64.abs", OpF64Neg: "f64.neg", OpF64Sqrt: "f64.sqrt",
	OpF64Ceil: "f64.ceil", OpF64Floor: "f64.floor", OpF64Trunc: "f64.trunc",
	OpF64Nearest: "f64.nearest", OpF64Copysign: "f64.copysign",
	OpF64Eq: "f64.eq", OpF64Ne: "f64.ne", OpF64Lt: "f64.lt",
	OpF64Gt: "f64.gt", OpF64Le: "f64.le", OpF64Ge: "f64.ge",

	OpI32WrapI64: "i32.wrap_i64",
	OpI64ExtendI32S: "i64.extend_i32_s", OpI64ExtendI32U: "i64.extend_i32_u",
	OpI32Extend8S: "i32.extend8_s", OpI32Extend16S: "i32.extend16_s",
	OpI64Extend8S: "i64.extend8_s", OpI64Extend16S: "i64.extend16_s",
	OpI64Extend32S: "i64.extend32_s",
	OpF32DemoteF64: "f32.demote_f64", OpF64PromoteF32: "f64.promote_f32",
	OpF32ConvertI32S: "f32.convert_i32_s", OpF32ConvertI64S: "f32.convert_i64_s",
	OpF64ConvertI32S: "f64.convert_i32_s", OpF64ConvertI64S: "f64.convert_i64_s",
	OpI32TruncF32S: "i32.trunc_f32_s", OpI32TruncF64S: "i32.trunc_f64_s",
	OpI64TruncF32S: "i64.trunc_f32_s", OpI64TruncF64S: "i64.trunc_f64_s",
	OpI32ReinterpretF32: "i32.reinterpret_f32", OpI64ReinterpretF64: "i64.reinterpret_f64",
	OpF32ReinterpretI32: "f32.reinterpret_i32", OpF64ReinterpretI64: "f64.reinterpret_i64",

	OpI32Load: "i32.load", OpI64Load: "i64.load",
	OpF32Load: "f32.load", OpF64Load: "f64.load",
	OpI32Load8S: "i32.load8_s", OpI32Load8U: "i32.load8_u",
	OpI32Load16S: "i32.load16_s", OpI32Load16U: "i32.load16_u",
	OpI64Load8S: "i64.load8_s", OpI64Load8U: "i64.load8_u",
	OpI64Load16S: "i64.load16_s", OpI64Load16U: "i64.load16_u",
	OpI64Load32S: "i64.load32_s", OpI64Load32U: "i64.load32_u",
	OpI32Store: "i32.store", OpI64Store: "i64.store",
	OpF32Store: "f32.store", OpF64Store: "f64.store",
	OpI32Store8: "i32.store8", OpI32Store16: "i32.store16",
	OpI64Store8: "i64.store8", OpI64Store16: "i64.store16",
	OpI64Store32: "i64.store32",
}

func (op Opcode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

// HasImm reports whether the opcode carries an immediate in Instr.Imm.
func (op Opcode) HasImm() bool {
	switch op {
	case OpI32Const, OpI64Const, OpF32Const, OpF64Const,
		OpLocalGet, OpLocalSet, OpLocalTee,
		OpLabel, OpBr, OpBrIf,
		OpCall, OpCallHost, OpCallIndirect:
		return true
	}
	return op.IsMemAccess()
}

// IsMemAccess reports whether the opcode is a linear-memory load or store.
func (op Opcode) IsMemAccess() bool {
	return op >= OpI32Load && op <= OpI64Store32
}

func (in Instr) String() string {
	if in.Op.HasImm() {
		return fmt.Sprintf("%s %d", in.Op, in.Imm)
	}
	return in.Op.String()
}
