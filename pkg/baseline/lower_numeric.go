package baseline

import "flint/pkg/bytecode"

// lowerNumeric dispatches every value-producing opcode: ALU forms,
// comparisons, conversions, and linear-memory access. Anything not
// handled here trips the bailout so later tiers can pick the function
// up; nothing may be half-emitted.
func (c *compiler) lowerNumeric(in bytecode.Instr) {
	switch in.Op {
	case bytecode.OpI32Add:
		c.lowerIntBinop(IntAdd, bytecode.I32)
	case bytecode.OpI32Sub:
		c.lowerIntBinop(IntSub, bytecode.I32)
	case bytecode.OpI32Mul:
		c.lowerIntBinop(IntMul, bytecode.I32)
	case bytecode.OpI32And:
		c.lowerIntBinop(IntAnd, bytecode.I32)
	case bytecode.OpI32Or:
		c.lowerIntBinop(IntOr, bytecode.I32)
	case bytecode.OpI32Xor:
		c.lowerIntBinop(IntXor, bytecode.I32)
	case bytecode.OpI32Shl:
		c.lowerIntShift(IntShl, bytecode.I32)
	case bytecode.OpI32ShrS:
		c.lowerIntShift(IntShrS, bytecode.I32)
	case bytecode.OpI32ShrU:
		c.lowerIntShift(IntShrU, bytecode.I32)
	case bytecode.OpI32Rotl:
		c.lowerIntShift(IntRotl, bytecode.I32)
	case bytecode.OpI32Rotr:
		c.lowerIntShift(IntRotr, bytecode.I32)
	case bytecode.OpI32DivS:
		c.lowerIntDiv(DivS, bytecode.I32)
	case bytecode.OpI32DivU:
		c.lowerIntDiv(DivU, bytecode.I32)
	case bytecode.OpI32RemS:
		c.lowerIntDiv(RemS, bytecode.I32)
	case bytecode.OpI32RemU:
		c.lowerIntDiv(RemU, bytecode.I32)
	case bytecode.OpI32Clz:
		c.lowerIntUnop(IntClz, bytecode.I32)
	case bytecode.OpI32Ctz:
		c.lowerIntUnop(IntCtz, bytecode.I32)
	case bytecode.OpI32Popcnt:
		c.lowerIntUnop(IntPopcnt, bytecode.I32)
	case bytecode.OpI32Eqz:
		c.lowerEqz(bytecode.I32)
	case bytecode.OpI32Eq:
		c.lowerIntCmp(CondEq, bytecode.I32)
	case bytecode.OpI32Ne:
		c.lowerIntCmp(CondNe, bytecode.I32)
	case bytecode.OpI32LtS:
		c.lowerIntCmp(CondLt, bytecode.I32)
	case bytecode.OpI32LtU:
		c.lowerIntCmp(CondLtU, bytecode.I32)
	case bytecode.OpI32GtS:
		c.lowerIntCmp(CondGt, bytecode.I32)
	case bytecode.OpI32GtU:
		c.lowerIntCmp(CondGtU, bytecode.I32)
	case bytecode.OpI32LeS:
		c.lowerIntCmp(CondLe, bytecode.I32)
	case bytecode.OpI32LeU:
		c.lowerIntCmp(CondLeU, bytecode.I32)
	case bytecode.OpI32GeS:
		c.lowerIntCmp(CondGe, bytecode.I32)
	case bytecode.OpI32GeU:
		c.lowerIntCmp(CondGeU, bytecode.I32)

	case bytecode.OpI64Add:
		c.lowerIntBinop(IntAdd, bytecode.I64)
	case bytecode.OpI64Sub:
		c.lowerIntBinop(IntSub, bytecode.I64)
	case bytecode.OpI64Mul:
		c.lowerIntBinop(IntMul, bytecode.I64)
	case bytecode.OpI64And:
		c.lowerIntBinop(IntAnd, bytecode.I64)
	case bytecode.OpI64Or:
		c.lowerIntBinop(IntOr, bytecode.I64)
	case bytecode.OpI64Xor:
		c.lowerIntBinop(IntXor, bytecode.I64)
	case bytecode.OpI64Shl:
		c.lowerIntShift(IntShl, bytecode.I64)
	case bytecode.OpI64ShrS:
		c.lowerIntShift(IntShrS, bytecode.I64)
	case bytecode.OpI64ShrU:
		c.lowerIntShift(IntShrU, bytecode.I64)
	case bytecode.OpI64Rotl:
		c.lowerIntShift(IntRotl, bytecode.I64)
	case bytecode.OpI64Rotr:
		c.lowerIntShift(IntRotr, bytecode.I64)
	case bytecode.OpI64DivS:
		c.lowerIntDiv(DivS, bytecode.I64)
	case bytecode.OpI64DivU:
		c.lowerIntDiv(DivU, bytecode.I64)
	case bytecode.OpI64RemS:
		c.lowerIntDiv(RemS, bytecode.I64)
	case bytecode.OpI64RemU:
		c.lowerIntDiv(RemU, bytecode.I64)
	case bytecode.OpI64Clz:
		c.lowerIntUnop(IntClz, bytecode.I64)
	case bytecode.OpI64Ctz:
		c.lowerIntUnop(IntCtz, bytecode.I64)
	case bytecode.OpI64Popcnt:
		c.lowerIntUnop(IntPopcnt, bytecode.I64)
	case bytecode.OpI64Eqz:
		c.lowerEqz(bytecode.I64)
	case bytecode.OpI64Eq:
		c.lowerIntCmp(CondEq, bytecode.I64)
	case bytecode.OpI64Ne:
		c.lowerIntCmp(CondNe, bytecode.I64)
	case bytecode.OpI64LtS:
		c.lowerIntCmp(CondLt, bytecode.I64)
	case bytecode.OpI64LtU:
		c.lowerIntCmp(CondLtU, bytecode.I64)
	case bytecode.OpI64GtS:
		c.lowerIntCmp(CondGt, bytecode.I64)
	case bytecode.OpI64GtU:
		c.lowerIntCmp(CondGtU, bytecode.I64)
	case bytecode.OpI64LeS:
		c.lowerIntCmp(CondLe, bytecode.I64)
	case bytecode.OpI64LeU:
		c.lowerIntCmp(CondLeU, bytecode.I64)
	case bytecode.OpI64GeS:
		c.lowerIntCmp(CondGe, bytecode.I64)
	case bytecode.OpI64GeU:
		c.lowerIntCmp(CondGeU, bytecode.I64)

	case bytecode.OpF32Add:
		c.lowerFloatBinop(FloatAdd, bytecode.F32)
	case bytecode.OpF32Sub:
		c.lowerFloatBinop(FloatSub, bytecode.F32)
	case bytecode.OpF32Mul:
		c.lowerFloatBinop(FloatMul, bytecode.F32)
	case bytecode.OpF32Div:
		c.lowerFloatBinop(FloatDiv, bytecode.F32)
	case bytecode.OpF32Min:
		c.lowerFloatBinop(FloatMin, bytecode.F32)
	case bytecode.OpF32Max:
		c.lowerFloatBinop(FloatMax, bytecode.F32)
	case bytecode.OpF32Copysign:
		c.lowerFloatBinop(FloatCopysign, bytecode.F32)
	case bytecode.OpF32Abs:
		c.lowerFloatUnop(FloatAbs, bytecode.F32)
	case bytecode.OpF32Neg:
		c.lowerFloatUnop(FloatNeg, bytecode.F32)
	case bytecode.OpF32Sqrt:
		c.lowerFloatUnop(FloatSqrt, bytecode.F32)
	case bytecode.OpF32Ceil:
		c.lowerFloatUnop(FloatCeil, bytecode.F32)
	case bytecode.OpF32Floor:
		c.lowerFloatUnop(FloatFloor, bytecode.F32)
	case bytecode.OpF32Trunc:
		c.lowerFloatUnop(FloatTrunc, bytecode.F32)
	case bytecode.OpF32Nearest:
		c.lowerFloatUnop(FloatNearest, bytecode.F32)
	case bytecode.OpF32Eq:
		c.lowerFloatCmp(CondEq, bytecode.F32)
	case bytecode.OpF32Ne:
		c.lowerFloatCmp(CondNe, bytecode.F32)
	case bytecode.OpF32Lt:
		c.lowerFloatCmp(CondLt, bytecode.F32)
	case bytecode.OpF32Gt:
		c.lowerFloatCmp(CondGt, bytecode.F32)
	case bytecode.OpF32Le:
		c.lowerFloatCmp(CondLe, bytecode.F32)
	case bytecode.OpF32Ge:
		c.lowerFloatCmp(CondGe, bytecode.F32)

	case bytecode.OpF64Add:
		c.lowerFloatBinop(FloatAdd, bytecode.F64)
	case bytecode.OpF64Sub:
		c.lowerFloatBinop(FloatSub, bytecode.F64)
	case bytecode.OpF64Mul:
		c.lowerFloatBinop(FloatMul, bytecode.F64)
	case bytecode.OpF64Div:
		c.lowerFloatBinop(FloatDiv, bytecode.F64)
	case bytecode.OpF64Min:
		c.lowerFloatBinop(FloatMin, bytecode.F64)
	case bytecode.OpF64Max:
		c.lowerFloatBinop(FloatMax, bytecode.F64)
	case bytecode.OpF64Copysign:
		c.lowerFloatBinop(FloatCopysign, bytecode.F64)
	case bytecode.OpF64Abs:
		c.lowerFloatUnop(FloatAbs, bytecode.F64)
	case bytecode.OpF64Neg:
		c.lowerFloatUnop(FloatNeg, bytecode.F64)
	case bytecode.OpF64Sqrt:
		c.lowerFloatUnop(FloatSqrt, bytecode.F64)
	case bytecode.OpF64Ceil:
		c.lowerFloatUnop(FloatCeil, bytecode.F64)
	case bytecode.OpF64Floor:
		c.lowerFloatUnop(FloatFloor, bytecode.F64)
	case bytecode.OpF64Trunc:
		c.lowerFloatUnop(FloatTrunc, bytecode.F64)
	case bytecode.OpF64Nearest:
		c.lowerFloatUnop(FloatNearest, bytecode.F64)
	case bytecode.OpF64Eq:
		c.lowerFloatCmp(CondEq, bytecode.F64)
	case bytecode.OpF64Ne:
		c.lowerFloatCmp(CondNe, bytecode.F64)
	case bytecode.OpF64Lt:
		c.lowerFloatCmp(CondLt, bytecode.F64)
	case bytecode.OpF64Gt:
		c.lowerFloatCmp(CondGt, bytecode.F64)
	case bytecode.OpF64Le:
		c.lowerFloatCmp(CondLe, bytecode.F64)
	case bytecode.OpF64Ge:
		c.lowerFloatCmp(CondGe, bytecode.F64)

	case bytecode.OpI32WrapI64:
		c.lowerConvert(bytecode.I32, func(dst, src Reg) {
			c.be.EmitExtend(ExtWrap64To32, dst, src)
		})
	case bytecode.OpI64ExtendI32S:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitExtend(ExtS32To64, dst, src)
		})
	case bytecode.OpI64ExtendI32U:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitExtend(ExtU32To64, dst, src)
		})
	case bytecode.OpI32Extend8S:
		c.lowerConvert(bytecode.I32, func(dst, src Reg) {
			c.be.EmitExtend(ExtS8To32, dst, src)
		})
	case bytecode.OpI32Extend16S:
		c.lowerConvert(bytecode.I32, func(dst, src Reg) {
			c.be.EmitExtend(ExtS16To32, dst, src)
		})
	case bytecode.OpI64Extend8S:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitExtend(ExtS8To64, dst, src)
		})
	case bytecode.OpI64Extend16S:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitExtend(ExtS16To64, dst, src)
		})
	case bytecode.OpI64Extend32S:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitExtend(ExtS32To64, dst, src)
		})

	case bytecode.OpF32DemoteF64:
		c.lowerConvert(bytecode.F32, func(dst, src Reg) {
			c.be.EmitFloatConvert(bytecode.F32, dst, src)
		})
	case bytecode.OpF64PromoteF32:
		c.lowerConvert(bytecode.F64, func(dst, src Reg) {
			c.be.EmitFloatConvert(bytecode.F64, dst, src)
		})

	case bytecode.OpF32ConvertI32S:
		c.lowerConvert(bytecode.F32, func(dst, src Reg) {
			c.be.EmitFloatFromInt(bytecode.F32, dst, bytecode.I32, src)
		})
	case bytecode.OpF32ConvertI64S:
		c.lowerConvert(bytecode.F32, func(dst, src Reg) {
			c.be.EmitFloatFromInt(bytecode.F32, dst, bytecode.I64, src)
		})
	case bytecode.OpF64ConvertI32S:
		c.lowerConvert(bytecode.F64, func(dst, src Reg) {
			c.be.EmitFloatFromInt(bytecode.F64, dst, bytecode.I32, src)
		})
	case bytecode.OpF64ConvertI64S:
		c.lowerConvert(bytecode.F64, func(dst, src Reg) {
			c.be.EmitFloatFromInt(bytecode.F64, dst, bytecode.I64, src)
		})
	case bytecode.OpI32TruncF32S:
		c.lowerConvert(bytecode.I32, func(dst, src Reg) {
			c.be.EmitIntFromFloat(bytecode.I32, dst, bytecode.F32, src)
		})
	case bytecode.OpI32TruncF64S:
		c.lowerConvert(bytecode.I32, func(dst, src Reg) {
			c.be.EmitIntFromFloat(bytecode.I32, dst, bytecode.F64, src)
		})
	case bytecode.OpI64TruncF32S:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitIntFromFloat(bytecode.I64, dst, bytecode.F32, src)
		})
	case bytecode.OpI64TruncF64S:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitIntFromFloat(bytecode.I64, dst, bytecode.F64, src)
		})

	case bytecode.OpI32ReinterpretF32:
		c.lowerConvert(bytecode.I32, func(dst, src Reg) {
			c.be.EmitReinterpret(bytecode.I32, dst, src)
		})
	case bytecode.OpI64ReinterpretF64:
		c.lowerConvert(bytecode.I64, func(dst, src Reg) {
			c.be.EmitReinterpret(bytecode.I64, dst, src)
		})
	case bytecode.OpF32ReinterpretI32:
		c.lowerConvert(bytecode.F32, func(dst, src Reg) {
			c.be.EmitReinterpret(bytecode.F32, dst, src)
		})
	case bytecode.OpF64ReinterpretI64:
		c.lowerConvert(bytecode.F64, func(dst, src Reg) {
			c.be.EmitReinterpret(bytecode.F64, dst, src)
		})

	case bytecode.OpI32Load:
		c.lowerLoad(Load32, bytecode.I32, in.Imm)
	case bytecode.OpI64Load:
		c.lowerLoad(Load64, bytecode.I64, in.Imm)
	case bytecode.OpF32Load:
		c.lowerLoad(LoadF32, bytecode.F32, in.Imm)
	case bytecode.OpF64Load:
		c.lowerLoad(LoadF64, bytecode.F64, in.Imm)
	case bytecode.OpI32Load8S:
		c.lowerLoad(Load8S32, bytecode.I32, in.Imm)
	case bytecode.OpI32Load8U:
		c.lowerLoad(Load8U32, bytecode.I32, in.Imm)
	case bytecode.OpI32Load16S:
		c.lowerLoad(Load16S32, bytecode.I32, in.Imm)
	case bytecode.OpI32Load16U:
		c.lowerLoad(Load16U32, bytecode.I32, in.Imm)
	case bytecode.OpI64Load8S:
		c.lowerLoad(Load8S64, bytecode.I64, in.Imm)
	case bytecode.OpI64Load8U:
		c.lowerLoad(Load8U64, bytecode.I64, in.Imm)
	case bytecode.OpI64Load16S:
		c.lowerLoad(Load16S64, bytecode.I64, in.Imm)
	case bytecode.OpI64Load16U:
		c.lowerLoad(Load16U64, bytecode.I64, in.Imm)
	case bytecode.OpI64Load32S:
		c.lowerLoad(Load32S64, bytecode.I64, in.Imm)
	case bytecode.OpI64Load32U:
		c.lowerLoad(Load32U64, bytecode.I64, in.Imm)

	case bytecode.OpI32Store:
		c.lowerStore(Store32, in.Imm)
	case bytecode.OpI64Store:
		c.lowerStore(Store64, in.Imm)
	case bytecode.OpF32Store:
		c.lowerStore(StoreF32, in.Imm)
	case bytecode.OpF64Store:
		c.lowerStore(StoreF64, in.Imm)
	case bytecode.OpI32Store8:
		c.lowerStore(Store8, in.Imm)
	case bytecode.OpI32Store16:
		c.lowerStore(Store16, in.Imm)
	case bytecode.OpI64Store8:
		c.lowerStore(Store8, in.Imm)
	case bytecode.OpI64Store16:
		c.lowerStore(Store16, in.Imm)
	case bytecode.OpI64Store32:
		c.lowerStore(Store32, in.Imm)

	default:
		c.bail.Trip(in.Op.String(), "unsupported opcode")
	}
}
