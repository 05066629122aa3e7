package baseline

import "flint/pkg/bytecode"

// IntBinOp is a two-operand integer ALU operation.
type IntBinOp uint8

const (
	IntAdd IntBinOp = iota
	IntSub
	IntMul
	IntAnd
	IntOr
	IntXor
	IntShl
	IntShrS
	IntShrU
	IntRotl
	IntRotr
)

// IntDivOp selects a division family operation.
type IntDivOp uint8

const (
	DivS IntDivOp = iota
	DivU
	RemS
	RemU
)

// IntUnOp is a one-operand integer operation.
type IntUnOp uint8

const (
	IntClz IntUnOp = iota
	IntCtz
	IntPopcnt
)

// FloatBinOp is a two-operand float operation.
type FloatBinOp uint8

const (
	FloatAdd FloatBinOp = iota
	FloatSub
	FloatMul
	FloatDiv
	FloatMin
	FloatMax
	FloatCopysign
)

// FloatUnOp is a one-operand float operation.
type FloatUnOp uint8

const (
	FloatAbs FloatUnOp = iota
	FloatNeg
	FloatSqrt
	FloatCeil
	FloatFloor
	FloatTrunc
	FloatNearest
)

// Cond is a comparison condition. Plain variants are signed for
// integers and ordered for floats; U variants are unsigned and apply to
// integers only.
type Cond uint8

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondLtU
	CondGt
	CondGtU
	CondLe
	CondLeU
	CondGe
	CondGeU
)

// ExtendOp is an integer width conversion.
type ExtendOp uint8

const (
	ExtWrap64To32 ExtendOp = iota // discard high 32 bits
	ExtS8To32
	ExtS16To32
	ExtS8To64
	ExtS16To64
	ExtS32To64
	ExtU32To64
)

// LoadKind selects the width, extension, and destination class of a
// memory load.
type LoadKind uint8

const (
	Load32 LoadKind = iota // i32
	Load64                 // i64
	LoadF32
	LoadF64
	Load8S32 // byte, sign-extended to i32
	Load8U32
	Load16S32
	Load16U32
	Load8S64
	Load8U64
	Load16S64
	Load16U64
	Load32S64
	Load32U64
)

// StoreKind selects the width and source class of a memory store.
type StoreKind uint8

const (
	Store32 StoreKind = iota
	Store64
	StoreF32
	StoreF64
	Store8
	Store16
)

// TrapKind identifies a run-time trap reason. The numeric value is the
// code passed to the instance trap handler.
type TrapKind uint8

const (
	TrapStackOverflow TrapKind = iota
	TrapMemoryOutOfBounds
	TrapDivideByZero
	TrapIntegerOverflow
	TrapBadIndirectCall
	TrapUnreachable

	NumTrapKinds = 6
)

func (t TrapKind) String() string {
	switch t {
	case TrapStackOverflow:
		return "stack overflow"
	case TrapMemoryOutOfBounds:
		return "memory out of bounds"
	case TrapDivideByZero:
		return "integer divide by zero"
	case TrapIntegerOverflow:
		return "integer overflow"
	case TrapBadIndirectCall:
		return "bad indirect call"
	case TrapUnreachable:
		return "unreachable executed"
	}
	return "unknown trap"
}

// Label identifies a branch target inside one function. Labels may be
// bound after branches referencing them are emitted; the backend patches
// forward references when the label binds or at Finalize.
type Label int

// PatchToken records where a placeholder stack adjustment was emitted so
// PatchPrepareStackFrame can resolve it in a second pass.
type PatchToken struct {
	Offset int
}

// ABI describes the backend's register conventions to the driver. All
// allocatable registers are caller-saved at this tier. The instance
// pointer is passed as the first (hidden) argument and also kept live in
// the reserved InstanceReg between calls; host functions receive it as
// their first C argument.
type ABI struct {
	InstanceReg    Reg // reserved register holding the instance pointer
	MemBaseReg     Reg // reserved register holding the linear-memory base
	InstanceArgReg Reg // argument register the instance is passed in

	IntArgs     []Reg // argument registers after the instance
	FloatArgs   []Reg
	IntResult   Reg
	FloatResult Reg

	ShiftCount Reg // register shift counts must live in; NoReg if any
	DivLo      Reg // fixed dividend/quotient register; NoReg if any
	DivHi      Reg // fixed remainder register, clobbered by division

	CallScratch Reg // non-argument register safe across argument marshaling
	StackAlign  int
}

// EmitContext carries the per-compilation state shared between driver
// and backend. A fresh context is built per function; nothing in it is
// shared across concurrent compilations.
type EmitContext struct {
	Buf     *Buffer
	Alloc   *Allocator
	Bailout *Bailout
	Meta    *Artifact
}

// Backend is the per-architecture emission contract. Semantics are
// architecture-independent; only encodings differ. Every method must
// become a no-op once the bailout controller has tripped, and any
// operation a backend does not implement must trip it rather than emit
// a placeholder.
//
// Register arguments follow dst, lhs, rhs order. dst may alias lhs
// (two-address architectures emit a move when it does not). Multi-step
// emissions acquire scratch registers through the context allocator;
// callers pin their operand registers around the call.
type Backend interface {
	// Bind attaches the per-compilation context. Called once, first.
	Bind(ctx *EmitContext)
	ABI() ABI
	Allocatable() (ints, floats RegSet)

	// Frame. PrepareStackFrame emits the whole preamble with a
	// placeholder stack adjustment and returns the token to patch once
	// the final slot count is known. EmitStackCheck must run before any
	// spill slot is written.
	PrepareStackFrame() PatchToken
	PatchPrepareStackFrame(tok PatchToken, slotCount int)
	EmitStackCheck()
	EmitEpilogue()

	// Data movement, sized by kind.
	EmitMove(k bytecode.ValueKind, dst, src Reg)
	EmitConst(k bytecode.ValueKind, dst Reg, bits uint64)
	EmitSpill(k bytecode.ValueKind, slot int, src Reg)
	EmitFill(k bytecode.ValueKind, dst Reg, slot int)
	EmitSlotConst(k bytecode.ValueKind, slot int, bits uint64)
	EmitLoadStackArg(k bytecode.ValueKind, dst Reg, argSlot int)

	// Integer operations. k is I32 or I64. Division requires lhs in
	// DivLo with DivHi acquired when the ABI fixes them.
	EmitIntBinop(op IntBinOp, k bytecode.ValueKind, dst, lhs, rhs Reg)
	EmitIntDiv(op IntDivOp, k bytecode.ValueKind, lhs, rhs Reg)
	EmitIntUnop(op IntUnOp, k bytecode.ValueKind, dst, src Reg)
	EmitIntCmp(c Cond, k bytecode.ValueKind, dst, lhs, rhs Reg)
	EmitEqz(k bytecode.ValueKind, dst, src Reg)
	EmitSelect(k bytecode.ValueKind, dst, cond, other Reg)

	// Conversions.
	EmitExtend(op ExtendOp, dst, src Reg)
	EmitFloatFromInt(dstK bytecode.ValueKind, dst Reg, srcK bytecode.ValueKind, src Reg)
	EmitIntFromFloat(dstK bytecode.ValueKind, dst Reg, srcK bytecode.ValueKind, src Reg)
	EmitFloatConvert(dstK bytecode.ValueKind, dst, src Reg)
	EmitReinterpret(dstK bytecode.ValueKind, dst, src Reg)

	// Float operations. k is F32 or F64. Float compares write 0/1 to an
	// integer destination.
	EmitFloatBinop(op FloatBinOp, k bytecode.ValueKind, dst, lhs, rhs Reg)
	EmitFloatUnop(op FloatUnOp, k bytecode.ValueKind, dst, src Reg)
	EmitFloatCmp(c Cond, k bytecode.ValueKind, dst, lhs, rhs Reg)

	// Memory. base+index*1+offset addressing; when offset exceeds the
	// architecture's immediate range the backend materializes
	// base+offset into a scratch register and addresses through it.
	// Sites are recorded in the trap table for fault recovery.
	EmitLoad(lk LoadKind, dst, base, index Reg, offset uint32)
	EmitStore(sk StoreKind, base, index Reg, offset uint32, src Reg)

	// Control flow.
	NewLabel() Label
	BindLabel(l Label)
	EmitBr(l Label)
	EmitBrIf(cond Reg, l Label)
	EmitTrap(kind TrapKind)

	// Calls. The driver spills all live registers first, then marshals
	// arguments; Begin/End bracket an aligned outgoing-argument area
	// when stack arguments are needed.
	EmitCallBegin(outBytes int)
	EmitOutgoingStackArg(k bytecode.ValueKind, argSlot int, src Reg)
	EmitCallDirect(funcIndex uint32)
	EmitCallHost(hostIndex uint32)
	EmitIndirectTarget(dst, index Reg, expectedSig uint32)
	EmitCallIndirect(target Reg)
	EmitCallEnd(outBytes int)
	EmitLoadInstance(dst Reg)
	EmitInstanceRestore()

	// Finalize flushes out-of-line trap stubs and resolves labels; an
	// unresolved label is an invariant violation.
	Finalize()
	Offset() int

	// Target names the architecture the backend emits for, e.g. "amd64".
	Target() string
}
