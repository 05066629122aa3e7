package baseline

import (
	"fmt"

	"flint/pkg/bytecode"
)

// Options controls per-compilation behavior.
type Options struct {
	// SafepointEveryOp records a liveness snapshot at every bytecode
	// boundary instead of only at call sites.
	SafepointEveryOp bool
}

// Compile translates one function of a module into native code using the
// given backend. It makes a single linear pass over the body: operands
// are tracked on an abstract stack, registers assigned on demand, and
// the prologue's frame size patched once the spill high-water mark is
// known. On an unsupported construct or resource limit it returns a
// *BailoutError and no code; the caller is expected to fall back to the
// optimizing tier. One call compiles one function on one goroutine;
// concurrent calls must use distinct Backend instances.
func Compile(m *bytecode.Module, funcIndex uint32, be Backend, opts Options) (*Artifact, error) {
	if int(funcIndex) >= len(m.Funcs) {
		return nil, fmt.Errorf("baseline: function index %d out of range", funcIndex)
	}
	fn := &m.Funcs[funcIndex]
	sig, err := m.FuncType(funcIndex)
	if err != nil {
		return nil, err
	}

	ints, floats := be.Allocatable()
	c := &compiler{
		m:     m,
		fn:    fn,
		sig:   sig,
		be:    be,
		abi:   be.ABI(),
		alloc: NewAllocator(ints, floats),
		bail:  &Bailout{},
		buf:   NewBuffer(),
		meta:  &Artifact{FuncIndex: funcIndex, Target: be.Target()},
		opts:  opts,
	}
	c.locals = append(c.locals, sig.Params...)
	c.locals = append(c.locals, fn.Locals...)
	c.alloc.SetSpillHandler(c.spillReg)

	be.Bind(&EmitContext{Buf: c.buf, Alloc: c.alloc, Bailout: c.bail, Meta: c.meta})

	for i, n := 0, bytecode.NumLabels(fn.Body); i < n; i++ {
		c.labels = append(c.labels, be.NewLabel())
	}

	tok := be.PrepareStackFrame()
	be.EmitStackCheck()
	c.captureParams()
	c.zeroLocals()

	for _, in := range fn.Body {
		if c.bail.Bailed() {
			break
		}
		c.lower(in)
	}
	if !c.bail.Bailed() && !c.dead {
		c.emitReturn()
	}

	be.Finalize()
	be.PatchPrepareStackFrame(tok, c.alloc.SlotCount())

	if err := c.bail.Err(); err != nil {
		return nil, err
	}
	c.meta.Code = c.buf.Bytes()
	c.meta.Frame = FrameLayout{
		InstanceOffset:  -int32(BaseFrameBytes),
		FirstSlotOffset: -int32(BaseFrameBytes + SlotSize),
		SlotSize:        SlotSize,
		SlotCount:       c.alloc.SlotCount(),
	}
	return c.meta, nil
}

type compiler struct {
	m      *bytecode.Module
	fn     *bytecode.Function
	sig    bytecode.FuncType
	be     Backend
	abi    ABI
	alloc  *Allocator
	bail   *Bailout
	buf    *Buffer
	meta   *Artifact
	opts   Options
	locals []bytecode.ValueKind
	labels []Label
	stack  []Operand
	dead   bool // inside the unreachable region after br/return/unreachable
}

// argPlan assigns parameters to argument registers in declaration order,
// overflowing to outgoing stack slots.
type argPlan struct {
	regs       []Reg // per param; NoReg means stack
	slots      []int // outgoing stack slot per param; -1 means register
	stackSlots int
}

func planArgs(abi ABI, params []bytecode.ValueKind) argPlan {
	p := argPlan{
		regs:  make([]Reg, len(params)),
		slots: make([]int, len(params)),
	}
	intIdx, fltIdx := 0, 0
	for i, k := range params {
		p.regs[i], p.slots[i] = NoReg, -1
		if k.Class() == bytecode.ClassInt && intIdx < len(abi.IntArgs) {
			p.regs[i] = abi.IntArgs[intIdx]
			intIdx++
		} else if k.Class() == bytecode.ClassFloat && fltIdx < len(abi.FloatArgs) {
			p.regs[i] = abi.FloatArgs[fltIdx]
			fltIdx++
		} else {
			p.slots[i] = p.stackSlots
			p.stackSlots++
		}
	}
	return p
}

// captureParams stores incoming arguments to their local slots. Locals
// live in their slots for the whole function; registers hold only
// operand-stack temporaries.
func (c *compiler) captureParams() {
	if len(c.locals) == 0 {
		return
	}
	c.alloc.RecordUsedSpillSlot(len(c.locals) - 1)
	plan := planArgs(c.abi, c.sig.Params)
	for i, k := range c.sig.Params {
		if r := plan.regs[i]; r != NoReg {
			c.be.EmitSpill(k, i, r)
			continue
		}
		scratch := c.alloc.AcquireRegister(k.Class(), 0)
		c.be.EmitLoadStackArg(k, scratch, plan.slots[i])
		c.be.EmitSpill(k, i, scratch)
		c.alloc.Release(k.Class(), scratch)
	}
}

func (c *compiler) zeroLocals() {
	for i, k := range c.fn.Locals {
		c.be.EmitSlotConst(k, len(c.sig.Params)+i, 0)
	}
}

// ---- operand stack ----

func (c *compiler) push(op Operand) {
	if op.Loc.OnReg() && op.Loc.Class != op.Kind.Class() {
		panic(fmt.Sprintf("baseline: pushing %s in %s register", op.Kind, op.Loc.Class))
	}
	c.stack = append(c.stack, op)
}

func (c *compiler) pop() Operand {
	if len(c.stack) == 0 {
		panic("baseline: operand stack underflow")
	}
	op := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return op
}

// slotFor maps an operand-stack depth to its canonical spill slot.
// Locals occupy the first slots; operand depth d spills right above.
func (c *compiler) slotFor(depth int) int {
	return len(c.locals) + depth
}

// spillReg is the allocator's spill handler: it finds the stack operand
// holding r, stores it to its depth slot, and rewrites its location.
func (c *compiler) spillReg(r Reg, class bytecode.RegClass) {
	for d := range c.stack {
		loc := c.stack[d].Loc
		if loc.OnReg() && loc.Reg == r && loc.Class == class {
			slot := c.slotFor(d)
			c.alloc.RecordUsedSpillSlot(slot)
			c.be.EmitSpill(c.stack[d].Kind, slot, r)
			c.stack[d].Loc = SlotLoc(slot)
			return
		}
	}
	panic(fmt.Sprintf("baseline: spill victim %s reg%d has no owner", class, r))
}

// popReg pops the top operand and materializes it into a pinned
// register. The caller unpins (and releases or pushes) it.
func (c *compiler) popReg() (Reg, bytecode.ValueKind) {
	op := c.pop()
	r := c.ensureReg(op, 0)
	return r, op.Kind
}

// ensureReg materializes op into a register, pinned. Registers in
// excluding are not candidates; an operand already resident in one is
// moved out.
func (c *compiler) ensureReg(op Operand, excluding RegSet) Reg {
	class := op.Kind.Class()
	if op.Loc.OnReg() {
		r := op.Loc.Reg
		if excluding.Has(r) {
			dst := c.alloc.AcquireRegister(class, excluding)
			c.alloc.Pin(RegisterLoc(dst, class))
			c.be.EmitMove(op.Kind, dst, r)
			c.alloc.Release(class, r)
			return dst
		}
		c.alloc.Pin(op.Loc)
		c.alloc.Touch(class, r)
		return r
	}
	r := c.alloc.AcquireRegister(class, excluding)
	c.alloc.Pin(RegisterLoc(r, class))
	c.fillInto(op, r)
	return r
}

// ensureFixed materializes op into one specific register, pinned.
func (c *compiler) ensureFixed(op Operand, fixed Reg) Reg {
	class := op.Kind.Class()
	if op.Loc.OnReg() && op.Loc.Reg == fixed {
		c.alloc.Pin(op.Loc)
		c.alloc.Touch(class, fixed)
		return fixed
	}
	c.alloc.AcquireFixed(class, fixed)
	c.alloc.Pin(RegisterLoc(fixed, class))
	if op.Loc.OnReg() {
		c.be.EmitMove(op.Kind, fixed, op.Loc.Reg)
		c.alloc.Release(class, op.Loc.Reg)
	} else {
		c.fillInto(op, fixed)
	}
	return fixed
}

func (c *compiler) fillInto(op Operand, r Reg) {
	switch op.Loc.Kind {
	case LocStackSlot:
		c.be.EmitFill(op.Kind, r, op.Loc.Slot)
	case LocConstant:
		c.be.EmitConst(op.Kind, r, op.Loc.Bits)
	default:
		panic("baseline: fillInto on register operand")
	}
}

// acquireDst returns a fresh pinned destination register.
func (c *compiler) acquireDst(class bytecode.RegClass) Reg {
	r := c.alloc.AcquireRegister(class, 0)
	c.alloc.Pin(RegisterLoc(r, class))
	return r
}

func (c *compiler) unpin(class bytecode.RegClass, r Reg) {
	c.alloc.Unpin(RegisterLoc(r, class))
}

// dropReg unpins and frees a consumed operand register.
func (c *compiler) dropReg(class bytecode.RegClass, r Reg) {
	c.unpin(class, r)
	c.alloc.Release(class, r)
}

// keep unpins r and pushes it as the result operand.
func (c *compiler) keep(k bytecode.ValueKind, r Reg) {
	c.unpin(k.Class(), r)
	c.push(regOperand(k, r))
}

// flushAll moves every register- or constant-resident stack operand to
// its canonical slot so control-flow merges and calls observe a single
// machine state.
func (c *compiler) flushAll() {
	for d := range c.stack {
		op := c.stack[d]
		slot := c.slotFor(d)
		switch op.Loc.Kind {
		case LocRegister:
			c.alloc.RecordUsedSpillSlot(slot)
			c.be.EmitSpill(op.Kind, slot, op.Loc.Reg)
			c.alloc.Release(op.Loc.Class, op.Loc.Reg)
			c.stack[d].Loc = SlotLoc(slot)
		case LocConstant:
			c.alloc.RecordUsedSpillSlot(slot)
			c.be.EmitSlotConst(op.Kind, slot, op.Loc.Bits)
			c.stack[d].Loc = SlotLoc(slot)
		}
	}
}

// ---- liveness ----

func (c *compiler) liveSlots() []SlotRef {
	live := make([]SlotRef, 0, len(c.locals)+len(c.stack))
	for i, k := range c.locals {
		live = append(live, SlotRef{Slot: i, Kind: k, Loc: SlotLoc(i)})
	}
	for d, op := range c.stack {
		live = append(live, SlotRef{Slot: c.slotFor(d), Kind: op.Kind, Loc: op.Loc})
	}
	return live
}

func (c *compiler) recordSafepoint() {
	c.meta.Safepoints = append(c.meta.Safepoints, Safepoint{
		Offset: c.be.Offset(),
		Live:   c.liveSlots(),
	})
}

// ---- returns ----

func (c *compiler) emitReturn() {
	if len(c.sig.Results) == 1 {
		k := c.sig.Results[0]
		res := c.abi.IntResult
		if k.Class() == bytecode.ClassFloat {
			res = c.abi.FloatResult
		}
		op := c.pop()
		r := c.ensureFixed(op, res)
		c.dropReg(k.Class(), r)
	}
	c.be.EmitEpilogue()
}

// ---- lowering ----

func (c *compiler) lower(in bytecode.Instr) {
	if c.dead {
		// Only a label leaves the unreachable region.
		if in.Op == bytecode.OpLabel {
			c.be.BindLabel(c.labels[in.Imm])
			c.dead = false
		}
		return
	}
	if c.opts.SafepointEveryOp {
		c.recordSafepoint()
	}

	switch in.Op {
	case bytecode.OpNop:

	case bytecode.OpUnreachable:
		c.be.EmitTrap(TrapUnreachable)
		c.dead = true

	case bytecode.OpDrop:
		op := c.pop()
		if op.Loc.OnReg() {
			c.alloc.Release(op.Loc.Class, op.Loc.Reg)
		}

	case bytecode.OpSelect:
		c.lowerSelect()

	case bytecode.OpReturn:
		c.emitReturn()
		c.dead = true

	case bytecode.OpI32Const:
		c.push(Operand{Kind: bytecode.I32, Loc: ConstLoc(in.Imm)})
	case bytecode.OpI64Const:
		c.push(Operand{Kind: bytecode.I64, Loc: ConstLoc(in.Imm)})
	case bytecode.OpF32Const:
		c.push(Operand{Kind: bytecode.F32, Loc: ConstLoc(in.Imm)})
	case bytecode.OpF64Const:
		c.push(Operand{Kind: bytecode.F64, Loc: ConstLoc(in.Imm)})

	case bytecode.OpLocalGet:
		c.lowerLocalGet(int(in.Imm))
	case bytecode.OpLocalSet:
		c.lowerLocalSet(int(in.Imm), false)
	case bytecode.OpLocalTee:
		c.lowerLocalSet(int(in.Imm), true)

	case bytecode.OpLabel:
		c.flushAll()
		c.be.BindLabel(c.labels[in.Imm])
	case bytecode.OpBr:
		c.flushAll()
		c.be.EmitBr(c.labels[in.Imm])
		c.dead = true
	case bytecode.OpBrIf:
		c.lowerBrIf(c.labels[in.Imm])

	case bytecode.OpCall:
		c.lowerCall(callDirect, in.Imm)
	case bytecode.OpCallHost:
		c.lowerCall(callHost, in.Imm)
	case bytecode.OpCallIndirect:
		c.lowerCall(callIndirect, in.Imm)

	default:
		c.lowerNumeric(in)
	}
}

func (c *compiler) lowerLocalGet(index int) {
	k := c.locals[index]
	r := c.acquireDst(k.Class())
	c.be.EmitFill(k, r, index)
	c.keep(k, r)
}

func (c *compiler) lowerLocalSet(index int, tee bool) {
	k := c.locals[index]
	op := c.pop()
	if op.Loc.IsConst() && !tee {
		c.be.EmitSlotConst(k, index, op.Loc.Bits)
		return
	}
	r := c.ensureReg(op, 0)
	c.be.EmitSpill(k, index, r)
	if tee {
		c.keep(k, r)
	} else {
		c.dropReg(k.Class(), r)
	}
}

func (c *compiler) lowerSelect() {
	rc, _ := c.popReg()
	rf, kf := c.popReg()
	rt, kt := c.popReg()
	if kf != kt {
		panic(fmt.Sprintf("baseline: select arms disagree: %s vs %s", kt, kf))
	}
	c.be.EmitSelect(kt, rt, rc, rf)
	c.dropReg(bytecode.ClassInt, rc)
	c.dropReg(kf.Class(), rf)
	c.keep(kt, rt)
}

func (c *compiler) lowerBrIf(l Label) {
	cond := c.pop()
	c.flushAll()
	r := c.ensureReg(cond, 0)
	c.be.EmitBrIf(r, l)
	c.dropReg(bytecode.ClassInt, r)
}

// lowerBinop handles the plain two-operand integer and float ALU forms
// where the destination reuses the left operand's register.
func (c *compiler) lowerIntBinop(op IntBinOp, k bytecode.ValueKind) {
	rr, _ := c.popReg()
	rl, _ := c.popReg()
	c.be.EmitIntBinop(op, k, rl, rl, rr)
	c.dropReg(bytecode.ClassInt, rr)
	c.keep(k, rl)
}

func (c *compiler) lowerIntShift(op IntBinOp, k bytecode.ValueKind) {
	rhs := c.pop()
	var rr Reg
	if c.abi.ShiftCount != NoReg {
		rr = c.ensureFixed(rhs, c.abi.ShiftCount)
	} else {
		rr = c.ensureReg(rhs, 0)
	}
	rl, _ := c.popReg()
	c.be.EmitIntBinop(op, k, rl, rl, rr)
	c.dropReg(bytecode.ClassInt, rr)
	c.keep(k, rl)
}

func (c *compiler) lowerIntDiv(op IntDivOp, k bytecode.ValueKind) {
	if c.abi.DivLo == NoReg {
		rr, _ := c.popReg()
		rl, _ := c.popReg()
		c.be.EmitIntDiv(op, k, rl, rr)
		c.dropReg(bytecode.ClassInt, rr)
		c.keep(k, rl)
		return
	}
	fixed := SetOf(c.abi.DivLo, c.abi.DivHi)
	rhs := c.pop()
	rr := c.ensureReg(rhs, fixed)
	lhs := c.pop()
	rl := c.ensureFixed(lhs, c.abi.DivLo)
	c.alloc.AcquireFixed(bytecode.ClassInt, c.abi.DivHi)
	c.alloc.Pin(RegisterLoc(c.abi.DivHi, bytecode.ClassInt))
	c.be.EmitIntDiv(op, k, rl, rr)
	c.unpin(bytecode.ClassInt, c.abi.DivHi)
	c.unpin(bytecode.ClassInt, rl)
	c.dropReg(bytecode.ClassInt, rr)
	if op == RemS || op == RemU {
		c.alloc.Release(bytecode.ClassInt, c.abi.DivLo)
		c.push(regOperand(k, c.abi.DivHi))
	} else {
		c.alloc.Release(bytecode.ClassInt, c.abi.DivHi)
		c.push(regOperand(k, c.abi.DivLo))
	}
}

func (c *compiler) lowerIntUnop(op IntUnOp, k bytecode.ValueKind) {
	r, _ := c.popReg()
	c.be.EmitIntUnop(op, k, r, r)
	c.keep(k, r)
}

func (c *compiler) lowerIntCmp(cond Cond, k bytecode.ValueKind) {
	rr, _ := c.popReg()
	rl, _ := c.popReg()
	c.be.EmitIntCmp(cond, k, rl, rl, rr)
	c.dropReg(bytecode.ClassInt, rr)
	c.keep(bytecode.I32, rl)
}

func (c *compiler) lowerEqz(k bytecode.ValueKind) {
	r, _ := c.popReg()
	c.be.EmitEqz(k, r, r)
	c.keep(bytecode.I32, r)
}

func (c *compiler) lowerFloatBinop(op FloatBinOp, k bytecode.ValueKind) {
	rr, _ := c.popReg()
	rl, _ := c.popReg()
	c.be.EmitFloatBinop(op, k, rl, rl, rr)
	c.dropReg(bytecode.ClassFloat, rr)
	c.keep(k, rl)
}

func (c *compiler) lowerFloatUnop(op FloatUnOp, k bytecode.ValueKind) {
	r, _ := c.popReg()
	c.be.EmitFloatUnop(op, k, r, r)
	c.keep(k, r)
}

func (c *compiler) lowerFloatCmp(cond Cond, k bytecode.ValueKind) {
	rr, _ := c.popReg()
	rl, _ := c.popReg()
	dst := c.acquireDst(bytecode.ClassInt)
	c.be.EmitFloatCmp(cond, k, dst, rl, rr)
	c.dropReg(bytecode.ClassFloat, rl)
	c.dropReg(bytecode.ClassFloat, rr)
	c.keep(bytecode.I32, dst)
}

// lowerConvert covers every unary kind-changing operation; emit runs
// with both registers pinned.
func (c *compiler) lowerConvert(dstK bytecode.ValueKind, emit func(dst, src Reg)) {
	src, srcK := c.popReg()
	if dstK.Class() == srcK.Class() {
		emit(src, src)
		c.keep(dstK, src)
		return
	}
	dst := c.acquireDst(dstK.Class())
	emit(dst, src)
	c.dropReg(srcK.Class(), src)
	c.keep(dstK, dst)
}

func (c *compiler) lowerLoad(lk LoadKind, resK bytecode.ValueKind, offset uint64) {
	idx, _ := c.popReg()
	dst := c.acquireDst(resK.Class())
	c.be.EmitLoad(lk, dst, c.abi.MemBaseReg, idx, uint32(offset))
	c.dropReg(bytecode.ClassInt, idx)
	c.keep(resK, dst)
}

func (c *compiler) lowerStore(sk StoreKind, offset uint64) {
	val, vk := c.popReg()
	idx, _ := c.popReg()
	c.be.EmitStore(sk, c.abi.MemBaseReg, idx, uint32(offset), val)
	c.dropReg(bytecode.ClassInt, idx)
	c.dropReg(vk.Class(), val)
}

type callKind uint8

const (
	callDirect callKind = iota
	callHost
	callIndirect
)

func (c *compiler) lowerCall(kind callKind, imm uint64) {
	var sig bytecode.FuncType
	var err error
	switch kind {
	case callDirect:
		sig, err = c.m.FuncType(uint32(imm))
	case callHost:
		sig, err = c.m.HostType(uint32(imm))
	case callIndirect:
		if int(imm) >= len(c.m.Types) {
			err = fmt.Errorf("type index %d out of range", imm)
		} else {
			sig = c.m.Types[imm]
		}
	}
	if err != nil {
		panic(fmt.Sprintf("baseline: %v", err))
	}

	// Everything live crosses the call in memory.
	c.flushAll()

	var idxOp Operand
	if kind == callIndirect {
		idxOp = c.pop()
	}
	args := make([]Operand, len(sig.Params))
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = c.pop()
	}

	// Resolve the indirect target before argument registers are claimed.
	needScratch := kind == callIndirect || kind == callHost
	if needScratch {
		c.alloc.AcquireFixed(bytecode.ClassInt, c.abi.CallScratch)
		c.alloc.Pin(RegisterLoc(c.abi.CallScratch, bytecode.ClassInt))
	}
	if kind == callIndirect {
		idxReg := c.ensureReg(idxOp, SetOf(c.abi.CallScratch))
		c.be.EmitIndirectTarget(c.abi.CallScratch, idxReg, uint32(imm))
		c.dropReg(bytecode.ClassInt, idxReg)
	}

	plan := planArgs(c.abi, sig.Params)
	outBytes := 0
	if plan.stackSlots > 0 {
		outBytes = AlignUp(plan.stackSlots*SlotSize, c.abi.StackAlign)
	}
	c.be.EmitCallBegin(outBytes)

	// Stack arguments first: the argument registers are still free and
	// the first one of each class doubles as staging scratch.
	for i, arg := range args {
		if plan.slots[i] < 0 {
			continue
		}
		tmp := c.abi.IntArgs[0]
		if arg.Kind.Class() == bytecode.ClassFloat {
			tmp = c.abi.FloatArgs[0]
		}
		c.fillInto(arg, tmp)
		c.be.EmitOutgoingStackArg(arg.Kind, plan.slots[i], tmp)
	}

	// Register arguments, each claimed so scratch acquisition inside
	// constant materialization can never steal a loaded one.
	claimed := make([]Operand, 0, len(args)+1)
	for i, arg := range args {
		r := plan.regs[i]
		if r == NoReg {
			continue
		}
		class := arg.Kind.Class()
		c.alloc.AcquireFixed(class, r)
		c.alloc.Pin(RegisterLoc(r, class))
		claimed = append(claimed, regOperand(arg.Kind, r))
		c.fillInto(arg, r)
	}
	c.be.EmitLoadInstance(c.abi.InstanceArgReg)

	switch kind {
	case callDirect:
		c.be.EmitCallDirect(uint32(imm))
	case callHost:
		c.be.EmitCallHost(uint32(imm))
	case callIndirect:
		c.be.EmitCallIndirect(c.abi.CallScratch)
	}
	c.recordSafepoint()
	c.be.EmitCallEnd(outBytes)

	for _, cl := range claimed {
		c.dropReg(cl.Loc.Class, cl.Loc.Reg)
	}
	if needScratch {
		c.dropReg(bytecode.ClassInt, c.abi.CallScratch)
	}
	c.be.EmitInstanceRestore()

	if len(sig.Results) == 1 {
		k := sig.Results[0]
		res := c.abi.IntResult
		if k.Class() == bytecode.ClassFloat {
			res = c.abi.FloatResult
		}
		c.alloc.AcquireFixed(k.Class(), res)
		c.push(regOperand(k, res))
	}
}
