package engine

import (
	"math/big"

	"ozvm/internal/bytecode"
	"ozvm/internal/errors"
	"ozvm/internal/literal"
	"ozvm/internal/unify"
	"ozvm/internal/value"
)

// readOperand resolves an operand against frame's registers, returning the
// raw (possibly still-free) value — no Deref.
func (t *Thread) readOperand(frame *CallFrame, op bytecode.Operand) (value.Value, bool) {
	if !op.IsRegister() {
		return op.Immediate(), true
	}
	return t.readRegister(frame, op.Register())
}

func (t *Thread) readRegister(frame *CallFrame, r bytecode.Register) (value.Value, bool) {
	switch r.Kind {
	case bytecode.RegLocalArray:
		return frame.Locals, true
	case bytecode.RegParamArray:
		return frame.Params, true
	case bytecode.RegClosureArray:
		env, ok := frame.Closure.ClosureEnv()
		if !ok {
			return value.Value{}, false
		}
		return env, true
	case bytecode.RegArrayArray:
		return frame.SelectedArray, true
	case bytecode.RegLocal:
		return frame.Locals.ArrayGet(r.Index)
	case bytecode.RegParam:
		return frame.Params.ArrayGet(r.Index)
	case bytecode.RegClosure:
		env, ok := frame.Closure.ClosureEnv()
		if !ok {
			return value.Value{}, false
		}
		return env.ArrayGet(r.Index)
	case bytecode.RegArray:
		if !frame.SelectedArray.IsValid() {
			return value.Value{}, false
		}
		return frame.SelectedArray.ArrayGet(r.Index)
	case bytecode.RegExn:
		return t.exception, true
	default:
		return value.Value{}, false
	}
}

func (t *Thread) writeRegister(frame *CallFrame, r bytecode.Register, v value.Value) bool {
	switch r.Kind {
	case bytecode.RegLocalArray:
		frame.Locals = v
		return true
	case bytecode.RegParamArray:
		frame.Params = v
		return true
	case bytecode.RegArrayArray:
		frame.SelectedArray = v
		return true
	case bytecode.RegLocal:
		return frame.Locals.ArraySet(r.Index, v)
	case bytecode.RegParam:
		return frame.Params.ArraySet(r.Index, v)
	case bytecode.RegArray:
		if !frame.SelectedArray.IsValid() {
			return false
		}
		return frame.SelectedArray.ArraySet(r.Index, v)
	case bytecode.RegExn:
		t.exception = v
		return true
	default:
		return false
	}
}

// resolve reads an operand and dereferences it, following bound variable
// chains (spec.md §4.3).
func (t *Thread) resolve(frame *CallFrame, op bytecode.Operand) (value.Value, bool) {
	v, ok := t.readOperand(frame, op)
	if !ok {
		return value.Value{}, false
	}
	return value.Deref(v), true
}

// determined resolves op and, if it dereferences to a free variable,
// suspends the thread on it and returns ok=false. Callers that need a
// determined operand call this and return immediately when ok is false.
func (t *Thread) determined(frame *CallFrame, opName string, op bytecode.Operand) (value.Value, bool) {
	v, ok := t.resolve(frame, op)
	if !ok {
		t.badOperand(opName, "register read out of range")
		return value.Value{}, false
	}
	if value.IsFree(v) {
		t.suspendOn(v)
		return value.Value{}, false
	}
	return v, true
}

func (t *Thread) setOut(frame *CallFrame, instr bytecode.Instruction, v value.Value) {
	if !t.writeRegister(frame, instr.Out, v) {
		t.badOperand(instr.Op.String(), "destination register out of range")
	}
}

// advance moves past a successfully executed non-branching instruction.
func (t *Thread) advance(frame *CallFrame) {
	frame.CodePointer++
}

func (t *Thread) wake(woken []value.ThreadPayload) {
	t.engine.wake(woken)
}

// execute dispatches a single instruction. Every branch advances or moves
// frame.CodePointer itself (call, branches, return/raise unwinding); on a
// suspension or a thread failure it is left untouched. The caller applies
// no default advance.
func (t *Thread) execute(frame *CallFrame, instr bytecode.Instruction) {
	op := instr.Op
	switch op {
	case bytecode.OpNop:
		t.advance(frame)

	case bytecode.OpLoad:
		v, ok := t.readOperand(frame, instr.A)
		if !ok {
			t.badOperand(op.String(), "source register out of range")
			return
		}
		t.setOut(frame, instr, v)
		t.advance(frame)

	case bytecode.OpBranch:
		frame.CodePointer = instr.Target

	case bytecode.OpBranchIf:
		v, ok := t.determined(frame, op.String(), instr.A)
		if !ok {
			return
		}
		if value.IsTrue(v) {
			frame.CodePointer = instr.Target
		} else {
			t.advance(frame)
		}

	case bytecode.OpBranchUnless:
		v, ok := t.determined(frame, op.String(), instr.A)
		if !ok {
			return
		}
		if !value.IsTrue(v) {
			frame.CodePointer = instr.Target
		} else {
			t.advance(frame)
		}

	case bytecode.OpBranchSwitchLiteral:
		v, ok := t.determined(frame, op.String(), instr.A)
		if !ok {
			return
		}
		matched := false
		for _, c := range instr.Cases {
			if unify.Equals(v, c.Literal) {
				frame.CodePointer = c.Target
				matched = true
				break
			}
		}
		if !matched {
			// A miss falls through to the next instruction (spec.md §6).
			t.advance(frame)
		}

	case bytecode.OpCall:
		t.execCall(frame, instr)
	case bytecode.OpCallTail:
		t.execCallTail(frame, instr)
	case bytecode.OpCallNative:
		t.execCallNative(frame, instr)
	case bytecode.OpReturn:
		t.doReturn()

	case bytecode.OpExnPushCatch:
		frame.Handlers = append(frame.Handlers, ExnHandler{Kind: ExnCatch, Target: instr.Target})
		t.advance(frame)
	case bytecode.OpExnPushFinally:
		frame.Handlers = append(frame.Handlers, ExnHandler{Kind: ExnFinally, Target: instr.Target})
		t.advance(frame)
	case bytecode.OpExnPop:
		if n := len(frame.Handlers); n > 0 {
			frame.Handlers = frame.Handlers[:n-1]
		}
		t.advance(frame)
	case bytecode.OpExnRaise:
		v, ok := t.readOperand(frame, instr.A)
		if !ok {
			t.badOperand(op.String(), "exception register out of range")
			return
		}
		t.raise(v)
	case bytecode.OpExnReset:
		t.setOut(frame, instr, t.exception)
		t.exception = value.Value{}
		t.advance(frame)
	case bytecode.OpExnReraise:
		v, ok := t.readOperand(frame, instr.A)
		if !ok {
			t.badOperand(op.String(), "exception register out of range")
			return
		}
		if v.IsValid() {
			t.raise(v)
		} else {
			t.doReturn()
		}

	case bytecode.OpNewVariable:
		t.setOut(frame, instr, value.NewVariable(t.store))
		t.advance(frame)
	case bytecode.OpNewName:
		t.setOut(frame, instr, value.FromName(literal.New()))
		t.advance(frame)
	case bytecode.OpNewCell:
		init, ok := t.readOperand(frame, instr.A)
		if !ok {
			t.badOperand(op.String(), "init operand out of range")
			return
		}
		t.setOut(frame, instr, value.NewCell(t.store, init))
		t.advance(frame)
	case bytecode.OpNewArray:
		t.execNewArray(frame, instr)
	case bytecode.OpNewArity:
		t.execNewArity(frame, instr)
	case bytecode.OpNewList:
		head, ok1 := t.readOperand(frame, instr.A)
		tail, ok2 := t.readOperand(frame, instr.B)
		if !ok1 || !ok2 {
			t.badOperand(op.String(), "head/tail operand out of range")
			return
		}
		t.setOut(frame, instr, value.NewList(t.store, head, tail))
		t.advance(frame)
	case bytecode.OpNewTuple:
		t.execNewTuple(frame, instr)
	case bytecode.OpNewRecord:
		t.execNewRecord(frame, instr)
	case bytecode.OpNewProc:
		t.execNewProc(frame, instr)
	case bytecode.OpNewThread:
		t.execNewThread(frame, instr)

	case bytecode.OpGetValueType:
		v, ok := t.determined(frame, op.String(), instr.A)
		if !ok {
			return
		}
		t.setOut(frame, instr, value.FromAtom(kindAtom(v.Kind())))
		t.advance(frame)

	case bytecode.OpAccessCell:
		t.execAccessCell(frame, instr)
	case bytecode.OpAccessArray:
		t.execAccessArray(frame, instr)
	case bytecode.OpAccessRecord:
		t.execAccessRecord(frame, instr)
	case bytecode.OpAccessRecordLabel:
		t.execAccessRecordLabel(frame, instr)
	case bytecode.OpAccessRecordArity:
		t.execAccessRecordArity(frame, instr, false)
	case bytecode.OpAccessOpenRecordArity:
		t.execAccessRecordArity(frame, instr, true)

	case bytecode.OpAssignCell:
		t.execAssignCell(frame, instr)
	case bytecode.OpAssignArray:
		t.execAssignArray(frame, instr)

	case bytecode.OpUnify:
		a, ok1 := t.readOperand(frame, instr.A)
		b, ok2 := t.readOperand(frame, instr.B)
		if !ok1 || !ok2 {
			t.badOperand(op.String(), "unify operand out of range")
			return
		}
		ok, woken := unify.Unify(a, b)
		if !ok {
			t.badOperand(op.String(), "unification failed; use try_unify to recover")
			return
		}
		t.wake(woken)
		t.advance(frame)
	case bytecode.OpTryUnify:
		a, ok1 := t.readOperand(frame, instr.A)
		b, ok2 := t.readOperand(frame, instr.B)
		if !ok1 || !ok2 {
			t.badOperand(op.String(), "unify operand out of range")
			return
		}
		ok, woken := unify.Unify(a, b)
		t.wake(woken)
		t.setOut(frame, instr, value.Bool(ok))
		t.advance(frame)
	case bytecode.OpUnifyRecordField:
		t.execUnifyRecordField(frame, instr)

	case bytecode.OpTestIsDet:
		v, ok := t.resolve(frame, instr.A)
		if !ok {
			t.badOperand(op.String(), "operand out of range")
			return
		}
		t.setOut(frame, instr, value.Bool(v.Kind() != value.KindVariable))
		t.advance(frame)
	case bytecode.OpTestIsRecord:
		v, ok := t.determined(frame, op.String(), instr.A)
		if !ok {
			return
		}
		t.setOut(frame, instr, value.Bool(isRecordCapable(v.Kind())))
		t.advance(frame)
	case bytecode.OpTestEquality:
		a, ok1 := t.determined(frame, op.String(), instr.A)
		if !ok1 {
			return
		}
		b, ok2 := t.determined(frame, op.String(), instr.B)
		if !ok2 {
			return
		}
		t.setOut(frame, instr, value.Bool(unify.Equals(a, b)))
		t.advance(frame)
	case bytecode.OpTestLessThan:
		t.execCompare(frame, instr, false)
	case bytecode.OpTestLessOrEqual:
		t.execCompare(frame, instr, true)
	case bytecode.OpTestArityExtends:
		t.execArityExtends(frame, instr)

	case bytecode.OpNumberIntInverse:
		t.execIntUnary(frame, instr)
	case bytecode.OpNumberIntAdd, bytecode.OpNumberIntSubtract, bytecode.OpNumberIntMultiply, bytecode.OpNumberIntDivide:
		t.execIntBinary(frame, instr)

	case bytecode.OpNumberBoolNegate:
		v, ok := t.determined(frame, op.String(), instr.A)
		if !ok {
			return
		}
		t.setOut(frame, instr, value.Bool(!value.IsTrue(v)))
		t.advance(frame)
	case bytecode.OpNumberBoolAndThen:
		t.execShortCircuit(frame, instr, false)
	case bytecode.OpNumberBoolOrElse:
		t.execShortCircuit(frame, instr, true)
	case bytecode.OpNumberBoolXor:
		a, ok1 := t.determined(frame, op.String(), instr.A)
		if !ok1 {
			return
		}
		b, ok2 := t.determined(frame, op.String(), instr.B)
		if !ok2 {
			return
		}
		t.setOut(frame, instr, value.Bool(value.IsTrue(a) != value.IsTrue(b)))
		t.advance(frame)

	default:
		t.fail(&errors.UnknownOpcode{Op: uint8(op)})
	}
}

func (t *Thread) execCall(frame *CallFrame, instr bytecode.Instruction) {
	proc, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if proc.Kind() != value.KindClosure {
		t.badOperand(instr.Op.String(), "call target is not a procedure")
		return
	}
	params, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	if params.Kind() != value.KindArray {
		t.badOperand(instr.Op.String(), "call parameters are not an array")
		return
	}
	t.advance(frame)
	t.pushFrame(proc, params)
}

func (t *Thread) execCallTail(frame *CallFrame, instr bytecode.Instruction) {
	proc, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if proc.Kind() != value.KindClosure {
		t.badOperand(instr.Op.String(), "call target is not a procedure")
		return
	}
	params, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	if params.Kind() != value.KindArray {
		t.badOperand(instr.Op.String(), "call parameters are not an array")
		return
	}
	// Tail call: overwrite closure/params in place, keep the locals array
	// (content not reset), and clear the selected array plus exception
	// handler stack — the frame becomes the callee's frame without growing
	// the call stack.
	frame.Closure = proc
	frame.Params = params
	frame.SelectedArray = value.Value{}
	frame.Handlers = nil
	frame.CodePointer = 0
}

func (t *Thread) execCallNative(frame *CallFrame, instr bytecode.Instruction) {
	name, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	atom, ok := name.AsAtom()
	if !ok {
		t.badOperand(instr.Op.String(), "native name is not an atom")
		return
	}
	params, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	fn, ok := t.engine.lookupNative(atom.String())
	if !ok {
		t.badOperand(instr.Op.String(), "unregistered native: "+atom.String())
		return
	}
	// Natives communicate results the same way Oz procedures do: by
	// unifying into an output slot the caller pre-allocated inside params,
	// not via a VM-level return register (spec.md §6 gives call_native no
	// destination operand).
	if err := fn(t, params); err != nil {
		t.fail(err)
		return
	}
	t.advance(frame)
}

func (t *Thread) execAccessCell(frame *CallFrame, instr bytecode.Instruction) {
	cell, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if cell.Kind() != value.KindCell {
		t.badOperand(instr.Op.String(), "operand is not a cell")
		return
	}
	t.setOut(frame, instr, cell.CellGet())
	t.advance(frame)
}

func (t *Thread) execAssignCell(frame *CallFrame, instr bytecode.Instruction) {
	cell, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if cell.Kind() != value.KindCell {
		t.badOperand(instr.Op.String(), "operand is not a cell")
		return
	}
	val, ok := t.readOperand(frame, instr.B)
	if !ok {
		t.badOperand(instr.Op.String(), "value operand out of range")
		return
	}
	cell.CellSet(val)
	t.advance(frame)
}

func (t *Thread) execAccessArray(frame *CallFrame, instr bytecode.Instruction) {
	arr, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if arr.Kind() != value.KindArray {
		t.badOperand(instr.Op.String(), "operand is not an array")
		return
	}
	idxV, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	idx, ok := idxV.SmallIntValue()
	if !ok {
		t.badOperand(instr.Op.String(), "array index is not a small integer")
		return
	}
	val, ok := arr.ArrayGet(int(idx))
	if !ok {
		t.badOperand(instr.Op.String(), "array index out of range")
		return
	}
	t.setOut(frame, instr, val)
	t.advance(frame)
}

func (t *Thread) execAssignArray(frame *CallFrame, instr bytecode.Instruction) {
	arr, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if arr.Kind() != value.KindArray {
		t.badOperand(instr.Op.String(), "operand is not an array")
		return
	}
	idxV, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	idx, ok := idxV.SmallIntValue()
	if !ok {
		t.badOperand(instr.Op.String(), "array index is not a small integer")
		return
	}
	val, ok := t.readOperand(frame, instr.C)
	if !ok {
		t.badOperand(instr.Op.String(), "value operand out of range")
		return
	}
	if !arr.ArraySet(int(idx), val) {
		t.badOperand(instr.Op.String(), "array index out of range")
	}
	t.advance(frame)
}

// resolveRecordCapable derefs v and, when it is an OpenRecord, blocks on
// its embedded ref variable until bound, at which point the OpenRecord's
// now-closed form is whatever deref(ref) has become — the "closed
// counterpart" blocking behavior of spec.md §4.4. Returns ok=false both on
// suspension and on an outright type error (the caller can't tell which
// happened from the return value alone, which is fine: in both cases it
// must simply return from execute without advancing).
func (t *Thread) resolveRecordCapable(frame *CallFrame, opName string, op bytecode.Operand) (value.Value, bool) {
	v, ok := t.determined(frame, opName, op)
	if !ok {
		return value.Value{}, false
	}
	if v.Kind() == value.KindOpenRecord {
		ref := value.Deref(v.OpenRecordRef())
		if value.IsFree(ref) {
			t.suspendOn(ref)
			return value.Value{}, false
		}
		v = ref
	}
	if !isRecordCapable(v.Kind()) {
		t.badOperand(opName, "operand is not record-capable")
		return value.Value{}, false
	}
	return v, true
}

func (t *Thread) execAccessRecord(frame *CallFrame, instr bytecode.Instruction) {
	rec, ok := t.resolveRecordCapable(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	feature, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	val, found := rec.GetFeature(feature)
	if !found {
		t.raise(featureNotFoundValue(t.store, feature, rec.RecordArity()))
		return
	}
	t.setOut(frame, instr, val)
	t.advance(frame)
}

func (t *Thread) execAccessRecordLabel(frame *CallFrame, instr bytecode.Instruction) {
	rec, ok := t.resolveRecordCapable(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	t.setOut(frame, instr, rec.Label())
	t.advance(frame)
}

func (t *Thread) execAccessRecordArity(frame *CallFrame, instr bytecode.Instruction, openVariant bool) {
	if openVariant {
		v, ok := t.determined(frame, instr.Op.String(), instr.A)
		if !ok {
			return
		}
		if v.Kind() == value.KindOpenRecord {
			t.setOut(frame, instr, value.FromArity(v.OpenRecordArity()))
			t.advance(frame)
			return
		}
		if !isRecordCapable(v.Kind()) {
			t.badOperand(instr.Op.String(), "operand is not record-capable")
			return
		}
		t.setOut(frame, instr, value.FromArity(v.RecordArity()))
		t.advance(frame)
		return
	}
	rec, ok := t.resolveRecordCapable(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	t.setOut(frame, instr, value.FromArity(rec.RecordArity()))
	t.advance(frame)
}

// execUnifyRecordField lets compiled code progressively fill in an
// OpenRecord one feature at a time without forcing it closed: if the
// record is still open, an absent feature is simply set, a present one is
// unified with the new value, and only a fixed-arity (non-open)
// RecordCapable target falls back to ordinary GetFeature-then-unify
// (raising FeatureNotFound as an Oz exception, per DESIGN.md's access
// policy, when the feature is not in its arity).
func (t *Thread) execUnifyRecordField(frame *CallFrame, instr bytecode.Instruction) {
	rec, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	feature, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	val, ok := t.readOperand(frame, instr.C)
	if !ok {
		t.badOperand(instr.Op.String(), "value operand out of range")
		return
	}
	if rec.Kind() == value.KindOpenRecord {
		if existing, has := rec.OpenRecordGet(feature); has {
			ok, woken := unify.Unify(existing, val)
			if !ok {
				t.badOperand(instr.Op.String(), "unification failed merging open record field")
				return
			}
			t.wake(woken)
		} else {
			rec.OpenRecordSet(feature, val)
		}
		t.advance(frame)
		return
	}
	if !isRecordCapable(rec.Kind()) {
		t.badOperand(instr.Op.String(), "operand is not record-capable")
		return
	}
	existing, found := rec.GetFeature(feature)
	if !found {
		t.raise(featureNotFoundValue(t.store, feature, rec.RecordArity()))
		return
	}
	ok2, woken := unify.Unify(existing, val)
	if !ok2 {
		t.badOperand(instr.Op.String(), "unification failed")
		return
	}
	t.wake(woken)
	t.advance(frame)
}

func (t *Thread) execNewArray(frame *CallFrame, instr bytecode.Instruction) {
	sizeV, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	size, ok := sizeV.SmallIntValue()
	if !ok || size < 0 {
		t.badOperand(instr.Op.String(), "array size is not a non-negative small integer")
		return
	}
	init, ok := t.readOperand(frame, instr.B)
	if !ok {
		t.badOperand(instr.Op.String(), "init operand out of range")
		return
	}
	t.setOut(frame, instr, value.NewArray(t.store, int(size), init))
	t.advance(frame)
}

func (t *Thread) execNewArity(frame *CallFrame, instr bytecode.Instruction) {
	featuresV, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	var elems []value.Value
	switch featuresV.Kind() {
	case value.KindArray:
		elems = featuresV.ArrayElems()
	case value.KindList, value.KindAtom:
		// An empty list is represented as the atom 'nil' (spec.md §4.2);
		// any other list walks its spine.
		if featuresV.Kind() == value.KindAtom {
			break
		}
		for cur := featuresV; cur.Kind() == value.KindList; {
			head := value.Deref(cur.Head())
			if value.IsFree(head) {
				t.suspendOn(head)
				return
			}
			elems = append(elems, head)
			cur = value.Deref(cur.Tail())
		}
	default:
		t.badOperand(instr.Op.String(), "arity features operand is not an array or list")
		return
	}
	for _, e := range elems {
		if value.IsFree(e) {
			t.suspendOn(e)
			return
		}
	}
	t.setOut(frame, instr, value.FromArity(value.ArityGetValues(elems)))
	t.advance(frame)
}

// freshVariables allocates n fresh free variables, used to seed the slots
// of a freshly-constructed Tuple/Record — construction never blocks
// because each slot starts unbound, and callers unify individual fields
// into them afterward (spec.md §4.4: records are immutable once
// determined, but nothing says every field must already be determined at
// construction time).
func (t *Thread) freshVariables(n int) []value.Value {
	out := make([]value.Value, n)
	for i := range out {
		out[i] = value.NewVariable(t.store)
	}
	return out
}

func (t *Thread) execNewTuple(frame *CallFrame, instr bytecode.Instruction) {
	sizeV, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	size, ok := sizeV.SmallIntValue()
	if !ok || size < 0 {
		t.badOperand(instr.Op.String(), "tuple size is not a non-negative small integer")
		return
	}
	label, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	t.setOut(frame, instr, value.NewTuple(t.store, label, t.freshVariables(int(size))))
	t.advance(frame)
}

func (t *Thread) execNewRecord(frame *CallFrame, instr bytecode.Instruction) {
	arV, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	ar, ok := arV.AsArity()
	if !ok {
		t.badOperand(instr.Op.String(), "operand is not an arity")
		return
	}
	label, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	t.setOut(frame, instr, value.NewRecord(t.store, label, ar, t.freshVariables(ar.Width())))
	t.advance(frame)
}

func (t *Thread) execNewProc(frame *CallFrame, instr bytecode.Instruction) {
	abstract, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if abstract.Kind() != value.KindClosure {
		t.badOperand(instr.Op.String(), "proc operand is not an abstract closure")
		return
	}
	env, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	if env.Kind() != value.KindArray {
		t.badOperand(instr.Op.String(), "env operand is not an array")
		return
	}
	t.setOut(frame, instr, value.NewProc(t.store, abstract, env))
	t.advance(frame)
}

func (t *Thread) execNewThread(frame *CallFrame, instr bytecode.Instruction) {
	proc, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if proc.Kind() != value.KindClosure {
		t.badOperand(instr.Op.String(), "proc operand is not a procedure")
		return
	}
	params, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	if params.Kind() != value.KindArray {
		t.badOperand(instr.Op.String(), "params operand is not an array")
		return
	}
	child := t.engine.spawnThread(proc, params)
	t.setOut(frame, instr, value.NewThreadValue(t.store, child))
	t.advance(frame)
}

func (t *Thread) execCompare(frame *CallFrame, instr bytecode.Instruction, orEqual bool) {
	a, ok1 := t.determined(frame, instr.Op.String(), instr.A)
	if !ok1 {
		return
	}
	b, ok2 := t.determined(frame, instr.Op.String(), instr.B)
	if !ok2 {
		return
	}
	if !isLiteralKind(a.Kind()) || !isLiteralKind(b.Kind()) {
		t.badOperand(instr.Op.String(), "operand is not an ordered literal")
		return
	}
	less := value.LessLiteral(a, b)
	result := less
	if orEqual {
		result = less || value.EqualAsLiteral(a, b)
	}
	t.setOut(frame, instr, value.Bool(result))
	t.advance(frame)
}

func (t *Thread) execArityExtends(frame *CallFrame, instr bytecode.Instruction) {
	superV, ok1 := t.determined(frame, instr.Op.String(), instr.A)
	if !ok1 {
		return
	}
	subV, ok2 := t.determined(frame, instr.Op.String(), instr.B)
	if !ok2 {
		return
	}
	super, ok := superV.AsArity()
	if !ok {
		t.badOperand(instr.Op.String(), "left operand is not an arity")
		return
	}
	sub, ok := subV.AsArity()
	if !ok {
		t.badOperand(instr.Op.String(), "right operand is not an arity")
		return
	}
	extends := true
	for _, f := range value.ArityFeatureValues(sub) {
		if !super.Has(f) {
			extends = false
			break
		}
	}
	t.setOut(frame, instr, value.Bool(extends))
	t.advance(frame)
}

func (t *Thread) requireBigInt(frame *CallFrame, opName string, op bytecode.Operand) (*big.Int, bool) {
	v, ok := t.determined(frame, opName, op)
	if !ok {
		return nil, false
	}
	n, ok := v.BigInt()
	if !ok {
		t.badOperand(opName, "operand is not an integer")
		return nil, false
	}
	return n, true
}

func (t *Thread) execIntUnary(frame *CallFrame, instr bytecode.Instruction) {
	n, ok := t.requireBigInt(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	t.setOut(frame, instr, value.Integer(t.store, new(big.Int).Neg(n)))
	t.advance(frame)
}

// execIntBinary implements number_int_add/subtract/multiply/divide.
// Division uses big.Int.Quo (truncating toward zero, matching
// original_source's C++ integer division) rather than Euclidean
// Div — see DESIGN.md's Open Question decision.
func (t *Thread) execIntBinary(frame *CallFrame, instr bytecode.Instruction) {
	a, ok1 := t.requireBigInt(frame, instr.Op.String(), instr.A)
	if !ok1 {
		return
	}
	b, ok2 := t.requireBigInt(frame, instr.Op.String(), instr.B)
	if !ok2 {
		return
	}
	result := new(big.Int)
	switch instr.Op {
	case bytecode.OpNumberIntAdd:
		result.Add(a, b)
	case bytecode.OpNumberIntSubtract:
		result.Sub(a, b)
	case bytecode.OpNumberIntMultiply:
		result.Mul(a, b)
	case bytecode.OpNumberIntDivide:
		if b.Sign() == 0 {
			t.badOperand(instr.Op.String(), "division by zero")
			return
		}
		result.Quo(a, b)
	}
	t.setOut(frame, instr, value.Integer(t.store, result))
	t.advance(frame)
}

// execShortCircuit implements number_bool_and_then/or_else: both are
// short-circuit on the first operand, returning that operand unchanged
// when it alone determines the result, and otherwise returning the second
// operand as-is (not a freshly-computed boolean) — spec.md §6's "returning
// it when it determines the result."
func (t *Thread) execShortCircuit(frame *CallFrame, instr bytecode.Instruction, isOr bool) {
	a, ok := t.determined(frame, instr.Op.String(), instr.A)
	if !ok {
		return
	}
	if value.IsTrue(a) == isOr {
		t.setOut(frame, instr, a)
		t.advance(frame)
		return
	}
	b, ok := t.determined(frame, instr.Op.String(), instr.B)
	if !ok {
		return
	}
	t.setOut(frame, instr, b)
	t.advance(frame)
}

func isRecordCapable(k value.Kind) bool {
	switch k {
	case value.KindAtom, value.KindName, value.KindTuple, value.KindRecord, value.KindList:
		return true
	default:
		return false
	}
}

func isLiteralKind(k value.Kind) bool {
	switch k {
	case value.KindSmallInt, value.KindInteger, value.KindAtom, value.KindName:
		return true
	default:
		return false
	}
}
