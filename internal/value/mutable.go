package value

// ---------------------------------------------------------------------------
// Cell: a single mutable slot.

type cellBox struct{ slot Value }

func (*cellBox) isHeapPayload() {}

// NewCell builds a cell holding the given initial value.
func NewCell(store Store, initial Value) Value {
	h := store.Alloc(KindCell)
	h.Payload = &cellBox{slot: initial}
	return fromHeap(h)
}

// CellGet returns the cell's current content.
func (v Value) CellGet() Value { return v.heap.Payload.(*cellBox).slot }

// CellSet mutates the cell's content.
func (v Value) CellSet(val Value) { v.heap.Payload.(*cellBox).slot = val }

// ---------------------------------------------------------------------------
// Array: a fixed-size mutable indexed sequence.

type arrayBox struct{ elems []Value }

func (*arrayBox) isHeapPayload() {}

// NewArray builds an array of the given size, every slot initialized to
// init.
func NewArray(store Store, size int, init Value) Value {
	h := store.Alloc(KindArray)
	elems := make([]Value, size)
	for i := range elems {
		elems[i] = init
	}
	h.Payload = &arrayBox{elems: elems}
	return fromHeap(h)
}

// NewArrayFrom builds an array directly from the given values (no copy
// guarantee is made to the caller; used by closure environments and
// new_array-with-literal-contents callers that already own the slice).
func NewArrayFrom(store Store, elems []Value) Value {
	h := store.Alloc(KindArray)
	h.Payload = &arrayBox{elems: elems}
	return fromHeap(h)
}

func (v Value) ArrayLen() int { return len(v.heap.Payload.(*arrayBox).elems) }

func (v Value) ArrayGet(i int) (Value, bool) {
	elems := v.heap.Payload.(*arrayBox).elems
	if i < 0 || i >= len(elems) {
		return Value{}, false
	}
	return elems[i], true
}

func (v Value) ArraySet(i int, val Value) bool {
	elems := v.heap.Payload.(*arrayBox).elems
	if i < 0 || i >= len(elems) {
		return false
	}
	elems[i] = val
	return true
}

func (v Value) ArrayElems() []Value { return v.heap.Payload.(*arrayBox).elems }

// ---------------------------------------------------------------------------
// Closure

type closureBox struct {
	segment CodeSegment
	env     Value // KindArray, or zero Value for an abstract closure
}

func (*closureBox) isHeapPayload() {}

// NewAbstractClosure builds a closure with no bound environment yet — the
// result of compiling a procedure literal before new_proc pairs it with an
// environment array (spec.md §4.5).
func NewAbstractClosure(store Store, segment CodeSegment) Value {
	h := store.Alloc(KindClosure)
	h.Payload = &closureBox{segment: segment}
	return fromHeap(h)
}

// NewProc pairs an abstract closure's bytecode segment with a concrete
// environment array, implementing the new_proc opcode (spec.md §6).
func NewProc(store Store, abstract Value, env Value) Value {
	cb := abstract.heap.Payload.(*closureBox)
	h := store.Alloc(KindClosure)
	h.Payload = &closureBox{segment: cb.segment, env: env}
	return fromHeap(h)
}

func (v Value) ClosureSegment() CodeSegment { return v.heap.Payload.(*closureBox).segment }
func (v Value) ClosureEnv() (Value, bool) {
	env := v.heap.Payload.(*closureBox).env
	return env, env.IsValid()
}

// ---------------------------------------------------------------------------
// Variable

type variableBox struct {
	bound       bool
	ref         Value
	suspensions []ThreadPayload
}

func (*variableBox) isHeapPayload() {}

// NewVariable allocates a fresh, unbound variable.
func NewVariable(store Store) Value {
	h := store.Alloc(KindVariable)
	h.Payload = &variableBox{}
	return fromHeap(h)
}

func (v Value) varBox() *variableBox { return v.heap.Payload.(*variableBox) }

// VarBound reports whether this variable is currently bound.
func (v Value) VarBound() bool { return v.varBox().bound }

// VarRef returns the value this variable is bound to. Only valid if
// VarBound() is true.
func (v Value) VarRef() Value { return v.varBox().ref }

// VarBind binds the variable to target. The caller is responsible for
// suspension-list handling (draining to the runnable queue on commit,
// restoring on rollback) per the transactional algorithm in spec.md §4.3.
func (v Value) VarBind(target Value) {
	vb := v.varBox()
	vb.bound = true
	vb.ref = target
}

// VarUnbind reverts a variable to the free state, used by unify's rollback
// path.
func (v Value) VarUnbind() {
	vb := v.varBox()
	vb.bound = false
	vb.ref = Value{}
}

// VarSuspensions returns the variable's current suspension list.
func (v Value) VarSuspensions() []ThreadPayload { return v.varBox().suspensions }

// VarSetSuspensions overwrites the suspension list (used by rollback to
// restore a pre-mutation snapshot, and by forwarding to hand one
// variable's list to another).
func (v Value) VarSetSuspensions(list []ThreadPayload) { v.varBox().suspensions = list }

// VarAddSuspension appends a thread to the suspension list.
func (v Value) VarAddSuspension(t ThreadPayload) {
	vb := v.varBox()
	vb.suspensions = append(vb.suspensions, t)
}

// VarDrainSuspensions returns the current suspension list and clears it,
// used when a variable is bound and its waiters become runnable.
func (v Value) VarDrainSuspensions() []ThreadPayload {
	vb := v.varBox()
	list := vb.suspensions
	vb.suspensions = nil
	return list
}

// VarBoundTo reports whether v is a variable currently bound directly to
// target (not merely unifiable with it) — a convenience mostly used by
// tests asserting on internal/unify's binding behavior.
func VarBoundTo(v, target Value) bool {
	if v.Kind() != KindVariable {
		return false
	}
	vb := v.varBox()
	return vb.bound && vb.ref == target
}

// ---------------------------------------------------------------------------
// Thread

type threadBox struct{ payload ThreadPayload }

func (*threadBox) isHeapPayload() {}

// NewThreadValue wraps an engine-level thread as a heap value so it can be
// passed around as an ordinary Oz value (e.g. as the result of
// new_thread).
func NewThreadValue(store Store, payload ThreadPayload) Value {
	h := store.Alloc(KindThread)
	h.Payload = &threadBox{payload: payload}
	return fromHeap(h)
}

func (v Value) ThreadPayload() ThreadPayload { return v.heap.Payload.(*threadBox).payload }
