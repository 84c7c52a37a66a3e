// Package engine implements the thread, call stack, exception handling,
// and cooperative scheduler from spec.md §4.7-§4.8: the per-thread
// dispatch loop that executes internal/bytecode.Instruction sequences
// against a internal/value.Store, suspending on free variables and
// driving internal/unify for the unification opcodes.
//
// Ported from original_source/src/store/thread.h/.cc's Thread/CallStackEntry/
// ExnStackEntry trio and engine.h/.cc's single-threaded runnable-queue
// scheduler, generalized to spec.md's closed instruction set (§6) and to
// Go's cooperative-goroutine-free execution model: there is exactly one
// goroutine driving Engine.Run, matching spec.md §4.8's invariant that
// only one thread is ever active.
package engine

import (
	"ozvm/internal/bytecode"
	"ozvm/internal/errors"
	"ozvm/internal/value"
)

// State is the closed set of thread states from spec.md §4.7/§4.8.
type State uint8

const (
	StateRunnable State = iota
	StateWaiting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateWaiting:
		return "waiting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown-state"
	}
}

// ExnHandlerKind distinguishes the two entries a frame's exception handler
// stack can hold (spec.md §4.7).
type ExnHandlerKind uint8

const (
	ExnFinally ExnHandlerKind = iota
	ExnCatch
)

// ExnHandler is one entry of a call frame's exception handler stack.
type ExnHandler struct {
	Kind   ExnHandlerKind
	Target int
}

// CallFrame is one entry of a thread's call stack (spec.md §4.7).
type CallFrame struct {
	Closure       value.Value // KindClosure
	Params        value.Value // KindArray
	Locals        value.Value // KindArray, sized from closure's NumLocals
	SelectedArray value.Value // zero Value until set by a load into a*
	CodePointer   int
	Handlers      []ExnHandler
}

func newCallFrame(store value.Store, closure, params value.Value) *CallFrame {
	seg := closure.ClosureSegment()
	locals := value.NewArray(store, seg.NumLocals(), value.Value{})
	return &CallFrame{Closure: closure, Params: params, Locals: locals}
}

// Thread is the per-thread state from spec.md §3/§4.7: a call stack, a
// single exception register, and a unique id. It implements
// value.ThreadPayload so a Thread can be carried around as an ordinary Oz
// value (the result of new_thread) and as the element type of a
// Variable's suspension list.
type Thread struct {
	id        uint64
	engine    *Engine
	store     value.Store
	frames    []*CallFrame
	exception value.Value
	state     State
	waitingOn value.Value
	termErr   error
}

// ThreadID implements value.ThreadPayload.
func (t *Thread) ThreadID() uint64 { return t.id }

// State reports the thread's current scheduling state.
func (t *Thread) State() State { return t.state }

// TerminationError reports why a terminated thread stopped: nil for a
// clean return off the bottom of the call stack, a *errors.ThreadRaise for
// an uncaught exception, or a thread-fatal diagnostic otherwise.
func (t *Thread) TerminationError() error { return t.termErr }

// Store returns the thread's own sub-store, into which every allocation
// opcode it executes allocates (spec.md §3: "Thread — ... own sub-store").
func (t *Thread) Store() value.Store { return t.store }

func (t *Thread) currentFrame() *CallFrame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

func (t *Thread) pushFrame(closure, params value.Value) {
	t.frames = append(t.frames, newCallFrame(t.store, closure, params))
}

// suspendOn parks the thread on v's suspension list (v must be a free
// variable, i.e. already Deref'd to one) and does not advance the code
// pointer, implementing spec.md §4.8's suspension semantics: "the
// instruction is not consumed; the thread is inserted into the variable's
// suspension list and removed from the runnable queue."
func (t *Thread) suspendOn(v value.Value) {
	v.VarAddSuspension(t)
	t.state = StateWaiting
	t.waitingOn = v
}

func (t *Thread) fail(err error) {
	t.state = StateTerminated
	t.termErr = err
}

// badOperand terminates the thread with a bad-operand diagnostic,
// implementing the thread-fatal policy of spec.md §7.
func (t *Thread) badOperand(op, reason string) {
	t.fail(errors.NewBadOperand(op, reason))
}

// raise implements spec.md §4.7's Raise semantics: write v into the
// exception register, then pop frames until one with a non-empty handler
// stack is found, entering its top handler. If the call stack empties
// without finding one, the thread terminates carrying a *errors.ThreadRaise.
func (t *Thread) raise(v value.Value) {
	t.exception = v
	for len(t.frames) > 0 {
		frame := t.currentFrame()
		if n := len(frame.Handlers); n > 0 {
			h := frame.Handlers[n-1]
			frame.Handlers = frame.Handlers[:n-1]
			frame.CodePointer = h.Target
			return
		}
		t.frames = t.frames[:len(t.frames)-1]
	}
	t.fail(&errors.ThreadRaise{Value: v})
}

// doReturn implements spec.md §4.7's Return semantics: pop handlers from
// the current frame in (top-down) order, taking the first FINALLY
// encountered and dropping every CATCH scanned past on the way. If no
// FINALLY remains, the frame itself is popped; an empty call stack
// terminates the thread cleanly.
func (t *Thread) doReturn() {
	frame := t.currentFrame()
	for len(frame.Handlers) > 0 {
		n := len(frame.Handlers)
		h := frame.Handlers[n-1]
		frame.Handlers = frame.Handlers[:n-1]
		if h.Kind == ExnFinally {
			frame.CodePointer = h.Target
			return
		}
	}
	t.frames = t.frames[:len(t.frames)-1]
	if len(t.frames) == 0 {
		t.state = StateTerminated
	}
}

// Step executes at most one instruction. Callers (Engine.Run) call this in
// a budgeted loop; a thread that suspends or terminates stops consuming
// budget on its own (state no longer StateRunnable).
func (t *Thread) Step() {
	if t.state != StateRunnable {
		return
	}
	frame := t.currentFrame()
	if frame == nil {
		t.state = StateTerminated
		return
	}
	seg, ok := frame.Closure.ClosureSegment().(*bytecode.Segment)
	if !ok {
		t.fail(errors.NewBadOperand("dispatch", "closure segment is not a *bytecode.Segment"))
		return
	}
	instr, ok := seg.At(frame.CodePointer)
	if !ok {
		// Falling off the end of a segment behaves like an explicit return
		// (a well-formed compiler always emits one, but this keeps
		// hand-written textual-assembler fixtures forgiving).
		t.doReturn()
		return
	}
	t.execute(frame, instr)
}
