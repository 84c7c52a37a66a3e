// Package errors implements the error taxonomy from spec.md §7: the VM
// never throws across thread boundaries, so every failure mode that isn't
// a plain wrapped Go error gets a named, structured type a caller (the
// engine's dispatch loop, or a test) can inspect or type-switch on.
package errors

import (
	"fmt"

	"ozvm/internal/arity"
	"ozvm/internal/value"
)

// BadOperand is a thread-fatal diagnostic (spec.md §7): a type-mismatched
// operand (an array index that isn't a small integer, a unify instruction
// used where try_unify was needed, and so on). The thread that hits it is
// terminated by the engine; other threads are unaffected.
type BadOperand struct {
	Op     string // the offending opcode's mnemonic
	Reason string
}

func (e *BadOperand) Error() string {
	return fmt.Sprintf("bad operand for %s: %s", e.Op, e.Reason)
}

// NewBadOperand builds a BadOperand diagnostic.
func NewBadOperand(op, reason string) *BadOperand {
	return &BadOperand{Op: op, Reason: reason}
}

// UnknownOpcode is a thread-fatal diagnostic for a bytecode segment
// referencing an opcode outside the closed set (spec.md §7).
type UnknownOpcode struct {
	Op uint8
}

func (e *UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode %d", e.Op)
}

// FeatureNotFound carries the offending feature and arity so a catching
// Oz-level handler could reconstruct a record describing the failure,
// matching FeatureNotFound(const Value&, Arity*) in
// original_source/src/store/value.h (SPEC_FULL.md's "SUPPLEMENTED
// FEATURES" #2). Whether a call site converts this into a raised Oz
// exception value or a thread-fatal termination is a per-opcode policy
// decision left open by spec.md §7/§9; internal/engine's access_record
// consistently raises it as an exception (see DESIGN.md).
type FeatureNotFound struct {
	Feature value.Value
	Arity   *arity.Arity
}

func (e *FeatureNotFound) Error() string {
	return fmt.Sprintf("feature not found in arity of width %d", e.Arity.Width())
}

// AllocationExhausted is a fatal, process-abort-level condition (spec.md
// §7): a store's Alloc returned nil during an operation with no rollback
// path (e.g. mid-Move, where the source has already been partially
// overwritten with forwarding pointers). Operations that can instead fail
// gracefully — a thread's own sub-store filling up before any mutation has
// happened — check store.Alloc's nil return themselves rather than
// constructing this.
type AllocationExhausted struct {
	Kind value.Kind
}

func (e *AllocationExhausted) Error() string {
	return fmt.Sprintf("allocation of a %s failed: store exhausted", e.Kind)
}

// ThreadRaise wraps an Oz exception value that reached the top of a
// thread's call stack without a catching handler (spec.md §7): the thread
// terminates with the value recorded here for diagnostics. It is never
// itself raised or caught inside the VM — it is the shape the engine
// reports out to whatever embeds it once a thread dies this way.
type ThreadRaise struct {
	Value value.Value
}

func (e *ThreadRaise) Error() string {
	return "uncaught exception reached top of call stack"
}

// UnificationSelfConflict is the fatal condition spec.md §7 calls out
// explicitly: "unifying a variable with itself via the non-transactional
// fast path" — an internal invariant violation rather than a normal
// unification failure, since internal/unify.Unify always takes the
// pointer-equality fast path for that case and never reaches here. Kept
// for callers that bypass the transactional path directly (none in this
// module) and for documentation of the invariant.
type UnificationSelfConflict struct{}

func (e *UnificationSelfConflict) Error() string {
	return "internal invariant violated: non-transactional self-unification"
}
