package engine

import (
	"strings"
	"testing"

	"ozvm/internal/literal"
	"ozvm/internal/store"
	"ozvm/internal/unify"
	"ozvm/internal/value"
)

// TestFactorialViaRecursion mirrors spec.md §8 scenario 1: a recursive
// procedure computing 5! and printing the result.
//
// Since a compiled proc has no implicit way to name itself, the
// self-reference a real compiler would capture into a closure register is
// built by hand here: a fresh Variable is placed in the closure's own
// environment slot 0, then unified with the closure once it exists,
// closing the loop before the thread ever runs.
func TestFactorialViaRecursion(t *testing.T) {
	st := store.NewHeap()
	seg := assembleSegment(t, `proc(nparams:3 nlocals:4 nclosures:1 bytecode:segment(
		test_equality(a:p0 b:0 in:l0)
		branch_if(a:l0 to:Base)
		number_int_multiply(a:p1 b:p0 in:l1)
		number_int_subtract(a:p0 b:1 in:l2)
		new_array(size:3 init:0 in:l3)
		assign_array(array:l3 index:0 value:l2)
		assign_array(array:l3 index:1 value:l1)
		assign_array(array:l3 index:2 value:p2)
		call_tail(proc:e0 params:l3)
	Base:
		new_array(size:1 init:p1 in:l3)
		call_native(name:print params:l3)
		unify(a:p1 b:p2)
		return()
	))`)

	selfSlot := value.NewVariable(st)
	env := value.NewArrayFrom(st, []value.Value{selfSlot})
	abstract := value.NewAbstractClosure(st, seg)
	fact := value.NewProc(st, abstract, env)
	if ok, woken := unify.Unify(selfSlot, fact); !ok || len(woken) != 0 {
		t.Fatalf("closing self-reference: ok=%v woken=%v", ok, woken)
	}

	eng := newEngine(1000)
	out := value.NewVariable(st)
	params := value.NewArrayFrom(st, []value.Value{value.SmallInt(5), value.SmallInt(1), out})

	printed := captureStdout(t, func() {
		eng.NewThread(fact, params)
		eng.Run()
	})

	if strings.TrimSpace(printed) != "120" {
		t.Errorf("printed output = %q, want \"120\"", printed)
	}
	result := value.Deref(out)
	n, ok := result.SmallIntValue()
	if !ok || n != 120 {
		t.Errorf("out = %v, want 120", result)
	}
}

// TestBranchSkipsUnify mirrors spec.md §8 scenario 2: an unconditional
// branch over a unify leaves the skipped variable free while a later
// unify still runs.
func TestBranchSkipsUnify(t *testing.T) {
	st := store.NewHeap()
	proc := makeProc(t, st, `proc(nparams:2 nlocals:0 nclosures:0 bytecode:segment(
		branch(to:End)
		unify(a:p0 b:1)
	End:
		unify(a:p1 b:1)
	))`)

	x := value.NewVariable(st)
	y := value.NewVariable(st)
	params := value.NewArrayFrom(st, []value.Value{x, y})

	eng := newEngine(100)
	eng.NewThread(proc, params)
	eng.Run()

	if value.IsDetermined(value.Deref(x)) {
		t.Errorf("X should remain free; the unify that would bind it was branched over")
	}
	yv := value.Deref(y)
	n, ok := yv.SmallIntValue()
	if !ok || n != 1 {
		t.Errorf("Y = %v, want 1", yv)
	}
}

// TestUnifyRecordFieldProgressivelyClosesOpenRecord exercises the
// unify_record_field opcode (spec.md §8 scenario 3's access pattern): one
// feature is already present, a second is added by the instruction, and
// the record is then closed and compared against the fully-built
// equivalent.
func TestUnifyRecordFieldProgressivelyClosesOpenRecord(t *testing.T) {
	st := store.NewHeap()
	a := mustAtom(t, "a")
	b := mustAtom(t, "b")
	c := mustAtom(t, "c")
	d := mustAtom(t, "d")
	label := mustAtom(t, "r")

	ref := value.NewVariable(st)
	or := value.NewOpenRecord(st, label, []value.FeatureValue{{Feature: a, Value: b}}, ref)

	proc := makeProc(t, st, `proc(nparams:1 nlocals:0 nclosures:0 bytecode:segment(
		unify_record_field(record:p0 feature:c value:d)
		return()
	))`)
	params := value.NewArrayFrom(st, []value.Value{or})
	eng := newEngine(100)
	eng.NewThread(proc, params)
	eng.Run()

	closed := or.OpenRecordClose(st)
	if ok, _ := unify.Unify(ref, closed); !ok {
		t.Fatalf("closing the open record against its ref failed")
	}

	want := value.NewRecord(st, label, value.ArityGetValues([]value.Value{a, c}), []value.Value{b, d})
	got := value.Deref(ref)
	if !unify.Equals(got, want) {
		t.Errorf("closed record = %v, want equal to %v", got, want)
	}
}

// TestSuspendOnStreamWakesAcrossThreads mirrors spec.md §8 scenario 4: one
// thread reads past the head of a list whose tail is still a free
// variable, suspending; a second thread later binds that variable, and the
// first thread resumes and observes the value it was waiting on. Both
// threads are driven by the same Engine, matching spec.md §4.8's
// single-active-thread cooperative model — there is no goroutine
// involved, only the scheduler interleaving two call stacks via
// suspension and wake.
func TestSuspendOnStreamWakesAcrossThreads(t *testing.T) {
	st := store.NewHeap()
	streamTail := value.NewVariable(st)
	stream := value.NewList(st, value.SmallInt(1), streamTail)

	// consumer dereferences past the stream's head, reading the head of
	// its (currently free) tail — it must suspend on streamTail until the
	// producer binds it.
	consumer := makeProc(t, st, `proc(nparams:1 nlocals:2 nclosures:0 bytecode:segment(
		access_record(record:p0 feature:2 in:l0)
		access_record(record:l0 feature:1 in:l1)
		new_array(size:1 init:l1 in:l0)
		call_native(name:print params:l0)
		return()
	))`)
	// producer binds the stream's tail to a fresh singleton list [42].
	producer := makeProc(t, st, `proc(nparams:1 nlocals:1 nclosures:0 bytecode:segment(
		new_list(head:42 tail:nil in:l0)
		unify(a:p0 b:l0)
		return()
	))`)

	eng := newEngine(100)
	consumerParams := value.NewArrayFrom(st, []value.Value{stream})
	producerParams := value.NewArrayFrom(st, []value.Value{streamTail})

	printed := captureStdout(t, func() {
		eng.NewThread(consumer, consumerParams)
		if eng.Runnable() != 1 {
			t.Fatalf("expected exactly one runnable thread before the producer starts, got %d", eng.Runnable())
		}
		eng.NewThread(producer, producerParams)
		eng.Run()
	})

	if strings.TrimSpace(printed) != "42" {
		t.Errorf("printed output = %q, want \"42\" (the consumer should resume once the producer binds the stream tail)", printed)
	}
	if eng.Runnable() != 0 {
		t.Errorf("both threads should have terminated, but %d remain runnable", eng.Runnable())
	}
}

func mustAtom(t *testing.T, s string) value.Value {
	t.Helper()
	return value.FromAtom(literal.Get(s))
}
