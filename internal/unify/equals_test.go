package unify

import (
	"testing"

	"ozvm/internal/store"
	"ozvm/internal/value"
)

func TestEqualsLiterals(t *testing.T) {
	s := store.NewHeap()

	if !Equals(value.SmallInt(3), value.SmallInt(3)) {
		t.Fatalf("equal small ints should be Equals")
	}
	if Equals(value.SmallInt(3), value.SmallInt(4)) {
		t.Fatalf("different small ints should not be Equals")
	}
	if !Equals(value.String(s, "oz"), value.String(s, "oz")) {
		t.Fatalf("equal strings should be Equals")
	}
}

func TestEqualsDistinctFreeVariablesAreNotEqual(t *testing.T) {
	s := store.NewHeap()
	a := value.NewVariable(s)
	b := value.NewVariable(s)

	if Equals(a, b) {
		t.Fatalf("two distinct free variables must never be Equals, even though they would Unify")
	}
	if !Equals(a, a) {
		t.Fatalf("a variable must be Equals to itself")
	}
}

func TestEqualsDoesNotMutate(t *testing.T) {
	s := store.NewHeap()
	label := value.FromAtom(atomOf(t, "point"))
	ar := recordArity(t, "x", "y")

	x := value.NewVariable(s)
	r1 := value.NewRecord(s, label, ar, []value.Value{x, value.SmallInt(2)})
	r2 := value.NewRecord(s, label, ar, []value.Value{value.SmallInt(1), value.SmallInt(2)})

	if Equals(r1, r2) {
		t.Fatalf("a record with a free field can never be structurally Equals to a fully determined one")
	}
	if !value.IsFree(value.Deref(x)) {
		t.Fatalf("Equals must never bind a variable as a side effect")
	}
}

func TestEqualsHandlesCyclicLists(t *testing.T) {
	s := store.NewHeap()
	cellTail := value.NewVariable(s)
	list1 := value.NewList(s, value.SmallInt(1), cellTail)
	if ok, _ := (func() (bool, []value.ThreadPayload) {
		return unifyInternal(cellTail, list1)
	})(); !ok {
		t.Fatalf("setting up a cyclic list should unify cleanly")
	}

	list2 := value.NewList(s, value.SmallInt(1), value.NewVariable(s))

	// Comparing a cyclic list against an acyclic one must terminate.
	if Equals(list1, list2) {
		t.Fatalf("a cyclic list must not be Equals to an acyclic list with a free tail")
	}
}

func unifyInternal(a, b value.Value) (bool, []value.ThreadPayload) {
	return Unify(a, b)
}
