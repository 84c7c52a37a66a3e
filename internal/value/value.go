package value

import (
	"ozvm/internal/arity"
	"ozvm/internal/literal"
)

// Arity is re-exported for callers that only import internal/value; the
// concrete interning table lives in internal/arity.
type Arity = arity.Arity

// HeapPayload is implemented by every concrete heap-kind payload
// (tupleBox, recordBox, listBox, openRecordBox, cellBox, arrayBox,
// closureBox, variableBox, threadBox, bigIntBox, stringBox, floatBox).
// It is a closed marker interface: payloads outside this package cannot
// implement it, which is what lets Deref/Move/unify/serialize switch
// exhaustively over Kind.
type HeapPayload interface {
	isHeapPayload()
}

// HeapValue is the mutable box a heap-kind Value points to. Interning or
// GC-immune kinds (Atom, Name, Arity) do not use HeapValue at all — see
// Value's interned field — because spec.md §4.1 requires them to survive
// Move unchanged and identical.
type HeapValue struct {
	Kind    Kind
	Payload HeapPayload
	// Forward is set by Move once this block has been relocated to
	// another store. A non-nil Forward means this HeapValue's *effective*
	// kind is KindMoved, matching spec.md §3's MovedValue.
	Forward *HeapValue
}

// EffectiveKind returns KindMoved if this block was forwarded by a
// stop-and-copy move, else its real Kind.
func (h *HeapValue) EffectiveKind() Kind {
	if h.Forward != nil {
		return KindMoved
	}
	return h.Kind
}

// Value is the word-sized tagged reference from spec.md §3: either a small
// integer immediate, an interned literal/arity pointer, or a heap pointer.
type Value struct {
	isSmall  bool
	small    int64
	interned any // *literal.Atom | *literal.Name | *arity.Arity, or nil
	heap     *HeapValue
}

// Kind reports the dynamic kind of v. The zero Value reports KindInvalid.
func (v Value) Kind() Kind {
	switch {
	case v.isSmall:
		return KindSmallInt
	case v.interned != nil:
		switch v.interned.(type) {
		case *literal.Atom:
			return KindAtom
		case *literal.Name:
			return KindName
		case *arity.Arity:
			return KindArity
		}
		return KindInvalid
	case v.heap != nil:
		return v.heap.EffectiveKind()
	default:
		return KindInvalid
	}
}

// IsValid reports whether v holds anything at all (the zero Value does not).
func (v Value) IsValid() bool { return v.isSmall || v.interned != nil || v.heap != nil }

// Defined is an alias kept for readability at call sites translated from
// the gooz original's Value::IsDefined().
func (v Value) Defined() bool { return v.IsValid() }

// SmallInt builds a small-integer immediate.
func SmallInt(n int64) Value { return Value{isSmall: true, small: n} }

// SmallIntValue returns (n, true) if v is a small integer immediate.
// Implements the ad hoc interface internal/arity uses to detect
// tuple-shaped features without importing this package.
func (v Value) SmallIntValue() (int64, bool) {
	if v.isSmall {
		return v.small, true
	}
	return 0, false
}

// FromAtom wraps an interned atom as a Value.
func FromAtom(a *literal.Atom) Value { return Value{interned: a} }

// FromName wraps a Name as a Value.
func FromName(n *literal.Name) Value { return Value{interned: n} }

// FromArity wraps an interned Arity as a Value.
func FromArity(a *Arity) Value { return Value{interned: a} }

// AsAtom returns the underlying atom and true if v is KindAtom.
func (v Value) AsAtom() (*literal.Atom, bool) {
	a, ok := v.interned.(*literal.Atom)
	return a, ok
}

// AsName returns the underlying name and true if v is KindName.
func (v Value) AsName() (*literal.Name, bool) {
	n, ok := v.interned.(*literal.Name)
	return n, ok
}

// AsArity returns the underlying arity and true if v is KindArity.
func (v Value) AsArity() (*Arity, bool) {
	a, ok := v.interned.(*Arity)
	return a, ok
}

// Heap returns the backing HeapValue box and true for any heap-allocated
// kind (everything except small ints, atoms, names, and arities).
func (v Value) Heap() (*HeapValue, bool) {
	if v.heap == nil {
		return nil, false
	}
	return v.heap, true
}

// fromHeap wraps a heap box as a Value.
func fromHeap(h *HeapValue) Value { return Value{heap: h} }

// Identical reports pointer/bits identity — the equality used for Cell,
// Array, Closure, Name (and the fast path for Atom/Arity): two Values
// refer to the exact same object.
func Identical(a, b Value) bool { return a == b }

// well-known atoms, re-exported so callers building values don't need to
// import internal/literal directly.
var (
	AtomTrue = FromAtom(literal.True)
	AtomFalse = FromAtom(literal.False)
	AtomNil  = FromAtom(literal.Nil)
	AtomBar  = FromAtom(literal.Bar)
	AtomHash = FromAtom(literal.Hash)
)

// Bool converts a Go bool to the corresponding boolean atom.
func Bool(b bool) Value {
	if b {
		return AtomTrue
	}
	return AtomFalse
}

// IsTrue reports whether v is the atom 'true'.
func IsTrue(v Value) bool {
	a, ok := v.AsAtom()
	return ok && a == literal.True
}

// IsBoolean reports whether v is one of the two boolean atoms.
func IsBoolean(v Value) bool {
	a, ok := v.AsAtom()
	return ok && literal.IsBoolean(a)
}
