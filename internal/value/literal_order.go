package value

import (
	"hash/fnv"
	"math/big"

	"ozvm/internal/arity"
)

// bigIntBox is the heap payload for an out-of-range integer. Small integers
// that fit in the tagged word never allocate one of these (spec.md §3).
type bigIntBox struct {
	v *big.Int
}

func (*bigIntBox) isHeapPayload() {}

// Integer builds an arbitrary-precision integer value, using the small-int
// immediate representation whenever n fits.
func Integer(store Store, n *big.Int) Value {
	if n.IsInt64() {
		i := n.Int64()
		if fitsSmallInt(i) {
			return SmallInt(i)
		}
	}
	h := store.Alloc(KindInteger)
	h.Payload = &bigIntBox{v: new(big.Int).Set(n)}
	return fromHeap(h)
}

// smallIntBits is the number of bits available to a small-int immediate
// once one tag bit is reserved, matching the original gooz layout of a
// word-minus-tag-bits signed integer (spec.md §3). We use 62 bits (leaving
// 2 bits of Go-side headroom) since Go has no native 63-bit type to mirror
// the original's word-minus-one-tag-bit exactly.
const smallIntBits = 62

var (
	smallIntMax = int64(1)<<(smallIntBits-1) - 1
	smallIntMin = -(int64(1) << (smallIntBits - 1))
)

func fitsSmallInt(n int64) bool { return n >= smallIntMin && n <= smallIntMax }

// BigInt returns the big.Int value of v, boxing a small-int immediate on
// the fly. ok is false if v is not an integer kind.
func (v Value) BigInt() (*big.Int, bool) {
	if v.isSmall {
		return big.NewInt(v.small), true
	}
	if v.heap != nil && v.heap.EffectiveKind() == KindInteger {
		return new(big.Int).Set(v.heap.Payload.(*bigIntBox).v), true
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// arity.Literal implementation for Value: a literal is SmallInt, Integer,
// Atom, or Name. ClassRank/LessSameClass/EqualLiteral/HashCode panic for
// any other kind, matching the gooz original's CHECK-based assertions on
// malformed feature values.

// ClassRank implements arity.Literal: Integer < Atom < Name.
func (v Value) ClassRank() int {
	switch v.Kind() {
	case KindSmallInt, KindInteger:
		return 0
	case KindAtom:
		return 1
	case KindName:
		return 2
	default:
		panic("value: ClassRank of a non-literal value (kind " + v.Kind().String() + ")")
	}
}

// LessSameClass implements arity.Literal.
func (v Value) LessSameClass(o arity.Literal) bool {
	other := o.(Value)
	switch v.ClassRank() {
	case 0:
		a, _ := v.BigInt()
		b, _ := other.BigInt()
		return a.Cmp(b) < 0
	case 1:
		av, _ := v.AsAtom()
		bv, _ := other.AsAtom()
		return av.Text() < bv.Text()
	case 2:
		av, _ := v.AsName()
		bv, _ := other.AsName()
		return av.ID().String() < bv.ID().String()
	}
	return false
}

// EqualLiteral implements arity.Literal.
func (v Value) EqualLiteral(o arity.Literal) bool {
	other := o.(Value)
	if v.ClassRank() != other.ClassRank() {
		return false
	}
	switch v.ClassRank() {
	case 0:
		a, _ := v.BigInt()
		b, _ := other.BigInt()
		return a.Cmp(b) == 0
	case 1:
		av, _ := v.AsAtom()
		bv, _ := other.AsAtom()
		return av == bv
	case 2:
		av, _ := v.AsName()
		bv, _ := other.AsName()
		return av == bv
	}
	return false
}

// HashCode implements arity.Literal, mirroring the bucketed hash the
// original gooz arity table uses (ArityHashCode in arity.cc).
func (v Value) HashCode() uint64 {
	switch v.ClassRank() {
	case 0:
		b, _ := v.BigInt()
		h := fnv.New64a()
		h.Write(b.Bytes())
		return h.Sum64()
	case 1:
		a, _ := v.AsAtom()
		h := fnv.New64a()
		h.Write([]byte(a.Text()))
		return h.Sum64()
	case 2:
		n, _ := v.AsName()
		id := n.ID()
		h := fnv.New64a()
		h.Write(id[:])
		return h.Sum64()
	}
	return 0
}

// LessLiteral exposes the total order from spec.md §3 for two literal
// Values (small/big integer, atom, or name) without going through the
// arity.Literal interface boxing.
func LessLiteral(a, b Value) bool { return arity.Less(a, b) }

// EqualAsLiteral exposes literal equality, used by unify/equals for the
// Integer/Atom/Name dispatch case of spec.md §4.3 (booleans are atoms).
// String and Float are not literals here; unify/equals compare them with
// equalScalar.
func EqualAsLiteral(a, b Value) bool { return arity.Equal(a, b) }
