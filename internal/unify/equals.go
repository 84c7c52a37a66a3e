package unify

import "ozvm/internal/value"

// Equals implements the non-mutating structural equality test from
// spec.md §4.3 and §8's property laws: unlike Unify, two distinct free
// variables are never equal (only identical ones are, which the top-of-walk
// pointer check already covers), and nothing is bound or merged as a side
// effect.
func Equals(a, b value.Value) bool {
	c := &eqWalk{done: map[pairKey]struct{}{}}
	return c.equals(a, b)
}

type eqWalk struct {
	done map[pairKey]struct{}
}

func (c *eqWalk) equals(a, b value.Value) bool {
	a = value.Deref(a)
	b = value.Deref(b)
	if a == b {
		return true
	}
	if _, ok := c.done[pairKey{a, b}]; ok {
		return true
	}
	c.done[pairKey{a, b}] = struct{}{}
	c.done[pairKey{b, a}] = struct{}{}

	if a.Kind() == value.KindVariable || b.Kind() == value.KindVariable {
		return false
	}

	switch {
	case a.Kind() == value.KindOpenRecord || b.Kind() == value.KindOpenRecord:
		return c.equalsOpenRecord(a, b)
	case a.Kind() == b.Kind() && isRecordCapableKind(a.Kind()):
		return c.equalsRecordCapable(a, b)
	case isLiteralKind(a.Kind()) && isLiteralKind(b.Kind()):
		return value.EqualAsLiteral(a, b)
	case isScalarKind(a.Kind()) && isScalarKind(b.Kind()):
		return equalScalar(a, b)
	default:
		// Cell, Array, Closure, Thread: identity only, already ruled out.
		return false
	}
}

func (c *eqWalk) equalsRecordCapable(a, b value.Value) bool {
	if !value.EqualAsLiteral(a.Label(), b.Label()) {
		return false
	}
	if a.RecordArity() != b.RecordArity() {
		return false
	}
	aItems := a.Items()
	bItems := b.Items()
	for i := range aItems {
		if !c.equals(aItems[i].Value, bItems[i].Value) {
			return false
		}
	}
	return true
}

func (c *eqWalk) equalsOpenRecord(a, b value.Value) bool {
	if a.Kind() != value.KindOpenRecord || b.Kind() != value.KindOpenRecord {
		return false
	}
	if !value.EqualAsLiteral(a.OpenRecordLabel(), b.OpenRecordLabel()) {
		return false
	}
	aItems := a.OpenRecordItems()
	bItems := b.OpenRecordItems()
	if len(aItems) != len(bItems) {
		return false
	}
	for i := range aItems {
		if !value.EqualAsLiteral(aItems[i].Feature, bItems[i].Feature) {
			return false
		}
		if !c.equals(aItems[i].Value, bItems[i].Value) {
			return false
		}
	}
	return c.equals(a.OpenRecordRef(), b.OpenRecordRef())
}
