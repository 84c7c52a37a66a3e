package value

import "ozvm/internal/arity"

// ArityLiteral is arity.Literal specialized for this package's Value type;
// kept as a named alias so call sites read naturally.
type ArityLiteral = arity.Literal

// ArityGet interns the arity of the given feature values.
func ArityGet(features []ArityLiteral) *Arity {
	return arity.Get(features)
}

// ArityGetValues interns the arity of the given feature Values.
func ArityGetValues(features []Value) *Arity {
	lits := make([]ArityLiteral, len(features))
	for i, f := range features {
		lits[i] = f
	}
	return arity.Get(lits)
}

// ArityGetTuple returns the interned, specialized tuple arity of width n.
func ArityGetTuple(n int) *Arity {
	return arity.GetTuple(n, func(i int64) ArityLiteral { return SmallInt(i) })
}

// ArityFeatureValues converts an Arity's features back into Values.
func ArityFeatureValues(a *Arity) []Value {
	feats := a.Features()
	out := make([]Value, len(feats))
	for i, f := range feats {
		out[i] = f.(Value)
	}
	return out
}
