// Package unify implements spec.md §4.3: transactional unification with
// rollback, and the separate non-mutating structural equality test. Both
// walks are grounded in the same dispatch the original gooz engine uses in
// its BindValue/EqualValue pair (original_source/src/store/value.cc), kept
// here as two small Go files that share the kind-classification helpers in
// this one.
package unify

import "ozvm/internal/value"

func isLiteralKind(k value.Kind) bool {
	switch k {
	case value.KindSmallInt, value.KindInteger, value.KindAtom, value.KindName:
		return true
	}
	return false
}

func isScalarKind(k value.Kind) bool {
	switch k {
	case value.KindFloat, value.KindString:
		return true
	}
	return false
}

func isRecordCapableKind(k value.Kind) bool {
	switch k {
	case value.KindAtom, value.KindName, value.KindTuple, value.KindRecord, value.KindList:
		return true
	}
	return false
}

// equalScalar compares the two non-literal scalar kinds (Float, String) that
// spec.md §4.3 lumps in with "literal equality" even though they don't
// implement arity.Literal.
func equalScalar(a, b value.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case value.KindFloat:
		af, _ := a.FloatValue()
		bf, _ := b.FloatValue()
		return af == bf
	case value.KindString:
		as, _ := a.StringValue()
		bs, _ := b.StringValue()
		return as == bs
	}
	return false
}

// pairKey identifies an ordered pair of values for the "done" sets both
// Unify and Equals use to survive cyclic structures (spec.md §4.3 step 2,
// §8's cyclic-list test).
type pairKey struct{ a, b value.Value }
