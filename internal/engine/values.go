package engine

import (
	"ozvm/internal/arity"
	"ozvm/internal/errors"
	"ozvm/internal/literal"
	"ozvm/internal/unify"
	"ozvm/internal/value"
)

// errArity builds the BadOperand a native reports when its params array
// doesn't match its expected shape.
func errArity(native, reason string) error {
	return errors.NewBadOperand("call_native:"+native, reason)
}

// unifyOrFail unifies a and b on th's behalf, waking any suspensions the
// unification resolves, and reports a BadOperand if it fails — the same
// policy internal/engine's unify opcode uses (spec.md §7: a failed unify
// is thread-fatal; try_unify is for callers that want to recover).
func unifyOrFail(th *Thread, a, b value.Value) error {
	ok, woken := unify.Unify(a, b)
	if !ok {
		return errors.NewBadOperand("native-unify", "unification failed")
	}
	th.wake(woken)
	return nil
}

// kindAtom names a value's dynamic type for get_value_type, normalizing
// both integer representations to a single "int" atom (spec.md §4.1: a
// small int and a boxed big int are the same Oz type, differing only in
// storage) — one of the policy decisions recorded in DESIGN.md.
func kindAtom(k value.Kind) *literal.Atom {
	switch k {
	case value.KindSmallInt, value.KindInteger:
		return literal.Get("int")
	case value.KindAtom:
		return literal.Get("atom")
	case value.KindName:
		return literal.Get("name")
	case value.KindString:
		return literal.Get("string")
	case value.KindFloat:
		return literal.Get("float")
	case value.KindArity:
		return literal.Get("arity")
	case value.KindTuple:
		return literal.Get("tuple")
	case value.KindRecord:
		return literal.Get("record")
	case value.KindOpenRecord:
		return literal.Get("openRecord")
	case value.KindList:
		return literal.Get("list")
	case value.KindCell:
		return literal.Get("cell")
	case value.KindArray:
		return literal.Get("array")
	case value.KindClosure:
		return literal.Get("procedure")
	case value.KindThread:
		return literal.Get("thread")
	case value.KindVariable:
		return literal.Get("free")
	default:
		return literal.Get("unknown")
	}
}

// featureNotFoundValue builds the Oz-level exception value raised when
// access_record (or unify_record_field against a closed record) is asked
// for a feature outside the record's arity: a 2-tuple labeled
// 'featureNotFound' carrying the offending feature and the record's width,
// matching FeatureNotFound's fields in
// original_source/src/store/value.h without surfacing a Go error type to
// Oz-level code.
func featureNotFoundValue(store value.Store, feature value.Value, ar *arity.Arity) value.Value {
	width := value.SmallInt(int64(ar.Width()))
	return value.NewTuple(store, value.FromAtom(literal.Get("featureNotFound")), []value.Value{feature, width})
}
