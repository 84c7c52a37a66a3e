package unify

import "ozvm/internal/value"

// Unify performs the transactional algorithm from spec.md §4.3. On success
// it returns the threads that were waiting on variables bound during this
// call (the caller appends these to the engine's runnable queue). On
// failure every mutation this call made — variable bindings, open-record
// feature-list merges — has been undone, so the store looks exactly as it
// did before Unify was called.
func Unify(a, b value.Value) (ok bool, woken []value.ThreadPayload) {
	t := &transaction{done: map[pairKey]struct{}{}}
	if t.unify(a, b) {
		return true, t.woken
	}
	t.rollback()
	return false, nil
}

type transaction struct {
	done  map[pairKey]struct{}
	undos []func()
	woken []value.ThreadPayload
}

func (t *transaction) rollback() {
	for i := len(t.undos) - 1; i >= 0; i-- {
		t.undos[i]()
	}
}

// mark records the pair as visited and reports whether it already was —
// the cycle guard from spec.md §4.3 step 2 ("unify({a|...}, {a|...})" must
// terminate rather than loop forever rediscovering the same pair).
func (t *transaction) mark(a, b value.Value) bool {
	if _, ok := t.done[pairKey{a, b}]; ok {
		return true
	}
	t.done[pairKey{a, b}] = struct{}{}
	t.done[pairKey{b, a}] = struct{}{}
	return false
}

func (t *transaction) unify(a, b value.Value) bool {
	a = value.Deref(a)
	b = value.Deref(b)
	if a == b {
		return true
	}
	if t.mark(a, b) {
		return true
	}

	aFree := a.Kind() == value.KindVariable
	bFree := b.Kind() == value.KindVariable
	if !aFree && bFree {
		a, b = b, a
		aFree, bFree = bFree, aFree
	}

	switch {
	case aFree && bFree:
		return t.bindFreeFree(a, b)
	case aFree:
		return t.bindFreeToValue(a, b)
	default:
		return t.unifyDetermined(a, b)
	}
}

// bindFreeFree unifies two distinct free variables by folding b's
// suspension list into a's and binding b to a — an arbitrary but consistent
// choice of which variable "survives" as the representative (spec.md §4.3:
// "favor letting an undetermined side drive the dispatch" only disambiguates
// the free/determined case; between two free variables either order works).
func (t *transaction) bindFreeFree(a, b value.Value) bool {
	aSus := a.VarSuspensions()
	bSus := b.VarDrainSuspensions()
	t.undos = append(t.undos, func() {
		b.VarUnbind()
		b.VarSetSuspensions(bSus)
		a.VarSetSuspensions(aSus)
	})
	a.VarSetSuspensions(append(append([]value.ThreadPayload(nil), aSus...), bSus...))
	b.VarBind(a)
	return true
}

// bindFreeToValue binds a free variable to a determined value, draining its
// suspension list into the newly-runnable set (spec.md §4.3 step 6).
func (t *transaction) bindFreeToValue(free, val value.Value) bool {
	sus := free.VarDrainSuspensions()
	t.undos = append(t.undos, func() {
		free.VarUnbind()
		free.VarSetSuspensions(sus)
	})
	free.VarBind(val)
	t.woken = append(t.woken, sus...)
	return true
}

func (t *transaction) unifyDetermined(a, b value.Value) bool {
	switch {
	case a.Kind() == value.KindOpenRecord && b.Kind() == value.KindOpenRecord:
		return t.unifyOpenOpen(a, b)
	case a.Kind() == value.KindOpenRecord:
		return t.unifyOpenDetermined(a, b)
	case b.Kind() == value.KindOpenRecord:
		return t.unifyOpenDetermined(b, a)
	case a.Kind() == b.Kind() && isRecordCapableKind(a.Kind()):
		return t.unifyRecordCapable(a, b)
	case isLiteralKind(a.Kind()) && isLiteralKind(b.Kind()):
		return value.EqualAsLiteral(a, b)
	case isScalarKind(a.Kind()) && isScalarKind(b.Kind()):
		return equalScalar(a, b)
	case a.Kind() != b.Kind():
		return false
	default:
		// Cell, Array, Closure, Thread: identity only. a == b was already
		// tried at the top of unify, so reaching here means failure.
		return false
	}
}

// unifyRecordCapable handles Tuple↔Tuple, Record↔Record, and List↔List
// (spec.md §4.3): same label, same interned arity, recursively unify every
// feature's value. A List's label and arity are always AtomBar and the
// fixed {1,2} singleton, so this single routine correctly subsumes the
// spec's List↔List bullet too.
func (t *transaction) unifyRecordCapable(a, b value.Value) bool {
	if !value.EqualAsLiteral(a.Label(), b.Label()) {
		return false
	}
	if a.RecordArity() != b.RecordArity() {
		return false
	}
	aItems := a.Items()
	bItems := b.Items()
	for i := range aItems {
		if !t.unify(aItems[i].Value, bItems[i].Value) {
			return false
		}
	}
	return true
}

// unifyOpenOpen merges two open records: labels must match, shared features
// recursively unify, disjoint features are imported into both, and finally
// their embedded refs are unified so a later binding of either is visible
// through both (spec.md §4.3: "OpenRecord ↔ OpenRecord ... then make one
// forward to the other").
func (t *transaction) unifyOpenOpen(a, b value.Value) bool {
	if !value.EqualAsLiteral(a.OpenRecordLabel(), b.OpenRecordLabel()) {
		return false
	}
	aItems := a.OpenRecordItems()
	bItems := b.OpenRecordItems()
	t.undos = append(t.undos, func() { a.OpenRecordSetFeatures(aItems) })
	t.undos = append(t.undos, func() { b.OpenRecordSetFeatures(bItems) })

	merged, ok := t.mergeFeatures(aItems, bItems)
	if !ok {
		return false
	}
	a.OpenRecordSetFeatures(merged)
	b.OpenRecordSetFeatures(merged)

	return t.unify(a.OpenRecordRef(), b.OpenRecordRef())
}

// mergeFeatures performs the ordered merge of two sorted feature lists,
// recursively unifying values present on both sides.
func (t *transaction) mergeFeatures(a, b []value.FeatureValue) ([]value.FeatureValue, bool) {
	out := make([]value.FeatureValue, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case value.LessLiteral(a[i].Feature, b[j].Feature):
			out = append(out, a[i])
			i++
		case value.LessLiteral(b[j].Feature, a[i].Feature):
			out = append(out, b[j])
			j++
		default:
			if !t.unify(a[i].Value, b[j].Value) {
				return nil, false
			}
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out, true
}

// unifyOpenDetermined handles an open record meeting an already-determined
// record-capable value: every feature the open record currently has must
// appear in the other value and unify; the open record can never grow past
// what the other value already has, since the other side is fixed. Finally
// the open record's embedded ref is bound to the other value, closing it.
func (t *transaction) unifyOpenDetermined(open, other value.Value) bool {
	if !isRecordCapableKind(other.Kind()) {
		return false
	}
	if !value.EqualAsLiteral(open.OpenRecordLabel(), other.Label()) {
		return false
	}
	for _, item := range open.OpenRecordItems() {
		if !other.HasFeature(item.Feature) {
			return false
		}
		ov, _ := other.GetFeature(item.Feature)
		if !t.unify(item.Value, ov) {
			return false
		}
	}
	return t.unify(open.OpenRecordRef(), other)
}
