package value

import "math/big"

// Move performs the stop-and-copy step from spec.md §4.1: allocate a
// shallow copy of v in dest, overwrite v's source block with a forwarding
// pointer, then recursively move every value it references. Interned
// values (small ints, atoms, names, arities) are immune to moves and are
// returned unchanged. Calling Move twice on the same value (or on two
// values that share a reachable subgraph, including cycles) returns the
// same destination value both times, because the forwarding pointer is
// installed before recursing into children.
func Move(v Value, dest Store) Value {
	switch v.Kind() {
	case KindSmallInt, KindAtom, KindName, KindArity, KindInvalid:
		return v
	}

	h, ok := v.Heap()
	if !ok {
		return v
	}
	if h.Forward != nil {
		return fromHeap(h.Forward)
	}

	newH := dest.Alloc(h.Kind)
	if newH == nil {
		panic("value: Move failed, destination store is out of capacity")
	}
	h.Forward = newH

	switch h.Kind {
	case KindInteger:
		old := h.Payload.(*bigIntBox)
		newH.Payload = &bigIntBox{v: new(big.Int).Set(old.v)}
	case KindString:
		old := h.Payload.(*stringBox)
		newH.Payload = &stringBox{s: old.s}
	case KindFloat:
		old := h.Payload.(*floatBox)
		newH.Payload = &floatBox{f: old.f}
	case KindTuple:
		old := h.Payload.(*tupleBox)
		values := make([]Value, len(old.values))
		for i, c := range old.values {
			values[i] = Move(c, dest)
		}
		newH.Payload = &tupleBox{label: Move(old.label, dest), ar: old.ar, values: values}
	case KindRecord:
		old := h.Payload.(*recordBox)
		values := make([]Value, len(old.values))
		for i, c := range old.values {
			values[i] = Move(c, dest)
		}
		newH.Payload = &recordBox{label: Move(old.label, dest), ar: old.ar, values: values}
	case KindList:
		old := h.Payload.(*listBox)
		newH.Payload = &listBox{head: Move(old.head, dest), tail: Move(old.tail, dest)}
	case KindOpenRecord:
		old := h.Payload.(*openRecordBox)
		feats := make([]openFeature, len(old.features))
		for i, f := range old.features {
			feats[i] = openFeature{feature: Move(f.feature, dest), val: Move(f.val, dest)}
		}
		newH.Payload = &openRecordBox{label: Move(old.label, dest), features: feats, ref: Move(old.ref, dest)}
	case KindCell:
		old := h.Payload.(*cellBox)
		newH.Payload = &cellBox{slot: Move(old.slot, dest)}
	case KindArray:
		old := h.Payload.(*arrayBox)
		elems := make([]Value, len(old.elems))
		for i, c := range old.elems {
			elems[i] = Move(c, dest)
		}
		newH.Payload = &arrayBox{elems: elems}
	case KindClosure:
		old := h.Payload.(*closureBox)
		var newEnv Value
		if old.env.IsValid() {
			newEnv = Move(old.env, dest)
		}
		newH.Payload = &closureBox{segment: old.segment, env: newEnv}
	case KindVariable:
		old := h.Payload.(*variableBox)
		nb := &variableBox{bound: old.bound, suspensions: old.suspensions}
		if old.bound {
			nb.ref = Move(old.ref, dest)
		}
		newH.Payload = nb
	case KindThread:
		old := h.Payload.(*threadBox)
		newH.Payload = &threadBox{payload: old.payload}
	default:
		panic("value: Move of unsupported kind " + h.Kind.String())
	}

	h.Payload = nil
	return fromHeap(newH)
}
