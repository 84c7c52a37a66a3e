package value

import "ozvm/internal/literal"

// ---------------------------------------------------------------------------
// Tuple

type tupleBox struct {
	label  Value
	ar     *Arity
	values []Value
}

func (*tupleBox) isHeapPayload() {}

// NewTuple builds a tuple with the given label and values, unless label is
// the bar atom and len(values)==2, in which case spec.md §3's normalization
// rule applies and a List is returned instead.
func NewTuple(store Store, label Value, values []Value) Value {
	if len(values) == 2 {
		if a, ok := label.AsAtom(); ok && a == literal.Bar {
			return NewList(store, values[0], values[1])
		}
	}
	h := store.Alloc(KindTuple)
	h.Payload = &tupleBox{
		label:  label,
		ar:     tupleArity(len(values)),
		values: append([]Value(nil), values...),
	}
	return fromHeap(h)
}

func tupleArity(n int) *Arity {
	return ArityGetTuple(n)
}

func (v Value) tupleData() *tupleBox {
	return v.heap.Payload.(*tupleBox)
}

// ---------------------------------------------------------------------------
// Record

type recordBox struct {
	label  Value
	ar     *Arity
	values []Value // aligned with ar.Features() order
}

func (*recordBox) isHeapPayload() {}

// NewRecord builds a record with the given label, arity, and values
// (already ordered to match arity.Features()). If ar is a tuple arity, the
// normalization rule in spec.md §4.4 applies and a Tuple is returned
// instead (records may only be constructed with a non-tuple arity).
func NewRecord(store Store, label Value, ar *Arity, values []Value) Value {
	if ar.IsTuple() {
		return NewTuple(store, label, values)
	}
	h := store.Alloc(KindRecord)
	h.Payload = &recordBox{
		label:  label,
		ar:     ar,
		values: append([]Value(nil), values...),
	}
	return fromHeap(h)
}

func (v Value) recordData() *recordBox {
	return v.heap.Payload.(*recordBox)
}

// Project returns the sub-record keeping only the given (sorted) subset of
// features. subsetArity must be a subset of the record's arity.
func (v Value) Project(store Store, subsetArity *Arity) Value {
	rb := v.recordData()
	values := make([]Value, subsetArity.Width())
	for i, f := range subsetArity.Features() {
		idx, err := rb.ar.Map(f.(Value))
		if err != nil {
			panic("value: Project of a feature not in the record's arity")
		}
		values[i] = rb.values[idx]
	}
	return NewRecord(store, rb.label, subsetArity, values)
}

// SubtractFeature returns the record with feature removed.
func (v Value) SubtractFeature(store Store, feature Value) Value {
	rb := v.recordData()
	sub := rb.ar.Subtract(feature)
	values := make([]Value, sub.Width())
	for i, f := range sub.Features() {
		idx, _ := rb.ar.Map(f.(Value))
		values[i] = rb.values[idx]
	}
	return NewRecord(store, rb.label, sub, values)
}

// ---------------------------------------------------------------------------
// List

type listBox struct {
	head, tail Value
}

func (*listBox) isHeapPayload() {}

// NewList builds a cons cell: label '|', arity {1,2}.
func NewList(store Store, head, tail Value) Value {
	h := store.Alloc(KindList)
	h.Payload = &listBox{head: head, tail: tail}
	return fromHeap(h)
}

func (v Value) listData() *listBox { return v.heap.Payload.(*listBox) }

// Head and Tail access a List's components without going through the
// generic RecordCapable interface.
func (v Value) Head() Value { return v.listData().head }
func (v Value) Tail() Value { return v.listData().tail }

// ValuesCount walks the spine of v (which must be a List) counting head
// values until it reaches something other than a determined List. It
// returns the count and classifies the terminator: an ordinary value (the
// conventional 'nil' atom, or any other determined value), a free
// variable (an open stream), or the List node itself if the spine cycles
// back (spec.md §4.4).
func (v Value) ValuesCount(deref func(Value) Value) (count int, last Value, cyclic bool) {
	seen := map[Value]struct{}{}
	cur := deref(v)
	for cur.Kind() == KindList {
		if _, ok := seen[cur]; ok {
			return count, cur, true
		}
		seen[cur] = struct{}{}
		count++
		cur = deref(cur.Tail())
	}
	return count, cur, false
}

// ---------------------------------------------------------------------------
// OpenRecord

type openFeature struct {
	feature Value
	val     Value
}

type openRecordBox struct {
	label    Value
	features []openFeature // kept sorted by literal order
	ref      Value         // embedded free variable; binding it closes the record
}

func (*openRecordBox) isHeapPayload() {}

// NewOpenRecord builds a partial record: label, an initial (possibly empty)
// set of (feature,value) pairs, and a fresh embedded variable whose
// eventual binding closes the record (spec.md §3).
func NewOpenRecord(store Store, label Value, initial []FeatureValue, ref Value) Value {
	h := store.Alloc(KindOpenRecord)
	ob := &openRecordBox{label: label, ref: ref}
	for _, fv := range initial {
		ob.insert(fv.Feature, fv.Value)
	}
	h.Payload = ob
	return fromHeap(h)
}

func (ob *openRecordBox) insert(feature, val Value) {
	i := 0
	for ; i < len(ob.features); i++ {
		if LessLiteral(feature, ob.features[i].feature) {
			break
		}
	}
	ob.features = append(ob.features, openFeature{})
	copy(ob.features[i+1:], ob.features[i:])
	ob.features[i] = openFeature{feature: feature, val: val}
}

func (v Value) openRecordData() *openRecordBox { return v.heap.Payload.(*openRecordBox) }

// OpenRecordLabel returns the open record's label.
func (v Value) OpenRecordLabel() Value { return v.openRecordData().label }

// OpenRecordSetFeatures overwrites the full feature list, used by
// internal/unify both to snapshot-and-restore on rollback (pass the slice
// OpenRecordItems returned earlier) and to install a merged feature set
// when two open records unify. feats must be sorted.
func (v Value) OpenRecordSetFeatures(feats []FeatureValue) {
	ob := v.openRecordData()
	out := make([]openFeature, len(feats))
	for i, f := range feats {
		out[i] = openFeature{feature: f.Feature, val: f.Value}
	}
	ob.features = out
}

// OpenRecordRef returns the embedded free variable whose binding closes
// the open record.
func (v Value) OpenRecordRef() Value { return v.openRecordData().ref }

// OpenRecordHas/Get/Width never block (spec.md §4.4): they only see the
// features currently present, regardless of whether the record is closed.
func (v Value) OpenRecordHas(feature Value) bool {
	ob := v.openRecordData()
	for _, f := range ob.features {
		if EqualAsLiteral(f.feature, feature) {
			return true
		}
	}
	return false
}

func (v Value) OpenRecordGet(feature Value) (Value, bool) {
	ob := v.openRecordData()
	for _, f := range ob.features {
		if EqualAsLiteral(f.feature, feature) {
			return f.val, true
		}
	}
	return Value{}, false
}

func (v Value) OpenRecordWidth() int { return len(v.openRecordData().features) }

// OpenRecordArity returns the interned arity of the features currently
// present (this, too, never blocks).
func (v Value) OpenRecordArity() *Arity {
	ob := v.openRecordData()
	lits := make([]ArityLiteral, len(ob.features))
	for i, f := range ob.features {
		lits[i] = f.feature
	}
	return ArityGet(lits)
}

// OpenRecordSet inserts or overwrites a feature; used by the engine's
// unify_record_field opcode to add a feature to a still-open record.
func (v Value) OpenRecordSet(feature, val Value) {
	ob := v.openRecordData()
	for i, f := range ob.features {
		if EqualAsLiteral(f.feature, feature) {
			ob.features[i].val = val
			return
		}
	}
	ob.insert(feature, val)
}

// OpenRecordItems returns the partial (feature,value) pairs in sorted
// order.
func (v Value) OpenRecordItems() []FeatureValue {
	ob := v.openRecordData()
	out := make([]FeatureValue, len(ob.features))
	for i, f := range ob.features {
		out[i] = FeatureValue{Feature: f.feature, Value: f.val}
	}
	return out
}

// OpenRecordClose builds the closed Record/Tuple this open record
// represents, given its current features, and returns it without touching
// ref. The caller is responsible for unifying that result with ref.
func (v Value) OpenRecordClose(store Store) Value {
	ob := v.openRecordData()
	lits := make([]ArityLiteral, len(ob.features))
	values := make([]Value, len(ob.features))
	for i, f := range ob.features {
		lits[i] = f.feature
		values[i] = f.val
	}
	ar := ArityGet(lits)
	return NewRecord(store, ob.label, ar, values)
}
