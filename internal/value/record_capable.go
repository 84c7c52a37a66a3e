package value

// Label, RecordArity, Width, HasFeature, GetFeature and Items implement the
// RecordCapable surface from spec.md §4.2 for Atom, Name, Tuple, Record,
// and List. OpenRecord deliberately has its own never-blocking accessors
// (OpenRecordHas/Get/Width/Arity/Items in composite.go): turning an
// OpenRecord into something these methods accept requires dereferencing
// its embedded ref, which may be unbound — a suspension decision that
// belongs to the engine's instruction dispatch (spec.md §4.4, design note
// in spec.md §9 on modelling suspension as an explicit result rather than
// a panic/exception).

var emptyArity = ArityGet(nil)

// Label returns the record-capable label of v.
func (v Value) Label() Value {
	switch v.Kind() {
	case KindAtom, KindName:
		return v
	case KindTuple:
		return v.tupleData().label
	case KindRecord:
		return v.recordData().label
	case KindList:
		return AtomBar
	default:
		panic("value: Label of a non-record-capable value (kind " + v.Kind().String() + ")")
	}
}

// RecordArity returns the arity of v.
func (v Value) RecordArity() *Arity {
	switch v.Kind() {
	case KindAtom, KindName:
		return emptyArity
	case KindTuple:
		return v.tupleData().ar
	case KindRecord:
		return v.recordData().ar
	case KindList:
		return listArity
	default:
		panic("value: RecordArity of a non-record-capable value (kind " + v.Kind().String() + ")")
	}
}

var listArity = ArityGetValues([]Value{SmallInt(1), SmallInt(2)})

// Width returns the number of features of v.
func (v Value) Width() int {
	switch v.Kind() {
	case KindAtom, KindName:
		return 0
	default:
		return v.RecordArity().Width()
	}
}

// HasFeature reports whether v has the given feature.
func (v Value) HasFeature(feature Value) bool {
	if v.Kind() == KindList {
		n, ok := feature.SmallIntValue()
		return ok && (n == 1 || n == 2)
	}
	return v.RecordArity().Has(feature)
}

// GetFeature returns the value at the given feature of v.
func (v Value) GetFeature(feature Value) (Value, bool) {
	switch v.Kind() {
	case KindAtom, KindName:
		return Value{}, false
	case KindTuple:
		idx, err := v.tupleData().ar.Map(feature)
		if err != nil {
			return Value{}, false
		}
		return v.tupleData().values[idx], true
	case KindRecord:
		idx, err := v.recordData().ar.Map(feature)
		if err != nil {
			return Value{}, false
		}
		return v.recordData().values[idx], true
	case KindList:
		n, ok := feature.SmallIntValue()
		if !ok {
			return Value{}, false
		}
		switch n {
		case 1:
			return v.Head(), true
		case 2:
			return v.Tail(), true
		}
		return Value{}, false
	default:
		panic("value: GetFeature of a non-record-capable value (kind " + v.Kind().String() + ")")
	}
}

// Items returns (feature,value) pairs in arity order.
func (v Value) Items() []FeatureValue {
	switch v.Kind() {
	case KindAtom, KindName:
		return nil
	case KindList:
		return []FeatureValue{{Feature: SmallInt(1), Value: v.Head()}, {Feature: SmallInt(2), Value: v.Tail()}}
	default:
		ar := v.RecordArity()
		feats := ar.Features()
		out := make([]FeatureValue, len(feats))
		for i, f := range feats {
			fv := f.(Value)
			val, _ := v.GetFeature(fv)
			out[i] = FeatureValue{Feature: fv, Value: val}
		}
		return out
	}
}
