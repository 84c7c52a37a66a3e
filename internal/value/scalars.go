package value

type stringBox struct{ s string }

func (*stringBox) isHeapPayload() {}

// String builds an immutable byte-sequence value.
func String(store Store, s string) Value {
	h := store.Alloc(KindString)
	h.Payload = &stringBox{s: s}
	return fromHeap(h)
}

// StringValue returns the underlying Go string and true if v is KindString.
func (v Value) StringValue() (string, bool) {
	if v.heap == nil || v.heap.EffectiveKind() != KindString {
		return "", false
	}
	return v.heap.Payload.(*stringBox).s, true
}

type floatBox struct{ f float64 }

func (*floatBox) isHeapPayload() {}

// Float builds a fixed-precision real value.
func Float(store Store, f float64) Value {
	h := store.Alloc(KindFloat)
	h.Payload = &floatBox{f: f}
	return fromHeap(h)
}

// FloatValue returns the underlying float64 and true if v is KindFloat.
func (v Value) FloatValue() (float64, bool) {
	if v.heap == nil || v.heap.EffectiveKind() != KindFloat {
		return 0, false
	}
	return v.heap.Payload.(*floatBox).f, true
}
