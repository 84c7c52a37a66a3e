package value

// Deref walks bound-variable links and stop-and-copy forwarders until it
// reaches a free variable or a determined value. It is idempotent:
// Deref(Deref(v)) == Deref(v) (spec.md §8).
func Deref(v Value) Value {
	for {
		if h, ok := v.Heap(); ok && h.Forward != nil {
			v = fromHeap(h.Forward)
			continue
		}
		if v.Kind() == KindVariable {
			vb := v.varBox()
			if vb.bound {
				v = vb.ref
				continue
			}
		}
		return v
	}
}

// IsFree reports whether Deref(v) is an unbound variable.
func IsFree(v Value) bool { return Deref(v).Kind() == KindVariable }

// IsDetermined reports whether Deref(v) is not an unbound variable (spec.md
// glossary: "Determined").
func IsDetermined(v Value) bool { return !IsFree(v) }
