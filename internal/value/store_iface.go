package value

// Store is the allocation surface described in spec.md §4.1. Concrete
// implementations (heap-backed, unbounded; static, fixed-capacity with
// stop-and-copy move) live in internal/store, which depends on this
// package rather than the reverse, so any Go caller can build its own
// store without creating an import cycle.
type Store interface {
	// Alloc reserves a fresh HeapValue box of the given kind. Its Payload
	// field is left nil; callers fill it in immediately. Returns nil if
	// the store has no capacity left (a fixed-size static store only).
	Alloc(kind Kind) *HeapValue
}

// CodeSegment is the minimal surface a compiled bytecode segment must
// expose for a Closure to carry it, without this package importing
// internal/bytecode (which itself needs to import this package for
// Operand's immediate Value). internal/bytecode.Segment implements this.
type CodeSegment interface {
	NumParams() int
	NumLocals() int
	NumClosureSlots() int
}

// ThreadPayload is the opaque per-thread state a KindThread Value carries.
// internal/engine.Thread implements it. This package never inspects it.
type ThreadPayload interface {
	ThreadID() uint64
}
