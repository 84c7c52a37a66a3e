package engine

import (
	"ozvm/internal/store"
	"ozvm/internal/value"
)

// Native is a built-in procedure reachable from bytecode via call_native.
// Like a compiled procedure, it communicates its result by unifying into a
// slot the caller prepared inside params rather than returning a value
// (spec.md §6); a non-nil error is thread-fatal.
type Native func(th *Thread, params value.Value) error

// Engine is the cooperative scheduler from spec.md §4.8: a FIFO queue of
// runnable threads, a registry of native procedures, and a fixed
// per-dispatch instruction budget. Ported from
// original_source/src/store/engine.h's Engine/NativeInterface, replacing
// its explicit thread-table ownership with a plain map now that Go's GC
// reclaims a Thread once nothing references it.
type Engine struct {
	budget   int
	runnable []*Thread
	threads  map[uint64]*Thread
	natives  map[string]Native
	nextID   uint64

	// newStore builds the sub-store each new thread allocates into.
	// Defaults to an unbounded store.Heap; tests needing a bounded store
	// (to exercise AllocationExhausted) can override it.
	newStore func() value.Store
}

// NewEngine creates a scheduler with the given per-dispatch instruction
// budget (spec.md §4.8: "asks a thread to execute up to N instructions").
func NewEngine(budget int) *Engine {
	return &Engine{
		budget:   budget,
		threads:  make(map[uint64]*Thread),
		natives:  make(map[string]Native),
		newStore: func() value.Store { return store.NewHeap() },
	}
}

// SetStoreFactory overrides how new threads build their sub-store.
func (e *Engine) SetStoreFactory(f func() value.Store) { e.newStore = f }

// RegisterNative adds a built-in procedure callable from bytecode via
// call_native name params.
func (e *Engine) RegisterNative(name string, fn Native) { e.natives[name] = fn }

func (e *Engine) lookupNative(name string) (Native, bool) {
	fn, ok := e.natives[name]
	return fn, ok
}

// NewThread starts a new, independently schedulable thread running proc
// with the given params array, immediately enqueuing it as runnable. This
// is both the engine's public entry point (to start the program's main
// thread) and what a new_thread instruction calls internally.
func (e *Engine) NewThread(proc, params value.Value) *Thread {
	return e.spawnThread(proc, params)
}

func (e *Engine) spawnThread(proc, params value.Value) *Thread {
	id := e.nextID
	e.nextID++
	th := &Thread{
		id:     id,
		engine: e,
		store:  e.newStore(),
		state:  StateRunnable,
	}
	th.pushFrame(proc, params)
	e.threads[id] = th
	e.enqueue(th)
	return th
}

// Thread looks up a still-tracked thread by id (present until it
// terminates; the engine does not retain terminated threads).
func (e *Engine) Thread(id uint64) (*Thread, bool) {
	th, ok := e.threads[id]
	return th, ok
}

func (e *Engine) enqueue(th *Thread) {
	e.runnable = append(e.runnable, th)
}

// wake moves suspended threads back onto the runnable queue, in the order
// Unify drained them from a variable's suspension list — spec.md §4.8's
// FIFO wake-order guarantee.
func (e *Engine) wake(woken []value.ThreadPayload) {
	for _, p := range woken {
		th, ok := p.(*Thread)
		if !ok {
			continue
		}
		th.state = StateRunnable
		e.enqueue(th)
	}
}

// Runnable reports how many threads are currently queued to run.
func (e *Engine) Runnable() int { return len(e.runnable) }

// Run drains the runnable queue: dequeue a thread, let it execute up to
// the engine's instruction budget, then either re-enqueue it (still
// runnable), drop it (terminated), or leave it parked (waiting on a
// variable, already recorded in that variable's suspension list). Returns
// when no thread is runnable — every remaining thread is either
// terminated or blocked forever.
func (e *Engine) Run() {
	for len(e.runnable) > 0 {
		th := e.runnable[0]
		e.runnable = e.runnable[1:]
		for i := 0; i < e.budget && th.state == StateRunnable; i++ {
			th.Step()
		}
		switch th.state {
		case StateRunnable:
			e.enqueue(th)
		case StateTerminated:
			delete(e.threads, th.id)
		case StateWaiting:
			// Already recorded on the blocking variable's suspension list
			// by suspendOn; wake will re-enqueue it later.
		}
	}
}
