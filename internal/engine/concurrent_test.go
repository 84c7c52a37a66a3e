package engine

import (
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"ozvm/internal/bytecode"
	"ozvm/internal/store"
	"ozvm/internal/value"
)

const squareProgramSrc = `proc(nparams:2 nlocals:1 nclosures:0 bytecode:segment(
	number_int_multiply(a:p0 b:p0 in:l0)
	unify(a:l0 b:p1)
	return()
))`

// TestConcurrentIndependentEnginesProduceIsolatedResults runs several
// independent Engines (each with its own store and thread pool) across
// goroutines at once. Any single Engine's own scheduler is strictly
// single-threaded cooperative (spec.md §4.8) — this does not contradict
// that: nothing here shares an Engine or a Store across a goroutine
// boundary, so there is no concurrent access to any one scheduler's
// runnable queue or any one store's bump allocator. It exercises the kind
// of harness the Ambient Stack's testing notes call for: several
// independent golden programs driven side by side in one test.
func TestConcurrentIndependentEnginesProduceIsolatedResults(t *testing.T) {
	inputs := []int64{1, 2, 3, 4, 5, 6}
	want := make([]int64, len(inputs))
	for i, n := range inputs {
		want[i] = n * n
	}

	seg, err := bytecode.Assemble(squareProgramSrc)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	results := make([]int64, len(inputs))
	var g errgroup.Group
	for i, n := range inputs {
		i, n := i, n
		g.Go(func() error {
			st := store.NewHeap()
			abstract := value.NewAbstractClosure(st, seg)
			proc := value.NewProc(st, abstract, value.Value{})

			eng := NewEngine(1000)
			eng.SetStoreFactory(func() value.Store { return store.NewHeap() })

			out := value.NewVariable(st)
			params := value.NewArrayFrom(st, []value.Value{value.SmallInt(n), out})
			eng.NewThread(proc, params)
			eng.Run()

			got, ok := value.Deref(out).SmallIntValue()
			if !ok {
				return fmt.Errorf("engine %d: out did not determine to a small int: %s", i, spew.Sdump(value.Deref(out)))
			}
			results[i] = got
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("squares mismatch across concurrently-run engines (-want +got):\n%s\nfull results: %s", diff, spew.Sdump(results))
	}
}
