package engine

import (
	"bytes"
	"os"
	"testing"

	"ozvm/internal/bytecode"
	"ozvm/internal/store"
	"ozvm/internal/value"
)

// assembleSegment assembles src or fails the test, matching the teacher's
// convention of keeping fixture plumbing out of the test body itself.
func assembleSegment(t *testing.T, src string) *bytecode.Segment {
	t.Helper()
	seg, err := bytecode.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return seg
}

// makeProc builds a closure with no bound environment slots, ready to pass
// to Engine.NewThread or embed in an environment array for recursive
// self-reference.
func makeProc(t *testing.T, st value.Store, src string) value.Value {
	t.Helper()
	seg := assembleSegment(t, src)
	abstract := value.NewAbstractClosure(st, seg)
	return value.NewProc(st, abstract, value.Value{})
}

// makeProcWithEnv builds a closure with the given environment array bound,
// for procedures whose bytecode reads closure registers (e0, e1, ...).
func makeProcWithEnv(t *testing.T, st value.Store, src string, env value.Value) value.Value {
	t.Helper()
	seg := assembleSegment(t, src)
	abstract := value.NewAbstractClosure(st, seg)
	return value.NewProc(st, abstract, env)
}

// captureStdout redirects the package's print/println destination for the
// duration of fn and returns what was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	stdout = w
	fn()
	w.Close()
	stdout = old
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return buf.String()
}

func newEngine(budget int) *Engine {
	e := NewEngine(budget)
	e.SetStoreFactory(func() value.Store { return store.NewHeap() })
	RegisterBuiltins(e)
	return e
}
