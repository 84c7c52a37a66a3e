package unify

import (
	"testing"

	"ozvm/internal/literal"
	"ozvm/internal/value"
)

func atomOf(t *testing.T, text string) *literal.Atom {
	t.Helper()
	return literal.Get(text)
}

func recordArity(t *testing.T, features ...string) *value.Arity {
	t.Helper()
	lits := make([]value.Value, len(features))
	for i, f := range features {
		lits[i] = value.FromAtom(literal.Get(f))
	}
	return value.ArityGetValues(lits)
}

// fakeThread is a minimal value.ThreadPayload stand-in for tests that only
// care about suspension-list bookkeeping, not real scheduling.
type fakeThread int

func (f fakeThread) ThreadID() uint64 { return uint64(f) }
