package compiler

import (
	"testing"

	"ozvm/internal/bytecode"
	"ozvm/internal/literal"
	"ozvm/internal/value"
)

func TestAddParameterAndLocal(t *testing.T) {
	env := NewRootEnvironment()
	p0 := env.AddParameter("X")
	p1 := env.AddParameter("Y")
	l0 := env.AddLocal("Tmp")

	if p0.Kind != SymbolParameter || p0.Index != 0 {
		t.Fatalf("AddParameter(X) = %+v, want index 0", p0)
	}
	if p1.Index != 1 {
		t.Fatalf("AddParameter(Y) index = %d, want 1", p1.Index)
	}
	if l0.Kind != SymbolLocal || l0.Index != 0 {
		t.Fatalf("AddLocal(Tmp) = %+v, want local index 0", l0)
	}
	if env.NumParams() != 2 {
		t.Errorf("NumParams() = %d, want 2", env.NumParams())
	}
	if env.NumLocals() != 1 {
		t.Errorf("NumLocals() = %d, want 1", env.NumLocals())
	}
}

func TestGetResolvesLocally(t *testing.T) {
	env := NewRootEnvironment()
	env.AddParameter("X")
	sym, err := env.Get("X")
	if err != nil {
		t.Fatalf("Get(X): %v", err)
	}
	if sym.Kind != SymbolParameter || sym.Index != 0 {
		t.Errorf("Get(X) = %+v, want parameter 0", sym)
	}
}

func TestGetUndefinedNameErrors(t *testing.T) {
	env := NewRootEnvironment()
	if _, err := env.Get("Nope"); err == nil {
		t.Fatal("Get of an undefined name should error")
	}
}

func TestSymbolOperand(t *testing.T) {
	env := NewRootEnvironment()
	p := env.AddParameter("X")
	if op := p.Operand(); !op.IsRegister() || op.Register() != (bytecode.Register{Kind: bytecode.RegParam, Index: 0}) {
		t.Errorf("parameter Operand() = %v, want register p0", op)
	}

	l := env.AddLocal("Y")
	if op := l.Operand(); !op.IsRegister() || op.Register() != (bytecode.Register{Kind: bytecode.RegLocal, Index: 0}) {
		t.Errorf("local Operand() = %v, want register l0", op)
	}

	env.AddGlobal("nil", value.FromAtom(literal.Get("nil")))
	g, err := env.Get("nil")
	if err != nil {
		t.Fatalf("Get(nil): %v", err)
	}
	if op := g.Operand(); op.IsRegister() {
		t.Errorf("global Operand() = %v, want an immediate", op)
	}
}

func TestBeginEndScopeReleasesLocalRegisters(t *testing.T) {
	env := NewRootEnvironment()
	env.BeginScope()
	first := env.AddLocal("A")
	env.EndScope()

	env.BeginScope()
	second := env.AddLocal("B")
	env.EndScope()

	if first.Index != second.Index {
		t.Errorf("local register not reused across scopes: first=%d second=%d", first.Index, second.Index)
	}
	if env.ExistsLocally("A") {
		t.Error("A should not resolve after its scope closed")
	}
	if env.NumLocals() != 1 {
		t.Errorf("NumLocals() = %d, want 1 (register reused, not doubly counted)", env.NumLocals())
	}
}

func TestNestedScopesDoNotReuseSiblingRegistersWhileOpen(t *testing.T) {
	env := NewRootEnvironment()
	env.BeginScope()
	outer := env.AddLocal("Outer")
	env.BeginScope()
	inner := env.AddLocal("Inner")
	env.EndScope()
	env.EndScope()

	if outer.Index == inner.Index {
		t.Errorf("concurrently-live locals must not share a register: outer=%d inner=%d", outer.Index, inner.Index)
	}
}

func TestEndScopeWithoutBeginPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("EndScope without BeginScope should panic")
		}
	}()
	NewRootEnvironment().EndScope()
}

func TestAddTemporaryAndFree(t *testing.T) {
	env := NewRootEnvironment()
	tmp := env.AddTemporary()
	if tmp.Kind != SymbolLocal {
		t.Fatalf("AddTemporary() kind = %v, want SymbolLocal", tmp.Kind)
	}
	env.FreeTemporary(tmp)
	next := env.AddTemporary()
	if next.Index != tmp.Index {
		t.Errorf("freed temporary register not reused: tmp=%d next=%d", tmp.Index, next.Index)
	}
}

func TestImportFromParentAllocatesClosureSlotInOrder(t *testing.T) {
	root := NewRootEnvironment()
	root.AddLocal("Outer1")
	root.AddLocal("Outer2")

	child := NewChildEnvironment(root)
	sym2, err := child.Get("Outer2")
	if err != nil {
		t.Fatalf("Get(Outer2): %v", err)
	}
	sym1, err := child.Get("Outer1")
	if err != nil {
		t.Fatalf("Get(Outer1): %v", err)
	}
	if sym2.Kind != SymbolClosure || sym2.Index != 0 {
		t.Errorf("first-imported name = %+v, want closure slot 0", sym2)
	}
	if sym1.Kind != SymbolClosure || sym1.Index != 1 {
		t.Errorf("second-imported name = %+v, want closure slot 1", sym1)
	}
	order := child.ClosureOrder()
	if len(order) != 2 || order[0] != "Outer2" || order[1] != "Outer1" {
		t.Errorf("ClosureOrder() = %v, want [Outer2 Outer1] (import order, not declaration order)", order)
	}
	if child.NumClosureSlots() != 2 {
		t.Errorf("NumClosureSlots() = %d, want 2", child.NumClosureSlots())
	}

	// Re-importing a name already captured must not grow the capture list.
	if _, err := child.Get("Outer2"); err != nil {
		t.Fatalf("re-Get(Outer2): %v", err)
	}
	if got := len(child.ClosureOrder()); got != 2 {
		t.Errorf("re-resolving an already-captured name grew ClosureOrder to %d entries, want 2", got)
	}
}

func TestImportFromParentOfGlobalSkipsClosureSlot(t *testing.T) {
	root := NewRootEnvironment()
	root.AddGlobal("nil", value.FromAtom(literal.Get("nil")))

	child := NewChildEnvironment(root)
	sym, err := child.Get("nil")
	if err != nil {
		t.Fatalf("Get(nil): %v", err)
	}
	if sym.Kind != SymbolGlobal {
		t.Errorf("Get(nil) on child = %+v, want a direct global symbol", sym)
	}
	if child.NumClosureSlots() != 0 {
		t.Errorf("resolving a global consumed a closure slot: NumClosureSlots() = %d, want 0", child.NumClosureSlots())
	}
	if len(child.ClosureOrder()) != 0 {
		t.Errorf("ClosureOrder() = %v, want empty (globals are not captured)", child.ClosureOrder())
	}
}

func TestImportFromParentUndefinedPropagatesThroughChain(t *testing.T) {
	root := NewRootEnvironment()
	child := NewChildEnvironment(root)
	grandchild := NewChildEnvironment(child)
	if _, err := grandchild.Get("Nowhere"); err == nil {
		t.Fatal("Get of a name undefined all the way to the root should error")
	}
}

func TestAddGlobalOnNonRootPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("AddGlobal on a non-root environment should panic")
		}
	}()
	child := NewChildEnvironment(NewRootEnvironment())
	child.AddGlobal("nil", value.Value{})
}

func TestIsRoot(t *testing.T) {
	root := NewRootEnvironment()
	if !root.IsRoot() {
		t.Error("NewRootEnvironment() should report IsRoot")
	}
	child := NewChildEnvironment(root)
	if child.IsRoot() {
		t.Error("NewChildEnvironment() should not report IsRoot")
	}
}
