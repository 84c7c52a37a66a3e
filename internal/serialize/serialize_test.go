package serialize

import (
	"strings"
	"testing"

	"ozvm/internal/literal"
	"ozvm/internal/store"
	"ozvm/internal/value"
)

func atomOf(t *testing.T, text string) *literal.Atom {
	t.Helper()
	return literal.Get(text)
}

func printValue(v value.Value) string {
	p := Explore(v)
	return p.Print(v)
}

func TestPrintSmallIntsAndNegatives(t *testing.T) {
	if got := printValue(value.SmallInt(5)); got != "5" {
		t.Fatalf("print(5) = %q, want %q", got, "5")
	}
	if got := printValue(value.SmallInt(-5)); got != "~5" {
		t.Fatalf("print(-5) = %q, want %q (spec.md §4.9: negatives use ~ prefix)", got, "~5")
	}
}

func TestPrintAtomQuoting(t *testing.T) {
	bare := value.FromAtom(atomOf(t, "foo"))
	if got := printValue(bare); got != "foo" {
		t.Fatalf("print(foo) = %q, want %q", got, "foo")
	}
	quoted := value.FromAtom(atomOf(t, "Foo Bar"))
	if got := printValue(quoted); got != "'Foo Bar'" {
		t.Fatalf("print('Foo Bar') = %q, want %q", got, "'Foo Bar'")
	}
}

func TestPrintBooleans(t *testing.T) {
	if got := printValue(value.AtomTrue); got != "true" {
		t.Fatalf("print(true) = %q, want true", got)
	}
	if got := printValue(value.AtomFalse); got != "false" {
		t.Fatalf("print(false) = %q, want false", got)
	}
}

func TestPrintName(t *testing.T) {
	n := value.FromName(literal.New())
	if got := printValue(n); got != "{NewName}" {
		t.Fatalf("print(Name) = %q, want {NewName}", got)
	}
}

func TestPrintNilTerminatedList(t *testing.T) {
	s := store.NewHeap()
	l := value.NewList(s, value.SmallInt(1), value.NewList(s, value.SmallInt(2), value.AtomNil))
	if got := printValue(l); got != "[1 2]" {
		t.Fatalf("print([1 2]) = %q, want %q", got, "[1 2]")
	}
}

func TestPrintOpenTailList(t *testing.T) {
	s := store.NewHeap()
	tail := value.NewVariable(s)
	l := value.NewList(s, value.SmallInt(1), tail)
	if got := printValue(l); got != "1|_" {
		t.Fatalf("print(1|_) = %q, want %q", got, "1|_")
	}
}

func TestPrintRecord(t *testing.T) {
	s := store.NewHeap()
	label := value.FromAtom(atomOf(t, "point"))
	ar := value.ArityGetValues([]value.Value{
		value.FromAtom(atomOf(t, "x")),
		value.FromAtom(atomOf(t, "y")),
	})
	r := value.NewRecord(s, label, ar, []value.Value{value.SmallInt(1), value.SmallInt(2)})
	if got := printValue(r); got != "point(x:1 y:2)" {
		t.Fatalf("print(record) = %q, want %q", got, "point(x:1 y:2)")
	}
}

func TestPrintTupleHashInfix(t *testing.T) {
	s := store.NewHeap()
	tup := value.NewTuple(s, value.AtomHash, []value.Value{value.SmallInt(1), value.SmallInt(2), value.SmallInt(3)})
	if got := printValue(tup); got != "1#2#3" {
		t.Fatalf("print(tuple) = %q, want %q", got, "1#2#3")
	}
}

func TestPrintCellAndArray(t *testing.T) {
	s := store.NewHeap()
	c := value.NewCell(s, value.SmallInt(9))
	if got := printValue(c); got != "{NewCell 9}" {
		t.Fatalf("print(cell) = %q, want %q", got, "{NewCell 9}")
	}
	a := value.NewArrayFrom(s, []value.Value{value.SmallInt(1), value.SmallInt(2)})
	if got := printValue(a); got != "{NewArray array(1 2)}" {
		t.Fatalf("print(array) = %q, want %q", got, "{NewArray array(1 2)}")
	}
}

func TestPrintSharedValueIsHoistedIntoDefinition(t *testing.T) {
	s := store.NewHeap()
	shared := value.NewCell(s, value.SmallInt(1))
	root := value.NewTuple(s, value.AtomHash, []value.Value{shared, shared})

	got := printValue(root)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("a doubly-referenced value must be hoisted into its own V<n>= line, got: %q", got)
	}
	if !strings.HasPrefix(lines[0], "V0=") {
		t.Fatalf("first line should define the shared cell, got %q", lines[0])
	}
	if lines[1] != "V0#V0" {
		t.Fatalf("root expression should reference the shared definition twice, got %q", lines[1])
	}
}

func TestPrintSharedListIsHoistedNotTruncated(t *testing.T) {
	s := store.NewHeap()
	shared := value.NewList(s, value.SmallInt(1), value.NewList(s, value.SmallInt(2), value.AtomNil))
	root := value.NewTuple(s, value.AtomHash, []value.Value{shared, shared})

	got := printValue(root)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("a doubly-referenced list must be hoisted whole, got: %q", got)
	}
	if lines[0] != "V0=[1 2]" {
		t.Fatalf("the hoisted list definition must render its full contents, got %q", lines[0])
	}
	if lines[1] != "V0#V0" {
		t.Fatalf("the root expression must reference the definition twice, got %q", lines[1])
	}
}

func TestPrintCyclicListClosesWithNamedReference(t *testing.T) {
	s := store.NewHeap()
	tailVar := value.NewVariable(s)
	l := value.NewList(s, value.SmallInt(1), value.NewList(s, value.SmallInt(2), tailVar))
	tailVar.VarBind(l)

	got := printValue(l)
	if !strings.Contains(got, "V0=") {
		t.Fatalf("a cyclic list must hoist its own node into a named definition, got %q", got)
	}
	if !strings.Contains(got, "V0") {
		t.Fatalf("the cyclic tail must reference the named node, got %q", got)
	}
}
