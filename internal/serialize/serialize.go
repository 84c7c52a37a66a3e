// Package serialize implements the printable text form from spec.md §4.9:
// a shared-reference-aware walk (`Explore`) that pre-emits `V<addr>=`
// definitions for any heap value reachable more than once (or reachable
// from itself, the cyclic case), followed by the root expression.
//
// Grounded on the teacher's bytecode disassembly/"DebugString" style of
// building output with a strings.Builder rather than repeated
// concatenation (original_source/src/store/thread.h's DebugString(Thread)
// does the same), generalized from instructions to value graphs.
package serialize

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"ozvm/internal/arity"
	"ozvm/internal/literal"
	"ozvm/internal/value"
)

// addr is a stable identity key for a heap-backed Value, since
// value.Value deliberately exposes no pointer accessor outside its own
// package. A Value's Heap accessor returns the same *HeapValue pointer for
// every Deref of the same cell, so formatting that pointer gives a key two
// references to one cell always agree on.
type addr string

func addressOf(v value.Value) (addr, bool) {
	h, ok := v.Heap()
	if !ok {
		return "", false
	}
	return addr(fmt.Sprintf("%p", h)), true
}

// explorer accumulates how many times each heap address was visited
// during the first pass, matching spec.md §4.9's Explore: "walks the graph
// marking values seen once (false) vs multiple times (true)."
type explorer struct {
	visits map[addr]int
	order  []addr // first-seen order, used to emit V<addr>= in a stable sequence
}

func newExplorer() *explorer {
	return &explorer{visits: make(map[addr]int)}
}

// visit records one visit to a, returning true the first time (the caller
// should recurse into children) and false on every subsequent visit (the
// caller must stop — either it's shared, to be hoisted into a V<addr>=
// definition, or it's a cycle, to be closed off the same way).
func (ex *explorer) visit(a addr) (first bool) {
	n, seen := ex.visits[a]
	ex.visits[a] = n + 1
	if !seen {
		ex.order = append(ex.order, a)
		return true
	}
	return false
}

func (ex *explorer) sharedCount(a addr) int { return ex.visits[a] }

// explore walks v, recording every heap address reached. Literal/atom/
// integer kinds are never shared by reference (small ints, atoms and names
// have no heap address, and a boxed Integer is printed inline every time,
// per spec.md §4.9), so they're skipped.
func (ex *explorer) explore(v value.Value) {
	v = value.Deref(v)
	if v.Kind() == value.KindInteger {
		return
	}
	addr, isHeap := addressOf(v)
	if !isHeap {
		return
	}
	if !ex.visit(addr) {
		return
	}
	switch v.Kind() {
	case value.KindTuple, value.KindRecord, value.KindList:
		for _, item := range v.Items() {
			ex.explore(item.Value)
		}
	case value.KindOpenRecord:
		for _, item := range v.OpenRecordItems() {
			ex.explore(item.Value)
		}
		ex.explore(v.OpenRecordRef())
	case value.KindCell:
		ex.explore(v.CellGet())
	case value.KindArray:
		for _, e := range v.ArrayElems() {
			ex.explore(e)
		}
	case value.KindClosure:
		if env, ok := v.ClosureEnv(); ok {
			ex.explore(env)
		}
	}
}

// Printer renders values to the spec.md §4.9 textual form.
type Printer struct {
	ex        *explorer
	addrNames map[addr]string
	nextID    int
}

// Explore prepares a Printer for root: a single first pass recording every
// value reachable more than once, so Print can hoist each into its own
// `V<addr>=` definition exactly once regardless of how many times the root
// expression references it.
func Explore(root value.Value) *Printer {
	ex := newExplorer()
	ex.explore(root)
	return &Printer{ex: ex, addrNames: make(map[addr]string)}
}

// Print renders root in the spec.md §4.9 form: zero or more `V<n>=...`
// definition lines for shared or cyclic sub-values, followed by the root
// expression referencing them by name.
func (p *Printer) Print(root value.Value) string {
	var defs []string
	seen := make(map[addr]bool)
	body := p.render(root, seen, &defs)
	if len(defs) == 0 {
		return body
	}
	return strings.Join(append(defs, body), "\n")
}

// nameFor assigns (or recalls) the stable V<n> name for a shared address.
func (p *Printer) nameFor(addr addr) string {
	if name, ok := p.addrNames[addr]; ok {
		return name
	}
	name := "V" + strconv.Itoa(p.nextID)
	p.nextID++
	p.addrNames[addr] = name
	return name
}

// render prints v, hoisting any multiply-visited heap value into a
// `V<addr>=` definition appended to *defs the first time render reaches it
// and emitting a bare reference to its name every time thereafter
// (including when render re-enters it from within its own definition,
// which is how a cycle terminates).
func (p *Printer) render(v value.Value, seen map[addr]bool, defs *[]string) string {
	v = value.Deref(v)
	addr, isHeap := addressOf(v)
	if isHeap && p.ex.sharedCount(addr) > 1 {
		name := p.nameFor(addr)
		if seen[addr] {
			return name
		}
		seen[addr] = true
		*defs = append(*defs, name+"="+p.renderForm(v, seen, defs))
		return name
	}
	return p.renderForm(v, seen, defs)
}

func (p *Printer) renderForm(v value.Value, seen map[addr]bool, defs *[]string) string {
	switch v.Kind() {
	case value.KindVariable:
		return "_"
	case value.KindSmallInt:
		n, _ := v.SmallIntValue()
		return formatInt(n)
	case value.KindInteger:
		n, _ := v.BigInt()
		return formatBigInt(n)
	case value.KindAtom:
		a, _ := v.AsAtom()
		return literal.Quote(a.String())
	case value.KindName:
		return "{NewName}"
	case value.KindString:
		s, _ := v.StringValue()
		return literal.Quote(s)
	case value.KindFloat:
		f, _ := v.FloatValue()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case value.KindArity:
		ar, _ := v.AsArity()
		return formatArity(ar)
	case value.KindTuple:
		return p.renderTuple(v, seen, defs)
	case value.KindRecord:
		return p.renderRecord(v, seen, defs)
	case value.KindOpenRecord:
		return p.renderOpenRecord(v, seen, defs)
	case value.KindList:
		return p.renderList(v, seen, defs)
	case value.KindCell:
		return "{NewCell " + p.render(v.CellGet(), seen, defs) + "}"
	case value.KindArray:
		return p.renderArray(v, seen, defs)
	case value.KindClosure:
		return "{NewProc}"
	case value.KindThread:
		return "{NewThread}"
	default:
		return "<?>"
	}
}

func formatInt(n int64) string {
	if n < 0 {
		return "~" + strconv.FormatInt(-n, 10)
	}
	return strconv.FormatInt(n, 10)
}

func formatBigInt(n *big.Int) string {
	if n.Sign() < 0 {
		return "~" + new(big.Int).Neg(n).String()
	}
	return n.String()
}

func formatArity(ar *arity.Arity) string {
	feats := make([]string, 0, ar.Width())
	for _, f := range ar.Features() {
		feats = append(feats, formatLiteral(f))
	}
	return fmt.Sprintf("{NewArity %d features(%s)}", ar.Width(), strings.Join(feats, " "))
}

// formatLiteral renders an arity.Literal (always a Value in this module,
// since value.Value is the only arity.Literal implementation wired up) the
// same way renderForm would for the corresponding Value kind.
func formatLiteral(lit arity.Literal) string {
	v, ok := lit.(value.Value)
	if !ok {
		return fmt.Sprintf("%v", lit)
	}
	switch v.Kind() {
	case value.KindSmallInt:
		n, _ := v.SmallIntValue()
		return formatInt(n)
	case value.KindInteger:
		n, _ := v.BigInt()
		return formatBigInt(n)
	case value.KindAtom:
		a, _ := v.AsAtom()
		return literal.Quote(a.String())
	case value.KindName:
		return "{NewName}"
	default:
		return "<?>"
	}
}

func (p *Printer) renderTuple(v value.Value, seen map[addr]bool, defs *[]string) string {
	label := v.Label()
	parts := make([]string, 0, v.Width())
	for _, item := range v.Items() {
		parts = append(parts, p.render(item.Value, seen, defs))
	}
	if atom, ok := label.AsAtom(); ok && atom.String() == "#" {
		return strings.Join(parts, "#")
	}
	return p.render(label, seen, defs) + "#" + strings.Join(parts, "#")
}

func (p *Printer) renderRecord(v value.Value, seen map[addr]bool, defs *[]string) string {
	return formatLabeledFeatures(p, v.Label(), v.Items(), seen, defs, false)
}

func (p *Printer) renderOpenRecord(v value.Value, seen map[addr]bool, defs *[]string) string {
	return formatLabeledFeatures(p, v.OpenRecordLabel(), v.OpenRecordItems(), seen, defs, true)
}

func formatLabeledFeatures(p *Printer, label value.Value, items []value.FeatureValue, seen map[addr]bool, defs *[]string, open bool) string {
	sorted := append([]value.FeatureValue(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return value.LessLiteral(sorted[i].Feature, sorted[j].Feature) })
	parts := make([]string, 0, len(sorted))
	for _, it := range sorted {
		parts = append(parts, p.render(it.Feature, seen, defs)+":"+p.render(it.Value, seen, defs))
	}
	if open {
		parts = append(parts, "...")
	}
	return p.render(label, seen, defs) + "(" + strings.Join(parts, " ") + ")"
}

func (p *Printer) renderList(v value.Value, seen map[addr]bool, defs *[]string) string {
	var elems []string
	cur := v
	first := true
	for {
		addr, isHeap := addressOf(cur)
		// The very first node's address is the spine's own address, already
		// marked seen by the caller (render) before it dispatched here; that
		// is the in-progress definition itself, not a re-entry. Only a later
		// spine node landing back on an already-seen shared address (the
		// cyclic case) should close early.
		if !first && isHeap && p.ex.sharedCount(addr) > 1 && seen[addr] {
			return strings.Join(elems, "|") + "|" + p.nameFor(addr)
		}
		first = false
		if cur.Kind() != value.KindList {
			break
		}
		elems = append(elems, p.render(cur.Head(), seen, defs))
		cur = value.Deref(cur.Tail())
	}
	if atom, ok := cur.AsAtom(); ok && atom.String() == "nil" {
		return "[" + strings.Join(elems, " ") + "]"
	}
	tail := p.render(cur, seen, defs)
	if len(elems) == 0 {
		return tail
	}
	return strings.Join(elems, "|") + "|" + tail
}

func (p *Printer) renderArray(v value.Value, seen map[addr]bool, defs *[]string) string {
	parts := make([]string, 0, v.ArrayLen())
	for _, e := range v.ArrayElems() {
		parts = append(parts, p.render(e, seen, defs))
	}
	return "{NewArray array(" + strings.Join(parts, " ") + ")}"
}
