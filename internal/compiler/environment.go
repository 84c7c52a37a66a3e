// Package compiler implements the compiler-support contract from spec.md
// §4.6: an Environment chain mapping source names to parameter, local, or
// closure registers (or a global immediate), a reusable local-register
// allocator with scope enter/exit, and closure-capture recording.
//
// spec.md deliberately keeps AST-to-bytecode lowering itself out of scope
// (a parser/compiler front end is an external collaborator); this package
// is the contract such a front end must satisfy, ported from
// original_source/src/store/environment.h's Symbol/RegisterAllocator/
// Environment trio into idiomatic Go (no manual ref-counted
// NestedRegisterAllocator — Go's GC and explicit BeginScope/EndScope calls
// do the same job).
package compiler

import (
	"fmt"

	"ozvm/internal/bytecode"
	"ozvm/internal/value"
)

// SymbolKind is the closed set of places a name can resolve to (spec.md
// §4.6): a parameter register, a local register, a closure register, or a
// global immediate value.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolParameter
	SymbolLocal
	SymbolClosure
	SymbolGlobal
)

// Symbol is a resolved name: either a register reference or a global
// immediate value, mirroring environment.h's Symbol.
type Symbol struct {
	Kind      SymbolKind
	Name      string
	Index     int
	Immediate value.Value
}

// Valid reports whether s names anything at all.
func (s Symbol) Valid() bool { return s.Kind != SymbolInvalid }

// Operand converts the symbol into the bytecode operand a compiler would
// emit to read it.
func (s Symbol) Operand() bytecode.Operand {
	switch s.Kind {
	case SymbolParameter:
		return bytecode.RegOperand(bytecode.Register{Kind: bytecode.RegParam, Index: s.Index})
	case SymbolLocal:
		return bytecode.RegOperand(bytecode.Register{Kind: bytecode.RegLocal, Index: s.Index})
	case SymbolClosure:
		return bytecode.RegOperand(bytecode.Register{Kind: bytecode.RegClosure, Index: s.Index})
	case SymbolGlobal:
		return bytecode.ImmOperand(s.Immediate)
	default:
		panic("compiler: Operand of an invalid symbol")
	}
}

// registerAllocator hands out dense register indices for one register file
// (params or locals) and, for locals only, tracks which indices were freed
// by a closed scope so they can be reused by a sibling scope (spec.md
// §4.6: "Local registers are reusable ... on scope exit, allocations
// within are released. Parameter and closure registers are never freed.").
type registerAllocator struct {
	count    int
	reusable bool
	freed    []int
}

func (r *registerAllocator) allocate() int {
	if r.reusable && len(r.freed) > 0 {
		idx := r.freed[len(r.freed)-1]
		r.freed = r.freed[:len(r.freed)-1]
		return idx
	}
	idx := r.count
	r.count++
	return idx
}

func (r *registerAllocator) free(idx int) {
	if !r.reusable {
		panic("compiler: attempted to free a non-reusable register")
	}
	r.freed = append(r.freed, idx)
}

// Environment is one lexical scope's name resolution table plus register
// allocators, chained to an optional parent environment representing the
// enclosing procedure (spec.md §4.6). The root environment (parent == nil)
// holds global immediates.
type Environment struct {
	parent *Environment

	globals map[string]value.Value

	params  registerAllocator
	locals  registerAllocator
	closure registerAllocator

	// scopeStack records, per currently-open nested local scope, which
	// local symbols it introduced — on EndScope those locals are freed and
	// removed from named, implementing the "nested scope allocates on top,
	// on exit released" contract.
	scopeStack [][]string

	named map[string]Symbol

	// closureOrder lists imported names in the order ImportIntoClosure was
	// first called for them — spec.md §4.6: "emission of new_proc must
	// assemble values in the same order" as the capture list.
	closureOrder []string
}

// NewRootEnvironment creates a root environment with no parent. Only a
// root environment may hold global symbols.
func NewRootEnvironment() *Environment {
	return &Environment{
		globals: make(map[string]value.Value),
		named:   make(map[string]Symbol),
		locals:  registerAllocator{reusable: true},
	}
}

// NewChildEnvironment creates a new procedure's environment, nested inside
// parent. A child's own parameter/local/closure allocators start empty;
// names not found locally are imported from parent via ImportIntoClosure.
func NewChildEnvironment(parent *Environment) *Environment {
	return &Environment{
		parent: parent,
		named:  make(map[string]Symbol),
		locals: registerAllocator{reusable: true},
	}
}

// IsRoot reports whether this environment has no parent.
func (e *Environment) IsRoot() bool { return e.parent == nil }

// AddGlobal registers a global immediate symbol. Only valid on a root
// environment.
func (e *Environment) AddGlobal(name string, v value.Value) {
	if !e.IsRoot() {
		panic("compiler: AddGlobal on a non-root environment")
	}
	e.globals[name] = v
	e.named[name] = Symbol{Kind: SymbolGlobal, Name: name, Immediate: v}
}

// AddParameter declares name as the next procedure parameter. Parameter
// registers are never freed.
func (e *Environment) AddParameter(name string) Symbol {
	idx := e.params.allocate()
	sym := Symbol{Kind: SymbolParameter, Name: name, Index: idx}
	e.named[name] = sym
	return sym
}

// AddLocal declares name as a new local in the current (innermost open)
// scope.
func (e *Environment) AddLocal(name string) Symbol {
	idx := e.locals.allocate()
	sym := Symbol{Kind: SymbolLocal, Name: name, Index: idx}
	e.named[name] = sym
	if n := len(e.scopeStack); n > 0 {
		e.scopeStack[n-1] = append(e.scopeStack[n-1], name)
	}
	return sym
}

// AddTemporary allocates an unnamed local register, usable as scratch
// space by the compiler without polluting the named-symbol table.
func (e *Environment) AddTemporary() Symbol {
	idx := e.locals.allocate()
	return Symbol{Kind: SymbolLocal, Index: idx}
}

// FreeTemporary releases a register obtained from AddTemporary, making it
// available for reuse by a later allocation in this environment.
func (e *Environment) FreeTemporary(sym Symbol) {
	if sym.Kind != SymbolLocal {
		panic("compiler: FreeTemporary of a non-local symbol")
	}
	e.locals.free(sym.Index)
}

// BeginScope opens a new nested local scope: locals declared before the
// matching EndScope are released (and their register indices made
// reusable) when it closes.
func (e *Environment) BeginScope() {
	e.scopeStack = append(e.scopeStack, nil)
}

// EndScope closes the innermost open scope, freeing every local it
// introduced.
func (e *Environment) EndScope() {
	n := len(e.scopeStack)
	if n == 0 {
		panic("compiler: EndScope without a matching BeginScope")
	}
	names := e.scopeStack[n-1]
	e.scopeStack = e.scopeStack[:n-1]
	for _, name := range names {
		sym := e.named[name]
		e.locals.free(sym.Index)
		delete(e.named, name)
	}
}

// ExistsLocally reports whether name resolves within this environment
// alone (not walking to a parent).
func (e *Environment) ExistsLocally(name string) bool {
	_, ok := e.named[name]
	return ok
}

// importFromParent walks the parent chain to resolve name, recording it in
// this environment's capture list (spec.md §4.6: "Importing a symbol that
// is not local and not global walks parent environments, recording the
// symbol name in the current closure's capture list").
func (e *Environment) importFromParent(name string) (Symbol, error) {
	if e.parent == nil {
		return Symbol{}, fmt.Errorf("compiler: undefined name %q", name)
	}
	outer, err := e.parent.Get(name)
	if err != nil {
		return Symbol{}, err
	}
	if outer.Kind == SymbolGlobal {
		// Globals are reachable directly from any nested environment
		// without consuming a closure slot (environment.h's TODO on direct
		// global access, implemented here rather than left pending).
		e.named[name] = outer
		return outer, nil
	}
	idx := e.closure.allocate()
	sym := Symbol{Kind: SymbolClosure, Name: name, Index: idx}
	e.named[name] = sym
	e.closureOrder = append(e.closureOrder, name)
	return sym, nil
}

// Get resolves name: locally first, then (for a non-root environment) by
// importing it from the parent chain into this environment's closure
// registers. Returns an error if name is undefined all the way up.
func (e *Environment) Get(name string) (Symbol, error) {
	if sym, ok := e.named[name]; ok {
		return sym, nil
	}
	return e.importFromParent(name)
}

// ClosureOrder returns the captured names in import order — the order a
// new_proc instruction must assemble the environment array in.
func (e *Environment) ClosureOrder() []string {
	return append([]string(nil), e.closureOrder...)
}

// NumParams, NumLocals, NumClosureSlots report the register counts a
// compiled Segment for this environment must declare.
func (e *Environment) NumParams() int       { return e.params.count }
func (e *Environment) NumLocals() int       { return e.locals.count }
func (e *Environment) NumClosureSlots() int { return e.closure.count }
