package bytecode

import "testing"

func TestAssembleHeaderFields(t *testing.T) {
	seg, err := Assemble(`proc(nparams:2 nlocals:3 nclosures:1 bytecode:segment(
		return()
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if seg.NumParams() != 2 {
		t.Errorf("NumParams() = %d, want 2", seg.NumParams())
	}
	if seg.NumLocals() != 3 {
		t.Errorf("NumLocals() = %d, want 3", seg.NumLocals())
	}
	if seg.NumClosureSlots() != 1 {
		t.Errorf("NumClosureSlots() = %d, want 1", seg.NumClosureSlots())
	}
	if seg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", seg.Len())
	}
	if seg.Instructions[0].Op != OpReturn {
		t.Errorf("Instructions[0].Op = %v, want OpReturn", seg.Instructions[0].Op)
	}
}

func TestAssembleRegisterOperands(t *testing.T) {
	seg, err := Assemble(`proc(nparams:1 nlocals:1 nclosures:0 bytecode:segment(
		load(in:l0 a:p0)
		return()
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	instr := seg.Instructions[0]
	if instr.Op != OpLoad {
		t.Fatalf("Op = %v, want OpLoad", instr.Op)
	}
	if instr.Out != (Register{Kind: RegLocal, Index: 0}) {
		t.Errorf("Out = %v, want l0", instr.Out)
	}
	if !instr.A.IsRegister() || instr.A.Register() != (Register{Kind: RegParam, Index: 0}) {
		t.Errorf("A = %v, want register p0", instr.A)
	}
}

func TestAssembleWholeArrayRegisters(t *testing.T) {
	// Whole-array register names (l*, p*, e*, a*) must lex as a single
	// token; regressing this breaks every opcode that reads/writes a whole
	// register file at once (new_proc's env, call's params).
	seg, err := Assemble(`proc(nparams:0 nlocals:0 nclosures:0 bytecode:segment(
		load(in:l* a:p*)
		load(in:e* a:a*)
		return()
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	first := seg.Instructions[0]
	if first.Out != (Register{Kind: RegLocalArray}) {
		t.Errorf("Out = %v, want l*", first.Out)
	}
	if first.A.Register() != (Register{Kind: RegParamArray}) {
		t.Errorf("A = %v, want p*", first.A)
	}
	second := seg.Instructions[1]
	if second.Out != (Register{Kind: RegClosureArray}) {
		t.Errorf("Out = %v, want e*", second.Out)
	}
	if second.A.Register() != (Register{Kind: RegArrayArray}) {
		t.Errorf("A = %v, want a*", second.A)
	}
}

func TestAssembleExnRegister(t *testing.T) {
	seg, err := Assemble(`proc(nparams:0 nlocals:1 nclosures:0 bytecode:segment(
		exn_reset(in:l0)
		exn_raise(a:exn)
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if seg.Instructions[1].A.Register() != (Register{Kind: RegExn}) {
		t.Errorf("exn_raise operand = %v, want exn register", seg.Instructions[1].A)
	}
}

func TestAssembleImmediates(t *testing.T) {
	seg, err := Assemble(`proc(nparams:0 nlocals:1 nclosures:0 bytecode:segment(
		load(in:l0 a:7)
		load(in:l0 a:~7)
		load(in:l0 a:someAtom)
		load(in:l0 a:'an atom with spaces')
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	n, ok := seg.Instructions[0].A.Immediate().SmallIntValue()
	if !ok || n != 7 {
		t.Errorf("instr 0 immediate = %v, %v; want 7, true", n, ok)
	}
	n, ok = seg.Instructions[1].A.Immediate().SmallIntValue()
	if !ok || n != -7 {
		t.Errorf("instr 1 immediate = %v, %v; want -7, true", n, ok)
	}
	atom, ok := seg.Instructions[2].A.Immediate().AsAtom()
	if !ok || atom.String() != "someAtom" {
		t.Errorf("instr 2 immediate = %v, %v; want someAtom, true", atom, ok)
	}
	atom, ok = seg.Instructions[3].A.Immediate().AsAtom()
	if !ok || atom.String() != "an atom with spaces" {
		t.Errorf("instr 3 immediate = %v, %v; want %q, true", atom, ok, "an atom with spaces")
	}
}

func TestAssembleForwardLabels(t *testing.T) {
	seg, err := Assemble(`proc(nparams:1 nlocals:1 nclosures:0 bytecode:segment(
		branch_if(a:p0 to:Then)
		load(in:l0 a:0)
		branch(to:End)
	Then:
		load(in:l0 a:1)
	End:
		return()
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	branchIf := seg.Instructions[0]
	if branchIf.Target != 3 {
		t.Errorf("branch_if forward target = %d, want 3 (the Then: load)", branchIf.Target)
	}
	branch := seg.Instructions[2]
	if branch.Target != 4 {
		t.Errorf("branch forward target = %d, want 4 (the End: return)", branch.Target)
	}
}

func TestAssembleBranchSwitchLiteral(t *testing.T) {
	seg, err := Assemble(`proc(nparams:1 nlocals:1 nclosures:0 bytecode:segment(
		branch_switch_literal(a:p0 branches:record(0:Zero 1:One))
	Zero:
		load(in:l0 a:0)
		branch(to:End)
	One:
		load(in:l0 a:1)
	End:
		return()
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	instr := seg.Instructions[0]
	if len(instr.Cases) != 2 {
		t.Fatalf("len(Cases) = %d, want 2", len(instr.Cases))
	}
	if instr.Cases[0].Target != 1 {
		t.Errorf("case 0 target = %d, want 1", instr.Cases[0].Target)
	}
	if instr.Cases[1].Target != 3 {
		t.Errorf("case 1 target = %d, want 3", instr.Cases[1].Target)
	}
}

func TestAssembleThreeReadOperandInstruction(t *testing.T) {
	seg, err := Assemble(`proc(nparams:3 nlocals:0 nclosures:0 bytecode:segment(
		assign_array(array:p0 index:p1 value:p2)
	))`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	instr := seg.Instructions[0]
	if instr.A.Register() != (Register{Kind: RegParam, Index: 0}) {
		t.Errorf("A = %v, want p0", instr.A)
	}
	if instr.B.Register() != (Register{Kind: RegParam, Index: 1}) {
		t.Errorf("B = %v, want p1", instr.B)
	}
	if instr.C.Register() != (Register{Kind: RegParam, Index: 2}) {
		t.Errorf("C = %v, want p2", instr.C)
	}
}

func TestAssembleCommentsAndWhitespace(t *testing.T) {
	seg, err := Assemble(`
		# a leading comment
		proc(nparams:0 nlocals:0 nclosures:0 bytecode:segment(
			nop() # trailing comment
			return()
		))
	`)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if seg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", seg.Len())
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown opcode", `proc(nparams:0 nlocals:0 nclosures:0 bytecode:segment(bogus_op() ))`},
		{"undefined label", `proc(nparams:0 nlocals:0 nclosures:0 bytecode:segment(branch(to:Nowhere) ))`},
		{"trailing input", `proc(nparams:0 nlocals:0 nclosures:0 bytecode:segment(return())) garbage`},
		{"missing paren", `proc(nparams:0 nlocals:0 nclosures:0 bytecode:segment(return()`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Assemble(tt.src); err == nil {
				t.Fatal("expected an error, got nil")
			}
		})
	}
}
