package bytecode

import (
	"testing"

	"ozvm/internal/value"
)

func TestOperandRegisterVsImmediate(t *testing.T) {
	reg := RegOperand(Register{Kind: RegLocal, Index: 1})
	if !reg.IsRegister() {
		t.Fatal("RegOperand should report IsRegister")
	}
	if reg.Register() != (Register{Kind: RegLocal, Index: 1}) {
		t.Fatalf("Register() = %v, want l1", reg.Register())
	}

	imm := ImmOperand(value.SmallInt(42))
	if imm.IsRegister() {
		t.Fatal("ImmOperand should not report IsRegister")
	}
	n, ok := imm.Immediate().SmallIntValue()
	if !ok || n != 42 {
		t.Fatalf("Immediate() = %v, %v; want 42, true", n, ok)
	}
}

func TestOperandInvalid(t *testing.T) {
	if !(Operand{}).Invalid() {
		t.Fatal("zero Operand should be Invalid")
	}
	if ImmOperand(value.SmallInt(0)).Invalid() {
		t.Fatal("an immediate small int of 0 is still a set operand")
	}
}

func TestSegmentAt(t *testing.T) {
	seg := &Segment{
		NumParamsV: 1,
		Instructions: []Instruction{
			{Op: OpNop},
			{Op: OpReturn},
		},
	}
	if seg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", seg.Len())
	}
	instr, ok := seg.At(0)
	if !ok || instr.Op != OpNop {
		t.Fatalf("At(0) = %v, %v; want OpNop, true", instr.Op, ok)
	}
	if _, ok := seg.At(2); ok {
		t.Fatal("At(2) should be out of range")
	}
	if _, ok := seg.At(-1); ok {
		t.Fatal("At(-1) should be out of range")
	}
}
