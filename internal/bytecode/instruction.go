package bytecode

import "ozvm/internal/value"

// Operand is either a Register reference or an immediate Value, matching
// spec.md §4.5 and original_source/src/store/thread.h's Operand struct.
type Operand struct {
	isRegister bool
	reg        Register
	imm        value.Value
}

// RegOperand wraps a register reference as an operand.
func RegOperand(r Register) Operand { return Operand{isRegister: true, reg: r} }

// ImmOperand wraps an immediate value as an operand.
func ImmOperand(v value.Value) Operand { return Operand{imm: v} }

// Invalid reports whether this operand was never set.
func (o Operand) Invalid() bool { return !o.isRegister && !o.imm.IsValid() }

// IsRegister reports whether this operand reads a register.
func (o Operand) IsRegister() bool { return o.isRegister }

// Register returns the operand's register (valid only if IsRegister).
func (o Operand) Register() Register { return o.reg }

// Immediate returns the operand's immediate value (valid only if
// !IsRegister).
func (o Operand) Immediate() value.Value { return o.imm }

// SwitchCase is one arm of a branch_switch_literal instruction: a literal
// value paired with the absolute instruction index to branch to on match.
type SwitchCase struct {
	Literal value.Value
	Target  int
}

// Instruction is one bytecode instruction: an opcode, a destination
// register (when the opcode produces one), up to three read operands, an
// absolute branch target (when the opcode branches unconditionally or
// conditionally to a single place), and, for branch_switch_literal only, a
// literal-to-target case table.
//
// Every spec.md §6 opcode needs at most a destination register plus three
// read operands — assign_array's `array index value` and
// unify_record_field's `record feature value` are the two ops that need all
// three and no destination (see DESIGN.md for the per-opcode
// operand mapping) — so a single flat struct covers the whole instruction
// set without a variant type per opcode.
type Instruction struct {
	Op      OpCode
	Out     Register
	A, B, C Operand
	Target  int
	Cases   []SwitchCase
}

// Segment is a compiled bytecode segment: the body of a Closure (spec.md
// §4.5). It implements value.CodeSegment so internal/value's Closure
// payload can carry one without importing this package.
type Segment struct {
	Name         string
	NumParamsV   int
	NumLocalsV   int
	NumClosureV  int
	Instructions []Instruction
}

func (s *Segment) NumParams() int       { return s.NumParamsV }
func (s *Segment) NumLocals() int       { return s.NumLocalsV }
func (s *Segment) NumClosureSlots() int { return s.NumClosureV }

// At returns the instruction at ip, and whether ip is in range.
func (s *Segment) At(ip int) (Instruction, bool) {
	if ip < 0 || ip >= len(s.Instructions) {
		return Instruction{}, false
	}
	return s.Instructions[ip], true
}

// Len returns the number of instructions in the segment.
func (s *Segment) Len() int { return len(s.Instructions) }
