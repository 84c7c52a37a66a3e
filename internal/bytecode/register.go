// Package bytecode implements the instruction encoding and operand model
// from spec.md §4.5/§6: register kinds, operands, instructions, and the
// closure-carried code Segment. It also implements the whitespace-and-
// comment-tolerant textual assembler from spec.md §6 used by tests and
// tooling to build Segments without a full front end.
//
// Grounded on original_source/src/store/thread.h's Register/Operand pair
// (DebugString(Register), DebugString(Operand)) and the opcode set in
// original_source/combinators/bytecode.h, generalized to spec.md's closed
// instruction set.
package bytecode

import "strconv"

// RegisterKind is the closed set of register kinds from spec.md §4.5.
type RegisterKind uint8

const (
	RegInvalid RegisterKind = iota
	RegLocal
	RegParam
	RegClosure
	RegArray      // indirect: element Index of the frame's selected array
	RegLocalArray // the whole locals array, as a value
	RegParamArray
	RegClosureArray
	RegArrayArray // the frame's currently selected array, as a value
	RegExn        // the per-thread exception slot
)

func (k RegisterKind) String() string {
	switch k {
	case RegInvalid:
		return "invalid"
	case RegLocal:
		return "local"
	case RegParam:
		return "param"
	case RegClosure:
		return "closure"
	case RegArray:
		return "array"
	case RegLocalArray:
		return "local*"
	case RegParamArray:
		return "param*"
	case RegClosureArray:
		return "closure*"
	case RegArrayArray:
		return "array*"
	case RegExn:
		return "exn"
	default:
		return "unknown-register-kind"
	}
}

// Register names a storage slot in a call frame: l<i>/p<i>/e<i>/a<i> for the
// indexed kinds, l*/p*/e*/a* for the whole-array kinds, and exn for the
// per-thread exception register (spec.md §4.5, §6's textual form).
type Register struct {
	Kind  RegisterKind
	Index int
}

// Valid reports whether r names an actual register (the zero Register does
// not).
func (r Register) Valid() bool { return r.Kind != RegInvalid }

// IsWholeArray reports whether r denotes one of the four "whole array as a
// value" register kinds rather than a single indexed slot.
func (r Register) IsWholeArray() bool {
	switch r.Kind {
	case RegLocalArray, RegParamArray, RegClosureArray, RegArrayArray:
		return true
	default:
		return false
	}
}

func (r Register) String() string {
	switch r.Kind {
	case RegLocal:
		return regName("l", r.Index)
	case RegParam:
		return regName("p", r.Index)
	case RegClosure:
		return regName("e", r.Index)
	case RegArray:
		return regName("a", r.Index)
	case RegLocalArray:
		return "l*"
	case RegParamArray:
		return "p*"
	case RegClosureArray:
		return "e*"
	case RegArrayArray:
		return "a*"
	case RegExn:
		return "exn"
	default:
		return "<invalid register>"
	}
}

func regName(prefix string, index int) string {
	// mirrors DebugString(Register) in original_source/src/store/thread.h,
	// which uses boost::format("%s%d") for the indexed kinds.
	return prefix + strconv.Itoa(index)
}
