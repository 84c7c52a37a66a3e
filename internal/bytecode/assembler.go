package bytecode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"ozvm/internal/literal"
	"ozvm/internal/value"
)

// Assemble parses the whitespace-and-comment-tolerant textual bytecode form
// from spec.md §6 ("Bytecode textual form") into a compiled Segment. It is
// meant for tests and tooling, not for the compiler's own emission path
// (which builds Instructions directly).
//
// Grounded on internal/lexer/scanner.go's Token{Type,Lexeme,Line} shape
// from the example corpus, trimmed to the handful of token classes this
// tiny assembly language needs.
func Assemble(src string) (*Segment, error) {
	p := &parser{lex: newLexer(src)}
	p.advance()
	seg, err := p.parseProc()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.tok.text)
	}
	return seg, nil
}

// --- lexer ---

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokInt
	tokString
	tokSymbol // single-char punctuation: ( ) : , * @ [ ] . + - / ! =
	tokTilde  // ~N negative integer literal
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: []rune(src)} }

func (l *lexer) next() token {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '\'':
		return l.scanQuotedAtom()
	case c == '~' && l.pos+1 < len(l.src) && unicode.IsDigit(l.src[l.pos+1]):
		l.pos++
		l.scanDigits()
		return token{kind: tokTilde, text: string(l.src[start:l.pos]), pos: start}
	case unicode.IsDigit(c):
		l.scanDigits()
		return token{kind: tokInt, text: string(l.src[start:l.pos]), pos: start}
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos]), pos: start}
	case strings.ContainsRune("():,*@[].+-/!=", c):
		l.pos++
		return token{kind: tokSymbol, text: string(c), pos: start}
	default:
		l.pos++
		return token{kind: tokSymbol, text: string(c), pos: start}
	}
}

func (l *lexer) scanDigits() {
	for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) scanQuotedAtom() token {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != '\'' {
		if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
			l.pos++
		}
		b.WriteRune(l.src[l.pos])
		l.pos++
	}
	if l.pos < len(l.src) {
		l.pos++ // closing quote
	}
	return token{kind: tokString, text: b.String(), pos: start}
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if unicode.IsSpace(c) {
			l.pos++
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isIdentPart(c rune) bool {
	// '*' is only ever a suffix on whole-array register names (l* p* e* a*);
	// folding it into identifier scanning lets those lex as one token.
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '*'
}

// --- parser ---

type parser struct {
	lex *lexer
	tok token

	labels  map[string]int
	forward map[string][]labelSite // label name -> sites awaiting its target
	instrs  []Instruction
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("bytecode assembler at offset %d: %s", p.tok.pos, fmt.Sprintf(format, args...))
}

func (p *parser) expectSymbol(s string) error {
	if p.tok.kind != tokSymbol || p.tok.text != s {
		return p.errorf("expected %q, got %q", s, p.tok.text)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent(s string) error {
	if p.tok.kind != tokIdent || p.tok.text != s {
		return p.errorf("expected identifier %q, got %q", s, p.tok.text)
	}
	p.advance()
	return nil
}

// parseProc parses `proc(nparams:N nlocals:N nclosures:N bytecode:segment( <instr>* ))`.
func (p *parser) parseProc() (*Segment, error) {
	if err := p.expectIdent("proc"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	seg := &Segment{}
	for {
		if p.tok.kind == tokIdent && p.tok.text == "bytecode" {
			break
		}
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		n, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		switch key {
		case "nparams":
			seg.NumParamsV = int(n)
		case "nlocals":
			seg.NumLocalsV = int(n)
		case "nclosures":
			seg.NumClosureV = int(n)
		default:
			return nil, p.errorf("unknown proc field %q", key)
		}
	}
	if err := p.expectIdent("bytecode"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	if err := p.expectIdent("segment"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	p.labels = make(map[string]int)
	p.forward = make(map[string][]labelSite)
	for !(p.tok.kind == tokSymbol && p.tok.text == ")") {
		if err := p.parseInstruction(); err != nil {
			return nil, err
		}
	}
	p.advance() // consume ')'
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	seg.Instructions = p.instrs
	return seg, p.resolveLabels(seg)
}

func (p *parser) resolveLabels(seg *Segment) error {
	for name, sites := range p.forward {
		target, ok := p.labels[name]
		if !ok {
			return fmt.Errorf("bytecode assembler: undefined label %q", name)
		}
		for _, site := range sites {
			if site.caseIdx < 0 {
				seg.Instructions[site.instr].Target = target
			} else {
				// The label was used inside a Cases entry; patch that entry only.
				seg.Instructions[site.instr].Cases[site.caseIdx].Target = target
			}
		}
	}
	return nil
}

const pendingLabelMarker = -1

// labelSite is one use of a not-yet-defined label: the instruction it
// appears in and, for a branch_switch_literal case, the index of that case
// (-1 for the instruction's own Target).
type labelSite struct{ instr, caseIdx int }

// parseInstruction parses an optional `Label:` prefix followed by
// `mnemonic(param:value ...)`. The `<reg> := <rhs>` and `<op> = <op>` sugar
// forms are not accepted.
func (p *parser) parseInstruction() error {
	if p.tok.kind == tokIdent {
		save := *p.lex
		saveTok := p.tok
		name := p.tok.text
		p.advance()
		if p.tok.kind == tokSymbol && p.tok.text == ":" {
			// Could be a label (Name:) — only treat it as one if name starts
			// with an uppercase letter, matching spec.md's `Label:` form.
			if len(name) > 0 && unicode.IsUpper([]rune(name)[0]) {
				p.advance()
				p.labels[name] = len(p.instrs)
				return p.parseInstruction()
			}
			// Otherwise it was a mnemonic's first param key; rewind.
		}
		*p.lex = save
		p.tok = saveTok
	}
	return p.parseMnemonicOrSugar()
}

// operandSlot names which field of an Instruction a mnemonic's keyed
// argument fills.
type operandSlot byte

const (
	slotA operandSlot = iota
	slotB
	slotC
)

// operandKeys maps each opcode's own argument names (spec.md §6's per-opcode
// operand lists, matching exactly what internal/engine/dispatch.go reads
// out of instr.A/instr.B/instr.C) to the slot that argument fills. A key
// like "value" means something different for assign_cell (its second and
// only non-destination operand, slot B) than it does for assign_array or
// unify_record_field (their third operand, slot C) — so this table is keyed
// by (opcode, argument name), not by argument name alone; a single flat
// name→slot table can't express that "value" lands in a different slot
// depending on which opcode it's an argument of.
var operandKeys = map[OpCode]map[string]operandSlot{
	OpLoad:                  {"a": slotA},
	OpBranchIf:              {"cond": slotA, "a": slotA},
	OpBranchUnless:          {"cond": slotA, "a": slotA},
	OpBranchSwitchLiteral:   {"cond": slotA, "a": slotA},
	OpCall:                  {"proc": slotA, "params": slotB},
	OpCallTail:              {"proc": slotA, "params": slotB},
	OpCallNative:            {"name": slotA, "params": slotB},
	OpExnRaise:              {"exn": slotA, "value": slotA, "a": slotA},
	OpExnReraise:            {"exn": slotA, "value": slotA, "a": slotA},
	OpNewCell:               {"init": slotA, "a": slotA},
	OpNewArray:              {"size": slotA, "init": slotB},
	OpNewArity:              {"features": slotA, "a": slotA},
	OpNewList:               {"head": slotA, "tail": slotB},
	OpNewTuple:              {"size": slotA, "label": slotB},
	OpNewRecord:             {"arity": slotA, "label": slotB},
	OpNewProc:               {"proc": slotA, "env": slotB},
	OpNewThread:             {"proc": slotA, "params": slotB},
	OpGetValueType:          {"a": slotA, "value": slotA},
	OpAccessCell:            {"cell": slotA, "a": slotA},
	OpAccessArray:           {"array": slotA, "index": slotB},
	OpAccessRecord:          {"record": slotA, "feature": slotB},
	OpAccessRecordLabel:     {"record": slotA, "a": slotA},
	OpAccessRecordArity:     {"record": slotA, "a": slotA},
	OpAccessOpenRecordArity: {"record": slotA, "a": slotA},
	OpAssignCell:            {"cell": slotA, "value": slotB},
	OpAssignArray:           {"array": slotA, "index": slotB, "value": slotC},
	OpUnify:                 {"a": slotA, "v1": slotA, "b": slotB, "v2": slotB},
	OpTryUnify:              {"a": slotA, "v1": slotA, "b": slotB, "v2": slotB},
	OpUnifyRecordField:      {"record": slotA, "feature": slotB, "value": slotC},
	OpTestIsDet:             {"a": slotA, "value": slotA},
	OpTestIsRecord:          {"a": slotA, "value": slotA},
	OpTestEquality:          {"a": slotA, "v1": slotA, "b": slotB, "v2": slotB},
	OpTestLessThan:          {"a": slotA, "v1": slotA, "b": slotB, "v2": slotB},
	OpTestLessOrEqual:       {"a": slotA, "v1": slotA, "b": slotB, "v2": slotB},
	OpTestArityExtends:      {"super": slotA, "sub": slotB},
	OpNumberIntInverse:      {"a": slotA},
	OpNumberBoolNegate:      {"a": slotA},
	OpNumberIntAdd:          {"a": slotA, "b": slotB},
	OpNumberIntSubtract:     {"a": slotA, "b": slotB},
	OpNumberIntMultiply:     {"a": slotA, "b": slotB},
	OpNumberIntDivide:       {"a": slotA, "b": slotB},
	OpNumberBoolAndThen:     {"a": slotA, "b": slotB},
	OpNumberBoolOrElse:      {"a": slotA, "b": slotB},
	OpNumberBoolXor:         {"a": slotA, "b": slotB},
}

func (p *parser) parseMnemonicOrSugar() error {
	if p.tok.kind != tokIdent {
		return p.errorf("expected instruction, got %q", p.tok.text)
	}
	name := p.tok.text
	op, ok := LookupOpCode(name)
	if !ok {
		return p.errorf("unknown opcode %q", name)
	}
	p.advance()
	instr := Instruction{Op: op}
	if err := p.expectSymbol("("); err != nil {
		return err
	}
	for !(p.tok.kind == tokSymbol && p.tok.text == ")") {
		key, err := p.parseBareKey()
		if err != nil {
			return err
		}
		switch key {
		case "branches":
			cases, err := p.parseCases()
			if err != nil {
				return err
			}
			instr.Cases = cases
			continue
		case "to":
			target, err := p.parseTarget(-1)
			if err != nil {
				return err
			}
			instr.Target = target
			continue
		case "in", "into", "success_out":
			opd, err := p.parseOperand()
			if err != nil {
				return err
			}
			if opd.IsRegister() {
				instr.Out = opd.Register()
			}
			continue
		}
		slot, ok := operandKeys[op][key]
		if !ok {
			return p.errorf("opcode %q has no argument named %q", name, key)
		}
		opd, err := p.parseOperand()
		if err != nil {
			return err
		}
		switch slot {
		case slotA:
			instr.A = opd
		case slotB:
			instr.B = opd
		case slotC:
			instr.C = opd
		}
	}
	p.advance() // consume ')'
	p.instrs = append(p.instrs, instr)
	return nil
}

// parseBareKey parses `identifier:` and returns identifier.
func (p *parser) parseBareKey() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.errorf("expected field name, got %q", p.tok.text)
	}
	name := p.tok.text
	p.advance()
	if err := p.expectSymbol(":"); err != nil {
		return "", err
	}
	return name, nil
}

func (p *parser) parseKey() (string, error) { return p.parseBareKey() }

func (p *parser) parseInt() (int64, error) {
	neg := false
	if p.tok.kind == tokSymbol && p.tok.text == "-" {
		neg = true
		p.advance()
	}
	if p.tok.kind != tokInt {
		return 0, p.errorf("expected integer, got %q", p.tok.text)
	}
	n, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil {
		return 0, p.errorf("invalid integer %q: %v", p.tok.text, err)
	}
	p.advance()
	if neg {
		n = -n
	}
	return n, nil
}

// parseTarget parses a branch target: either a label name (resolved
// immediately if already seen, or recorded for back-patching once the
// whole segment has been read) or a bare instruction index. caseIdx is the
// index of the branch_switch_literal case being parsed, or -1 for an
// instruction's own target.
func (p *parser) parseTarget(caseIdx int) (int, error) {
	if p.tok.kind == tokIdent {
		name := p.tok.text
		if _, isReg := parseRegisterName(name); !isReg && len(name) > 0 && unicode.IsUpper([]rune(name)[0]) {
			p.advance()
			if idx, ok := p.labels[name]; ok {
				return idx, nil
			}
			site := labelSite{instr: len(p.instrs), caseIdx: caseIdx}
			p.forward[name] = append(p.forward[name], site)
			return pendingLabelMarker, nil
		}
	}
	n, err := p.parseInt()
	if err != nil {
		return 0, p.errorf("expected a label or instruction index as a branch target")
	}
	return int(n), nil
}

// parseOperand parses a register reference or an immediate literal
// (small int, negative int via ~N, bare atom, or quoted atom).
func (p *parser) parseOperand() (Operand, error) {
	switch p.tok.kind {
	case tokIdent:
		name := p.tok.text
		if reg, ok := parseRegisterName(name); ok {
			p.advance()
			return RegOperand(reg), nil
		}
		p.advance()
		return ImmOperand(value.FromAtom(literal.Get(name))), nil
	case tokInt:
		n, err := p.parseInt()
		if err != nil {
			return Operand{}, err
		}
		return ImmOperand(value.SmallInt(n)), nil
	case tokTilde:
		text := p.tok.text[1:]
		p.advance()
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("bytecode assembler: invalid negative integer %q: %v", text, err)
		}
		return ImmOperand(value.SmallInt(-n)), nil
	case tokString:
		s := p.tok.text
		p.advance()
		return ImmOperand(value.FromAtom(literal.Get(s))), nil
	default:
		return Operand{}, p.errorf("expected an operand, got %q", p.tok.text)
	}
}

// parseCases parses a `record(lit1:IP1 lit2:IP2 ...)`-shaped branch table
// for branch_switch_literal.
func (p *parser) parseCases() ([]SwitchCase, error) {
	if err := p.expectIdent("record"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var cases []SwitchCase
	for !(p.tok.kind == tokSymbol && p.tok.text == ")") {
		litOp, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		target, err := p.parseTarget(len(cases))
		if err != nil {
			return nil, err
		}
		cases = append(cases, SwitchCase{Literal: litOp.Immediate(), Target: target})
	}
	p.advance()
	return cases, nil
}

// parseRegisterName recognizes l0/p3/e1/a2 and l*/p*/e*/a*/exn.
func parseRegisterName(name string) (Register, bool) {
	if name == "exn" {
		return Register{Kind: RegExn}, true
	}
	if len(name) < 1 {
		return Register{}, false
	}
	var kindIndexed, kindWhole RegisterKind
	switch name[0] {
	case 'l':
		kindIndexed, kindWhole = RegLocal, RegLocalArray
	case 'p':
		kindIndexed, kindWhole = RegParam, RegParamArray
	case 'e':
		kindIndexed, kindWhole = RegClosure, RegClosureArray
	case 'a':
		kindIndexed, kindWhole = RegArray, RegArrayArray
	default:
		return Register{}, false
	}
	if name == string(name[0])+"*" {
		return Register{Kind: kindWhole}, true
	}
	rest := name[1:]
	if rest == "" {
		return Register{}, false
	}
	for _, c := range rest {
		if !unicode.IsDigit(c) {
			return Register{}, false
		}
	}
	idx, err := strconv.Atoi(rest)
	if err != nil {
		return Register{}, false
	}
	return Register{Kind: kindIndexed, Index: idx}, true
}
