package asm

import (
	"fmt"
	"sort"
	"strings"
)

// OutOfBounds is the branch target hlt jumps to. No memory address is
// negative, so the machine stops at the next fetch.
const OutOfBounds = -1

// triple is a primitive instruction whose operands are still expressions.
// A and B are address operands: Memory yields the address itself, Immediate
// yields the address of the virtual literal holding the value. C is a branch
// target and always yields its value.
type triple struct {
	A, B, C Operand
}

// nextTriple is the expansion-local location counter: the address right after
// the triple it appears in, plus Skip further triples.
type nextTriple struct {
	Skip int
}

func (*nextTriple) exprNode() {}
func (n *nextTriple) String() string {
	if n.Skip == 0 {
		return "$"
	}
	return fmt.Sprintf("$+%d", 3*n.Skip)
}

func next(skip int) Operand {
	return Operand{Kind: Immediate, Expr: &nextTriple{Skip: skip}}
}

func temp(name string) Operand {
	return Operand{Kind: Memory, Expr: &Ref{Name: name}}
}

func imm(v int64) Operand {
	return Operand{Kind: Immediate, Expr: &Num{Value: v}}
}

var (
	opT = temp(TempT)
	opE = temp(TempE)
)

func subleq(a, b, c Operand) triple {
	return triple{A: a, B: b, C: c}
}

// macro describes one pseudo-instruction. lower must be purely syntactic:
// the number of triples it returns depends on the opcode and the operand
// kinds, never on operand values, so pass 1 can size it before any symbol
// is resolved.
type macro struct {
	name   string
	layer  int
	arity  int
	writes []int // operands the expansion stores into
	lower  func(ops []Operand) ([]triple, error)
}

var macros map[string]*macro

func init() {
	macros = make(map[string]*macro)
	for _, m := range []*macro{
		// Layer 1: single triples.
		{name: "sub", layer: 1, arity: 2, writes: []int{0}, lower: lowerSub},
		{name: "hlt", layer: 1, arity: 0, lower: lowerHlt},
		{name: "jmp", layer: 1, arity: 1, lower: lowerJmp},
		{name: "clr", layer: 1, arity: 1, writes: []int{0}, lower: lowerClr},
		{name: "jle", layer: 1, arity: 2, lower: lowerJle},
		{name: "nop", layer: 1, arity: 0, lower: lowerNop},

		// Layer 2: data movement and arithmetic through $t.
		{name: "mov", layer: 2, arity: 2, writes: []int{0}, lower: lowerMov},
		{name: "add_c", layer: 2, arity: 2, writes: []int{0}, lower: lowerAddC},
		{name: "add_r", layer: 2, arity: 2, writes: []int{0}, lower: lowerAddR},
		{name: "add", layer: 2, arity: 2, writes: []int{0}, lower: lowerAdd},
		{name: "inc", layer: 2, arity: 1, writes: []int{0}, lower: lowerInc},
		{name: "dec", layer: 2, arity: 1, writes: []int{0}, lower: lowerDec},
		{name: "neg", layer: 2, arity: 1, writes: []int{0}, lower: lowerNeg},

		// Layer 3: comparisons.
		{name: "je", layer: 3, arity: 3, lower: lowerJe},
	} {
		macros[m.name] = m
	}
}

func lookupMacro(name string) (*macro, bool) {
	m, ok := macros[strings.ToLower(name)]
	return m, ok
}

// MacroNames lists the macro opcodes sorted by layer, then name.
func MacroNames() []string {
	names := make([]string, 0, len(macros))
	for n := range macros {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		li, lj := macros[names[i]].layer, macros[names[j]].layer
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
	return names
}

// expandMacro validates operands and returns the macro's triples.
func expandMacro(m *macro, ops []Operand, pos Pos) ([]triple, error) {
	if len(ops) != m.arity {
		return nil, errorf(pos, ErrArity, "%s expects %d operand(s), got %d", m.name, m.arity, len(ops))
	}
	for _, i := range m.writes {
		if ops[i].Kind == Immediate {
			return nil, errorf(ops[i].Pos, ErrWriteToLiteral, "%s stores into operand %d; use [%s] for a memory cell", m.name, i+1, ops[i])
		}
	}
	return m.lower(ops)
}

// lowerItem returns the primitive triples for a code item.
func lowerItem(it *Item) ([]triple, error) {
	if it.Kind == ItemTriple {
		c := next(0)
		if len(it.Operands) == 3 {
			c = it.Operands[2]
		}
		return []triple{subleq(it.Operands[0], it.Operands[1], c)}, nil
	}
	m, ok := lookupMacro(it.Op)
	if !ok {
		return nil, errorf(it.Pos, ErrSyntax, "unknown opcode %q", it.Op)
	}
	return expandMacro(m, it.Operands, it.Pos)
}

// sub d, s: [d] -= [s]. Destination first, like every other macro.
func lowerSub(ops []Operand) ([]triple, error) {
	return []triple{subleq(ops[1], ops[0], next(0))}, nil
}

// hlt: the zero literal minus itself is still zero; the jump leaves memory.
func lowerHlt([]Operand) ([]triple, error) {
	return []triple{subleq(imm(0), imm(0), imm(OutOfBounds))}, nil
}

// jmp t: $t - $t = 0 always branches.
func lowerJmp(ops []Operand) ([]triple, error) {
	return []triple{subleq(opT, opT, ops[0])}, nil
}

// clr d: [d] = 0
func lowerClr(ops []Operand) ([]triple, error) {
	return []triple{subleq(ops[0], ops[0], next(0))}, nil
}

// jle a, t: [a] -= 0, branch when [a] <= 0.
func lowerJle(ops []Operand) ([]triple, error) {
	return []triple{subleq(opT, ops[0], ops[1])}, nil
}

func lowerNop([]Operand) ([]triple, error) {
	return []triple{subleq(opT, opT, next(0))}, nil
}

// mov d, s: [d] = [s]
func lowerMov(ops []Operand) ([]triple, error) {
	d, s := ops[0], ops[1]
	return []triple{
		subleq(d, d, next(0)),
		subleq(s, opT, next(0)),
		subleq(opT, d, next(0)),
		subleq(opT, opT, next(0)),
	}, nil
}

// add_c d, L: subtracts the literal -L, so the negation happens at compile
// time and the pool entry is never written at run time.
func lowerAddC(ops []Operand) ([]triple, error) {
	d, l := ops[0], ops[1]
	if l.Kind != Immediate {
		return nil, errorf(l.Pos, ErrCompileTimeAddOnRuntimeValue, "add_c needs an immediate value, got %s (use add_r)", l)
	}
	neg := Operand{Kind: Immediate, Expr: &Unary{Op: MINUS, X: l.Expr}, Pos: l.Pos}
	return []triple{subleq(neg, d, next(0))}, nil
}

// add_r d, s: [d] += [s]
func lowerAddR(ops []Operand) ([]triple, error) {
	d, s := ops[0], ops[1]
	return []triple{
		subleq(s, opT, next(0)),
		subleq(opT, d, next(0)),
		subleq(opT, opT, next(0)),
	}, nil
}

// add picks its form from the operand kind once, here.
func lowerAdd(ops []Operand) ([]triple, error) {
	if ops[1].Kind == Immediate {
		return lowerAddC(ops)
	}
	return lowerAddR(ops)
}

func lowerInc(ops []Operand) ([]triple, error) {
	return lowerAddC([]Operand{ops[0], imm(1)})
}

func lowerDec(ops []Operand) ([]triple, error) {
	return lowerAddC([]Operand{ops[0], imm(-1)})
}

// neg d: [d] = -[d]
func lowerNeg(ops []Operand) ([]triple, error) {
	d := ops[0]
	return []triple{
		subleq(d, opT, next(0)),   // $t = -d
		subleq(d, d, next(0)),     // d = 0
		subleq(opT, opE, next(0)), // $e = d
		subleq(opE, d, next(0)),   // d = -d
		subleq(opT, opT, next(0)),
		subleq(opE, opE, next(0)),
	}, nil
}

// je a, b, t: branch to t when [a] == [b]. Neither operand is written and
// $t and $e are zero again on every exit. When a - b wraps to the minimum
// cell value, -$e is not positive either, so $e - 1 tells it apart from 0.
func lowerJe(ops []Operand) ([]triple, error) {
	a, b, t := ops[0], ops[1], ops[2]
	return []triple{
		subleq(a, opT, next(0)),      // $t = -a
		subleq(opT, opE, next(0)),    // $e = a
		subleq(b, opE, next(1)),      // $e = a - b; a - b <= 0 skips the next triple
		subleq(opT, opT, next(6)),    // a - b > 0: clear $t, go clear $e
		subleq(opT, opT, next(0)),    // $t = 0
		subleq(opE, opT, next(1)),    // $t = b - a; not positive skips the next triple
		subleq(opT, opT, next(3)),    // a - b < 0: clear $t, go clear $e
		subleq(imm(1), opE, next(1)), // $e - 1 <= 0 means a - b was 0
		subleq(opT, opT, next(1)),    // a - b wrapped to the minimum: clear $t, go clear $e
		subleq(opE, opE, t),          // equal: $e = 0, $t is already 0
		subleq(opE, opE, next(0)),
	}, nil
}
