package asm

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gosubleq/pkg/vm"
	"gosubleq/pkg/word"
)

func mustAssemble(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Assemble(src, DefaultOptions())
	if err != nil {
		t.Fatalf("Assemble: %v\n%s", err, src)
	}
	return res
}

// execute assembles src, runs it to the halt and returns the machine.
func execute(t *testing.T, src string) (*Result, *vm.Machine) {
	t.Helper()
	res := mustAssemble(t, src)
	m := vm.New(res.Image, 0)
	if err := m.Run(100_000); err != nil {
		t.Fatalf("Run: %v\n%s", err, src)
	}
	return res, m
}

func cellOf(t *testing.T, res *Result, m *vm.Machine, name string) int64 {
	t.Helper()
	sym, ok := res.Symbols.Lookup(name)
	if !ok {
		t.Fatalf("no symbol %q", name)
	}
	return m.Memory[sym.Value]
}

func tempsOf(t *testing.T, res *Result, m *vm.Machine) []int64 {
	t.Helper()
	return []int64{cellOf(t, res, m, TempT), cellOf(t, res, m, TempE), cellOf(t, res, m, TempR)}
}

func TestMacroSemantics(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		d, s         int64
		wantD, wantS int64
		triples      int
	}{
		{"sub", "sub [d], [s]", 10, 3, 7, 3, 1},
		{"sub wraps", "sub [d], [s]", math.MinInt64, 1, math.MaxInt64, 1, 1},
		{"mov", "mov [d], [s]", 1, -9, -9, -9, 4},
		{"mov immediate", "mov [d], 77", 1, 0, 77, 0, 4},
		{"mov here", "mov [d], $", 1, 0, 12, 0, 4},
		{"add_c", "add_c [d], 5", 10, 0, 15, 0, 1},
		{"add immediate", "add [d], 5", 10, 0, 15, 0, 1},
		{"add expression", "add [d], -5 + 2", 10, 0, 7, 0, 1},
		{"add_r", "add_r [d], [s]", 10, 3, 13, 3, 3},
		{"add memory", "add [d], [s]", 10, 3, 13, 3, 3},
		{"add_r immediate source", "add_r [d], 4", 10, 0, 14, 0, 3},
		{"inc", "inc [d]", 10, 0, 11, 0, 1},
		{"dec", "dec [d]", 10, 0, 9, 0, 1},
		{"dec below zero", "dec [d]", 0, 0, -1, 0, 1},
		{"neg negative", "neg [d]", -7, 0, 7, 0, 6},
		{"neg positive", "neg [d]", 5, 0, -5, 0, 6},
		{"neg zero", "neg [d]", 0, 0, 0, 0, 6},
		{"clr", "clr [d]", 42, 0, 0, 0, 1},
		{"nop", "nop", 42, 3, 42, 3, 1},
		{"jmp", "jmp skip\ninc [d]\nskip:", 42, 0, 42, 0, 2},
		{"jle zero", "jle [d], skip\ninc [s]\nskip:", 0, 0, 0, 0, 2},
		{"jle negative", "jle [d], skip\ninc [s]\nskip:", -1, 0, -1, 0, 2},
		{"jle positive", "jle [d], skip\ninc [s]\nskip:", 1, 0, 1, 1, 2},
		{"subleq default target", "subleq [s], [d]", 10, 3, 7, 3, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := fmt.Sprintf("%s\nhlt\nd: dq %d\ns: dq %d\n", tc.body, tc.d, tc.s)
			res, m := execute(t, src)

			if got := len(res.Triples) - 1; got != tc.triples {
				t.Errorf("expanded to %d triples; want %d", got, tc.triples)
			}
			if got := cellOf(t, res, m, "d"); got != tc.wantD {
				t.Errorf("d = %d; want %d", got, tc.wantD)
			}
			if got := cellOf(t, res, m, "s"); got != tc.wantS {
				t.Errorf("s = %d; want %d", got, tc.wantS)
			}
			if diff := cmp.Diff([]int64{0, 0, 0}, tempsOf(t, res, m)); diff != "" {
				t.Errorf("temps not restored (-want +got):\n%s", diff)
			}
			for _, lit := range res.Symbols.Literals() {
				if m.Memory[lit.Addr] != lit.Value {
					t.Errorf("literal at %d changed from %d to %d", lit.Addr, lit.Value, m.Memory[lit.Addr])
				}
			}
		})
	}
}

func TestJeBranchesOnEquality(t *testing.T) {
	const prog = `
        je [a], [b], equal
        mov [out], [two]
        hlt
equal:  mov [out], [one]
        hlt
a:      dq %d
b:      dq %d
one:    dq 1
two:    dq 2
out:    dq 0
`
	tests := []struct {
		a, b  int64
		equal bool
	}{
		{5, 5, true},
		{5, 6, false},
		{6, 5, false},
		{-3, -3, true},
		{0, 0, true},
		{-1, 1, false},
		{math.MinInt64, math.MaxInt64, false},
		{math.MaxInt64, math.MinInt64, false},
		{0, math.MinInt64, false},
		{math.MinInt64, 0, false},
		{1, math.MinInt64 + 1, false},
	}
	for _, tc := range tests {
		res, m := execute(t, fmt.Sprintf(prog, tc.a, tc.b))
		want := int64(2)
		if tc.equal {
			want = 1
		}
		if got := cellOf(t, res, m, "out"); got != want {
			t.Errorf("je %d, %d: out = %d; want %d", tc.a, tc.b, got, want)
		}
		if cellOf(t, res, m, "a") != tc.a || cellOf(t, res, m, "b") != tc.b {
			t.Errorf("je %d, %d modified its operands", tc.a, tc.b)
		}
		if diff := cmp.Diff([]int64{0, 0, 0}, tempsOf(t, res, m)); diff != "" {
			t.Errorf("je %d, %d: temps not restored (-want +got):\n%s", tc.a, tc.b, diff)
		}
	}
}

func TestJeAtNarrowWidth(t *testing.T) {
	const prog = `
        je [a], [b], equal
        mov [out], [two]
        hlt
equal:  mov [out], [one]
        hlt
a:      dq %d
b:      dq %d
one:    dq 1
two:    dq 2
out:    dq 0
`
	tests := []struct {
		a, b  int64
		equal bool
	}{
		{0, -128, false},
		{-128, 0, false},
		{1, -127, false},
		{-128, -128, true},
		{127, -128, false},
		{5, 5, true},
	}
	for _, tc := range tests {
		res, err := Assemble(fmt.Sprintf(prog, tc.a, tc.b), Options{Width: word.W8})
		if err != nil {
			t.Fatal(err)
		}
		m := vm.New(res.Image, 0)
		if err := m.Run(1000); err != nil {
			t.Fatal(err)
		}
		want := int64(2)
		if tc.equal {
			want = 1
		}
		if got := cellOf(t, res, m, "out"); got != want {
			t.Errorf("8-bit je %d, %d: out = %d; want %d", tc.a, tc.b, got, want)
		}
		if diff := cmp.Diff([]int64{0, 0, 0}, tempsOf(t, res, m)); diff != "" {
			t.Errorf("8-bit je %d, %d: temps not restored (-want +got):\n%s", tc.a, tc.b, diff)
		}
	}
}

func TestJeImmediateScenario(t *testing.T) {
	tests := []struct {
		src    string
		steps  int
		wantPC int64
	}{
		// Equal: both differences are zero, then $e - 1 is negative.
		{"je 6, 6, 5", 7, 5},
		// Not equal: falls through to the address after the expansion.
		{"je 6, 7, 5", 7, 33},
		{"je 7, 6, 5", 5, 33},
	}
	for _, tc := range tests {
		res := mustAssemble(t, tc.src)
		if got := len(res.Triples); got != 11 {
			t.Fatalf("%s: %d triples; want 11", tc.src, got)
		}
		m := vm.New(res.Image, 0)
		for i := 0; i < tc.steps; i++ {
			m.Step()
		}
		if m.PC != tc.wantPC {
			t.Errorf("%s: pc = %d after %d steps; want %d", tc.src, m.PC, tc.steps, tc.wantPC)
		}
		if diff := cmp.Diff([]int64{0, 0, 0}, tempsOf(t, res, m)); diff != "" {
			t.Errorf("%s: temps (-want +got):\n%s", tc.src, diff)
		}
	}
}

func TestHaltLeavesStateUnchanged(t *testing.T) {
	for _, cells := range []int{0, 16, 1024} {
		res := mustAssemble(t, "hlt")
		m := vm.New(res.Image, cells)
		for i := res.Image.Len(); i < len(m.Memory); i++ {
			m.Memory[i] = int64(i*7 - 300)
		}
		before := append([]int64(nil), m.Memory...)

		if err := m.Run(10); err != nil {
			t.Fatalf("memory %d: %v", cells, err)
		}
		if !m.Halted || m.Steps != 1 {
			t.Errorf("memory %d: halted=%v after %d steps; want halt after 1", cells, m.Halted, m.Steps)
		}
		if diff := cmp.Diff(before, m.Memory); diff != "" {
			t.Errorf("memory %d: hlt changed memory (-before +after):\n%s", cells, diff)
		}
	}
}

func TestAddFormsAreEquivalent(t *testing.T) {
	pairs := [][2]string{
		{"add [d], 5", "add_c [d], 5"},
		{"add [d], [s]", "add_r [d], [s]"},
		{"inc [d]", "add_c [d], 1"},
		{"dec [d]", "add [d], -1"},
	}
	for _, p := range pairs {
		a := mustAssemble(t, p[0]+"\nhlt\nd: dq 3\ns: dq 4\n")
		b := mustAssemble(t, p[1]+"\nhlt\nd: dq 3\ns: dq 4\n")
		if diff := cmp.Diff(a.Image.Cells, b.Image.Cells); diff != "" {
			t.Errorf("%q and %q differ (-a +b):\n%s", p[0], p[1], diff)
		}
	}
}

func TestMacroSemanticErrors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"add_c [x], [x]\nx: dq 1", ErrCompileTimeAddOnRuntimeValue},
		{"mov 5, [x]\nx: dq 1", ErrWriteToLiteral},
		{"sub 5, [x]\nx: dq 1", ErrWriteToLiteral},
		{"add 1, [x]\nx: dq 1", ErrWriteToLiteral},
		{"clr 3", ErrWriteToLiteral},
		{"neg 1", ErrWriteToLiteral},
		{"inc 2", ErrWriteToLiteral},
		{"je [x], [x]\nx: dq 1", ErrArity},
		{"subleq 1, 5\nadd [d], -5\nhlt\nd: dq 100", ErrWriteToLiteral},
		{"subleq [d], 5\nd: dq 1", ErrWriteToLiteral},
		{"subleq 0, 5, -1", ErrWriteToLiteral},
		{"subleq 7, 7, -1", ErrWriteToLiteral},
	}
	for _, tc := range tests {
		res, err := Assemble(tc.src, DefaultOptions())
		if !errors.Is(err, tc.want) {
			t.Errorf("%q: error = %v; want %v", tc.src, err, tc.want)
		}
		if !errors.Is(err, ErrSemantic) {
			t.Errorf("%q: %v should be a semantic error", tc.src, err)
		}
		if res != nil {
			t.Errorf("%q: got a result alongside the error", tc.src)
		}
	}
}

func TestRawSubleqOnZeroLiteral(t *testing.T) {
	raw := mustAssemble(t, "subleq 0, 0, -1")
	hlt := mustAssemble(t, "hlt")
	if !raw.Image.Equal(hlt.Image) {
		t.Errorf("subleq 0, 0, -1 = %v; want the hlt image %v", raw.Image.Cells, hlt.Image.Cells)
	}

	// Literals read through A stay shared with macros that subtract them.
	res, m := execute(t, "subleq 5, [d]\nadd [d], -5\nhlt\nd: dq 100")
	if got := cellOf(t, res, m, "d"); got != 90 {
		t.Errorf("d = %d; want 90", got)
	}
	if lit, ok := res.Symbols.Literal(5); !ok || m.Memory[lit.Addr] != 5 {
		t.Errorf("literal 5 = %+v, %v; want it unchanged", lit, ok)
	}
}

func TestMacroNames(t *testing.T) {
	want := []string{"clr", "hlt", "jle", "jmp", "nop", "sub", "add", "add_c", "add_r", "dec", "inc", "mov", "neg", "je"}
	if diff := cmp.Diff(want, MacroNames()); diff != "" {
		t.Errorf("MacroNames() (-want +got):\n%s", diff)
	}
}
