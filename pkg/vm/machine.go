// Package vm is the reference SUBLEQ interpreter.
//
// Memory is one flat array of cells. A step reads the triple A, B, C at pc,
// stores mem[B] - mem[A] into mem[B] and branches to C when the result is
// not positive. The machine halts, and never faults, when pc or an operand
// address falls outside memory.
package vm

import (
	"context"
	"errors"
	"fmt"

	"gosubleq/pkg/image"
	"gosubleq/pkg/word"
)

// ErrStepBudget means Run gave up before the program halted.
var ErrStepBudget = errors.New("step budget exhausted")

// DefaultMemoryCells is the memory size when none is configured.
const DefaultMemoryCells = 65536

// Step is one executed instruction.
type Step struct {
	PC      int64
	A, B, C int64
	Result  int64 // new value of mem[B]
	Jumped  bool
}

type Machine struct {
	Memory []int64
	Width  word.Width

	PC     int64
	Steps  int64
	Halted bool

	Tracer Tracer
}

// New loads img into a machine with at least memoryCells cells. Cells past
// the image are zero.
func New(img *image.Image, memoryCells int) *Machine {
	n := memoryCells
	if n < img.Len() {
		n = img.Len()
	}
	m := &Machine{
		Memory: make([]int64, n),
		Width:  img.Width,
	}
	if m.Width == 0 {
		m.Width = word.Default
	}
	copy(m.Memory, img.Cells)
	return m
}

func (m *Machine) inBounds(addr int64) bool {
	return addr >= 0 && addr < int64(len(m.Memory))
}

// Read returns the cell at addr, or false outside memory.
func (m *Machine) Read(addr int64) (int64, bool) {
	if !m.inBounds(addr) {
		return 0, false
	}
	return m.Memory[addr], true
}

// Step executes one triple. It is a no-op once the machine has halted.
func (m *Machine) Step() {
	if m.Halted {
		return
	}

	pc := m.PC
	if !m.inBounds(pc) || !m.inBounds(pc+2) {
		m.halt()
		return
	}
	a, b, c := m.Memory[pc], m.Memory[pc+1], m.Memory[pc+2]
	if !m.inBounds(a) || !m.inBounds(b) {
		m.halt()
		return
	}

	r := m.Width.Sub(m.Memory[b], m.Memory[a])
	m.Memory[b] = r
	jumped := r <= 0
	if jumped {
		m.PC = c
	} else {
		m.PC = pc + 3
	}
	m.Steps++

	st := Step{PC: pc, A: a, B: b, C: c, Result: r, Jumped: jumped}
	trace(st)
	if m.Tracer != nil {
		m.Tracer.OnStep(m, st)
	}
}

func (m *Machine) halt() {
	m.Halted = true
	if m.Tracer != nil {
		m.Tracer.OnHalt(m)
	}
}

// Run steps until the machine halts. maxSteps <= 0 means no limit;
// otherwise ErrStepBudget is returned when the budget runs out first.
func (m *Machine) Run(maxSteps int64) error {
	return m.RunContext(context.Background(), maxSteps)
}

// checkEvery is how many steps RunContext takes between context checks.
const checkEvery = 4096

// RunContext is Run that also stops when ctx is done.
func (m *Machine) RunContext(ctx context.Context, maxSteps int64) error {
	var n int64
	for !m.Halted {
		if maxSteps > 0 && n >= maxSteps {
			return fmt.Errorf("%w after %d steps (pc=%d)", ErrStepBudget, n, m.PC)
		}
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		m.Step()
		n++
	}
	return nil
}
