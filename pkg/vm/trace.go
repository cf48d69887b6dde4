package vm

import (
	"context"
	"log/slog"
)

// LevelTrace sits below Debug: one record per executed instruction.
const LevelTrace slog.Level = slog.LevelDebug - 4

// Tracer observes the machine. OnStep runs after every executed triple,
// OnHalt once when the machine stops.
type Tracer interface {
	OnStep(m *Machine, st Step)
	OnHalt(m *Machine)
}

func trace(st Step) {
	ctx := context.Background()
	if !slog.Default().Enabled(ctx, LevelTrace) {
		return
	}
	slog.Log(ctx, LevelTrace, "step",
		"pc", st.PC, "a", st.A, "b", st.B, "c", st.C,
		"result", st.Result, "jumped", st.Jumped)
}

// Counter is a Tracer that counts how often each address was executed.
type Counter struct {
	Hits   map[int64]int64
	Halted bool
}

func NewCounter() *Counter {
	return &Counter{Hits: make(map[int64]int64)}
}

func (c *Counter) OnStep(_ *Machine, st Step) {
	c.Hits[st.PC]++
}

func (c *Counter) OnHalt(*Machine) {
	c.Halted = true
}
