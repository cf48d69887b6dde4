package asm

import (
	"fmt"
	"log/slog"
	"math"

	"gosubleq/pkg/word"
)

// maxPoolPasses bounds the fixed-point iteration that settles the literal
// pool when a literal depends on a temp-field address.
const maxPoolPasses = 16

// Layout is the address map produced by pass 1.
type Layout struct {
	CodeEnd   int64
	DataEnd   int64
	PoolStart int64
	TempStart int64
	Size      int64
	Passes    int
}

// defineSymbols enters every label and constant and records every use, so
// that a name nobody defines is reported before any layout work.
func (a *Assembler) defineSymbols() error {
	for _, it := range a.prog.Items {
		for _, l := range it.Labels {
			if _, err := a.syms.Define(l.Name, KindLabel, nil, l.Pos); err != nil {
				return err
			}
		}
	}
	for _, l := range a.prog.Trailing {
		if _, err := a.syms.Define(l.Name, KindLabel, nil, l.Pos); err != nil {
			return err
		}
	}
	for _, c := range a.prog.Constants {
		if _, err := a.syms.Define(c.Name, KindConstant, c.Expr, c.Pos); err != nil {
			return err
		}
	}

	for _, it := range a.prog.Items {
		for _, op := range it.Operands {
			a.referenceAll(op.Expr)
		}
		for _, v := range it.Values {
			a.referenceAll(v.Expr)
		}
		if it.Count != nil {
			a.referenceAll(it.Count)
		}
	}
	for _, c := range a.prog.Constants {
		a.referenceAll(c.Expr)
	}
	return a.syms.checkUndefined()
}

func (a *Assembler) referenceAll(x Expr) {
	switch n := x.(type) {
	case *Ref:
		a.syms.Reference(n.Name, n.Pos)
	case *Unary:
		a.referenceAll(n.X)
	case *Binary:
		a.referenceAll(n.Left)
		a.referenceAll(n.Right)
	}
}

// resolveLayout is pass 1. It lowers every code item to learn its size,
// assigns addresses to code, then data, then the literal pool and the temp
// fields, and binds every label.
func (a *Assembler) resolveLayout() error {
	var addr int64

	for _, it := range a.prog.Items {
		if !it.IsCode() {
			continue
		}
		lower, err := lowerItem(it)
		if err != nil {
			return err
		}
		it.lower = lower
		it.Addr = addr
		it.Size = 3 * int64(len(lower))
		a.bindLabels(it)
		addr += it.Size
		if err := a.checkSize(addr, it.Pos); err != nil {
			return err
		}
	}
	a.layout.CodeEnd = addr

	for _, it := range a.prog.Items {
		if it.IsCode() {
			continue
		}
		it.Addr = addr
		switch it.Kind {
		case ItemData:
			it.Size = int64(len(it.Values))
		case ItemReserve:
			n, err := Evaluate(it.Count, a.syms, a.opts.Width)
			if err != nil {
				return at(it.Pos, err)
			}
			if n < 0 {
				return errorf(it.Pos, ErrEvaluation, "%s count %d is negative", it.Op, n)
			}
			it.Size = n
		}
		a.bindLabels(it)
		addr += it.Size
		if err := a.checkSize(addr, it.Pos); err != nil {
			return err
		}
	}
	a.layout.DataEnd = addr

	for _, l := range a.prog.Trailing {
		a.syms.bind(l.Name, addr)
	}

	a.layout.PoolStart = addr
	if err := a.settlePool(); err != nil {
		return err
	}
	a.layout.TempStart = a.layout.PoolStart + int64(len(a.syms.pool))
	a.layout.Size = a.layout.TempStart + int64(len(tempNames))
	if err := a.checkSize(a.layout.Size, Pos{}); err != nil {
		return err
	}

	slog.Debug("layout resolved",
		"code", a.layout.CodeEnd,
		"data", a.layout.DataEnd-a.layout.CodeEnd,
		"literals", len(a.syms.pool),
		"temps", a.layout.TempStart,
		"size", a.layout.Size,
		"passes", a.layout.Passes)
	return nil
}

func (a *Assembler) bindLabels(it *Item) {
	for _, l := range it.Labels {
		a.syms.bind(l.Name, it.Addr)
	}
}

// checkSize fails once the image would not fit the configured limit or its
// last address would not fit in a cell.
func (a *Assembler) checkSize(size int64, pos Pos) error {
	limit := a.opts.ImageLimit
	if limit <= 0 {
		limit = math.MaxInt64
	}
	if a.opts.Width < word.W64 {
		if cells := a.opts.Width.Max() + 1; limit > cells {
			limit = cells
		}
	}
	if size > limit {
		return errorf(pos, ErrMemoryOverflow, "image needs %d cells, limit is %d", size, limit)
	}
	return nil
}

// settlePool collects every virtual literal. Literal values may depend on
// the temp-field addresses, which in turn depend on the pool size, so the
// pool is rebuilt until its size stops changing.
func (a *Assembler) settlePool() error {
	guess := 0
	for pass := 1; pass <= maxPoolPasses; pass++ {
		a.syms.resetPool()
		a.syms.forgetConstants()
		a.syms.setTemps(a.layout.PoolStart + int64(guess))

		if err := a.collectLiterals(); err != nil {
			return err
		}
		if n := len(a.syms.pool); n != guess {
			guess = n
			continue
		}
		a.syms.freezePool(a.layout.PoolStart)
		a.layout.Passes = pass
		return nil
	}
	return errorf(Pos{}, ErrEvaluation, "literal pool did not settle after %d passes", maxPoolPasses)
}

func (a *Assembler) collectLiterals() error {
	for _, it := range a.prog.Items {
		if !it.IsCode() {
			continue
		}
		for j, tr := range it.lower {
			e := a.tripleEnv(it, j)
			var values [2]int64
			for k, op := range []Operand{tr.A, tr.B} {
				if op.Kind != Immediate {
					continue
				}
				v, err := e.eval(op.Expr)
				if err != nil {
					return at(operandPos(op, it), err)
				}
				if _, err := a.syms.InternLiteral(v); err != nil {
					return at(operandPos(op, it), err)
				}
				values[k] = v
			}
			if err := checkLiteralStore(tr, values, it); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkLiteralStore rejects a raw subleq whose B operand is a pool literal:
// the store would change the value every other user of that literal reads.
// The zero literal minus itself stays zero, so subleq 0, 0, C is allowed.
// Macros declare the operands they write and are checked when lowered.
func checkLiteralStore(tr triple, values [2]int64, it *Item) error {
	if it.Kind != ItemTriple || tr.B.Kind != Immediate {
		return nil
	}
	if tr.A.Kind == Immediate && values[0] == 0 && values[1] == 0 {
		return nil
	}
	return errorf(operandPos(tr.B, it), ErrWriteToLiteral,
		"subleq stores into its second operand; use [%s] for a memory cell", tr.B)
}

// tripleEnv is the evaluation context of the j-th triple of a code item.
func (a *Assembler) tripleEnv(it *Item, j int) *env {
	return &env{
		syms:    a.syms,
		width:   a.opts.Width,
		here:    it.Addr + it.Size,
		hasHere: true,
		next:    it.Addr + 3*int64(j+1),
		hasNext: true,
	}
}

// operandPos prefers the operand's own position; operands synthesized by a
// macro lowering fall back to the item.
func operandPos(op Operand, it *Item) Pos {
	if op.Pos.Line > 0 {
		return op.Pos
	}
	return it.Pos
}

func (l Layout) String() string {
	return fmt.Sprintf("code [0,%d) data [%d,%d) pool [%d,%d) temps [%d,%d)",
		l.CodeEnd, l.CodeEnd, l.DataEnd, l.PoolStart, l.TempStart, l.TempStart, l.Size)
}
