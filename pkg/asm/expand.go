package asm

import (
	"fmt"
	"log/slog"

	"gosubleq/pkg/image"
	"gosubleq/pkg/word"
)

// Triple is one emitted primitive instruction with its resolved operands.
type Triple struct {
	Addr    int64
	A, B, C int64
	Line    int
	Source  string // the item this triple was expanded from
}

func (t Triple) String() string {
	return fmt.Sprintf("%6d: subleq %d, %d, %d", t.Addr, t.A, t.B, t.C)
}

// expand is pass 2. Every address is known, so it resolves operands, writes
// the triples, the data cells and the literal pool into a fresh image.
func (a *Assembler) expand() (*image.Image, []Triple, error) {
	img := image.New(int(a.layout.Size), a.opts.Width)
	img.CodeEnd = a.layout.CodeEnd
	img.DataEnd = a.layout.DataEnd
	img.PoolStart = a.layout.PoolStart
	img.TempStart = a.layout.TempStart

	var triples []Triple
	for _, it := range a.prog.Items {
		if !it.IsCode() {
			continue
		}
		img.Text[it.Addr] = it.String()
		for j, tr := range it.lower {
			t, err := a.emitTriple(it, j, tr)
			if err != nil {
				return nil, nil, err
			}
			img.Cells[t.Addr] = t.A
			img.Cells[t.Addr+1] = t.B
			img.Cells[t.Addr+2] = t.C
			for k := int64(0); k < 3; k++ {
				img.Lines[t.Addr+k] = it.Pos.Line
			}
			triples = append(triples, t)
		}
	}

	for _, it := range a.prog.Items {
		switch it.Kind {
		case ItemData:
			img.Text[it.Addr] = it.String()
			e := &env{syms: a.syms, width: a.opts.Width, here: it.Addr + it.Size, hasHere: true}
			for i, dv := range it.Values {
				v, err := e.eval(dv.Expr)
				if err != nil {
					return nil, nil, at(it.Pos, err)
				}
				addr := it.Addr + int64(i)
				img.Cells[addr] = storeValue(v, dv.Width, a.opts.Width)
				img.Lines[addr] = it.Pos.Line
			}
		case ItemReserve:
			img.Text[it.Addr] = it.String()
			for i := int64(0); i < it.Size; i++ {
				img.Lines[it.Addr+i] = it.Pos.Line
			}
		}
	}

	for _, lit := range a.syms.pool {
		img.Cells[lit.Addr] = lit.Value
	}

	slog.Debug("expansion done", "triples", len(triples), "cells", img.Len())
	return img, triples, nil
}

func (a *Assembler) emitTriple(it *Item, j int, tr triple) (Triple, error) {
	e := a.tripleEnv(it, j)
	t := Triple{Addr: it.Addr + 3*int64(j), Line: it.Pos.Line, Source: it.String()}

	var err error
	if t.A, err = a.operandAddr(e, tr.A, it); err != nil {
		return t, err
	}
	if t.B, err = a.operandAddr(e, tr.B, it); err != nil {
		return t, err
	}
	// A branch target denotes its value whether written bare or in brackets.
	if t.C, err = e.eval(tr.C.Expr); err != nil {
		return t, at(operandPos(tr.C, it), err)
	}
	return t, nil
}

// operandAddr resolves an A or B operand to the address the machine reads.
func (a *Assembler) operandAddr(e *env, op Operand, it *Item) (int64, error) {
	v, err := e.eval(op.Expr)
	if err != nil {
		return 0, at(operandPos(op, it), err)
	}
	if op.Kind == Memory {
		return v, nil
	}
	lit, ok := a.syms.Literal(v)
	if !ok {
		return 0, at(operandPos(op, it), fmt.Errorf("%w: value %d", errPoolFrozen, v))
	}
	return lit.Addr, nil
}

// storeValue narrows a data value to its directive width, then to the cell.
func storeValue(v int64, directive, cell word.Width) int64 {
	return cell.Wrap(word.Narrow(directive, cell).Wrap(v))
}
