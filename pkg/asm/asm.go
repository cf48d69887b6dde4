// Package asm is a two-pass macro-assembler for the SUBLEQ machine.
//
// Pass 1 lowers every macro to learn its size, lays out code, data, the
// virtual literal pool and the temp fields, and binds every label. Pass 2
// resolves operands and writes the image. Any error aborts the compilation
// and no image is produced.
package asm

import (
	"errors"
	"log/slog"

	"gosubleq/pkg/image"
	"gosubleq/pkg/word"
)

// Options controls a compilation.
type Options struct {
	Width      word.Width
	ImageLimit int64 // maximum number of cells; 0 means only the cell width limits
}

func DefaultOptions() Options {
	return Options{Width: word.Default, ImageLimit: 65536}
}

// Result is everything a successful compilation produces.
type Result struct {
	Image   *image.Image
	Symbols *SymbolTable
	Items   []*Item
	Triples []Triple
	Layout  Layout
}

// Assembler runs one compilation. It owns its symbol table and is not
// reusable.
type Assembler struct {
	opts   Options
	syms   *SymbolTable
	prog   *Program
	layout Layout
	used   bool
}

func NewAssembler(opts Options) *Assembler {
	if opts.Width == 0 {
		opts.Width = word.Default
	}
	return &Assembler{opts: opts, syms: NewSymbolTable()}
}

// Assemble compiles src with opts.
func Assemble(src string, opts Options) (*Result, error) {
	return NewAssembler(opts).Assemble(src)
}

func (a *Assembler) Assemble(src string) (*Result, error) {
	if a.used {
		return nil, errors.New("asm: Assembler is single use")
	}
	a.used = true

	if !a.opts.Width.Valid() {
		return nil, errorf(Pos{}, ErrSemantic, "unsupported cell width %d", uint8(a.opts.Width))
	}

	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	prog, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	a.prog = prog
	slog.Debug("parsed", "tokens", len(tokens), "items", len(prog.Items), "constants", len(prog.Constants))

	if err := a.defineSymbols(); err != nil {
		return nil, err
	}
	if err := a.resolveLayout(); err != nil {
		return nil, err
	}
	img, triples, err := a.expand()
	if err != nil {
		return nil, err
	}

	return &Result{
		Image:   img,
		Symbols: a.syms,
		Items:   prog.Items,
		Triples: triples,
		Layout:  a.layout,
	}, nil
}
