package asm

import (
	"errors"
	"fmt"
)

// Error categories. Every fatal assembler error wraps exactly one of these,
// so callers can classify failures with errors.Is.
var (
	ErrSyntax          = errors.New("syntax error")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrUndefinedSymbol = errors.New("undefined symbol")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrEvaluation      = errors.New("evaluation error")
	ErrSemantic        = errors.New("semantic error")
	ErrMemoryOverflow  = errors.New("memory overflow")

	ErrCompileTimeAddOnRuntimeValue = fmt.Errorf("%w: compile-time add on runtime value", ErrSemantic)
	ErrArity                        = fmt.Errorf("%w: wrong operand count", ErrSemantic)
	ErrWriteToLiteral               = fmt.Errorf("%w: write to virtual literal", ErrSemantic)
)

// errPoolFrozen means a literal was requested after layout fixed the pool.
// It can only surface through a bug in a macro lowering.
var errPoolFrozen = errors.New("literal pool is frozen")

// Pos is a 1-based source position. The zero Pos means "no position".
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Col == 0 {
		return fmt.Sprintf("line %d", p.Line)
	}
	return fmt.Sprintf("line %d:%d", p.Line, p.Col)
}

// Error is a positioned assembler error.
type Error struct {
	Pos
	Err error
	Msg string
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Line == 0 {
		return msg
	}
	return e.Pos.String() + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorf(pos Pos, kind error, format string, args ...any) error {
	return &Error{Pos: pos, Err: kind, Msg: fmt.Sprintf(format, args...)}
}

// at attaches pos to err unless it already carries a position.
func at(pos Pos, err error) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Line == 0 {
			e.Pos = pos
		}
		return e
	}
	return &Error{Pos: pos, Err: err}
}
