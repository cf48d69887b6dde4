package asm

import (
	"fmt"

	"gosubleq/pkg/word"
)

// env is the context an expression is evaluated in. here is the value of $
// in a user operand; next is the address right after the triple being
// emitted, used by expansion-local $.
type env struct {
	syms  *SymbolTable
	width word.Width

	here    int64
	hasHere bool
	next    int64
	hasNext bool
}

// Evaluate computes x against syms with every result wrapped to width.
// $ is not available.
func Evaluate(x Expr, syms *SymbolTable, width word.Width) (int64, error) {
	e := env{syms: syms, width: width}
	return e.eval(x)
}

func (e *env) eval(x Expr) (int64, error) {
	switch n := x.(type) {
	case *Num:
		return e.width.Wrap(n.Value), nil

	case *Ref:
		return e.resolve(n)

	case *Here:
		if !e.hasHere {
			return 0, fmt.Errorf("%w: $ is only meaningful inside an instruction operand", ErrEvaluation)
		}
		return e.width.Wrap(e.here), nil

	case *nextTriple:
		if !e.hasNext {
			return 0, fmt.Errorf("%w: expansion-local $ outside an expansion", ErrEvaluation)
		}
		return e.width.Wrap(e.next + 3*int64(n.Skip)), nil

	case *Unary:
		v, err := e.eval(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case MINUS:
			return e.width.Wrap(-v), nil
		case TILDE:
			return e.width.Wrap(^v), nil
		case PLUS:
			return v, nil
		}
		return 0, fmt.Errorf("%w: unknown unary operator %s", ErrEvaluation, n.Op)

	case *Binary:
		l, err := e.eval(n.Left)
		if err != nil {
			return 0, err
		}
		r, err := e.eval(n.Right)
		if err != nil {
			return 0, err
		}
		return e.binary(n.Op, l, r)
	}
	return 0, fmt.Errorf("%w: unknown expression %T", ErrEvaluation, x)
}

func (e *env) binary(op TokenType, l, r int64) (int64, error) {
	var v int64
	switch op {
	case PLUS:
		v = l + r
	case MINUS:
		v = l - r
	case STAR:
		v = l * r
	case SLASH:
		if r == 0 {
			return 0, fmt.Errorf("%w: %d / 0", ErrDivisionByZero, l)
		}
		v = l / r
	case PERCENT:
		if r == 0 {
			return 0, fmt.Errorf("%w: %d %% 0", ErrDivisionByZero, l)
		}
		v = l % r
	case AMP:
		v = l & r
	case PIPE:
		v = l | r
	case CARET:
		v = l ^ r
	case SHL, SHR:
		if r < 0 || r >= 64 {
			return 0, fmt.Errorf("%w: shift count %d out of range", ErrEvaluation, r)
		}
		if op == SHL {
			v = l << uint(r)
		} else {
			v = l >> uint(r)
		}
	default:
		return 0, fmt.Errorf("%w: unknown binary operator %s", ErrEvaluation, op)
	}
	return e.width.Wrap(v), nil
}

// resolve returns the value of a name. Constants are evaluated once and
// cached; a constant that refers back to itself is a cycle.
func (e *env) resolve(ref *Ref) (int64, error) {
	sym, ok := e.syms.Lookup(ref.Name)
	if !ok {
		return 0, errorf(ref.Pos, ErrUndefinedSymbol, "%q is not defined", ref.Name)
	}
	if sym.Resolved {
		return e.width.Wrap(sym.Value), nil
	}
	if sym.Kind != KindConstant {
		return 0, errorf(ref.Pos, ErrEvaluation, "address of %q is not known yet", ref.Name)
	}
	if sym.evaluating {
		return 0, errorf(ref.Pos, ErrEvaluation, "constant %q is defined in terms of itself", ref.Name)
	}

	sym.evaluating = true
	defer func() { sym.evaluating = false }()

	inner := env{syms: e.syms, width: e.width}
	v, err := inner.eval(sym.Expr)
	if err != nil {
		return 0, at(sym.Pos, err)
	}
	sym.Value = v
	sym.Resolved = true
	return v, nil
}
