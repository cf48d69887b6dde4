package asm

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Temp fields placed after the literal pool.
const (
	TempT = "$t"
	TempE = "$e"
	TempR = "$r"
)

var tempNames = []string{TempT, TempE, TempR}

func isTempName(name string) bool {
	for _, t := range tempNames {
		if name == t {
			return true
		}
	}
	return false
}

type SymbolKind int

const (
	KindLabel SymbolKind = iota
	KindConstant
	KindLiteral
	KindTemp
)

func (k SymbolKind) String() string {
	switch k {
	case KindLabel:
		return "label"
	case KindConstant:
		return "constant"
	case KindLiteral:
		return "literal"
	case KindTemp:
		return "temp"
	}
	return fmt.Sprintf("SymbolKind(%d)", int(k))
}

// Symbol is a named value. Labels and temps get their Value from the layout
// resolver; constants are evaluated from Expr on first use.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Value    int64
	Resolved bool
	Expr     Expr // constants only
	Pos      Pos

	defined    bool
	evaluating bool
	refs       []Pos
}

// LiteralSlot is one virtual literal: a pool cell holding Value at Addr.
type LiteralSlot struct {
	Value int64
	Addr  int64
}

// SymbolTable owns every name of one compilation and the literal pool.
type SymbolTable struct {
	symbols map[string]*Symbol

	pool      []LiteralSlot
	poolIndex map[int64]int
	frozen    bool
}

func NewSymbolTable() *SymbolTable {
	s := &SymbolTable{
		symbols:   make(map[string]*Symbol),
		poolIndex: make(map[int64]int),
	}
	for _, name := range tempNames {
		s.symbols[name] = &Symbol{Name: name, Kind: KindTemp, defined: true}
	}
	return s
}

// Define introduces name. A second definition of the same name fails, as
// does any attempt to redefine $ or a temp field.
func (s *SymbolTable) Define(name string, kind SymbolKind, expr Expr, pos Pos) (*Symbol, error) {
	if name == "$" || isTempName(name) {
		return nil, errorf(pos, ErrDuplicateSymbol, "%s is reserved", name)
	}
	sym, ok := s.symbols[name]
	if ok && sym.defined {
		return nil, errorf(pos, ErrDuplicateSymbol, "%q already defined at %s", name, sym.Pos)
	}
	if !ok {
		sym = &Symbol{Name: name}
		s.symbols[name] = sym
	}
	sym.Kind = kind
	sym.Expr = expr
	sym.Pos = pos
	sym.defined = true
	return sym, nil
}

// Reference records a use of name and returns its symbol, creating an
// undefined placeholder if the name has not been seen yet.
func (s *SymbolTable) Reference(name string, pos Pos) *Symbol {
	sym, ok := s.symbols[name]
	if !ok {
		sym = &Symbol{Name: name}
		s.symbols[name] = sym
	}
	sym.refs = append(sym.refs, pos)
	return sym
}

// Lookup returns a defined symbol.
func (s *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	if !ok || !sym.defined {
		return nil, false
	}
	return sym, true
}

func (s *SymbolTable) bind(name string, value int64) {
	sym := s.symbols[name]
	sym.Value = value
	sym.Resolved = true
}

// checkUndefined reports the earliest reference to a name that was never
// defined.
func (s *SymbolTable) checkUndefined() error {
	var first *Symbol
	var firstPos Pos
	for _, sym := range s.symbols {
		if sym.defined {
			continue
		}
		for _, p := range sym.refs {
			if first == nil || posBefore(p, firstPos) || (p == firstPos && sym.Name < first.Name) {
				first, firstPos = sym, p
			}
		}
	}
	if first != nil {
		return errorf(firstPos, ErrUndefinedSymbol, "%q is not defined", first.Name)
	}
	return nil
}

func posBefore(a, b Pos) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Col < b.Col
}

// forgetConstants drops cached constant values so they are evaluated again
// against new label or temp addresses.
func (s *SymbolTable) forgetConstants() {
	for _, sym := range s.symbols {
		if sym.Kind == KindConstant {
			sym.Resolved = false
		}
	}
}

// setTemps places $t, $e and $r at base, base+1 and base+2.
func (s *SymbolTable) setTemps(base int64) {
	for i, name := range tempNames {
		s.bind(name, base+int64(i))
	}
}

//  Literal pool

// InternLiteral returns the pool slot holding v, adding it on first use.
// Once the pool is frozen an unseen value is an error: the image size is
// already fixed.
func (s *SymbolTable) InternLiteral(v int64) (LiteralSlot, error) {
	if i, ok := s.poolIndex[v]; ok {
		return s.pool[i], nil
	}
	if s.frozen {
		return LiteralSlot{}, fmt.Errorf("%w: value %d", errPoolFrozen, v)
	}
	s.poolIndex[v] = len(s.pool)
	s.pool = append(s.pool, LiteralSlot{Value: v, Addr: -1})
	return s.pool[len(s.pool)-1], nil
}

// Literal looks up the slot holding v.
func (s *SymbolTable) Literal(v int64) (LiteralSlot, bool) {
	i, ok := s.poolIndex[v]
	if !ok {
		return LiteralSlot{}, false
	}
	return s.pool[i], true
}

// Literals returns the pool in address order.
func (s *SymbolTable) Literals() []LiteralSlot {
	out := make([]LiteralSlot, len(s.pool))
	copy(out, s.pool)
	return out
}

func (s *SymbolTable) resetPool() {
	s.pool = s.pool[:0]
	s.poolIndex = make(map[int64]int)
	s.frozen = false
}

// freezePool assigns consecutive addresses from base in first-request order.
func (s *SymbolTable) freezePool(base int64) {
	for i := range s.pool {
		s.pool[i].Addr = base + int64(i)
	}
	s.frozen = true
}

//  Dumps

// Symbols returns the defined symbols sorted by name.
func (s *SymbolTable) Symbols() []*Symbol {
	names := make([]string, 0, len(s.symbols))
	for name, sym := range s.symbols {
		if sym.defined {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]*Symbol, len(names))
	for i, name := range names {
		out[i] = s.symbols[name]
	}
	return out
}

func (s *SymbolTable) String() string {
	var sb strings.Builder
	sb.WriteString("Symbols:\n")
	for _, sym := range s.Symbols() {
		if sym.Resolved {
			fmt.Fprintf(&sb, "  %-20s %-9s %d\n", sym.Name, sym.Kind, sym.Value)
		} else {
			fmt.Fprintf(&sb, "  %-20s %-9s ?\n", sym.Name, sym.Kind)
		}
	}
	if len(s.pool) > 0 {
		sb.WriteString("Literals:\n")
		for _, lit := range s.pool {
			fmt.Fprintf(&sb, "  @%-19d %-9s %d\n", lit.Addr, KindLiteral, lit.Value)
		}
	}
	return sb.String()
}

// Table renders symbols and pool entries as one table.
func (s *SymbolTable) Table(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Symbols")
	t.AppendHeader(table.Row{"Name", "Kind", "Value", "Defined at"})
	for _, sym := range s.Symbols() {
		value := "?"
		if sym.Resolved {
			value = fmt.Sprintf("%d", sym.Value)
		}
		where := ""
		if sym.Pos.Line > 0 {
			where = sym.Pos.String()
		}
		t.AppendRow(table.Row{sym.Name, sym.Kind, value, where})
	}
	if len(s.pool) > 0 {
		t.AppendSeparator()
		for _, lit := range s.pool {
			t.AppendRow(table.Row{fmt.Sprintf("@%d", lit.Addr), KindLiteral, lit.Value, ""})
		}
	}
	t.Render()
}
