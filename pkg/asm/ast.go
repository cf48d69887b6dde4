package asm

import (
	"fmt"
	"strings"

	"gosubleq/pkg/word"
)

//  Expression nodes

// Expr is a compile-time integer expression. Evaluation is pure, so the same
// tree can be evaluated again in a later pass.
type Expr interface {
	exprNode()
	String() string
}

// Num is an integer literal.
type Num struct {
	Value int64
}

func (*Num) exprNode()        {}
func (n *Num) String() string { return fmt.Sprintf("%d", n.Value) }

// Ref names a label, a constant or a temp field ($t, $e, $r).
type Ref struct {
	Name string
	Pos  Pos
}

func (*Ref) exprNode()        {}
func (r *Ref) String() string { return r.Name }

// Here is the location counter $: the address right after the item that
// contains it.
type Here struct{}

func (*Here) exprNode()      {}
func (*Here) String() string { return "$" }

// Unary is -X, ~X or +X.
type Unary struct {
	Op TokenType
	X  Expr
}

func (*Unary) exprNode() {}
func (u *Unary) String() string {
	return fmt.Sprintf("(%s%s)", opSymbol(u.Op), u.X)
}

// Binary is Left Op Right.
type Binary struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*Binary) exprNode() {}
func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, opSymbol(b.Op), b.Right)
}

func opSymbol(tt TokenType) string {
	switch tt {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case AMP:
		return "&"
	case PIPE:
		return "|"
	case CARET:
		return "^"
	case TILDE:
		return "~"
	case SHL:
		return "<<"
	case SHR:
		return ">>"
	}
	return tt.String()
}

//  Operands

// OperandKind separates a compile-time value from a memory reference.
type OperandKind int

const (
	// Immediate is a bare expression. As an A or B operand it becomes a
	// virtual literal; as a branch target it is the target address itself.
	Immediate OperandKind = iota
	// Memory is [expr], the cell at address expr.
	Memory
)

// Operand is one argument of a triple or macro.
type Operand struct {
	Kind OperandKind
	Expr Expr
	Pos  Pos
}

func (o Operand) String() string {
	if o.Kind == Memory {
		return "[" + o.Expr.String() + "]"
	}
	return o.Expr.String()
}

//  Items

// ItemKind tells the layout resolver how an item occupies memory.
type ItemKind int

const (
	ItemTriple  ItemKind = iota // subleq a, b, c
	ItemMacro                   // pseudo-instruction, expanded in pass 2
	ItemData                    // db/dw/dd/dq
	ItemReserve                 // resb/resw/resd/resq
)

func (k ItemKind) String() string {
	switch k {
	case ItemTriple:
		return "triple"
	case ItemMacro:
		return "macro"
	case ItemData:
		return "data"
	case ItemReserve:
		return "reserve"
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// Item is one source line that occupies memory.
type Item struct {
	Kind   ItemKind
	Pos    Pos
	Labels []Label // labels bound to this item's address

	Op       string    // "subleq", macro opcode or directive name
	Operands []Operand // triple or macro operands

	Width  word.Width  // directive width
	Values []DataValue // db/dw/dd/dq values; strings arrive expanded per byte
	Count  Expr        // resX count

	// Filled by the layout resolver.
	Addr  int64
	Size  int64
	lower []triple
}

// IsCode reports whether the item is placed in the code region.
func (it *Item) IsCode() bool {
	return it.Kind == ItemTriple || it.Kind == ItemMacro
}

func (it *Item) String() string {
	var sb strings.Builder
	for _, l := range it.Labels {
		sb.WriteString(l.Name)
		sb.WriteString(": ")
	}
	sb.WriteString(it.Op)
	switch it.Kind {
	case ItemTriple, ItemMacro:
		for i, o := range it.Operands {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(o.String())
		}
	case ItemData:
		for i, v := range it.Values {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(v.Expr.String())
		}
	case ItemReserve:
		sb.WriteString(" ")
		sb.WriteString(it.Count.String())
	}
	return sb.String()
}

// Label is a name bound to the address of the item that follows it.
type Label struct {
	Name string
	Pos  Pos
}

// DataValue is one initialised cell. Width is the directive width, or 8 for
// bytes that came from a string literal.
type DataValue struct {
	Expr  Expr
	Width word.Width
}

// Constant is an equ/def binding collected by the parser.
type Constant struct {
	Name string
	Expr Expr
	Pos  Pos
}

// Program is the parser's output: items in source order, constants, and
// labels that trail the last item.
type Program struct {
	Items     []*Item
	Constants []Constant
	Trailing  []Label
}
