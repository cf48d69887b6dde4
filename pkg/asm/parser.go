package asm

import (
	"strings"

	"gosubleq/pkg/word"
)

// Parser turns the token stream into items, one source line at a time.
//
// Grammar:
//
//	program   = { line } EOF
//	line      = { IDENT ":" } [ constant | directive | instr ] NEWLINE
//	constant  = ("equ" | "def") expr          (name is the last label)
//	          | IDENT ("equ" | "def") expr
//	directive = ("db"|"dw"|"dd"|"dq") value { "," value }
//	          | ("resb"|"resw"|"resd"|"resq") expr
//	instr     = IDENT [ operand { "," operand } ]
//	operand   = "[" expr "]" | expr
//	value     = STRING | expr
//	expr      = xor { "|" xor }
//	xor       = and { "^" and }
//	and       = shift { "&" shift }
//	shift     = additive { ("<<" | ">>") additive }
//	additive  = term { ("+" | "-") term }
//	term      = unary { ("*" | "/" | "%") unary }
//	unary     = ("-" | "~" | "+") unary | primary
//	primary   = NUMBER | CHAR | IDENT | "$" | "$t" | "$e" | "$r" | "(" expr ")"
type Parser struct {
	tokens  []Token
	pos     int
	pending []Label
	prog    *Program
}

var dataWidths = map[string]word.Width{
	"db": word.W8, "dw": word.W16, "dd": word.W32, "dq": word.W64,
}

var reserveWidths = map[string]word.Width{
	"resb": word.W8, "resw": word.W16, "resd": word.W32, "resq": word.W64,
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens, prog: &Program{}}
}

func (p *Parser) peek() Token {
	return p.peekAt(0)
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, errorf(tok.Pos, ErrSyntax, "expected %s, found %s", what, describe(tok))
	}
	return p.advance(), nil
}

func describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "end of line"
	case STRING:
		return "string literal"
	}
	return "'" + tok.Lexeme + "'"
}

func isConstantKeyword(tok Token) bool {
	if tok.Type != IDENT {
		return false
	}
	kw := strings.ToLower(tok.Lexeme)
	return kw == "equ" || kw == "def"
}

func atLineEnd(tok Token) bool {
	return tok.Type == NEWLINE || tok.Type == EOF
}

// Parse builds a Program from tokens produced by Lex.
func Parse(tokens []Token) (*Program, error) {
	return NewParser(tokens).Parse()
}

func (p *Parser) Parse() (*Program, error) {
	for p.peek().Type != EOF {
		if err := p.parseLine(); err != nil {
			return nil, err
		}
	}
	p.prog.Trailing = p.pending
	p.pending = nil
	return p.prog, nil
}

func (p *Parser) parseLine() error {
	// Labels: IDENT ':' pairs.
	for p.peek().Type == IDENT && p.peekAt(1).Type == COLON {
		tok := p.advance()
		p.advance()
		p.pending = append(p.pending, Label{Name: tok.Lexeme, Pos: tok.Pos})
	}

	tok := p.peek()
	switch {
	case atLineEnd(tok):
		return p.endLine()

	case isConstantKeyword(tok):
		if len(p.pending) == 0 {
			return errorf(tok.Pos, ErrSyntax, "%s needs a name", strings.ToLower(tok.Lexeme))
		}
		name := p.pending[len(p.pending)-1]
		p.pending = p.pending[:len(p.pending)-1]
		p.advance()
		return p.parseConstant(name)

	case tok.Type == IDENT && isConstantKeyword(p.peekAt(1)):
		p.advance()
		p.advance()
		return p.parseConstant(Label{Name: tok.Lexeme, Pos: tok.Pos})

	case tok.Type == IDENT:
		return p.parseStatement()
	}
	return errorf(tok.Pos, ErrSyntax, "expected label, directive or instruction, found %s", describe(tok))
}

func (p *Parser) endLine() error {
	tok := p.peek()
	if !atLineEnd(tok) {
		return errorf(tok.Pos, ErrSyntax, "unexpected %s after statement", describe(tok))
	}
	if tok.Type == NEWLINE {
		p.advance()
	}
	return nil
}

func (p *Parser) parseConstant(name Label) error {
	expr, err := p.parseExpression()
	if err != nil {
		return err
	}
	p.prog.Constants = append(p.prog.Constants, Constant{Name: name.Name, Expr: expr, Pos: name.Pos})
	return p.endLine()
}

func (p *Parser) addItem(it *Item) {
	it.Labels = p.pending
	p.pending = nil
	p.prog.Items = append(p.prog.Items, it)
}

func (p *Parser) parseStatement() error {
	tok := p.advance()
	op := strings.ToLower(tok.Lexeme)

	if w, ok := dataWidths[op]; ok {
		values, err := p.parseValues(w)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return errorf(tok.Pos, ErrSyntax, "%s needs at least one value", op)
		}
		p.addItem(&Item{Kind: ItemData, Pos: tok.Pos, Op: op, Width: w, Values: values})
		return p.endLine()
	}

	if w, ok := reserveWidths[op]; ok {
		if atLineEnd(p.peek()) {
			return errorf(tok.Pos, ErrSyntax, "%s needs a count", op)
		}
		count, err := p.parseExpression()
		if err != nil {
			return err
		}
		p.addItem(&Item{Kind: ItemReserve, Pos: tok.Pos, Op: op, Width: w, Count: count})
		return p.endLine()
	}

	if op == "subleq" {
		ops, err := p.parseOperands()
		if err != nil {
			return err
		}
		if len(ops) != 2 && len(ops) != 3 {
			return errorf(tok.Pos, ErrArity, "subleq expects 2 or 3 operands, got %d", len(ops))
		}
		p.addItem(&Item{Kind: ItemTriple, Pos: tok.Pos, Op: op, Operands: ops})
		return p.endLine()
	}

	if m, ok := lookupMacro(op); ok {
		ops, err := p.parseOperands()
		if err != nil {
			return err
		}
		if len(ops) != m.arity {
			return errorf(tok.Pos, ErrArity, "%s expects %d operand(s), got %d", m.name, m.arity, len(ops))
		}
		p.addItem(&Item{Kind: ItemMacro, Pos: tok.Pos, Op: m.name, Operands: ops})
		return p.endLine()
	}

	return errorf(tok.Pos, ErrSyntax, "unknown opcode or directive %q", tok.Lexeme)
}

func (p *Parser) parseValues(w word.Width) ([]DataValue, error) {
	var values []DataValue
	for !atLineEnd(p.peek()) {
		if p.peek().Type == STRING {
			s := p.advance()
			for i := 0; i < len(s.Lexeme); i++ {
				values = append(values, DataValue{Expr: &Num{Value: int64(s.Lexeme[i])}, Width: word.W8})
			}
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			values = append(values, DataValue{Expr: expr, Width: w})
		}
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	return values, nil
}

func (p *Parser) parseOperands() ([]Operand, error) {
	var ops []Operand
	if atLineEnd(p.peek()) {
		return ops, nil
	}
	for {
		op, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if p.peek().Type != COMMA {
			return ops, nil
		}
		p.advance()
	}
}

func (p *Parser) parseOperand() (Operand, error) {
	tok := p.peek()
	if tok.Type == LBRACKET {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return Operand{}, err
		}
		if _, err := p.expect(RBRACKET, "']'"); err != nil {
			return Operand{}, err
		}
		return Operand{Kind: Memory, Expr: expr, Pos: tok.Pos}, nil
	}
	expr, err := p.parseExpression()
	if err != nil {
		return Operand{}, err
	}
	return Operand{Kind: Immediate, Expr: expr, Pos: tok.Pos}, nil
}

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseBinary(0)
}

// precedence levels, loosest first.
var binaryLevels = [][]TokenType{
	{PIPE},
	{CARET},
	{AMP},
	{SHL, SHR},
	{PLUS, MINUS},
	{STAR, SLASH, PERCENT},
}

func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().Type
		if !containsToken(binaryLevels[level], op) {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func containsToken(set []TokenType, tt TokenType) bool {
	for _, t := range set {
		if t == tt {
			return true
		}
	}
	return false
}

func (p *Parser) parseUnary() (Expr, error) {
	switch p.peek().Type {
	case MINUS, TILDE, PLUS:
		op := p.advance().Type
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negative literals so "-16" stays a plain number.
		if n, ok := x.(*Num); ok && op == MINUS {
			return &Num{Value: -n.Value}, nil
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER, CHAR:
		p.advance()
		return &Num{Value: tok.Value}, nil
	case IDENT:
		p.advance()
		return &Ref{Name: tok.Lexeme, Pos: tok.Pos}, nil
	case DOLLAR:
		p.advance()
		if tok.Lexeme == "$" {
			return &Here{}, nil
		}
		return &Ref{Name: tok.Lexeme, Pos: tok.Pos}, nil
	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, errorf(tok.Pos, ErrSyntax, "malformed operand: expected expression, found %s", describe(tok))
}
