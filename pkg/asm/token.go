package asm

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF     TokenType = iota // sentinel: end of input
	NEWLINE                  // end of a source line

	// Literals
	IDENT  // label, constant, opcode or directive name
	NUMBER // integer literal, Value holds the parsed number
	CHAR   // character literal, Value holds the code point
	STRING // string literal, Lexeme holds the unquoted text

	// Location counter and temp fields: $, $t, $e, $r
	DOLLAR

	// Punctuation
	COLON    // :
	COMMA    // ,
	LBRACKET // [
	RBRACKET // ]
	LPAREN   // (
	RPAREN   // )

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	AMP     // &
	PIPE    // |
	CARET   // ^
	TILDE   // ~
	SHL     // <<
	SHR     // >>
)

var tokenNames = [...]string{
	EOF:      "EOF",
	NEWLINE:  "NEWLINE",
	IDENT:    "IDENT",
	NUMBER:   "NUMBER",
	CHAR:     "CHAR",
	STRING:   "STRING",
	DOLLAR:   "DOLLAR",
	COLON:    "COLON",
	COMMA:    "COMMA",
	LBRACKET: "LBRACKET",
	RBRACKET: "RBRACKET",
	LPAREN:   "LPAREN",
	RPAREN:   "RPAREN",
	PLUS:     "PLUS",
	MINUS:    "MINUS",
	STAR:     "STAR",
	SLASH:    "SLASH",
	PERCENT:  "PERCENT",
	AMP:      "AMP",
	PIPE:     "PIPE",
	CARET:    "CARET",
	TILDE:    "TILDE",
	SHL:      "SHL",
	SHR:      "SHR",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // source text; unquoted contents for STRING
	Value  int64  // numeric value of NUMBER and CHAR tokens
	Pos
}

func (t Token) String() string {
	return fmt.Sprintf("%-8s %-14q  %s", t.Type, t.Lexeme, t.Pos)
}
