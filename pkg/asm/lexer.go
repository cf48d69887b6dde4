package asm

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // 1-based column of the next rune
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) here() Pos {
	return Pos{Line: l.line, Col: l.col}
}

// skipBlanks skips spaces and tabs but not newlines, which are tokens.
func (l *Lexer) skipBlanks() {
	for l.pos < len(l.src) {
		r := l.peek()
		if r == '\n' || !unicode.IsSpace(r) {
			return
		}
		l.advance()
	}
}

// skipLineComment discards everything up to (not including) the newline.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '.'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (l *Lexer) scanIdent() Token {
	pos := l.here()
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	return Token{Type: IDENT, Lexeme: string(l.src[start:l.pos]), Pos: pos}
}

// scanDollar reads $, $t, $e or $r.
func (l *Lexer) scanDollar() (Token, error) {
	pos := l.here()
	l.advance() // $
	if !isIdentPart(l.peek()) {
		return Token{Type: DOLLAR, Lexeme: "$", Pos: pos}, nil
	}
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	name := "$" + string(l.src[start:l.pos])
	if !isTempName(name) {
		return Token{}, errorf(pos, ErrSyntax, "unknown temp field %q (want $t, $e or $r)", name)
	}
	return Token{Type: DOLLAR, Lexeme: name, Pos: pos}, nil
}

// scanNumber reads a decimal, 0x, 0o or 0b literal. A leading zero without a
// base prefix is still decimal.
func (l *Lexer) scanNumber() (Token, error) {
	pos := l.here()
	start := l.pos
	for l.pos < len(l.src) && (isIdentPart(l.peek())) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	digits := strings.ReplaceAll(lexeme, "_", "")

	base := 10
	lower := strings.ToLower(digits)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		base = 0
	}

	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		// Accept the full unsigned 64-bit range; the value wraps like any other.
		u, uerr := strconv.ParseUint(digits, base, 64)
		if uerr != nil {
			return Token{}, errorf(pos, ErrSyntax, "malformed number %q", lexeme)
		}
		v = int64(u)
	}
	return Token{Type: NUMBER, Lexeme: lexeme, Value: v, Pos: pos}, nil
}

// scanQuoted reads a quoted literal including its delimiters and returns the
// raw text. Quoted literals may not span lines.
func (l *Lexer) scanQuoted(quote rune) (string, error) {
	pos := l.here()
	start := l.pos
	l.advance() // opening quote
	for l.pos < len(l.src) {
		r := l.peek()
		if r == '\n' {
			break
		}
		if r == '\\' {
			l.advance()
			if l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		l.advance()
		if r == quote {
			return string(l.src[start:l.pos]), nil
		}
	}
	if quote == '"' {
		return "", errorf(pos, ErrSyntax, "unterminated string literal")
	}
	return "", errorf(pos, ErrSyntax, "unterminated character literal")
}

func (l *Lexer) scanString() (Token, error) {
	pos := l.here()
	raw, err := l.scanQuoted('"')
	if err != nil {
		return Token{}, err
	}
	s, err := strconv.Unquote(raw)
	if err != nil {
		return Token{}, errorf(pos, ErrSyntax, "malformed string literal %s", raw)
	}
	return Token{Type: STRING, Lexeme: s, Pos: pos}, nil
}

func (l *Lexer) scanChar() (Token, error) {
	pos := l.here()
	raw, err := l.scanQuoted('\'')
	if err != nil {
		return Token{}, err
	}
	s, err := strconv.Unquote(raw)
	if err != nil || utf8.RuneCountInString(s) != 1 {
		return Token{}, errorf(pos, ErrSyntax, "malformed character literal %s", raw)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return Token{Type: CHAR, Lexeme: raw, Value: int64(r), Pos: pos}, nil
}

// nextToken skips blanks and comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	for {
		l.skipBlanks()
		if l.peek() == ';' || (l.peek() == '/' && l.peek2() == '/') {
			l.skipLineComment()
			continue
		}
		break
	}

	pos := l.here()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: pos}, nil
	}

	ch := l.peek()
	switch {
	case ch == '\n':
		l.advance()
		return Token{Type: NEWLINE, Lexeme: "\n", Pos: pos}, nil
	case isIdentStart(ch):
		return l.scanIdent(), nil
	case unicode.IsDigit(ch):
		return l.scanNumber()
	case ch == '$':
		return l.scanDollar()
	case ch == '"':
		return l.scanString()
	case ch == '\'':
		return l.scanChar()
	}

	l.advance()
	single := func(tt TokenType) (Token, error) {
		return Token{Type: tt, Lexeme: string(ch), Pos: pos}, nil
	}
	switch ch {
	case ':':
		return single(COLON)
	case ',':
		return single(COMMA)
	case '[':
		return single(LBRACKET)
	case ']':
		return single(RBRACKET)
	case '(':
		return single(LPAREN)
	case ')':
		return single(RPAREN)
	case '+':
		return single(PLUS)
	case '-':
		return single(MINUS)
	case '*':
		return single(STAR)
	case '/':
		return single(SLASH)
	case '%':
		return single(PERCENT)
	case '&':
		return single(AMP)
	case '|':
		return single(PIPE)
	case '^':
		return single(CARET)
	case '~':
		return single(TILDE)
	case '<':
		if l.peek() == '<' {
			l.advance()
			return Token{Type: SHL, Lexeme: "<<", Pos: pos}, nil
		}
	case '>':
		if l.peek() == '>' {
			l.advance()
			return Token{Type: SHR, Lexeme: ">>", Pos: pos}, nil
		}
	}
	return Token{}, errorf(pos, ErrSyntax, "unexpected character %q", ch)
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It stops at the first illegal character or unterminated literal.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
