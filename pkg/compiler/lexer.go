package compiler

import (
	"strconv"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"and":      AND,
	"class":    CLASS,
	"else":     ELSE,
	"false":    FALSE,
	"for":      FOR,
	"fun":      FUN,
	"if":       IF,
	"nil":      NIL,
	"or":       OR,
	"print":    PRINT,
	"return":   RETURN,
	"super":    SUPER,
	"this":     THIS,
	"true":     TRUE,
	"float":    FLOAT_TYPE,
	"string":   STRING_TYPE,
	"bool":     BOOL_TYPE,
	"while":    WHILE,
	"break":    BREAK,
	"continue": CONTINUE,
}

// Diagnostic is a non-fatal problem found while scanning.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return strconv.Itoa(d.Line) + " " + d.Message
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src     string
	start   int // first byte of the lexeme being scanned
	current int // index of the next byte to consume
	line    int // current 1-based source line

	tokens      []Token
	diagnostics []Diagnostic
}

// NewLexer returns a Lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.src)
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.current]
}

// peekNext returns the byte one position ahead of the current position.
func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.src) {
		return 0
	}
	return l.src[l.current+1]
}

func (l *Lexer) advance() byte {
	c := l.src[l.current]
	l.current++
	return c
}

// match consumes the next byte only when it equals want.
func (l *Lexer) match(want byte) bool {
	if l.atEnd() || l.src[l.current] != want {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) add(tt TokenType, literal any) {
	l.tokens = append(l.tokens, Token{
		Type:    tt,
		Lexeme:  l.src[l.start:l.current],
		Literal: literal,
		Line:    l.line,
	})
}

// pick adds ifMatch when the next byte is want, otherwise otherwise.
func (l *Lexer) pick(want byte, ifMatch, otherwise TokenType) {
	if l.match(want) {
		l.add(ifMatch, nil)
		return
	}
	l.add(otherwise, nil)
}

func (l *Lexer) scanToken() error {
	c := l.advance()
	switch c {
	case '(':
		l.add(LEFT_PAREN, nil)
	case ')':
		l.add(RIGHT_PAREN, nil)
	case '{':
		l.add(LEFT_BRACE, nil)
	case '}':
		l.add(RIGHT_BRACE, nil)
	case ',':
		l.add(COMMA, nil)
	case '.':
		l.add(DOT, nil)
	case '-':
		l.add(MINUS, nil)
	case '+':
		l.add(PLUS, nil)
	case ';':
		l.add(SEMICOLON, nil)
	case '*':
		l.add(STAR, nil)
	case '%':
		l.add(PERCENT, nil)
	case '!':
		l.pick('=', BANG_EQUAL, BANG)
	case '=':
		l.pick('=', EQUAL_EQUAL, EQUAL)
	case '<':
		l.pick('=', LESS_EQUAL, LESS)
	case '>':
		l.pick('=', GREATER_EQUAL, GREATER)
	case '/':
		if l.match('/') {
			for !l.atEnd() && l.peek() != '\n' {
				l.current++
			}
			return nil
		}
		l.add(SLASH, nil)
	case ' ', '\r', '\t':
	case '\n':
		l.line++
	case '"':
		l.scanString()
	default:
		switch {
		case isDigit(c):
			return l.scanNumber()
		case isAlpha(c):
			l.scanIdent()
		default:
			return &LexError{Line: l.line, Char: c}
		}
	}
	return nil
}

// scanString consumes a string literal. The opening quote has been consumed.
// An unterminated string is reported as a diagnostic and produces no token.
func (l *Lexer) scanString() {
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.current++
	}
	if l.atEnd() {
		l.diagnostics = append(l.diagnostics, Diagnostic{Line: l.line, Message: "Unterminated String"})
		return
	}
	l.current++ // closing "
	l.add(STRING, l.src[l.start+1:l.current-1])
}

func (l *Lexer) scanNumber() error {
	for isDigit(l.peek()) {
		l.current++
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.current++
		for isDigit(l.peek()) {
			l.current++
		}
	}
	v, err := strconv.ParseFloat(l.src[l.start:l.current], 64)
	if err != nil {
		return &LexError{Line: l.line, Char: l.src[l.start], Msg: err.Error()}
	}
	l.add(NUMBER, v)
	return nil
}

func (l *Lexer) scanIdent() {
	for isAlphaNumeric(l.peek()) {
		l.current++
	}
	lexeme := l.src[l.start:l.current]
	if kw, ok := keywords[lexeme]; ok {
		l.add(kw, nil)
		return
	}
	l.add(IDENTIFIER, lexeme)
}

// Scan tokenizes the whole source. The returned slice always ends with EOF
// unless a fatal error stops the scan.
func (l *Lexer) Scan() ([]Token, error) {
	for !l.atEnd() {
		l.start = l.current
		if err := l.scanToken(); err != nil {
			return l.tokens, err
		}
	}
	l.tokens = append(l.tokens, Token{Type: EOF, Line: l.line})
	return l.tokens, nil
}

// Diagnostics returns the non-fatal problems seen so far.
func (l *Lexer) Diagnostics() []Diagnostic {
	return l.diagnostics
}

// Lex tokenizes src, discarding diagnostics.
func Lex(src string) ([]Token, error) {
	return NewLexer(src).Scan()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isAlphaNumeric(c byte) bool { return isAlpha(c) || isDigit(c) }
