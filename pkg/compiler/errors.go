package compiler

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by GenError. Match them with errors.Is.
var (
	ErrUndefined    = errors.New("undefined name")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrUnsupported  = errors.New("unsupported construct")
	ErrRedeclared   = errors.New("already declared")
	ErrMisplaced    = errors.New("misplaced statement")
	ErrInternal     = errors.New("internal compiler error")
)

// LexError is the fatal scanning error: a byte that starts no token.
type LexError struct {
	Line int
	Char byte
	Msg  string
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: unexpected character %q", e.Line, e.Char)
}

// ParseError describes a syntax error at a single token.
type ParseError struct {
	Line    int
	Lexeme  string
	Message string
	Snippet string // trimmed source line, if available

	synced bool
}

func (e *ParseError) Error() string {
	where := "at end"
	if e.Lexeme != "" {
		where = fmt.Sprintf("at '%s'", e.Lexeme)
	}
	msg := fmt.Sprintf("line %d %s: %s", e.Line, where, e.Message)
	if e.Snippet != "" {
		msg += "\n  |> " + e.Snippet
	}
	return msg
}

// GenError is returned by the code generator. Kind is one of the sentinel
// errors above.
type GenError struct {
	Line    int
	Kind    error
	Message string
}

func (e *GenError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("codegen: line %d: %s: %s", e.Line, e.Kind, e.Message)
	}
	return fmt.Sprintf("codegen: %s: %s", e.Kind, e.Message)
}

func (e *GenError) Unwrap() error { return e.Kind }

func genErrorf(line int, kind error, format string, args ...any) error {
	return &GenError{Line: line, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
