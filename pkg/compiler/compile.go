package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// Options tunes a single compilation.
type Options struct {
	// SourceFile is recorded as the module's source_filename.
	SourceFile string
	// ModuleName stands in for SourceFile when the source has no file.
	ModuleName string
	// TargetTriple is recorded in the module when set.
	TargetTriple string
	// AllErrors reports every syntax error instead of stopping at the first.
	AllErrors bool
}

// Result carries every intermediate product of a compilation so drivers can
// dump them.
type Result struct {
	Tokens      []Token
	Stmts       []Stmt
	Symbols     *SymbolTable
	Module      *ir.Module
	Diagnostics []Diagnostic
}

// Compile runs the whole pipeline: Lex → Parse → Generate. On failure the
// returned Result holds whatever stages completed.
func Compile(src string, opts Options) (*Result, error) {
	res := &Result{Symbols: NewSymbolTable()}

	lx := NewLexer(src)
	tokens, err := lx.Scan()
	res.Tokens = tokens
	res.Diagnostics = lx.Diagnostics()
	if err != nil {
		return res, fmt.Errorf("lex error: %w", err)
	}

	parse := Parse
	if opts.AllErrors {
		parse = ParseAll
	}
	stmts, err := parse(tokens, src)
	res.Stmts = stmts
	if err != nil {
		return res, fmt.Errorf("parse error: %w", err)
	}

	m, err := Generate(stmts, res.Symbols)
	if err != nil {
		return res, err
	}
	m.SourceFilename = opts.SourceFile
	if m.SourceFilename == "" {
		m.SourceFilename = opts.ModuleName
	}
	m.TargetTriple = opts.TargetTriple
	res.Module = m
	return res, nil
}
