package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Kind is the static type of a value in generated code.
type Kind int

const (
	KindFloat Kind = iota
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IRType maps k onto its LLVM type: double, i1 or i8*.
func (k Kind) IRType() types.Type {
	switch k {
	case KindBool:
		return types.I1
	case KindString:
		return types.I8Ptr
	}
	return types.Double
}

// kindOf maps a declared-type keyword onto a Kind.
func kindOf(tt TokenType) (Kind, bool) {
	switch tt {
	case FLOAT_TYPE:
		return KindFloat, true
	case BOOL_TYPE:
		return KindBool, true
	case STRING_TYPE:
		return KindString, true
	}
	return 0, false
}

type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	ScopeLocal
)

// Symbol is a declared variable: its type and where its value lives.
// Storage is an *ir.Global for globals and an alloca for locals.
type Symbol struct {
	Name    string
	Kind    Kind
	Storage value.Value
	Scope   ScopeType
	Line    int
}

// FuncSymbol is a declared function. Parameters and result are floats.
type FuncSymbol struct {
	Name  string
	Arity int
	Func  *ir.Func
	Line  int
}

// SymbolTable maps names to symbols through a stack of lexical scopes.
// The outermost scope holds globals; each block pushes a local scope.
type SymbolTable struct {
	globals map[string]Symbol
	funcs   map[string]FuncSymbol

	// Stack of local scopes, innermost last.
	locals []map[string]Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		globals: make(map[string]Symbol),
		funcs:   make(map[string]FuncSymbol),
	}
}

// EnterFunction hides the current local scopes and starts a fresh function
// scope. The returned value must be handed back to ExitFunction.
func (s *SymbolTable) EnterFunction() []map[string]Symbol {
	saved := s.locals
	s.locals = []map[string]Symbol{make(map[string]Symbol)}
	return saved
}

func (s *SymbolTable) ExitFunction(saved []map[string]Symbol) {
	s.locals = saved
}

func (s *SymbolTable) EnterScope() {
	s.locals = append(s.locals, make(map[string]Symbol))
}

func (s *SymbolTable) ExitScope() {
	if len(s.locals) > 0 {
		s.locals = s.locals[:len(s.locals)-1]
	}
}

// InGlobalScope reports whether declarations currently land in the globals.
func (s *SymbolTable) InGlobalScope() bool {
	return len(s.locals) == 0
}

// Declare adds sym to the innermost scope. It returns the existing symbol and
// false when the name is already taken in that scope.
func (s *SymbolTable) Declare(sym Symbol) (Symbol, bool) {
	if len(s.locals) > 0 {
		scope := s.locals[len(s.locals)-1]
		if prev, ok := scope[sym.Name]; ok {
			return prev, false
		}
		sym.Scope = ScopeLocal
		scope[sym.Name] = sym
		return sym, true
	}
	if prev, ok := s.globals[sym.Name]; ok {
		return prev, false
	}
	sym.Scope = ScopeGlobal
	s.globals[sym.Name] = sym
	return sym, true
}

// LookupCurrent resolves name in the innermost scope only.
func (s *SymbolTable) LookupCurrent(name string) (Symbol, bool) {
	if len(s.locals) > 0 {
		sym, ok := s.locals[len(s.locals)-1][name]
		return sym, ok
	}
	sym, ok := s.globals[name]
	return sym, ok
}

// Lookup resolves name from the innermost scope outwards.
func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if sym, ok := s.locals[i][name]; ok {
			return sym, true
		}
	}
	sym, ok := s.globals[name]
	return sym, ok
}

// DeclareFunc registers a function. It fails when the name is taken by
// another function or a global.
func (s *SymbolTable) DeclareFunc(fn FuncSymbol) bool {
	if _, ok := s.funcs[fn.Name]; ok {
		return false
	}
	if _, ok := s.globals[fn.Name]; ok {
		return false
	}
	s.funcs[fn.Name] = fn
	return true
}

func (s *SymbolTable) LookupFunc(name string) (FuncSymbol, bool) {
	fn, ok := s.funcs[name]
	return fn, ok
}

// String renders globals and functions in name order.
func (s *SymbolTable) String() string {
	var b strings.Builder

	names := make([]string, 0, len(s.globals))
	for name := range s.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("Globals:\n")
	for _, name := range names {
		sym := s.globals[name]
		fmt.Fprintf(&b, "  %-16s %-7s line %d\n", name, sym.Kind, sym.Line)
	}

	names = names[:0]
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("Functions:\n")
	for _, name := range names {
		fn := s.funcs[name]
		fmt.Fprintf(&b, "  %-16s arity %-3d line %d\n", name, fn.Arity, fn.Line)
	}
	return b.String()
}
