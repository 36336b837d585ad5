package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// LiteralKind tags the payload of a LiteralValue.
type LiteralKind int

const (
	LitNil LiteralKind = iota
	LitNumber
	LitString
	LitTrue
	LitFalse
)

// LiteralValue is a constant appearing in source. Values compare with ==.
type LiteralValue struct {
	Kind   LiteralKind
	Number float64
	Str    string
}

func NumberValue(x float64) LiteralValue { return LiteralValue{Kind: LitNumber, Number: x} }
func StringValue(s string) LiteralValue  { return LiteralValue{Kind: LitString, Str: s} }
func BoolValue(b bool) LiteralValue {
	if b {
		return LiteralValue{Kind: LitTrue}
	}
	return LiteralValue{Kind: LitFalse}
}

// Truthy reports whether v counts as true: only false and nil do not.
func (v LiteralValue) Truthy() bool {
	return v.Kind != LitFalse && v.Kind != LitNil
}

func (v LiteralValue) String() string {
	switch v.Kind {
	case LitNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case LitString:
		return v.Str
	case LitTrue:
		return "true"
	case LitFalse:
		return "false"
	default:
		return "nil"
	}
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
// String renders the node in parenthesized prefix form.
type Expr interface {
	exprNode()
	String() string
}

// Assign stores Value into the variable Name.
//
//	x = 1
//	^   ^  Assign{Name: x, Value: Literal{1}}
type Assign struct {
	Name  Token
	Value Expr
}

func (*Assign) exprNode() {}
func (a *Assign) String() string {
	return fmt.Sprintf("(= %s %s)", a.Name.Lexeme, a.Value)
}

// Call invokes Callee. Paren is the closing parenthesis, kept for its line.
type Call struct {
	Callee Expr
	Paren  Token
	Args   []Expr
}

func (*Call) exprNode() {}
func (c *Call) String() string {
	var b strings.Builder
	b.WriteString("(call ")
	b.WriteString(c.Callee.String())
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Binary represents Left Operator Right for arithmetic, comparison and
// equality operators.
type Binary struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (*Binary) exprNode() {}
func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Operator.Lexeme, b.Left, b.Right)
}

// Grouping is a parenthesized expression.
type Grouping struct {
	Inner Expr
}

func (*Grouping) exprNode()        {}
func (g *Grouping) String() string { return fmt.Sprintf("(group %s)", g.Inner) }

type Literal struct {
	Value LiteralValue
	Line  int
}

func (*Literal) exprNode()        {}
func (l *Literal) String() string { return l.Value.String() }

// Unary is a prefix operator: -x or !x.
type Unary struct {
	Operator Token
	Operand  Expr
}

func (*Unary) exprNode() {}
func (u *Unary) String() string {
	return fmt.Sprintf("(%s %s)", u.Operator.Lexeme, u.Operand)
}

// Variable is a read of a named variable or function.
type Variable struct {
	Name Token
}

func (*Variable) exprNode()        {}
func (v *Variable) String() string { return fmt.Sprintf("(var %s)", v.Name.Lexeme) }

// Logical is a short-circuiting "and" / "or".
type Logical struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (*Logical) exprNode() {}
func (l *Logical) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Operator.Lexeme, l.Left, l.Right)
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	String() string
}

// Expression evaluates Expr and discards the result.
type Expression struct {
	Expr Expr
}

func (*Expression) stmtNode()        {}
func (e *Expression) String() string { return fmt.Sprintf("ExprStmt(%s)", e.Expr) }

type Print struct {
	Expr Expr
}

func (*Print) stmtNode()        {}
func (p *Print) String() string { return fmt.Sprintf("Print(%s)", p.Expr) }

// Var declares Name with the declared type Type (FLOAT_TYPE, STRING_TYPE or
// BOOL_TYPE). Without an initializer in source, Initializer is Literal{nil}.
//
//	float x = 1;
//	^     ^   ^  Var{Type: FLOAT_TYPE, Name: x, Initializer: Literal{1}}
type Var struct {
	Name        Token
	Type        TokenType
	Initializer Expr
}

func (*Var) stmtNode() {}
func (v *Var) String() string {
	return fmt.Sprintf("Var(%s %s = %s)", typeName(v.Type), v.Name.Lexeme, v.Initializer)
}

type Block struct {
	Stmts []Stmt
}

func (*Block) stmtNode()        {}
func (b *Block) String() string { return fmt.Sprintf("Block(len=%d)", len(b.Stmts)) }

// IfElse is an if statement. Then and Else are *Block; Else is nil when
// there is no else branch.
type IfElse struct {
	Condition Expr
	Then      Stmt
	Else      Stmt
}

func (*IfElse) stmtNode() {}
func (s *IfElse) String() string {
	if s.Else != nil {
		return fmt.Sprintf("IfElse(%s, %s, %s)", s.Condition, s.Then, s.Else)
	}
	return fmt.Sprintf("IfElse(%s, %s)", s.Condition, s.Then)
}

// While loops over Body (a *Block) while Condition holds. Increment is set
// for loops desugared from "for": the last statement of Body is then the
// increment clause, and "continue" runs it before re-testing.
type While struct {
	Condition Expr
	Body      Stmt
	Increment bool
}

func (*While) stmtNode() {}
func (w *While) String() string {
	return fmt.Sprintf("While(%s, %s)", w.Condition, w.Body)
}

// Function declares a named function. Every parameter and the result are
// floats.
type Function struct {
	Name   Token
	Params []Token
	Body   []Stmt
}

func (*Function) stmtNode() {}
func (f *Function) String() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Lexeme
	}
	return fmt.Sprintf("Function(%s(%s), len=%d)", f.Name.Lexeme, strings.Join(names, ", "), len(f.Body))
}

// Return leaves the current function. Value is nil for a bare "return;".
type Return struct {
	Keyword Token
	Value   Expr
}

func (*Return) stmtNode() {}
func (r *Return) String() string {
	if r.Value == nil {
		return "Return"
	}
	return fmt.Sprintf("Return(%s)", r.Value)
}

type Break struct {
	Keyword Token
}

func (*Break) stmtNode()      {}
func (*Break) String() string { return "Break" }

type Continue struct {
	Keyword Token
}

func (*Continue) stmtNode()      {}
func (*Continue) String() string { return "Continue" }

func typeName(tt TokenType) string {
	switch tt {
	case FLOAT_TYPE:
		return "float"
	case STRING_TYPE:
		return "string"
	case BOOL_TYPE:
		return "bool"
	}
	return tt.String()
}

// DumpStmts renders a statement list as an indented tree, descending into
// blocks, branches and function bodies.
func DumpStmts(stmts []Stmt) string {
	var b strings.Builder
	for _, s := range stmts {
		dumpStmt(&b, s, 0)
	}
	return b.String()
}

func dumpStmt(b *strings.Builder, s Stmt, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(s.String())
	b.WriteByte('\n')
	switch n := s.(type) {
	case *Block:
		for _, inner := range n.Stmts {
			dumpStmt(b, inner, depth+1)
		}
	case *IfElse:
		dumpStmt(b, n.Then, depth+1)
		if n.Else != nil {
			dumpStmt(b, n.Else, depth+1)
		}
	case *While:
		dumpStmt(b, n.Body, depth+1)
	case *Function:
		for _, inner := range n.Body {
			dumpStmt(b, inner, depth+1)
		}
	}
}
