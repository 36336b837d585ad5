package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// maxArgs caps both parameter lists and call argument lists.
const maxArgs = 255

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program     = declaration* EOF
//	declaration = varDecl | funDecl | statement
//	varDecl     = ("float" | "string" | "bool") IDENTIFIER ("=" expression)? ";"
//	funDecl     = "fun" IDENTIFIER "(" (IDENTIFIER ("," IDENTIFIER)*)? ")" block
//	statement   = "print" "(" expression ")" ";"
//	            | "break" ";" | "continue" ";"
//	            | "if" "(" expression ")" block ("else" block)?
//	            | "for" "(" (varDecl | exprStmt | ";") expression? ";" expression? ")" block
//	            | "while" "(" expression ")" block
//	            | "return" expression? ";"
//	            | block | exprStmt
//	block       = "{" declaration* "}"
//	expression  = assignment
//	assignment  = IDENTIFIER "=" assignment | logic_or
//	logic_or    = logic_and ("or" logic_and)*
//	logic_and   = equality ("and" equality)*
//	equality    = comparison (("==" | "!=") comparison)*
//	comparison  = term ((">" | ">=" | "<" | "<=") term)*
//	term        = factor (("+" | "-") factor)*
//	factor      = unary (("*" | "/" | "%") unary)*
//	unary       = ("!" | "-") unary | call
//	call        = primary ("(" (expression ("," expression)*)? ")")*
//	primary     = NUMBER | STRING | "true" | "false" | "nil" | IDENTIFIER | "(" expression ")"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError builds a ParseError at tok, attaching the source line it came from.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	lexeme := tok.Lexeme
	if tok.Type == EOF {
		lexeme = ""
	}
	snippet := ""
	if idx := tok.Line - 1; idx >= 0 && idx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[idx])
	}
	return &ParseError{
		Line:    tok.Line,
		Lexeme:  lexeme,
		Message: fmt.Sprintf(format, args...),
		Snippet: snippet,
	}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// previous returns the most recently consumed token.
func (p *Parser) previous() Token {
	if p.pos == 0 || p.pos > len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == EOF
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt TokenType) bool {
	return p.peek().Type == tt
}

// match consumes the current token if it is one of types.
func (p *Parser) match(types ...TokenType) bool {
	for _, tt := range types {
		if p.check(tt) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes the current token if it matches tt, otherwise returns an
// error carrying msg.
func (p *Parser) expect(tt TokenType, msg string) (Token, error) {
	if p.check(tt) {
		return p.advance(), nil
	}
	return p.peek(), p.fmtError(p.peek(), "%s", msg)
}

// synchronize discards tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == SEMICOLON {
			return
		}
		switch p.peek().Type {
		case CLASS, FUN, FLOAT_TYPE, STRING_TYPE, BOOL_TYPE, FOR, IF, WHILE, PRINT, RETURN:
			return
		}
		p.advance()
	}
}

//  Declarations

func (p *Parser) parseDeclaration() (Stmt, error) {
	var (
		s   Stmt
		err error
	)
	switch {
	case p.peek().Type.IsDeclaredType():
		s, err = p.parseVarDecl()
	case p.check(FUN):
		s, err = p.parseFunction()
	default:
		s, err = p.parseStatement()
	}
	if err != nil {
		// Errors from a nested block were already synchronized there.
		var pe *ParseError
		if errors.As(err, &pe) && pe.synced {
			return nil, err
		}
		p.synchronize()
		if pe != nil {
			pe.synced = true
		}
		return nil, err
	}
	return s, nil
}

// parseVarDecl handles "float x = expr;". The type keyword is still current.
func (p *Parser) parseVarDecl() (Stmt, error) {
	typ := p.advance().Type
	name, err := p.expect(IDENTIFIER, "Expect variable name.")
	if err != nil {
		return nil, err
	}
	var init Expr = &Literal{Value: LiteralValue{Kind: LitNil}, Line: name.Line}
	if p.match(EQUAL) {
		if init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &Var{Name: name, Type: typ, Initializer: init}, nil
}

func (p *Parser) parseFunction() (Stmt, error) {
	p.advance() // fun
	name, err := p.expect(IDENTIFIER, "Expect function name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LEFT_PAREN, "Expect '(' after function name."); err != nil {
		return nil, err
	}
	var params []Token
	if !p.check(RIGHT_PAREN) {
		for {
			if len(params) >= maxArgs {
				return nil, p.fmtError(p.peek(), "Can't have more than %d parameters.", maxArgs)
			}
			param, err := p.expect(IDENTIFIER, "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(RIGHT_PAREN, "Expect ')' after parameters."); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &Function{Name: name, Params: params, Body: body.Stmts}, nil
}

//  Statements

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.peek().Type {
	case PRINT:
		return p.parsePrint()
	case CONTINUE:
		kw := p.advance()
		if _, err := p.expect(SEMICOLON, "Expect ';' after 'continue'."); err != nil {
			return nil, err
		}
		return &Continue{Keyword: kw}, nil
	case BREAK:
		kw := p.advance()
		if _, err := p.expect(SEMICOLON, "Expect ';' after 'break'."); err != nil {
			return nil, err
		}
		return &Break{Keyword: kw}, nil
	case IF:
		return p.parseIf()
	case FOR:
		return p.parseFor()
	case LEFT_BRACE:
		return p.parseBlock()
	case RETURN:
		return p.parseReturn()
	case WHILE:
		return p.parseWhile()
	}
	return p.parseExprStmt()
}

func (p *Parser) parsePrint() (Stmt, error) {
	p.advance() // print
	if _, err := p.expect(LEFT_PAREN, "Expect '(' after 'print'."); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RIGHT_PAREN, "Expect ')' after value."); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &Print{Expr: value}, nil
}

func (p *Parser) parseExprStmt() (Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &Expression{Expr: expr}, nil
}

// parseBlock handles "{ declaration* }". The '{' is still current.
func (p *Parser) parseBlock() (*Block, error) {
	if _, err := p.expect(LEFT_BRACE, "Expect '{' before block."); err != nil {
		return nil, err
	}
	block := &Block{}
	for !p.check(RIGHT_BRACE) && !p.atEnd() {
		s, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, s)
	}
	if _, err := p.expect(RIGHT_BRACE, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return block, nil
}

// parseCondition handles the parenthesized "( expression )" after if/while.
func (p *Parser) parseCondition(keyword string) (Expr, error) {
	if _, err := p.expect(LEFT_PAREN, fmt.Sprintf("Expect '(' after '%s'.", keyword)); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RIGHT_PAREN, fmt.Sprintf("Expect ')' after %s condition.", keyword)); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	p.advance() // if
	cond, err := p.parseCondition("if")
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfElse{Condition: cond, Then: then}
	if p.match(ELSE) {
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseBlock
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	p.advance() // while
	cond, err := p.parseCondition("while")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &While{Condition: cond, Body: body}, nil
}

// parseFor desugars
//
//	for (init; cond; incr) { body }
//
// into
//
//	{ init; while (cond) { body; incr; } }
//
// A missing condition becomes the literal true.
func (p *Parser) parseFor() (Stmt, error) {
	kw := p.advance()
	if _, err := p.expect(LEFT_PAREN, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var (
		init Stmt
		err  error
	)
	switch {
	case p.match(SEMICOLON):
	case p.peek().Type.IsDeclaredType():
		init, err = p.parseVarDecl()
	default:
		init, err = p.parseExprStmt()
	}
	if err != nil {
		return nil, err
	}

	var cond Expr
	if !p.check(SEMICOLON) {
		if cond, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var incr Expr
	if !p.check(RIGHT_PAREN) {
		if incr, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RIGHT_PAREN, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	if incr != nil {
		body.Stmts = append(body.Stmts, &Expression{Expr: incr})
	}
	if cond == nil {
		cond = &Literal{Value: BoolValue(true), Line: kw.Line}
	}
	loop := &While{Condition: cond, Body: body, Increment: incr != nil}
	if init == nil {
		return loop, nil
	}
	return &Block{Stmts: []Stmt{init, loop}}, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	kw := p.advance()
	var value Expr
	if !p.check(SEMICOLON) {
		var err error
		if value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON, "Expect ';' after return value."); err != nil {
		return nil, err
	}
	return &Return{Keyword: kw, Value: value}, nil
}

//  Expressions

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseAssignment()
}

// parseAssignment is right-associative; only a bare variable may be assigned.
func (p *Parser) parseAssignment() (Expr, error) {
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.check(EQUAL) {
		equals := p.advance()
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if v, ok := expr.(*Variable); ok {
			return &Assign{Name: v.Name, Value: value}, nil
		}
		return nil, p.fmtError(equals, "Invalid assignment target.")
	}
	return expr, nil
}

func (p *Parser) parseOr() (Expr, error) {
	return p.parseLogical(OR, p.parseAnd)
}

func (p *Parser) parseAnd() (Expr, error) {
	return p.parseLogical(AND, p.parseEquality)
}

func (p *Parser) parseLogical(op TokenType, next func() (Expr, error)) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for p.check(op) {
		operator := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Operator: operator, Right: right}
	}
	return expr, nil
}

// parseBinary parses a left-associative level: next (ops next)*.
func (p *Parser) parseBinary(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		operator := p.previous()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &Binary{Left: expr, Operator: operator, Right: right}
	}
	return expr, nil
}

func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinary(p.parseComparison, BANG_EQUAL, EQUAL_EQUAL)
}

func (p *Parser) parseComparison() (Expr, error) {
	return p.parseBinary(p.parseTerm, GREATER, GREATER_EQUAL, LESS, LESS_EQUAL)
}

func (p *Parser) parseTerm() (Expr, error) {
	return p.parseBinary(p.parseFactor, MINUS, PLUS)
}

func (p *Parser) parseFactor() (Expr, error) {
	return p.parseBinary(p.parseUnary, SLASH, STAR, PERCENT)
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.match(BANG, MINUS) {
		operator := p.previous()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: operator, Operand: operand}, nil
	}
	return p.parseCall()
}

func (p *Parser) parseCall() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.match(LEFT_PAREN) {
		var args []Expr
		if !p.check(RIGHT_PAREN) {
			for {
				if len(args) >= maxArgs {
					return nil, p.fmtError(p.peek(), "Can't have more than %d arguments.", maxArgs)
				}
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(COMMA) {
					break
				}
			}
		}
		paren, err := p.expect(RIGHT_PAREN, "Expect ')' after arguments.")
		if err != nil {
			return nil, err
		}
		expr = &Call{Callee: expr, Paren: paren, Args: args}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case FALSE:
		p.advance()
		return &Literal{Value: BoolValue(false), Line: tok.Line}, nil
	case TRUE:
		p.advance()
		return &Literal{Value: BoolValue(true), Line: tok.Line}, nil
	case NIL:
		p.advance()
		return &Literal{Value: LiteralValue{Kind: LitNil}, Line: tok.Line}, nil
	case NUMBER:
		p.advance()
		x, _ := tok.Literal.(float64)
		return &Literal{Value: NumberValue(x), Line: tok.Line}, nil
	case STRING:
		p.advance()
		s, _ := tok.Literal.(string)
		return &Literal{Value: StringValue(s), Line: tok.Line}, nil
	case IDENTIFIER:
		p.advance()
		return &Variable{Name: tok}, nil
	case LEFT_PAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RIGHT_PAREN, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &Grouping{Inner: inner}, nil
	}
	return nil, p.fmtError(tok, "Expected expression found %s", tok.Type)
}

// Parse parses the whole token stream and stops at the first syntax error.
func Parse(tokens []Token, rawSource string) ([]Stmt, error) {
	p := NewParser(tokens, rawSource)
	var stmts []Stmt
	for !p.atEnd() {
		s, err := p.parseDeclaration()
		if err != nil {
			return stmts, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// ParseAll keeps parsing after errors, resynchronizing at statement
// boundaries, and returns every syntax error joined together.
func ParseAll(tokens []Token, rawSource string) ([]Stmt, error) {
	p := NewParser(tokens, rawSource)
	var (
		stmts []Stmt
		errs  []error
	)
	for !p.atEnd() {
		s, err := p.parseDeclaration()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stmts = append(stmts, s)
	}
	return stmts, errors.Join(errs...)
}
