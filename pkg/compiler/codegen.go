package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Names the generator claims for itself in the module namespace.
var reservedNames = map[string]bool{
	"main":   true,
	"printf": true,
}

// operand is a generated value tagged with its static type.
type operand struct {
	kind Kind
	v    value.Value
}

// LoopLabel holds the branch targets of the innermost enclosing loop.
type LoopLabel struct {
	Continue *ir.Block
	End      *ir.Block
}

// CodeGen walks an AST and builds an LLVM IR module.
//
// All top-level statements go into main. Each function being generated owns
// an entry block that collects its allocas; block is the insertion point.
type CodeGen struct {
	module *ir.Module
	syms   *SymbolTable
	printf *ir.Func

	fn         *ir.Func
	entry      *ir.Block
	block      *ir.Block
	inFunction bool
	loopStack  []LoopLabel

	declared   map[*Function]*ir.Func
	stringPool map[string]constant.Constant
	nextLabel  int
}

func newCodeGen(syms *SymbolTable) *CodeGen {
	m := ir.NewModule()
	printf := m.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	printf.Sig.Variadic = true
	return &CodeGen{
		module:     m,
		syms:       syms,
		printf:     printf,
		declared:   make(map[*Function]*ir.Func),
		stringPool: make(map[string]constant.Constant),
	}
}

// newBlock appends a uniquely named block to the current function.
func (cg *CodeGen) newBlock(prefix string) *ir.Block {
	b := cg.fn.NewBlock(fmt.Sprintf("%s.%d", prefix, cg.nextLabel))
	cg.nextLabel++
	return b
}

// branchTo terminates the insertion block with a jump to target unless it
// already ends in a terminator.
func (cg *CodeGen) branchTo(target *ir.Block) {
	if cg.block.Term == nil {
		cg.block.NewBr(target)
	}
}

// beginFunction makes f the current function with a fresh entry block.
func (cg *CodeGen) beginFunction(f *ir.Func) {
	cg.fn = f
	cg.entry = f.NewBlock("entry")
	cg.block = cg.entry
}

// alloca reserves a stack slot in the entry block, ahead of any other
// instruction, so that loops never grow the frame.
func (cg *CodeGen) alloca(k Kind) value.Value {
	a := cg.entry.NewAlloca(k.IRType())
	insts := cg.entry.Insts
	copy(insts[1:], insts[:len(insts)-1])
	insts[0] = a
	return a
}

// stringPtr interns s as a private NUL-terminated constant and returns an
// i8* to its first byte.
func (cg *CodeGen) stringPtr(s string) constant.Constant {
	if c, ok := cg.stringPool[s]; ok {
		return c
	}
	g := cg.module.NewGlobalDef(fmt.Sprintf(".str.%d", len(cg.stringPool)), constant.NewCharArrayFromString(s+"\x00"))
	g.Immutable = true
	g.Linkage = enum.LinkagePrivate
	zero := constant.NewInt(types.I64, 0)
	c := constant.NewGetElementPtr(g.ContentType, g, zero, zero)
	cg.stringPool[s] = c
	return c
}

func zeroValue(k Kind) constant.Constant {
	switch k {
	case KindBool:
		return constant.NewBool(false)
	case KindString:
		return constant.NewNull(types.I8Ptr)
	}
	return constant.NewFloat(types.Double, 0)
}

func floatConst(x float64) constant.Constant {
	return constant.NewFloat(types.Double, x)
}

// exprLine finds a source line for error messages.
func exprLine(e Expr) int {
	switch n := e.(type) {
	case *Assign:
		return n.Name.Line
	case *Call:
		return n.Paren.Line
	case *Binary:
		return n.Operator.Line
	case *Grouping:
		return exprLine(n.Inner)
	case *Unary:
		return n.Operator.Line
	case *Variable:
		return n.Name.Line
	case *Logical:
		return n.Operator.Line
	case *Literal:
		return n.Line
	}
	return 0
}

//  Statements

func (cg *CodeGen) genStmts(stmts []Stmt) error {
	for _, s := range stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *Expression:
		_, err := cg.genExpr(n.Expr)
		return err
	case *Print:
		return cg.genPrint(n)
	case *Var:
		return cg.genVar(n)
	case *Block:
		return cg.genScoped(n.Stmts)
	case *IfElse:
		return cg.genIf(n)
	case *While:
		return cg.genWhile(n)
	case *Function:
		return cg.genFunction(n)
	case *Return:
		return cg.genReturn(n)
	case *Break:
		if len(cg.loopStack) == 0 {
			return genErrorf(n.Keyword.Line, ErrMisplaced, "'break' outside of a loop")
		}
		cg.block.NewBr(cg.loopStack[len(cg.loopStack)-1].End)
		cg.block = cg.newBlock("after.break")
		return nil
	case *Continue:
		if len(cg.loopStack) == 0 {
			return genErrorf(n.Keyword.Line, ErrMisplaced, "'continue' outside of a loop")
		}
		cg.block.NewBr(cg.loopStack[len(cg.loopStack)-1].Continue)
		cg.block = cg.newBlock("after.continue")
		return nil
	}
	return genErrorf(0, ErrInternal, "unknown statement %T", s)
}

// genScoped generates stmts inside a new lexical scope.
func (cg *CodeGen) genScoped(stmts []Stmt) error {
	cg.syms.EnterScope()
	defer cg.syms.ExitScope()
	return cg.genStmts(stmts)
}

func (cg *CodeGen) genPrint(n *Print) error {
	op, err := cg.genExpr(n.Expr)
	if err != nil {
		return err
	}
	switch op.kind {
	case KindFloat:
		cg.block.NewCall(cg.printf, cg.stringPtr("%f\n"), op.v)
	case KindString:
		cg.block.NewCall(cg.printf, cg.stringPtr("%s\n"), op.v)
	case KindBool:
		text := cg.block.NewSelect(op.v, cg.stringPtr("true"), cg.stringPtr("false"))
		cg.block.NewCall(cg.printf, cg.stringPtr("%s\n"), text)
	default:
		return genErrorf(exprLine(n.Expr), ErrInternal, "cannot print value of kind %s", op.kind)
	}
	return nil
}

func (cg *CodeGen) genVar(n *Var) error {
	name := n.Name.Lexeme
	line := n.Name.Line
	kind, ok := kindOf(n.Type)
	if !ok {
		return genErrorf(line, ErrInternal, "unknown declared type %s", n.Type)
	}
	if reservedNames[name] {
		return genErrorf(line, ErrRedeclared, "%q is reserved", name)
	}
	if prev, ok := cg.syms.LookupCurrent(name); ok {
		return genErrorf(line, ErrRedeclared, "variable %q already declared on line %d", name, prev.Line)
	}

	// The initializer is evaluated before the name is visible.
	var init value.Value
	if lit, ok := n.Initializer.(*Literal); ok && lit.Value.Kind == LitNil {
		init = zeroValue(kind)
		if kind == KindString {
			init = cg.stringPtr("")
		}
	} else {
		op, err := cg.genExpr(n.Initializer)
		if err != nil {
			return err
		}
		if op.kind != kind {
			return genErrorf(line, ErrTypeMismatch, "cannot initialize %s %q with a %s value", kind, name, op.kind)
		}
		init = op.v
	}

	var storage value.Value
	if cg.syms.InGlobalScope() {
		if _, ok := cg.syms.LookupFunc(name); ok {
			return genErrorf(line, ErrRedeclared, "%q is already a function", name)
		}
		storage = cg.module.NewGlobalDef(name, zeroValue(kind))
	} else {
		storage = cg.alloca(kind)
	}
	cg.syms.Declare(Symbol{Name: name, Kind: kind, Storage: storage, Line: line})
	cg.block.NewStore(init, storage)
	return nil
}

// genCondition evaluates a branch condition, which must be a bool.
func (cg *CodeGen) genCondition(e Expr) (value.Value, error) {
	op, err := cg.genExpr(e)
	if err != nil {
		return nil, err
	}
	if op.kind != KindBool {
		return nil, genErrorf(exprLine(e), ErrTypeMismatch, "condition must be bool, got %s", op.kind)
	}
	return op.v, nil
}

// asBlock unwraps a branch payload, which the parser always builds as a Block.
func asBlock(s Stmt, what string) (*Block, error) {
	b, ok := s.(*Block)
	if !ok {
		return nil, genErrorf(0, ErrInternal, "%s must be a block, got %T", what, s)
	}
	return b, nil
}

func (cg *CodeGen) genIf(n *IfElse) error {
	then, err := asBlock(n.Then, "if body")
	if err != nil {
		return err
	}
	var elseBody *Block
	if n.Else != nil {
		if elseBody, err = asBlock(n.Else, "else body"); err != nil {
			return err
		}
	}

	cond, err := cg.genCondition(n.Condition)
	if err != nil {
		return err
	}

	thenBB := cg.newBlock("if.then")
	var elseBB *ir.Block
	if elseBody != nil {
		elseBB = cg.newBlock("if.else")
	}
	mergeBB := cg.newBlock("if.end")

	if elseBB != nil {
		cg.block.NewCondBr(cond, thenBB, elseBB)
	} else {
		cg.block.NewCondBr(cond, thenBB, mergeBB)
	}

	cg.block = thenBB
	if err := cg.genScoped(then.Stmts); err != nil {
		return err
	}
	cg.branchTo(mergeBB)

	if elseBB != nil {
		cg.block = elseBB
		if err := cg.genScoped(elseBody.Stmts); err != nil {
			return err
		}
		cg.branchTo(mergeBB)
	}

	cg.block = mergeBB
	return nil
}

// genWhile lowers
//
//	while.cond: br cond, while.body, while.end
//	while.body: ... br while.cond (or while.post)
//	while.post: increment; br while.cond
//	while.end:
//
// while.post exists only for loops desugared from "for".
func (cg *CodeGen) genWhile(n *While) error {
	body, err := asBlock(n.Body, "loop body")
	if err != nil {
		return err
	}
	stmts := body.Stmts
	var incr Stmt
	if n.Increment && len(stmts) > 0 {
		incr = stmts[len(stmts)-1]
		stmts = stmts[:len(stmts)-1]
	}

	condBB := cg.newBlock("while.cond")
	bodyBB := cg.newBlock("while.body")
	var postBB *ir.Block
	if incr != nil {
		postBB = cg.newBlock("while.post")
	}
	endBB := cg.newBlock("while.end")

	cg.block.NewBr(condBB)
	cg.block = condBB
	cond, err := cg.genCondition(n.Condition)
	if err != nil {
		return err
	}
	cg.block.NewCondBr(cond, bodyBB, endBB)

	next := condBB
	if postBB != nil {
		next = postBB
	}
	cg.loopStack = append(cg.loopStack, LoopLabel{Continue: next, End: endBB})
	cg.block = bodyBB
	err = cg.genScoped(stmts)
	cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
	if err != nil {
		return err
	}
	cg.branchTo(next)

	if postBB != nil {
		cg.block = postBB
		if err := cg.genStmt(incr); err != nil {
			return err
		}
		cg.branchTo(condBB)
	}

	cg.block = endBB
	return nil
}

// declareFunc adds the function signature to the module and symbol table.
func (cg *CodeGen) declareFunc(n *Function) (*ir.Func, error) {
	name := n.Name.Lexeme
	if reservedNames[name] {
		return nil, genErrorf(n.Name.Line, ErrRedeclared, "%q is reserved", name)
	}
	params := make([]*ir.Param, len(n.Params))
	for i, p := range n.Params {
		params[i] = ir.NewParam("arg."+p.Lexeme, types.Double)
	}
	f := cg.module.NewFunc(name, types.Double, params...)
	if !cg.syms.DeclareFunc(FuncSymbol{Name: name, Arity: len(n.Params), Func: f, Line: n.Name.Line}) {
		return nil, genErrorf(n.Name.Line, ErrRedeclared, "%q already declared", name)
	}
	cg.declared[n] = f
	return f, nil
}

func (cg *CodeGen) genFunction(n *Function) error {
	f, ok := cg.declared[n]
	if !ok {
		var err error
		if f, err = cg.declareFunc(n); err != nil {
			return err
		}
	}

	savedFn, savedEntry, savedBlock := cg.fn, cg.entry, cg.block
	savedLoops, savedIn := cg.loopStack, cg.inFunction
	savedLocals := cg.syms.EnterFunction()
	defer func() {
		cg.fn, cg.entry, cg.block = savedFn, savedEntry, savedBlock
		cg.loopStack, cg.inFunction = savedLoops, savedIn
		cg.syms.ExitFunction(savedLocals)
	}()

	cg.beginFunction(f)
	cg.inFunction = true
	cg.loopStack = nil

	for i, p := range n.Params {
		slot := cg.alloca(KindFloat)
		if _, ok := cg.syms.Declare(Symbol{Name: p.Lexeme, Kind: KindFloat, Storage: slot, Line: p.Line}); !ok {
			return genErrorf(p.Line, ErrRedeclared, "duplicate parameter %q in %s", p.Lexeme, n.Name.Lexeme)
		}
		cg.block.NewStore(f.Params[i], slot)
	}

	if err := cg.genStmts(n.Body); err != nil {
		return err
	}
	if cg.block.Term == nil {
		cg.block.NewRet(floatConst(0))
	}
	return nil
}

func (cg *CodeGen) genReturn(n *Return) error {
	if !cg.inFunction {
		if n.Value != nil {
			return genErrorf(n.Keyword.Line, ErrMisplaced, "cannot return a value from top-level code")
		}
		cg.block.NewRet(constant.NewInt(types.I32, 0))
		cg.block = cg.newBlock("after.return")
		return nil
	}

	var result value.Value = floatConst(0)
	if n.Value != nil {
		op, err := cg.genExpr(n.Value)
		if err != nil {
			return err
		}
		if op.kind != KindFloat {
			return genErrorf(n.Keyword.Line, ErrTypeMismatch, "functions return float, got %s", op.kind)
		}
		result = op.v
	}
	cg.block.NewRet(result)
	cg.block = cg.newBlock("after.return")
	return nil
}

//  Expressions

func (cg *CodeGen) genExpr(e Expr) (operand, error) {
	switch n := e.(type) {
	case *Literal:
		return cg.genLiteral(n)

	case *Grouping:
		return cg.genExpr(n.Inner)

	case *Unary:
		op, err := cg.genExpr(n.Operand)
		if err != nil {
			return operand{}, err
		}
		switch {
		case n.Operator.Type == MINUS && op.kind == KindFloat:
			return operand{KindFloat, cg.block.NewFMul(op.v, floatConst(-1))}, nil
		case n.Operator.Type == BANG && op.kind == KindBool:
			return operand{KindBool, cg.block.NewXor(op.v, constant.NewBool(true))}, nil
		}
		return operand{}, genErrorf(n.Operator.Line, ErrTypeMismatch, "operator %s not defined for %s", n.Operator.Lexeme, op.kind)

	case *Variable:
		name := n.Name.Lexeme
		sym, ok := cg.syms.Lookup(name)
		if !ok {
			if _, isFunc := cg.syms.LookupFunc(name); isFunc {
				return operand{}, genErrorf(n.Name.Line, ErrUnsupported, "function %q used as a value", name)
			}
			return operand{}, genErrorf(n.Name.Line, ErrUndefined, "undefined variable %q", name)
		}
		return operand{sym.Kind, cg.block.NewLoad(sym.Kind.IRType(), sym.Storage)}, nil

	case *Assign:
		name := n.Name.Lexeme
		sym, ok := cg.syms.Lookup(name)
		if !ok {
			return operand{}, genErrorf(n.Name.Line, ErrUndefined, "assignment to undeclared variable %q", name)
		}
		val, err := cg.genExpr(n.Value)
		if err != nil {
			return operand{}, err
		}
		if val.kind != sym.Kind {
			return operand{}, genErrorf(n.Name.Line, ErrTypeMismatch, "cannot assign %s to %s %q", val.kind, sym.Kind, name)
		}
		cg.block.NewStore(val.v, sym.Storage)
		return operand{sym.Kind, val.v}, nil

	case *Binary:
		return cg.genBinary(n)

	case *Logical:
		return cg.genLogical(n)

	case *Call:
		return cg.genCall(n)
	}
	return operand{}, genErrorf(0, ErrInternal, "unknown expression %T", e)
}

func (cg *CodeGen) genLiteral(n *Literal) (operand, error) {
	switch n.Value.Kind {
	case LitNumber:
		return operand{KindFloat, floatConst(n.Value.Number)}, nil
	case LitTrue:
		return operand{KindBool, constant.NewBool(true)}, nil
	case LitFalse:
		return operand{KindBool, constant.NewBool(false)}, nil
	case LitString:
		return operand{KindString, cg.stringPtr(n.Value.Str)}, nil
	}
	return operand{}, genErrorf(n.Line, ErrUnsupported, "nil is only allowed as a declaration initializer")
}

var floatPreds = map[TokenType]enum.FPred{
	GREATER:       enum.FPredOGT,
	GREATER_EQUAL: enum.FPredOGE,
	LESS:          enum.FPredOLT,
	LESS_EQUAL:    enum.FPredOLE,
	EQUAL_EQUAL:   enum.FPredOEQ,
	BANG_EQUAL:    enum.FPredONE,
}

func (cg *CodeGen) genBinary(n *Binary) (operand, error) {
	l, err := cg.genExpr(n.Left)
	if err != nil {
		return operand{}, err
	}
	r, err := cg.genExpr(n.Right)
	if err != nil {
		return operand{}, err
	}
	op := n.Operator.Type

	if l.kind == KindFloat && r.kind == KindFloat {
		switch op {
		case PLUS:
			return operand{KindFloat, cg.block.NewFAdd(l.v, r.v)}, nil
		case MINUS:
			return operand{KindFloat, cg.block.NewFSub(l.v, r.v)}, nil
		case STAR:
			return operand{KindFloat, cg.block.NewFMul(l.v, r.v)}, nil
		case SLASH:
			return operand{KindFloat, cg.block.NewFDiv(l.v, r.v)}, nil
		case PERCENT:
			return operand{KindFloat, cg.block.NewFRem(l.v, r.v)}, nil
		}
		if pred, ok := floatPreds[op]; ok {
			return operand{KindBool, cg.block.NewFCmp(pred, l.v, r.v)}, nil
		}
	}

	if l.kind == KindBool && r.kind == KindBool {
		switch op {
		case EQUAL_EQUAL:
			return operand{KindBool, cg.block.NewICmp(enum.IPredEQ, l.v, r.v)}, nil
		case BANG_EQUAL:
			return operand{KindBool, cg.block.NewICmp(enum.IPredNE, l.v, r.v)}, nil
		}
	}

	return operand{}, genErrorf(n.Operator.Line, ErrTypeMismatch,
		"operator %s not defined for %s and %s", n.Operator.Lexeme, l.kind, r.kind)
}

// genLogical short-circuits: the right operand is evaluated in its own
// block and the result is merged with a phi.
func (cg *CodeGen) genLogical(n *Logical) (operand, error) {
	l, err := cg.genExpr(n.Left)
	if err != nil {
		return operand{}, err
	}
	if l.kind != KindBool {
		return operand{}, genErrorf(n.Operator.Line, ErrTypeMismatch, "operand of %s must be bool, got %s", n.Operator.Lexeme, l.kind)
	}

	isOr := n.Operator.Type == OR
	lhsEnd := cg.block
	rhsBB := cg.newBlock(n.Operator.Lexeme + ".rhs")
	endBB := cg.newBlock(n.Operator.Lexeme + ".end")
	if isOr {
		cg.block.NewCondBr(l.v, endBB, rhsBB)
	} else {
		cg.block.NewCondBr(l.v, rhsBB, endBB)
	}

	cg.block = rhsBB
	r, err := cg.genExpr(n.Right)
	if err != nil {
		return operand{}, err
	}
	if r.kind != KindBool {
		return operand{}, genErrorf(n.Operator.Line, ErrTypeMismatch, "operand of %s must be bool, got %s", n.Operator.Lexeme, r.kind)
	}
	rhsEnd := cg.block
	rhsEnd.NewBr(endBB)

	cg.block = endBB
	phi := endBB.NewPhi(
		ir.NewIncoming(constant.NewBool(isOr), lhsEnd),
		ir.NewIncoming(r.v, rhsEnd),
	)
	return operand{KindBool, phi}, nil
}

func (cg *CodeGen) genCall(n *Call) (operand, error) {
	callee, ok := n.Callee.(*Variable)
	if !ok {
		return operand{}, genErrorf(n.Paren.Line, ErrUnsupported, "can only call named functions")
	}
	fn, ok := cg.syms.LookupFunc(callee.Name.Lexeme)
	if !ok {
		return operand{}, genErrorf(n.Paren.Line, ErrUndefined, "undefined function %q", callee.Name.Lexeme)
	}
	if len(n.Args) != fn.Arity {
		return operand{}, genErrorf(n.Paren.Line, ErrTypeMismatch,
			"%s expects %d arguments but got %d", fn.Name, fn.Arity, len(n.Args))
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		op, err := cg.genExpr(a)
		if err != nil {
			return operand{}, err
		}
		if op.kind != KindFloat {
			return operand{}, genErrorf(n.Paren.Line, ErrTypeMismatch,
				"argument %d of %s must be float, got %s", i+1, fn.Name, op.kind)
		}
		args[i] = op.v
	}
	return operand{KindFloat, cg.block.NewCall(fn.Func, args...)}, nil
}

// Generate lowers a parsed program into an LLVM IR module. Top-level
// statements form the body of main; top-level functions are declared first so
// they can be called before their definition.
func Generate(stmts []Stmt, syms *SymbolTable) (*ir.Module, error) {
	cg := newCodeGen(syms)

	for _, s := range stmts {
		if fn, ok := s.(*Function); ok {
			if _, err := cg.declareFunc(fn); err != nil {
				return nil, err
			}
		}
	}

	main := cg.module.NewFunc("main", types.I32)
	cg.beginFunction(main)
	if err := cg.genStmts(stmts); err != nil {
		return nil, err
	}
	if cg.block.Term == nil {
		cg.block.NewRet(constant.NewInt(types.I32, 0))
	}
	return cg.module, nil
}
