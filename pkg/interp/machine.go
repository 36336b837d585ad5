// Package interp executes LLVM IR modules produced by the compiler without a
// native toolchain. It understands the instruction subset the code generator
// emits and routes printf to an io.Writer.
package interp

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

var (
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrCallDepth   = errors.New("call depth exceeded")
	ErrUnsupported = errors.New("unsupported instruction")
	ErrNoEntry     = errors.New("entry function not found")
)

const (
	DefaultMaxSteps = 50_000_000
	DefaultMaxDepth = 10_000
)

// cell is the memory behind an alloca or a global variable.
type cell struct {
	v any
}

// cstring is an i8* into a constant string.
type cstring string

// Machine runs functions of a single module.
//
// Runtime values are float64 (double), bool (i1), int64 (other integers),
// *cell (variable pointers) and cstring (string pointers).
type Machine struct {
	// Output is where printf writes. If nil, os.Stdout is used.
	Output io.Writer

	// MaxSteps bounds the number of executed instructions; 0 means
	// DefaultMaxSteps.
	MaxSteps int
	// MaxDepth bounds call nesting; 0 means DefaultMaxDepth.
	MaxDepth int

	Steps     int
	CallDepth int

	module  *ir.Module
	globals map[*ir.Global]any
}

// NewMachine prepares m for execution, materializing its globals.
func NewMachine(m *ir.Module) (*Machine, error) {
	vm := &Machine{module: m, globals: make(map[*ir.Global]any)}
	for _, g := range m.Globals {
		if arr, ok := g.Init.(*constant.CharArray); ok {
			vm.globals[g] = cstring(strings.TrimSuffix(string(arr.X), "\x00"))
			continue
		}
		v, err := vm.constValue(g.Init)
		if err != nil {
			return nil, fmt.Errorf("global @%s: %w", g.Name(), err)
		}
		vm.globals[g] = &cell{v: v}
	}
	return vm, nil
}

func (vm *Machine) outputSink() io.Writer {
	if vm.Output != nil {
		return vm.Output
	}
	return os.Stdout
}

// Run calls the function named entry with no arguments and returns its
// integer result as an exit code.
func (vm *Machine) Run(entry string) (int, error) {
	var fn *ir.Func
	for _, f := range vm.module.Funcs {
		if f.Name() == entry {
			fn = f
			break
		}
	}
	if fn == nil {
		return 0, fmt.Errorf("%w: @%s", ErrNoEntry, entry)
	}
	res, err := vm.Call(fn)
	if err != nil {
		return 0, err
	}
	switch r := res.(type) {
	case int64:
		return int(r), nil
	case float64:
		return int(r), nil
	}
	return 0, nil
}

// Run executes main of m, writing printf output to w.
func Run(m *ir.Module, w io.Writer) (int, error) {
	vm, err := NewMachine(m)
	if err != nil {
		return 0, err
	}
	vm.Output = w
	return vm.Run("main")
}

// frame holds the SSA values of one activation.
type frame struct {
	fn     *ir.Func
	locals map[value.Value]any
}

// Call executes fn with args and returns its result (nil for void).
func (vm *Machine) Call(fn *ir.Func, args ...any) (any, error) {
	if len(fn.Blocks) == 0 {
		return vm.callExternal(fn, args)
	}
	maxDepth := vm.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}
	if vm.CallDepth >= maxDepth {
		return nil, fmt.Errorf("%w: %d calls deep in @%s", ErrCallDepth, vm.CallDepth, fn.Name())
	}
	vm.CallDepth++
	defer func() { vm.CallDepth-- }()

	fr := &frame{fn: fn, locals: make(map[value.Value]any)}
	for i, p := range fn.Params {
		if i < len(args) {
			fr.locals[p] = args[i]
		}
	}

	var prev *ir.Block
	blk := fn.Blocks[0]
	for {
		if err := vm.runPhis(fr, blk, prev); err != nil {
			return nil, err
		}
		for _, inst := range blk.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				continue
			}
			if err := vm.step(fr, inst); err != nil {
				return nil, fmt.Errorf("@%s %%%s: %w", fn.Name(), blk.Name(), err)
			}
		}

		if err := vm.tick(); err != nil {
			return nil, err
		}
		switch t := blk.Term.(type) {
		case *ir.TermRet:
			if t.X == nil {
				return nil, nil
			}
			return vm.eval(fr, t.X)
		case *ir.TermBr:
			prev, blk = blk, asBlock(t.Target)
		case *ir.TermCondBr:
			c, err := vm.eval(fr, t.Cond)
			if err != nil {
				return nil, err
			}
			next := t.TargetFalse
			if c.(bool) {
				next = t.TargetTrue
			}
			prev, blk = blk, asBlock(next)
		case *ir.TermUnreachable:
			return nil, fmt.Errorf("@%s: reached unreachable in %%%s", fn.Name(), blk.Name())
		default:
			return nil, fmt.Errorf("%w: terminator %T", ErrUnsupported, blk.Term)
		}
		if blk == nil {
			return nil, fmt.Errorf("@%s: branch to unknown block", fn.Name())
		}
	}
}

func asBlock(v any) *ir.Block {
	b, _ := v.(*ir.Block)
	return b
}

// runPhis evaluates every phi of blk against the edge from prev. All
// incoming values are read before any phi is assigned.
func (vm *Machine) runPhis(fr *frame, blk, prev *ir.Block) error {
	type assign struct {
		phi *ir.InstPhi
		v   any
	}
	var pending []assign
	for _, inst := range blk.Insts {
		phi, ok := inst.(*ir.InstPhi)
		if !ok {
			continue
		}
		found := false
		for _, inc := range phi.Incs {
			if asBlock(inc.Pred) != prev {
				continue
			}
			v, err := vm.eval(fr, inc.X)
			if err != nil {
				return err
			}
			pending = append(pending, assign{phi, v})
			found = true
			break
		}
		if !found {
			return fmt.Errorf("phi in %%%s has no incoming value for predecessor", blk.Name())
		}
	}
	for _, a := range pending {
		fr.locals[a.phi] = a.v
	}
	return nil
}

// tick counts one executed instruction or terminator against MaxSteps.
func (vm *Machine) tick() error {
	maxSteps := vm.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	vm.Steps++
	if vm.Steps > maxSteps {
		return fmt.Errorf("%w (%d)", ErrStepLimit, maxSteps)
	}
	return nil
}

func (vm *Machine) step(fr *frame, inst ir.Instruction) error {
	if err := vm.tick(); err != nil {
		return err
	}

	switch in := inst.(type) {
	case *ir.InstAlloca:
		fr.locals[in] = &cell{v: zero(in.ElemType)}

	case *ir.InstLoad:
		p, err := vm.pointer(fr, in.Src)
		if err != nil {
			return err
		}
		fr.locals[in] = p.v

	case *ir.InstStore:
		v, err := vm.eval(fr, in.Src)
		if err != nil {
			return err
		}
		p, err := vm.pointer(fr, in.Dst)
		if err != nil {
			return err
		}
		p.v = v

	case *ir.InstFAdd:
		return vm.float2(fr, in, in.X, in.Y, func(x, y float64) float64 { return x + y })
	case *ir.InstFSub:
		return vm.float2(fr, in, in.X, in.Y, func(x, y float64) float64 { return x - y })
	case *ir.InstFMul:
		return vm.float2(fr, in, in.X, in.Y, func(x, y float64) float64 { return x * y })
	case *ir.InstFDiv:
		return vm.float2(fr, in, in.X, in.Y, func(x, y float64) float64 { return x / y })
	case *ir.InstFRem:
		return vm.float2(fr, in, in.X, in.Y, math.Mod)

	case *ir.InstFCmp:
		x, y, err := vm.floats(fr, in.X, in.Y)
		if err != nil {
			return err
		}
		r, err := fcmp(in.Pred, x, y)
		if err != nil {
			return err
		}
		fr.locals[in] = r

	case *ir.InstICmp:
		x, err := vm.eval(fr, in.X)
		if err != nil {
			return err
		}
		y, err := vm.eval(fr, in.Y)
		if err != nil {
			return err
		}
		switch in.Pred {
		case enum.IPredEQ:
			fr.locals[in] = x == y
		case enum.IPredNE:
			fr.locals[in] = x != y
		default:
			return fmt.Errorf("%w: icmp %s", ErrUnsupported, in.Pred)
		}

	case *ir.InstXor:
		x, err := vm.eval(fr, in.X)
		if err != nil {
			return err
		}
		y, err := vm.eval(fr, in.Y)
		if err != nil {
			return err
		}
		switch xv := x.(type) {
		case bool:
			fr.locals[in] = xv != y.(bool)
		case int64:
			fr.locals[in] = xv ^ y.(int64)
		}

	case *ir.InstSelect:
		c, err := vm.eval(fr, in.Cond)
		if err != nil {
			return err
		}
		pick := in.ValueFalse
		if c.(bool) {
			pick = in.ValueTrue
		}
		v, err := vm.eval(fr, pick)
		if err != nil {
			return err
		}
		fr.locals[in] = v

	case *ir.InstCall:
		callee, ok := in.Callee.(*ir.Func)
		if !ok {
			return fmt.Errorf("%w: indirect call", ErrUnsupported)
		}
		args := make([]any, len(in.Args))
		for i, a := range in.Args {
			v, err := vm.eval(fr, a)
			if err != nil {
				return err
			}
			args[i] = v
		}
		res, err := vm.Call(callee, args...)
		if err != nil {
			return err
		}
		fr.locals[in] = res

	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, inst)
	}
	return nil
}

func (vm *Machine) floats(fr *frame, a, b value.Value) (float64, float64, error) {
	x, err := vm.eval(fr, a)
	if err != nil {
		return 0, 0, err
	}
	y, err := vm.eval(fr, b)
	if err != nil {
		return 0, 0, err
	}
	xf, ok1 := x.(float64)
	yf, ok2 := y.(float64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("expected double operands, got %T and %T", x, y)
	}
	return xf, yf, nil
}

func (vm *Machine) float2(fr *frame, dst value.Value, a, b value.Value, op func(x, y float64) float64) error {
	x, y, err := vm.floats(fr, a, b)
	if err != nil {
		return err
	}
	fr.locals[dst] = op(x, y)
	return nil
}

// fcmp implements the ordered predicates; each is false when either operand
// is NaN.
func fcmp(pred enum.FPred, x, y float64) (bool, error) {
	if math.IsNaN(x) || math.IsNaN(y) {
		switch pred {
		case enum.FPredOEQ, enum.FPredONE, enum.FPredOGT, enum.FPredOGE, enum.FPredOLT, enum.FPredOLE:
			return false, nil
		}
	}
	switch pred {
	case enum.FPredOEQ:
		return x == y, nil
	case enum.FPredONE:
		return x != y, nil
	case enum.FPredOGT:
		return x > y, nil
	case enum.FPredOGE:
		return x >= y, nil
	case enum.FPredOLT:
		return x < y, nil
	case enum.FPredOLE:
		return x <= y, nil
	}
	return false, fmt.Errorf("%w: fcmp %s", ErrUnsupported, pred)
}

func (vm *Machine) pointer(fr *frame, v value.Value) (*cell, error) {
	p, err := vm.eval(fr, v)
	if err != nil {
		return nil, err
	}
	c, ok := p.(*cell)
	if !ok || c == nil {
		return nil, fmt.Errorf("not a variable pointer: %v", v.Ident())
	}
	return c, nil
}

// eval resolves an operand to its runtime value.
func (vm *Machine) eval(fr *frame, v value.Value) (any, error) {
	switch x := v.(type) {
	case *ir.Global:
		g, ok := vm.globals[x]
		if !ok {
			return nil, fmt.Errorf("unknown global @%s", x.Name())
		}
		return g, nil
	case *ir.Func:
		return x, nil
	case constant.Constant:
		return vm.constValue(x)
	}
	r, ok := fr.locals[v]
	if !ok {
		return nil, fmt.Errorf("use of undefined value %s in @%s", v.Ident(), fr.fn.Name())
	}
	return r, nil
}

func (vm *Machine) constValue(c constant.Constant) (any, error) {
	switch x := c.(type) {
	case *constant.Float:
		if x.NaN {
			return math.Copysign(math.NaN(), float64(x.X.Sign())), nil
		}
		f, _ := x.X.Float64()
		return f, nil
	case *constant.Int:
		if x.Typ.BitSize == 1 {
			return x.X.Sign() != 0, nil
		}
		return x.X.Int64(), nil
	case *constant.Null:
		return cstring(""), nil
	case *constant.ExprGetElementPtr:
		g, ok := x.Src.(*ir.Global)
		if !ok {
			return nil, fmt.Errorf("%w: getelementptr on %T", ErrUnsupported, x.Src)
		}
		s, ok := vm.globals[g].(cstring)
		if !ok {
			return nil, fmt.Errorf("%w: getelementptr on non-string @%s", ErrUnsupported, g.Name())
		}
		return s, nil
	case *ir.Global:
		return vm.globals[x], nil
	case *ir.Func:
		return x, nil
	}
	return nil, fmt.Errorf("%w: constant %T", ErrUnsupported, c)
}

func zero(t types.Type) any {
	switch t := t.(type) {
	case *types.FloatType:
		return 0.0
	case *types.IntType:
		if t.BitSize == 1 {
			return false
		}
		return int64(0)
	case *types.PointerType:
		return cstring("")
	}
	return nil
}
