package interp

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/llir/llvm/ir"
)

// callExternal services calls to declared-only functions.
func (vm *Machine) callExternal(fn *ir.Func, args []any) (any, error) {
	if fn.Name() == "printf" {
		return vm.printf(args)
	}
	return nil, fmt.Errorf("%w: call to external @%s", ErrUnsupported, fn.Name())
}

// printf formats args with a C format string. The conversions the generator
// emits (%f and %s) mean the same thing to fmt.
func (vm *Machine) printf(args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("printf: missing format")
	}
	format, ok := args[0].(cstring)
	if !ok {
		return nil, fmt.Errorf("printf: format is %T, not a string", args[0])
	}
	goArgs := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		goArgs = append(goArgs, toGo(a))
	}
	n, err := fmt.Fprintf(vm.outputSink(), string(format), goArgs...)
	return int64(n), err
}

func toGo(v any) any {
	switch x := v.(type) {
	case cstring:
		return string(x)
	case float64:
		return cDouble(x)
	case *cell:
		return toGo(x.v)
	}
	return v
}

// cDouble prints like a C double: infinities and NaNs are spelled inf and
// nan, with the sign bit shown.
type cDouble float64

func (d cDouble) Format(f fmt.State, verb rune) {
	x := float64(d)
	if !math.IsInf(x, 0) && !math.IsNaN(x) {
		fmt.Fprintf(f, fmt.FormatString(f, verb), x)
		return
	}

	s := "inf"
	if math.IsNaN(x) {
		s = "nan"
	}
	switch {
	case math.Signbit(x):
		s = "-" + s
	case f.Flag('+'):
		s = "+" + s
	}
	if verb == 'F' || verb == 'E' || verb == 'G' {
		s = strings.ToUpper(s)
	}

	if w, ok := f.Width(); ok && w > len(s) {
		pad := strings.Repeat(" ", w-len(s))
		if f.Flag('-') {
			s += pad
		} else {
			s = pad + s
		}
	}
	io.WriteString(f, s)
}
