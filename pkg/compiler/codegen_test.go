package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"tasm/pkg/interp"
)

// generate runs Lex -> Parse -> Generate and returns the IR text.
func generate(t *testing.T, source string) string {
	t.Helper()
	stmts := parseSource(t, source)
	m, err := Generate(stmts, NewSymbolTable())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return m.String()
}

// generateErr expects generation to fail and returns the error.
func generateErr(t *testing.T, source string) error {
	t.Helper()
	stmts := parseSource(t, source)
	_, err := Generate(stmts, NewSymbolTable())
	if err == nil {
		t.Fatalf("expected Generate to fail for %q", source)
	}
	return err
}

// runCode compiles source and executes it, returning everything printed.
func runCode(t *testing.T, source string) string {
	t.Helper()
	res, err := Compile(source, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	var out bytes.Buffer
	vm, err := interp.NewMachine(res.Module)
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	vm.Output = &out
	vm.MaxSteps = 1_000_000
	code, err := vm.Run("main")
	if err != nil {
		t.Fatalf("Run failed: %v\nIR:\n%s", err, res.Module)
	}
	if code != 0 {
		t.Errorf("exit code: expected 0, got %d", code)
	}
	return out.String()
}

func TestGenerateModuleShape(t *testing.T) {
	ir := generate(t, "print(1);")
	for _, want := range []string{
		"declare i32 @printf(",
		"define i32 @main()",
		"entry:",
		"ret i32 0",
		`c"%f\0A\00"`,
	} {
		if !strings.Contains(ir, want) {
			t.Errorf("IR missing %q:\n%s", want, ir)
		}
	}
}

func TestGenerateVariables(t *testing.T) {
	t.Run("GlobalsForTopLevel", func(t *testing.T) {
		ir := generate(t, "float x = 2; bool b = true; string s = \"hi\";")
		for _, want := range []string{"@x = global double", "@b = global i1", "@s = global i8*"} {
			if !strings.Contains(ir, want) {
				t.Errorf("IR missing %q:\n%s", want, ir)
			}
		}
	})

	t.Run("AllocasForBlockLocals", func(t *testing.T) {
		ir := generate(t, "{ float x = 2; bool b = false; }")
		if !strings.Contains(ir, "alloca double") || !strings.Contains(ir, "alloca i1") {
			t.Errorf("expected allocas:\n%s", ir)
		}
		if strings.Contains(ir, "@x") {
			t.Errorf("block local became a global:\n%s", ir)
		}
	})

	t.Run("UnaryMinusMultipliesByMinusOne", func(t *testing.T) {
		ir := generate(t, "float x = -3;")
		if !strings.Contains(ir, "fmul double") {
			t.Errorf("expected fmul by -1.0:\n%s", ir)
		}
	})

	t.Run("OrderedComparisons", func(t *testing.T) {
		ir := generate(t, "bool a = 1 < 2; bool b = 1 >= 2; bool c = 1 != 2;")
		for _, want := range []string{"fcmp olt", "fcmp oge", "fcmp one"} {
			if !strings.Contains(ir, want) {
				t.Errorf("IR missing %q:\n%s", want, ir)
			}
		}
	})
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
	}{
		{"IfConditionNotBool", "if (1) { print(1); }", ErrTypeMismatch},
		{"WhileConditionNotBool", `while ("x") { }`, ErrTypeMismatch},
		{"AssignUndeclared", "y = 1;", ErrUndefined},
		{"ReadUndeclared", "print(y);", ErrUndefined},
		{"InitializerMismatch", "float x = true;", ErrTypeMismatch},
		{"AssignMismatch", `float x = 1; x = "s";`, ErrTypeMismatch},
		{"AddStrings", `print("a" + "b");`, ErrTypeMismatch},
		{"CompareBoolWithFloat", "print(true < 1);", ErrTypeMismatch},
		{"NegateBool", "print(-true);", ErrTypeMismatch},
		{"NotFloat", "print(!1);", ErrTypeMismatch},
		{"NilOutsideInitializer", "print(nil);", ErrUnsupported},
		{"RedeclareSameScope", "float x = 1; float x = 2;", ErrRedeclared},
		{"RedeclareInBlock", "{ bool x; string x; }", ErrRedeclared},
		{"BreakOutsideLoop", "break;", ErrMisplaced},
		{"ContinueOutsideLoop", "if (true) { continue; }", ErrMisplaced},
		{"TopLevelReturnValue", "return 1;", ErrMisplaced},
		{"ScopeEnds", "{ float x = 1; } print(x);", ErrUndefined},
		{"ReservedVariable", "float printf = 1;", ErrRedeclared},
		{"LogicalNeedsBool", "print(1 and true);", ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := generateErr(t, tt.input)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
			var ge *GenError
			if !errors.As(err, &ge) {
				t.Errorf("expected *GenError, got %T", err)
			}
		})
	}
}

func TestGenerateErrorLine(t *testing.T) {
	err := generateErr(t, "float x = 1;\n\nprint(y);")
	var ge *GenError
	if !errors.As(err, &ge) || ge.Line != 3 {
		t.Errorf("expected error on line 3, got %v", err)
	}
	if !strings.Contains(err.Error(), `"y"`) {
		t.Errorf("expected the name in %v", err)
	}
}

func TestGenerateNilLiteralLine(t *testing.T) {
	err := generateErr(t, "float x = 1;\nprint(\n  nil);")
	var ge *GenError
	if !errors.As(err, &ge) || ge.Line != 3 {
		t.Errorf("expected nil error on line 3, got %v", err)
	}
}

func TestGenerateRejectsNonBlockBranches(t *testing.T) {
	stmts := []Stmt{&IfElse{
		Condition: &Literal{Value: BoolValue(true)},
		Then:      &Print{Expr: &Literal{Value: NumberValue(1)}},
	}}
	_, err := Generate(stmts, NewSymbolTable())
	if !errors.Is(err, ErrInternal) {
		t.Errorf("expected ErrInternal, got %v", err)
	}
}

func TestPrint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Bool", "print(true);", "true\n"},
		{"False", "print(false);", "false\n"},
		{"Float", "print(1.5);", "1.500000\n"},
		{"String", `print("hi");`, "hi\n"},
		{"Arithmetic", "print(1 + 2 * 3 - 4 / 2);", "5.000000\n"},
		{"Remainder", "print(7 % 3);", "1.000000\n"},
		{"Negation", "print(-(2 + 1));", "-3.000000\n"},
		{"Comparison", "print(2 > 1);", "true\n"},
		{"BoolEquality", "print(true == false);", "false\n"},
		{"Not", "print(!false);", "true\n"},
		{"DefaultFloat", "float x; print(x);", "0.000000\n"},
		{"DefaultBool", "bool b; print(b);", "false\n"},
		{"DefaultString", "string s; print(s);", "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runCode(t, tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPrintNonFinite(t *testing.T) {
	if got, want := runCode(t, "print(1 / 0);\nprint(-(1 / 0));"), "inf\n-inf\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAssignment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Reassign", "float x = 1; x = x + 41; print(x);", "42.000000\n"},
		{"ValueIsNewValue", "float x = 1; print(x = 5);", "5.000000\n"},
		{"Chained", "float a = 0; float b = 0; a = b = 3; print(a); print(b);", "3.000000\n3.000000\n"},
		{"StringVariable", `string s = "a"; s = "b"; print(s);`, "b\n"},
		{"BoolVariable", "bool b = 1 < 2; b = !b; print(b);", "false\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runCode(t, tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestScopes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Shadowing",
			input:    "float x = 1; { float x = 2; print(x); } print(x);",
			expected: "2.000000\n1.000000\n",
		},
		{
			name:     "InitializerSeesOuterBinding",
			input:    "float x = 1; { float x = x + 10; print(x); }",
			expected: "11.000000\n",
		},
		{
			name:     "InnerAssignsOuter",
			input:    "float x = 1; { x = 7; } print(x);",
			expected: "7.000000\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runCode(t, tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
