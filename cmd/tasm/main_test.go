package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const program = `fun twice(n) { return n * 2; }
float x = twice(21);
print(x);
`

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	path := writeSource(t, "prog.tl", program)
	out, err := execute(t, "run", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "42.000000\n" {
		t.Errorf("expected 42.000000, got %q", out)
	}
}

func TestBuildIR(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, "a.tl", program)
	b := writeSource(t, "b.tl", `print("b");`)
	if _, err := execute(t, "build", "--emit", "ir", "-o", dir, a, b); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for _, name := range []string{"a.ll", "b.ll"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !strings.Contains(string(data), "define i32 @main()") {
			t.Errorf("%s: unexpected IR:\n%s", name, data)
		}
	}
}

func TestBuildReportsErrors(t *testing.T) {
	path := writeSource(t, "bad.tl", "float x = ;\n")
	_, err := execute(t, "build", "--emit", "ir", "-o", filepath.Join(t.TempDir(), "bad.ll"), path)
	if err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("expected a parse error, got %v", err)
	}
}

func TestDump(t *testing.T) {
	path := writeSource(t, "prog.tl", program)
	out, err := execute(t, "dump", path)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	for _, want := range []string{"Tokens (", "AST", "Generated IR", "define double @twice(double", "Globals:", "Functions:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected dump to contain %q:\n%s", want, out)
		}
	}
}
