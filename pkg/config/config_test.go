package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tasm/pkg/emit"
)

func TestParse(t *testing.T) {
	src := `
module: demo
output: build/demo.s
emit: asm
opt_level: 3
target_triple: aarch64-linux-gnu
`
	cfg := Default()
	if err := Parse([]byte(src), cfg); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := Default()
	want.Module = "demo"
	want.Output = "build/demo.s"
	want.Emit = "asm"
	want.OptLevel = 3
	want.TargetTriple = "aarch64-linux-gnu"
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
	if cfg.Format() != emit.FormatAssembly {
		t.Errorf("Format(): expected asm, got %v", cfg.Format())
	}
	if tg := cfg.Target(); tg.OptLevel != 3 || tg.Triple != "aarch64-linux-gnu" || tg.LLC != "llc" {
		t.Errorf("unexpected target %+v", tg)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"UnknownKey", "outptu: x.o", `unknown key "outptu"`},
		{"BadFormat", "emit: wasm", "unknown emit format"},
		{"BadOptLevel", "opt_level: 7", "opt_level"},
		{"NotAMapping", "- a\n- b", "must be a mapping"},
		{"BadYAML", "module: [", "invalid YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Parse([]byte(tt.src), Default())
			if err == nil || !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("expected error containing %q, got %v", tt.msg, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("EmptyPathGivesDefaults", func(t *testing.T) {
		cfg, err := Load("", false)
		if err != nil || !reflect.DeepEqual(cfg, Default()) {
			t.Errorf("got %+v, %v", cfg, err)
		}
	})

	t.Run("OptionalMissingFile", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"), true)
		if err != nil || cfg.Output != DefaultOutput {
			t.Errorf("got %+v, %v", cfg, err)
		}
	})

	t.Run("RequiredMissingFile", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "none.yaml"), false); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tasm.yaml")
		if err := os.WriteFile(path, []byte("emit: ir\nmax_steps: 100\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path, false)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Emit != "ir" || cfg.MaxSteps != 100 || cfg.MaxDepth != 10_000 {
			t.Errorf("unexpected config %+v", cfg)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TASM_LLC", "/opt/llvm/bin/llc")
	t.Setenv("TASM_OUTPUT", "")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.LLC != "/opt/llvm/bin/llc" {
		t.Errorf("LLC: expected env override, got %q", cfg.LLC)
	}
	if cfg.Output != DefaultOutput {
		t.Errorf("Output: empty env must not override, got %q", cfg.Output)
	}
}
