package utils

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestGetPathInfo(t *testing.T) {
	full, dir, err := GetPathInfo("a/../b/prog.tl")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(full) || filepath.Base(full) != "prog.tl" || filepath.Base(dir) != "b" {
		t.Errorf("got %q, %q", full, dir)
	}
}

func TestReplaceExt(t *testing.T) {
	tests := []struct{ in, ext, want string }{
		{"prog.tl", ".o", "prog.o"},
		{"dir.v1/prog", ".ll", "dir.v1/prog.ll"},
		{"output.o", ".s", "output.s"},
		{"prog.tl", "", "prog"},
	}
	for _, tt := range tests {
		if got := ReplaceExt(tt.in, tt.ext); got != tt.want {
			t.Errorf("ReplaceExt(%q, %q) = %q, want %q", tt.in, tt.ext, got, tt.want)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name     string
		sources  []string
		ext      string
		override string
		want     []string
	}{
		{"SingleDefault", []string{"prog.tl"}, ".o", "", []string{"output.o"}},
		{"SingleDefaultIR", []string{"prog.tl"}, ".ll", "", []string{"output.ll"}},
		{"SingleOverride", []string{"prog.tl"}, ".o", "bin/prog", []string{"bin/prog"}},
		{"Many", []string{"a.tl", "lib/b.tl"}, ".s", "", []string{"a.s", "lib/b.s"}},
		{"ManyIntoDir", []string{"a.tl", "lib/b.tl"}, ".o", "out", []string{filepath.Join("out", "a.o"), filepath.Join("out", "b.o")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputPaths(tt.sources, tt.ext, tt.override, "output.o")
			if err != nil {
				t.Fatalf("OutputPaths failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputPathsErrors(t *testing.T) {
	if _, err := OutputPaths(nil, ".o", "", "output.o"); err == nil {
		t.Error("expected an error for no sources")
	}
	_, err := OutputPaths([]string{"a/x.tl", "b/x.tl"}, ".o", "out", "output.o")
	if err == nil || !strings.Contains(err.Error(), "both write") {
		t.Errorf("expected a collision error, got %v", err)
	}
}
