// Package emit turns a finished LLVM IR module into an output artifact:
// textual IR, or native assembly / object code produced by an external llc.
package emit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
)

// Format selects the artifact Emit produces.
type Format int

const (
	FormatObject Format = iota
	FormatAssembly
	FormatIR
)

var formatNames = map[string]Format{
	"object": FormatObject,
	"obj":    FormatObject,
	"asm":    FormatAssembly,
	"ir":     FormatIR,
	"ll":     FormatIR,
}

// ParseFormat maps a config or flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	f, ok := formatNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown emit format %q (want object, asm or ir)", s)
	}
	return f, nil
}

func (f Format) String() string {
	switch f {
	case FormatAssembly:
		return "asm"
	case FormatIR:
		return "ir"
	}
	return "object"
}

// Ext is the conventional file extension for f.
func (f Format) Ext() string {
	switch f {
	case FormatAssembly:
		return ".s"
	case FormatIR:
		return ".ll"
	}
	return ".o"
}

// ErrNoLLC is returned when native output is requested and llc is missing.
var ErrNoLLC = errors.New("llc not found")

// Target describes the machine code llc should produce.
type Target struct {
	LLC      string // path or name of the llc binary
	Triple   string // empty means the host default
	OptLevel int    // 0-3
	Reloc    string // relocation model, e.g. "pic"
}

// Args returns the llc command line for format f, reading IR from stdin
// and writing to stdout.
func (t Target) Args(f Format) []string {
	filetype := "obj"
	if f == FormatAssembly {
		filetype = "asm"
	}
	args := []string{"-filetype=" + filetype, "-O" + strconv.Itoa(t.OptLevel)}
	if t.Reloc != "" {
		args = append(args, "-relocation-model="+t.Reloc)
	}
	if t.Triple != "" {
		args = append(args, "-mtriple="+t.Triple)
	}
	return append(args, "-o", "-", "-")
}

// WriteIR writes the textual form of m to w.
func WriteIR(w io.Writer, m *ir.Module) error {
	_, err := io.WriteString(w, m.String())
	return err
}

// Emit renders m in format f.
func Emit(ctx context.Context, m *ir.Module, f Format, t Target) ([]byte, error) {
	var src bytes.Buffer
	if err := WriteIR(&src, m); err != nil {
		return nil, err
	}
	if f == FormatIR {
		return src.Bytes(), nil
	}

	llc := t.LLC
	if llc == "" {
		llc = "llc"
	}
	path, err := exec.LookPath(llc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLLC, llc)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, t.Args(f)...)
	cmd.Stdin = &src
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("llc: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// WriteFile emits m in format f and writes it to path.
func WriteFile(ctx context.Context, m *ir.Module, path string, f Format, t Target) error {
	out, err := Emit(ctx, m, f, t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
