package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tasm/pkg/compiler"
	"tasm/pkg/emit"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Print the tokens, AST, LLVM IR and symbols of a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringSlice("only", nil, "Sections to print: tokens, ast, ir, symbols")
}

func runDump(cmd *cobra.Command, args []string) error {
	sections := map[string]bool{"tokens": true, "ast": true, "ir": true, "symbols": true}
	if only, _ := cmd.Flags().GetStringSlice("only"); len(only) > 0 {
		sections = make(map[string]bool)
		for _, s := range only {
			sections[s] = true
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res, err := compileFile(cmd, cfg, args[0])
	if res != nil {
		dump(cmd.OutOrStdout(), res, sections)
	}
	return err
}

// dump prints every stage that completed.
func dump(w io.Writer, res *compiler.Result, sections map[string]bool) {
	if sections["tokens"] && res.Tokens != nil {
		fmt.Fprintf(w, "Tokens (%d)\n", len(res.Tokens))
		for _, tok := range res.Tokens {
			fmt.Fprintln(w, " ", tok)
		}
		fmt.Fprintln(w)
	}

	if sections["ast"] && res.Stmts != nil {
		fmt.Fprintln(w, "AST")
		fmt.Fprint(w, compiler.DumpStmts(res.Stmts))
		fmt.Fprintln(w)
	}

	if sections["ir"] && res.Module != nil {
		fmt.Fprintln(w, "Generated IR")
		emit.WriteIR(w, res.Module)
		fmt.Fprintln(w)
	}

	if sections["symbols"] && res.Module != nil {
		fmt.Fprint(w, res.Symbols)
	}
}
