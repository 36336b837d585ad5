// Package main is the tasm command line: build, run, dump and serve.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"tasm/pkg/compiler"
	"tasm/pkg/config"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:          "tasm",
	Short:        "Compiler for a small typed scripting language targeting LLVM",
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("tasm version {{.Version}}\n")

	rootCmd.PersistentFlags().String("config", "", "YAML config file (default tasm.yaml if present, env TASM_CONFIG)")
	rootCmd.PersistentFlags().Bool("all-errors", false, "Report every syntax error instead of the first")

	rootCmd.AddCommand(buildCmd, runCmd, dumpCmd, serveCmd)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("tasm: ")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the config file, then the environment, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := envOrDefault("TASM_CONFIG", "")
	optional := path == ""
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		path, optional = v, false
	}
	if path == "" {
		path = "tasm.yaml"
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// compileFile reads and compiles one source file, logging lexer diagnostics.
func compileFile(cmd *cobra.Command, cfg *config.Config, path string) (*compiler.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	allErrors, _ := cmd.Flags().GetBool("all-errors")
	res, err := compiler.Compile(string(data), compiler.Options{
		SourceFile:   path,
		ModuleName:   cfg.Module,
		TargetTriple: cfg.TargetTriple,
		AllErrors:    allErrors,
	})
	for _, d := range res.Diagnostics {
		log.Printf("%s:%d: %s", path, d.Line, d.Message)
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
