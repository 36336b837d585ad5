package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tasm/pkg/config"
	"tasm/pkg/emit"
	"tasm/pkg/utils"
)

var buildCmd = &cobra.Command{
	Use:   "build FILE...",
	Short: "Compile source files to object code, assembly or LLVM IR",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "Output path; a directory when building several files; - for stdout")
	buildCmd.Flags().String("emit", "", "Artifact kind: object, asm or ir (default object)")
	buildCmd.Flags().String("triple", "", "Target triple (default host, env TASM_TRIPLE)")
	buildCmd.Flags().Int("opt", 2, "llc optimization level 0-3")
	buildCmd.Flags().String("llc", "", "llc binary (default llc, env TASM_LLC)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("emit"); v != "" {
		cfg.Emit = v
	}
	if v, _ := cmd.Flags().GetString("triple"); v != "" {
		cfg.TargetTriple = v
	}
	if v, _ := cmd.Flags().GetString("llc"); v != "" {
		cfg.LLC = v
	}
	if cmd.Flags().Changed("opt") {
		cfg.OptLevel, _ = cmd.Flags().GetInt("opt")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "-" && len(args) > 1 {
		return fmt.Errorf("-o - needs exactly one source file")
	}
	format := cfg.Format()
	paths, err := utils.OutputPaths(args, format.Ext(), out, cfg.Output)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	for i, src := range args {
		i, src := i, src
		g.Go(func() error {
			return buildFile(ctx, cmd, cfg, src, paths[i])
		})
	}
	return g.Wait()
}

func buildFile(ctx context.Context, cmd *cobra.Command, cfg *config.Config, src, dst string) error {
	res, err := compileFile(cmd, cfg, src)
	if err != nil {
		return err
	}
	if dst == "-" {
		data, err := emit.Emit(ctx, res.Module, cfg.Format(), cfg.Target())
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := emit.WriteFile(ctx, res.Module, dst, cfg.Format(), cfg.Target()); err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	log.Printf("%s -> %s (%s)", src, dst, cfg.Format())
	return nil
}
