package main

import (
	"os"

	"github.com/spf13/cobra"

	"tasm/pkg/interp"
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Compile a source file and execute it in-process",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Int("max-steps", 0, "Instruction budget (default from config)")
	runCmd.Flags().Bool("stats", false, "Log the executed instruction count")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("max-steps"); v > 0 {
		cfg.MaxSteps = v
	}

	res, err := compileFile(cmd, cfg, args[0])
	if err != nil {
		return err
	}
	vm, err := interp.NewMachine(res.Module)
	if err != nil {
		return err
	}
	vm.Output = cmd.OutOrStdout()
	vm.MaxSteps = cfg.MaxSteps
	vm.MaxDepth = cfg.MaxDepth

	code, err := vm.Run("main")
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		cmd.PrintErrf("%d steps\n", vm.Steps)
	}
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
