// Package cmd wires the VM core into a command-line tool, replacing the
// teacher's raw os.Args parsing with github.com/spf13/cobra subcommands
// (SPEC_FULL.md §10), grounded on the CLI shape repeated across the
// retrieval pack's manifests (CWBudde-go-dws, zboralski-galago,
// oisee-z80-optimizer, ethereum-go-ethereum all depend on cobra).
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tinyvm/tinyvm/internal/stack"
)

var (
	traceFlag         bool
	stackCapacityFlag int
)

// NewRootCmd builds the vmctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vmctl",
		Short:         "Run, disassemble, and serve tinyvm bytecode programs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&traceFlag, "trace", false,
		"enable per-opcode debug tracing and a state dump on fatal error")
	root.PersistentFlags().IntVar(&stackCapacityFlag, "stack-capacity", stack.MinCapacity,
		"initial operand stack capacity")

	root.AddCommand(newRunCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newServeCmd())
	return root
}

// Execute runs vmctl with os.Args, returning any error for main to report.
func Execute() error {
	return NewRootCmd().Execute()
}
