package cmd

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tinyvm/tinyvm/internal/bytecode"
	"github.com/tinyvm/tinyvm/internal/vm"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <program>",
		Short: "Load a serialized program, verify it, and execute it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(args[0])
		},
	}
}

func runProgram(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	program, err := bytecode.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if program.Entry < 0 || program.Entry >= len(program.Blocks) {
		return bytecode.ErrBadEntry
	}
	entry := program.Blocks[program.Entry]
	if err := entry.Verify(); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	instance := vm.New(os.Stdout, stackCapacityFlag)
	if traceFlag {
		instance.SetLogger(zerolog.New(os.Stderr).
			Level(zerolog.DebugLevel).
			With().
			Timestamp().
			Logger())
	}

	if err := instance.Run(entry); err != nil {
		if traceFlag {
			fmt.Fprintf(os.Stderr, "%# v\n", pretty.Formatter(err))
		}
		return err
	}
	return nil
}
