package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tinyvm/tinyvm/internal/bytecode"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <program>",
		Short: "Print a human-readable listing of a program's blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disasmProgram(args[0])
		},
	}
}

func disasmProgram(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	program, err := bytecode.Decode(data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	for i, blk := range program.Blocks {
		marker := ""
		if i == program.Entry {
			marker = " (entry)"
		}
		fmt.Printf("block %d%s: %s instructions, %d constants, %d locals\n",
			i, marker, humanize.Bytes(uint64(blk.InstructionSize())), len(blk.Constants), blk.LocalCount)
		disassembleBlock(blk)
	}
	return nil
}

func disassembleBlock(blk *bytecode.Block) {
	ip := 0
	n := blk.InstructionSize()
	for ip < n {
		opByte, next := bytecode.ReadU8(blk.Instructions, ip)
		op := bytecode.Opcode(opByte)
		fmt.Printf("  %04d  %s", ip, op)
		ip = next

		switch op {
		case bytecode.Halt, bytecode.Pop, bytecode.Return:
			// no operands

		case bytecode.PushConst, bytecode.PushLocal, bytecode.StoreLocal,
			bytecode.IncLocal, bytecode.DecLocal, bytecode.Jump, bytecode.JumpFalse:
			val, next2 := bytecode.ReadI32(blk.Instructions, ip)
			ip = next2
			fmt.Printf(" %d", val)

		case bytecode.Push, bytecode.Store:
			a, n1 := bytecode.ReadI32(blk.Instructions, ip)
			b, n2 := bytecode.ReadI32(blk.Instructions, n1)
			ip = n2
			fmt.Printf(" frame=%d local=%d", a, b)

		case bytecode.CallOp:
			opv, next2 := bytecode.ReadU8(blk.Instructions, ip)
			ip = next2
			fmt.Printf(" op=%d", opv)

		case bytecode.CallCFunc:
			funcID, n1 := bytecode.ReadI32(blk.Instructions, ip)
			argc, n2 := bytecode.ReadI32(blk.Instructions, n1)
			ip = n2
			fmt.Printf(" func_id=%d argc=%d", funcID, argc)

		case bytecode.CallFunc:
			mode, n1 := bytecode.ReadU8(blk.Instructions, ip)
			switch bytecode.CallAddressingMode(mode) {
			case bytecode.CFConstant, bytecode.CFLocal:
				idx, n2 := bytecode.ReadI32(blk.Instructions, n1)
				argc, n3 := bytecode.ReadI32(blk.Instructions, n2)
				ip = n3
				fmt.Printf(" mode=%d idx=%d argc=%d", mode, idx, argc)
			case bytecode.CFGlobal:
				frameIdx, n2 := bytecode.ReadI32(blk.Instructions, n1)
				localIdx, n3 := bytecode.ReadI32(blk.Instructions, n2)
				argc, n4 := bytecode.ReadI32(blk.Instructions, n3)
				ip = n4
				fmt.Printf(" mode=global frame=%d local=%d argc=%d", frameIdx, localIdx, argc)
			default:
				ip = n1
				fmt.Printf(" mode=?%d", mode)
			}

		default:
			fmt.Println(" <unknown>")
			return
		}
		fmt.Println()
	}
}
