package bytecode

import (
	"github.com/pkg/errors"

	"github.com/tinyvm/tinyvm/internal/value"
)

// Block is an immutable compiled unit (spec.md §3): bytecode bytes, a
// constant pool, and a local-slot count. Grounded on the wasm.Function /
// vm.Block shape in _examples/vertexdlt-vertexvm/vm/frame.go and
// vm/block.go, generalized from "a WASM function body" to "a pool of
// tagged Values plus a flat instruction stream" per spec.md §3.
type Block struct {
	Instructions []byte
	Constants    []value.Value
	LocalCount   int

	// name is cosmetic, used only by disassembly and logging.
	name string
}

// BlockName implements value.Block so a Function-tagged Value can hold a
// *Block without internal/value importing internal/bytecode.
func (b *Block) BlockName() string {
	if b == nil {
		return "<nil>"
	}
	if b.name == "" {
		return "<block>"
	}
	return b.name
}

// SetName attaches a cosmetic name used in disassembly/logging.
func (b *Block) SetName(name string) { b.name = name }

// InstructionSize is the length of the instruction stream, used by §4.7's
// termination check (ip >= instruction_size).
func (b *Block) InstructionSize() int { return len(b.Instructions) }

// Verify checks the three Block invariants from spec.md §3: every
// constant-pool index referenced by an opcode is < constant_count, every
// local index is < local_count, and every jump target lies within
// [0, instruction_size). This enforcement is new relative to the C
// source — spec.md states the invariant but the reference VM never
// checks it, trusting the compiler. SPEC_FULL.md §11 adds it as an
// opt-in pre-flight check for the CLI and assembler; internal/vm itself
// stays permissive per spec.md §7.
func (b *Block) Verify() error {
	ip := 0
	n := len(b.Instructions)
	readI32 := func() (int32, bool) {
		if ip+4 > n {
			return 0, false
		}
		v := int32(uint32(b.Instructions[ip]) |
			uint32(b.Instructions[ip+1])<<8 |
			uint32(b.Instructions[ip+2])<<16 |
			uint32(b.Instructions[ip+3])<<24)
		ip += 4
		return v, true
	}
	readU8 := func() (byte, bool) {
		if ip+1 > n {
			return 0, false
		}
		v := b.Instructions[ip]
		ip++
		return v, true
	}
	checkConst := func(idx int32) error {
		if idx < 0 || int(idx) >= len(b.Constants) {
			return errors.Errorf("constant index %d out of range [0,%d)", idx, len(b.Constants))
		}
		return nil
	}
	checkLocal := func(idx int32) error {
		if idx < 0 || int(idx) >= b.LocalCount {
			return errors.Errorf("local index %d out of range [0,%d)", idx, b.LocalCount)
		}
		return nil
	}
	checkJump := func(target int32) error {
		if target < 0 || int(target) >= n {
			return errors.Errorf("jump target %d out of range [0,%d)", target, n)
		}
		return nil
	}

	for ip < n {
		opByte, ok := readU8()
		if !ok {
			return errors.New("truncated opcode")
		}
		op := Opcode(opByte)
		switch op {
		case Halt, Pop, Return:
			// no operands
		case PushConst:
			idx, ok := readI32()
			if !ok {
				return errors.New("truncated PUSH_CONST operand")
			}
			if err := checkConst(idx); err != nil {
				return err
			}
		case PushLocal, StoreLocal, IncLocal, DecLocal:
			idx, ok := readI32()
			if !ok {
				return errors.Errorf("truncated %s operand", op)
			}
			if err := checkLocal(idx); err != nil {
				return err
			}
		case Push, Store:
			if _, ok := readI32(); !ok {
				return errors.Errorf("truncated %s frame_idx operand", op)
			}
			if _, ok := readI32(); !ok {
				return errors.Errorf("truncated %s local_idx operand", op)
			}
		case CallOp:
			if _, ok := readU8(); !ok {
				return errors.New("truncated CALL_OP operand")
			}
		case Jump:
			target, ok := readI32()
			if !ok {
				return errors.New("truncated JUMP operand")
			}
			if err := checkJump(target); err != nil {
				return err
			}
		case JumpFalse:
			target, ok := readI32()
			if !ok {
				return errors.New("truncated JUMP_FALSE operand")
			}
			if err := checkJump(target); err != nil {
				return err
			}
		case CallCFunc:
			if _, ok := readI32(); !ok {
				return errors.New("truncated CALL_C_FUNC func_id operand")
			}
			if _, ok := readI32(); !ok {
				return errors.New("truncated CALL_C_FUNC argc operand")
			}
		case CallFunc:
			modeByte, ok := readU8()
			if !ok {
				return errors.New("truncated CALL_FUNC addressing mode")
			}
			switch CallAddressingMode(modeByte) {
			case CFConstant:
				idx, ok := readI32()
				if !ok {
					return errors.New("truncated CALL_FUNC constant index")
				}
				if err := checkConst(idx); err != nil {
					return err
				}
			case CFLocal:
				idx, ok := readI32()
				if !ok {
					return errors.New("truncated CALL_FUNC local index")
				}
				if err := checkLocal(idx); err != nil {
					return err
				}
			case CFGlobal:
				if _, ok := readI32(); !ok {
					return errors.New("truncated CALL_FUNC frame index")
				}
				if _, ok := readI32(); !ok {
					return errors.New("truncated CALL_FUNC local index")
				}
			default:
				return errors.Errorf("unknown CALL_FUNC addressing mode %d", modeByte)
			}
			if _, ok := readI32(); !ok {
				return errors.New("truncated CALL_FUNC argc operand")
			}
		default:
			return errors.Errorf("unknown opcode %d at offset %d", opByte, ip-1)
		}
	}
	return nil
}
