// Package bytecode implements the Block compiled-unit type, its wire
// instruction format (spec.md §4.4), a minimal assembler standing in for
// the out-of-scope compiler front end, and a small binary container format
// for saving/loading assembled programs (spec.md §11 in SPEC_FULL.md).
package bytecode

// Opcode identifies an instruction. Ordinal values mirror
// _examples/original_source/vm/bytecode.h's Bytecode enum so the wire
// format matches the reference implementation exactly, though spec.md
// §6 notes the actual byte values are implementation-defined as long as
// they're stable between a block's producer and its consumer.
type Opcode uint8

const (
	Halt Opcode = iota
	PushConst
	PushLocal
	StoreLocal
	Push
	Store
	Pop
	CallOp
	Jump
	JumpFalse
	CallCFunc
	CallFunc
	Return
	IncLocal
	DecLocal

	// StartWorker is reserved for a future concurrency primitive
	// (spec.md §5, §9) and is never executed: Block.Verify rejects it as
	// an unknown opcode, and the VM fails on it with ErrReservedOpcode.
	StartWorker
)

func (op Opcode) String() string {
	switch op {
	case Halt:
		return "HALT"
	case PushConst:
		return "PUSH_CONST"
	case PushLocal:
		return "PUSH_LOCAL"
	case StoreLocal:
		return "STORE_LOCAL"
	case Push:
		return "PUSH"
	case Store:
		return "STORE"
	case Pop:
		return "POP"
	case CallOp:
		return "CALL_OP"
	case Jump:
		return "JUMP"
	case JumpFalse:
		return "JUMP_FALSE"
	case CallCFunc:
		return "CALL_C_FUNC"
	case CallFunc:
		return "CALL_FUNC"
	case Return:
		return "RETURN"
	case IncLocal:
		return "INC_LOCAL"
	case DecLocal:
		return "DEC_LOCAL"
	case StartWorker:
		return "START_WORKER"
	default:
		return "UNKNOWN"
	}
}

// CallAddressingMode selects how CALL_FUNC resolves the Value it expects
// to be a Function (spec.md §4.5).
type CallAddressingMode uint8

const (
	CFConstant CallAddressingMode = iota
	CFLocal
	CFGlobal
)
