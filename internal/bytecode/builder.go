package bytecode

import "github.com/tinyvm/tinyvm/internal/value"

// Builder is a minimal in-Go assembler standing in for the out-of-scope
// compiler front end (spec.md §1: "treated as a black box that would
// produce a Block matching §3"). It emits exactly the wire format spec.md
// §4.4 specifies, grounded on the INT_TO_BYTES4 byte-array construction in
// _examples/original_source/main.c and vm/bytecode.h.
type Builder struct {
	code      []byte
	constants []value.Value
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) emitOp(op Opcode) *Builder {
	b.code = append(b.code, byte(op))
	return b
}

func (b *Builder) emitI32(v int32) *Builder {
	buf := [4]byte{}
	PutI32(buf[:], 0, v)
	b.code = append(b.code, buf[:]...)
	return b
}

func (b *Builder) emitU8(v byte) *Builder {
	b.code = append(b.code, v)
	return b
}

// Const appends v to the constant pool and returns its index, for use with
// PushConst/CallFuncConstant.
func (b *Builder) Const(v value.Value) int32 {
	b.constants = append(b.constants, v)
	return int32(len(b.constants) - 1)
}

func (b *Builder) Halt() *Builder { return b.emitOp(Halt) }

func (b *Builder) PushConst(idx int32) *Builder {
	return b.emitOp(PushConst).emitI32(idx)
}

func (b *Builder) PushLocal(idx int32) *Builder {
	return b.emitOp(PushLocal).emitI32(idx)
}

func (b *Builder) StoreLocal(idx int32) *Builder {
	return b.emitOp(StoreLocal).emitI32(idx)
}

func (b *Builder) PushGlobal(frameIdx, localIdx int32) *Builder {
	return b.emitOp(Push).emitI32(frameIdx).emitI32(localIdx)
}

func (b *Builder) StoreGlobal(frameIdx, localIdx int32) *Builder {
	return b.emitOp(Store).emitI32(frameIdx).emitI32(localIdx)
}

func (b *Builder) Pop() *Builder { return b.emitOp(Pop) }

func (b *Builder) CallOp(op value.Op) *Builder {
	return b.emitOp(CallOp).emitU8(byte(op))
}

// Jump emits a JUMP to target. Since the Builder assembles linearly,
// callers typically emit a placeholder target, remember the offset with
// Here, and patch it with PatchI32 once the destination offset is known.
func (b *Builder) Jump(target int32) *Builder {
	return b.emitOp(Jump).emitI32(target)
}

func (b *Builder) JumpFalse(target int32) *Builder {
	return b.emitOp(JumpFalse).emitI32(target)
}

func (b *Builder) CallCFunc(funcID, argc int32) *Builder {
	return b.emitOp(CallCFunc).emitI32(funcID).emitI32(argc)
}

func (b *Builder) CallFuncConstant(constIdx, argc int32) *Builder {
	return b.emitOp(CallFunc).emitU8(byte(CFConstant)).emitI32(constIdx).emitI32(argc)
}

func (b *Builder) CallFuncLocal(localIdx, argc int32) *Builder {
	return b.emitOp(CallFunc).emitU8(byte(CFLocal)).emitI32(localIdx).emitI32(argc)
}

func (b *Builder) CallFuncGlobal(frameIdx, localIdx, argc int32) *Builder {
	return b.emitOp(CallFunc).emitU8(byte(CFGlobal)).emitI32(frameIdx).emitI32(localIdx).emitI32(argc)
}

func (b *Builder) Return() *Builder { return b.emitOp(Return) }

func (b *Builder) IncLocal(idx int32) *Builder {
	return b.emitOp(IncLocal).emitI32(idx)
}

func (b *Builder) DecLocal(idx int32) *Builder {
	return b.emitOp(DecLocal).emitI32(idx)
}

// Here returns the current emission offset, usable as a jump target when a
// backward jump's destination is already known (e.g. a loop header).
func (b *Builder) Here() int32 { return int32(len(b.code)) }

// PatchI32 overwrites the four bytes at offset with v. For a JUMP or
// JUMP_FALSE, offset is one past the value Here() returned right before
// the call, since the i32 operand follows the one-byte opcode — used for
// forward jumps whose target isn't known until later.
func (b *Builder) PatchI32(offset int32, v int32) {
	PutI32(b.code, int(offset), v)
}

// Block finalizes the assembled instructions and constant pool into a
// Block reserving localCount local slots.
func (b *Builder) Block(localCount int) *Block {
	return &Block{
		Instructions: b.code,
		Constants:    b.constants,
		LocalCount:   localCount,
	}
}
